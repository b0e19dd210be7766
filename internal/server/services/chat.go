package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/multichat/internal/api"
	"github.com/dmitrijs2005/multichat/internal/common"
	"github.com/dmitrijs2005/multichat/internal/dbx"
	"github.com/dmitrijs2005/multichat/internal/logging"
	"github.com/dmitrijs2005/multichat/internal/server/auth"
	"github.com/dmitrijs2005/multichat/internal/server/models"
	"github.com/dmitrijs2005/multichat/internal/server/repositories/repomanager"
)

// Invoker produces a model answer. Implementations return text for every
// input; ChatService still guards against panics.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, modelTag string) string
}

// failedAnswer is stored when the invoker panics with a value that carries
// no message.
const failedAnswer = "Failed to get AI response"

// ChatService is the conversation relay and history reader.
type ChatService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	invoker     Invoker
	logger      logging.Logger
}

func NewChatService(db dbx.DBTX, m repomanager.RepositoryManager, inv Invoker, l logging.Logger) *ChatService {
	return &ChatService{db: db, repomanager: m, invoker: inv, logger: l.With("module", "relay")}
}

// Send persists the prompt, asks the model, persists the answer and returns
// both rows. The two writes are independent: if the second one fails the
// user message stays behind without an answer.
//
// Once the prompt is stored the remaining stages ignore cancellation of ctx.
func (s *ChatService) Send(ctx context.Context, uc auth.UserContext, in api.SendInput) (*api.SendResult, error) {
	if err := api.Validate(in); err != nil {
		return nil, err
	}
	modelTag, prompt := *in.ModelTag, *in.Prompt
	repo := s.repomanager.Messages(s.db)

	userMsg, err := repo.Create(ctx, &models.Message{
		UserID:   uc.UserID,
		ModelTag: modelTag,
		Role:     models.RoleUser,
		Content:  prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: storing user message: %v", common.ErrorInternal, err)
	}

	ctx = context.WithoutCancel(ctx)

	answer := s.invoke(ctx, prompt, modelTag)

	assistantMsg, err := repo.Create(ctx, &models.Message{
		UserID:   uc.UserID,
		ModelTag: modelTag,
		Role:     models.RoleAssistant,
		Content:  answer,
	})
	if err != nil {
		s.logger.Error(ctx, "assistant message lost", "user_id", uc.UserID, "message_id", userMsg.ID, "error", err.Error())
		return nil, fmt.Errorf("%w: storing assistant message: %v", common.ErrorInternal, err)
	}

	return &api.SendResult{UserMessage: userMsg, AssistantMessage: assistantMsg}, nil
}

func (s *ChatService) invoke(ctx context.Context, prompt, modelTag string) (answer string) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error(ctx, "model invocation panicked", "model_tag", modelTag, "panic", fmt.Sprint(p))
			answer = "Error: " + panicMessage(p)
		}
	}()
	return s.invoker.Invoke(ctx, prompt, modelTag)
}

func panicMessage(p any) string {
	switch v := p.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return failedAnswer
	}
}

// History returns every message of the caller, oldest first.
func (s *ChatService) History(ctx context.Context, uc auth.UserContext) ([]models.Message, error) {
	list, err := s.repomanager.Messages(s.db).ListByUser(ctx, uc.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing messages: %v", common.ErrorInternal, err)
	}
	if list == nil {
		list = []models.Message{}
	}
	return list, nil
}

// DeleteMessage removes one of the caller's messages. Ids that do not exist
// or belong to someone else are silently ignored.
func (s *ChatService) DeleteMessage(ctx context.Context, uc auth.UserContext, in api.DeleteMessageInput) (*api.SuccessResult, error) {
	if err := api.Validate(in); err != nil {
		return nil, err
	}
	if err := s.repomanager.Messages(s.db).Delete(ctx, *in.MessageID, uc.UserID); err != nil {
		return nil, fmt.Errorf("%w: deleting message: %v", common.ErrorInternal, err)
	}
	return &api.SuccessResult{Success: true}, nil
}
