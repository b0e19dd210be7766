// Package api holds the request and response shapes shared by the HTTP RPC
// endpoint, the gRPC service and the client. Field names follow the JSON
// wire format; validation rules are expressed as validator struct tags.
package api

import "github.com/dmitrijs2005/multichat/internal/server/models"

// Procedure names of the batched RPC endpoint.
const (
	ProcSignUp          = "auth.signUp"
	ProcSignIn          = "auth.signIn"
	ProcSignOut         = "auth.signOut"
	ProcGetUser         = "auth.getUser"
	ProcRefresh         = "auth.refresh"
	ProcModelsAvailable = "models.getAvailable"
	ProcChatSend        = "chat.send"
	ProcChatHistory     = "chat.history"
	ProcChatDelete      = "chat.deleteMessage"
)

type SignUpInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
}

type RefreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// SendInput needs both fields present. Empty strings are accepted and
// unknown tags are answered by the echo fallback.
type SendInput struct {
	ModelTag *string `json:"modelTag" validate:"required"`
	Prompt   *string `json:"prompt" validate:"required"`
}

func NewSendInput(modelTag, prompt string) SendInput {
	return SendInput{ModelTag: &modelTag, Prompt: &prompt}
}

type DeleteMessageInput struct {
	MessageID *string `json:"messageId" validate:"required"`
}

func NewDeleteMessageInput(messageID string) DeleteMessageInput {
	return DeleteMessageInput{MessageID: &messageID}
}

// Empty is the input of procedures that take no arguments.
type Empty struct{}

type AuthResult struct {
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
}

type SendResult struct {
	UserMessage      *models.Message `json:"userMessage"`
	AssistantMessage *models.Message `json:"assistantMessage"`
}

type SuccessResult struct {
	Success bool `json:"success"`
}
