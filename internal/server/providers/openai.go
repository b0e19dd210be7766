package providers

import (
	"context"
	"net/http"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIProvider talks to the chat completions endpoint.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenAIProvider(apiKey, baseURL string, client *http.Client) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIProvider{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *OpenAIProvider) Configured() bool { return p.apiKey != "" }

// Complete sends a single-turn completion and returns choices[0].message.content,
// or "" when the response carries no content.
func (p *OpenAIProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	req := chatCompletionRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}

	var resp chatCompletionResponse
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if err := postJSON(ctx, p.client, p.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
