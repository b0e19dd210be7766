// Package providers maps a (prompt, model tag) pair to a model answer.
//
// Dispatch is a closed set of provider kinds resolved once per call from
// the model tag prefix. Every failure degrades to the echo fallback, so
// Invoke always returns text and never an error.
package providers

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/multichat/internal/logging"
)

// Kind identifies the backend serving a model tag.
type Kind int

const (
	KindEcho Kind = iota
	KindOpenAI
	KindGemini
)

func (k Kind) String() string {
	switch k {
	case KindOpenAI:
		return "openai"
	case KindGemini:
		return "gemini"
	default:
		return "echo"
	}
}

// prefixes are checked in order; the first match wins.
var prefixes = []struct {
	prefix string
	kind   Kind
}{
	{"gpt-", KindOpenAI},
	{"gemini-", KindGemini},
}

// Resolve returns the provider kind for modelTag.
func Resolve(modelTag string) Kind {
	for _, p := range prefixes {
		if strings.HasPrefix(modelTag, p.prefix) {
			return p.kind
		}
	}
	return KindEcho
}

// NoResponse is returned when a provider answers successfully but without text.
const NoResponse = "No response from model"

// Echo is the deterministic fallback answer. The prompt is quoted
// verbatim, without escaping.
func Echo(prompt string) string {
	return `You said: "` + prompt + `"`
}

// Options configures the provider backends. An empty API key disables the
// corresponding backend (it answers with Echo).
type Options struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
	GeminiBaseURL string
	HTTPClient    *http.Client
}

// Dispatcher is the provider adapter layer.
type Dispatcher struct {
	openai *OpenAIProvider
	gemini *GeminiProvider
	logger logging.Logger
}

func NewDispatcher(o Options, l logging.Logger) *Dispatcher {
	client := o.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Dispatcher{
		openai: NewOpenAIProvider(o.OpenAIAPIKey, o.OpenAIBaseURL, client),
		gemini: NewGeminiProvider(o.GeminiAPIKey, o.GeminiBaseURL, client),
		logger: l.With("module", "providers"),
	}
}

// Invoke returns the model's answer to prompt, or a fallback string.
func (d *Dispatcher) Invoke(ctx context.Context, prompt string, modelTag string) string {
	kind := Resolve(modelTag)

	var (
		answer string
		err    error
	)

	switch kind {
	case KindOpenAI:
		if !d.openai.Configured() {
			return Echo(prompt)
		}
		answer, err = d.openai.Complete(ctx, modelTag, prompt)
	case KindGemini:
		if !d.gemini.Configured() {
			return Echo(prompt)
		}
		answer, err = d.gemini.Complete(ctx, modelTag, prompt)
	default:
		return Echo(prompt)
	}

	if err != nil {
		d.logger.Error(ctx, "provider request failed", "provider", kind.String(), "model_tag", modelTag, "error", err.Error())
		return Echo(prompt)
	}
	if answer == "" {
		return NoResponse
	}
	return answer
}
