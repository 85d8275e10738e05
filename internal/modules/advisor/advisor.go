// Package advisor turns a portfolio summary prompt into investment guidance
// through the OpenAI chat completions API.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	systemPrompt = "You are a helpful financial investment advisor. Provide clear, concise, and prudent guidance based on the user's portfolio data."

	maxTokens   = 500
	temperature = 0.3

	requestTimeout = 30 * time.Second

	// simulatedContextLen is how much of the prompt is echoed back in a simulated response.
	simulatedContextLen = 200
)

// ErrNoAPIKey is reported when the advisor runs without credentials.
var ErrNoAPIKey = errors.New("OpenAI API key not configured")

// Config configures the advisor.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Response is the advice returned to the caller. When the API is unreachable
// or unconfigured, Simulated is set and Error explains why.
type Response struct {
	Advice    string `json:"advice"`
	Model     string `json:"model,omitempty"`
	Simulated bool   `json:"simulated"`
	Error     string `json:"error,omitempty"`
}

// Advisor answers portfolio questions.
type Advisor struct {
	client *oa.Client
	model  string
	log    zerolog.Logger
}

// New creates an advisor. Without an API key every answer is simulated.
func New(cfg Config, log zerolog.Logger) *Advisor {
	a := &Advisor{
		model: cfg.Model,
		log:   log.With().Str("component", "advisor").Logger(),
	}
	if a.model == "" {
		a.model = DefaultModel
	}
	if cfg.APIKey != "" {
		opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(1)}
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		client := oa.NewClient(opts...)
		a.client = &client
	}
	return a
}

// Enabled reports whether real completions will be requested.
func (a *Advisor) Enabled() bool {
	return a.client != nil
}

// Advise sends prompt to the model. It never fails: API errors produce a
// simulated response carrying the error text.
func (a *Advisor) Advise(ctx context.Context, prompt string) Response {
	if a.client == nil {
		return simulated(prompt, ErrNoAPIKey)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	start := time.Now()
	resp, err := a.client.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(a.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(prompt),
		},
		MaxTokens:   oa.Int(maxTokens),
		Temperature: oa.Float(temperature),
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("Chat completion failed, returning simulated advice")
		return simulated(prompt, err)
	}
	if len(resp.Choices) == 0 {
		err := errors.New("chat completion returned no choices")
		a.log.Warn().Err(err).Msg("Empty completion, returning simulated advice")
		return simulated(prompt, err)
	}

	a.log.Debug().
		Dur("duration", time.Since(start)).
		Int64("total_tokens", resp.Usage.TotalTokens).
		Msg("Advice generated")

	return Response{
		Advice: strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:  resp.Model,
	}
}

func simulated(prompt string, cause error) Response {
	excerpt := prompt
	if len(excerpt) > simulatedContextLen {
		excerpt = excerpt[:simulatedContextLen]
	}
	return Response{
		Advice: fmt.Sprintf(
			"This is a simulated advisory response. Key points from your portfolio were summarized, "+
				"and prudent, diversified investing, risk tolerance alignment, and periodic rebalancing "+
				"are recommended. Prompt context: %s...", excerpt),
		Simulated: true,
		Error:     cause.Error(),
	}
}
