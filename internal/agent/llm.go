package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"

	"example.com/strategist/internal/config"
	"example.com/strategist/internal/domain"
	"example.com/strategist/internal/logger"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-sonnet-4-20250514"
)

// completion sends one system and user prompt and returns the raw reply.
type completion func(ctx context.Context, system, user string) (string, error)

// LLM is a Strategist backed by a chat model. Replies are decoded and
// validated like any untrusted payload.
type LLM struct {
	provider string
	model    string
	complete completion
	log      *logger.Logger
}

func (l *LLM) Provider() string { return l.provider }

func (l *LLM) GenerateStrategy(ctx context.Context, in domain.StrategyInput) (domain.StrategyOutput, error) {
	start := time.Now()
	text, err := l.complete(ctx, systemPrompt, userPrompt(in))
	if err != nil {
		if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
			err = fmt.Errorf("%w: %v", cerr, err)
		}
		l.log.Warn("agent call failed", "provider", l.provider, "model", l.model, "error", err)
		return domain.StrategyOutput{}, &Error{Provider: l.provider, Err: err}
	}

	out, err := domain.DecodeStrategyOutput([]byte(extractJSON(text)))
	if err != nil {
		l.log.Warn("agent returned invalid strategy", "provider", l.provider, "model", l.model, "error", err)
		if _, ok := domain.AsValidationError(err); ok {
			return domain.StrategyOutput{}, fmt.Errorf("agent %s: %w", l.provider, err)
		}
		return domain.StrategyOutput{}, &Error{Provider: l.provider, Err: err}
	}
	l.log.Info("strategy generated",
		"provider", l.provider,
		"model", l.model,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// NewOpenAI uses the chat completions API in JSON mode. BaseURL allows any
// OpenAI-compatible endpoint.
func NewOpenAI(cfg config.Agent, log *logger.Logger) (*LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(oc)
	model := orDefault(cfg.Model, defaultOpenAIModel)
	maxTokens := cfg.MaxTokens

	complete := func(ctx context.Context, system, user string) (string, error) {
		resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			MaxTokens: maxTokens,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("empty response")
		}
		return resp.Choices[0].Message.Content, nil
	}
	return &LLM{provider: "openai", model: model, complete: complete, log: log}, nil
}

// NewAnthropic uses the Messages API.
func NewAnthropic(cfg config.Agent, log *logger.Logger) (*LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(cfg.APIKey, opts...)
	model := orDefault(cfg.Model, defaultAnthropicModel)
	maxTokens := cfg.MaxTokens

	complete := func(ctx context.Context, system, user string) (string, error) {
		resp, err := client.CreateMessages(ctx, anthropic.MessagesRequest{
			Model:     anthropic.Model(model),
			System:    system,
			Messages:  []anthropic.Message{anthropic.NewUserTextMessage(user)},
			MaxTokens: maxTokens,
		})
		if err != nil {
			return "", err
		}
		var text string
		for _, c := range resp.Content {
			if c.Type == anthropic.MessagesContentTypeText {
				text += c.GetText()
			}
		}
		if text == "" {
			return "", errors.New("empty response")
		}
		return text, nil
	}
	return &LLM{provider: "anthropic", model: model, complete: complete, log: log}, nil
}
