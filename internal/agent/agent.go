package agent

import (
	"context"
	"errors"
	"fmt"

	"example.com/strategist/internal/config"
	"example.com/strategist/internal/domain"
	"example.com/strategist/internal/logger"
)

// Strategist generates a social-media strategy for a brand brief.
// Implementations are safe for concurrent use.
type Strategist interface {
	GenerateStrategy(ctx context.Context, in domain.StrategyInput) (domain.StrategyOutput, error)
}

// Error reports a failed or timed-out call to a strategy provider.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string { return fmt.Sprintf("agent %s: %v", e.Provider, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// IsTimeout reports whether err is an agent call that ran out of time.
func IsTimeout(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && errors.Is(ae.Err, context.DeadlineExceeded)
}

// New returns the Strategist selected by cfg.Provider.
func New(cfg config.Agent, log *logger.Logger) (Strategist, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMock(cfg.MockDelay), nil
	case "openai":
		return NewOpenAI(cfg, log)
	case "anthropic":
		return NewAnthropic(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported agent provider: %s", cfg.Provider)
	}
}
