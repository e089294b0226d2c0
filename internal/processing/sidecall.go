package processing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	entityports "github.com/Apurer/go-entity-processors/internal/entitystore/ports"
	"github.com/Apurer/go-entity-processors/internal/platform/retry"
)

// SideCalls runs calls against related entities under an explicit failure policy.
type SideCalls struct {
	logger  *slog.Logger
	retrier *retry.Retrier
}

// NewSideCalls builds the policy runner. A nil logger discards best-effort failures.
func NewSideCalls(logger *slog.Logger, cfg retry.Config) *SideCalls {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg.ShouldRetry = isTransient
	return &SideCalls{logger: logger, retrier: retry.New(cfg)}
}

// BestEffort runs fn once. A failure is logged and swallowed.
func (s *SideCalls) BestEffort(ctx context.Context, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "best-effort side call failed",
			slog.String("side_call", name), slog.String("error", err.Error()))
	}
}

// Required retries transient failures and returns the final failure wrapped in ErrSideCallFailed.
func (s *SideCalls) Required(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := s.retrier.ExecuteWithContext(ctx, fn); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "required side call failed",
			slog.String("side_call", name), slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s: %w", ErrSideCallFailed, name, err)
	}
	return nil
}

func isTransient(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, entityports.ErrNotFound),
		errors.Is(err, entityports.ErrAmbiguous),
		errors.Is(err, entityports.ErrInvalidTransition):
		return false
	case errors.Is(err, ErrPreconditionFailed):
		return false
	}
	return true
}
