package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/rewind/pkg/domain"
)

// LogHooks returns lifecycle hooks that log every movement at info level and
// every rejection at warn level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	move := func(ctx context.Context, e *domain.TransitionEvent) {
		logger.InfoContext(ctx, string(e.Type),
			"machine", e.Machine,
			"from", e.From,
			"to", e.To,
			"event", e.Event,
			"position", e.Position,
		)
	}
	return domain.LifecycleHooks{
		OnStateChange: move,
		OnUndo:        move,
		OnRedo:        move,
		OnReset:       move,
		OnRejected: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.WarnContext(ctx, "transition rejected",
				"machine", e.Machine,
				"state", e.From,
				"event", e.Event,
				"kind", e.Kind,
				"err", e.Err,
			)
		},
	}
}
