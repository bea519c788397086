package domain_test

import (
	"context"
	"testing"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestComposeHooks(t *testing.T) {
	var calls []string
	first := domain.LifecycleHooks{
		OnUndo: func(ctx context.Context, e *domain.TransitionEvent) { calls = append(calls, "first:"+e.To) },
	}
	second := domain.LifecycleHooks{
		OnUndo:     func(ctx context.Context, e *domain.TransitionEvent) { calls = append(calls, "second:"+e.To) },
		OnRejected: func(ctx context.Context, e *domain.TransitionEvent) { calls = append(calls, "rejected") },
	}

	hooks := domain.ComposeHooks(first, second)
	hooks.Dispatch(context.Background(), &domain.TransitionEvent{Type: domain.EventUndo, To: "idle"})
	hooks.Dispatch(context.Background(), &domain.TransitionEvent{Type: domain.EventRedo})
	hooks.Dispatch(context.Background(), &domain.TransitionEvent{Type: domain.EventRejected})

	assert.Equal(t, []string{"first:idle", "second:idle", "rejected"}, calls)
}
