package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/rewind"
	"github.com/aretw0/rewind/pkg/adapters/memory"
	"github.com/aretw0/rewind/pkg/domain"
)

func TestManager_LockLifecycle(t *testing.T) {
	cfg := &domain.Config{
		Initial: "idle",
		States:  domain.NewStateTable(map[string]domain.StateDef{"idle": {}}),
	}
	mgr := NewManager(cfg, memory.NewStore())
	ctx := context.Background()
	count := 1000

	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		_, _ = mgr.Do(ctx, sid, func(*rewind.Machine) error { return nil })
		_ = mgr.Delete(ctx, sid)
	}

	lockCount := len(mgr.locks)
	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
