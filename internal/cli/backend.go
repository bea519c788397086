package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/rewind/internal/config"
	"github.com/aretw0/rewind/pkg/adapters/file"
	"github.com/aretw0/rewind/pkg/adapters/memory"
	"github.com/aretw0/rewind/pkg/adapters/redis"
	"github.com/aretw0/rewind/pkg/ports"
)

// Backend bundles the snapshot store selected by the settings with the
// distributed locker that goes with it, if any.
type Backend struct {
	Store  ports.SnapshotStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases connections held by the backend.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend creates the store named by s.Store. Redis connectivity is
// checked up front so misconfiguration fails fast.
func OpenBackend(ctx context.Context, s config.Settings) (*Backend, error) {
	switch s.Store {
	case config.StoreMemory:
		return &Backend{Store: memory.NewStore()}, nil

	case config.StoreFile:
		return &Backend{Store: file.New(s.SessionDir)}, nil

	case config.StoreRedis:
		store := redis.New(s.RedisAddr, s.RedisPassword, s.RedisDB,
			redis.WithPrefix(s.RedisPrefix),
			redis.WithTTL(s.SessionTTL),
		)
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", s.RedisAddr, err)
		}
		return &Backend{
			Store:  store,
			Locker: redis.NewLocker(store.Client(), s.RedisPrefix),
			close:  store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store %q", s.Store)
	}
}
