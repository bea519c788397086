package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/rewind/internal/config"
	"github.com/aretw0/rewind/pkg/adapters/file"
	"github.com/aretw0/rewind/pkg/adapters/memory"
	"github.com/aretw0/rewind/pkg/adapters/redis"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		b, err := OpenBackend(ctx, config.Settings{Store: config.StoreMemory})
		require.NoError(t, err)
		assert.IsType(t, &memory.Store{}, b.Store)
		assert.Nil(t, b.Locker)
		assert.NoError(t, b.Close())
	})

	t.Run("file", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "sessions")
		b, err := OpenBackend(ctx, config.Settings{Store: config.StoreFile, SessionDir: dir})
		require.NoError(t, err)
		assert.IsType(t, &file.Store{}, b.Store)

		require.NoError(t, b.Store.Save(ctx, "s", domain.NewSnapshot("idle")))
		assert.FileExists(t, filepath.Join(dir, "s.json"))
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		b, err := OpenBackend(ctx, config.Settings{
			Store:       config.StoreRedis,
			RedisAddr:   mr.Addr(),
			RedisPrefix: "cli:",
		})
		require.NoError(t, err)
		defer b.Close()

		assert.IsType(t, &redis.Store{}, b.Store)
		assert.IsType(t, &redis.Locker{}, b.Locker)

		require.NoError(t, b.Store.Save(ctx, "s", domain.NewSnapshot("idle")))
		assert.True(t, mr.Exists("cli:s"))
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		_, err = OpenBackend(ctx, config.Settings{Store: config.StoreRedis, RedisAddr: addr})
		assert.ErrorContains(t, err, "failed to connect to redis")
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := OpenBackend(ctx, config.Settings{Store: "tape"})
		assert.Error(t, err)
	})
}
