package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/rewind"
	"github.com/aretw0/rewind/internal/logging"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/ports"
)

const defaultLockTTL = 30 * time.Second

// ErrPersistence marks failures of the store or the distributed locker, as
// opposed to engine rejections returned by the caller's operation.
var ErrPersistence = errors.New("session persistence failed")

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SnapshotStore

	mu    sync.Mutex            // Global lock for the map and the config
	locks map[string]*lockEntry // Map of active locks
	cfg   *domain.Config

	locker      ports.DistributedLocker // Optional distributed locker
	lockTTL     time.Duration
	machineOpts []rewind.Option
	logger      *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL bounds how long a distributed lock survives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMachineOptions are applied to every machine the Manager builds.
func WithMachineOptions(opts ...rewind.Option) Option {
	return func(m *Manager) {
		m.machineOpts = append(m.machineOpts, opts...)
	}
}

// NewManager creates a new Session Manager for cfg backed by store.
func NewManager(cfg *domain.Config, store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		cfg:     cfg,
		locks:   make(map[string]*lockEntry),
		lockTTL: defaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the configuration new machines are built from.
func (m *Manager) Config() *domain.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// SetConfig swaps the configuration. Sessions already stored are checked
// against it lazily, the next time they are touched.
func (m *Manager) SetConfig(cfg *domain.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Do loads the session (starting a fresh one if it does not exist), runs fn
// against a machine restored from it and saves the result.
//
// The snapshot is saved even when fn fails: a rejected Trigger still discards
// the redo branch. fn's error is returned alongside the saved snapshot.
func (m *Manager) Do(ctx context.Context, sessionID string, fn func(*rewind.Machine) error) (domain.Snapshot, error) {
	var snap domain.Snapshot
	var opErr error

	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		machine, err := m.open(ctx, sessionID)
		if err != nil {
			return err
		}

		opErr = fn(machine)

		snap = machine.Snapshot()
		if err := m.store.Save(ctx, sessionID, snap); err != nil {
			return fmt.Errorf("%w: save %q: %w", ErrPersistence, sessionID, err)
		}
		return nil
	})
	if err != nil {
		return domain.Snapshot{}, errors.Join(err, opErr)
	}
	return snap, opErr
}

// open builds a machine for the current config and restores the stored
// history into it. Histories that no longer fit the config are dropped.
func (m *Manager) open(ctx context.Context, sessionID string) (*rewind.Machine, error) {
	cfg := m.Config()
	opts := append([]rewind.Option{rewind.WithName(sessionID)}, m.machineOpts...)
	machine, err := rewind.New(cfg, opts...)
	if err != nil {
		return nil, err
	}

	stored, err := m.store.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		m.logger.Debug("starting new session", "session_id", sessionID, "state", machine.State())
		return machine, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %q: %w", ErrPersistence, sessionID, err)
	}

	if err := machine.Restore(stored); err != nil {
		m.logger.Warn("Stored history does not fit the configuration, restarting session",
			"session_id", sessionID,
			"err", err,
		)
	}
	return machine, nil
}

// Load retrieves an existing session snapshot from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, sessionID)
		return err
	})
	return snap, err
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("%w: acquire distributed lock: %w", ErrPersistence, err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
