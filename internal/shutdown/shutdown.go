// Package shutdown turns interrupt signals into context cancellation and
// releases registered resources once the command has returned.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"todoed/internal/utils"
)

// CleanupFunc is a function that performs cleanup on shutdown.
// It receives a context that will be cancelled when the shutdown times out.
type CleanupFunc func(ctx context.Context) error

// cleanupEntry holds a registered cleanup function with its name.
type cleanupEntry struct {
	name string
	fn   CleanupFunc
}

// Manager handles graceful shutdown coordination.
type Manager struct {
	mu       sync.Mutex
	cleanups []cleanupEntry
	shutdown bool
	signal   os.Signal
	ctx      context.Context
	cancel   context.CancelFunc
	once     sync.Once
	waited   sync.Once
}

// NewManager creates a new shutdown manager.
func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{ctx: ctx, cancel: cancel}
}

// NotifyOnSignals shuts down when one of sigs arrives. The returned
// function stops listening.
func (m *Manager) NotifyOnSignals(sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-ch:
			utils.Debugf("received %v, shutting down", sig)
			m.mu.Lock()
			m.signal = sig
			m.mu.Unlock()
			m.Shutdown()
		case <-done:
		}
	}()

	var stopOnce sync.Once
	return func() {
		stopOnce.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

// RegisterCleanup registers a cleanup function to be called by Wait.
// Cleanup functions are called in LIFO order (last registered, first called).
func (m *Manager) RegisterCleanup(name string, fn CleanupFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, cleanupEntry{name: name, fn: fn})
}

// Shutdown cancels the context. Safe to call multiple times.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		m.mu.Lock()
		m.shutdown = true
		m.mu.Unlock()
		m.cancel()
	})
}

// Wait runs the registered cleanups once, in LIFO order. A failing cleanup
// is logged and the rest still run. It returns ctx's error if the cleanups
// do not finish in time.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.waited.Do(func() {
			m.mu.Lock()
			cleanups := make([]cleanupEntry, len(m.cleanups))
			copy(cleanups, m.cleanups)
			m.mu.Unlock()

			for i := len(cleanups) - 1; i >= 0; i-- {
				if err := cleanups[i].fn(ctx); err != nil {
					utils.Warnf("cleanup %s: %v", cleanups[i].name, err)
				}
			}
		})
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsShutdown returns true if shutdown has been initiated.
func (m *Manager) IsShutdown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown
}

// Signal returns the signal that caused the shutdown, or nil.
func (m *Manager) Signal() os.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signal
}

// Context returns a context that is cancelled when shutdown is initiated.
func (m *Manager) Context() context.Context {
	return m.ctx
}
