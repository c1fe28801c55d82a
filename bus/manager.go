package bus

import (
	"context"
	"log/slog"
	"sync"

	"chat-relay/domain/event"
)

// Manager guards the event bus behind the global enable flag and hands
// pulled aggregate events to it. When the broker is disabled by
// configuration, start, stop, registration and publication all become
// no-ops so the rest of the system needs no special casing.
type Manager struct {
	bus EventBus
	cfg Config
	log *slog.Logger

	mu      sync.Mutex
	started bool
}

func NewManager(bus EventBus, cfg Config, log *slog.Logger) *Manager {
	return &Manager{bus: bus, cfg: cfg, log: log}
}

func (m *Manager) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		m.log.Info("Event bus disabled by configuration")
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}
	if err := m.bus.Start(ctx); err != nil {
		return err
	}
	m.started = true
	return nil
}

func (m *Manager) Stop(ctx context.Context) error {
	if !m.cfg.Enabled {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	if err := m.bus.Stop(ctx); err != nil {
		return err
	}
	m.started = false
	return nil
}

func (m *Manager) Register(kind string, listener Listener) {
	if !m.cfg.Enabled {
		return
	}
	m.bus.Register(kind, listener)
}

// PublishEvents forwards events in order, starting the bus first if
// nothing did so yet. An empty slice is a no-op. Retrying is the
// caller's concern.
func (m *Manager) PublishEvents(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}
	if !m.cfg.Enabled {
		m.log.Debug("Event bus disabled, events not published", "count", len(events))
		return nil
	}
	if err := m.Start(ctx); err != nil {
		return err
	}
	return m.bus.Publish(ctx, events)
}
