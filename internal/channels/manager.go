package channels

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nextlevelbuilder/musebot/internal/bus"
)

// Manager owns the registered channels and routes outbound messages from the
// bus to the channel that originated the conversation.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]Channel
	bus      *bus.MessageBus
	wg       sync.WaitGroup
}

// NewManager creates a channel manager bound to the given bus.
func NewManager(msgBus *bus.MessageBus) *Manager {
	return &Manager{
		channels: make(map[string]Channel),
		bus:      msgBus,
	}
}

// Register adds a channel. Registering twice under the same name is an error.
func (m *Manager) Register(ch Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := ch.Name()
	if _, exists := m.channels[name]; exists {
		return fmt.Errorf("channel %q already registered", name)
	}
	m.channels[name] = ch
	return nil
}

// Get returns a registered channel by name.
func (m *Manager) Get(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// Names returns the registered channel names.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return names
}

// StartAll starts every registered channel and the outbound delivery loop.
// A channel that fails to start is logged and skipped so one bad token does
// not take down the rest.
func (m *Manager) StartAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			slog.Error("Failed to start channel", "channel", name, "error", err)
			continue
		}
		slog.Info("Channel started", "channel", name)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.deliverOutbound(ctx)
	}()
}

// StopAll stops every running channel and waits for the delivery loop.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	for name, ch := range m.channels {
		if !ch.IsRunning() {
			continue
		}
		if err := ch.Stop(ctx); err != nil {
			slog.Error("Failed to stop channel", "channel", name, "error", err)
		}
	}
	m.mu.RUnlock()
	m.wg.Wait()
}

// deliverOutbound consumes outbound messages from the bus and hands each to
// the channel named in the message.
func (m *Manager) deliverOutbound(ctx context.Context) {
	for {
		msg, ok := m.bus.SubscribeOutbound(ctx)
		if !ok {
			return
		}
		ch, found := m.Get(msg.Channel)
		if !found {
			slog.Warn("Outbound message for unknown channel", "channel", msg.Channel)
			continue
		}
		if err := ch.Send(ctx, msg); err != nil {
			slog.Error("Failed to deliver outbound message",
				"channel", msg.Channel, "chat_id", msg.ChatID, "error", err)
		}
	}
}
