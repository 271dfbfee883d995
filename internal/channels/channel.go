// Package channels provides the channel abstraction layer connecting
// external chat platforms (Telegram, Discord) to the dispatch runtime via
// the message bus.
package channels

import (
	"context"

	"github.com/nextlevelbuilder/musebot/internal/bus"
)

// Channel defines the interface that all channel implementations must satisfy.
type Channel interface {
	// Name returns the channel identifier (e.g., "telegram", "discord").
	Name() string

	// Start begins listening for messages. Non-blocking after setup.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop(ctx context.Context) error

	// Send delivers an outbound message to the channel.
	Send(ctx context.Context, msg bus.OutboundMessage) error

	// IsRunning returns whether the channel is actively processing messages.
	IsRunning() bool
}

// BaseChannel provides shared functionality for channel implementations.
type BaseChannel struct {
	name    string
	bus     *bus.MessageBus
	running bool
	allowed map[int64]bool
}

// NewBaseChannel creates a BaseChannel with an optional sender allowlist.
// An empty allowlist admits everyone.
func NewBaseChannel(name string, msgBus *bus.MessageBus, allowFrom []int64) *BaseChannel {
	allowed := make(map[int64]bool, len(allowFrom))
	for _, id := range allowFrom {
		allowed[id] = true
	}
	return &BaseChannel{name: name, bus: msgBus, allowed: allowed}
}

// Name returns the channel name.
func (c *BaseChannel) Name() string { return c.name }

// Bus returns the message bus.
func (c *BaseChannel) Bus() *bus.MessageBus { return c.bus }

// IsRunning returns whether the channel is running.
func (c *BaseChannel) IsRunning() bool { return c.running }

// SetRunning updates the running state.
func (c *BaseChannel) SetRunning(running bool) { c.running = running }

// IsAllowed checks the sender allowlist; an empty list admits everyone.
func (c *BaseChannel) IsAllowed(senderID int64) bool {
	if len(c.allowed) == 0 {
		return true
	}
	return c.allowed[senderID]
}

// Truncate shortens s to at most maxLen runes for log previews.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}
