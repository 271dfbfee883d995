package bus

import "context"

// InboundMessage represents a message received from a channel (Telegram, Discord, etc.)
type InboundMessage struct {
	Channel         string            `json:"channel"`
	SenderID        string            `json:"sender_id"`
	ChatID          int64             `json:"chat_id"`
	Content         string            `json:"content"`
	Image           []byte            `json:"-"`                          // attached image bytes, nil if none
	CallbackPayload string            `json:"callback_payload,omitempty"` // opaque button payload, e.g. "feature:toonify"
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// HasImage reports whether the message carries an attached image.
func (m InboundMessage) HasImage() bool { return len(m.Image) > 0 }

// OutboundMessage represents a message to be sent to a channel.
type OutboundMessage struct {
	Channel  string            `json:"channel"`
	ChatID   int64             `json:"chat_id"`
	Content  string            `json:"content"`
	PhotoURL string            `json:"photo_url,omitempty"` // remote image to send as a photo
	Buttons  []Button          `json:"buttons,omitempty"`   // inline keyboard, one button per row
	Metadata map[string]string `json:"metadata,omitempty"`  // channel-specific metadata
}

// Button is an inline keyboard button with an opaque callback payload.
type Button struct {
	Label   string `json:"label"`
	Payload string `json:"payload"`
}

// MessageRouter abstracts inbound/outbound message routing between channels
// and the dispatch runtime.
type MessageRouter interface {
	PublishInbound(msg InboundMessage)
	ConsumeInbound(ctx context.Context) (InboundMessage, bool)
	PublishOutbound(msg OutboundMessage)
	SubscribeOutbound(ctx context.Context) (OutboundMessage, bool)
}
