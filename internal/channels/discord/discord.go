// Package discord implements the optional Discord channel. It carries the
// text features only; photo features stay Telegram-side.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/musebot/internal/bus"
	"github.com/nextlevelbuilder/musebot/internal/channels"
	"github.com/nextlevelbuilder/musebot/internal/config"
	"github.com/nextlevelbuilder/musebot/internal/intent"
)

// Channel connects to Discord via the Bot API using gateway events.
type Channel struct {
	*channels.BaseChannel
	session   *discordgo.Session
	config    config.DiscordConfig
	flood     *channels.FloodLimiter
	botUserID string // populated on start
}

// New creates a Discord channel from config.
func New(cfg config.DiscordConfig, msgBus *bus.MessageBus) (*Channel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &Channel{
		BaseChannel: channels.NewBaseChannel("discord", msgBus, nil),
		session:     session,
		config:      cfg,
		flood:       channels.NewFloodLimiter(channels.DefaultFloodWindow, channels.DefaultFloodMaxHits),
	}, nil
}

// Start opens the Discord gateway connection and begins receiving events.
func (c *Channel) Start(_ context.Context) error {
	slog.Info("starting discord bot")

	c.session.AddHandler(c.handleMessage)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	user, err := c.session.User("@me")
	if err != nil {
		c.session.Close()
		return fmt.Errorf("fetch discord bot identity: %w", err)
	}
	c.botUserID = user.ID

	c.SetRunning(true)
	slog.Info("discord bot connected", "username", user.Username, "id", user.ID)

	return nil
}

// Stop closes the Discord gateway connection.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping discord bot")
	c.SetRunning(false)
	return c.session.Close()
}

// Send delivers an outbound message to a Discord channel. Image results are
// sent as a link; Discord unfurls it into an embed by itself.
func (c *Channel) Send(_ context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord bot not running")
	}

	channelID := strconv.FormatInt(msg.ChatID, 10)

	content := msg.Content
	if msg.PhotoURL != "" {
		if content != "" {
			content += "\n"
		}
		content += msg.PhotoURL
	}
	if content == "" {
		return nil
	}

	return c.sendChunked(channelID, content)
}

// sendChunked sends a message, splitting into multiple messages if over 2000 chars.
func (c *Channel) sendChunked(channelID, content string) error {
	const maxLen = 2000

	for len(content) > 0 {
		chunk := content
		if len(chunk) > maxLen {
			// Try to break at a newline
			cutAt := maxLen
			if idx := lastIndexByte(content[:maxLen], '\n'); idx > maxLen/2 {
				cutAt = idx + 1
			}
			chunk = content[:cutAt]
			content = content[cutAt:]
		} else {
			content = ""
		}

		if _, err := c.session.ChannelMessageSend(channelID, chunk); err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
	}

	return nil
}

// handleMessage processes incoming Discord messages.
func (c *Channel) handleMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == c.botUserID || m.Author.Bot {
		return
	}

	senderID, err := strconv.ParseInt(m.Author.ID, 10, 64)
	if err != nil {
		slog.Warn("discord sender id is not numeric", "id", m.Author.ID)
		return
	}
	chatID, err := strconv.ParseInt(m.ChannelID, 10, 64)
	if err != nil {
		slog.Warn("discord channel id is not numeric", "id", m.ChannelID)
		return
	}

	if !c.flood.Allow(senderID) {
		slog.Debug("discord message dropped by flood limiter", "user_id", senderID)
		return
	}

	isDM := m.GuildID == ""

	slog.Debug("discord message received",
		"sender_id", senderID,
		"channel_id", m.ChannelID,
		"is_dm", isDM,
		"preview", channels.Truncate(m.Content, 50),
	)

	kind, ok := intent.Route(m.Content, false)
	if !ok || kind.NeedsImage() {
		// Guild chatter that is not for us stays untouched. In DMs every
		// message is addressed to the bot, so explain ourselves.
		if isDM {
			hint := "Try: \"draw a sunset\", \"summarize <text>\", or \"write a story about...\""
			if _, err := c.session.ChannelMessageSend(m.ChannelID, hint); err != nil {
				slog.Warn("discord hint send failed", "error", err)
			}
		}
		return
	}

	c.Bus().PublishInbound(bus.InboundMessage{
		Channel:         c.Name(),
		SenderID:        strconv.FormatInt(senderID, 10),
		ChatID:          chatID,
		Content:         m.Content,
		CallbackPayload: "feature:" + string(kind),
		Metadata: map[string]string{
			"username":   m.Author.Username,
			"guild_id":   m.GuildID,
			"message_id": m.ID,
		},
	})
}

// lastIndexByte returns the last index of byte c in s, or -1.
func lastIndexByte(s string, c byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == c {
			return i
		}
	}
	return -1
}
