// Package telegram implements the Telegram channel using the Bot API with
// long polling. It routes user messages into the bus, delivers feature
// results back, and exposes the chat moderation API to the moderation
// service.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/musebot/internal/bus"
	"github.com/nextlevelbuilder/musebot/internal/channels"
	"github.com/nextlevelbuilder/musebot/internal/config"
	"github.com/nextlevelbuilder/musebot/internal/features"
	"github.com/nextlevelbuilder/musebot/internal/moderation"
	"github.com/nextlevelbuilder/musebot/internal/quiz"
	"github.com/nextlevelbuilder/musebot/internal/store"
)

// Channel connects to Telegram via the Bot API using long polling.
type Channel struct {
	*channels.BaseChannel
	bot        *telego.Bot
	config     config.TelegramConfig
	flood      *channels.FloodLimiter
	members    store.MemberStore
	moderation *moderation.Service
	quiz       *quiz.Broadcaster
	recent     func(int64) []features.Kind

	pendingKinds  sync.Map // senderID int64 → features.Kind awaiting a photo
	pendingTexts  sync.Map // senderID int64 → features.Kind awaiting a prompt
	pendingPhotos sync.Map // senderID int64 → []byte awaiting a feature choice

	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New creates a Telegram channel from config. members is optional (nil
// disables join logging).
func New(cfg config.TelegramConfig, msgBus *bus.MessageBus, members store.MemberStore) (*Channel, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Channel{
		BaseChannel: channels.NewBaseChannel("telegram", msgBus, cfg.AllowFrom),
		bot:         bot,
		config:      cfg,
		flood:       channels.NewFloodLimiter(channels.DefaultFloodWindow, cfg.FloodLimit),
		members:     members,
	}, nil
}

// SetModeration attaches the moderation service. Called after construction
// because the service needs the channel as its ChatAdmin.
func (c *Channel) SetModeration(svc *moderation.Service) { c.moderation = svc }

// SetQuiz attaches the quiz broadcaster for answer callbacks.
func (c *Channel) SetQuiz(b *quiz.Broadcaster) { c.quiz = b }

// SetRecentFeatures attaches a lookup for a user's recently used feature
// kinds, used to order the /menu keyboard.
func (c *Channel) SetRecentFeatures(fn func(int64) []features.Kind) { c.recent = fn }

// Start begins long polling for Telegram updates.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting telegram bot (polling mode)")

	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout: 30,
		AllowedUpdates: []string{
			"message",
			"callback_query",
		},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	c.SetRunning(true)
	slog.Info("telegram bot connected", "username", c.bot.Username())

	// Register bot menu commands with retry.
	go func() {
		commands := DefaultMenuCommands()
		for attempt := 1; attempt <= 3; attempt++ {
			if err := c.SyncMenuCommands(pollCtx, commands); err != nil {
				slog.Warn("failed to sync telegram menu commands", "error", err, "attempt", attempt)
				if attempt < 3 {
					select {
					case <-pollCtx.Done():
						return
					case <-time.After(time.Duration(attempt*5) * time.Second):
					}
				}
			} else {
				slog.Info("telegram menu commands synced")
				return
			}
		}
	}()

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("telegram updates channel closed")
					return
				}
				if update.Message != nil {
					c.handleMessage(pollCtx, update.Message)
				} else if update.CallbackQuery != nil {
					c.handleCallbackQuery(pollCtx, update.CallbackQuery)
				}
			}
		}
	}()

	return nil
}

// Stop shuts down the Telegram bot by cancelling the long polling context
// and waiting for the polling goroutine to exit.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping telegram bot")
	c.SetRunning(false)

	if c.pollCancel != nil {
		c.pollCancel()
	}

	// Wait for the polling goroutine to fully exit so that
	// Telegram releases the getUpdates lock before a new instance starts.
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
			slog.Info("telegram bot stopped")
		case <-time.After(10 * time.Second):
			slog.Warn("telegram polling goroutine did not exit within timeout")
		}
	}

	return nil
}

// Send delivers an outbound message. Messages with a PhotoURL are sent as
// photos with the text as caption; Buttons become an inline keyboard with
// one button per row.
func (c *Channel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	chatID := tu.ID(msg.ChatID)

	if msg.PhotoURL != "" {
		photo := tu.Photo(chatID, tu.FileFromURL(msg.PhotoURL))
		if msg.Content != "" {
			photo = photo.WithCaption(msg.Content)
		}
		if _, err := c.bot.SendPhoto(ctx, photo); err != nil {
			return fmt.Errorf("send photo: %w", err)
		}
		return nil
	}

	out := tu.Message(chatID, msg.Content)
	if len(msg.Buttons) > 0 {
		out = out.WithReplyMarkup(buildKeyboard(msg.Buttons))
	}
	if _, err := c.bot.SendMessage(ctx, out); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// buildKeyboard turns bus buttons into an inline keyboard, one button per row.
func buildKeyboard(buttons []bus.Button) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(b.Label).WithCallbackData(b.Payload),
		))
	}
	return tu.InlineKeyboard(rows...)
}

// --- moderation.ChatAdmin ---

// RestrictMember toggles a member's ability to send messages.
func (c *Channel) RestrictMember(ctx context.Context, chatID, userID int64, canSend bool) error {
	return c.bot.RestrictChatMember(ctx, &telego.RestrictChatMemberParams{
		ChatID: tu.ID(chatID),
		UserID: userID,
		Permissions: telego.ChatPermissions{
			CanSendMessages:      telego.ToPtr(canSend),
			CanSendPhotos:        telego.ToPtr(canSend),
			CanSendOtherMessages: telego.ToPtr(canSend),
		},
	})
}

// BanMember bans a member from the chat.
func (c *Channel) BanMember(ctx context.Context, chatID, userID int64) error {
	return c.bot.BanChatMember(ctx, &telego.BanChatMemberParams{
		ChatID: tu.ID(chatID),
		UserID: userID,
	})
}

// UnbanMember lifts a ban.
func (c *Channel) UnbanMember(ctx context.Context, chatID, userID int64) error {
	return c.bot.UnbanChatMember(ctx, &telego.UnbanChatMemberParams{
		ChatID:       tu.ID(chatID),
		UserID:       userID,
		OnlyIfBanned: true,
	})
}

// PromoteMember grants or revokes basic admin rights.
func (c *Channel) PromoteMember(ctx context.Context, chatID, userID int64, admin bool) error {
	return c.bot.PromoteChatMember(ctx, &telego.PromoteChatMemberParams{
		ChatID:             tu.ID(chatID),
		UserID:             userID,
		CanDeleteMessages:  telego.ToPtr(admin),
		CanRestrictMembers: telego.ToPtr(admin),
		CanInviteUsers:     telego.ToPtr(admin),
		CanPinMessages:     telego.ToPtr(admin),
	})
}

// IsChatAdmin reports whether the user is an admin or the owner of the chat.
func (c *Channel) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := c.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(chatID),
		UserID: userID,
	})
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}
	status := member.MemberStatus()
	return status == telego.MemberStatusCreator || status == telego.MemberStatusAdministrator, nil
}
