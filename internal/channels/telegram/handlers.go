package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/musebot/internal/bus"
	"github.com/nextlevelbuilder/musebot/internal/channels"
	"github.com/nextlevelbuilder/musebot/internal/features"
	"github.com/nextlevelbuilder/musebot/internal/intent"
	"github.com/nextlevelbuilder/musebot/internal/quiz"
	"github.com/nextlevelbuilder/musebot/internal/store"
)

// handleMessage processes an incoming Telegram message.
func (c *Channel) handleMessage(ctx context.Context, message *telego.Message) {
	if len(message.NewChatMembers) > 0 {
		c.welcomeNewMembers(ctx, message)
		return
	}

	user := message.From
	if user == nil {
		return
	}

	if !c.IsAllowed(user.ID) {
		slog.Debug("telegram message rejected by allowlist", "user_id", user.ID)
		return
	}

	if !c.flood.Allow(user.ID) {
		slog.Debug("telegram message dropped by flood limiter", "user_id", user.ID)
		return
	}

	text := message.Text
	if text == "" {
		text = message.Caption
	}

	slog.Debug("telegram message received",
		"chat_id", message.Chat.ID,
		"user_id", user.ID,
		"has_photo", len(message.Photo) > 0,
		"text_preview", channels.Truncate(text, 60),
	)

	if handled := c.handleBotCommand(ctx, message, text); handled {
		return
	}

	var image []byte
	if len(message.Photo) > 0 {
		var err error
		image, err = c.downloadPhoto(ctx, message.Photo)
		if err != nil {
			slog.Warn("telegram photo download failed", "chat_id", message.Chat.ID, "error", err)
			c.reply(ctx, message.Chat.ID, "Could not fetch that photo, please try again.")
			return
		}
	}

	// A photo or prompt arriving for a feature that asked for one completes
	// the pending request without any intent routing.
	if image != nil {
		if pending, ok := c.pendingKinds.LoadAndDelete(user.ID); ok {
			c.publishRequest(message, pending.(features.Kind), text, image)
			return
		}
	} else if text != "" {
		if pending, ok := c.pendingTexts.LoadAndDelete(user.ID); ok {
			c.publishRequest(message, pending.(features.Kind), text, nil)
			return
		}
	}

	kind, ok := intent.Route(text, image != nil)
	if !ok {
		if image != nil {
			// A bare photo: hold it and let the user pick a feature.
			c.pendingPhotos.Store(user.ID, image)
			c.sendFeatureMenu(ctx, message.Chat.ID, user.ID, true)
			return
		}
		c.reply(ctx, message.Chat.ID, "I didn't catch that. Try /menu to see what I can do.")
		return
	}

	if kind.NeedsImage() && image == nil {
		c.pendingKinds.Store(user.ID, kind)
		c.reply(ctx, message.Chat.ID, fmt.Sprintf("Send me a photo for %s.", kind.Title()))
		return
	}

	c.publishRequest(message, kind, text, image)
}

// handleCallbackQuery dispatches inline keyboard presses. Quiz answers are
// resolved in place; feature picks become inbound bus messages.
func (c *Channel) handleCallbackQuery(ctx context.Context, query *telego.CallbackQuery) {
	defer func() {
		if err := c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
			CallbackQueryID: query.ID,
		}); err != nil {
			slog.Debug("answer callback query failed", "error", err)
		}
	}()

	if query.Message == nil {
		return
	}
	chatID := query.Message.GetChat().ID
	userID := query.From.ID
	payload := query.Data

	if quiz.IsAnswerPayload(payload) {
		if c.quiz == nil {
			return
		}
		reply, err := c.quiz.HandleAnswer(ctx, userID, query.From.Username, payload)
		if err != nil {
			slog.Warn("quiz answer failed", "user_id", userID, "error", err)
			return
		}
		// Replace the question post with the outcome and running tally.
		if _, err := c.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
			ChatID:    tu.ID(chatID),
			MessageID: query.Message.GetMessageID(),
			Text:      reply,
		}); err != nil {
			slog.Debug("quiz message edit failed, sending reply instead", "error", err)
			c.reply(ctx, chatID, reply)
		}
		return
	}

	const featurePrefix = "feature:"
	if !strings.HasPrefix(payload, featurePrefix) {
		slog.Debug("unknown callback payload", "payload", channels.Truncate(payload, 30))
		return
	}

	kind := features.Kind(strings.TrimPrefix(payload, featurePrefix))
	if !kind.Valid() {
		slog.Warn("callback names unknown feature", "payload", payload)
		return
	}

	var image []byte
	if held, ok := c.pendingPhotos.LoadAndDelete(userID); ok {
		image = held.([]byte)
	}

	if kind.NeedsImage() && image == nil {
		c.pendingKinds.Store(userID, kind)
		c.reply(ctx, chatID, fmt.Sprintf("Send me a photo for %s.", kind.Title()))
		return
	}
	if !kind.NeedsImage() {
		// Text features started from the menu need the user's prompt next.
		c.pendingTexts.Store(userID, kind)
		c.reply(ctx, chatID, fmt.Sprintf("What should %s work on? Send me the text.", kind.Title()))
		return
	}

	c.Bus().PublishInbound(bus.InboundMessage{
		Channel:         c.Name(),
		SenderID:        fmt.Sprintf("%d", userID),
		ChatID:          chatID,
		CallbackPayload: payload,
		Image:           image,
	})
}

// publishRequest forwards a resolved feature request onto the bus.
func (c *Channel) publishRequest(message *telego.Message, kind features.Kind, text string, image []byte) {
	user := message.From
	c.Bus().PublishInbound(bus.InboundMessage{
		Channel:         c.Name(),
		SenderID:        fmt.Sprintf("%d", user.ID),
		ChatID:          message.Chat.ID,
		Content:         text,
		Image:           image,
		CallbackPayload: "feature:" + string(kind),
		Metadata: map[string]string{
			"username":   user.Username,
			"message_id": fmt.Sprintf("%d", message.MessageID),
		},
	})
}

// welcomeNewMembers greets members joining a group and records the join.
func (c *Channel) welcomeNewMembers(ctx context.Context, message *telego.Message) {
	for _, member := range message.NewChatMembers {
		if member.IsBot {
			continue
		}

		name := strings.TrimSpace(member.FirstName + " " + member.LastName)
		c.reply(ctx, message.Chat.ID,
			fmt.Sprintf("Welcome, %s! Send /menu to see what I can do.", name))

		if c.members == nil {
			continue
		}
		rec := store.JoinRecord{
			UserID:   member.ID,
			Username: member.Username,
			FullName: name,
			ChatID:   message.Chat.ID,
			At:       time.Now(),
		}
		if err := c.members.LogJoin(ctx, rec); err != nil {
			slog.Warn("failed to log member join", "user_id", member.ID, "error", err)
		}
	}
}

// reply sends a plain text message, logging failures.
func (c *Channel) reply(ctx context.Context, chatID int64, text string) {
	if _, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		slog.Warn("telegram reply failed", "chat_id", chatID, "error", err)
	}
}
