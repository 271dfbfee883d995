package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/musebot/internal/bus"
	"github.com/nextlevelbuilder/musebot/internal/features"
	"github.com/nextlevelbuilder/musebot/internal/moderation"
)

const helpText = `I run AI features over your text and photos.

/menu — pick a feature from a keyboard
/ai <prompt> — generate text from a prompt
/cancel — forget a pending request
/help — this message

Moderation (group admins):
/mute /unmute /kick /ban /unban /promote /demote /history

Group housekeeping:
/pin /unpin (admins), /groupinfo, /id

Or just ask: "draw a sunset", "summarize <text>", or send a photo.`

// handleBotCommand checks if the message is a known bot command and handles
// it. Returns true if the message was handled as a command.
func (c *Channel) handleBotCommand(ctx context.Context, message *telego.Message, text string) bool {
	if len(text) == 0 || text[0] != '/' {
		return false
	}

	parts := strings.Fields(text)
	// Strip the @botname suffix used in groups.
	cmd := strings.ToLower(strings.SplitN(parts[0], "@", 2)[0])
	cmd = strings.TrimPrefix(cmd, "/")
	args := parts[1:]

	chatID := message.Chat.ID

	switch cmd {
	case "start":
		name := message.From.FirstName
		c.reply(ctx, chatID, fmt.Sprintf("Hi %s! Send /menu to see what I can do, or just ask.", name))
		return true

	case "help":
		c.reply(ctx, chatID, helpText)
		return true

	case "menu":
		c.sendFeatureMenu(ctx, chatID, message.From.ID, false)
		return true

	case "ai":
		prompt := strings.TrimSpace(strings.Join(args, " "))
		if prompt == "" {
			c.pendingTexts.Store(message.From.ID, features.KindTextGenerator)
			c.reply(ctx, chatID, "What should I write about? Send me the prompt.")
			return true
		}
		c.publishRequest(message, features.KindTextGenerator, prompt, nil)
		return true

	case "cancel":
		c.pendingKinds.Delete(message.From.ID)
		c.pendingTexts.Delete(message.From.ID)
		c.pendingPhotos.Delete(message.From.ID)
		c.reply(ctx, chatID, "Cancelled.")
		return true
	}

	if moderation.IsCommand(cmd) {
		if c.moderation == nil {
			return true
		}
		isGroup := message.Chat.Type == "group" || message.Chat.Type == "supergroup"
		if !isGroup {
			c.reply(ctx, chatID, "Moderation commands only work in group chats.")
			return true
		}
		reply := c.moderation.HandleCommand(ctx, cmd, args, chatID, message.From.ID)
		c.reply(ctx, chatID, reply)
		return true
	}

	return c.handleManagementCommand(ctx, cmd, message)
}

// sendFeatureMenu shows the feature picker keyboard, listing the sender's
// recently used features first. When imageOnly is set, only features that
// operate on a photo are listed (used when the user sent a bare photo).
func (c *Channel) sendFeatureMenu(ctx context.Context, chatID, senderID int64, imageOnly bool) {
	var buttons []bus.Button
	for _, kind := range menuOrder(c.recent, senderID) {
		if imageOnly && !kind.NeedsImage() {
			continue
		}
		buttons = append(buttons, bus.Button{
			Label:   kind.Title(),
			Payload: "feature:" + string(kind),
		})
	}

	prompt := "Pick a feature:"
	if imageOnly {
		prompt = "Nice photo! What should I do with it?"
	}

	msg := tu.Message(tu.ID(chatID), prompt).WithReplyMarkup(buildKeyboard(buttons))
	if _, err := c.bot.SendMessage(ctx, msg); err != nil {
		c.reply(ctx, chatID, "Could not show the menu, try again.")
	}
}

// menuOrder returns all feature kinds with the sender's recent ones first.
func menuOrder(recent func(int64) []features.Kind, senderID int64) []features.Kind {
	if recent == nil {
		return features.AllKinds
	}
	ordered := make([]features.Kind, 0, len(features.AllKinds))
	seen := make(map[features.Kind]bool)
	for _, kind := range recent(senderID) {
		if kind.Valid() && !seen[kind] {
			ordered = append(ordered, kind)
			seen[kind] = true
		}
	}
	for _, kind := range features.AllKinds {
		if !seen[kind] {
			ordered = append(ordered, kind)
		}
	}
	return ordered
}

// SyncMenuCommands registers bot commands with Telegram via setMyCommands.
func (c *Channel) SyncMenuCommands(ctx context.Context, commands []telego.BotCommand) error {
	if err := c.bot.DeleteMyCommands(ctx, nil); err != nil {
		slog.Debug("deleteMyCommands failed (may not exist)", "error", err)
	}

	if len(commands) == 0 {
		return nil
	}

	return c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: commands,
	})
}

// DefaultMenuCommands returns the default bot menu commands.
func DefaultMenuCommands() []telego.BotCommand {
	return []telego.BotCommand{
		{Command: "start", Description: "Start chatting with the bot"},
		{Command: "menu", Description: "Pick an AI feature"},
		{Command: "ai", Description: "Generate text from a prompt"},
		{Command: "cancel", Description: "Forget a pending request"},
		{Command: "help", Description: "Show available commands"},
	}
}
