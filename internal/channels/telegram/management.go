package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// handleManagementCommand covers the group housekeeping commands /pin,
// /unpin, /groupinfo, and /id. Returns true when cmd was one of them.
func (c *Channel) handleManagementCommand(ctx context.Context, cmd string, message *telego.Message) bool {
	chatID := message.Chat.ID

	switch cmd {
	case "id":
		c.reply(ctx, chatID, fmt.Sprintf("Your ID: %d\nChat ID: %d", message.From.ID, chatID))
		return true
	case "pin", "unpin", "groupinfo":
	default:
		return false
	}

	isGroup := message.Chat.Type == "group" || message.Chat.Type == "supergroup"
	if !isGroup {
		c.reply(ctx, chatID, "That command only works in group chats.")
		return true
	}

	if cmd == "groupinfo" {
		info, err := c.bot.GetChat(ctx, &telego.GetChatParams{ChatID: tu.ID(chatID)})
		if err != nil {
			c.reply(ctx, chatID, "Could not fetch chat info.")
			return true
		}
		memberCount := 0
		if count, err := c.bot.GetChatMemberCount(ctx, &telego.GetChatMemberCountParams{ChatID: tu.ID(chatID)}); err == nil && count != nil {
			memberCount = *count
		}
		c.reply(ctx, chatID, formatGroupInfo(info.Title, info.ID, string(info.Type), memberCount, info.Description))
		return true
	}

	// Same admin gate as the moderation commands.
	admin, err := c.IsChatAdmin(ctx, chatID, message.From.ID)
	if err != nil || !admin {
		c.reply(ctx, chatID, "Only chat admins can do that.")
		return true
	}

	switch cmd {
	case "pin":
		if message.ReplyToMessage == nil {
			c.reply(ctx, chatID, "Reply to the message you want pinned with /pin.")
			return true
		}
		if err := c.bot.PinChatMessage(ctx, &telego.PinChatMessageParams{
			ChatID:    tu.ID(chatID),
			MessageID: message.ReplyToMessage.MessageID,
		}); err != nil {
			c.reply(ctx, chatID, "Could not pin that message.")
		}
	case "unpin":
		if err := c.bot.UnpinChatMessage(ctx, &telego.UnpinChatMessageParams{
			ChatID: tu.ID(chatID),
		}); err != nil {
			c.reply(ctx, chatID, "Could not unpin.")
		}
	}
	return true
}

// formatGroupInfo renders the /groupinfo reply. Member count and description
// lines are omitted when unknown.
func formatGroupInfo(title string, chatID int64, chatType string, memberCount int, description string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", title)
	fmt.Fprintf(&sb, "ID: %d\n", chatID)
	fmt.Fprintf(&sb, "Type: %s", chatType)
	if memberCount > 0 {
		fmt.Fprintf(&sb, "\nMembers: %d", memberCount)
	}
	if description != "" {
		fmt.Fprintf(&sb, "\nDescription: %s", description)
	}
	return sb.String()
}
