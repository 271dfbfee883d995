// Package moderation implements admin-gated group moderation commands with a
// persisted action log. Chat-platform operations go through the ChatAdmin
// interface so the service stays channel-neutral and testable.
package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nextlevelbuilder/musebot/internal/store"
)

// ChatAdmin is the slice of chat-platform moderation API the service needs.
// The Telegram channel implements it.
type ChatAdmin interface {
	RestrictMember(ctx context.Context, chatID, userID int64, canSend bool) error
	BanMember(ctx context.Context, chatID, userID int64) error
	UnbanMember(ctx context.Context, chatID, userID int64) error
	PromoteMember(ctx context.Context, chatID, userID int64, admin bool) error
	IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

// Service executes moderation commands and logs them.
type Service struct {
	chat        ChatAdmin
	actions     store.ActionStore
	extraAdmins map[int64]bool
}

// New creates a Service. adminIDs are allowed regardless of their chat role.
func New(chat ChatAdmin, actions store.ActionStore, adminIDs []int64) *Service {
	extra := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		extra[id] = true
	}
	return &Service{chat: chat, actions: actions, extraAdmins: extra}
}

// Commands lists the moderation command names, without the leading slash.
var Commands = []string{"mute", "unmute", "kick", "ban", "unban", "promote", "demote", "history"}

// IsCommand reports whether name is a moderation command.
func IsCommand(name string) bool {
	for _, c := range Commands {
		if name == c {
			return true
		}
	}
	return false
}

// HandleCommand runs one moderation command and returns the reply text.
// Non-admin callers are refused; malformed arguments produce usage text.
// Command failures are returned as user-readable errors, never panics.
func (s *Service) HandleCommand(ctx context.Context, command string, args []string, chatID, callerID int64) string {
	admin, err := s.isAdmin(ctx, chatID, callerID)
	if err != nil {
		slog.Warn("moderation: admin check failed", "chat_id", chatID, "caller", callerID, "error", err)
		return "Could not verify admin rights, try again."
	}
	if !admin {
		return "❌ Only admins!"
	}

	switch command {
	case "mute":
		return s.mute(ctx, args, chatID)
	case "unmute":
		return s.unmute(ctx, args, chatID)
	case "kick", "ban":
		return s.ban(ctx, command, args, chatID)
	case "unban":
		return s.unban(ctx, args, chatID)
	case "promote":
		return s.promote(ctx, args, chatID, true)
	case "demote":
		return s.promote(ctx, args, chatID, false)
	case "history":
		return s.history(ctx, args)
	}
	return fmt.Sprintf("Unknown command /%s", command)
}

func (s *Service) isAdmin(ctx context.Context, chatID, callerID int64) (bool, error) {
	if s.extraAdmins[callerID] {
		return true, nil
	}
	return s.chat.IsChatAdmin(ctx, chatID, callerID)
}

func (s *Service) mute(ctx context.Context, args []string, chatID int64) string {
	if len(args) < 2 {
		return "Usage: /mute <user_id> <seconds>"
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "Usage: /mute <user_id> <seconds>"
	}
	seconds, err := strconv.Atoi(args[1])
	if err != nil || seconds <= 0 {
		return "Usage: /mute <user_id> <seconds>"
	}

	if err := s.chat.RestrictMember(ctx, chatID, userID, false); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	s.logAction(ctx, userID, "mute", chatID, seconds)

	// Auto-unmute after the duration. Best effort: the timer does not
	// survive a restart.
	go func() {
		timer := time.NewTimer(time.Duration(seconds) * time.Second)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if err := s.chat.RestrictMember(context.Background(), chatID, userID, true); err != nil {
			slog.Warn("moderation: auto-unmute failed", "user_id", userID, "chat_id", chatID, "error", err)
			return
		}
		s.logAction(context.Background(), userID, "unmute", chatID, 0)
	}()

	return fmt.Sprintf("✅ User %d muted for %d seconds", userID, seconds)
}

func (s *Service) unmute(ctx context.Context, args []string, chatID int64) string {
	userID, ok := singleUserArg(args, "/unmute")
	if !ok {
		return "Usage: /unmute <user_id>"
	}
	if err := s.chat.RestrictMember(ctx, chatID, userID, true); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	s.logAction(ctx, userID, "unmute", chatID, 0)
	return fmt.Sprintf("✅ User %d unmuted", userID)
}

func (s *Service) ban(ctx context.Context, action string, args []string, chatID int64) string {
	userID, ok := singleUserArg(args, "/"+action)
	if !ok {
		return fmt.Sprintf("Usage: /%s <user_id>", action)
	}
	if err := s.chat.BanMember(ctx, chatID, userID); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	s.logAction(ctx, userID, action, chatID, 0)
	verb := "banned"
	if action == "kick" {
		verb = "kicked"
	}
	return fmt.Sprintf("✅ User %d %s", userID, verb)
}

func (s *Service) unban(ctx context.Context, args []string, chatID int64) string {
	userID, ok := singleUserArg(args, "/unban")
	if !ok {
		return "Usage: /unban <user_id>"
	}
	if err := s.chat.UnbanMember(ctx, chatID, userID); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	s.logAction(ctx, userID, "unban", chatID, 0)
	return fmt.Sprintf("✅ User %d unbanned", userID)
}

func (s *Service) promote(ctx context.Context, args []string, chatID int64, admin bool) string {
	action := "promote"
	if !admin {
		action = "demote"
	}
	userID, ok := singleUserArg(args, "/"+action)
	if !ok {
		return fmt.Sprintf("Usage: /%s <user_id>", action)
	}
	if err := s.chat.PromoteMember(ctx, chatID, userID, admin); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	s.logAction(ctx, userID, action, chatID, 0)
	if admin {
		return fmt.Sprintf("✅ User %d promoted to admin", userID)
	}
	return fmt.Sprintf("✅ User %d demoted", userID)
}

func (s *Service) history(ctx context.Context, args []string) string {
	userID, ok := singleUserArg(args, "/history")
	if !ok {
		return "Usage: /history <user_id>"
	}
	records, err := s.actions.UserHistory(ctx, userID, 50)
	if err != nil {
		slog.Warn("moderation: history query failed", "user_id", userID, "error", err)
		return "Could not load history, try again."
	}
	if len(records) == 0 {
		return "No history found for this user."
	}

	var sb strings.Builder
	sb.WriteString("📜 User History:\n")
	for _, rec := range records {
		duration := ""
		if rec.DurationSec > 0 {
			duration = fmt.Sprintf(" (%ds)", rec.DurationSec)
		}
		fmt.Fprintf(&sb, "%s - %s in chat %d%s\n",
			rec.At.Format("2006-01-02 15:04:05"), rec.Action, rec.ChatID, duration)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (s *Service) logAction(ctx context.Context, userID int64, action string, chatID int64, durationSec int) {
	err := s.actions.LogAction(ctx, store.ActionRecord{
		UserID:      userID,
		Action:      action,
		ChatID:      chatID,
		DurationSec: durationSec,
	})
	if err != nil {
		slog.Warn("moderation: action log write failed",
			"user_id", userID, "action", action, "error", err)
	}
}

func singleUserArg(args []string, _ string) (int64, bool) {
	if len(args) < 1 {
		return 0, false
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return userID, true
}
