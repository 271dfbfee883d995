// Package quiz broadcasts multiple-choice questions to a group chat on a
// cron schedule and records answers with per-question tallies.
package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/nextlevelbuilder/musebot/internal/bus"
	"github.com/nextlevelbuilder/musebot/internal/config"
	"github.com/nextlevelbuilder/musebot/internal/store"
)

// payloadPrefix marks quiz callback payloads: "quiz:<questionIndex>:<optionIndex>".
const payloadPrefix = "quiz:"

// Sink receives broadcast messages. *bus.MessageBus satisfies it.
type Sink interface {
	PublishOutbound(msg bus.OutboundMessage)
}

// Broadcaster publishes questions on schedule and checks answers.
type Broadcaster struct {
	cfg     config.QuizConfig
	channel string
	results store.QuizStore
	sink    Sink
	gron    *gronx.Gronx

	mu    sync.Mutex
	index int
}

// New creates a Broadcaster publishing to the given channel name.
func New(cfg config.QuizConfig, channel string, results store.QuizStore, sink Sink) *Broadcaster {
	if cfg.Schedule == "" {
		cfg.Schedule = "* * * * *"
	}
	return &Broadcaster{
		cfg:     cfg,
		channel: channel,
		results: results,
		sink:    sink,
		gron:    gronx.New(),
	}
}

// Run fires broadcasts whenever the cron schedule is due. Schedule
// granularity is one minute; the loop polls well under that and remembers
// the last fired minute so a due minute fires exactly once.
func (b *Broadcaster) Run(ctx context.Context) {
	if !b.cfg.Enabled || b.cfg.ChatID == 0 {
		slog.Info("quiz broadcaster disabled")
		return
	}
	if !b.gron.IsValid(b.cfg.Schedule) {
		slog.Error("quiz: invalid cron schedule, broadcaster not started", "schedule", b.cfg.Schedule)
		return
	}

	slog.Info("quiz broadcaster started", "chat_id", b.cfg.ChatID, "schedule", b.cfg.Schedule)
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	var lastFired time.Time
	for {
		select {
		case <-ctx.Done():
			slog.Info("quiz broadcaster stopped")
			return
		case now := <-ticker.C:
			minute := now.Truncate(time.Minute)
			if minute.Equal(lastFired) {
				continue
			}
			due, err := b.gron.IsDue(b.cfg.Schedule, now)
			if err != nil || !due {
				continue
			}
			lastFired = minute
			b.Broadcast()
		}
	}
}

// Broadcast publishes the next question with one inline button per option.
func (b *Broadcaster) Broadcast() {
	b.mu.Lock()
	index := b.index
	b.index++
	b.mu.Unlock()

	q := QuestionAt(index)
	msg := bus.OutboundMessage{
		Channel: b.channel,
		ChatID:  b.cfg.ChatID,
		Content: "🧠 Quiz time!\n\n" + q.Text,
	}
	for i, opt := range q.Options {
		msg.Buttons = append(msg.Buttons, bus.Button{
			Label:   opt,
			Payload: fmt.Sprintf("%s%d:%d", payloadPrefix, index, i),
		})
	}
	b.sink.PublishOutbound(msg)
	slog.Info("quiz question broadcast", "index", index, "question", q.Text)
}

// IsAnswerPayload reports whether a callback payload belongs to the quiz.
func IsAnswerPayload(payload string) bool {
	return strings.HasPrefix(payload, payloadPrefix)
}

// HandleAnswer records a quiz answer and returns the reply text showing the
// outcome and the question's running tally.
func (b *Broadcaster) HandleAnswer(ctx context.Context, userID int64, username, payload string) (string, error) {
	index, optIdx, err := parseAnswerPayload(payload)
	if err != nil {
		return "", err
	}

	q := QuestionAt(index)
	if optIdx < 0 || optIdx >= len(q.Options) {
		return "", fmt.Errorf("quiz: option index %d out of range", optIdx)
	}
	selected := q.Options[optIdx]
	correct := selected == q.Answer

	if err := b.results.SaveResult(ctx, store.QuizResult{
		UserID:   userID,
		Username: username,
		Question: q.Text,
		Selected: selected,
		Correct:  correct,
	}); err != nil {
		return "", fmt.Errorf("quiz: save result: %w", err)
	}

	correctCount, wrongCount, err := b.results.QuestionStats(ctx, q.Text)
	if err != nil {
		return "", fmt.Errorf("quiz: question stats: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n", q.Text)
	fmt.Fprintf(&sb, "You selected: %s\n", selected)
	fmt.Fprintf(&sb, "Correct: %s\n", q.Answer)
	fmt.Fprintf(&sb, "✅ Correct answers: %d\n", correctCount)
	fmt.Fprintf(&sb, "❌ Wrong answers: %d", wrongCount)
	return sb.String(), nil
}

func parseAnswerPayload(payload string) (index, optIdx int, err error) {
	rest, ok := strings.CutPrefix(payload, payloadPrefix)
	if !ok {
		return 0, 0, fmt.Errorf("quiz: not an answer payload: %q", payload)
	}
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("quiz: malformed payload: %q", payload)
	}
	index, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("quiz: malformed question index: %q", payload)
	}
	optIdx, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("quiz: malformed option index: %q", payload)
	}
	return index, optIdx, nil
}
