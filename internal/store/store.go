// Package store defines the persistence interfaces for moderation history
// and quiz results. SQLite backs standalone deployments; Postgres is for
// managed ones. The dispatch core never touches these; its per-identity
// limiter/cache/queue state stays in memory only.
package store

import (
	"context"
	"time"
)

// ActionRecord is one logged moderation action.
type ActionRecord struct {
	UserID      int64
	Action      string // "mute", "kick", "ban", ...
	ChatID      int64
	DurationSec int // 0 when the action has no duration
	At          time.Time
}

// ActionStore persists the moderation action log.
type ActionStore interface {
	LogAction(ctx context.Context, rec ActionRecord) error
	UserHistory(ctx context.Context, userID int64, limit int) ([]ActionRecord, error)
}

// QuizResult is one recorded quiz answer.
type QuizResult struct {
	UserID   int64
	Username string
	Question string
	Selected string
	Correct  bool
}

// QuizStore persists quiz answers and per-question tallies.
type QuizStore interface {
	SaveResult(ctx context.Context, res QuizResult) error
	QuestionStats(ctx context.Context, question string) (correct, wrong int, err error)
}

// JoinRecord is one logged group join, written by the welcome flow.
type JoinRecord struct {
	UserID   int64
	Username string
	FullName string
	ChatID   int64
	At       time.Time
}

// MemberStore persists group join events.
type MemberStore interface {
	LogJoin(ctx context.Context, rec JoinRecord) error
}

// Stores is the top-level container for all storage backends.
type Stores struct {
	Actions ActionStore
	Quiz    QuizStore
	Members MemberStore

	closer func() error
}

// NewStores wraps concrete backends with a shared close function.
func NewStores(actions ActionStore, quiz QuizStore, members MemberStore, closer func() error) *Stores {
	return &Stores{Actions: actions, Quiz: quiz, Members: members, closer: closer}
}

// Close releases the underlying database handle.
func (s *Stores) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer()
}
