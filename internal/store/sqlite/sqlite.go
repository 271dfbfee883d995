// Package sqlite implements the store interfaces on an embedded SQLite
// database (modernc.org/sqlite, no cgo). Schema is applied on open.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/musebot/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	action TEXT NOT NULL,
	chat_id INTEGER NOT NULL,
	duration INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_user_actions_user ON user_actions(user_id, created_at);

CREATE TABLE IF NOT EXISTS quiz_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	username TEXT NOT NULL,
	question TEXT NOT NULL,
	selected_option TEXT NOT NULL,
	correct INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_quiz_results_question ON quiz_results(question);

CREATE TABLE IF NOT EXISTS member_joins (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	username TEXT NOT NULL,
	full_name TEXT NOT NULL,
	chat_id INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// NewStores opens (or creates) the SQLite database at path and returns the
// full store set backed by it.
func NewStores(path string) (*store.Stores, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return store.NewStores(
		&actionStore{db: db},
		&quizStore{db: db},
		&memberStore{db: db},
		db.Close,
	), nil
}

type actionStore struct {
	db *sql.DB
}

func (s *actionStore) LogAction(ctx context.Context, rec store.ActionRecord) error {
	at := rec.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_actions (user_id, action, chat_id, duration, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.UserID, rec.Action, rec.ChatID, rec.DurationSec, at,
	)
	if err != nil {
		return fmt.Errorf("log action: %w", err)
	}
	return nil
}

func (s *actionStore) UserHistory(ctx context.Context, userID int64, limit int) ([]store.ActionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, action, chat_id, duration, created_at
		   FROM user_actions WHERE user_id = ?
		  ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query user history: %w", err)
	}
	defer rows.Close()

	var out []store.ActionRecord
	for rows.Next() {
		var rec store.ActionRecord
		if err := rows.Scan(&rec.UserID, &rec.Action, &rec.ChatID, &rec.DurationSec, &rec.At); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type quizStore struct {
	db *sql.DB
}

func (s *quizStore) SaveResult(ctx context.Context, res store.QuizResult) error {
	correct := 0
	if res.Correct {
		correct = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_results (user_id, username, question, selected_option, correct)
		 VALUES (?, ?, ?, ?, ?)`,
		res.UserID, res.Username, res.Question, res.Selected, correct,
	)
	if err != nil {
		return fmt.Errorf("save quiz result: %w", err)
	}
	return nil
}

func (s *quizStore) QuestionStats(ctx context.Context, question string) (int, int, error) {
	var correct, wrong int
	err := s.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(correct), 0),
		   COALESCE(SUM(1 - correct), 0)
		 FROM quiz_results WHERE question = ?`,
		question,
	).Scan(&correct, &wrong)
	if err != nil {
		return 0, 0, fmt.Errorf("question stats: %w", err)
	}
	return correct, wrong, nil
}

type memberStore struct {
	db *sql.DB
}

func (s *memberStore) LogJoin(ctx context.Context, rec store.JoinRecord) error {
	at := rec.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO member_joins (user_id, username, full_name, chat_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.UserID, rec.Username, rec.FullName, rec.ChatID, at,
	)
	if err != nil {
		return fmt.Errorf("log join: %w", err)
	}
	return nil
}
