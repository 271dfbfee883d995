// Package pg implements the store interfaces on Postgres for managed
// deployments. Schema lives in migrations/ and is applied with the
// migrate command, not on open.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nextlevelbuilder/musebot/internal/store"
)

// NewStores connects to Postgres with the given DSN and returns the full
// store set backed by it.
func NewStores(dsn string) (*store.Stores, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
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
		 VALUES ($1, $2, $3, $4, $5)`,
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
		   FROM user_actions WHERE user_id = $1
		  ORDER BY created_at DESC LIMIT $2`,
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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_results (user_id, username, question, selected_option, correct)
		 VALUES ($1, $2, $3, $4, $5)`,
		res.UserID, res.Username, res.Question, res.Selected, res.Correct,
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
		   COUNT(*) FILTER (WHERE correct),
		   COUNT(*) FILTER (WHERE NOT correct)
		 FROM quiz_results WHERE question = $1`,
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
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.UserID, rec.Username, rec.FullName, rec.ChatID, at,
	)
	if err != nil {
		return fmt.Errorf("log join: %w", err)
	}
	return nil
}
