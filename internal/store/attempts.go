package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adamsnows/jobhunter-bot/internal/domain"
)

// CreateAttempt inserts a fresh pending attempt. A posting with a live
// attempt (pending/sent/delivered/read) is rejected with ErrOpenAttempt;
// only one attempt per posting may be open at a time.
func (s *Store) CreateAttempt(ctx context.Context, a *domain.OutreachAttempt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx, `
SELECT 1 FROM attempts
WHERE posting_id = ? AND state IN ('pending','sent','delivered','read')
LIMIT 1;`, a.PostingID).Scan(&one)
	if err == nil {
		return domain.ErrOpenAttempt
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if err := execSaveAttempt(ctx, tx, a, true); err != nil {
		// the partial unique index is the backstop for racing writers
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrOpenAttempt
		}
		return err
	}
	return tx.Commit()
}

// SaveAttempt persists the current state of an existing attempt.
func (s *Store) SaveAttempt(ctx context.Context, a *domain.OutreachAttempt) error {
	return execSaveAttempt(ctx, s.db, a, false)
}

// MarkSent records a successful send atomically with the daily counter:
// the attempt transition and the quota increment commit together or not at
// all. Exceeding maxPerDay rolls everything back with ErrQuotaExhausted.
// A state row still holding a previous day (a send before the scheduled
// reset fires) is rolled forward first, inside the same transaction.
func (s *Store) MarkSent(ctx context.Context, a *domain.OutreachAttempt, day string, maxPerDay int, now time.Time) error {
	if err := a.Transition(domain.AttemptSent, now); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
UPDATE daemon_state
SET day = ?, postings_found_today = 0, attempts_sent_today = 0
WHERE id = 1 AND day <> ?;`, day, day); err != nil {
		return fmt.Errorf("roll day forward: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
UPDATE daemon_state
SET attempts_sent_today = attempts_sent_today + 1
WHERE id = 1 AND day = ? AND attempts_sent_today < ?;`, day, maxPerDay)
	if err != nil {
		return fmt.Errorf("bump sent counter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuotaExhausted
	}

	if err := execSaveAttempt(ctx, tx, a, false); err != nil {
		return err
	}
	return tx.Commit()
}

// OpenAttemptExists reports whether the posting has a live attempt.
func (s *Store) OpenAttemptExists(ctx context.Context, postingID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
SELECT 1 FROM attempts
WHERE posting_id = ? AND state IN ('pending','sent','delivered','read')
LIMIT 1;`, postingID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) GetAttempt(ctx context.Context, id string) (*domain.OutreachAttempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts WHERE id = ?;`, id)
	return scanAttempt(row)
}

func (s *Store) AttemptsForPosting(ctx context.Context, postingID string) ([]*domain.OutreachAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+attemptCols+` FROM attempts
WHERE posting_id = ?
ORDER BY created_at ASC;`, postingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAttempts(rows)
}

// DueFollowUps returns attempts whose follow-up date has passed.
func (s *Store) DueFollowUps(ctx context.Context, now time.Time) ([]*domain.OutreachAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+attemptCols+` FROM attempts
WHERE next_follow_up_at IS NOT NULL AND next_follow_up_at <= ?
ORDER BY next_follow_up_at ASC;`, now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAttempts(rows)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execSaveAttempt(ctx context.Context, db execer, a *domain.OutreachAttempt, insert bool) error {
	args := []any{
		a.PostingID, string(a.Method), string(a.State),
		a.Recipient, a.Subject, a.Body,
		a.CreatedAt.UTC().Format(time.RFC3339),
		nullTime(a.SentAt), nullTime(a.DeliveredAt), nullTime(a.ReadAt),
		boolInt(a.ResponseReceived), nullTime(a.ResponseAt), a.ResponseContent, string(a.ResponseTone),
		a.FollowUpCount, nullTime(a.LastFollowUpAt), nullTime(a.NextFollowUpAt),
		a.ScoreAtAttempt, a.LastError,
		a.ID,
	}

	if insert {
		_, err := db.ExecContext(ctx, `
INSERT INTO attempts (posting_id, method, state, recipient, subject, body, created_at,
                      sent_at, delivered_at, read_at, response_received, response_at,
                      response_content, response_tone, follow_up_count, last_follow_up_at,
                      next_follow_up_at, score_at_attempt, last_error, id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`, args...)
		if err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		return nil
	}

	_, err := db.ExecContext(ctx, `
UPDATE attempts
SET posting_id = ?, method = ?, state = ?, recipient = ?, subject = ?, body = ?, created_at = ?,
    sent_at = ?, delivered_at = ?, read_at = ?, response_received = ?, response_at = ?,
    response_content = ?, response_tone = ?, follow_up_count = ?, last_follow_up_at = ?,
    next_follow_up_at = ?, score_at_attempt = ?, last_error = ?
WHERE id = ?;`, args...)
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	return nil
}

const attemptCols = `id, posting_id, method, state, recipient, subject, body, created_at,
sent_at, delivered_at, read_at, response_received, response_at, response_content,
response_tone, follow_up_count, last_follow_up_at, next_follow_up_at, score_at_attempt, last_error`

func scanAttempt(r rowScanner) (*domain.OutreachAttempt, error) {
	var a domain.OutreachAttempt
	var created string
	var sent, delivered, read, responseAt, lastFU, nextFU sql.NullString
	var responded int
	err := r.Scan(
		&a.ID, &a.PostingID, (*string)(&a.Method), (*string)(&a.State),
		&a.Recipient, &a.Subject, &a.Body, &created,
		&sent, &delivered, &read, &responded, &responseAt, &a.ResponseContent,
		(*string)(&a.ResponseTone), &a.FollowUpCount, &lastFU, &nextFU,
		&a.ScoreAtAttempt, &a.LastError,
	)
	if err != nil {
		return nil, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, created)
	a.SentAt = parseNullTime(sent)
	a.DeliveredAt = parseNullTime(delivered)
	a.ReadAt = parseNullTime(read)
	a.ResponseAt = parseNullTime(responseAt)
	a.LastFollowUpAt = parseNullTime(lastFU)
	a.NextFollowUpAt = parseNullTime(nextFU)
	a.ResponseReceived = responded != 0
	return &a, nil
}

func collectAttempts(rows *sql.Rows) ([]*domain.OutreachAttempt, error) {
	var out []*domain.OutreachAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}
