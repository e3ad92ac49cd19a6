package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// DaemonState holds the process-wide daily counters. Persisted so a
// same-day restart resumes with the quota already consumed.
type DaemonState struct {
	Day                string // local calendar day, YYYY-MM-DD
	PostingsFoundToday int
	AttemptsSentToday  int
	LastDiscoveryAt    *time.Time
	StartedAt          time.Time
}

// InitDaemonState ensures the singleton state row exists and rolls the day
// forward if the stored day is stale. Returns the current state.
func (s *Store) InitDaemonState(ctx context.Context, day string, startedAt time.Time) (DaemonState, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return DaemonState{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var st DaemonState
	var lastDisc sql.NullString
	var started string
	err = tx.QueryRowContext(ctx, `
SELECT day, postings_found_today, attempts_sent_today, last_discovery_at, started_at
FROM daemon_state WHERE id = 1;`).Scan(&st.Day, &st.PostingsFoundToday, &st.AttemptsSentToday, &lastDisc, &started)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
INSERT INTO daemon_state (id, day, postings_found_today, attempts_sent_today, started_at)
VALUES (1, ?, 0, 0, ?);`, day, startedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return DaemonState{}, err
		}
		st = DaemonState{Day: day, StartedAt: startedAt}

	case err != nil:
		return DaemonState{}, err

	default:
		st.LastDiscoveryAt = parseNullTime(lastDisc)
		st.StartedAt, _ = time.Parse(time.RFC3339, started)
		if st.Day != day {
			// stale day from before the restart: counters reset
			if _, err := tx.ExecContext(ctx, `
UPDATE daemon_state
SET day = ?, postings_found_today = 0, attempts_sent_today = 0, started_at = ?
WHERE id = 1;`, day, startedAt.UTC().Format(time.RFC3339)); err != nil {
				return DaemonState{}, err
			}
			st = DaemonState{Day: day, StartedAt: startedAt, LastDiscoveryAt: st.LastDiscoveryAt}
		} else {
			// same-day restart keeps the counters, takes the new start time
			if _, err := tx.ExecContext(ctx, `
UPDATE daemon_state SET started_at = ? WHERE id = 1;`, startedAt.UTC().Format(time.RFC3339)); err != nil {
				return DaemonState{}, err
			}
			st.StartedAt = startedAt
		}
	}

	return st, tx.Commit()
}

func (s *Store) DaemonState(ctx context.Context) (DaemonState, error) {
	var st DaemonState
	var lastDisc sql.NullString
	var started string
	err := s.db.QueryRowContext(ctx, `
SELECT day, postings_found_today, attempts_sent_today, last_discovery_at, started_at
FROM daemon_state WHERE id = 1;`).Scan(&st.Day, &st.PostingsFoundToday, &st.AttemptsSentToday, &lastDisc, &started)
	if err != nil {
		return DaemonState{}, err
	}
	st.LastDiscoveryAt = parseNullTime(lastDisc)
	st.StartedAt, _ = time.Parse(time.RFC3339, started)
	return st, nil
}

// ResetDay zeroes the daily counters and sets the current day. Idempotent:
// a duplicate invocation for the same day simply re-zeroes.
func (s *Store) ResetDay(ctx context.Context, day string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE daemon_state
SET day = ?, postings_found_today = 0, attempts_sent_today = 0
WHERE id = 1;`, day)
	return err
}

// RecordDiscovery bumps the found counter and stamps the last successful
// discovery time.
func (s *Store) RecordDiscovery(ctx context.Context, found int, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE daemon_state
SET postings_found_today = postings_found_today + ?, last_discovery_at = ?
WHERE id = 1;`, found, at.UTC().Format(time.RFC3339))
	return err
}

// Stats aggregates store-wide counts for the dashboard and daily report.
type Stats struct {
	TotalPostings     int     `json:"total_postings"`
	NewPostings       int     `json:"new_postings"`
	TotalAttempts     int     `json:"total_attempts"`
	OpenAttempts      int     `json:"open_attempts"`
	AverageScoreToday float64 `json:"average_score_today"`
	FoundToday        int     `json:"found_today"`
	SentToday         int     `json:"sent_today"`
}

func (s *Store) Stats(ctx context.Context, dayStart time.Time) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM postings;`).Scan(&st.TotalPostings); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM postings WHERE status = 'new';`).Scan(&st.NewPostings); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts;`).Scan(&st.TotalAttempts); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM attempts
WHERE state IN ('pending','sent','delivered','read');`).Scan(&st.OpenAttempts); err != nil {
		return st, err
	}
	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, `
SELECT AVG(score) FROM postings WHERE found_at >= ? AND score > 0;`,
		dayStart.UTC().Format(time.RFC3339)).Scan(&avg); err != nil {
		return st, err
	}
	if avg.Valid {
		st.AverageScoreToday = avg.Float64
	}

	ds, err := s.DaemonState(ctx)
	if err != nil {
		return st, err
	}
	st.FoundToday = ds.PostingsFoundToday
	st.SentToday = ds.AttemptsSentToday
	return st, nil
}
