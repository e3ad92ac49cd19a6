package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adamsnows/jobhunter-bot/internal/domain"
)

// UpsertPosting is the sole dedup gate. The dedup key is derived from the
// candidate; a live row with the same key gets its mutable fields merged,
// a fresh key inserts a new row. isNew tells the orchestrator whether to
// score and notify.
func (s *Store) UpsertPosting(ctx context.Context, c domain.PostingCandidate, now time.Time) (id string, isNew bool, err error) {
	key := c.DedupKey()
	if key == "" {
		return "", false, errors.New("candidate has no dedup key")
	}
	id = domain.PostingID(key)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM postings WHERE dedup_key = ?;`, key).Scan(&existing)
	switch {
	case err == nil:
		// Re-sight: merge mutable fields only, never touch identity/found_at.
		_, err = tx.ExecContext(ctx, `
UPDATE postings
SET title = ?, location = ?, description = ?, requirements = ?, salary = ?,
    contact_email = ?, remote_ok = ?, last_seen_at = ?
WHERE id = ?;`,
			c.Title, c.Location, c.Description, c.Requirements, c.Salary,
			c.ContactEmail, boolInt(c.RemoteOK), now.UTC().Format(time.RFC3339), existing,
		)
		if err != nil {
			return "", false, fmt.Errorf("merge posting: %w", err)
		}
		return existing, false, tx.Commit()

	case errors.Is(err, sql.ErrNoRows):
		foundAt := now
		if c.PostedAt != nil {
			foundAt = *c.PostedAt
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO postings (id, dedup_key, title, company, location, description, requirements,
                      salary, url, contact_email, source, status, remote_ok, score,
                      found_at, last_seen_at, tags)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, '[]');`,
			id, key, c.Title, c.Company, c.Location, c.Description, c.Requirements,
			c.Salary, c.URL, c.ContactEmail, string(c.Source), string(domain.PostingNew),
			boolInt(c.RemoteOK), foundAt.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return "", false, fmt.Errorf("insert posting: %w", err)
		}
		return id, true, tx.Commit()

	default:
		return "", false, err
	}
}

// PostingExists reports whether a live row carries the dedup key.
func (s *Store) PostingExists(ctx context.Context, dedupKey string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM postings WHERE dedup_key = ? LIMIT 1;`, dedupKey).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) GetPosting(ctx context.Context, id string) (domain.Posting, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+postingCols+`
FROM postings WHERE id = ?;`, id)
	return scanPosting(row)
}

// SetScore persists the compatibility score for a posting.
func (s *Store) SetScore(ctx context.Context, id string, score float64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE postings SET score = ? WHERE id = ?;`, score, id)
	return err
}

func (s *Store) SetStatus(ctx context.Context, id string, status domain.PostingStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE postings SET status = ? WHERE id = ?;`, string(status), id)
	return err
}

func (s *Store) SetTags(ctx context.Context, id string, tags []string) error {
	b, _ := json.Marshal(tags)
	_, err := s.db.ExecContext(ctx, `UPDATE postings SET tags = ? WHERE id = ?;`, string(b), id)
	return err
}

// PostingFilter narrows QueryPostings. Zero values mean "any".
type PostingFilter struct {
	Status   domain.PostingStatus
	Source   domain.Source
	MinScore float64
	Since    time.Time
	Sort     string // score | found_at | company | title
	Limit    int
}

func (s *Store) QueryPostings(ctx context.Context, f PostingFilter) ([]domain.Posting, error) {
	var where []string
	var args []any

	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, string(f.Source))
	}
	if f.MinScore > 0 {
		where = append(where, "score >= ?")
		args = append(args, f.MinScore)
	}
	if !f.Since.IsZero() {
		where = append(where, "found_at >= ?")
		args = append(args, f.Since.UTC().Format(time.RFC3339))
	}

	// whitelist sort columns (prevents SQL injection)
	sortCol := map[string]string{
		"score":    "score DESC",
		"found_at": "found_at DESC",
		"company":  "company ASC",
		"title":    "title ASC",
	}[f.Sort]
	if sortCol == "" {
		sortCol = "score DESC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 2000 {
		limit = 500
	}

	q := `SELECT ` + postingCols + ` FROM postings`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += fmt.Sprintf(" ORDER BY %s LIMIT ?;", sortCol)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SweepExpired removes postings that are both in a terminal status and older
// than the horizon. Attempts for swept postings go with them.
func (s *Store) SweepExpired(ctx context.Context, horizon time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := horizon.UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
DELETE FROM attempts
WHERE posting_id IN (
  SELECT id FROM postings
  WHERE status IN ('archived','rejected') AND found_at < ?
);`, cutoff); err != nil {
		return 0, fmt.Errorf("sweep attempts: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
DELETE FROM postings
WHERE status IN ('archived','rejected') AND found_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep postings: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

const postingCols = `id, dedup_key, title, company, location, description, requirements,
salary, url, contact_email, source, status, remote_ok, score, found_at, last_seen_at, tags`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(r rowScanner) (domain.Posting, error) {
	var p domain.Posting
	var remote int
	var foundAt, lastSeen, tagsJSON string
	err := r.Scan(
		&p.ID, &p.DedupKey, &p.Title, &p.Company, &p.Location, &p.Description,
		&p.Requirements, &p.Salary, &p.URL, &p.ContactEmail,
		(*string)(&p.Source), (*string)(&p.Status), &remote, &p.Score,
		&foundAt, &lastSeen, &tagsJSON,
	)
	if err != nil {
		return domain.Posting{}, err
	}
	p.RemoteOK = remote != 0
	p.FoundAt, _ = time.Parse(time.RFC3339, foundAt)
	p.LastSeenAt, _ = time.Parse(time.RFC3339, lastSeen)
	_ = json.Unmarshal([]byte(tagsJSON), &p.Tags)
	return p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
