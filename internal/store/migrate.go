package store

func (s *Store) migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1: tables ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS postings (
  id TEXT PRIMARY KEY,
  dedup_key TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  company TEXT NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  requirements TEXT NOT NULL DEFAULT '',
  salary TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  contact_email TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'new',
  remote_ok INTEGER NOT NULL DEFAULT 0,
  score REAL NOT NULL DEFAULT 0,
  found_at TEXT NOT NULL,
  last_seen_at TEXT NOT NULL,
  tags TEXT NOT NULL DEFAULT '[]'
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  posting_id TEXT NOT NULL REFERENCES postings(id),
  method TEXT NOT NULL,
  state TEXT NOT NULL DEFAULT 'pending',
  recipient TEXT NOT NULL DEFAULT '',
  subject TEXT NOT NULL DEFAULT '',
  body TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  sent_at TEXT,
  delivered_at TEXT,
  read_at TEXT,
  response_received INTEGER NOT NULL DEFAULT 0,
  response_at TEXT,
  response_content TEXT NOT NULL DEFAULT '',
  response_tone TEXT NOT NULL DEFAULT '',
  follow_up_count INTEGER NOT NULL DEFAULT 0,
  last_follow_up_at TEXT,
  next_follow_up_at TEXT,
  score_at_attempt REAL NOT NULL DEFAULT 0,
  last_error TEXT NOT NULL DEFAULT ''
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS daemon_state (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  day TEXT NOT NULL,
  postings_found_today INTEGER NOT NULL DEFAULT 0,
  attempts_sent_today INTEGER NOT NULL DEFAULT 0,
  last_discovery_at TEXT,
  started_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	// ---- Schema v1: indexes ----

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_postings_found_at ON postings(found_at);
`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_postings_status ON postings(status);
`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_postings_score ON postings(score);
`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_attempts_posting ON attempts(posting_id);
`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_attempts_follow_up ON attempts(next_follow_up_at)
WHERE next_follow_up_at IS NOT NULL;
`); err != nil {
		return err
	}

	// At most one live (pending/sent/delivered/read) attempt per posting.
	if _, err := tx.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_open ON attempts(posting_id)
WHERE state IN ('pending','sent','delivered','read');
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}
