package domain

import "time"

// Source identifies where a posting was discovered.
type Source string

const (
	SourceBoards  Source = "boards"
	SourceFeed    Source = "feed"
	SourceMailbox Source = "mailbox"
	SourceManual  Source = "manual"
)

// PostingStatus is the review status of a posting, driven by the
// orchestrator and by manual review through the dashboard.
type PostingStatus string

const (
	PostingNew       PostingStatus = "new"
	PostingApplied   PostingStatus = "applied"
	PostingRejected  PostingStatus = "rejected"
	PostingInterview PostingStatus = "interview"
	PostingOffer     PostingStatus = "offer"
	PostingArchived  PostingStatus = "archived"
)

// TerminalPostingStatus reports whether a posting is eligible for the
// retention sweep (only archived/rejected rows ever get deleted).
func TerminalPostingStatus(s PostingStatus) bool {
	return s == PostingArchived || s == PostingRejected
}

// Posting is one discovered opportunity. Identity is derived from the
// dedup key, so re-ingesting the same posting never creates a second row.
type Posting struct {
	ID           string
	DedupKey     string
	Title        string
	Company      string
	Location     string
	Description  string
	Requirements string
	Salary       string // free text, parsed best-effort by the scorer
	URL          string
	ContactEmail string
	Source       Source
	Status       PostingStatus
	RemoteOK     bool
	Score        float64
	FoundAt      time.Time
	LastSeenAt   time.Time
	Tags         []string
}

// PostingCandidate is what a Source returns before the store has assigned
// identity. The orchestrator turns candidates into Postings via Upsert.
type PostingCandidate struct {
	Title        string
	Company      string
	Location     string
	Description  string
	Requirements string
	Salary       string
	URL          string
	ContactEmail string
	Source       Source
	RemoteOK     bool
	PostedAt     *time.Time
}
