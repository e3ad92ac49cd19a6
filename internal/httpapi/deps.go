// Package httpapi is the local dashboard API: read access to postings,
// attempts and stats, config editing, and a live SSE event stream.
package httpapi

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/adamsnows/jobhunter-bot/internal/config"
	"github.com/adamsnows/jobhunter-bot/internal/events"
	"github.com/adamsnows/jobhunter-bot/internal/store"
)

type Deps struct {
	Store *store.Store
	Hub   *events.Hub
	Log   *slog.Logger
	Loc   *time.Location

	// CfgVal holds the live config.Config; PUT /config swaps it.
	CfgVal      *atomic.Value
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// RunDiscovery fires a discovery cycle out of band (single-flight
	// still applies).
	RunDiscovery func() error
}
