package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/adamsnows/jobhunter-bot/internal/config"
	"github.com/adamsnows/jobhunter-bot/internal/domain"
)

// Feed pulls JSON posting feeds (lever-style APIs and aggregator
// exports). Feeds are fetched concurrently with a small worker pool.
type Feed struct {
	feeds []config.FeedSite
	hc    *http.Client
	log   *slog.Logger
}

func NewFeed(feeds []config.FeedSite, log *slog.Logger) *Feed {
	return &Feed{
		feeds: feeds,
		hc:    &http.Client{Timeout: 20 * time.Second},
		log:   log,
	}
}

func (f *Feed) Name() string { return string(domain.SourceFeed) }

func (f *Feed) Close() error {
	f.hc.CloseIdleConnections()
	return nil
}

type feedPosting struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Text        string `json:"text"` // lever calls the title "text"
	Company     string `json:"company"`
	URL         string `json:"url"`
	HostedURL   string `json:"hostedUrl"`
	Description string `json:"description"`
	Salary      string `json:"salary"`
	Contact     string `json:"contact"`
	CreatedAt   int64  `json:"createdAt"` // ms epoch
	Categories  struct {
		Location string `json:"location"`
	} `json:"categories"`
	Location string `json:"location"`
}

func (p feedPosting) title() string {
	if t := strings.TrimSpace(p.Title); t != "" {
		return t
	}
	return strings.TrimSpace(p.Text)
}

func (p feedPosting) location() string {
	if p.Location != "" {
		return p.Location
	}
	return p.Categories.Location
}

func (p feedPosting) url() string {
	if p.URL != "" {
		return p.URL
	}
	return p.HostedURL
}

func (f *Feed) Search(ctx context.Context, keywords []string, location string) ([]domain.PostingCandidate, error) {
	const workers = 4

	workCh := make(chan config.FeedSite)
	resCh := make(chan []domain.PostingCandidate, len(f.feeds))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for site := range workCh {
				fctx, cancel := context.WithTimeout(ctx, 15*time.Second)
				cands, err := f.fetchFeed(fctx, site, keywords)
				cancel()
				if err != nil {
					f.log.Warn("feed fetch failed",
						slog.String("feed", site.Name),
						slog.String("err", err.Error()))
					continue
				}
				if len(cands) > 0 {
					resCh <- cands
				}
			}
		}()
	}

	go func() {
		defer close(workCh)
		for _, site := range f.feeds {
			select {
			case <-ctx.Done():
				return
			case workCh <- site:
			}
		}
	}()

	wg.Wait()
	close(resCh)

	var out []domain.PostingCandidate
	for batch := range resCh {
		out = append(out, batch...)
	}
	return out, ctx.Err()
}

func (f *Feed) fetchFeed(ctx context.Context, site config.FeedSite, keywords []string) ([]domain.PostingCandidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, site.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	res, err := f.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("feed status %d", res.StatusCode)
	}

	var postings []feedPosting
	if err := json.NewDecoder(res.Body).Decode(&postings); err != nil {
		return nil, fmt.Errorf("feed decode: %w", err)
	}

	out := make([]domain.PostingCandidate, 0, len(postings))
	for _, p := range postings {
		title := p.title()
		if title == "" || p.url() == "" {
			continue
		}
		if !matchesKeywords(title+" "+p.Description, keywords) {
			continue
		}
		company := strings.TrimSpace(p.Company)
		if company == "" {
			company = site.Name
		}
		var postedAt *time.Time
		if p.CreatedAt > 0 {
			t := time.UnixMilli(p.CreatedAt)
			postedAt = &t
		}
		out = append(out, domain.PostingCandidate{
			Title:        title,
			Company:      company,
			Location:     cleanText(p.location()),
			Description:  p.Description,
			Salary:       strings.TrimSpace(p.Salary),
			URL:          p.url(),
			ContactEmail: strings.TrimSpace(p.Contact),
			Source:       domain.SourceFeed,
			RemoteOK:     looksRemote(p.location(), title, p.Description),
			PostedAt:     postedAt,
		})
	}
	return out, nil
}
