package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/adamsnows/jobhunter-bot/internal/config"
	"github.com/adamsnows/jobhunter-bot/internal/domain"
)

const userAgent = "jobhunter-bot/1.0 (+local)"

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// Boards scrapes configured job-board index pages for posting links and
// hydrates each hit from its detail page.
type Boards struct {
	sites   []config.BoardSite
	hc      *http.Client
	limiter *HostLimiter
	log     *slog.Logger
}

func NewBoards(sites []config.BoardSite, limiter *HostLimiter, log *slog.Logger) *Boards {
	return &Boards{
		sites:   sites,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
		log:     log,
	}
}

func (b *Boards) Name() string { return string(domain.SourceBoards) }

func (b *Boards) Close() error {
	b.hc.CloseIdleConnections()
	return nil
}

func (b *Boards) Search(ctx context.Context, keywords []string, location string) ([]domain.PostingCandidate, error) {
	var out []domain.PostingCandidate
	for _, site := range b.sites {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		found, err := b.searchSite(ctx, site, keywords)
		if err != nil {
			// one broken board must not sink the whole run
			b.log.Warn("board search failed",
				slog.String("site", site.Name),
				slog.String("err", err.Error()))
			continue
		}
		out = append(out, found...)
	}
	return out, nil
}

func (b *Boards) searchSite(ctx context.Context, site config.BoardSite, keywords []string) ([]domain.PostingCandidate, error) {
	doc, err := b.get(ctx, site.URL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(site.URL)
	if err != nil {
		return nil, fmt.Errorf("board url %q: %w", site.URL, err)
	}

	seen := map[string]bool{}
	var cands []domain.PostingCandidate
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if !looksLikePostingLink(abs) || seen[abs] {
			return
		}
		title := cleanText(a.Text())
		if title == "" || looksLikeJunkTitle(title) {
			return
		}
		if !matchesKeywords(title, keywords) {
			return
		}
		seen[abs] = true
		cands = append(cands, domain.PostingCandidate{
			Title:   title,
			Company: site.Name,
			URL:     abs,
			Source:  domain.SourceBoards,
		})
	})

	for i := range cands {
		if err := ctx.Err(); err != nil {
			return cands[:i], err
		}
		if err := b.hydrate(ctx, &cands[i]); err != nil {
			// keep the minimal entry; scoring copes with sparse fields
			b.log.Debug("board hydrate failed",
				slog.String("url", cands[i].URL),
				slog.String("err", err.Error()))
		}
	}
	return cands, nil
}

// hydrate fills location, description and contact from the detail page.
func (b *Boards) hydrate(ctx context.Context, c *domain.PostingCandidate) error {
	doc, err := b.get(ctx, c.URL)
	if err != nil {
		return err
	}

	if t := cleanText(doc.Find("h1").First().Text()); t != "" {
		c.Title = t
	}
	for _, sel := range []string{".location", "[data-qa='location']", "[itemprop='jobLocation']"} {
		if loc := cleanText(doc.Find(sel).First().Text()); loc != "" {
			c.Location = loc
			break
		}
	}
	for _, sel := range []string{"#content", ".description", "[itemprop='description']", "main"} {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			c.Description = cleanText(node.Text())
			break
		}
	}
	if sal := cleanText(doc.Find(".salary, [data-qa='salary']").First().Text()); sal != "" {
		c.Salary = sal
	}
	if c.ContactEmail == "" {
		if m := emailRe.FindString(c.Description); m != "" {
			c.ContactEmail = m
		}
	}
	c.RemoteOK = looksRemote(c.Location, c.Title, c.Description)
	return nil
}

func (b *Boards) get(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if b.limiter != nil {
		if err := b.limiter.WaitURL(ctx, rawURL); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := b.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("board get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("board status %d", res.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("board parse html: %w", err)
	}
	return doc, nil
}

func looksLikePostingLink(u string) bool {
	low := strings.ToLower(u)
	return strings.Contains(low, "/jobs/") || strings.Contains(low, "/careers/") ||
		strings.Contains(low, "/positions/") || strings.Contains(low, "/vagas/")
}

func looksLikeJunkTitle(t string) bool {
	l := strings.ToLower(t)
	return l == "apply" || l == "view" || strings.HasPrefix(l, "see all") ||
		strings.HasPrefix(l, "view all")
}
