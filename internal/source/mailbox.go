package source

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/adamsnows/jobhunter-bot/internal/config"
	"github.com/adamsnows/jobhunter-bot/internal/domain"
)

var linkRe = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// Mailbox reads unseen job-alert emails over IMAP and turns the links
// inside them into posting candidates. Processed messages are marked
// \Seen so the next cycle skips them.
type Mailbox struct {
	cfg      config.MailboxConfig
	password func(account string) (string, error)
	log      *slog.Logger
}

func NewMailbox(cfg config.MailboxConfig, password func(account string) (string, error), log *slog.Logger) *Mailbox {
	return &Mailbox{cfg: cfg, password: password, log: log}
}

func (m *Mailbox) Name() string { return string(domain.SourceMailbox) }

func (m *Mailbox) Close() error { return nil }

func (m *Mailbox) Search(ctx context.Context, keywords []string, location string) ([]domain.PostingCandidate, error) {
	pass, err := m.password(m.cfg.KeyringAccount)
	if err != nil {
		return nil, fmt.Errorf("mailbox credential: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.IMAPHost, m.cfg.IMAPPort)
	c, err := dialIMAP(ctx, addr, m.cfg.IMAPHost, m.cfg.Username, pass)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := c.Logout().Wait(); err != nil {
			m.log.Debug("imap logout", slog.String("err", err.Error()))
		}
		_ = c.Close()
	}()

	box := m.cfg.Mailbox
	if box == "" {
		box = "INBOX"
	}
	if _, err := c.Select(box, &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", box, err)
	}

	msgs, err := fetchUnseen(ctx, c, 50)
	if err != nil {
		return nil, err
	}

	var out []domain.PostingCandidate
	var processed []imap.UID
	for _, msg := range msgs {
		if !m.alertSubject(msg.subject) {
			continue
		}
		cands := parseAlertMessage(msg.subject, msg.from, msg.body, msg.date)
		for _, c := range cands {
			if matchesKeywords(c.Title+" "+c.Description, keywords) {
				out = append(out, c)
			}
		}
		processed = append(processed, msg.uid)
	}

	if len(processed) > 0 {
		if err := markSeen(c, processed); err != nil {
			m.log.Warn("imap mark seen failed", slog.String("err", err.Error()))
		}
	}
	return out, nil
}

// alertSubject reports whether a subject line matches the configured
// alert markers. No markers configured means every unseen mail is tried.
func (m *Mailbox) alertSubject(subject string) bool {
	if len(m.cfg.SubjectAny) == 0 {
		return true
	}
	low := strings.ToLower(subject)
	for _, marker := range m.cfg.SubjectAny {
		if strings.Contains(low, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

type alertMessage struct {
	uid     imap.UID
	from    string
	subject string
	date    time.Time
	body    string
}

func dialIMAP(ctx context.Context, addr, serverName, username, password string) (*imapclient.Client, error) {
	if username == "" || password == "" {
		return nil, errors.New("imap username/password is required")
	}
	c, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: serverName},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()
	if err := c.Login(username, password).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

// fetchUnseen pulls up to max unseen messages newest first, using
// BODY.PEEK[] so nothing is flagged \Seen until we actually parsed it.
func fetchUnseen(ctx context.Context, c *imapclient.Client, max int) ([]alertMessage, error) {
	cutoff := time.Now().AddDate(0, -1, 0)
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   cutoff,
	}
	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search unseen: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if len(uids) > max {
		uids = uids[:max]
	}

	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	var out []alertMessage
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		msg := alertMessage{uid: buf.UID}
		if buf.Envelope != nil {
			msg.subject = buf.Envelope.Subject
			msg.date = buf.Envelope.Date
			msg.from = joinAddrs(buf.Envelope.From)
		}
		if raw := buf.FindBodySection(bodyAll); len(raw) > 0 {
			msg.body = extractTextBody(raw)
			if msg.subject == "" || msg.from == "" {
				subj, from, date := headersFallback(raw)
				if msg.subject == "" {
					msg.subject = subj
				}
				if msg.from == "" {
					msg.from = from
				}
				if msg.date.IsZero() {
					msg.date = date
				}
			}
		}
		out = append(out, msg)
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return out, nil
}

func markSeen(c *imapclient.Client, uids []imap.UID) error {
	cmd := c.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("imap store add seen: %w", err)
	}
	return nil
}

// parseAlertMessage turns one alert email into candidates: every job
// link in the body becomes a candidate, titled from the line that
// precedes it, falling back to the subject.
func parseAlertMessage(subject, from, body string, date time.Time) []domain.PostingCandidate {
	links := linkRe.FindAllString(body, -1)
	if len(links) == 0 {
		return nil
	}

	fallbackTitle, company := splitAlertSubject(subject)
	if company == "" {
		company = senderDomain(from)
	}

	var postedAt *time.Time
	if !date.IsZero() {
		d := date
		postedAt = &d
	}

	seen := map[string]bool{}
	var out []domain.PostingCandidate
	for _, link := range links {
		link = strings.TrimRight(link, ".,;")
		if seen[link] || !looksLikePostingLink(link) {
			continue
		}
		seen[link] = true

		title := titleNear(body, link)
		if title == "" {
			title = fallbackTitle
		}
		if title == "" {
			continue
		}
		out = append(out, domain.PostingCandidate{
			Title:        title,
			Company:      company,
			Description:  cleanText(body),
			URL:          link,
			ContactEmail: emailRe.FindString(from),
			Source:       domain.SourceMailbox,
			RemoteOK:     looksRemote(subject, body),
			PostedAt:     postedAt,
		})
	}
	return out
}

// splitAlertSubject handles the common "<title> at <company>" and
// "Job alert: <title>" subject shapes.
func splitAlertSubject(subject string) (title, company string) {
	s := cleanText(subject)
	for _, prefix := range []string{"job alert:", "new jobs:", "new job:", "vaga:", "oportunidade:"} {
		if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			s = cleanText(s[len(prefix):])
			break
		}
	}
	if i := strings.LastIndex(strings.ToLower(s), " at "); i > 0 {
		return cleanText(s[:i]), cleanText(s[i+4:])
	}
	return s, ""
}

// titleNear returns the last non-empty, non-link line before the link.
func titleNear(body, link string) string {
	idx := strings.Index(body, link)
	if idx < 0 {
		return ""
	}
	var prev string
	sc := bufio.NewScanner(strings.NewReader(body[:idx]))
	for sc.Scan() {
		line := cleanText(sc.Text())
		if line == "" || linkRe.MatchString(line) {
			continue
		}
		prev = line
	}
	if len(prev) > 120 {
		return ""
	}
	return prev
}

func senderDomain(from string) string {
	addr := emailRe.FindString(from)
	if addr == "" {
		return ""
	}
	host := addr[strings.Index(addr, "@")+1:]
	host = strings.TrimSuffix(host, ".com")
	if i := strings.Index(host, "."); i > 0 {
		host = host[:i]
	}
	return host
}

// extractTextBody pulls the readable part out of raw RFC822 bytes. HTML
// and attachments are left alone; the link regex works on either.
func extractTextBody(raw []byte) string {
	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		return string(raw)
	}
	var b strings.Builder
	sc := bufio.NewScanner(msg.Body)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		b.WriteString(sc.Text())
		b.WriteByte('\n')
	}
	return b.String()
}

func headersFallback(raw []byte) (subject, from string, date time.Time) {
	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		return "", "", time.Time{}
	}
	h := msg.Header
	subject = h.Get("Subject")
	from = h.Get("From")
	if ds := h.Get("Date"); ds != "" {
		if t, err := mail.ParseDate(ds); err == nil {
			date = t
		}
	}
	return
}

func joinAddrs(addrs []imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for i := range addrs {
		a := &addrs[i]
		addr := strings.TrimSpace(a.Addr())
		if addr == "" {
			addr = strings.TrimSpace(a.Name)
		}
		if addr != "" {
			parts = append(parts, addr)
		}
	}
	return strings.Join(parts, ", ")
}
