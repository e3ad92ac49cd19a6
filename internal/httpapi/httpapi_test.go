package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adamsnows/jobhunter-bot/internal/config"
	"github.com/adamsnows/jobhunter-bot/internal/domain"
	"github.com/adamsnows/jobhunter-bot/internal/events"
	"github.com/adamsnows/jobhunter-bot/internal/store"
)

func testDeps(t *testing.T) (Deps, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfgVal := &atomic.Value{}
	cfgVal.Store(config.Default())

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	return Deps{
		Store:       st,
		Hub:         events.NewHub(),
		Log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Loc:         time.UTC,
		CfgVal:      cfgVal,
		UserCfgPath: cfgPath,
		LoadCfg:     func() (config.Config, error) { return config.Load(cfgPath) },
	}, st
}

func seedPosting(t *testing.T, st *store.Store, url string) domain.Posting {
	t.Helper()
	id, _, err := st.UpsertPosting(context.Background(), domain.PostingCandidate{
		Title:   "Backend Engineer",
		Company: "Acme",
		URL:     url,
		Source:  domain.SourceFeed,
	}, time.Now())
	if err != nil {
		t.Fatalf("seed posting: %v", err)
	}
	p, err := st.GetPosting(context.Background(), id)
	if err != nil {
		t.Fatalf("get posting: %v", err)
	}
	return p
}

func TestHealth(t *testing.T) {
	d, _ := testDeps(t)
	srv := httptest.NewServer(New(d))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if res.Header.Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestPostingsListAndGet(t *testing.T) {
	d, st := testDeps(t)
	p := seedPosting(t, st, "https://jobs.test/1")
	seedPosting(t, st, "https://jobs.test/2")

	srv := httptest.NewServer(New(d))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/postings")
	if err != nil {
		t.Fatalf("GET /postings: %v", err)
	}
	defer res.Body.Close()
	var list []domain.Posting
	if err := json.NewDecoder(res.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("listed %d postings, want 2", len(list))
	}

	res2, err := http.Get(srv.URL + "/postings/" + p.ID)
	if err != nil {
		t.Fatalf("GET /postings/{id}: %v", err)
	}
	defer res2.Body.Close()
	var got domain.Posting
	if err := json.NewDecoder(res2.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != p.ID || got.Title != "Backend Engineer" {
		t.Fatalf("got %+v", got)
	}

	res3, err := http.Get(srv.URL + "/postings/nope")
	if err != nil {
		t.Fatalf("GET /postings/nope: %v", err)
	}
	defer res3.Body.Close()
	if res3.StatusCode != http.StatusNotFound {
		t.Fatalf("missing posting status = %d, want 404", res3.StatusCode)
	}
}

func TestPostingPatchStatus(t *testing.T) {
	d, st := testDeps(t)
	p := seedPosting(t, st, "https://jobs.test/1")
	srv := httptest.NewServer(New(d))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/postings/"+p.ID,
		strings.NewReader(`{"status":"archived"}`))
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}

	got, err := st.GetPosting(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetPosting: %v", err)
	}
	if got.Status != domain.PostingArchived {
		t.Fatalf("status = %q, want archived", got.Status)
	}

	// unknown status rejected
	req2, _ := http.NewRequest(http.MethodPatch, srv.URL+"/postings/"+p.ID,
		strings.NewReader(`{"status":"bogus"}`))
	res2, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatalf("PATCH: %v", err)
	}
	defer res2.Body.Close()
	if res2.StatusCode != http.StatusBadRequest {
		t.Fatalf("bogus status = %d, want 400", res2.StatusCode)
	}
}

func TestAttemptPatchTransitions(t *testing.T) {
	d, st := testDeps(t)
	p := seedPosting(t, st, "https://jobs.test/1")

	a := domain.NewAttempt(p.ID, domain.MethodEmail, time.Now())
	if err := st.CreateAttempt(context.Background(), a); err != nil {
		t.Fatalf("CreateAttempt: %v", err)
	}

	srv := httptest.NewServer(New(d))
	defer srv.Close()

	// pending -> read skips sent and must be rejected
	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/attempts/"+a.ID,
		strings.NewReader(`{"state":"read"}`))
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("illegal transition status = %d, want 409", res.StatusCode)
	}

	// pending -> sent is fine
	req2, _ := http.NewRequest(http.MethodPatch, srv.URL+"/attempts/"+a.ID,
		strings.NewReader(`{"state":"sent"}`))
	res2, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatalf("PATCH: %v", err)
	}
	defer res2.Body.Close()
	if res2.StatusCode != http.StatusOK {
		t.Fatalf("sent transition status = %d", res2.StatusCode)
	}

	// record a response
	req3, _ := http.NewRequest(http.MethodPatch, srv.URL+"/attempts/"+a.ID,
		strings.NewReader(`{"state":"responded","response":"let's talk","tone":"positive"}`))
	res3, err := http.DefaultClient.Do(req3)
	if err != nil {
		t.Fatalf("PATCH: %v", err)
	}
	defer res3.Body.Close()
	if res3.StatusCode != http.StatusOK {
		t.Fatalf("responded status = %d", res3.StatusCode)
	}

	got, err := st.GetAttempt(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetAttempt: %v", err)
	}
	if got.State != domain.AttemptResponded || got.ResponseContent != "let's talk" {
		t.Fatalf("attempt = %+v", got)
	}
}

func TestConfigGetAndPut(t *testing.T) {
	d, _ := testDeps(t)
	srv := httptest.NewServer(New(d))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/config")
	if err != nil {
		t.Fatalf("GET /config: %v", err)
	}
	defer res.Body.Close()
	var cur config.Config
	if err := json.NewDecoder(res.Body).Decode(&cur); err != nil {
		t.Fatalf("decode: %v", err)
	}

	cur.Outreach.MaxPerDay = 3
	body, _ := json.Marshal(cur)
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/config", strings.NewReader(string(body)))
	res2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT /config: %v", err)
	}
	defer res2.Body.Close()
	if res2.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(res2.Body)
		t.Fatalf("status = %d body=%s", res2.StatusCode, b)
	}

	live := d.CfgVal.Load().(config.Config)
	if live.Outreach.MaxPerDay != 3 {
		t.Fatalf("live config not swapped: %d", live.Outreach.MaxPerDay)
	}

	// invalid knob rejected
	cur.Outreach.MinScore = 250
	body, _ = json.Marshal(cur)
	req2, _ := http.NewRequest(http.MethodPut, srv.URL+"/config", strings.NewReader(string(body)))
	res3, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatalf("PUT /config: %v", err)
	}
	defer res3.Body.Close()
	if res3.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid config status = %d, want 400", res3.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	d, _ := testDeps(t)
	srv := httptest.NewServer(New(d))
	defer srv.Close()

	res, err := http.Post(srv.URL+"/postings", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /postings: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", res.StatusCode)
	}
}
