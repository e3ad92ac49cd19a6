package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adamsnows/jobhunter-bot/internal/config"
	"github.com/adamsnows/jobhunter-bot/internal/domain"
)

func TestFeedSearchDecodesAndFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id":"1","text":"Backend Engineer","hostedUrl":"https://jobs.test/1",
			 "createdAt":1735689600000,
			 "categories":{"location":"Remote"},
			 "description":"Go and Postgres"},
			{"id":"2","title":"Sales Rep","url":"https://jobs.test/2",
			 "company":"OtherCo","description":"Quota carrying"},
			{"id":"3","text":"","hostedUrl":"https://jobs.test/3"}
		]`)
	}))
	defer srv.Close()

	f := NewFeed([]config.FeedSite{{Name: "TestCo", URL: srv.URL}}, testLogger())
	defer f.Close()

	got, err := f.Search(context.Background(), []string{"backend"}, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(got), got)
	}
	c := got[0]
	if c.Title != "Backend Engineer" {
		t.Errorf("title = %q", c.Title)
	}
	if c.Company != "TestCo" {
		t.Errorf("company fallback = %q, want feed name", c.Company)
	}
	if c.Location != "Remote" || !c.RemoteOK {
		t.Errorf("location/remote = %q/%v", c.Location, c.RemoteOK)
	}
	if c.Source != domain.SourceFeed {
		t.Errorf("source = %q", c.Source)
	}
	if c.PostedAt == nil {
		t.Error("createdAt not mapped to PostedAt")
	}
}

func TestFeedSearchSurvivesBadFeed(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"not":"an array"}`)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"1","title":"Go Developer","url":"https://jobs.test/1"}]`)
	}))
	defer good.Close()

	f := NewFeed([]config.FeedSite{
		{Name: "Bad", URL: bad.URL},
		{Name: "Good", URL: good.URL},
	}, testLogger())

	got, err := f.Search(context.Background(), []string{"go developer"}, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Go Developer" {
		t.Fatalf("expected the good feed's candidate, got %+v", got)
	}
}

func TestMatchesKeywords(t *testing.T) {
	cases := []struct {
		hay      string
		keywords []string
		want     bool
	}{
		{"Senior Backend Developer", []string{"backend developer"}, true},
		{"Backend Team Lead, developer tools", []string{"backend developer"}, true},
		{"Frontend Developer", []string{"backend developer"}, false},
		{"Anything", nil, true},
		{"Go Engineer", []string{"python", "go"}, true},
	}
	for _, tc := range cases {
		if got := matchesKeywords(tc.hay, tc.keywords); got != tc.want {
			t.Errorf("matchesKeywords(%q, %v) = %v, want %v", tc.hay, tc.keywords, got, tc.want)
		}
	}
}
