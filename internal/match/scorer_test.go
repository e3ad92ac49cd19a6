package match

import (
	"testing"

	"github.com/adamsnows/jobhunter-bot/internal/domain"
)

func testProfile() domain.Profile {
	return domain.Profile{
		Skills:              []string{"python", "docker", "kubernetes"},
		PreferredRoles:      []string{"backend developer"},
		LocationPreferences: []string{"são paulo", "sp"},
		RegionAliases:       []string{"brasil", "brazil"},
		SalaryMin:           8000,
		SalaryMax:           15000,
	}
}

// Remote posting matching 2/3 skills, exact preferred title, in-band salary,
// unremarkable company: 0.4*66.7 + 0.25*100 + 0.15*100 + 0.1*100 + 0.1*60.
func TestScore_RemoteInBandExactTitle(t *testing.T) {
	p := domain.Posting{
		Title:       "Backend Developer",
		Company:     "Acme Corp",
		Location:    "Remote",
		Description: "We use python and docker in production.",
		Salary:      "8k-12k",
	}
	got := WeightedScorer{}.Score(p, testProfile())
	if got < 82.6 || got > 82.8 {
		t.Fatalf("score = %v, want ≈82.7", got)
	}
}

func TestScore_BoundsOnDegenerateInputs(t *testing.T) {
	scorer := WeightedScorer{}
	postings := []domain.Posting{
		{},
		{Title: "???", Salary: "competitive"},
		{Title: "Backend Developer", Description: "python docker kubernetes", Location: "remote", Salary: "12k", Company: "google"},
	}
	profiles := []domain.Profile{
		{},
		testProfile(),
		{Skills: []string{"cobol"}, SalaryMin: 1, SalaryMax: 2},
	}
	for _, p := range postings {
		for _, prof := range profiles {
			s := scorer.Score(p, prof)
			if s < 0 || s > 100 {
				t.Errorf("score out of bounds: %v for posting %+v", s, p)
			}
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	p := domain.Posting{Title: "Software Engineer", Description: "go, sql", Location: "São Paulo, SP", Salary: "R$ 9.000"}
	prof := testProfile()
	a := WeightedScorer{}.Score(p, prof)
	b := WeightedScorer{}.Score(p, prof)
	if a != b {
		t.Fatalf("scoring is not deterministic: %v vs %v", a, b)
	}
}

func TestTitleScore(t *testing.T) {
	roles := []string{"backend developer"}
	cases := []struct {
		title string
		want  float64
	}{
		{"Senior Backend Developer", 100},
		{"Backend Wizard", 40}, // 1/2 tokens * 80
		{"Platform Engineer", 50},
		{"Gardener", 20},
	}
	for _, c := range cases {
		if got := titleScore(c.title, roles); got != c.want {
			t.Errorf("titleScore(%q) = %v, want %v", c.title, got, c.want)
		}
	}
}

func TestLocationScore(t *testing.T) {
	prof := testProfile()
	cases := []struct {
		loc  string
		want float64
	}{
		{"Remote - LATAM", 100},
		{"São Paulo, SP", 90},
		{"Campinas, Brasil", 70},
		{"Berlin, Germany", 30},
		{"", 50},
	}
	for _, c := range cases {
		if got := locationScore(c.loc, prof); got != c.want {
			t.Errorf("locationScore(%q) = %v, want %v", c.loc, got, c.want)
		}
	}
}

func TestSalaryScore(t *testing.T) {
	cases := []struct {
		salary string
		want   float64
	}{
		{"8k-12k", 100},    // max in band
		{"R$ 20.000", 80},  // above band
		{"3k", 30},         // below band
		{"", 50},           // missing
		{"competitive", 50}, // unparsable
		{"9000", 100},      // already absolute
	}
	for _, c := range cases {
		if got := salaryScore(c.salary, 8000, 15000); got != c.want {
			t.Errorf("salaryScore(%q) = %v, want %v", c.salary, got, c.want)
		}
	}
}

func TestCompanyScore(t *testing.T) {
	cases := []struct {
		company string
		want    float64
	}{
		{"Google Brasil", 90},
		{"PayFast Fintech", 75},
		{"Acme Corp", 60},
		{"", 50},
	}
	for _, c := range cases {
		if got := companyScore(c.company); got != c.want {
			t.Errorf("companyScore(%q) = %v, want %v", c.company, got, c.want)
		}
	}
}

func TestSkillsScore_SynonymExpansion(t *testing.T) {
	// "django" alone must count as a python hit
	got := skillsScore("we are a django shop", []string{"python"})
	if got != 100 {
		t.Errorf("synonym expansion failed: %v", got)
	}
	if got := skillsScore("", nil); got != 0 {
		t.Errorf("empty profile skills = %v, want 0", got)
	}
}
