// Package match computes the compatibility score between a posting and the
// operator profile. Scoring is pure: the same inputs always produce the
// same score.
package match

import (
	"math"
	"strings"

	"github.com/adamsnows/jobhunter-bot/internal/domain"
)

// Weights for the five sub-scores. They sum to 1.0.
const (
	weightSkills   = 0.40
	weightTitle    = 0.25
	weightLocation = 0.15
	weightSalary   = 0.10
	weightCompany  = 0.10
)

// skillSynonyms expands a profile skill to a synonym set so that
// "python" also hits postings that only mention django or flask.
var skillSynonyms = map[string][]string{
	"python":           {"python", "django", "flask", "fastapi"},
	"javascript":       {"javascript", "js", "node.js", "nodejs", "react", "vue", "angular"},
	"java":             {"java", "spring", "springboot"},
	"go":               {"go", "golang"},
	"docker":           {"docker", "containers", "containerization"},
	"kubernetes":       {"kubernetes", "k8s", "orchestration"},
	"aws":              {"aws", "amazon web services", "ec2", "s3", "lambda"},
	"sql":              {"sql", "mysql", "postgresql", "postgres", "database"},
	"machine learning": {"ml", "machine learning", "ai", "artificial intelligence"},
	"devops":           {"devops", "ci/cd", "jenkins", "gitlab"},
	"git":              {"git", "github", "gitlab", "version control"},
}

var genericRoleWords = []string{"developer", "engineer", "programmer", "analyst"}

var remoteIndicators = []string{"remote", "remoto", "home office", "anywhere"}

// Well-known employers score higher; startup-looking names get partial
// credit; everything else gets the default tier.
var reputableCompanies = []string{
	"google", "microsoft", "amazon", "meta", "apple", "netflix",
	"uber", "airbnb", "spotify", "slack", "github", "gitlab",
	"nubank", "stone", "mercadolivre", "ifood",
}

var startupIndicators = []string{"startup", "fintech", "tech", "software", "digital", "labs"}

// Scorer is the ranking capability the orchestrator depends on.
type Scorer interface {
	Score(p domain.Posting, prof domain.Profile) float64
}

// WeightedScorer implements the five-part weighted score.
type WeightedScorer struct{}

// Score returns a compatibility score in [0,100], rounded to one decimal.
func (WeightedScorer) Score(p domain.Posting, prof domain.Profile) float64 {
	text := strings.ToLower(p.Title + " " + p.Description + " " + p.Requirements)

	score := weightSkills*skillsScore(text, prof.Skills) +
		weightTitle*titleScore(p.Title, prof.PreferredRoles) +
		weightLocation*locationScore(p.Location, prof) +
		weightSalary*salaryScore(p.Salary, prof.SalaryMin, prof.SalaryMax) +
		weightCompany*companyScore(p.Company)

	score = math.Max(0, math.Min(100, score))
	return math.Round(score*10) / 10
}

func skillsScore(text string, skills []string) float64 {
	if len(skills) == 0 {
		return 0
	}
	matched := 0
	for _, skill := range skills {
		key := strings.ToLower(strings.TrimSpace(skill))
		variants, ok := skillSynonyms[key]
		if !ok {
			variants = []string{key}
		}
		for _, v := range variants {
			if v != "" && strings.Contains(text, v) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(skills)) * 100
}

func titleScore(title string, roles []string) float64 {
	lt := strings.ToLower(title)

	for _, role := range roles {
		words := strings.Fields(strings.ToLower(role))
		if len(words) == 0 {
			continue
		}
		matched := 0
		for _, w := range words {
			if strings.Contains(lt, w) {
				matched++
			}
		}
		if matched == len(words) {
			return 100
		}
		if matched > 0 {
			return float64(matched) / float64(len(words)) * 80
		}
	}

	for _, w := range genericRoleWords {
		if strings.Contains(lt, w) {
			return 50
		}
	}
	return 20
}

func locationScore(location string, prof domain.Profile) float64 {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return 50 // unknown location is neutral
	}

	for _, r := range remoteIndicators {
		if strings.Contains(loc, r) {
			return 100
		}
	}
	for _, pref := range prof.LocationPreferences {
		if p := strings.ToLower(strings.TrimSpace(pref)); p != "" && strings.Contains(loc, p) {
			return 90
		}
	}
	for _, region := range prof.RegionAliases {
		if r := strings.ToLower(strings.TrimSpace(region)); r != "" && strings.Contains(loc, r) {
			return 70
		}
	}
	return 30
}

func companyScore(company string) float64 {
	c := strings.ToLower(strings.TrimSpace(company))
	if c == "" {
		return 50
	}
	for _, known := range reputableCompanies {
		if strings.Contains(c, known) {
			return 90
		}
	}
	for _, ind := range startupIndicators {
		if strings.Contains(c, ind) {
			return 75
		}
	}
	return 60
}
