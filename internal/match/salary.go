package match

import (
	"regexp"
	"strconv"
	"strings"
)

var salaryNumRe = regexp.MustCompile(`[\d.]+`)

// salaryScore grades a free-text salary hint against the profile band.
// Unparsable or missing text is neutral rather than penalized.
//
// Values below 100 are assumed to be expressed in thousands ("8k-12k" style
// postings) and are scaled by 1000. This is a best-effort heuristic carried
// over from how sources actually write salaries; anything it cannot make
// sense of scores neutral instead of guessing further.
func salaryScore(salary string, min, max float64) float64 {
	s := strings.TrimSpace(salary)
	if s == "" {
		return 50
	}

	// "8k" and "8.000"-style separators both end up as parseable numbers
	s = strings.ReplaceAll(strings.ToLower(s), ",", ".")
	s = strings.ReplaceAll(s, "k", "")

	tokens := salaryNumRe.FindAllString(s, -1)
	if len(tokens) == 0 {
		return 50
	}

	best := 0.0
	parsed := false
	for _, tok := range tokens {
		v, err := strconv.ParseFloat(strings.Trim(tok, "."), 64)
		if err != nil {
			continue
		}
		parsed = true
		if v > best {
			best = v
		}
	}
	if !parsed || best == 0 {
		return 50
	}

	if best < 100 {
		best *= 1000
	}

	switch {
	case best >= min && best <= max:
		return 100
	case best > max:
		return 80
	default:
		return 30
	}
}
