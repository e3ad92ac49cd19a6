package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// DedupKey returns the canonical identity of a candidate: the canonicalized
// URL when one exists, otherwise source+company+title. Two sightings of the
// same posting from search results with different tracking params collapse
// to the same key.
func (c PostingCandidate) DedupKey() string {
	if u := CanonicalURL(c.URL); u != "" {
		return u
	}
	return strings.ToLower(string(c.Source) + "|" + strings.TrimSpace(c.Company) + "|" + strings.TrimSpace(c.Title))
}

// PostingID derives the stable row id from a dedup key.
func PostingID(dedupKey string) string {
	sum := sha256.Sum256([]byte(dedupKey))
	return hex.EncodeToString(sum[:])[:16]
}

// CanonicalURL lowercases scheme/host, drops the fragment and tracking
// query params, and sorts the remaining query for a deterministic string.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") ||
			lk == "gclid" || lk == "fbclid" || lk == "msclkid" ||
			lk == "mc_cid" || lk == "mc_eid" ||
			lk == "mkt_tok" || lk == "ref" {
			q.Del(k)
		}
	}

	// deterministic query
	for k := range q {
		vals := q[k]
		sort.Strings(vals)
		q[k] = vals
	}
	u.RawQuery = q.Encode()
	return strings.TrimSuffix(u.String(), "/")
}
