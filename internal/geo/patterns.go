package geo

import (
	"regexp"
	"strconv"
	"strings"
)

// districtCodeRE matches congressional district codes like "CA-12", "CA 12"
// or "CA12". State letters must be uppercase; lowercase pairs collide with
// too many English words ("in 5", "me 2") to be deterministic.
var districtCodeRE = regexp.MustCompile(`\b([A-Z]{2})[- ]?(\d{1,2})\b`)

// nationwideMarkers are single tokens that unambiguously mean the whole
// country, compared case-insensitively.
var nationwideMarkers = map[string]struct{}{
	"nationwide": {},
	"national":   {},
	"usa":        {},
	"america":    {},
	"federal":    {},
}

// matchPattern is resolution layer 1: deterministic, I/O-free patterns at
// confidence 1.0. Returns nil when nothing matches.
//
// Precedence within the layer runs most-specific first: district codes, then
// full state names, then uppercase state abbreviations, then nationwide
// markers.
func matchPattern(text string) *ScopeMatch {
	// District codes work on the raw text so casing is preserved.
	for _, m := range districtCodeRE.FindAllStringSubmatch(text, -1) {
		code := m[1]
		if !ValidStateCode(code) {
			continue
		}
		district, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		return districtMatch(code, district, 1.0, MethodPattern)
	}

	toks := tokenize(text)
	if len(toks) == 0 {
		return nil
	}
	lower := make([]string, len(toks))
	for i, t := range toks {
		lower[i] = strings.ToLower(t)
	}

	// Full state names, longest window first so "west virginia" wins over
	// the "virginia" inside it.
	for window := 3; window >= 1; window-- {
		for i := 0; i+window <= len(lower); i++ {
			name := strings.Join(lower[i:i+window], " ")
			if code, ok := stateNames[name]; ok {
				return stateMatch(code, 1.0, MethodPattern)
			}
		}
	}

	// Uppercase standalone abbreviations: "CA" is deterministic, "ca" is not.
	for _, tok := range toks {
		if len(tok) != 2 || tok != strings.ToUpper(tok) {
			continue
		}
		// Bare "US" is a country mention, not a state.
		if tok == "US" {
			return countryMatch(1.0, MethodPattern)
		}
		if ValidStateCode(tok) {
			return stateMatch(tok, 1.0, MethodPattern)
		}
	}

	// Nationwide markers, including dotted forms ("U.S.", "u.s.a.").
	for i, tok := range toks {
		if strings.Contains(tok, ".") {
			folded := strings.ReplaceAll(lower[i], ".", "")
			if folded == "us" || folded == "usa" {
				return countryMatch(1.0, MethodPattern)
			}
		}
		if _, ok := nationwideMarkers[lower[i]]; ok {
			return countryMatch(1.0, MethodPattern)
		}
	}
	for i := 0; i+2 <= len(lower); i++ {
		if lower[i] == "united" && lower[i+1] == "states" {
			return countryMatch(1.0, MethodPattern)
		}
	}

	return nil
}
