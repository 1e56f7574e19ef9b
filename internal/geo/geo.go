// Package geo resolves free-text location mentions ("CA-12", "California",
// "123 Main St, Sacramento") into legislative jurisdictions. Resolution is
// layered, cheapest first:
//
//  1. Deterministic patterns: district codes, state names, uppercase state
//     abbreviations, nationwide markers. No I/O, confidence 1.0.
//  2. Fuzzy alias matching over a static dictionary of nicknames and common
//     misspellings, accepted at similarity >= 0.8.
//  3. A TTL cache of previous geocoder answers, keyed by the exact
//     normalized input text.
//  4. An external geocoding call behind a hard self-imposed request budget;
//     when the budget is exhausted or the call fails, a low-confidence
//     country-level fallback is returned instead of an error.
//
// Layers 1 and 2 are dependency-free on purpose: they answer the
// overwhelming majority of inputs in microseconds, and only uncached
// free-form street addresses ever reach the network.
package geo

import (
	"regexp"
	"strings"
)

// Level is the granularity of a resolved jurisdiction.
type Level string

// Jurisdiction levels.
const (
	LevelDistrict Level = "district"
	LevelState    Level = "state"
	LevelCountry  Level = "country"
)

// Method records which resolution layer produced a match.
type Method string

// Resolution methods.
const (
	MethodPattern  Method = "pattern"
	MethodAlias    Method = "alias"
	MethodCache    Method = "cache"
	MethodGeocoder Method = "geocoder"
	MethodFallback Method = "fallback"
)

// Jurisdiction identifies a legislative scope. State is the two-letter USPS
// code and is set for district and state levels; District is set only at
// district level (0 means at-large). CountryCode is always populated.
type Jurisdiction struct {
	Level       Level  `json:"level"`
	State       string `json:"state,omitempty"`
	District    int    `json:"district,omitempty"`
	CountryCode string `json:"country_code"`
}

// ScopeMatch is the outcome of one resolution: a jurisdiction plus how sure
// the resolver is and which layer answered. Jurisdiction is embedded, so
// callers read match.State and match.Level directly.
type ScopeMatch struct {
	Jurisdiction `json:"jurisdiction"`
	Confidence   float64 `json:"confidence"`
	Method       Method  `json:"method"`
}

// countryUS is the only country this resolver knows about.
const countryUS = "US"

// districtMatch builds a district-level ScopeMatch.
func districtMatch(state string, district int, confidence float64, method Method) *ScopeMatch {
	return &ScopeMatch{
		Jurisdiction: Jurisdiction{Level: LevelDistrict, State: state, District: district, CountryCode: countryUS},
		Confidence:   confidence,
		Method:       method,
	}
}

// stateMatch builds a state-level ScopeMatch.
func stateMatch(state string, confidence float64, method Method) *ScopeMatch {
	return &ScopeMatch{
		Jurisdiction: Jurisdiction{Level: LevelState, State: state, CountryCode: countryUS},
		Confidence:   confidence,
		Method:       method,
	}
}

// countryMatch builds a country-level ScopeMatch.
func countryMatch(confidence float64, method Method) *ScopeMatch {
	return &ScopeMatch{
		Jurisdiction: Jurisdiction{Level: LevelCountry, CountryCode: countryUS},
		Confidence:   confidence,
		Method:       method,
	}
}

// ----------------------------------------------------------------------------
// Text helpers shared by the resolution layers

// tokenRE extracts word tokens, keeping internal dots so dotted
// abbreviations like "U.S." survive as one token.
var tokenRE = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}.]*`)

// tokenize splits text into tokens preserving their original case.
// Trailing dots are trimmed so sentence punctuation does not leak in.
func tokenize(text string) []string {
	raw := tokenRE.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if t := strings.TrimRight(tok, "."); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeKey canonicalizes text for cache keys and fuzzy comparison:
// lowercase with runs of whitespace collapsed to single spaces.
func normalizeKey(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
