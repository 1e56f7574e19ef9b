package geo

import (
	"strings"
	"unicode/utf8"
)

// aliasThreshold is the minimum similarity an alias-layer candidate needs.
// Below it the input falls through to the cache and geocoder layers.
const aliasThreshold = 0.8

// minFuzzyRunes guards the edit-distance comparison. Short phrases only
// match exactly: a four-rune word one edit away from a state name scores
// 0.75 at best, but words like "main" sit one edit from "maine" and must
// never fuzzy-match out of ordinary street addresses.
const minFuzzyRunes = 5

// stateAliases maps nicknames and safe shorthand forms to USPS codes.
// Single tokens that double as common English words ("mass", "jersey") are
// deliberately absent; they caused false positives on ordinary message text.
var stateAliases = map[string]string{
	// nicknames
	"golden state":    "CA",
	"garden state":    "NJ",
	"keystone state":  "PA",
	"bay state":       "MA",
	"sunshine state":  "FL",
	"empire state":    "NY",
	"evergreen state": "WA",
	"buckeye state":   "OH",
	"hoosier state":   "IN",
	"aloha state":     "HI",
	"wolverine state": "MI",
	"beehive state":   "UT",
	"granite state":   "NH",
	"ocean state":     "RI",
	"peach state":     "GA",
	"gem state":       "ID",
	"silver state":    "NV",
	"badger state":    "WI",
	"gopher state":    "MN",
	"magnolia state":  "MS",
	"pelican state":   "LA",
	// AP-style and colloquial abbreviations
	"cali":  "CA",
	"calif": "CA",
	"fla":   "FL",
	"ariz":  "AZ",
	"colo":  "CO",
	"okla":  "OK",
	"oreg":  "OR",
	"mich":  "MI",
	"minn":  "MN",
	"mont":  "MT",
	"nev":   "NV",
	"tenn":  "TN",
	"wyo":   "WY",
	"wisc":  "WI",
	"nebr":  "NE",
	"dc":    "DC",
	// recurring misspellings the edit-distance check cannot reach
	"tenesee": "TN",
}

// matchAlias is resolution layer 2: fuzzy matching of 1- and 2-word windows
// against the alias dictionary and the full state names. The best candidate
// wins if its similarity clears aliasThreshold; ties break on the smaller
// state code so results stay deterministic.
func matchAlias(text string) *ScopeMatch {
	toks := tokenize(text)
	if len(toks) == 0 {
		return nil
	}
	lower := make([]string, len(toks))
	for i, t := range toks {
		lower[i] = strings.ToLower(t)
	}

	best := 0.0
	bestCode := ""
	consider := func(score float64, code string) {
		if score > best || (score == best && bestCode != "" && code < bestCode) {
			best = score
			bestCode = code
		}
	}

	for window := 2; window >= 1; window-- {
		for i := 0; i+window <= len(lower); i++ {
			phrase := strings.Join(lower[i:i+window], " ")

			if code, ok := stateAliases[phrase]; ok {
				consider(1.0, code)
				continue
			}
			if utf8.RuneCountInString(phrase) < minFuzzyRunes {
				continue
			}
			for alias, code := range stateAliases {
				if s := similarity(phrase, alias); s >= aliasThreshold {
					consider(s, code)
				}
			}
			for name, code := range stateNames {
				if s := similarity(phrase, name); s >= aliasThreshold {
					consider(s, code)
				}
			}
		}
	}

	if best < aliasThreshold {
		return nil
	}
	return stateMatch(bestCode, best, MethodAlias)
}

// similarity is a normalized Levenshtein score in [0,1]: 1 for equal
// strings, 0 for completely different ones.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes the edit distance between a and b over runes using
// the two-row dynamic-programming form.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			ins := curr[j-1] + 1
			del := prev[j] + 1
			sub := prev[j-1] + cost
			m := ins
			if del < m {
				m = del
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
