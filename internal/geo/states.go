package geo

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stateNames maps lowercase full state/territory names to USPS codes.
// Territories with non-voting delegates are included; the office directory
// decides what representation each jurisdiction actually has.
var stateNames = map[string]string{
	"alabama":              "AL",
	"alaska":               "AK",
	"arizona":              "AZ",
	"arkansas":             "AR",
	"california":           "CA",
	"colorado":             "CO",
	"connecticut":          "CT",
	"delaware":             "DE",
	"florida":              "FL",
	"georgia":              "GA",
	"hawaii":               "HI",
	"idaho":                "ID",
	"illinois":             "IL",
	"indiana":              "IN",
	"iowa":                 "IA",
	"kansas":               "KS",
	"kentucky":             "KY",
	"louisiana":            "LA",
	"maine":                "ME",
	"maryland":             "MD",
	"massachusetts":        "MA",
	"michigan":             "MI",
	"minnesota":            "MN",
	"mississippi":          "MS",
	"missouri":             "MO",
	"montana":              "MT",
	"nebraska":             "NE",
	"nevada":               "NV",
	"new hampshire":        "NH",
	"new jersey":           "NJ",
	"new mexico":           "NM",
	"new york":             "NY",
	"north carolina":       "NC",
	"north dakota":         "ND",
	"ohio":                 "OH",
	"oklahoma":             "OK",
	"oregon":               "OR",
	"pennsylvania":         "PA",
	"rhode island":         "RI",
	"south carolina":       "SC",
	"south dakota":         "SD",
	"tennessee":            "TN",
	"texas":                "TX",
	"utah":                 "UT",
	"vermont":              "VT",
	"virginia":             "VA",
	"washington":           "WA",
	"west virginia":        "WV",
	"wisconsin":            "WI",
	"wyoming":              "WY",
	"district of columbia": "DC",
	// two-token forms so "washington dc" does not resolve to WA
	"washington dc":  "DC",
	"washington d.c": "DC",
	// territories
	"puerto rico":              "PR",
	"guam":                     "GU",
	"virgin islands":           "VI",
	"american samoa":           "AS",
	"northern mariana islands": "MP",
}

// stateCodes is the set of valid USPS codes, derived from stateNames.
var stateCodes = func() map[string]struct{} {
	m := make(map[string]struct{}, len(stateNames))
	for _, code := range stateNames {
		m[code] = struct{}{}
	}
	return m
}()

// codeToName is the reverse of stateNames (lowercase names). Codes with
// several spellings keep the longest one, which is the canonical form.
var codeToName = func() map[string]string {
	m := make(map[string]string, len(stateNames))
	for name, code := range stateNames {
		if cur, ok := m[code]; !ok || len(name) > len(cur) {
			m[code] = name
		}
	}
	return m
}()

// ValidStateCode reports whether code is a known USPS state/territory code.
func ValidStateCode(code string) bool {
	_, ok := stateCodes[strings.ToUpper(code)]
	return ok
}

var stateTitleCaser = cases.Title(language.AmericanEnglish)

// StateName returns the display name for a USPS code ("CA" -> "California").
// Unknown codes are returned unchanged.
func StateName(code string) string {
	name, ok := codeToName[strings.ToUpper(code)]
	if !ok {
		return code
	}
	title := stateTitleCaser.String(name)
	// Keep the particle lowercase ("District of Columbia").
	return strings.ReplaceAll(title, " Of ", " of ")
}
