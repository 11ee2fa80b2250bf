package selector

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/lepinkainen/coverfetch/internal/errors"
)

// DefaultYearCutoff is the last publication year that is rejected.
const DefaultYearCutoff = 2015

// DefaultMarkers are the edition-marker tokens stripped before titles are compared.
var DefaultMarkers = []string{
	"新版", "精装", "典藏", "定本",
	"new edition", "hardcover", "collector's edition", "definitive edition",
}

// Marker years 2010 through 2021 are always stripped along with the tokens.
const (
	firstMarkerYear = 2010
	lastMarkerYear  = 2021
)

var yearPattern = regexp.MustCompile(`\d{4}`)

// Rules holds the business rules used to accept or reject an edition.
type Rules struct {
	// YearCutoff rejects editions published in this year or earlier.
	YearCutoff int
	// Markers are removed from titles before matching.
	Markers []string

	markerPattern *regexp.Regexp
}

// DefaultRules returns the rules with the stock cutoff and marker list.
func DefaultRules() *Rules {
	return NewRules(DefaultYearCutoff, nil)
}

// NewRules builds Rules from a cutoff and extra markers appended to DefaultMarkers.
// A cutoff of zero selects DefaultYearCutoff.
func NewRules(yearCutoff int, extraMarkers []string) *Rules {
	if yearCutoff == 0 {
		yearCutoff = DefaultYearCutoff
	}
	markers := make([]string, 0, len(DefaultMarkers)+len(extraMarkers))
	markers = append(markers, DefaultMarkers...)
	for _, m := range extraMarkers {
		if m != "" {
			markers = append(markers, m)
		}
	}
	return &Rules{
		YearCutoff:    yearCutoff,
		Markers:       markers,
		markerPattern: compileMarkers(markers),
	}
}

func compileMarkers(markers []string) *regexp.Regexp {
	pattern := ""
	for _, m := range markers {
		pattern += regexp.QuoteMeta(m) + "|"
	}
	for year := firstMarkerYear; year <= lastMarkerYear; year++ {
		pattern += strconv.Itoa(year) + "|"
	}
	return regexp.MustCompile("(?i)(" + pattern[:len(pattern)-1] + ")")
}

func (r *Rules) pattern() *regexp.Regexp {
	if r.markerPattern == nil {
		r.markerPattern = compileMarkers(r.Markers)
	}
	return r.markerPattern
}

// Normalize applies NormalizeTitle with these rules' markers.
func (r *Rules) Normalize(title string) string {
	return normalize(title, r.pattern())
}

// Match reports whether two titles refer to the same work under these rules.
func (r *Rules) Match(a, b string) bool {
	return contains(r.Normalize(a), r.Normalize(b))
}

// CheckYear returns a ValidationError unless pubdate carries a four-digit year
// later than the cutoff.
func (r *Rules) CheckYear(pubdate string) error {
	year, ok := YearOf(pubdate)
	if !ok {
		return errors.NewValidationError("pubdate", fmt.Sprintf("cannot determine year from %q", pubdate))
	}
	if year <= r.YearCutoff {
		return errors.NewValidationError("pubdate", fmt.Sprintf("year %d is not after %d", year, r.YearCutoff))
	}
	return nil
}

// CheckTitle returns a ValidationError when pageTitle does not match expected.
func (r *Rules) CheckTitle(pageTitle, expected string) error {
	if !r.Match(pageTitle, expected) {
		return errors.NewValidationError("title", fmt.Sprintf("%q does not match %q", pageTitle, expected))
	}
	return nil
}

// YearOf returns the first four-digit number found in pubdate.
func YearOf(pubdate string) (int, bool) {
	match := yearPattern.FindString(pubdate)
	if match == "" {
		return 0, false
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return year, true
}
