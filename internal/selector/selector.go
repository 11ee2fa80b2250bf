// Package selector decides which edition of a title is the canonical one.
package selector

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/lepinkainen/coverfetch/internal/book"
)

// Date is a (year, month, day) triple used only for ordering.
type Date struct {
	Year, Month, Day int
}

// Compare orders dates lexicographically by year, month and day.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return d.Year - other.Year
	case d.Month != other.Month:
		return d.Month - other.Month
	default:
		return d.Day - other.Day
	}
}

// ParseDate decomposes a free-form publication date. "Y" becomes (Y,1,1),
// "Y-M" becomes (Y,M,1) and "Y-M-D" or longer becomes (Y,M,D). Anything that
// does not fit returns the zero Date, which sorts as earliest.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	parts := strings.Split(s, "-")
	nums := make([]int, 0, 3)
	for _, p := range parts[:min(len(parts), 3)] {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Date{}
		}
		nums = append(nums, n)
	}
	switch len(nums) {
	case 1:
		return Date{Year: nums[0], Month: 1, Day: 1}
	case 2:
		return Date{Year: nums[0], Month: nums[1], Day: 1}
	default:
		return Date{Year: nums[0], Month: nums[1], Day: nums[2]}
	}
}

// SelectLatest returns the edition with the latest publication date. Ties keep
// input order. It returns false for an empty slice.
func SelectLatest(editions []book.Edition) (book.Edition, bool) {
	if len(editions) == 0 {
		return book.Edition{}, false
	}
	sorted := slices.Clone(editions)
	slices.SortStableFunc(sorted, func(a, b book.Edition) int {
		return ParseDate(b.PubDate).Compare(ParseDate(a.PubDate))
	})
	return sorted[0], true
}

var parenthesized = regexp.MustCompile(`[（(].*?[）)]`)

// NormalizeTitle strips parenthesized segments, the given edition markers and
// marker years, then removes all whitespace.
func NormalizeTitle(title string, markers []string) string {
	return normalize(title, compileMarkers(markers))
}

func normalize(title string, markers *regexp.Regexp) string {
	title = parenthesized.ReplaceAllString(title, "")
	title = markers.ReplaceAllString(title, "")
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, title)
}

// TitleMatch reports whether either normalized title contains the other,
// using DefaultMarkers.
func TitleMatch(a, b string) bool {
	return DefaultRules().Match(a, b)
}

func contains(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
