package extract

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Rule extracts one field value from a parsed document. The first rule in a
// chain that reports ok wins.
type Rule[T any] struct {
	Name    string
	Extract func(doc *goquery.Document) (T, bool)
}

// firstMatch runs the rules in order and returns the first hit.
func firstMatch[T any](doc *goquery.Document, field string, rules []Rule[T]) (T, bool) {
	for i, rule := range rules {
		if value, ok := rule.Extract(doc); ok {
			if i > 0 {
				slog.Debug("Field matched fallback rule", "field", field, "rule", rule.Name)
			}
			return value, true
		}
	}
	var zero T
	slog.Debug("No rule matched", "field", field)
	return zero, false
}

func textRule(name, selector string) Rule[string] {
	return Rule[string]{
		Name: name,
		Extract: func(doc *goquery.Document) (string, bool) {
			text := cleanText(doc.Find(selector).First().Text())
			return text, text != ""
		},
	}
}

func attrRule(name, selector, attr string) Rule[string] {
	return Rule[string]{
		Name: name,
		Extract: func(doc *goquery.Document) (string, bool) {
			value, ok := doc.Find(selector).First().Attr(attr)
			value = strings.TrimSpace(value)
			return value, ok && value != ""
		},
	}
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// TitleRules locate the page heading.
var TitleRules = []Rule[string]{
	textRule("h1", "h1"),
}

// AuthorRules locate the author names.
var AuthorRules = []Rule[[]string]{
	{Name: "a[name=author]", Extract: func(doc *goquery.Document) ([]string, bool) {
		return texts(doc.Find("a[name=author]"))
	}},
	{Name: "info author label", Extract: func(doc *goquery.Document) ([]string, bool) {
		label := labelSpan(doc, "作者")
		if label.Length() == 0 {
			return nil, false
		}
		return texts(label.NextUntil("br, span.pl").Filter("a"))
	}},
	{Name: "info author link", Extract: func(doc *goquery.Document) ([]string, bool) {
		return texts(doc.Find(`#info a[href*="/author/"]`))
	}},
}

// PublisherRules locate the publisher name.
var PublisherRules = []Rule[string]{
	{Name: "publisher label link", Extract: func(doc *goquery.Document) (string, bool) {
		text := cleanText(labelSpan(doc, "出版社").NextFiltered("a").Text())
		return text, text != ""
	}},
	{Name: "publisher label text", Extract: func(doc *goquery.Document) (string, bool) {
		text := followingText(labelSpan(doc, "出版社"))
		return text, text != ""
	}},
}

// PubDateRules locate the publication date.
var PubDateRules = []Rule[string]{
	{Name: "pubdate label text", Extract: func(doc *goquery.Document) (string, bool) {
		text := followingText(labelSpan(doc, "出版年"))
		return text, text != ""
	}},
	{Name: "pubdate parent year", Extract: func(doc *goquery.Document) (string, bool) {
		label := labelSpan(doc, "出版年")
		if label.Length() == 0 {
			return "", false
		}
		year := yearPattern.FindString(label.Parent().Text())
		return year, year != ""
	}},
}

// CoverRules locate the cover image. The first rule matches an image whose
// title attribute equals the search result title.
func CoverRules(candidateTitle string) []Rule[string] {
	return []Rule[string]{
		{Name: "img[title]", Extract: func(doc *goquery.Document) (string, bool) {
			if candidateTitle == "" {
				return "", false
			}
			img := doc.Find("img[title]").FilterFunction(func(_ int, s *goquery.Selection) bool {
				title, _ := s.Attr("title")
				return title == candidateTitle
			}).First()
			src, ok := img.Attr("src")
			return src, ok && src != ""
		}},
		attrRule("#mainpic img", "#mainpic img", "src"),
		attrRule("img.nbg", "img.nbg", "src"),
		attrRule("a.nbg img", "a.nbg img", "src"),
	}
}

// RatingRules locate the average rating.
var RatingRules = []Rule[string]{
	textRule("strong.rating_num", "strong.rating_num"),
}

// ISBNRules locate the ISBN.
var ISBNRules = []Rule[string]{
	{Name: "isbn label text", Extract: func(doc *goquery.Document) (string, bool) {
		text := followingText(labelSpan(doc, "ISBN"))
		return text, text != ""
	}},
}

// SummaryRules locate the book introduction.
var SummaryRules = []Rule[string]{
	textRule("#link-report .intro", "#link-report .intro"),
	textRule("#link-report", "#link-report"),
}

// labelSpan finds the span.pl whose text, without its trailing colon, is label.
func labelSpan(doc *goquery.Document, label string) *goquery.Selection {
	return doc.Find("span.pl").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return trimLabel(s.Text()) == label
	}).First()
}

func trimLabel(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ":："))
}

// followingText returns the first non-blank text node after the selection,
// stopping at the next element.
func followingText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	for n := s.Nodes[0].NextSibling; n != nil; n = n.NextSibling {
		if n.Type != html.TextNode {
			break
		}
		if text := cleanText(strings.TrimLeft(n.Data, ":： ")); text != "" {
			return text
		}
	}
	return ""
}

func texts(s *goquery.Selection) ([]string, bool) {
	var out []string
	s.Each(func(_ int, item *goquery.Selection) {
		if text := cleanText(item.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out, len(out) > 0
}

// cleanText trims the string and collapses runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
