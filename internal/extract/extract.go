// Package extract turns Douban search and detail pages into candidates and
// editions. It performs no network I/O.
package extract

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/lepinkainen/coverfetch/internal/errors"
	"github.com/lepinkainen/coverfetch/internal/selector"
)

// MaxCandidates caps how many search results are considered per page.
const MaxCandidates = 10

var (
	subjectPattern  = regexp.MustCompile(`/subject/(\d+)/`)
	redirectPattern = regexp.MustCompile(`url=.*?%2Fsubject%2F(\d+)%2F`)
)

// Result container layouts in the order they are tried.
var containerSelectors = []string{"div.result", "div.item-root"}

// Markers present on a genuine results page, including one with no hits.
var resultsPageSelectors = []string{"div.result", "div.item-root", "div.result-list", "div.search-result"}

// Title links inside a result container in the order they are tried.
var titleLinkSelectors = []string{"a.title", "a.title-text", "a[href]"}

// ExtractCandidates returns the search hits on a results page in page order.
// When no result container is present, every link to a subject page is used.
func ExtractCandidates(page string) ([]book.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, errors.NewParseError("search results", err)
	}

	for _, sel := range containerSelectors {
		items := doc.Find(sel)
		if items.Length() == 0 {
			continue
		}
		slog.Debug("Found result containers", "layout", sel, "count", items.Length())
		return candidatesFromContainers(items), nil
	}

	return candidatesFromLinks(doc), nil
}

// IsSearchResultsPage reports whether page carries the results layout. Block
// and captcha pages are served with status 200 but have none of it.
func IsSearchResultsPage(page string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return false
	}
	for _, sel := range resultsPageSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

func candidatesFromContainers(items *goquery.Selection) []book.Candidate {
	var candidates []book.Candidate
	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if len(candidates) >= MaxCandidates {
			return false
		}
		link := titleLink(item)
		href, _ := link.Attr("href")
		id := SubjectID(href)
		if id == "" {
			slog.Debug("Skipping result without subject id", "href", href)
			return true
		}
		title := cleanText(link.Text())
		if title == "" {
			title = book.UnknownTitle
		}
		candidates = append(candidates, book.Candidate{DisplayTitle: title, SubjectID: id})
		return true
	})
	return candidates
}

func titleLink(item *goquery.Selection) *goquery.Selection {
	for _, sel := range titleLinkSelectors {
		link := item.Find(sel).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return cleanText(s.Text()) != ""
		}).First()
		if link.Length() > 0 {
			return link
		}
	}
	return item.Find("a").First()
}

func candidatesFromLinks(doc *goquery.Document) []book.Candidate {
	var candidates []book.Candidate
	doc.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		if len(candidates) >= MaxCandidates {
			return false
		}
		href, _ := link.Attr("href")
		match := subjectPattern.FindStringSubmatch(href)
		title := cleanText(link.Text())
		if match == nil || title == "" {
			return true
		}
		candidates = append(candidates, book.Candidate{DisplayTitle: title, SubjectID: match[1]})
		return true
	})
	if len(candidates) > 0 {
		slog.Debug("Fell back to link scan", "count", len(candidates))
	}
	return candidates
}

// SubjectID returns the numeric subject id a result link points at. Redirect
// links carry the target URL percent-encoded in their query string.
func SubjectID(href string) string {
	if href == "" {
		return ""
	}
	if strings.Contains(href, "link2") {
		if match := redirectPattern.FindStringSubmatch(href); match != nil {
			return match[1]
		}
		if u, err := url.Parse(href); err == nil {
			if target := u.Query().Get("url"); target != "" {
				if match := subjectPattern.FindStringSubmatch(target); match != nil {
					return match[1]
				}
			}
		}
		return ""
	}
	if match := subjectPattern.FindStringSubmatch(href); match != nil {
		return match[1]
	}
	return ""
}

// DetailQuery describes which candidate a detail page was fetched for.
type DetailQuery struct {
	// ExpectedTitle is the title the user searched for.
	ExpectedTitle string
	// CandidateTitle is the title shown on the search results page.
	CandidateTitle string
	SubjectID      string
}

// ExtractEdition parses a subject detail page. It returns a ParseError when
// the page has no title and a ValidationError when the title does not match
// the query or the publication year is missing or not after the cutoff.
func ExtractEdition(page string, q DetailQuery, rules *selector.Rules) (book.Edition, error) {
	if rules == nil {
		rules = selector.DefaultRules()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return book.Edition{}, errors.NewParseError("detail page", err)
	}

	title, ok := firstMatch(doc, "title", TitleRules)
	if !ok {
		return book.Edition{}, errors.NewParseError("detail page title", nil)
	}
	if err := rules.CheckTitle(title, q.ExpectedTitle); err != nil {
		return book.Edition{}, err
	}

	edition := book.Edition{
		Title:     title,
		SubjectID: q.SubjectID,
	}

	if authors, ok := firstMatch(doc, "author", AuthorRules); ok {
		edition.Authors = authors
	} else {
		edition.Authors = []string{book.UnknownAuthor}
	}
	edition.Publisher = valueOr(doc, "publisher", PublisherRules, book.UnknownPublisher)
	edition.PubDate = valueOr(doc, "pubdate", PubDateRules, book.UnknownPubDate)

	if err := rules.CheckYear(edition.PubDate); err != nil {
		return book.Edition{}, err
	}

	edition.Cover.URL = valueOr(doc, "cover", CoverRules(q.CandidateTitle), "")
	edition.Rating = valueOr(doc, "rating", RatingRules, "")
	edition.ISBN = valueOr(doc, "isbn", ISBNRules, "")
	edition.Summary = valueOr(doc, "summary", SummaryRules, "")

	return edition, nil
}

func valueOr(doc *goquery.Document, field string, rules []Rule[string], fallback string) string {
	if value, ok := firstMatch(doc, field, rules); ok {
		return value
	}
	return fallback
}
