// Package book holds the data model shared by the retrieval pipeline.
package book

import "strings"

// Placeholder values for fields a detail page did not provide.
const (
	UnknownTitle     = "未知标题"
	UnknownAuthor    = "未知作者"
	UnknownPublisher = "未知出版社"
	UnknownPubDate   = "未知"
)

// CoverSizes holds one URL per size variant.
type CoverSizes struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// IsZero reports whether no variant is set.
func (s CoverSizes) IsZero() bool {
	return s.Small == "" && s.Medium == "" && s.Large == ""
}

// CoverImage is either a single templated URL or an explicit size map.
// Exactly one of URL and Sizes is expected to be set.
type CoverImage struct {
	URL   string      `json:"url,omitempty"`
	Sizes *CoverSizes `json:"sizes,omitempty"`
}

// Edition is one publication instance of a book.
type Edition struct {
	Title     string     `json:"title"`
	Authors   []string   `json:"authors"`
	Publisher string     `json:"publisher"`
	PubDate   string     `json:"pubdate"`
	Cover     CoverImage `json:"cover"`
	Rating    string     `json:"rating,omitempty"`
	ISBN      string     `json:"isbn,omitempty"`
	SubjectID string     `json:"subject_id,omitempty"`
	Summary   string     `json:"summary,omitempty"`
}

// AuthorString joins the authors for display, falling back to UnknownAuthor.
func (e Edition) AuthorString() string {
	if len(e.Authors) == 0 {
		return UnknownAuthor
	}
	return strings.Join(e.Authors, ", ")
}

// Candidate is a search hit that has not been fetched yet.
type Candidate struct {
	DisplayTitle string `json:"display_title"`
	SubjectID    string `json:"subject_id"`
}

// CoverRecord is the result of a successful lookup. It is a value type and is
// never modified after NewCoverRecord returns it.
type CoverRecord struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Publisher   string `json:"publisher"`
	PubDate     string `json:"pubdate"`
	SmallCover  string `json:"small_cover"`
	MediumCover string `json:"medium_cover"`
	LargeCover  string `json:"large_cover"`
}

// NewCoverRecord builds the record for an edition and its resolved cover sizes.
func NewCoverRecord(e Edition, sizes CoverSizes) CoverRecord {
	return CoverRecord{
		Title:       orDefault(e.Title, UnknownTitle),
		Author:      e.AuthorString(),
		Publisher:   orDefault(e.Publisher, UnknownPublisher),
		PubDate:     orDefault(e.PubDate, UnknownPubDate),
		SmallCover:  sizes.Small,
		MediumCover: sizes.Medium,
		LargeCover:  sizes.Large,
	}
}

// CoverURLs returns the non-empty cover URLs ordered from largest to smallest,
// paired with a size label.
func (r CoverRecord) CoverURLs() []SizedURL {
	var urls []SizedURL
	for _, s := range []SizedURL{
		{Size: "large", URL: r.LargeCover},
		{Size: "medium", URL: r.MediumCover},
		{Size: "small", URL: r.SmallCover},
	} {
		if s.URL != "" {
			urls = append(urls, s)
		}
	}
	return urls
}

// SizedURL is a cover URL tagged with its size variant.
type SizedURL struct {
	Size string
	URL  string
}

// Entry is one title to process and the category it is filed under.
type Entry struct {
	Title    string `json:"title" yaml:"title"`
	Category string `json:"category" yaml:"category"`
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
