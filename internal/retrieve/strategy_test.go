package retrieve

import (
	"context"
	"net/http"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStrategies(t *testing.T) {
	strategies, err := BuildStrategies([]string{"web", " API ", "frodo", "demo", "headless"}, Deps{})
	require.NoError(t, err)

	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name())
	}
	assert.Equal(t, StrategyNames, names)
}

func TestBuildStrategiesRejectsUnknownName(t *testing.T) {
	_, err := BuildStrategies([]string{"web", "amazon"}, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"amazon"`)

	_, err = BuildStrategies(nil, Deps{})
	require.Error(t, err)
}

func TestSearchURL(t *testing.T) {
	assert.Equal(t,
		"https://www.douban.com/search?cat=1001&q=%E6%B4%BB%E7%9D%80",
		SearchURL("https://www.douban.com", "活着"))
}

func TestStructuredAPISearchPicksLatest(t *testing.T) {
	var query string
	server := newDoubanServer(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count":2,"books":[
			{"id":"4913064","title":"活着","author":["余华"],"publisher":"作家出版社","pubdate":"2012-8-1",
			 "images":{"small":"https://img.test/s/public/a.jpg","medium":"https://img.test/m/public/a.jpg","large":"https://img.test/l/public/a.jpg"},
			 "rating":{"average":9.4},"isbn13":"9787506365437"},
			{"id":"35496106","title":"活着（定本·2021新版 精装）","author":["余华"],"publisher":"北京十月文艺出版社","pubdate":"2021-10",
			 "image":"https://img.test/view/subject/m/public/b.jpg","rating":{"average":9.5}}
		]}`))
	})
	deps, _ := testDeps(server)

	edition, err := NewStructuredAPISearch(deps).Search(context.Background(), "活着")
	require.NoError(t, err)
	assert.Equal(t, "/v2/book/search", server.paths()[0])
	assert.Contains(t, query, "count=10")
	assert.Equal(t, "35496106", edition.SubjectID)
	assert.Equal(t, "9.5", edition.Rating)
	assert.Equal(t, "https://img.test/view/subject/m/public/b.jpg", edition.Cover.URL)
	assert.Nil(t, edition.Cover.Sizes)
	assert.Equal(t, 1, deps.Gate.RequestCount())
}

func TestStructuredAPISearchEmpty(t *testing.T) {
	server := newDoubanServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"books":[]}`))
	})
	deps, _ := testDeps(server)

	_, err := NewStructuredAPISearch(deps).Search(context.Background(), "活着")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStructuredAPISearchBadJSON(t *testing.T) {
	server := newDoubanServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>blocked</html>`))
	})
	deps, _ := testDeps(server)

	_, err := NewStructuredAPISearch(deps).Search(context.Background(), "活着")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestAlternateAPISearchUsesPicSizes(t *testing.T) {
	var kind string
	server := newDoubanServer(t, func(w http.ResponseWriter, r *http.Request) {
		kind = r.URL.Query().Get("type")
		_, _ = w.Write([]byte(`{"subjects":[
			{"id":"1","title":"活着","pubdate":"2017-6"},
			{"id":"2","title":"活着","author":["余华"],"pubdate":"2021-10-1",
			 "pic":{"small":"https://img.test/s.jpg","normal":"https://img.test/n.jpg","large":"https://img.test/l.jpg"}}
		]}`))
	})
	deps, _ := testDeps(server)

	edition, err := NewAlternateAPISearch(deps).Search(context.Background(), "活着")
	require.NoError(t, err)
	assert.Equal(t, "/api/v2/search/subjects", server.paths()[0])
	assert.Equal(t, "book", kind)
	assert.Equal(t, "2", edition.SubjectID)
	require.NotNil(t, edition.Cover.Sizes)
	assert.Equal(t, book.CoverSizes{
		Small:  "https://img.test/s.jpg",
		Medium: "https://img.test/n.jpg",
		Large:  "https://img.test/l.jpg",
	}, *edition.Cover.Sizes)
}

func TestDemoFixture(t *testing.T) {
	edition, err := DemoFixture{}.Search(context.Background(), "活着")
	require.NoError(t, err)
	assert.Equal(t, "2021-10-1", edition.PubDate)
	assert.Equal(t, []string{"余华"}, edition.Authors)
	require.NotNil(t, edition.Cover.Sizes)
	assert.Equal(t, "https://img9.doubanio.com/view/subject/m/public/s33834064.jpg", edition.Cover.Sizes.Medium)

	_, err = DemoFixture{}.Search(context.Background(), "三体")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHeadlessSearchScansRenderedPage(t *testing.T) {
	server := newDoubanServer(t, pagesHandler("", map[string]string{
		"35496106": detailPage("35496106", "活着（定本·2021新版 精装）", "2021-10-1"),
	}))
	deps, _ := testDeps(server)
	deps.Headless = true

	var renderedURL string
	original := renderPage
	renderPage = func(_ context.Context, pageURL string, d Deps) (string, error) {
		renderedURL = pageURL
		assert.True(t, d.Headless)
		assert.Equal(t, defaultBrowserTimeout, d.BrowserTimeout)
		return searchPage(hit{"35496106", "活着"}), nil
	}
	t.Cleanup(func() { renderPage = original })

	edition, err := NewHeadlessSearch(deps).Search(context.Background(), "活着")
	require.NoError(t, err)
	assert.Equal(t, SearchURL(server.URL, "活着"), renderedURL)
	assert.Equal(t, "活着（定本·2021新版 精装）", edition.Title)
	assert.Equal(t, []string{"/subject/35496106/"}, server.paths())
	assert.Equal(t, 2, deps.Gate.RequestCount())
}

func TestRenderWithChromeUsesSeams(t *testing.T) {
	origAlloc, origCtx, origRun := chromedpExecAllocator, chromedpContext, chromedpRunner
	t.Cleanup(func() {
		chromedpExecAllocator, chromedpContext, chromedpRunner = origAlloc, origCtx, origRun
	})

	var optCount, actionCount int
	chromedpExecAllocator = func(ctx context.Context, opts ...chromedp.ExecAllocatorOption) (context.Context, context.CancelFunc) {
		optCount = len(opts)
		return context.WithCancel(ctx)
	}
	chromedpContext = func(ctx context.Context, _ ...chromedp.ContextOption) (context.Context, context.CancelFunc) {
		return context.WithCancel(ctx)
	}
	chromedpRunner = func(_ context.Context, actions ...chromedp.Action) error {
		actionCount = len(actions)
		return nil
	}

	deps := Deps{BrowserTimeout: defaultBrowserTimeout}
	_, err := renderWithChrome(context.Background(), "https://www.douban.com/search?q=x", deps)
	require.NoError(t, err)
	assert.Equal(t, len(buildExecAllocatorOptions(deps)), optCount)
	assert.Equal(t, 5, actionCount)
}
