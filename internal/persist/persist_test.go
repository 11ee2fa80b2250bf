package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/lepinkainen/coverfetch/internal/fetch"
	"github.com/lepinkainen/coverfetch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 6))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type imageServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []*http.Request
}

func newImageServer(t *testing.T, handler http.HandlerFunc) *imageServer {
	t.Helper()
	s := &imageServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Clone(context.Background()))
		s.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *imageServer) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	for i, r := range s.requests {
		out[i] = r.URL.Path
	}
	return out
}

func record(base string) book.CoverRecord {
	return book.NewCoverRecord(
		book.Edition{Title: "活着（定本·2021新版 精装）", Authors: []string{"余华"}, Publisher: "北京十月文艺出版社", PubDate: "2021-10-1"},
		book.CoverSizes{Small: base + "/s.jpg", Medium: base + "/m.jpg", Large: base + "/l.jpg"},
	)
}

func newTestWriter(t *testing.T, server *imageServer, opts ...Option) (*Writer, *testutil.FakeClock, string) {
	t.Helper()
	env := testutil.NewTestEnv(t)
	clock := testutil.NewFakeClock()
	newClient := func() *fetch.Client { return fetch.NewClient(fetch.WithHTTPClient(server.Client())) }
	base := []Option{
		WithClient(newClient()),
		WithFreshClient(newClient),
		WithClock(clock),
		WithJitter(func() time.Duration { return 3 * time.Second }),
	}
	return NewWriter(env.Path("covers"), append(base, opts...)...), clock, env.Path("covers")
}

func TestSaveDownloadsLargestAndWritesInfo(t *testing.T) {
	img := pngBytes(t)
	var referer string
	server := newImageServer(t, func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("Referer")
		_, _ = w.Write(img)
	})
	writer, clock, root := newTestWriter(t, server)
	rec := record(server.URL)

	result, err := writer.Save(context.Background(), rec, "活着", "小说")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "小说"), result.Dir)
	assert.Equal(t, "large", result.Size)
	assert.True(t, result.Downloaded())
	assert.Equal(t, []string{"/l.jpg"}, server.paths())
	assert.Equal(t, "https://book.douban.com/", referer)
	assert.Empty(t, clock.Sleeps())

	saved, err := os.ReadFile(filepath.Join(root, "小说", "活着.jpg"))
	require.NoError(t, err)
	assert.Equal(t, img, saved)

	info, err := os.ReadFile(filepath.Join(root, "小说", "活着_info.json"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "\n  \"title\": \"活着（定本·2021新版 精装）\"")

	var decoded book.CoverRecord
	require.NoError(t, json.Unmarshal(info, &decoded))
	assert.Equal(t, rec, decoded)
}

func TestSaveWithoutCategoryUsesOutputRoot(t *testing.T) {
	img := pngBytes(t)
	server := newImageServer(t, func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write(img) })
	writer, _, root := newTestWriter(t, server)

	result, err := writer.Save(context.Background(), record(server.URL), "三体", "")
	require.NoError(t, err)
	assert.Equal(t, root, result.Dir)
	assert.FileExists(t, filepath.Join(root, "三体.jpg"))
}

func TestSaveFallsBackToSmallerSizes(t *testing.T) {
	img := pngBytes(t)
	server := newImageServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/l.jpg":
			http.NotFound(w, r)
		case "/m.jpg":
			_, _ = w.Write([]byte("<html>blocked</html>"))
		default:
			_, _ = w.Write(img)
		}
	})
	writer, _, _ := newTestWriter(t, server)

	result, err := writer.Save(context.Background(), record(server.URL), "活着", "小说")
	require.NoError(t, err)
	assert.Equal(t, "small", result.Size)
	assert.Equal(t, []string{"/l.jpg", "/m.jpg", "/s.jpg"}, server.paths())
}

func TestSaveTeapotFallbackChain(t *testing.T) {
	img := pngBytes(t)
	var mu sync.Mutex
	calls := 0
	server := newImageServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write(img)
	})
	writer, clock, _ := newTestWriter(t, server)

	result, err := writer.Save(context.Background(), record(server.URL), "活着", "小说")
	require.NoError(t, err)
	assert.Equal(t, "large", result.Size)
	assert.Equal(t, []time.Duration{3 * time.Second}, clock.Sleeps())

	server.mu.Lock()
	defer server.mu.Unlock()
	require.Len(t, server.requests, 3)
	assert.Equal(t, "1", server.requests[0].Header.Get("Dnt"))
	assert.Equal(t, "image", server.requests[1].Header.Get("Sec-Fetch-Dest"))
	assert.Equal(t, "image", server.requests[2].Header.Get("Sec-Fetch-Dest"))
}

func TestSaveWritesInfoWhenNoImageDownloads(t *testing.T) {
	server := newImageServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	writer, clock, root := newTestWriter(t, server)

	result, err := writer.Save(context.Background(), record(server.URL), "活着", "小说")
	require.NoError(t, err)
	assert.False(t, result.Downloaded())
	assert.NoFileExists(t, filepath.Join(root, "小说", "活着.jpg"))
	assert.FileExists(t, filepath.Join(root, "小说", "活着_info.json"))
	assert.Empty(t, clock.Sleeps())
}

func TestSaveKeepsExistingCover(t *testing.T) {
	img := pngBytes(t)
	server := newImageServer(t, func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write(img) })
	writer, _, root := newTestWriter(t, server)

	dir := filepath.Join(root, "小说")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "活着.jpg"), []byte("old"), 0644))

	result, err := writer.Save(context.Background(), record(server.URL), "活着", "小说")
	require.NoError(t, err)
	assert.True(t, result.Existing)
	assert.Empty(t, server.paths())

	updating, _, _ := newTestWriter(t, server, WithUpdateCovers(true))
	updating.outputDir = root
	result, err = updating.Save(context.Background(), record(server.URL), "活着", "小说")
	require.NoError(t, err)
	assert.Equal(t, "large", result.Size)

	saved, err := os.ReadFile(filepath.Join(dir, "活着.jpg"))
	require.NoError(t, err)
	assert.Equal(t, img, saved)
}

func TestRandomJitterRange(t *testing.T) {
	for range 50 {
		d := randomJitter()
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 5*time.Second)
	}
}

func TestSaveInfoMatchesGolden(t *testing.T) {
	server := newImageServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	writer, _, root := newTestWriter(t, server)

	dir := filepath.Join(root, "小说")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "活着.jpg"), []byte("old"), 0644))

	result, err := writer.Save(context.Background(), record("https://img9.doubanio.com/view/subject"), "活着", "小说")
	require.NoError(t, err)
	require.True(t, result.Existing)

	golden := testutil.NewGoldenHelper(t, filepath.Join("testdata", "golden"))
	golden.AssertGoldenJSONFile(result.InfoPath, "info.golden.json")
}

func TestSaveRecordWithoutCoverKeepsMetadata(t *testing.T) {
	server := newImageServer(t, func(w http.ResponseWriter, r *http.Request) {})
	writer, _, _ := newTestWriter(t, server)
	rec := book.NewCoverRecord(book.Edition{Title: "活着", PubDate: "2021"}, book.CoverSizes{})

	result, err := writer.Save(context.Background(), rec, "活着", "小说")
	require.NoError(t, err)
	assert.False(t, result.Downloaded())
	assert.Empty(t, server.paths())
	assert.FileExists(t, result.InfoPath)
	assert.NoFileExists(t, result.ImagePath)
}
