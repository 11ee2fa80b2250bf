package persist

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/disintegration/imaging"

	"github.com/lepinkainen/coverfetch/internal/errors"
	"github.com/lepinkainen/coverfetch/internal/fetch"
)

const downloadTimeout = 30 * time.Second

// imageHeaders is sent on the first attempt at every cover URL.
func imageHeaders() http.Header {
	return http.Header{
		"User-Agent":                []string{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"},
		"Accept":                    []string{"text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8"},
		"Accept-Language":           []string{"zh-CN,zh;q=0.9,en;q=0.8"},
		"Referer":                   []string{"https://book.douban.com/"},
		"Dnt":                       []string{"1"},
		"Upgrade-Insecure-Requests": []string{"1"},
	}
}

// alternateImageHeaders is used after the image host answers 418.
func alternateImageHeaders() http.Header {
	return http.Header{
		"User-Agent":     []string{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"},
		"Accept":         []string{"image/webp,image/apng,image/*,*/*;q=0.8"},
		"Referer":        []string{"https://book.douban.com/"},
		"Sec-Fetch-Dest": []string{"image"},
		"Sec-Fetch-Mode": []string{"no-cors"},
		"Sec-Fetch-Site": []string{"cross-site"},
	}
}

// randomJitter returns a delay between 2 and 5 seconds.
func randomJitter() time.Duration {
	return 2*time.Second + rand.N(3*time.Second)
}

// download fetches an image and checks that it decodes. A 418 answer starts
// the fallback chain: a random pause and different headers on the shared
// client, then the same on a fresh client.
func (w *Writer) download(ctx context.Context, url string) ([]byte, error) {
	data, err := w.fetchImage(ctx, w.client, url, imageHeaders())
	if err == nil || errors.StatusCode(err) != http.StatusTeapot {
		return data, err
	}

	slog.Warn("Image host rejected request, trying fallbacks", "url", url)
	if err := w.clock.Sleep(ctx, w.jitter()); err != nil {
		return nil, err
	}

	data, err = w.fetchImage(ctx, w.client, url, alternateImageHeaders())
	if err == nil {
		slog.Info("Alternate headers succeeded", "url", url)
		return data, nil
	}
	slog.Debug("Alternate headers failed", "url", url, "error", err)

	data, err = w.fetchImage(ctx, w.freshClient(), url, alternateImageHeaders())
	if err != nil {
		return nil, fmt.Errorf("all download fallbacks failed: %w", err)
	}
	slog.Info("Fresh client succeeded", "url", url)
	return data, nil
}

func (w *Writer) fetchImage(ctx context.Context, client *fetch.Client, url string, headers http.Header) ([]byte, error) {
	resp, err := client.Fetch(ctx, fetch.Request{
		URL:     url,
		Headers: headers,
		Timeout: downloadTimeout,
	})
	if err != nil {
		return nil, err
	}
	if _, err := imaging.Decode(bytes.NewReader(resp.Body)); err != nil {
		return nil, errors.NewValidationError("image", fmt.Sprintf("%s is not a decodable image: %v", url, err))
	}
	return resp.Body, nil
}
