package fetch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/lepinkainen/coverfetch/internal/errors"
	"github.com/lepinkainen/coverfetch/internal/persist"
	"github.com/lepinkainen/coverfetch/internal/testutil"
	"github.com/stretchr/testify/assert"
)

type fakeLooker struct {
	errs   map[string]error
	titles []string
}

func (f *fakeLooker) Lookup(_ context.Context, title string) (book.CoverRecord, error) {
	f.titles = append(f.titles, title)
	if err, ok := f.errs[title]; ok {
		return book.CoverRecord{}, err
	}
	return book.CoverRecord{Title: title, LargeCover: "https://img.test/l/" + title + ".jpg"}, nil
}

type fakeSaver struct {
	err   error
	saved []string
}

func (f *fakeSaver) Save(_ context.Context, record book.CoverRecord, title, category string) (persist.Result, error) {
	if f.err != nil {
		return persist.Result{}, f.err
	}
	f.saved = append(f.saved, category+"/"+title)
	return persist.Result{Dir: category, ImagePath: category + "/" + title + ".jpg", Size: "large"}, nil
}

var batchEntries = []book.Entry{
	{Title: "活着", Category: "小说"},
	{Title: "不存在", Category: "小说"},
	{Title: "三体", Category: "科幻"},
}

func TestBatchRecordsFailuresAndContinues(t *testing.T) {
	looker := &fakeLooker{errs: map[string]error{"不存在": fmt.Errorf("no matching edition found")}}
	saver := &fakeSaver{}
	clock := testutil.NewFakeClock()

	summary := NewBatch(looker, saver, clock, 2*time.Second).Run(context.Background(), batchEntries)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Len(t, summary.Failures, 1)
	assert.Equal(t, "不存在", summary.Failures[0].Title)
	assert.Equal(t, []string{"小说/活着", "科幻/三体"}, saver.saved)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, clock.Sleeps())
	assert.False(t, summary.Stopped)

	assert.Len(t, summary.Saved, 2)
	assert.Equal(t, "三体", summary.Saved[1].Query)
	assert.Equal(t, "科幻/三体.jpg", summary.Saved[1].ImagePath)
}

func TestBatchStopsOnStopProcessing(t *testing.T) {
	looker := &fakeLooker{errs: map[string]error{"不存在": errors.NewStopProcessingError("stopped")}}
	clock := testutil.NewFakeClock()

	summary := NewBatch(looker, &fakeSaver{}, clock, time.Second).Run(context.Background(), batchEntries)

	assert.True(t, summary.Stopped)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, []string{"活着", "不存在"}, looker.titles)
	assert.Len(t, clock.Sleeps(), 1)
}

func TestBatchSaveFailureCounts(t *testing.T) {
	saver := &fakeSaver{err: fmt.Errorf("disk full")}

	summary := NewBatch(&fakeLooker{}, saver, testutil.NewFakeClock(), 0).Run(context.Background(), batchEntries[:1])

	assert.Equal(t, 0, summary.Succeeded)
	assert.Len(t, summary.Failures, 1)
	assert.Equal(t, "disk full", summary.Failures[0].Reason)
	assert.Empty(t, summary.Saved)
}
