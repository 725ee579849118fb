package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cppla/newsboard/models"
)

type fakeSource struct {
	ids     []int64
	idsErr  error
	items   map[int64]*HNItem
	failIDs map[int64]bool
	delay   time.Duration

	mu       sync.Mutex
	calls    int
	inFlight int32
	maxSeen  int32
}

func (f *fakeSource) TopStoryIDs(context.Context) ([]int64, error) {
	return f.ids, f.idsErr
}

func (f *fakeSource) Item(_ context.Context, id int64) (*HNItem, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		prev := atomic.LoadInt32(&f.maxSeen)
		if cur <= prev || atomic.CompareAndSwapInt32(&f.maxSeen, prev, cur) {
			break
		}
	}
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failIDs[id] {
		return nil, errors.New("boom")
	}
	return f.items[id], nil
}

func strPtr(s string) *string { return &s }

func storyItems(ids ...int64) map[int64]*HNItem {
	out := map[int64]*HNItem{}
	for _, id := range ids {
		out[id] = &HNItem{ID: id, By: "pg", Title: "story", Type: "story", Time: 1_700_000_000 + id, URL: strPtr("https://example.com")}
	}
	return out
}

func TestIngestLatestIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	src := &fakeSource{ids: []int64{1, 2, 3}, items: storyItems(1, 2, 3)}
	ing := NewNewsIngester(db, src, IngestOptions{})
	ctx := context.Background()

	first, err := ing.IngestLatest(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Inserted != 3 || countRows(t, db, &models.NewsItem{}) != 3 {
		t.Fatalf("first run inserted %d", first.Inserted)
	}

	second, err := ing.IngestLatest(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Inserted != 0 || second.Skipped != 3 {
		t.Fatalf("second run should skip all, got %+v", second)
	}
	if n := countRows(t, db, &models.NewsItem{}); n != 3 {
		t.Fatalf("row count changed to %d", n)
	}
}

func TestIngestLatestDropsFailedItems(t *testing.T) {
	db := newTestDB(t)
	items := storyItems(1, 3)
	items[4] = nil
	src := &fakeSource{ids: []int64{1, 2, 3, 4}, items: items, failIDs: map[int64]bool{2: true}}
	res, err := NewNewsIngester(db, src, IngestOptions{}).IngestLatest(context.Background())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Inserted != 2 || res.Dropped != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	var ids []int64
	db.Model(&models.NewsItem{}).Order("id").Pluck("id", &ids)
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("unexpected stored ids %v", ids)
	}
}

func TestIngestLatestTopStoriesFailure(t *testing.T) {
	db := newTestDB(t)
	src := &fakeSource{idsErr: errors.New("unreachable"), items: storyItems(1)}
	res, err := NewNewsIngester(db, src, IngestOptions{}).IngestLatest(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if res.Inserted != 0 || res.Requested != 0 || src.calls != 0 {
		t.Fatalf("failed run must not fetch or write: %+v calls=%d", res, src.calls)
	}
	if n := countRows(t, db, &models.NewsItem{}); n != 0 {
		t.Fatalf("rows written: %d", n)
	}
}

func TestIngestLatestTopStoriesErrorStatusIsSoft(t *testing.T) {
	db := newTestDB(t)
	src := &fakeSource{idsErr: fmt.Errorf("fetch top stories: %w", ErrUpstreamStatus), items: storyItems(1)}
	res, err := NewNewsIngester(db, src, IngestOptions{}).IngestLatest(context.Background())
	if err != nil {
		t.Fatalf("error status must fail softly, got %v", err)
	}
	if res.Requested != 0 || res.Inserted != 0 || src.calls != 0 {
		t.Fatalf("expected empty run: %+v calls=%d", res, src.calls)
	}
	if n := countRows(t, db, &models.NewsItem{}); n != 0 {
		t.Fatalf("rows written: %d", n)
	}
}

func TestIngestLatestBoundsBatchAndWorkers(t *testing.T) {
	db := newTestDB(t)
	var ids []int64
	for i := int64(1); i <= 50; i++ {
		ids = append(ids, i)
	}
	src := &fakeSource{ids: ids, items: storyItems(ids...), delay: 5 * time.Millisecond}
	res, err := NewNewsIngester(db, src, IngestOptions{Workers: 4}).IngestLatest(context.Background())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Requested != 30 || res.Inserted != 30 || src.calls != 30 {
		t.Fatalf("expected 30 ids consumed, got %+v calls=%d", res, src.calls)
	}
	if peak := atomic.LoadInt32(&src.maxSeen); peak > 4 {
		t.Fatalf("more than 4 fetches in flight: %d", peak)
	}
}

func TestMapItem(t *testing.T) {
	long := strings.Repeat("x", 6000)
	longURL := "https://example.com/" + strings.Repeat("p", 600)

	item, ok := MapItem(HNItem{ID: 1, Text: long, URL: &longURL, Kids: []int64{4, 5, 6}})
	if !ok {
		t.Fatalf("valid item rejected")
	}
	if len(item.Text) != MaxTextLen || len(item.URL) != MaxURLLen {
		t.Fatalf("truncation failed: text=%d url=%d", len(item.Text), len(item.URL))
	}
	if item.Kids != "4,5,6" {
		t.Fatalf("kids=%q", item.Kids)
	}

	noURL, _ := MapItem(HNItem{ID: 2})
	if noURL.URL != NoURLSentinel || noURL.Kids != "" {
		t.Fatalf("unexpected defaults %+v", noURL)
	}

	empty := ""
	emptyURL, _ := MapItem(HNItem{ID: 3, URL: &empty})
	if emptyURL.URL != "" {
		t.Fatalf("present empty url should be kept, got %q", emptyURL.URL)
	}

	if _, ok := MapItem(HNItem{}); ok {
		t.Fatalf("item without id accepted")
	}
	if _, ok := MapItem(HNItem{ID: 4, Deleted: true}); ok {
		t.Fatalf("deleted item accepted")
	}
	if _, ok := MapItem(HNItem{ID: 5, Title: "flagged", Dead: true}); ok {
		t.Fatalf("dead item accepted")
	}
}
