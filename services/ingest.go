package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/cppla/newsboard/models"
	"github.com/cppla/newsboard/utils"
)

const (
	MaxTextLen   = 5000
	MaxURLLen    = 500
	maxTitleLen  = 255
	maxAuthorLen = 120

	// NoURLSentinel is stored for items that carry no url at all.
	NoURLSentinel = "No URL available for this post."

	defaultBatchSize = 30
	defaultWorkers   = 10
	insertChunkSize  = 100
)

// IngestResult summarises one ingestion run.
type IngestResult struct {
	Requested int     `json:"requested"`
	Fetched   int     `json:"fetched"`
	Dropped   int     `json:"dropped"`
	Skipped   int     `json:"skipped"`
	Inserted  int     `json:"inserted"`
	NewIDs    []int64 `json:"new_ids,omitempty"`
}

// IngestOptions tunes a NewsIngester. Zero values fall back to 30 ids and 10 workers.
type IngestOptions struct {
	BatchSize int
	Workers   int
	Logger    *zap.Logger
	Events    utils.Publisher
	Cache     *utils.ResponseCache
}

// NewsIngester pulls the current top stories and stores the ones not seen before.
type NewsIngester struct {
	db      *gorm.DB
	source  NewsSource
	batch   int
	workers int
	logger  *zap.Logger
	events  utils.Publisher
	cache   *utils.ResponseCache
}

func NewNewsIngester(db *gorm.DB, source NewsSource, opts IngestOptions) *NewsIngester {
	n := &NewsIngester{
		db:      db,
		source:  source,
		batch:   opts.BatchSize,
		workers: opts.Workers,
		logger:  opts.Logger,
		events:  opts.Events,
		cache:   opts.Cache,
	}
	if n.batch <= 0 {
		n.batch = defaultBatchSize
	}
	if n.workers <= 0 {
		n.workers = defaultWorkers
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	if n.events == nil {
		n.events = utils.NopPublisher{}
	}
	return n
}

// IngestLatest runs one ingestion pass. A non-200 top-story answer ends the run with an empty result
// and a nil error; a transport failure ends it with an empty result and the error. Neither writes.
// Failed item fetches are logged and dropped. New items are inserted in one transaction.
func (n *NewsIngester) IngestLatest(ctx context.Context) (IngestResult, error) {
	ids, err := n.source.TopStoryIDs(ctx)
	if errors.Is(err, ErrUpstreamStatus) {
		n.logger.Warn("top stories unavailable", zap.Error(err))
		return IngestResult{}, nil
	}
	if err != nil {
		n.logger.Warn("top stories unreachable", zap.Error(err))
		return IngestResult{}, err
	}
	ids = utils.UniqueInt64(ids)
	if len(ids) > n.batch {
		ids = ids[:n.batch]
	}
	res := IngestResult{Requested: len(ids)}
	if len(ids) == 0 {
		return res, nil
	}

	fetched := n.fetchAll(ctx, ids)

	candidates := make([]models.NewsItem, 0, len(fetched))
	seen := make(map[int64]bool, len(fetched))
	for _, it := range fetched {
		if it == nil {
			res.Dropped++
			continue
		}
		res.Fetched++
		item, ok := MapItem(*it)
		if !ok || seen[item.ID] {
			res.Dropped++
			continue
		}
		seen[item.ID] = true
		candidates = append(candidates, item)
	}
	if len(candidates) == 0 {
		n.logger.Info("news ingestion finished", zap.Int("requested", res.Requested), zap.Int("dropped", res.Dropped))
		return res, nil
	}

	candidateIDs := make([]int64, len(candidates))
	for i, c := range candidates {
		candidateIDs[i] = c.ID
	}
	var existing []int64
	if err := n.db.WithContext(ctx).Model(&models.NewsItem{}).
		Where("id IN ?", candidateIDs).
		Pluck("id", &existing).Error; err != nil {
		return res, fmt.Errorf("load existing news ids: %w", err)
	}
	stored := make(map[int64]bool, len(existing))
	for _, id := range existing {
		stored[id] = true
	}

	fresh := make([]models.NewsItem, 0, len(candidates))
	for _, c := range candidates {
		if stored[c.ID] {
			res.Skipped++
			continue
		}
		fresh = append(fresh, c)
	}

	if len(fresh) > 0 {
		err := n.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.CreateInBatches(&fresh, insertChunkSize).Error
		})
		if err != nil {
			return res, fmt.Errorf("insert news items: %w", err)
		}
		res.Inserted = len(fresh)
		for _, f := range fresh {
			res.NewIDs = append(res.NewIDs, f.ID)
		}
		n.cache.Invalidate(ctx, FeedCacheKey)
		n.events.Publish(ctx, utils.Event{Type: utils.EventNewsIngested, ItemType: ItemTypeNews, Count: res.Inserted})
	}

	n.logger.Info("news ingestion finished",
		zap.Int("requested", res.Requested),
		zap.Int("fetched", res.Fetched),
		zap.Int("dropped", res.Dropped),
		zap.Int("skipped", res.Skipped),
		zap.Int("inserted", res.Inserted),
	)
	return res, nil
}

// fetchAll fetches every id with at most n.workers requests in flight and waits for all of them.
// Results keep the order of ids; failures leave a nil slot.
func (n *NewsIngester) fetchAll(ctx context.Context, ids []int64) []*HNItem {
	out := make([]*HNItem, len(ids))
	var g errgroup.Group
	g.SetLimit(n.workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			item, err := n.source.Item(ctx, id)
			if err != nil {
				n.logger.Warn("news item fetch failed", zap.Int64("id", id), zap.Error(err))
				return nil
			}
			if item == nil {
				n.logger.Warn("news item missing", zap.Int64("id", id))
				return nil
			}
			out[i] = item
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// MapItem converts an API item into a storable NewsItem. Unknown fields never reach storage.
// Items without an id and deleted or dead items are rejected.
func MapItem(it HNItem) (models.NewsItem, bool) {
	if it.ID == 0 || it.Deleted || it.Dead {
		return models.NewsItem{}, false
	}
	url := NoURLSentinel
	if it.URL != nil {
		url = utils.TruncateRunes(*it.URL, MaxURLLen)
	}
	return models.NewsItem{
		ID:          it.ID,
		Author:      utils.TruncateRunes(it.By, maxAuthorLen),
		Descendants: it.Descendants,
		Kids:        joinIDs(it.Kids),
		Score:       it.Score,
		Title:       utils.TruncateRunes(it.Title, maxTitleLen),
		Text:        utils.TruncateRunes(it.Text, MaxTextLen),
		URL:         url,
		ItemType:    it.Type,
		Time:        it.Time,
	}, true
}

func joinIDs(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
