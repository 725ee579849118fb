package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/newsboard/models"
)

// Feed item types.
const (
	ItemTypeNews = "news"
	ItemTypePost = "post"
)

// DefaultFeedLimit is the size of the home feed.
const DefaultFeedLimit = 30

// FeedCacheKey is the cache key of the /newsfeed payload; every write path invalidates it.
const FeedCacheKey = "newsfeed"

// FeedRow is one entry of a merged feed. Datetime is unix seconds for both item types.
// News items always report zero likes and dislikes.
type FeedRow struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	Datetime    int64  `json:"datetime"`
	Type        string `json:"type"`
	Likes       int64  `json:"likes"`
	Dislikes    int64  `json:"dislikes"`
	By          string `json:"by,omitempty"`
	URL         string `json:"url,omitempty"`
	Score       int    `json:"score,omitempty"`
	Descendants int    `json:"descendants,omitempty"`
	Kids        string `json:"kids,omitempty"`
	Time        int64  `json:"time,omitempty"`
}

// FeedEngine builds the merged news + post projections.
type FeedEngine struct {
	db *gorm.DB
}

func NewFeedEngine(db *gorm.DB) *FeedEngine {
	return &FeedEngine{db: db}
}

// MergedFeed returns the newest limit rows across news items and posts. limit <= 0 means 30.
func (f *FeedEngine) MergedFeed(ctx context.Context, limit int) ([]FeedRow, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	news, err := f.newsRows(ctx, limit)
	if err != nil {
		return nil, err
	}
	posts, err := f.postRows(ctx, "", limit)
	if err != nil {
		return nil, err
	}
	return MergeRows(news, posts, limit), nil
}

// SettingsFeed returns every post authored by email with its tally, newest first.
func (f *FeedEngine) SettingsFeed(ctx context.Context, email string) ([]FeedRow, error) {
	if email == "" {
		return nil, ErrEmptyEmail
	}
	return f.postRows(ctx, email, 0)
}

// ModerationFeed returns every news item and every post, newest first.
func (f *FeedEngine) ModerationFeed(ctx context.Context) ([]FeedRow, error) {
	news, err := f.newsRows(ctx, 0)
	if err != nil {
		return nil, err
	}
	posts, err := f.postRows(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	return MergeRows(news, posts, 0), nil
}

// MergeRows orders news and posts by datetime descending, then id descending, then type,
// and keeps the first limit rows. limit <= 0 keeps everything.
func MergeRows(news, posts []FeedRow, limit int) []FeedRow {
	out := make([]FeedRow, 0, len(news)+len(posts))
	out = append(out, news...)
	out = append(out, posts...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Datetime != b.Datetime {
			return a.Datetime > b.Datetime
		}
		if a.ID != b.ID {
			return a.ID > b.ID
		}
		return a.Type < b.Type
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *FeedEngine) newsRows(ctx context.Context, limit int) ([]FeedRow, error) {
	q := f.db.WithContext(ctx).Model(&models.NewsItem{}).Order("time DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var items []models.NewsItem
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("query news items: %w", err)
	}
	rows := make([]FeedRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, FeedRow{
			ID:          it.ID,
			Title:       it.Title,
			Text:        it.Text,
			Datetime:    it.Time,
			Type:        ItemTypeNews,
			By:          it.Author,
			URL:         it.URL,
			Score:       it.Score,
			Descendants: it.Descendants,
			Kids:        it.Kids,
			Time:        it.Time,
		})
	}
	return rows, nil
}

type postTallyRow struct {
	ID         uint
	UserEmail  string
	Title      string
	Content    string
	DatePosted time.Time
	Likes      int64
	Dislikes   int64
}

// postRows projects posts joined with their interaction tallies. An empty email selects all authors.
func (f *FeedEngine) postRows(ctx context.Context, email string, limit int) ([]FeedRow, error) {
	q := f.db.WithContext(ctx).Table("posts AS p").
		Select("p.id, p.user_email, p.title, p.content, p.date_posted, "+
			"COUNT(CASE WHEN ui.interaction = ? THEN 1 END) AS likes, "+
			"COUNT(CASE WHEN ui.interaction = ? THEN 1 END) AS dislikes",
			models.InteractionLike, models.InteractionDislike).
		Joins("LEFT JOIN user_interaction ui ON ui.item_id = p.id").
		Group("p.id, p.user_email, p.title, p.content, p.date_posted").
		Order("p.date_posted DESC").Order("p.id DESC")
	if email != "" {
		q = q.Where("p.user_email = ?", email)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var raw []postTallyRow
	if err := q.Scan(&raw).Error; err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	rows := make([]FeedRow, 0, len(raw))
	for _, p := range raw {
		rows = append(rows, FeedRow{
			ID:       int64(p.ID),
			Title:    p.Title,
			Text:     p.Content,
			Datetime: p.DatePosted.Unix(),
			Type:     ItemTypePost,
			Likes:    p.Likes,
			Dislikes: p.Dislikes,
			By:       p.UserEmail,
		})
	}
	return rows, nil
}
