package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUpstreamStatus marks a reachable news source that answered with a non-200 status.
var ErrUpstreamStatus = errors.New("news source returned an error status")

// HNItem is the item document served by the Hacker News API. Every field except id is optional.
type HNItem struct {
	ID          int64   `json:"id"`
	By          string  `json:"by"`
	Descendants int     `json:"descendants"`
	Kids        []int64 `json:"kids"`
	Score       int     `json:"score"`
	Time        int64   `json:"time"`
	Title       string  `json:"title"`
	Type        string  `json:"type"`
	URL         *string `json:"url"`
	Text        string  `json:"text"`
	Deleted     bool    `json:"deleted"`
	Dead        bool    `json:"dead"`
}

// NewsSource lists top story ids and fetches items by id. Item returns nil, nil for a missing item.
type NewsSource interface {
	TopStoryIDs(ctx context.Context) ([]int64, error)
	Item(ctx context.Context, id int64) (*HNItem, error)
}

// HackerNewsClient reads the public Firebase-backed API.
type HackerNewsClient struct {
	baseURL string
	http    *http.Client
}

// NewHackerNewsClient uses a per-request timeout; timeout <= 0 means 10s.
func NewHackerNewsClient(baseURL string, timeout time.Duration) *HackerNewsClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HackerNewsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HackerNewsClient) TopStoryIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	found, err := c.getJSON(ctx, c.baseURL+"/topstories.json", &ids)
	if err != nil {
		return nil, fmt.Errorf("fetch top stories: %w", err)
	}
	if !found {
		return nil, nil
	}
	return ids, nil
}

func (c *HackerNewsClient) Item(ctx context.Context, id int64) (*HNItem, error) {
	var item HNItem
	found, err := c.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", c.baseURL, id), &item)
	if err != nil {
		return nil, fmt.Errorf("fetch item %d: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	return &item, nil
}

// getJSON decodes a 200 response into out. A literal null body reports found=false.
func (c *HackerNewsClient) getJSON(ctx context.Context, url string, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: %s", ErrUpstreamStatus, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return false, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("decode: %w", err)
	}
	return true, nil
}
