package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/newsboard/models"
	"github.com/cppla/newsboard/utils"
)

// PostService creates posts and deletes posts or news items together with their votes.
type PostService struct {
	db           *gorm.DB
	interactions *InteractionStore
	cache        *utils.ResponseCache
	events       utils.Publisher
	logger       *zap.Logger
}

func NewPostService(db *gorm.DB, interactions *InteractionStore, cache *utils.ResponseCache, events utils.Publisher, logger *zap.Logger) *PostService {
	if events == nil {
		events = utils.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{db: db, interactions: interactions, cache: cache, events: events, logger: logger}
}

// Create stores a post for email. The title is reduced to plain text and the content is kept as
// written; it is sanitized when rendered. The timestamp is assigned on insert.
func (s *PostService) Create(ctx context.Context, email, title, content string) (*models.Post, error) {
	if email == "" {
		return nil, ErrEmptyEmail
	}
	title = utils.TruncateRunes(utils.SanitizeTitle(title), maxTitleLen)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	post := models.Post{
		UserEmail: email,
		Title:     title,
		Content:   strings.TrimSpace(content),
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.cache.Invalidate(ctx, FeedCacheKey)
	s.events.Publish(ctx, utils.Event{Type: utils.EventPostCreated, ItemID: int64(post.ID), ItemType: ItemTypePost})
	return &post, nil
}

// Authorize checks that actor may delete the item. News needs an admin; a post needs its author or an admin.
func (s *PostService) Authorize(ctx context.Context, actor *utils.SessionData, id int64, itemType string) error {
	if !actor.Authenticated() {
		return ErrForbidden
	}
	switch itemType {
	case ItemTypeNews:
		if !actor.IsAdmin() {
			return ErrForbidden
		}
		return nil
	case ItemTypePost:
		if actor.IsAdmin() {
			return nil
		}
		var post models.Post
		err := s.db.WithContext(ctx).Select("id", "user_email").First(&post, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		if err != nil {
			return fmt.Errorf("load post: %w", err)
		}
		if post.UserEmail != actor.Email {
			return ErrForbidden
		}
		return nil
	default:
		return ErrInvalidItemType
	}
}

// Delete removes the item of itemType with id. Its votes are removed first in the same transaction.
func (s *PostService) Delete(ctx context.Context, id int64, itemType string) error {
	var model interface{}
	switch itemType {
	case ItemTypePost:
		model = &models.Post{}
	case ItemTypeNews:
		model = &models.NewsItem{}
	default:
		return ErrInvalidItemType
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.interactions.DeleteAllForItem(tx, id); err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(model)
		if res.Error != nil {
			return fmt.Errorf("delete %s %d: %w", itemType, id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrItemNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, FeedCacheKey)
	s.events.Publish(ctx, utils.Event{Type: utils.EventItemDeleted, ItemID: id, ItemType: itemType})
	s.logger.Info("item deleted", zap.String("type", itemType), zap.Int64("id", id))
	return nil
}
