package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/newsboard/models"
)

// Tally is the derived vote count for one item.
type Tally struct {
	Likes    int64 `json:"new_like_count"`
	Dislikes int64 `json:"new_dislike_count"`
}

// UserInteractionView is one of a user's votes joined with the voted item's title.
type UserInteractionView struct {
	ItemID      int64  `json:"item_id"`
	ItemType    string `json:"item_type"`
	Title       string `json:"title"`
	Interaction string `json:"interaction"`
}

// InteractionStore owns the per-(user, item) vote rows.
type InteractionStore struct {
	db *gorm.DB
}

func NewInteractionStore(db *gorm.DB) *InteractionStore {
	return &InteractionStore{db: db}
}

// ValidKind reports whether kind is like or dislike.
func ValidKind(kind string) bool {
	return kind == models.InteractionLike || kind == models.InteractionDislike
}

// SetInteraction inserts, switches or toggles off the user's vote on itemID in one transaction.
// Voting the same kind twice removes the row.
func (s *InteractionStore) SetInteraction(ctx context.Context, userID uint, itemID int64, kind string) error {
	if !ValidKind(kind) {
		return ErrInvalidKind
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.UserInteraction
		err := tx.Where("user_id = ? AND item_id = ?", userID, itemID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := models.UserInteraction{UserID: userID, ItemID: itemID, Interaction: kind}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("create interaction: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("load interaction: %w", err)
		}

		if existing.Interaction == kind {
			if err := tx.Where("user_id = ? AND item_id = ?", userID, itemID).Delete(&models.UserInteraction{}).Error; err != nil {
				return fmt.Errorf("delete interaction: %w", err)
			}
			return nil
		}
		if err := tx.Model(&models.UserInteraction{}).
			Where("user_id = ? AND item_id = ?", userID, itemID).
			Update("interaction", kind).Error; err != nil {
			return fmt.Errorf("update interaction: %w", err)
		}
		return nil
	})
}

// CountInteractions counts rows of kind for itemID.
func (s *InteractionStore) CountInteractions(ctx context.Context, itemID int64, kind string) (int64, error) {
	if !ValidKind(kind) {
		return 0, ErrInvalidKind
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.UserInteraction{}).
		Where("item_id = ? AND interaction = ?", itemID, kind).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count interactions: %w", err)
	}
	return n, nil
}

// Tally returns both counts for itemID.
func (s *InteractionStore) Tally(ctx context.Context, itemID int64) (Tally, error) {
	likes, err := s.CountInteractions(ctx, itemID, models.InteractionLike)
	if err != nil {
		return Tally{}, err
	}
	dislikes, err := s.CountInteractions(ctx, itemID, models.InteractionDislike)
	if err != nil {
		return Tally{}, err
	}
	return Tally{Likes: likes, Dislikes: dislikes}, nil
}

// DeleteAllForItem removes every vote on itemID. It runs on the caller's transaction so the
// item row can be deleted afterwards in the same commit.
func (s *InteractionStore) DeleteAllForItem(tx *gorm.DB, itemID int64) error {
	if err := tx.Where("item_id = ?", itemID).Delete(&models.UserInteraction{}).Error; err != nil {
		return fmt.Errorf("delete interactions for item %d: %w", itemID, err)
	}
	return nil
}

// ListForUser returns the user's votes on posts followed by votes on news items.
// A vote whose id matches both a post and a news item appears once per table.
func (s *InteractionStore) ListForUser(ctx context.Context, userID uint) ([]UserInteractionView, error) {
	db := s.db.WithContext(ctx)

	var onPosts []UserInteractionView
	if err := db.Table("user_interaction AS ui").
		Select("ui.item_id AS item_id, 'post' AS item_type, p.title AS title, ui.interaction AS interaction").
		Joins("JOIN posts p ON p.id = ui.item_id").
		Where("ui.user_id = ?", userID).
		Order("ui.item_id DESC").
		Scan(&onPosts).Error; err != nil {
		return nil, fmt.Errorf("list post interactions: %w", err)
	}

	var onNews []UserInteractionView
	if err := db.Table("user_interaction AS ui").
		Select("ui.item_id AS item_id, 'news' AS item_type, n.title AS title, ui.interaction AS interaction").
		Joins("JOIN news_items n ON n.id = ui.item_id").
		Where("ui.user_id = ?", userID).
		Order("ui.item_id DESC").
		Scan(&onNews).Error; err != nil {
		return nil, fmt.Errorf("list news interactions: %w", err)
	}

	return append(onPosts, onNews...), nil
}
