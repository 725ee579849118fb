package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/newsboard/models"
)

// StatsController provides site statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns row counts for users, posts, news items and votes.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	var userCount, postCount, newsCount, interactionCount int64

	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}
	if err := db.Model(&models.Post{}).Count(&postCount).Error; err != nil {
		postCount = 0
	}
	if err := db.Model(&models.NewsItem{}).Count(&newsCount).Error; err != nil {
		newsCount = 0
	}
	if err := db.Model(&models.UserInteraction{}).Count(&interactionCount).Error; err != nil {
		interactionCount = 0
	}

	ctx.JSON(200, gin.H{
		"user_count":        userCount,
		"post_count":        postCount,
		"news_count":        newsCount,
		"interaction_count": interactionCount,
	})
}
