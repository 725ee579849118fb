package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/newsboard/middleware"
	"github.com/cppla/newsboard/services"
	"github.com/cppla/newsboard/utils"
)

// InteractionController records like/dislike votes.
type InteractionController struct {
	store  *services.InteractionStore
	cache  *utils.ResponseCache
	events utils.Publisher
}

func NewInteractionController(store *services.InteractionStore, cache *utils.ResponseCache, events utils.Publisher) *InteractionController {
	if events == nil {
		events = utils.NopPublisher{}
	}
	return &InteractionController{store: store, cache: cache, events: events}
}

// UpdateInteraction toggles or switches the session user's vote and returns the new tally.
func (i *InteractionController) UpdateInteraction(ctx *gin.Context) {
	var req struct {
		ID     int64  `json:"id" binding:"required"`
		Action string `json:"action" binding:"required,oneof=like dislike"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	rc := ctx.Request.Context()
	sess := middleware.CurrentSession(ctx)
	if err := i.store.SetInteraction(rc, sess.UserID, req.ID, req.Action); err != nil {
		jsonError(ctx, err, "failed to update interaction")
		return
	}
	tally, err := i.store.Tally(rc, req.ID)
	if err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "failed to count interactions", err)
		return
	}

	i.cache.Invalidate(rc, services.FeedCacheKey)
	i.events.Publish(rc, utils.Event{
		Type:     utils.EventInteraction,
		ItemID:   req.ID,
		UserID:   sess.UserID,
		Kind:     req.Action,
		Likes:    tally.Likes,
		Dislikes: tally.Dislikes,
	})
	ctx.JSON(http.StatusOK, tally)
}
