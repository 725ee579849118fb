package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/newsboard/middleware"
	"github.com/cppla/newsboard/models"
	"github.com/cppla/newsboard/services"
	"github.com/cppla/newsboard/utils"
)

// FeedController serves the merged feed as HTML and JSON, plus the settings page.
type FeedController struct {
	feed         *services.FeedEngine
	interactions *services.InteractionStore
	users        *services.UserService
	sessions     *utils.SessionManager
	cache        *utils.ResponseCache
}

func NewFeedController(feed *services.FeedEngine, interactions *services.InteractionStore, users *services.UserService,
	sessions *utils.SessionManager, cache *utils.ResponseCache) *FeedController {
	return &FeedController{feed: feed, interactions: interactions, users: users, sessions: sessions, cache: cache}
}

// Home renders the newest 30 feed rows.
func (f *FeedController) Home(ctx *gin.Context) {
	rows, err := f.feed.MergedFeed(ctx.Request.Context(), services.DefaultFeedLimit)
	if err != nil {
		pageError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, "home", page(ctx, f.sessions, "Home", gin.H{"Feed": rows}))
}

// About renders the static about page.
func (f *FeedController) About(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "about", page(ctx, f.sessions, "About", nil))
}

// NewsFeed returns the merged feed as a JSON array, served from cache when fresh.
func (f *FeedController) NewsFeed(ctx *gin.Context) {
	rc := ctx.Request.Context()
	if b, ok := f.cache.GetBytes(rc, services.FeedCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}
	version := f.cache.Version(rc, services.FeedCacheKey)
	rows, err := f.feed.MergedFeed(rc, services.DefaultFeedLimit)
	if err != nil {
		utils.Fail(ctx, http.StatusInternalServerError, "failed to load feed", err)
		return
	}
	f.cache.SetJSONIfCurrent(rc, services.FeedCacheKey, version, rows)
	ctx.JSON(http.StatusOK, rows)
}

// Settings shows the user's posts, votes and, for admins, the moderation listing.
func (f *FeedController) Settings(ctx *gin.Context) {
	rc := ctx.Request.Context()
	sess := middleware.CurrentSession(ctx)
	user, err := f.users.ByEmail(rc, sess.Email)
	if errors.Is(err, services.ErrUserNotFound) {
		middleware.AddFlash(ctx, f.sessions, "danger", "User not found.")
		ctx.Redirect(http.StatusFound, "/home")
		return
	}
	if err != nil {
		pageError(ctx, err)
		return
	}

	myPosts, err := f.feed.SettingsFeed(rc, user.Email)
	if err != nil {
		pageError(ctx, err)
		return
	}
	votes, err := f.interactions.ListForUser(rc, user.ID)
	if err != nil {
		pageError(ctx, err)
		return
	}
	var all []services.FeedRow
	if user.Role == models.RoleAdmin {
		if all, err = f.feed.ModerationFeed(rc); err != nil {
			pageError(ctx, err)
			return
		}
	}

	ctx.HTML(http.StatusOK, "settings", page(ctx, f.sessions, "Settings", gin.H{
		"User":         user,
		"MyPosts":      myPosts,
		"Interactions": votes,
		"AllPosts":     all,
	}))
}
