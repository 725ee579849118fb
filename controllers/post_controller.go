package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/newsboard/middleware"
	"github.com/cppla/newsboard/services"
	"github.com/cppla/newsboard/utils"
)

// PostController creates posts and deletes posts or news items.
type PostController struct {
	posts    *services.PostService
	sessions *utils.SessionManager
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService, sessions *utils.SessionManager) *PostController {
	return &PostController{posts: posts, sessions: sessions}
}

type postForm struct {
	Title   string `form:"title"`
	Content string `form:"content"`
}

// NewPost renders the create form.
func (p *PostController) NewPost(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "create_post", page(ctx, p.sessions, "New Post", gin.H{"Form": postForm{}}))
}

// CreatePost stores a post authored by the session user.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var form postForm
	_ = ctx.ShouldBind(&form)

	sess := middleware.CurrentSession(ctx)
	_, err := p.posts.Create(ctx.Request.Context(), sess.Email, form.Title, form.Content)
	if errors.Is(err, services.ErrEmptyTitle) {
		middleware.AddFlash(ctx, p.sessions, "danger", "Title is required.")
		ctx.HTML(http.StatusBadRequest, "create_post", page(ctx, p.sessions, "New Post", gin.H{"Form": form}))
		return
	}
	if err != nil {
		pageError(ctx, err)
		return
	}
	middleware.AddFlash(ctx, p.sessions, "success", "Your post has been created!")
	ctx.Redirect(http.StatusFound, "/home")
}

// DeletePost removes a post (author or admin) or a news item (admin) with its votes.
func (p *PostController) DeletePost(ctx *gin.Context) {
	var req struct {
		ID   int64  `json:"id" binding:"required"`
		Type string `json:"type" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	rc := ctx.Request.Context()
	if err := p.posts.Authorize(rc, middleware.CurrentSession(ctx), req.ID, req.Type); err != nil {
		jsonError(ctx, err, "An error occurred during deletion")
		return
	}
	if err := p.posts.Delete(rc, req.ID, req.Type); err != nil {
		jsonError(ctx, err, "An error occurred during deletion")
		return
	}
	utils.OK(ctx, "Post deleted successfully")
}
