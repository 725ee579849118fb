package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/newsboard/middleware"
	"github.com/cppla/newsboard/models"
	"github.com/cppla/newsboard/services"
	"github.com/cppla/newsboard/utils"
)

// UserController edits profiles.
type UserController struct {
	users    *services.UserService
	sessions *utils.SessionManager
}

func NewUserController(users *services.UserService, sessions *utils.SessionManager) *UserController {
	return &UserController{users: users, sessions: sessions}
}

// UpdateUser upserts a user from JSON. Callers may only edit their own record unless they are admins,
// and only admins may set a role.
func (u *UserController) UpdateUser(ctx *gin.Context) {
	var req struct {
		Email    string  `json:"email" binding:"required,email"`
		Name     *string `json:"name"`
		Nickname *string `json:"nickname"`
		Picture  *string `json:"picture"`
		Role     *string `json:"role"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	sess := middleware.CurrentSession(ctx)
	if req.Email != sess.Email && !sess.IsAdmin() {
		utils.Error(ctx, http.StatusForbidden, "cannot modify another user")
		return
	}
	if req.Role != nil && !sess.IsAdmin() {
		utils.Error(ctx, http.StatusForbidden, "only admins may change roles")
		return
	}

	user, err := u.users.Upsert(ctx.Request.Context(), services.UserUpdate{
		Email:    req.Email,
		Name:     req.Name,
		Nickname: req.Nickname,
		Picture:  req.Picture,
		Role:     req.Role,
	})
	if err != nil {
		jsonError(ctx, err, "failed to update user")
		return
	}
	if user.Email == sess.Email {
		u.refreshSession(ctx.Request.Context(), sess, user)
	}
	utils.OK(ctx, "")
}

// UpdateNickname handles the settings nickname form.
func (u *UserController) UpdateNickname(ctx *gin.Context) {
	u.updateFromForm(ctx, "Nickname updated successfully.", func(rc context.Context, email string) (*models.User, error) {
		return u.users.UpdateNickname(rc, email, ctx.PostForm("nickname"))
	})
}

// UpdateName handles the settings name form.
func (u *UserController) UpdateName(ctx *gin.Context) {
	u.updateFromForm(ctx, "Name updated successfully.", func(rc context.Context, email string) (*models.User, error) {
		return u.users.UpdateName(rc, email, ctx.PostForm("name"))
	})
}

// UpdateProfile handles the combined settings form.
func (u *UserController) UpdateProfile(ctx *gin.Context) {
	u.updateFromForm(ctx, "Profile updated successfully.", func(rc context.Context, email string) (*models.User, error) {
		return u.users.UpdateProfile(rc, email, ctx.PostForm("name"), ctx.PostForm("nickname"))
	})
}

func (u *UserController) updateFromForm(ctx *gin.Context, success string, apply func(context.Context, string) (*models.User, error)) {
	rc := ctx.Request.Context()
	sess := middleware.CurrentSession(ctx)
	user, err := apply(rc, sess.Email)
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		middleware.AddFlash(ctx, u.sessions, "danger", "User not found.")
	case err != nil:
		pageError(ctx, err)
		return
	default:
		u.refreshSession(rc, sess, user)
		middleware.AddFlash(ctx, u.sessions, "success", success)
	}
	ctx.Redirect(http.StatusFound, "/settings")
}

func (u *UserController) refreshSession(rc context.Context, sess *utils.SessionData, user *models.User) {
	sess.Name = user.Name
	sess.Nickname = user.Nickname
	sess.Picture = user.Picture
	sess.Role = user.Role
	if err := u.sessions.Save(rc, sess); err != nil {
		utils.Logger.Warn("refresh session failed", zap.Error(err))
	}
}
