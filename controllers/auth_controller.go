package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/newsboard/middleware"
	"github.com/cppla/newsboard/services"
	"github.com/cppla/newsboard/utils"
)

// AuthController bridges the identity provider to local users and sessions.
type AuthController struct {
	idp      utils.IdentityProvider
	states   *utils.StateStore
	sessions *utils.SessionManager
	users    *services.UserService
	returnTo string
}

// NewAuthController creates an AuthController. returnTo is where the provider sends users after logout;
// empty means this site's /home.
func NewAuthController(idp utils.IdentityProvider, states *utils.StateStore, sessions *utils.SessionManager,
	users *services.UserService, returnTo string) *AuthController {
	return &AuthController{idp: idp, states: states, sessions: sessions, users: users, returnTo: returnTo}
}

// Login redirects to the provider's authorization endpoint.
func (a *AuthController) Login(ctx *gin.Context) {
	rc := ctx.Request.Context()
	state, err := a.states.New(rc)
	if err != nil {
		a.softFail(ctx, "oauth state save failed", err)
		return
	}
	url, err := a.idp.AuthCodeURL(rc, state)
	if err != nil {
		a.softFail(ctx, "identity provider unavailable", err)
		return
	}
	ctx.Redirect(http.StatusFound, url)
}

// Callback exchanges the code, upserts the user and starts a session.
func (a *AuthController) Callback(ctx *gin.Context) {
	rc := ctx.Request.Context()
	code := ctx.Query("code")
	if code == "" || !a.states.Consume(rc, ctx.Query("state")) {
		middleware.AddFlash(ctx, a.sessions, "danger", "Login failed, please try again.")
		ctx.Redirect(http.StatusFound, "/home")
		return
	}

	claims, err := a.idp.Exchange(rc, code)
	if err != nil {
		a.softFail(ctx, "identity exchange failed", err)
		return
	}
	user, err := a.users.UpsertFromClaims(rc, *claims)
	if err != nil {
		utils.Logger.Error("persist user failed", zap.Error(err))
		RenderError(ctx, http.StatusInternalServerError)
		return
	}

	var flashes []utils.Flash
	if prev := middleware.CurrentSession(ctx); prev != nil {
		flashes = prev.PopFlashes()
		_ = a.sessions.Destroy(rc, prev.ID)
	}
	sess := &utils.SessionData{
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Nickname: user.Nickname,
		Picture:  user.Picture,
		Role:     user.Role,
		Flashes:  flashes,
	}
	token, err := a.sessions.Create(rc, sess)
	if err != nil {
		utils.Logger.Error("create session failed", zap.Error(err))
		RenderError(ctx, http.StatusInternalServerError)
		return
	}
	middleware.SetSessionCookie(ctx, a.sessions, token)
	ctx.Redirect(http.StatusFound, "/home")
}

// Logout drops the local session and hands off to the provider's logout endpoint.
func (a *AuthController) Logout(ctx *gin.Context) {
	if sess := middleware.CurrentSession(ctx); sess != nil {
		if err := a.sessions.Destroy(ctx.Request.Context(), sess.ID); err != nil {
			utils.Logger.Warn("destroy session failed", zap.Error(err))
		}
	}
	middleware.ClearSessionCookie(ctx)
	ctx.Redirect(http.StatusFound, a.idp.LogoutURL(a.logoutReturnTo(ctx)))
}

func (a *AuthController) logoutReturnTo(ctx *gin.Context) string {
	if a.returnTo != "" {
		return a.returnTo
	}
	scheme := "http"
	if ctx.Request.TLS != nil || ctx.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + ctx.Request.Host + "/home"
}

func (a *AuthController) softFail(ctx *gin.Context, msg string, err error) {
	utils.Logger.Warn(msg, zap.Error(err))
	middleware.AddFlash(ctx, a.sessions, "danger", "Login is unavailable right now.")
	ctx.Redirect(http.StatusFound, "/home")
}
