package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/newsboard/utils"
)

const (
	// ContextSessionKey stores the loaded *utils.SessionData in the Gin context.
	ContextSessionKey = "session"
	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "newsboard_session"
)

// Session resolves the session token from the cookie or a Bearer header. It never aborts;
// handlers decide whether a session is required.
func Session(m *utils.SessionManager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, fromCookie := sessionToken(ctx)
		if token != "" {
			sess, err := m.Load(ctx.Request.Context(), token)
			switch {
			case err == nil:
				ctx.Set(ContextSessionKey, sess)
			case fromCookie:
				ClearSessionCookie(ctx)
			}
		}
		ctx.Next()
	}
}

func sessionToken(ctx *gin.Context) (string, bool) {
	if c, err := ctx.Cookie(SessionCookieName); err == nil && c != "" {
		return c, true
	}
	parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1]), false
	}
	return "", false
}

// CurrentSession returns the request's session or nil.
func CurrentSession(ctx *gin.Context) *utils.SessionData {
	v, ok := ctx.Get(ContextSessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*utils.SessionData)
	return sess
}

// AuthRequired rejects JSON requests without a logged-in session.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !CurrentSession(ctx).Authenticated() {
			utils.Error(ctx, http.StatusUnauthorized, "User not authenticated")
			return
		}
		ctx.Next()
	}
}

// LoginRequired redirects page requests without a logged-in session to /login.
func LoginRequired(m *utils.SessionManager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !CurrentSession(ctx).Authenticated() {
			AddFlash(ctx, m, "danger", "You need to login first.")
			ctx.Redirect(http.StatusFound, "/login")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// SetSessionCookie hands the token to the browser.
func SetSessionCookie(ctx *gin.Context, m *utils.SessionManager, token string) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(SessionCookieName, token, int(m.TTL().Seconds()), "/", "", ctx.Request.TLS != nil, true)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(SessionCookieName, "", -1, "/", "", ctx.Request.TLS != nil, true)
}

// AddFlash queues a message on the current session, starting an anonymous one when needed.
func AddFlash(ctx *gin.Context, m *utils.SessionManager, category, message string) {
	rc := ctx.Request.Context()
	sess := CurrentSession(ctx)
	if sess == nil {
		sess = &utils.SessionData{}
		sess.AddFlash(category, message)
		token, err := m.Create(rc, sess)
		if err != nil {
			utils.Logger.Warn("create flash session failed", zap.Error(err))
			return
		}
		SetSessionCookie(ctx, m, token)
		ctx.Set(ContextSessionKey, sess)
		return
	}
	sess.AddFlash(category, message)
	if err := m.Save(rc, sess); err != nil {
		utils.Logger.Warn("save flash failed", zap.Error(err))
	}
}

// PopFlashes returns and clears pending messages for rendering.
func PopFlashes(ctx *gin.Context, m *utils.SessionManager) []utils.Flash {
	sess := CurrentSession(ctx)
	if sess == nil || len(sess.Flashes) == 0 {
		return nil
	}
	flashes := sess.PopFlashes()
	if err := m.Save(ctx.Request.Context(), sess); err != nil {
		utils.Logger.Warn("clear flashes failed", zap.Error(err))
	}
	return flashes
}
