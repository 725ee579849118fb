package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/newsboard/middleware"
	"github.com/cppla/newsboard/services"
	"github.com/cppla/newsboard/utils"
)

// page builds the template data every page needs: title, session and pending flashes.
func page(ctx *gin.Context, sessions *utils.SessionManager, title string, extra gin.H) gin.H {
	data := gin.H{
		"Title":   title,
		"Session": middleware.CurrentSession(ctx),
		"Flashes": middleware.PopFlashes(ctx, sessions),
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// RenderError renders the error page for status, falling back to 500.
func RenderError(ctx *gin.Context, status int) {
	switch status {
	case http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError:
	default:
		status = http.StatusInternalServerError
	}
	ctx.HTML(status, "errors/"+strconv.Itoa(status), gin.H{
		"Title":   http.StatusText(status),
		"Session": middleware.CurrentSession(ctx),
	})
	ctx.Abort()
}

// NotFound answers unknown routes.
func NotFound(ctx *gin.Context) {
	RenderError(ctx, http.StatusNotFound)
}

// statusFor maps service errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidKind),
		errors.Is(err, services.ErrInvalidItemType),
		errors.Is(err, services.ErrEmptyTitle),
		errors.Is(err, services.ErrEmptyEmail),
		errors.Is(err, services.ErrInvalidRole):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrItemNotFound), errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// jsonError writes err as a JSON envelope; 500s are logged and reported with fallback.
func jsonError(ctx *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		utils.Fail(ctx, status, fallback, err)
		return
	}
	utils.Error(ctx, status, err.Error())
}

// pageError logs unexpected errors and renders the matching error page.
func pageError(ctx *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		utils.Logger.Error("request failed", zap.Error(err), zap.String("path", ctx.Request.URL.Path))
	}
	RenderError(ctx, status)
}
