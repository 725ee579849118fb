package utils

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatusResponse is the uniform envelope for JSON acknowledgements and errors.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK writes a success acknowledgement.
func OK(ctx *gin.Context, message string) {
	ctx.JSON(200, StatusResponse{Status: "success", Message: message})
}

// Error writes an error envelope with the given HTTP status and aborts the chain.
func Error(ctx *gin.Context, status int, message string) {
	ctx.AbortWithStatusJSON(status, StatusResponse{Status: "error", Message: message})
}

// Fail logs err and writes a generic error envelope. The cause is never echoed to the client.
func Fail(ctx *gin.Context, status int, message string, err error) {
	Logger.Error(message,
		zap.Error(err),
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.Request.URL.Path),
	)
	Error(ctx, status, message)
}
