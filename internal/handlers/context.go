package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/sprintboard/internal/middleware"
	apperrors "github.com/charlesng35/sprintboard/pkg/errors"
	"github.com/charlesng35/sprintboard/pkg/logger"
	"github.com/charlesng35/sprintboard/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID returns the authenticated user, writing a 401 when it is missing.
func currentUserID(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.GetString(middleware.CtxUserIDKey))
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}

// writeError renders err and logs failures that are not the caller's fault.
func writeError(c *gin.Context, err error) {
	appErr := apperrors.FromError(err)
	if appErr.StatusCode >= 500 || appErr.StatusCode == 0 {
		logger.WithModule("handlers").Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	response.Error(c, appErr)
}
