package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gwin/internal/core/apperror"
	"gwin/pkg/logger"
)

// MessagesKey is the gin context key holding the board messages of the
// business object that failed, rendered next to the error.
const MessagesKey = "messages"

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		render(c, err)
	}
}

// render writes err as the JSON error body, with the messages stored under
// MessagesKey. Errors that are not AppErrors are reported as internal.
func render(c *gin.Context, err error) {
	if appErr, ok := apperror.AsAppError(err); ok {
		if appErr.Err != nil {
			logger.Error(c.Request.Context(), "request error",
				"code", appErr.Code,
				"cause", appErr.Err,
			)
		}

		body := gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		}
		if msgs, ok := c.Get(MessagesKey); ok {
			body["messages"] = msgs
		}
		c.JSON(appErr.HTTPStatus, body)
		return
	}

	logger.Error(c.Request.Context(), "unhandled error",
		"error", err,
	)

	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    apperror.CodeInternal,
		"message": "Internal server error",
		"details": map[string]any{
			"request_id": c.GetString("request_id"),
		},
	})
}
