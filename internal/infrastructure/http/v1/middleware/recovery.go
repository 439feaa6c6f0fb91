// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"gwin/internal/core/apperror"
	"gwin/internal/core/usermsg"
	"gwin/pkg/logger"
)

// Recovery turns a panic of a later handler into an internal AppError and
// renders it right away, since ErrorHandler was unwound by the panic. The
// client gets the request id and a board message, never the panic value.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler {
				panic(r)
			}
			ctx := c.Request.Context()
			logger.Error(ctx, "panic recovered",
				"entity", c.Param("entity"),
				"error", r,
				"stack", string(debug.Stack()),
			)

			appErr := apperror.NewInternal(fmt.Errorf("panic: %v", r)).
				WithDetail("request_id", c.GetString("request_id"))
			if name := c.Param("entity"); name != "" {
				appErr = appErr.WithDetail("entity", name)
			}
			c.Set(MessagesKey, []usermsg.Message{{
				Category: usermsg.Information,
				Code:     apperror.CodeInternal,
				Text:     "The request could not be completed, the operation was not saved.",
			}})
			_ = c.Error(appErr)
			c.Abort()
			if !c.Writer.Written() {
				render(c, appErr)
			}
		}()
		c.Next()
	}
}
