package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	appctx "gwin/internal/core/context"
	"gwin/internal/core/localized"
)

const (
	HeaderUser     = "X-User"
	HeaderLanguage = "Accept-Language"
)

// Session puts the form session of the caller in the request context: the
// login from X-User and the first Accept-Language tag, fallback otherwise.
// The language selects the text of localized values.
func Session(fallback language.Tag) gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := fallback
		if h := c.GetHeader(HeaderLanguage); h != "" {
			if tags, _, err := language.ParseAcceptLanguage(h); err == nil && len(tags) > 0 {
				tag = tags[0]
			}
		}
		if q := c.Query("lang"); q != "" {
			tag = localized.Parse(q)
		}

		session := &appctx.Session{
			Login:    strings.TrimSpace(c.GetHeader(HeaderUser)),
			Language: tag.String(),
		}
		ctx := appctx.WithSession(c.Request.Context(), session)
		ctx = localized.WithLanguage(ctx, tag)
		c.Request = c.Request.WithContext(ctx)
		c.Set("user", session.Login)

		c.Next()
	}
}
