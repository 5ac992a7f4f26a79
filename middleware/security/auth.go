package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
	"github.com/RWACH777/yasa-tasker-sub000/tools/security"
)

// CtxUserKey is where the middleware stores the authenticated user id.
const CtxUserKey = "authUserID"

func Middleware(opts security.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[len("bearer "):])
		}
		if token == "" {
			token = strings.TrimSpace(c.Query("token")) // websocket upgrade path
		}
		userID, err := security.Verify(opts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrPermissionDenied)
			return
		}
		c.Set(CtxUserKey, userID)
		c.Next()
	}
}

// UserID reads the authenticated user set by Middleware.
func UserID(c *gin.Context) string {
	v, _ := c.Get(CtxUserKey)
	s, _ := v.(string)
	return s
}
