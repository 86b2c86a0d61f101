package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"slidecast/internal/pkg/apperr"
	httputil "slidecast/internal/pkg/http"
)

// Recovery 捕获 handler 中的 panic，按统一错误格式返回 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Interface("panic", rec).
					Str("request_id", c.GetString(RequestIDKey)).
					Str("route", c.FullPath()).
					Str("method", c.Request.Method).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, &httputil.ErrorResponse{
					Code:    50000,
					Message: "internal server error",
					Kind:    apperr.KindInternal.String(),
				})
			}
		}()
		c.Next()
	}
}
