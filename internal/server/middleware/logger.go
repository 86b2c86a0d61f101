package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// 由 handler 写入 gin.Context，访问日志读取
const (
	ProjectIDKey = "project_id"
	ErrorKindKey = "error_kind"
)

// 探活请求只在 debug 级别记录
var quietRoutes = map[string]bool{
	"/health": true,
	"/ready":  true,
}

// Logger 访问日志
// 按路由模板记录，附带请求ID、项目ID和错误类型
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		case quietRoutes[route]:
			event = log.Debug()
		default:
			event = log.Info()
		}

		event = event.
			Str("request_id", c.GetString(RequestIDKey)).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes", c.Writer.Size())
		if projectID := c.GetString(ProjectIDKey); projectID != "" {
			event = event.Str("project_id", projectID)
		}
		if kind := c.GetString(ErrorKindKey); kind != "" {
			event = event.Str("error_kind", kind)
		}
		event.Msg("http request")
	}
}
