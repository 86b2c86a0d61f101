package slideshow

import (
	"context"

	"github.com/gin-gonic/gin"

	"slidecast/internal/pkg/events"
	httputil "slidecast/internal/pkg/http"
	"slidecast/internal/server/middleware"
	slideshowsvc "slidecast/internal/service/slideshow"
)

// DefaultMaxUploadBytes 默认上传大小上限（音频、脚本）
const DefaultMaxUploadBytes = 64 << 20

// Handler 幻灯片模块处理器
// 所有幻灯片相关的Handler方法都通过这个结构体访问Service
type Handler struct {
	svc       slideshowsvc.Service
	hub       *events.Hub
	maxUpload int64
	// 后台任务（批处理、渲染）使用的 context，服务关闭时取消
	jobCtx context.Context
}

// NewHandler 创建幻灯片模块处理器
func NewHandler(jobCtx context.Context, svc slideshowsvc.Service, hub *events.Hub, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		svc:       svc,
		hub:       hub,
		maxUpload: maxUploadBytes,
		jobCtx:    jobCtx,
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.Use(h.tagProject)

	r.POST("/script", h.LoadScript)
	r.GET("/lines", h.ListLines)
	r.POST("/lines/:index/reset", h.ResetLine)

	r.POST("/session", h.SubmitCredential)
	r.GET("/session", h.GetSession)

	r.POST("/batch", h.StartBatch)
	r.GET("/status", h.GetStatus)

	r.POST("/audio", h.UploadAudio)
	r.POST("/align", h.Align)
	r.GET("/timeline", h.GetTimeline)

	r.POST("/render", h.StartRender)
	r.GET("/video", h.DownloadVideo)

	r.GET("/manifest", h.DownloadManifest)
	r.GET("/bundle", h.DownloadBundle)
	r.POST("/export", h.Export)
	r.GET("/exports", h.ListExports)
	r.GET("/exports/:id", h.GetExport)

	r.GET("/events", h.Events)
}

// respondError 按错误类型返回对应的 HTTP 状态码
func respondError(c *gin.Context, err error) {
	status, resp := httputil.FromError(err)
	c.Set(middleware.ErrorKindKey, resp.Kind)
	c.JSON(status, resp)
}

// tagProject 请求结束后把当前项目ID写入上下文，供访问日志使用
func (h *Handler) tagProject(c *gin.Context) {
	c.Next()
	if view, err := h.svc.Project(); err == nil {
		c.Set(middleware.ProjectIDKey, view.ID)
	}
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, httputil.NewSuccessResponse(message, data))
}
