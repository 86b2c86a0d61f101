package slideshow

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slidecast/internal/pkg/apperr"
)

// AlignRequest 对齐请求
type AlignRequest struct {
	APIKey string `json:"api_key"` // 可选；为空时使用当前活动会话的凭证
}

// Align 对齐音频
// @Summary      对齐音频
// @Description  把已完成的行与旁白音频对齐并规范化时间轴；失败时保留之前的时间轴
// @Tags         对齐
// @Accept       json
// @Produce      json
// @Param        request  body      AlignRequest  false  "对齐凭证"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Failure      400      {object}  ErrorResponse  "缺少音频、凭证或已完成的行"
// @Failure      409      {object}  ErrorResponse  "批处理运行中"
// @Failure      502      {object}  ErrorResponse  "对齐服务失败"
// @Router       /api/v1/align [post]
func (h *Handler) Align(c *gin.Context) {
	var req AlignRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperr.Validation("invalid request body", err))
			return
		}
	}

	timeline, err := h.svc.Align(c.Request.Context(), req.APIKey)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "对齐完成", gin.H{
		"timeline": toTimelineInfoList(timeline),
		"total":    len(timeline),
	})
}

// GetTimeline 获取时间轴
// @Summary      获取时间轴
// @Tags         对齐
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Failure      404  {object}  ErrorResponse  "未加载脚本"
// @Router       /api/v1/timeline [get]
func (h *Handler) GetTimeline(c *gin.Context) {
	timeline, err := h.svc.Timeline()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "success", gin.H{
		"timeline": toTimelineInfoList(timeline),
		"total":    len(timeline),
	})
}
