package slideshow

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"slidecast/internal/pkg/apperr"
	slideshowsvc "slidecast/internal/service/slideshow"
)

// StartBatch 启动批处理
// @Summary      启动批处理
// @Description  使用当前凭证在后台生成图片，进度通过 /api/v1/events 推送；已在运行时返回 409
// @Tags         批处理
// @Produce      json
// @Success      202  {object}  map[string]interface{}  "已启动"
// @Failure      400  {object}  ErrorResponse  "没有可用凭证"
// @Failure      404  {object}  ErrorResponse  "未加载脚本"
// @Failure      409  {object}  ErrorResponse  "批处理运行中"
// @Router       /api/v1/batch [post]
func (h *Handler) StartBatch(c *gin.Context) {
	status := h.svc.Status()
	if status.Project == nil {
		respondError(c, apperr.NotFound("no script loaded"))
		return
	}
	if status.Running {
		respondError(c, apperr.Conflict("a batch is already running"))
		return
	}
	if status.Session.State != slideshowsvc.SessionActive || status.Session.Remaining == 0 {
		respondError(c, apperr.Validation("no active credential, submit a new key and budget", nil))
		return
	}

	go func() {
		report, err := h.svc.RunBatch(h.jobCtx)
		if err != nil {
			log.Warn().Err(err).Msg("batch run ended with error")
			return
		}
		log.Info().Str("outcome", string(report.Outcome)).Str("run_id", report.RunID).Msg("batch run finished")
	}()

	respondOK(c, http.StatusAccepted, "批处理已启动", status.Session)
}

// GetStatus 获取状态概览
// @Summary      获取状态概览
// @Description  各状态的行数、会话剩余预算、最近一次批处理结果
// @Tags         批处理
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Router       /api/v1/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	respondOK(c, http.StatusOK, "success", h.svc.Status())
}
