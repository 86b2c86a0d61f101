package slideshow

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"slidecast/internal/pkg/apperr"
)

// StartRender 启动渲染
// @Summary      启动渲染
// @Description  在后台渲染视频，进度通过 /api/v1/events 推送（render_progress）
// @Tags         渲染
// @Produce      json
// @Success      202  {object}  map[string]interface{}  "已启动"
// @Failure      400  {object}  ErrorResponse  "尚未对齐"
// @Failure      404  {object}  ErrorResponse  "未加载脚本"
// @Failure      409  {object}  ErrorResponse  "渲染进行中"
// @Router       /api/v1/render [post]
func (h *Handler) StartRender(c *gin.Context) {
	if h.svc.Rendering() {
		respondError(c, apperr.Conflict("a render is already running"))
		return
	}
	timeline, err := h.svc.Timeline()
	if err != nil {
		respondError(c, err)
		return
	}
	if len(timeline) == 0 {
		respondError(c, apperr.Validation("align the narration audio before rendering", nil))
		return
	}

	go func() {
		artifact, err := h.svc.Render(h.jobCtx, nil)
		if err != nil {
			log.Error().Err(err).Msg("render failed")
			return
		}
		log.Info().Str("filename", artifact.Filename).Float64("duration", artifact.Duration).Msg("render finished")
	}()

	respondOK(c, http.StatusAccepted, "渲染已启动", gin.H{"entries": len(timeline)})
}

// DownloadVideo 下载渲染结果
// @Summary      下载渲染结果
// @Tags         渲染
// @Produce      video/mp4
// @Success      200  {file}    binary
// @Failure      404  {object}  ErrorResponse  "尚未渲染"
// @Router       /api/v1/video [get]
func (h *Handler) DownloadVideo(c *gin.Context) {
	video, err := h.svc.Video()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+video.Filename+`"`)
	c.Data(http.StatusOK, video.ContentType, video.Data)
}
