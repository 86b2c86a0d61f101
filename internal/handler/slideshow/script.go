package slideshow

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"slidecast/internal/pkg/apperr"
)

// LoadScriptRequest 加载脚本请求（JSON）
type LoadScriptRequest struct {
	Content string `json:"content" binding:"required"` // 脚本全文，每行 "旁白|提示词"
}

// LoadScript 加载脚本
// @Summary      加载脚本
// @Description  解析脚本并替换当前项目。请求体可以是纯文本，也可以是 JSON {"content": "..."}；批处理运行中返回 409
// @Tags         幻灯片
// @Accept       plain
// @Accept       json
// @Produce      json
// @Param        request  body      LoadScriptRequest  false  "脚本内容"
// @Success      201      {object}  map[string]interface{}  "成功响应"
// @Failure      400      {object}  ErrorResponse  "脚本为空或无法解析"
// @Failure      409      {object}  ErrorResponse  "批处理运行中"
// @Router       /api/v1/script [post]
func (h *Handler) LoadScript(c *gin.Context) {
	var content string
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req LoadScriptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperr.Validation("invalid request body", err))
			return
		}
		content = req.Content
	} else {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload))
		if err != nil {
			respondError(c, apperr.Validation("failed to read script body", err))
			return
		}
		content = string(body)
	}

	view, err := h.svc.LoadScript(c.Request.Context(), content)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "脚本加载成功", view)
}

// ListLines 获取脚本行
// @Summary      获取脚本行
// @Tags         幻灯片
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Failure      404  {object}  ErrorResponse  "未加载脚本"
// @Router       /api/v1/lines [get]
func (h *Handler) ListLines(c *gin.Context) {
	lines, err := h.svc.Lines()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "success", gin.H{
		"lines": toLineInfoList(lines),
		"total": len(lines),
	})
}

// ResetLine 重置一行为待生成
// @Summary      重置脚本行
// @Description  把失败或已完成的行改回 pending，下次批处理会重新生成
// @Tags         幻灯片
// @Produce      json
// @Param        index  path      int  true  "行序号（从0开始）"
// @Success      200    {object}  map[string]interface{}  "成功响应"
// @Failure      400    {object}  ErrorResponse  "序号非法"
// @Failure      404    {object}  ErrorResponse  "行不存在"
// @Failure      409    {object}  ErrorResponse  "批处理运行中"
// @Router       /api/v1/lines/{index}/reset [post]
func (h *Handler) ResetLine(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondError(c, apperr.Validation("line index must be an integer", err))
		return
	}
	line, err := h.svc.ResetLine(c.Request.Context(), index)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "success", toLineInfo(line))
}
