package slideshow

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"slidecast/internal/pkg/apperr"
	slideshowsvc "slidecast/internal/service/slideshow"
)

// SubmitCredentialRequest 提交凭证请求
type SubmitCredentialRequest struct {
	APIKey string      `json:"api_key" binding:"required"` // 图片服务凭证
	Budget json.Number `json:"budget" binding:"required"`  // 本凭证最多生成的图片数（正整数，可为字符串）
}

// SubmitCredential 提交凭证
// @Summary      提交凭证
// @Description  校验凭证并替换当前会话；预算非法时不调用外部校验
// @Tags         会话
// @Accept       json
// @Produce      json
// @Param        request  body      SubmitCredentialRequest  true  "凭证与预算"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Failure      400      {object}  ErrorResponse  "凭证被拒绝或预算非法"
// @Failure      409      {object}  ErrorResponse  "另一个凭证正在校验"
// @Router       /api/v1/session [post]
func (h *Handler) SubmitCredential(c *gin.Context) {
	var req SubmitCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body", err))
		return
	}
	budget, err := slideshowsvc.ParseBudget(req.Budget.String())
	if err != nil {
		respondError(c, err)
		return
	}

	info, err := h.svc.SubmitCredential(c.Request.Context(), req.APIKey, budget)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "凭证已接受", info)
}

// GetSession 获取当前会话
// @Summary      获取当前会话
// @Description  返回会话状态、剩余预算和遮盖后的凭证
// @Tags         会话
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Router       /api/v1/session [get]
func (h *Handler) GetSession(c *gin.Context) {
	respondOK(c, http.StatusOK, "success", h.svc.Session())
}
