package slideshow

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	slideshowsvc "slidecast/internal/service/slideshow"
)

// DownloadManifest 下载清单
// @Summary      下载清单
// @Description  所有脚本行的 JSON 清单，未完成行的批次和时间为 null
// @Tags         导出
// @Produce      json
// @Success      200  {array}   map[string]interface{}
// @Failure      404  {object}  ErrorResponse  "未加载脚本"
// @Router       /api/v1/manifest [get]
func (h *Handler) DownloadManifest(c *gin.Context) {
	data, err := h.svc.Manifest()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+slideshowsvc.ManifestFilename+`"`)
	c.Data(http.StatusOK, "application/json", data)
}

// DownloadBundle 下载图片包
// @Summary      下载图片包
// @Description  zip 包含 manifest.json 和所有已生成的图片
// @Tags         导出
// @Produce      application/zip
// @Success      200  {file}    binary
// @Failure      404  {object}  ErrorResponse  "未加载脚本"
// @Router       /api/v1/bundle [get]
func (h *Handler) DownloadBundle(c *gin.Context) {
	data, err := h.svc.Bundle()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+slideshowsvc.BundleFilename+`"`)
	c.Data(http.StatusOK, "application/zip", data)
}

// Export 导出到存储
// @Summary      导出到存储
// @Description  上传清单、图片包和视频（如有）到配置的存储，并在 MongoDB 中归档
// @Tags         导出
// @Produce      json
// @Success      201  {object}  map[string]interface{}  "成功响应"
// @Failure      400  {object}  ErrorResponse  "未配置存储"
// @Failure      404  {object}  ErrorResponse  "未加载脚本"
// @Failure      502  {object}  ErrorResponse  "上传失败"
// @Router       /api/v1/export [post]
func (h *Handler) Export(c *gin.Context) {
	result, err := h.svc.Export(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "导出成功", result)
}

// ListExports 导出历史
// @Summary      导出历史
// @Tags         导出
// @Produce      json
// @Param        page       query     int  false  "页码（默认1）"
// @Param        page_size  query     int  false  "每页数量（默认20，最大100）"
// @Success      200        {object}  map[string]interface{}  "成功响应"
// @Failure      404        {object}  ErrorResponse  "未加载脚本"
// @Router       /api/v1/exports [get]
func (h *Handler) ListExports(c *gin.Context) {
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	pageSize, _ := strconv.ParseInt(c.DefaultQuery("page_size", "20"), 10, 64)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	records, total, err := h.svc.ExportHistory(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "success", gin.H{
		"exports":   records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetExport 导出记录详情
// @Summary      导出记录详情
// @Tags         导出
// @Produce      json
// @Param        id   path      string  true  "导出ID"
// @Success      200  {object}  map[string]interface{}  "成功响应"
// @Failure      404  {object}  ErrorResponse  "记录不存在"
// @Router       /api/v1/exports/{id} [get]
func (h *Handler) GetExport(c *gin.Context) {
	record, err := h.svc.GetExport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "success", record)
}
