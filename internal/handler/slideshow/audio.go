package slideshow

import (
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"slidecast/internal/model/script"
	"slidecast/internal/pkg/apperr"
)

// 部分音频容器会被识别为视频类型
var audioContainers = map[string]bool{
	"video/mp4":  true,
	"video/webm": true,
	"video/ogg":  true,
}

// UploadAudioResponseData 上传音频响应数据
type UploadAudioResponseData struct {
	FileName string `json:"file_name"` // 文件名
	MIMEType string `json:"mime_type"` // 识别出的 MIME 类型
	FileSize int    `json:"file_size"` // 文件大小
}

// UploadAudio 上传旁白音频
// @Summary      上传旁白音频
// @Description  通过 multipart/form-data 上传音频，按文件内容识别类型；替换音频会清除已有时间轴
// @Tags         对齐
// @Accept       multipart/form-data
// @Produce      json
// @Param        audio  formData  file  true  "旁白音频"
// @Success      201    {object}  map[string]interface{}  "成功响应"
// @Failure      400    {object}  ErrorResponse  "文件缺失、为空或不是音频"
// @Failure      404    {object}  ErrorResponse  "未加载脚本"
// @Router       /api/v1/audio [post]
func (h *Handler) UploadAudio(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	file, err := c.FormFile("audio")
	if err != nil {
		respondError(c, apperr.Validation("invalid audio file", err))
		return
	}

	fileHeader, err := file.Open()
	if err != nil {
		respondError(c, apperr.Validation("failed to open audio file", err))
		return
	}
	defer fileHeader.Close()

	data, err := io.ReadAll(fileHeader)
	if err != nil {
		respondError(c, apperr.Validation("failed to read audio file", err))
		return
	}

	mime := mimetype.Detect(data)
	if !isAudio(mime) {
		respondError(c, apperr.Validation("unsupported audio type: "+mime.String(), nil))
		return
	}

	audio := script.Audio{
		Filename: file.Filename,
		MIMEType: mime.String(),
		Data:     data,
	}
	if err := h.svc.SetAudio(c.Request.Context(), audio); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "音频上传成功", UploadAudioResponseData{
		FileName: file.Filename,
		MIMEType: audio.MIMEType,
		FileSize: len(data),
	})
}

func isAudio(mime *mimetype.MIME) bool {
	for m := mime; m != nil; m = m.Parent() {
		value := m.String()
		if strings.HasPrefix(value, "audio/") || audioContainers[value] {
			return true
		}
	}
	return false
}
