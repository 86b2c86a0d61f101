package slideshow

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"slidecast/internal/model/export"
	"slidecast/internal/model/script"
	"slidecast/internal/pkg/apperr"
	"slidecast/internal/pkg/id"
	"slidecast/internal/pkg/scripttools"
	"slidecast/internal/pkg/storage"
)

const (
	// ManifestFilename 清单文件名
	ManifestFilename = "manifest.json"
	// BundleFilename 打包文件名
	BundleFilename = "slides.zip"
	// bundleImageDir 打包文件中图片所在目录
	bundleImageDir = "images"
)

// ExportArchive 导出记录的持久化，repository/export.Repo 满足该接口
type ExportArchive interface {
	Create(ctx context.Context, record *export.Record) error
	FindByID(ctx context.Context, exportID string) (*export.Record, error)
	ListByProject(ctx context.Context, projectID string, page, pageSize int64) ([]*export.Record, int64, error)
}

// ExportResult 导出结果
type ExportResult struct {
	ExportID  string            `json:"export_id"`
	Artifacts []export.Artifact `json:"artifacts"`
	Archived  bool              `json:"archived"`
}

// Exporter 生成清单与打包文件，并把产物写入存储
type Exporter struct {
	storage storage.Storage
	archive ExportArchive
	nowFn   func() time.Time
}

// NewExporter 创建导出器；storage 与 archive 都可以为 nil
func NewExporter(st storage.Storage, archive ExportArchive) *Exporter {
	return &Exporter{storage: st, archive: archive, nowFn: time.Now}
}

// Enabled 是否配置了导出存储
func (e *Exporter) Enabled() bool {
	return e.storage != nil
}

// Manifest 序列化清单
func (e *Exporter) Manifest(lines []*script.ScriptLine) ([]byte, error) {
	return scripttools.MarshalManifest(scripttools.BuildManifest(lines))
}

// Bundle 打包清单和所有已生成的图片
// 同名图片按出现顺序追加序号，清单中的文件名保持不变
func (e *Exporter) Bundle(lines []*script.ScriptLine) ([]byte, error) {
	manifest, err := e.Manifest(lines)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	if err := writeZipEntry(zw, ManifestFilename, manifest, e.nowFn()); err != nil {
		return nil, err
	}

	used := make(map[string]int)
	for _, line := range lines {
		if !line.HasImage() {
			continue
		}
		name := uniqueName(used, line.Filename)
		modified := e.nowFn()
		if line.CompletedAt != nil {
			modified = *line.CompletedAt
		}
		if err := writeZipEntry(zw, path.Join(bundleImageDir, name), line.Image, modified); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize bundle: %w", err)
	}
	return buf.Bytes(), nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte, modified time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("failed to add %s to bundle: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s to bundle: %w", name, err)
	}
	return nil
}

func uniqueName(used map[string]int, name string) string {
	used[name]++
	n := used[name]
	if n == 1 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
}

type upload struct {
	name        string
	data        []byte
	contentType string
}

// Export 把清单、打包文件和视频（如已渲染）写入存储，并归档导出记录
// 归档失败只记录日志，已上传的对象仍然有效
func (e *Exporter) Export(ctx context.Context, projectID string, lines []*script.ScriptLine, video *scripttools.Artifact) (*ExportResult, error) {
	if e.storage == nil {
		return nil, apperr.Validation("export storage is not configured", nil)
	}

	manifest, err := e.Manifest(lines)
	if err != nil {
		return nil, err
	}
	bundle, err := e.Bundle(lines)
	if err != nil {
		return nil, err
	}

	exportID := id.New()
	result := &ExportResult{ExportID: exportID}

	uploads := []upload{
		{ManifestFilename, manifest, "application/json"},
		{BundleFilename, bundle, "application/zip"},
	}
	if video != nil && len(video.Data) > 0 {
		uploads = append(uploads, upload{video.Filename, video.Data, video.ContentType})
	}

	for _, u := range uploads {
		key := storage.ExportKey(projectID, exportID, u.name)
		url, err := e.storage.Put(ctx, key, bytes.NewReader(u.data), u.contentType)
		if err != nil {
			return nil, apperr.Transient(fmt.Sprintf("failed to upload %s", u.name), err)
		}
		result.Artifacts = append(result.Artifacts, export.Artifact{
			Name:        u.name,
			Key:         key,
			URL:         url,
			ContentType: u.contentType,
			Size:        int64(len(u.data)),
		})
	}

	if e.archive != nil {
		counts := script.CountStatuses(lines)
		record := &export.Record{
			ID:          exportID,
			ProjectID:   projectID,
			Lines:       counts.Total,
			Completed:   counts.Completed,
			StorageType: e.storage.Type(),
			Manifest:    scripttools.BuildManifest(lines),
			Artifacts:   result.Artifacts,
			CreatedAt:   e.nowFn(),
		}
		if video != nil {
			record.Duration = video.Duration
		}
		if err := e.archive.Create(ctx, record); err != nil {
			log.Error().Err(err).Str("export_id", exportID).Msg("failed to archive export record")
		} else {
			result.Archived = true
		}
	}

	log.Info().
		Str("project_id", projectID).
		Str("export_id", exportID).
		Int("artifacts", len(result.Artifacts)).
		Bool("archived", result.Archived).
		Msg("project exported")

	return result, nil
}

// History 项目的导出记录，未配置归档时返回空列表
func (e *Exporter) History(ctx context.Context, projectID string, page, pageSize int64) ([]*export.Record, int64, error) {
	if e.archive == nil {
		return []*export.Record{}, 0, nil
	}
	return e.archive.ListByProject(ctx, projectID, page, pageSize)
}

// Find 查询单条导出记录；其他项目的记录视为不存在
func (e *Exporter) Find(ctx context.Context, projectID, exportID string) (*export.Record, error) {
	if e.archive == nil {
		return nil, apperr.NotFound("export history is not configured")
	}
	record, err := e.archive.FindByID(ctx, exportID)
	if err != nil {
		return nil, err
	}
	if record.ProjectID != projectID {
		return nil, apperr.NotFound("export not found")
	}
	return record, nil
}
