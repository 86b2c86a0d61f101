package scripttools

import (
	"encoding/json"
	"time"

	"slidecast/internal/model/script"
)

// ManifestEntry 导出清单中的一条记录（脚本行在导出时刻的只读投影）
type ManifestEntry struct {
	ScriptLine  string     `json:"script_line" bson:"script_line"`
	PicPrompt   string     `json:"pic_prompt" bson:"pic_prompt"`
	Filename    string     `json:"filename" bson:"filename"`
	Status      string     `json:"status" bson:"status"`
	APIKeyBatch *int       `json:"api_key_batch" bson:"api_key_batch"`
	Timestamp   *time.Time `json:"timestamp" bson:"timestamp"`
}

// BuildManifest 按原始顺序为每一行生成清单记录，无副作用
func BuildManifest(lines []*script.ScriptLine) []ManifestEntry {
	entries := make([]ManifestEntry, 0, len(lines))
	for _, line := range lines {
		entry := ManifestEntry{
			ScriptLine: line.Narration,
			PicPrompt:  line.Prompt,
			Filename:   line.Filename,
			Status:     line.Status.String(),
		}
		if line.Batch > 0 {
			batch := line.Batch
			entry.APIKeyBatch = &batch
		}
		if line.CompletedAt != nil {
			ts := line.CompletedAt.UTC()
			entry.Timestamp = &ts
		}
		entries = append(entries, entry)
	}
	return entries
}

// MarshalManifest 序列化清单为带缩进的 JSON 数组
func MarshalManifest(entries []ManifestEntry) ([]byte, error) {
	if entries == nil {
		entries = []ManifestEntry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}
