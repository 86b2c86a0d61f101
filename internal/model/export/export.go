package export

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"slidecast/internal/pkg/scripttools"
)

// Artifact 导出的单个对象
type Artifact struct {
	Name        string `bson:"name" json:"name"`                 // 文件名，如 manifest.json
	Key         string `bson:"key" json:"key"`                   // 存储 key
	URL         string `bson:"url" json:"url"`                   // 访问URL
	ContentType string `bson:"content_type" json:"content_type"` // MIME 类型
	Size        int64  `bson:"size" json:"size"`                 // 字节数
}

// Record 一次导出的归档记录
// 保存导出时刻的清单快照以及上传到存储的对象，不含凭证
type Record struct {
	ID          string                      `bson:"id" json:"id"`                     // 导出ID（UUID）
	ProjectID   string                      `bson:"project_id" json:"project_id"`     // 项目ID
	Lines       int                         `bson:"lines" json:"lines"`               // 总行数
	Completed   int                         `bson:"completed" json:"completed"`       // 已完成行数
	Duration    float64                     `bson:"duration" json:"duration"`         // 视频时长（秒），未渲染为 0
	StorageType string                      `bson:"storage_type" json:"storage_type"` // 存储类型
	Manifest    []scripttools.ManifestEntry `bson:"manifest" json:"manifest"`         // 清单快照
	Artifacts   []Artifact                  `bson:"artifacts" json:"artifacts"`       // 已上传对象
	CreatedAt   time.Time                   `bson:"created_at" json:"created_at"`
}

// Collection 返回集合名称
func (r *Record) Collection() string { return "exports" }

// EnsureIndexes 创建和维护索引
func (r *Record) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(r.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "project_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_project_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
