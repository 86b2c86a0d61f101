package export

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"slidecast/internal/model/export"
	"slidecast/internal/pkg/apperr"
)

// ExportRepository 导出归档仓库接口
type ExportRepository interface {
	Create(ctx context.Context, r *export.Record) error
	FindByID(ctx context.Context, id string) (*export.Record, error)
	ListByProject(ctx context.Context, projectID string, page, pageSize int64) ([]*export.Record, int64, error)
}

// Repo 实现 ExportRepository
type Repo struct {
	coll *mongo.Collection
}

// NewRepo 创建导出仓库
func NewRepo(db *mongo.Database) *Repo {
	var r export.Record
	return &Repo{coll: db.Collection(r.Collection())}
}

// Create 保存导出记录
func (r *Repo) Create(ctx context.Context, rec *export.Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := r.coll.InsertOne(ctx, rec)
	return err
}

// FindByID 根据ID查询
func (r *Repo) FindByID(ctx context.Context, id string) (*export.Record, error) {
	var rec export.Record
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("export not found")
		}
		return nil, err
	}
	return &rec, nil
}

// ListByProject 按创建时间倒序分页查询项目的导出记录
func (r *Repo) ListByProject(ctx context.Context, projectID string, page, pageSize int64) ([]*export.Record, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	filter := bson.M{}
	if projectID != "" {
		filter["project_id"] = projectID
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize)

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var list []*export.Record
	if err := cur.All(ctx, &list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
