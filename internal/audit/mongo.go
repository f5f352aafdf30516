package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/snowflowhq/snowflow/config"
)

// =============================================================================
// 🍃 MongoDB 后端
// =============================================================================

// MongoBackend 基于 MongoDB 的审计后端，适合多实例部署与长期留存
type MongoBackend struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoBackend 连接 MongoDB 并初始化审计集合与索引
func NewMongoBackend(cfg config.MongoConfig, logger *zap.Logger) (*MongoBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	collection := client.Database(cfg.Database).Collection(cfg.Collection)

	// 按常用查询维度建索引
	_, err = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "workflow_id", Value: 1}}},
		{Keys: bson.D{{Key: "event_type", Value: 1}}},
	})
	if err != nil {
		logger.Warn("failed to create audit indexes", zap.Error(err))
	}

	logger.Info("mongo audit backend connected",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection),
	)

	return &MongoBackend{
		client:     client,
		collection: collection,
		logger:     logger.With(zap.String("component", "mongo_audit_backend")),
	}, nil
}

// Write 写入一条审计记录
func (m *MongoBackend) Write(ctx context.Context, entry *Entry) error {
	if _, err := m.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// Query 按过滤条件查询审计记录，按时间倒序返回
func (m *MongoBackend) Query(ctx context.Context, filter *Filter) ([]*Entry, error) {
	query := bson.M{}
	if filter.TenantID != "" {
		query["tenant_id"] = filter.TenantID
	}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.WorkflowID != "" {
		query["workflow_id"] = filter.WorkflowID
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		timeRange := bson.M{}
		if filter.StartTime != nil {
			timeRange["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			timeRange["$lte"] = *filter.EndTime
		}
		query["timestamp"] = timeRange
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if filter.Limit > 0 {
		opts = opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts = opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := m.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*Entry
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return results, nil
}

// Close 断开 MongoDB 连接
func (m *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
