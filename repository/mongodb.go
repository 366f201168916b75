package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/BerniceZTT/sales_pipeline/utils"
)

// MongoStore 基于 MongoDB 的存储实现
type MongoStore struct {
	client  *mongo.Client
	db      *mongo.Database
	retries int
}

// NewMongoStore 初始化MongoDB连接
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	// 设置连接超时
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("连接MongoDB失败: %w", err)
	}

	// 检查连接
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping MongoDB失败: %w", err)
	}

	utils.Logger.Info().Str("database", dbName).Msg("已连接到MongoDB")

	return &MongoStore{
		client:  client,
		db:      client.Database(dbName),
		retries: 3,
	}, nil
}

// Close 关闭MongoDB连接
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		utils.Logger.Error().Err(err).Msg("断开MongoDB连接失败")
		return err
	}
	utils.Logger.Info().Msg("已断开MongoDB连接")
	return nil
}

// buildFilter 将通用条件转换为 MongoDB 查询
func buildFilter(filters []Filter) bson.M {
	if len(filters) == 0 {
		return bson.M{}
	}

	parts := make([]bson.M, 0, len(filters))
	for _, f := range filters {
		switch f.Op {
		case OpEq:
			parts = append(parts, bson.M{f.Field: f.Value})
		case OpNe:
			parts = append(parts, bson.M{f.Field: bson.M{"$ne": f.Value}})
		case OpGte:
			parts = append(parts, bson.M{f.Field: bson.M{"$gte": f.Value}})
		case OpLte:
			parts = append(parts, bson.M{f.Field: bson.M{"$lte": f.Value}})
		case OpEqOrNull:
			// {field: nil} 同时匹配 null 和缺失字段
			parts = append(parts, bson.M{"$or": []bson.M{
				{f.Field: f.Value},
				{f.Field: nil},
			}})
		}
	}

	if len(parts) == 1 {
		return parts[0]
	}
	return bson.M{"$and": parts}
}

func buildSort(sorts []Sort) bson.D {
	d := bson.D{}
	for _, s := range sorts {
		dir := 1
		if s.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: s.Field, Value: dir})
	}
	return d
}

func (s *MongoStore) Find(ctx context.Context, collection string, filters []Filter, out interface{}, sort ...Sort) error {
	findOptions := options.Find()
	if len(sort) > 0 {
		findOptions.SetSort(buildSort(sort))
	}

	// 只读操作可以安全重试
	_, err := ExecuteDbOperation(func() (interface{}, error) {
		cursor, err := s.db.Collection(collection).Find(ctx, buildFilter(filters), findOptions)
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)
		return nil, cursor.All(ctx, out)
	}, s.retries)

	utils.LogDbOperation("find", collection, filters, err)
	return err
}

func (s *MongoStore) Count(ctx context.Context, collection string, filters []Filter) (int64, error) {
	// 计数同样只读，与 Find 一样重试
	result, err := ExecuteDbOperation(func() (interface{}, error) {
		return s.db.Collection(collection).CountDocuments(ctx, buildFilter(filters))
	}, s.retries)

	utils.LogDbOperation("count", collection, filters, err)
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func (s *MongoStore) Insert(ctx context.Context, collection string, docs ...interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := s.db.Collection(collection).InsertMany(ctx, docs)
	utils.LogDbOperation("insert", collection, len(docs), err)
	return err
}

func (s *MongoStore) Update(ctx context.Context, collection string, patch map[string]interface{}, match []Filter) (int64, error) {
	res, err := s.db.Collection(collection).UpdateMany(ctx, buildFilter(match), bson.M{"$set": patch})
	utils.LogDbOperation("update", collection, match, err)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (s *MongoStore) Delete(ctx context.Context, collection string, match []Filter) (int64, error) {
	res, err := s.db.Collection(collection).DeleteMany(ctx, buildFilter(match))
	utils.LogDbOperation("delete", collection, match, err)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) Decrement(ctx context.Context, collection string, match []Filter, field string, amount int) (int64, error) {
	res, err := s.db.Collection(collection).UpdateMany(ctx, buildFilter(match), bson.M{"$inc": bson.M{field: -amount}})
	utils.LogDbOperation("decrement", collection, match, err)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// EnsureCollections 初始化数据库集合
func (s *MongoStore) EnsureCollections(ctx context.Context, names []string) error {
	existing, err := s.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("检查集合失败: %w", err)
	}
	exists := make(map[string]bool, len(existing))
	for _, name := range existing {
		exists[name] = true
	}

	for _, collName := range names {
		if exists[collName] {
			utils.Logger.Info().Str("collection", collName).Msg("集合已存在")
			continue
		}
		if err := s.db.CreateCollection(ctx, collName); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		utils.Logger.Info().Str("collection", collName).Msg("创建集合成功")
	}
	return nil
}

// ExecuteDbOperation 执行数据库操作，提供错误处理和重试机制
func ExecuteDbOperation(operation func() (interface{}, error), retries int) (interface{}, error) {
	if retries <= 0 {
		retries = 3
	}

	var lastErr error
	for i := 0; i < retries; i++ {
		result, err := operation()
		if err == nil {
			return result, nil
		}

		lastErr = err
		utils.Logger.Error().Err(err).Msgf("数据库操作失败，重试 (%d/%d)", i+1, retries)

		// 如果是不可重试的错误，立即返回
		if !isRetryableError(err) {
			break
		}

		// 延迟后重试
		time.Sleep(time.Duration(500*(i+1)) * time.Millisecond)
	}

	return nil, lastErr
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	// MongoDB可重试错误代码
	retryableCodes := map[int]bool{
		6:     true, // HostUnreachable
		7:     true, // HostNotFound
		89:    true, // NetworkTimeout
		91:    true, // ShutdownInProgress
		189:   true, // PrimarySteppedDown
		10107: true, // NotMaster
		13436: true, // NotMasterNoSlaveOk
		11600: true, // InterruptedAtShutdown
		11602: true, // InterruptedDueToReplStateChange
		10058: true, // ConnectionReset
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return retryableCodes[int(cmdErr.Code)]
	}

	// 检查常见网络错误
	return isNetworkError(err)
}

// isNetworkError 检查是否是网络错误
func isNetworkError(err error) bool {
	errMsg := strings.ToLower(err.Error())
	networkErrors := []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"no reachable servers",
		"timeout",
		"server selection error",
	}

	for _, ne := range networkErrors {
		if strings.Contains(errMsg, ne) {
			return true
		}
	}

	return false
}
