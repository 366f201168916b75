package repository

import (
	"context"
	"errors"
)

const (
	// 集合名
	UsersCollection            = "users"
	EnquiriesCollection        = "enquiries"
	PipelinesCollection        = "pipelines"
	PipelineStagesCollection   = "pipeline_stages"
	ProductsCollection         = "products"
	BatchesCollection          = "batches"
	PrintedBillsCollection     = "printed_bills"
	SoldProductsCollection     = "sold_products"
	SalesmanPointsCollection   = "salesman_points"
	TasksCollection            = "tasks"
	InventoryRecordsCollection = "inventory_records"
	ApiOperationLogsCollection = "apiOperationLogs"
)

// Collections 所有业务集合
var Collections = []string{
	UsersCollection,
	EnquiriesCollection,
	PipelinesCollection,
	PipelineStagesCollection,
	ProductsCollection,
	BatchesCollection,
	PrintedBillsCollection,
	SoldProductsCollection,
	SalesmanPointsCollection,
	TasksCollection,
	InventoryRecordsCollection,
	ApiOperationLogsCollection,
}

// ErrInvalidResult Find 的输出参数不是切片指针
var ErrInvalidResult = errors.New("repository: result must be a pointer to a slice")

// Operator 过滤操作符
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpGte      Operator = "gte"
	OpLte      Operator = "lte"
	OpEqOrNull Operator = "eq_or_null" // 字段等于给定值或为空/缺失
)

// Filter 单个字段条件，多个条件之间为 AND
type Filter struct {
	Field string
	Op    Operator
	Value interface{}
}

func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpEq, Value: value}
}

func Ne(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpNe, Value: value}
}

func Gte(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpGte, Value: value}
}

func Lte(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpLte, Value: value}
}

func EqOrNull(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpEqOrNull, Value: value}
}

// Sort 排序条件，未指定时保持存储顺序
type Sort struct {
	Field string
	Desc  bool
}

// Store 通用持久化接口
//
// 所有写操作互相独立，不提供跨集合事务。
type Store interface {
	// Find 查询匹配的文档并解码到 out（切片指针）
	Find(ctx context.Context, collection string, filters []Filter, out interface{}, sort ...Sort) error
	// Count 统计匹配的文档数
	Count(ctx context.Context, collection string, filters []Filter) (int64, error)
	// Insert 插入一个或多个文档
	Insert(ctx context.Context, collection string, docs ...interface{}) error
	// Update 对匹配的文档设置字段，返回匹配数
	Update(ctx context.Context, collection string, patch map[string]interface{}, match []Filter) (int64, error)
	// Delete 删除匹配的文档，返回删除数
	Delete(ctx context.Context, collection string, match []Filter) (int64, error)
	// Decrement 原子地将匹配文档的数值字段减去 amount，返回匹配数
	Decrement(ctx context.Context, collection string, match []Filter, field string, amount int) (int64, error)
	// EnsureCollections 确保集合存在
	EnsureCollections(ctx context.Context, names []string) error
	// Close 释放连接
	Close(ctx context.Context) error
}
