package repository

import (
	"context"
	"fmt"
)

// 存储驱动
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Options 打开存储所需的参数
type Options struct {
	Driver     string
	MongoURI   string
	MongoDB    string
	SQLitePath string
}

// Open 按驱动名打开存储
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMongo, "":
		return NewMongoStore(ctx, opts.MongoURI, opts.MongoDB)
	case DriverSQLite:
		return OpenSQLiteStore(opts.SQLitePath)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("未知的存储驱动: %s", opts.Driver)
	}
}
