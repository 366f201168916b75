package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/BerniceZTT/sales_pipeline/utils"
)

// 文档以 BSON 形式存放在单表中，按集合名区分，seq 保持插入顺序
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	doc_id TEXT NOT NULL UNIQUE,
	collection TEXT NOT NULL,
	body BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, seq);

CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL
);
`

// SQLiteStore 单机部署使用的嵌入式存储
type SQLiteStore struct {
	db *sql.DB
}

type storedDocument struct {
	id  string
	doc bson.M
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// OpenSQLiteStore 打开（必要时创建）SQLite 数据库，使用 WAL 模式
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("打开SQLite失败: %w", err)
	}

	// 单连接，避免 database is locked，同时让事务串行执行
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化SQLite表结构失败: %w", err)
	}

	utils.Logger.Info().Str("path", path).Msg("已打开SQLite存储")
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) load(ctx context.Context, q queryer, collection string) ([]storedDocument, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT doc_id, body FROM documents
		WHERE collection = ?
		ORDER BY seq
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []storedDocument
	for rows.Next() {
		var (
			id   string
			body []byte
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		var doc bson.M
		if err := bson.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("解码文档 %s 失败: %w", id, err)
		}
		docs = append(docs, storedDocument{id: id, doc: doc})
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) Find(ctx context.Context, collection string, filters []Filter, out interface{}, sort ...Sort) error {
	docs, err := s.load(ctx, s.db, collection)
	if err != nil {
		return err
	}

	var matched []bson.M
	for _, d := range docs {
		if matchDocument(d.doc, filters) {
			matched = append(matched, d.doc)
		}
	}
	sortDocuments(matched, sort)
	return decodeDocuments(matched, out)
}

func (s *SQLiteStore) Count(ctx context.Context, collection string, filters []Filter) (int64, error) {
	docs, err := s.load(ctx, s.db, collection)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, d := range docs {
		if matchDocument(d.doc, filters) {
			n++
		}
	}
	return n, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, collection string, docs ...interface{}) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, d := range docs {
		doc, err := toDocument(d)
		if err != nil {
			return err
		}
		body, err := bson.Marshal(doc)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (doc_id, collection, body) VALUES (?, ?, ?)
		`, uuid.NewString(), collection, body); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// mutate 在单个事务中对匹配的文档逐个执行 fn
func (s *SQLiteStore) mutate(ctx context.Context, collection string, match []Filter, fn func(tx *sql.Tx, d storedDocument) error) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	docs, err := s.load(ctx, tx, collection)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, d := range docs {
		if !matchDocument(d.doc, match) {
			continue
		}
		if err := fn(tx, d); err != nil {
			return 0, err
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) rewrite(ctx context.Context, tx *sql.Tx, d storedDocument) error {
	body, err := bson.Marshal(d.doc)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE documents SET body = ? WHERE doc_id = ?`, body, d.id)
	return err
}

func (s *SQLiteStore) Update(ctx context.Context, collection string, patch map[string]interface{}, match []Filter) (int64, error) {
	return s.mutate(ctx, collection, match, func(tx *sql.Tx, d storedDocument) error {
		if err := applyPatch(d.doc, patch); err != nil {
			return err
		}
		return s.rewrite(ctx, tx, d)
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, collection string, match []Filter) (int64, error) {
	return s.mutate(ctx, collection, match, func(tx *sql.Tx, d storedDocument) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, d.id)
		return err
	})
}

func (s *SQLiteStore) Decrement(ctx context.Context, collection string, match []Filter, field string, amount int) (int64, error) {
	return s.mutate(ctx, collection, match, func(tx *sql.Tx, d storedDocument) error {
		if err := decrementField(d.doc, field, amount); err != nil {
			return err
		}
		return s.rewrite(ctx, tx, d)
	})
}

func (s *SQLiteStore) EnsureCollections(ctx context.Context, names []string) error {
	for _, name := range names {
		res, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO collections (name, created_at) VALUES (?, ?)
		`, name, time.Now())
		if err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			utils.Logger.Info().Str("collection", name).Msg("创建集合成功")
		}
	}
	return nil
}

func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}
