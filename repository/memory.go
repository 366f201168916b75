package repository

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore 进程内存储，用于本地开发和测试
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]bson.M
}

// NewMemoryStore 创建空的内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]bson.M)}
}

func (s *MemoryStore) Find(ctx context.Context, collection string, filters []Filter, out interface{}, sort ...Sort) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []bson.M
	for _, doc := range s.tables[collection] {
		if matchDocument(doc, filters) {
			matched = append(matched, doc)
		}
	}
	sortDocuments(matched, sort)
	return decodeDocuments(matched, out)
}

func (s *MemoryStore) Count(ctx context.Context, collection string, filters []Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, doc := range s.tables[collection] {
		if matchDocument(doc, filters) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Insert(ctx context.Context, collection string, docs ...interface{}) error {
	converted := make([]bson.M, 0, len(docs))
	for _, d := range docs {
		doc, err := toDocument(d)
		if err != nil {
			return err
		}
		converted = append(converted, doc)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[collection] = append(s.tables[collection], converted...)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection string, patch map[string]interface{}, match []Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, doc := range s.tables[collection] {
		if !matchDocument(doc, match) {
			continue
		}
		if err := applyPatch(doc, patch); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection string, match []Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.tables[collection]
	kept := docs[:0]
	var n int64
	for _, doc := range docs {
		if matchDocument(doc, match) {
			n++
			continue
		}
		kept = append(kept, doc)
	}
	s.tables[collection] = kept
	return n, nil
}

func (s *MemoryStore) Decrement(ctx context.Context, collection string, match []Filter, field string, amount int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, doc := range s.tables[collection] {
		if !matchDocument(doc, match) {
			continue
		}
		if err := decrementField(doc, field, amount); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *MemoryStore) EnsureCollections(ctx context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		if _, ok := s.tables[name]; !ok {
			s.tables[name] = nil
		}
	}
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}
