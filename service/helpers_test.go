package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/repository"
)

// storeCall 记录一次存储调用
type storeCall struct {
	Op         string
	Collection string
	Patch      map[string]interface{}
}

// recordingStore 记录所有调用，并可让指定操作失败
type recordingStore struct {
	repository.Store

	mu    sync.Mutex
	calls []storeCall
	fail  map[string]error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Store: repository.NewMemoryStore(), fail: map[string]error{}}
}

func (s *recordingStore) record(op, collection string, patch map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, storeCall{Op: op, Collection: collection, Patch: patch})
	return s.fail[op+":"+collection]
}

// failOn 让 op:collection 的调用返回 err，err 为 nil 时恢复
func (s *recordingStore) failOn(op, collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op+":"+collection)
		return
	}
	s.fail[op+":"+collection] = err
}

func (s *recordingStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *recordingStore) callsOf(ops ...string) []storeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storeCall
	for _, c := range s.calls {
		for _, op := range ops {
			if c.Op == op {
				out = append(out, c)
			}
		}
	}
	return out
}

func (s *recordingStore) writes() []storeCall {
	return s.callsOf("insert", "update", "delete", "decrement")
}

func (s *recordingStore) Find(ctx context.Context, collection string, filters []repository.Filter, out interface{}, sort ...repository.Sort) error {
	if err := s.record("find", collection, nil); err != nil {
		return err
	}
	return s.Store.Find(ctx, collection, filters, out, sort...)
}

func (s *recordingStore) Count(ctx context.Context, collection string, filters []repository.Filter) (int64, error) {
	if err := s.record("count", collection, nil); err != nil {
		return 0, err
	}
	return s.Store.Count(ctx, collection, filters)
}

func (s *recordingStore) Insert(ctx context.Context, collection string, docs ...interface{}) error {
	if err := s.record("insert", collection, nil); err != nil {
		return err
	}
	return s.Store.Insert(ctx, collection, docs...)
}

func (s *recordingStore) Update(ctx context.Context, collection string, patch map[string]interface{}, match []repository.Filter) (int64, error) {
	if err := s.record("update", collection, patch); err != nil {
		return 0, err
	}
	return s.Store.Update(ctx, collection, patch, match)
}

func (s *recordingStore) Delete(ctx context.Context, collection string, match []repository.Filter) (int64, error) {
	if err := s.record("delete", collection, nil); err != nil {
		return 0, err
	}
	return s.Store.Delete(ctx, collection, match)
}

func (s *recordingStore) Decrement(ctx context.Context, collection string, match []repository.Filter, field string, amount int) (int64, error) {
	if err := s.record("decrement", collection, nil); err != nil {
		return 0, err
	}
	return s.Store.Decrement(ctx, collection, match, field, amount)
}

func seed(t *testing.T, s repository.Store, collection string, docs ...interface{}) {
	t.Helper()
	require.NoError(t, s.Insert(context.Background(), collection, docs...))
}

func enquiry(id, stage string) models.Enquiry {
	return models.Enquiry{
		ID:            id,
		Name:          "Customer " + id,
		Stage:         stage,
		AssignedTo:    "u1",
		SalesflowCode: "u1",
		CreatedAt:     time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func findEnquiry(t *testing.T, s repository.Store, id string) models.Enquiry {
	t.Helper()
	var got []models.Enquiry
	require.NoError(t, s.Find(context.Background(), repository.EnquiriesCollection,
		[]repository.Filter{repository.Eq("id", id)}, &got))
	require.Len(t, got, 1)
	return got[0]
}

func loadBoard(t *testing.T, s repository.Store, f BoardFilter) *Board {
	t.Helper()
	b, err := NewBoardLoader(s).Load(context.Background(), f)
	require.NoError(t, err)
	return b
}

func columnIDs(b *Board, columnID string) []string {
	col, ok := b.Column(columnID)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(col.Enquiries))
	for _, e := range col.Enquiries {
		ids = append(ids, e.ID)
	}
	return ids
}

var testOperator = Operator{ID: "u9", Name: "tester"}
