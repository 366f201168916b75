package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/sales_pipeline/models"
)

// storeFactories 内存和 SQLite 存储需要表现一致
func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"sqlite": func() Store {
			s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "store.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close(context.Background()) })
			return s
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, factory())
		})
	}
}

func TestStore_FindPreservesInsertOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, EnquiriesCollection,
			models.Enquiry{ID: "3", Stage: models.StageLead},
			models.Enquiry{ID: "1", Stage: models.StageLead},
			models.Enquiry{ID: "2", Stage: models.StageProspect},
		))

		var got []models.Enquiry
		require.NoError(t, s.Find(ctx, EnquiriesCollection, []Filter{Eq("stage", models.StageLead)}, &got))
		require.Len(t, got, 2)
		assert.Equal(t, "3", got[0].ID)
		assert.Equal(t, "1", got[1].ID)
	})
}

func TestStore_FindSorted(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, PipelineStagesCollection,
			models.PipelineStage{StageID: "c", PipelineID: "p1", StageName: "Closed", Position: 3},
			models.PipelineStage{StageID: "a", PipelineID: "p1", StageName: "New", Position: 1},
			models.PipelineStage{StageID: "b", PipelineID: "p1", StageName: "Demo", Position: 2},
			models.PipelineStage{StageID: "x", PipelineID: "p2", StageName: "Other", Position: 1},
		))

		var got []models.PipelineStage
		require.NoError(t, s.Find(ctx, PipelineStagesCollection, []Filter{Eq("pipeline_id", "p1")}, &got,
			Sort{Field: "position"}))
		require.Len(t, got, 3)
		assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].StageID, got[1].StageID, got[2].StageID})

		require.NoError(t, s.Find(ctx, PipelineStagesCollection, []Filter{Eq("pipeline_id", "p1")}, &got,
			Sort{Field: "position", Desc: true}))
		assert.Equal(t, "c", got[0].StageID)
	})
}

func TestStore_EqOrNullMatchesMissingField(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, EnquiriesCollection,
			models.Enquiry{ID: "own", PipelineID: "p1"},
			models.Enquiry{ID: "none"},
			models.Enquiry{ID: "other", PipelineID: "p2"},
		))

		var got []models.Enquiry
		require.NoError(t, s.Find(ctx, EnquiriesCollection, []Filter{EqOrNull("pipeline_id", "p1")}, &got))
		require.Len(t, got, 2)
		assert.Equal(t, "own", got[0].ID)
		assert.Equal(t, "none", got[1].ID)
	})
}

func TestStore_DateRange(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
		require.NoError(t, s.Insert(ctx, EnquiriesCollection,
			models.Enquiry{ID: "early", CreatedAt: base.AddDate(0, 0, -5)},
			models.Enquiry{ID: "mid", CreatedAt: base},
			models.Enquiry{ID: "late", CreatedAt: base.AddDate(0, 0, 5)},
		))

		var got []models.Enquiry
		require.NoError(t, s.Find(ctx, EnquiriesCollection, []Filter{
			Gte("created_at", base.AddDate(0, 0, -1)),
			Lte("created_at", base.AddDate(0, 0, 1)),
		}, &got))
		require.Len(t, got, 1)
		assert.Equal(t, "mid", got[0].ID)
	})
}

func TestStore_UpdateWithVersionGuard(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, EnquiriesCollection, models.Enquiry{ID: "1", Stage: models.StageLead}))

		match := []Filter{Eq("id", "1"), EqOrNull("version", int64(0))}
		n, err := s.Update(ctx, EnquiriesCollection, map[string]interface{}{
			"stage":   models.StageProspect,
			"version": int64(1),
		}, match)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		// 旧版本再次更新不会命中
		n, err = s.Update(ctx, EnquiriesCollection, map[string]interface{}{"stage": models.StageLost}, match)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		var got []models.Enquiry
		require.NoError(t, s.Find(ctx, EnquiriesCollection, []Filter{Eq("id", "1")}, &got))
		require.Len(t, got, 1)
		assert.Equal(t, models.StageProspect, got[0].Stage)
		assert.Equal(t, int64(1), got[0].Version)
	})
}

func TestStore_DecrementAndDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, ProductsCollection,
			models.Product{ProductID: "101", ProductName: "Filter", CurrentStock: 5},
			models.Product{ProductID: "102", ProductName: "Pump", CurrentStock: 1},
		))

		n, err := s.Decrement(ctx, ProductsCollection, []Filter{Eq("product_id", "101")}, "current_stock", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = s.Decrement(ctx, ProductsCollection, []Filter{Eq("product_id", "999")}, "current_stock", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		var products []models.Product
		require.NoError(t, s.Find(ctx, ProductsCollection, []Filter{Eq("product_id", "101")}, &products))
		require.Len(t, products, 1)
		assert.Equal(t, 3, products[0].CurrentStock)

		deleted, err := s.Delete(ctx, ProductsCollection, []Filter{Eq("product_id", "102")})
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		count, err := s.Count(ctx, ProductsCollection, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestStore_CountNotEqual(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Insert(ctx, TasksCollection,
			models.Task{TaskID: "t1", AssignedTo: "u1", CompletionStatus: models.TaskStatusCompleted},
			models.Task{TaskID: "t2", AssignedTo: "u1", CompletionStatus: models.TaskStatusPending},
			models.Task{TaskID: "t3", AssignedTo: "u2", CompletionStatus: models.TaskStatusPending},
		))

		n, err := s.Count(ctx, TasksCollection, []Filter{
			Eq("assigned_to", "u1"),
			Ne("completion_status", models.TaskStatusCompleted),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestStore_FindRequiresSlicePointer(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		var single models.Enquiry
		err := s.Find(context.Background(), EnquiriesCollection, nil, &single)
		assert.ErrorIs(t, err, ErrInvalidResult)
	})
}

func TestStore_EnsureCollectionsIsRepeatable(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.EnsureCollections(ctx, Collections))
		require.NoError(t, s.EnsureCollections(ctx, Collections))
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sales.db")
	ctx := context.Background()

	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, PipelinesCollection, models.Pipeline{PipelineID: "p1", PipelineName: "Standard"}))
	require.NoError(t, s.Close(ctx))

	s, err = OpenSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close(ctx)

	var pipelines []models.Pipeline
	require.NoError(t, s.Find(ctx, PipelinesCollection, nil, &pipelines))
	require.Len(t, pipelines, 1)
	assert.Equal(t, "Standard", pipelines[0].PipelineName)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "redis"})
	assert.Error(t, err)
}

func TestInitializeAdminAccount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, InitializeAdminAccount(ctx, s, "secret"))
	require.NoError(t, InitializeAdminAccount(ctx, s, "secret"))

	var users []models.User
	require.NoError(t, s.Find(ctx, UsersCollection, nil, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, models.UserRoleADMIN, users[0].Role)
	assert.NotEqual(t, "secret", users[0].Password)

	status := GetDatabaseStatus(ctx, s)
	assert.Equal(t, map[string]interface{}{"count": int64(1)}, status[UsersCollection])
}
