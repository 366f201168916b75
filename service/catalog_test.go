package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/repository"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

func TestCatalogService_ListPipelines(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, repository.PipelinesCollection,
		models.Pipeline{PipelineID: "p2", PipelineName: "Wholesale"},
		models.Pipeline{PipelineID: "p1", PipelineName: "Retail"},
	)

	got, err := NewCatalogService(store).ListPipelines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Pipeline{
		{PipelineID: models.AllPipelinesID, PipelineName: AllPipelinesName},
		{PipelineID: "p1", PipelineName: "Retail"},
		{PipelineID: "p2", PipelineName: "Wholesale"},
	}, got)
}

func TestCatalogService_ListStages(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, repository.PipelineStagesCollection,
		models.PipelineStage{StageID: "s2", PipelineID: "p1", StageName: "Demo", Position: 2},
		models.PipelineStage{StageID: "s1", PipelineID: "p1", StageName: "Qualify", Position: 1},
	)
	svc := NewCatalogService(store)
	ctx := context.Background()

	custom, err := svc.ListStages(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, custom, 2)
	assert.Equal(t, "s1", custom[0].StageID)
	assert.Equal(t, "s2", custom[1].StageID)

	for _, id := range []string{"", models.AllPipelinesID, "p-empty"} {
		stages, err := svc.ListStages(ctx, id)
		require.NoError(t, err)
		require.Len(t, stages, len(models.DefaultStages))
		assert.Equal(t, models.StageLead, stages[0].StageName)
		assert.Equal(t, models.StageCustomerWon, stages[3].StageID)
	}
}

func TestCatalogService_BatchesByProduct(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, repository.BatchesCollection,
		models.Batch{BatchID: "b1", ProductID: "101", BatchCode: "A", CurrentStock: 4},
		models.Batch{BatchID: "b2", ProductID: "102", BatchCode: "B", CurrentStock: 1},
		models.Batch{BatchID: "b3", ProductID: "101", BatchCode: "C", CurrentStock: 2},
	)

	got, err := NewCatalogService(store).BatchesByProduct(context.Background())
	require.NoError(t, err)
	require.Len(t, got["101"], 2)
	assert.Equal(t, "A", got["101"][0].BatchCode)
	assert.Equal(t, "C", got["101"][1].BatchCode)
	assert.Len(t, got["102"], 1)
}

func TestCatalogService_PointsSummary(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, repository.UsersCollection,
		models.User{ID: "u1", Username: "alice"},
		models.User{ID: "u2", Username: "bob"},
	)
	seed(t, store, repository.SalesmanPointsCollection,
		models.SalesmanPoint{UserID: "u2", EnquiryID: "1", Points: 1},
		models.SalesmanPoint{UserID: "u1", EnquiryID: "1", Points: 1},
		models.SalesmanPoint{UserID: "u2", EnquiryID: "2", Points: 1},
		models.SalesmanPoint{UserID: "u3", EnquiryID: "2", Points: 1},
	)

	got, err := NewCatalogService(store).PointsSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.PointsSummary{
		{UserID: "u2", Username: "bob", Points: 2},
		{UserID: "u1", Username: "alice", Points: 1},
		{UserID: "u3", Points: 1},
	}, got)
}

func TestCatalogService_StoreFailure(t *testing.T) {
	store := newRecordingStore()
	store.failOn("find", repository.PipelinesCollection, errors.New("offline"))

	_, err := NewCatalogService(store).ListPipelines(context.Background())
	assert.Equal(t, KindStore, KindOf(err))
}

func TestAuthenticate(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, repository.UsersCollection, models.User{
		ID: "u1", Username: "alice", Password: utils.HashPassword("secret"), Role: models.UserRoleSALES,
	})
	ctx := context.Background()

	user, err := Authenticate(ctx, store, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = Authenticate(ctx, store, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = Authenticate(ctx, store, "nobody", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
