package service

import (
	"context"
	"sort"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/repository"
)

// AllPipelinesName 虚拟“全部管道”的显示名
const AllPipelinesName = "All Pipelines"

// CatalogService 看板和成交表单用到的只读数据
type CatalogService struct {
	store repository.Store
}

func NewCatalogService(store repository.Store) *CatalogService {
	return &CatalogService{store: store}
}

// ListPipelines 列出管道，首项为“全部管道”
func (s *CatalogService) ListPipelines(ctx context.Context) ([]models.Pipeline, error) {
	var pipelines []models.Pipeline
	if err := s.store.Find(ctx, repository.PipelinesCollection, nil, &pipelines,
		repository.Sort{Field: "pipeline_name"}); err != nil {
		return nil, storeError("查询管道", err)
	}
	return append([]models.Pipeline{{PipelineID: models.AllPipelinesID, PipelineName: AllPipelinesName}}, pipelines...), nil
}

// ListStages 按位置列出管道阶段，全部管道或没有自定义阶段时返回默认阶段
func (s *CatalogService) ListStages(ctx context.Context, pipelineID string) ([]models.PipelineStage, error) {
	var stages []models.PipelineStage
	if pipelineID != "" && pipelineID != models.AllPipelinesID {
		err := s.store.Find(ctx, repository.PipelineStagesCollection,
			[]repository.Filter{repository.Eq("pipeline_id", pipelineID)},
			&stages, repository.Sort{Field: "position"})
		if err != nil {
			return nil, storeError("查询管道阶段", err)
		}
	}
	if len(stages) > 0 {
		return stages, nil
	}

	for i, name := range models.DefaultStages {
		stages = append(stages, models.PipelineStage{
			StageID:    name,
			PipelineID: pipelineID,
			StageName:  name,
			Position:   i + 1,
		})
	}
	return stages, nil
}

// BatchesByProduct 按产品分组的批次，供成交表单选择批次号
func (s *CatalogService) BatchesByProduct(ctx context.Context) (map[string][]models.Batch, error) {
	var batches []models.Batch
	if err := s.store.Find(ctx, repository.BatchesCollection, nil, &batches); err != nil {
		return nil, storeError("查询批次", err)
	}

	grouped := make(map[string][]models.Batch)
	for _, b := range batches {
		grouped[b.ProductID] = append(grouped[b.ProductID], b)
	}
	return grouped, nil
}

// PointsSummary 每个用户的积分合计，按积分降序
func (s *CatalogService) PointsSummary(ctx context.Context) ([]models.PointsSummary, error) {
	var points []models.SalesmanPoint
	if err := s.store.Find(ctx, repository.SalesmanPointsCollection, nil, &points); err != nil {
		return nil, storeError("查询积分", err)
	}

	var users []models.User
	if err := s.store.Find(ctx, repository.UsersCollection, nil, &users); err != nil {
		return nil, storeError("查询用户", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	totals := make(map[string]int)
	for _, p := range points {
		totals[p.UserID] += p.Points
	}

	summary := make([]models.PointsSummary, 0, len(totals))
	for userID, total := range totals {
		summary = append(summary, models.PointsSummary{
			UserID:   userID,
			Username: names[userID],
			Points:   total,
		})
	}
	sort.Slice(summary, func(i, j int) bool {
		if summary[i].Points != summary[j].Points {
			return summary[i].Points > summary[j].Points
		}
		return summary[i].UserID < summary[j].UserID
	})
	return summary, nil
}
