package service

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/repository"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// StatsService 数据看板的管道统计
type StatsService struct {
	store   repository.Store
	loader  *BoardLoader
	catalog *CatalogService
}

func NewStatsService(store repository.Store) *StatsService {
	return &StatsService{
		store:   store,
		loader:  NewBoardLoader(store),
		catalog: NewCatalogService(store),
	}
}

// percent 百分比，保留一位小数，分母为0时返回0
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	rate, _ := decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(whole))).
		Round(1).
		Float64()
	return rate
}

// PipelineStats 按看板过滤条件统计各阶段数量、转化率和销售排行
func (s *StatsService) PipelineStats(ctx context.Context, f BoardFilter) (*models.PipelineStatsResponse, error) {
	board, err := s.loader.Load(ctx, f)
	if err != nil {
		return nil, err
	}

	stats := &models.PipelineStatsResponse{
		PipelineID:  f.PipelineID,
		StageCounts: make([]models.ChartDataItem, 0, len(board.Columns)),
		Conversions: []models.StageConversion{},
	}

	var funnel []models.ChartDataItem
	for _, col := range board.Columns {
		item := models.ChartDataItem{Name: col.Name, Value: len(col.Enquiries)}
		stats.StageCounts = append(stats.StageCounts, item)
		if col.Name != models.StageLost {
			funnel = append(funnel, item)
		}
		for _, e := range col.Enquiries {
			switch e.Stage {
			case models.StageCustomerWon:
				stats.WonCount++
			case models.StageLost:
				stats.LostCount++
			}
		}
	}
	stats.TotalCount = board.Count()

	open := stats.TotalCount - stats.WonCount - stats.LostCount
	stats.OverallWin = percent(stats.WonCount, open)
	stats.OverallLoss = percent(stats.LostCount, stats.TotalCount)

	for i := 0; i+1 < len(funnel); i++ {
		stats.Conversions = append(stats.Conversions, models.StageConversion{
			From: funnel[i].Name,
			To:   funnel[i+1].Name,
			Rate: percent(funnel[i+1].Value, funnel[i].Value),
		})
	}

	stats.Leaderboard, err = s.leaderboard(ctx, board)
	if err != nil {
		return nil, err
	}

	utils.LogInfo(map[string]interface{}{
		"pipelineId": f.PipelineID,
		"total":      stats.TotalCount,
		"won":        stats.WonCount,
	}, "管道统计完成")
	return stats, nil
}

// leaderboard 只统计看板中有询价单的负责人，积分取全部交接积分
func (s *StatsService) leaderboard(ctx context.Context, board *Board) ([]models.SalesmanPerformance, error) {
	byUser := make(map[string]*models.SalesmanPerformance)
	for _, col := range board.Columns {
		for _, e := range col.Enquiries {
			if e.AssignedTo == "" {
				continue
			}
			p, ok := byUser[e.AssignedTo]
			if !ok {
				p = &models.SalesmanPerformance{UserID: e.AssignedTo}
				byUser[e.AssignedTo] = p
			}
			p.TotalDeals++
			switch e.Stage {
			case models.StageCustomerWon:
				p.WonDeals++
			case models.StageLost:
				p.LostDeals++
			default:
				p.PendingDeals++
			}
		}
	}
	if len(byUser) == 0 {
		return []models.SalesmanPerformance{}, nil
	}

	points, err := s.catalog.PointsSummary(ctx)
	if err != nil {
		return nil, err
	}
	for _, summary := range points {
		if p, ok := byUser[summary.UserID]; ok {
			p.Points = summary.Points
			p.Username = summary.Username
		}
	}

	var users []models.User
	if err := s.store.Find(ctx, repository.UsersCollection, nil, &users); err != nil {
		return nil, storeError("查询用户", err)
	}
	for _, u := range users {
		if p, ok := byUser[u.ID]; ok && p.Username == "" {
			p.Username = u.Username
		}
	}

	out := make([]models.SalesmanPerformance, 0, len(byUser))
	for _, p := range byUser {
		p.ConversionRate = percent(p.WonDeals, p.TotalDeals)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].WonDeals != out[j].WonDeals {
			return out[i].WonDeals > out[j].WonDeals
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}
