package models

// ChartDataItem 图表数据项
type ChartDataItem struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// StageConversion 相邻阶段转化率（百分比，保留一位小数）
type StageConversion struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Rate float64 `json:"rate"`
}

// SalesmanPerformance 销售业绩排行项
type SalesmanPerformance struct {
	UserID         string  `json:"userId"`
	Username       string  `json:"username,omitempty"`
	TotalDeals     int     `json:"totalDeals"`
	WonDeals       int     `json:"wonDeals"`
	LostDeals      int     `json:"lostDeals"`
	PendingDeals   int     `json:"pendingDeals"`
	Points         int     `json:"points"`
	ConversionRate float64 `json:"conversionRate"`
}

// PipelineStatsResponse 管道统计响应结构
type PipelineStatsResponse struct {
	PipelineID  string                `json:"pipelineId"`
	TotalCount  int                   `json:"totalCount"`  // 询价单总数
	WonCount    int                   `json:"wonCount"`    // 成交数
	LostCount   int                   `json:"lostCount"`   // 流失数
	OverallWin  float64               `json:"overallWin"`  // 成交数 / 进行中询价单数
	OverallLoss float64               `json:"overallLoss"` // 流失数 / 询价单总数
	StageCounts []ChartDataItem       `json:"stageCounts"` // 各阶段询价单数，按看板列顺序
	Conversions []StageConversion     `json:"conversions"` // 相邻阶段转化率，不含流失列
	Leaderboard []SalesmanPerformance `json:"leaderboard"` // 按积分降序
}
