package service

import (
	"context"
	"fmt"
	"time"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/repository"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// Column 看板中的一列（阶段）
type Column struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Enquiries []models.Enquiry `json:"enquiries"`
}

// Board 按阶段分组的询价单视图
//
// Board 是不可变值：ApplyLocalMove、RevertLocalMove 和 UpdateEnquiry
// 都返回新的 Board，接收者保持不变。
type Board struct {
	PipelineID string   `json:"pipelineId"`
	Custom     bool     `json:"custom"`
	Columns    []Column `json:"columns"`
}

// BoardFilter 加载看板的过滤条件
type BoardFilter struct {
	PipelineID    string
	AssignedTo    string
	From          *time.Time
	To            *time.Time
	CompletedOnly bool
}

// Move 一次拖拽：从源列的某个位置移动到目标列的某个位置
type Move struct {
	SourceStageID string `json:"sourceStageId"`
	SourceIndex   int    `json:"sourceIndex"`
	DestStageID   string `json:"destStageId"`
	DestIndex     int    `json:"destIndex"`
}

// Inverse 返回撤销本次移动所需的移动
func (m Move) Inverse() Move {
	return Move{
		SourceStageID: m.DestStageID,
		SourceIndex:   m.DestIndex,
		DestStageID:   m.SourceStageID,
		DestIndex:     m.SourceIndex,
	}
}

// SameColumn 是否为同列内排序
func (m Move) SameColumn() bool {
	return m.SourceStageID == m.DestStageID
}

// BoardLoader 从存储加载看板
type BoardLoader struct {
	store repository.Store
}

func NewBoardLoader(store repository.Store) *BoardLoader {
	return &BoardLoader{store: store}
}

// Load 查询询价单并按阶段分组，保持存储返回的顺序
func (l *BoardLoader) Load(ctx context.Context, f BoardFilter) (*Board, error) {
	board := &Board{PipelineID: f.PipelineID}

	var filters []repository.Filter
	if f.PipelineID != "" && f.PipelineID != models.AllPipelinesID {
		filters = append(filters, repository.EqOrNull("pipeline_id", f.PipelineID))

		var stages []models.PipelineStage
		err := l.store.Find(ctx, repository.PipelineStagesCollection,
			[]repository.Filter{repository.Eq("pipeline_id", f.PipelineID)},
			&stages, repository.Sort{Field: "position"})
		if err != nil {
			return nil, storeError("加载管道阶段", err)
		}
		for _, s := range stages {
			board.Columns = append(board.Columns, Column{ID: s.StageID, Name: s.StageName})
		}
		board.Custom = len(stages) > 0
	}
	if !board.Custom {
		for _, name := range models.DefaultStages {
			board.Columns = append(board.Columns, Column{ID: name, Name: name})
		}
	}

	if f.AssignedTo != "" {
		filters = append(filters, repository.Eq("assignedto", f.AssignedTo))
	}
	if f.From != nil {
		filters = append(filters, repository.Gte("created_at", *f.From))
	}
	if f.To != nil {
		filters = append(filters, repository.Lte("created_at", *f.To))
	}
	if f.CompletedOnly {
		filters = append(filters, repository.Eq("stage", models.StageCustomerWon))
	}

	var enquiries []models.Enquiry
	if err := l.store.Find(ctx, repository.EnquiriesCollection, filters, &enquiries); err != nil {
		return nil, storeError("加载询价单", err)
	}

	dropped := 0
	for _, e := range enquiries {
		idx := board.columnFor(e)
		if idx < 0 {
			dropped++
			continue
		}
		board.Columns[idx].Enquiries = append(board.Columns[idx].Enquiries, e)
	}
	if dropped > 0 {
		utils.Logger.Debug().
			Str("pipelineId", f.PipelineID).
			Int("dropped", dropped).
			Msg("部分询价单阶段不在当前看板中")
	}

	return board, nil
}

func (b *Board) columnFor(e models.Enquiry) int {
	if b.Custom && e.CurrentStageID != "" {
		for i, c := range b.Columns {
			if c.ID == e.CurrentStageID {
				return i
			}
		}
	}
	for i, c := range b.Columns {
		if c.Name == e.Stage {
			return i
		}
	}
	return -1
}

// Count 看板中询价单总数
func (b *Board) Count() int {
	n := 0
	for _, c := range b.Columns {
		n += len(c.Enquiries)
	}
	return n
}

// Column 按ID查找列
func (b *Board) Column(id string) (*Column, bool) {
	for i := range b.Columns {
		if b.Columns[i].ID == id {
			return &b.Columns[i], true
		}
	}
	return nil, false
}

// Find 查找询价单所在的列和位置
func (b *Board) Find(enquiryID string) (columnID string, index int, ok bool) {
	for _, c := range b.Columns {
		for i, e := range c.Enquiries {
			if e.ID == enquiryID {
				return c.ID, i, true
			}
		}
	}
	return "", -1, false
}

// At 返回指定列指定位置的询价单
func (b *Board) At(columnID string, index int) (models.Enquiry, error) {
	col, ok := b.Column(columnID)
	if !ok {
		return models.Enquiry{}, validationError("定位询价单", fmt.Sprintf("阶段 %s 不存在", columnID))
	}
	if index < 0 || index >= len(col.Enquiries) {
		return models.Enquiry{}, validationError("定位询价单", fmt.Sprintf("位置 %d 超出阶段 %s 的范围", index, columnID))
	}
	return col.Enquiries[index], nil
}

func (b *Board) clone() *Board {
	out := &Board{
		PipelineID: b.PipelineID,
		Custom:     b.Custom,
		Columns:    make([]Column, len(b.Columns)),
	}
	for i, c := range b.Columns {
		out.Columns[i] = Column{
			ID:        c.ID,
			Name:      c.Name,
			Enquiries: append([]models.Enquiry(nil), c.Enquiries...),
		}
	}
	return out
}

// ApplyLocalMove 乐观地移动一张卡片，返回新看板
func (b *Board) ApplyLocalMove(m Move) (*Board, error) {
	src, ok := b.Column(m.SourceStageID)
	if !ok {
		return nil, validationError("移动询价单", fmt.Sprintf("源阶段 %s 不存在", m.SourceStageID))
	}
	dst, ok := b.Column(m.DestStageID)
	if !ok {
		return nil, validationError("移动询价单", fmt.Sprintf("目标阶段 %s 不存在", m.DestStageID))
	}
	if m.SourceIndex < 0 || m.SourceIndex >= len(src.Enquiries) {
		return nil, validationError("移动询价单", fmt.Sprintf("源位置 %d 超出范围", m.SourceIndex))
	}
	limit := len(dst.Enquiries)
	if m.SameColumn() {
		limit--
	}
	if m.DestIndex < 0 || m.DestIndex > limit {
		return nil, validationError("移动询价单", fmt.Sprintf("目标位置 %d 超出范围", m.DestIndex))
	}

	next := b.clone()
	from, _ := next.Column(m.SourceStageID)
	item := from.Enquiries[m.SourceIndex]
	from.Enquiries = append(from.Enquiries[:m.SourceIndex:m.SourceIndex], from.Enquiries[m.SourceIndex+1:]...)

	to, _ := next.Column(m.DestStageID)
	item.Stage = to.Name
	if next.Custom {
		item.CurrentStageID = to.ID
	}
	to.Enquiries = append(to.Enquiries, models.Enquiry{})
	copy(to.Enquiries[m.DestIndex+1:], to.Enquiries[m.DestIndex:])
	to.Enquiries[m.DestIndex] = item

	return next, nil
}

// RevertLocalMove 撤销 ApplyLocalMove，卡片回到源列的源位置
func (b *Board) RevertLocalMove(m Move) (*Board, error) {
	return b.ApplyLocalMove(m.Inverse())
}

// UpdateEnquiry 返回对指定询价单应用 fn 后的新看板，不存在时返回原看板
func (b *Board) UpdateEnquiry(enquiryID string, fn func(e *models.Enquiry)) *Board {
	columnID, index, ok := b.Find(enquiryID)
	if !ok {
		return b
	}
	next := b.clone()
	col, _ := next.Column(columnID)
	fn(&col.Enquiries[index])
	return next
}
