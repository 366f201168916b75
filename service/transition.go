package service

import (
	"context"
	"time"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/repository"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// TransitionStatus 阶段流转结果
type TransitionStatus string

const (
	StatusCommitted      TransitionStatus = "committed"
	StatusPendingClosing TransitionStatus = "pending_closing"
	StatusRejected       TransitionStatus = "rejected"
)

// wonRejectedReason 已成交询价单不能通过拖拽重新打开
const wonRejectedReason = "已成交的询价单不能移动到其他阶段"

// Operator 发起操作的用户
type Operator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TransitionResult 一次阶段流转请求的结果
type TransitionResult struct {
	Status    TransitionStatus `json:"status"`
	EnquiryID string           `json:"enquiryId"`
	ClosingID string           `json:"closingId,omitempty"`
	Reason    string           `json:"reason,omitempty"`

	// Closing 在 StatusPendingClosing 时为新开启的成交流程
	Closing *ClosingWorkflow `json:"-"`
}

// TransitionController 所有阶段变更的唯一入口
type TransitionController struct {
	store repository.Store
	now   func() time.Time
}

func NewTransitionController(store repository.Store) *TransitionController {
	return &TransitionController{store: store, now: time.Now}
}

// versionMatch 乐观锁条件，版本为0时兼容没有 version 字段的旧数据
func versionMatch(expected int64) repository.Filter {
	if expected == 0 {
		return repository.EqOrNull("version", int64(0))
	}
	return repository.Eq("version", expected)
}

// RequestTransition 校验并执行一次拖拽
//
// 返回的 Board 是调用方应展示的看板。存储失败时仍返回乐观更新后的看板，
// 由调用方决定是否重新加载。
func (c *TransitionController) RequestTransition(ctx context.Context, board *Board, m Move, op Operator) (TransitionResult, *Board, error) {
	enquiry, err := board.At(m.SourceStageID, m.SourceIndex)
	if err != nil {
		return TransitionResult{}, board, err
	}
	src, _ := board.Column(m.SourceStageID)
	dst, ok := board.Column(m.DestStageID)
	if !ok {
		return TransitionResult{}, board, validationError("阶段流转", "目标阶段 "+m.DestStageID+" 不存在")
	}

	result := TransitionResult{EnquiryID: enquiry.ID}

	if src.Name == models.StageCustomerWon && dst.Name != models.StageCustomerWon {
		utils.Logger.Info().
			Str("enquiryId", enquiry.ID).
			Str("destStage", dst.Name).
			Msg("拒绝已成交询价单的阶段变更")
		result.Status = StatusRejected
		result.Reason = wonRejectedReason
		return result, board, nil
	}

	next, err := board.ApplyLocalMove(m)
	if err != nil {
		return TransitionResult{}, board, err
	}

	if m.SameColumn() {
		result.Status = StatusCommitted
		return result, next, nil
	}

	if dst.Name == models.StageCustomerWon {
		target := StageTarget{Name: dst.Name}
		if board.Custom {
			target.ID = dst.ID
		}
		closing := NewClosingWorkflow(c.store, enquiry, m, target, op)
		result.Status = StatusPendingClosing
		result.ClosingID = closing.ID()
		result.Closing = closing
		utils.Logger.Info().
			Str("enquiryId", enquiry.ID).
			Str("closingId", closing.ID()).
			Msg("进入成交流程")
		return result, next, nil
	}

	now := c.now()
	patch := map[string]interface{}{
		"stage":      dst.Name,
		"version":    enquiry.Version + 1,
		"updated_at": now,
	}
	if board.Custom {
		patch["current_stage_id"] = dst.ID
	}

	matched, err := c.store.Update(ctx, repository.EnquiriesCollection, patch, []repository.Filter{
		repository.Eq("id", enquiry.ID),
		versionMatch(enquiry.Version),
	})
	if err != nil {
		utils.LogError2("更新询价单阶段失败", err, map[string]interface{}{
			"enquiryId": enquiry.ID,
			"from":      src.Name,
			"to":        dst.Name,
			"operator":  op.ID,
		})
		return result, next, storeError("更新询价单阶段", err)
	}
	if matched == 0 {
		utils.Logger.Warn().
			Str("enquiryId", enquiry.ID).
			Int64("version", enquiry.Version).
			Msg("询价单已被其他会话修改")
		return result, next, conflictError("更新询价单阶段", "询价单已被其他用户修改，请刷新后重试")
	}

	next = next.UpdateEnquiry(enquiry.ID, func(e *models.Enquiry) {
		e.Version++
		e.UpdatedAt = now
	})

	utils.LogInfo(map[string]interface{}{
		"enquiryId": enquiry.ID,
		"from":      src.Name,
		"to":        dst.Name,
		"operator":  op.ID,
	}, "询价单阶段已更新")

	result.Status = StatusCommitted
	return result, next, nil
}
