package service

import (
	"context"
	"strings"
	"time"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/repository"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// salesflowSeparator 销售流水码中用户ID的分隔符
const salesflowSeparator = "-"

// SplitSalesflowCode 拆分销售流水码，空串返回空列表
func SplitSalesflowCode(code string) []string {
	if code == "" {
		return []string{}
	}
	return strings.Split(code, salesflowSeparator)
}

// JoinSalesflowCode 拼接销售流水码
func JoinSalesflowCode(participants []string) string {
	return strings.Join(participants, salesflowSeparator)
}

// AuditTrailBuilder 维护销售流水码并发放交接积分
type AuditTrailBuilder struct {
	store repository.Store
	now   func() time.Time
}

func NewAuditTrailBuilder(store repository.Store) *AuditTrailBuilder {
	return &AuditTrailBuilder{store: store, now: time.Now}
}

// RecordHandoff 记录一次负责人交接，返回新的销售流水码
//
// 前任负责人对每个询价单最多获得一次积分；新负责人已在流水码中时不再追加。
func (a *AuditTrailBuilder) RecordHandoff(ctx context.Context, enquiry models.Enquiry, newAssigneeID string) (string, error) {
	if newAssigneeID == "" {
		return "", validationError("记录交接", "新负责人不能为空")
	}

	participants := SplitSalesflowCode(enquiry.SalesflowCode)

	if previous := enquiry.AssignedTo; previous != "" {
		if err := a.awardPoint(ctx, previous, enquiry.ID); err != nil {
			return "", err
		}
	}

	if !contains(participants, newAssigneeID) {
		participants = append(participants, newAssigneeID)
	}

	return JoinSalesflowCode(participants), nil
}

func (a *AuditTrailBuilder) awardPoint(ctx context.Context, userID, enquiryID string) error {
	match := []repository.Filter{
		repository.Eq("user_id", userID),
		repository.Eq("enquiry_id", enquiryID),
	}

	result, err := utils.ExecuteIdempotentStep(
		func() (bool, error) {
			n, err := a.store.Count(ctx, repository.SalesmanPointsCollection, match)
			return n > 0, err
		},
		func() error {
			return a.store.Insert(ctx, repository.SalesmanPointsCollection, models.SalesmanPoint{
				UserID:    userID,
				EnquiryID: enquiryID,
				Points:    1,
				CreatedAt: a.now(),
			})
		},
		0,
	)
	if err != nil {
		return storeError("发放交接积分", err)
	}
	if !result.AlreadyCompleted {
		utils.Logger.Info().
			Str("userId", userID).
			Str("enquiryId", enquiryID).
			Msg("已发放交接积分")
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
