package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/repository"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// IncompleteTasksMessage 负责人仍有未完成任务时的提示
const IncompleteTasksMessage = "This user has incomplete tasks. Please complete existing tasks first."

// TaskService 跟进任务分配，同时完成负责人交接
type TaskService struct {
	store repository.Store
	audit *AuditTrailBuilder
	now   func() time.Time
}

func NewTaskService(store repository.Store, audit *AuditTrailBuilder) *TaskService {
	return &TaskService{store: store, audit: audit, now: time.Now}
}

// TaskAssignment 分配结果
type TaskAssignment struct {
	Task    models.Task    `json:"task"`
	Enquiry models.Enquiry `json:"enquiry"`
}

// GetEnquiry 按ID查询询价单
func (s *TaskService) GetEnquiry(ctx context.Context, enquiryID string) (models.Enquiry, error) {
	var enquiries []models.Enquiry
	err := s.store.Find(ctx, repository.EnquiriesCollection,
		[]repository.Filter{repository.Eq("id", enquiryID)}, &enquiries)
	if err != nil {
		return models.Enquiry{}, storeError("查询询价单", err)
	}
	if len(enquiries) == 0 {
		return models.Enquiry{}, notFoundError("查询询价单", "询价单 "+enquiryID+" 不存在")
	}
	return enquiries[0], nil
}

// HasIncompleteTasks 用户是否有未完成的任务
func (s *TaskService) HasIncompleteTasks(ctx context.Context, userID string) (bool, error) {
	n, err := s.store.Count(ctx, repository.TasksCollection, []repository.Filter{
		repository.Eq("assigned_to", userID),
		repository.Ne("completion_status", models.TaskStatusCompleted),
	})
	if err != nil {
		return false, storeError("查询未完成任务", err)
	}
	return n > 0, nil
}

// Assign 为询价单创建任务并交接给新负责人
func (s *TaskService) Assign(ctx context.Context, enquiryID string, req models.AssignTaskRequest, op Operator) (*TaskAssignment, error) {
	if req.TaskName == "" || req.AssignedTo == "" {
		return nil, validationError("分配任务", "任务名称和负责人不能为空")
	}

	enquiry, err := s.GetEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, err
	}

	stage := req.Stage
	if stage == "" {
		stage = enquiry.Stage
	}
	if enquiry.IsWon() && stage != enquiry.Stage {
		return nil, validationError("分配任务", wonRejectedReason)
	}
	if stage == models.StageCustomerWon && !enquiry.IsWon() {
		return nil, validationError("分配任务", "成交需要在看板中完成成交流程")
	}

	busy, err := s.HasIncompleteTasks(ctx, req.AssignedTo)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, validationError("分配任务", IncompleteTasksMessage)
	}

	now := s.now()
	submission := now.AddDate(0, 0, req.DaysToComplete)
	if req.SubmissionDate != nil {
		submission = *req.SubmissionDate
	}

	code, err := s.audit.RecordHandoff(ctx, enquiry, req.AssignedTo)
	if err != nil {
		return nil, err
	}

	patch := map[string]interface{}{
		"stage":          stage,
		"salesflow_code": code,
		"assignedto":     req.AssignedTo,
		"version":        enquiry.Version + 1,
		"updated_at":     now,
	}
	stageID := enquiry.CurrentStageID
	if stage != enquiry.Stage && enquiry.CurrentStageID != "" {
		stageID, err = s.lookupStageID(ctx, enquiry.PipelineID, stage)
		if err != nil {
			return nil, err
		}
		patch["current_stage_id"] = stageID
	}

	matched, err := s.store.Update(ctx, repository.EnquiriesCollection, patch, []repository.Filter{
		repository.Eq("id", enquiry.ID),
		versionMatch(enquiry.Version),
	})
	if err != nil {
		return nil, storeError("更新询价单负责人", err)
	}
	if matched == 0 {
		return nil, conflictError("更新询价单负责人", "询价单已被其他用户修改，请刷新后重试")
	}

	// 询价单交接成功后再写入任务
	task := models.Task{
		TaskID:           uuid.NewString(),
		TaskName:         req.TaskName,
		TaskMessage:      req.TaskMessage,
		EnquiryID:        enquiry.ID,
		Type:             "product",
		AssignedBy:       op.ID,
		AssignedTo:       req.AssignedTo,
		SubmissionDate:   submission,
		CompletionStatus: models.TaskStatusPending,
		CreatedAt:        now,
	}
	if err := s.store.Insert(ctx, repository.TasksCollection, task); err != nil {
		return nil, storeError("创建任务", err)
	}

	enquiry.Stage = stage
	enquiry.CurrentStageID = stageID
	enquiry.SalesflowCode = code
	enquiry.AssignedTo = req.AssignedTo
	enquiry.Version++
	enquiry.UpdatedAt = now

	utils.LogInfo(map[string]interface{}{
		"enquiryId":  enquiry.ID,
		"taskId":     task.TaskID,
		"assignedTo": req.AssignedTo,
		"operator":   op.ID,
	}, "任务分配完成")

	return &TaskAssignment{Task: task, Enquiry: enquiry}, nil
}

func (s *TaskService) lookupStageID(ctx context.Context, pipelineID, stageName string) (string, error) {
	var stages []models.PipelineStage
	err := s.store.Find(ctx, repository.PipelineStagesCollection, []repository.Filter{
		repository.Eq("pipeline_id", pipelineID),
		repository.Eq("stage_name", stageName),
	}, &stages)
	if err != nil {
		return "", storeError("查询管道阶段", err)
	}
	if len(stages) == 0 {
		return "", validationError("分配任务", "阶段 "+stageName+" 不在询价单的管道中")
	}
	return stages[0].StageID, nil
}
