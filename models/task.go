package models

import "time"

// 任务完成状态
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Task 分配给销售人员的跟进任务
type Task struct {
	TaskID           string    `json:"task_id" bson:"task_id"`
	TaskName         string    `json:"task_name" bson:"task_name"`
	TaskMessage      string    `json:"task_message,omitempty" bson:"task_message,omitempty"`
	EnquiryID        string    `json:"enquiry_id" bson:"enquiry_id"`
	Type             string    `json:"type" bson:"type"`
	AssignedBy       string    `json:"assigned_by" bson:"assigned_by"`
	AssignedTo       string    `json:"assigned_to" bson:"assigned_to"`
	SubmissionDate   time.Time `json:"submission_date" bson:"submission_date"`
	CompletionStatus string    `json:"completion_status" bson:"completion_status"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}
