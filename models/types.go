package models

import "time"

// UserRole 用户角色枚举
type UserRole string

const (
	UserRoleADMIN             UserRole = "ADMIN"             // 管理员
	UserRoleSALES             UserRole = "SALES"             // 销售人员
	UserRoleTECHNICIAN        UserRole = "TECHNICIAN"        // 技术员
	UserRoleINVENTORY_MANAGER UserRole = "INVENTORY_MANAGER" // 库存管理员
)

// User 用户类型
type User struct {
	ID           string    `bson:"id" json:"id"`
	Username     string    `bson:"username" json:"username"`
	EmployeeCode string    `bson:"employee_code,omitempty" json:"employee_code,omitempty"`
	Password     string    `bson:"password" json:"-"` // 不返回密码
	Role         UserRole  `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// 各种请求和响应结构
type (
	// LoginRequest 登录请求
	LoginRequest struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	// LoginResponse 登录响应
	LoginResponse struct {
		Token string      `json:"token"`
		User  interface{} `json:"user"`
	}

	// MoveRequest 看板拖拽事件
	MoveRequest struct {
		SourceStageID string `json:"sourceStageId" binding:"required"`
		SourceIndex   *int   `json:"sourceIndex" binding:"required"`
		DestStageID   string `json:"destStageId" binding:"required"`
		DestIndex     *int   `json:"destIndex" binding:"required"`
	}

	// ClosingFormRequest 成交表单
	ClosingFormRequest struct {
		BatchCodesByProduct map[string][]string `json:"batchCodesByProduct"`
		SelectedPipelineID  string              `json:"selectedPipelineId"`
		WaitingNumber       string              `json:"waitingNumber"`
		JobCardNumber       string              `json:"jobCardNumber"`
	}

	// ConfirmRequest 成交确认
	ConfirmRequest struct {
		Confirmed bool `json:"confirmed"`
	}

	// AssignTaskRequest 分配任务请求
	AssignTaskRequest struct {
		TaskName       string     `json:"task_name" binding:"required"`
		TaskMessage    string     `json:"task_message"`
		AssignedTo     string     `json:"assigned_to" binding:"required"`
		Stage          string     `json:"stage"`
		DaysToComplete int        `json:"days_to_complete"`
		SubmissionDate *time.Time `json:"submission_date"`
	}
)
