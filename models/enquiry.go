package models

import "time"

// 固定销售阶段（默认管道）
const (
	StageLead        = "Lead"
	StageProspect    = "Prospect"
	StageOpportunity = "Opportunity"
	StageCustomerWon = "Customer-Won"
	StageLost        = "Lost/Rejected"
)

// DefaultStages 默认管道的阶段顺序
var DefaultStages = []string{
	StageLead,
	StageProspect,
	StageOpportunity,
	StageCustomerWon,
	StageLost,
}

// IsDefaultStage 判断是否为默认管道阶段
func IsDefaultStage(stage string) bool {
	for _, s := range DefaultStages {
		if s == stage {
			return true
		}
	}
	return false
}

// EnquiryProduct 询价单中的产品快照（非实时引用）
type EnquiryProduct struct {
	ProductName string  `json:"product_name" bson:"product_name"`
	Price       float64 `json:"price" bson:"price"`
	Quantity    int     `json:"quantity" bson:"quantity"`
}

// Enquiry 销售询价单
type Enquiry struct {
	ID             string                    `json:"id" bson:"id"`
	Name           string                    `json:"name" bson:"name"`
	MobileNumber   string                    `json:"mobilenumber1,omitempty" bson:"mobilenumber1,omitempty"`
	Stage          string                    `json:"stage" bson:"stage"`
	CurrentStageID string                    `json:"current_stage_id,omitempty" bson:"current_stage_id,omitempty"`
	AssignedTo     string                    `json:"assignedto,omitempty" bson:"assignedto,omitempty"`
	SalesflowCode  string                    `json:"salesflow_code" bson:"salesflow_code"`
	Products       map[string]EnquiryProduct `json:"products,omitempty" bson:"products,omitempty"`
	WonDate        *time.Time                `json:"won_date,omitempty" bson:"won_date,omitempty"`
	WonBillID      string                    `json:"won_bill_id,omitempty" bson:"won_bill_id,omitempty"`
	PipelineID     string                    `json:"pipeline_id,omitempty" bson:"pipeline_id,omitempty"`
	Priority       string                    `json:"priority,omitempty" bson:"priority,omitempty"`
	Remarks        string                    `json:"remarks,omitempty" bson:"remarks,omitempty"`
	Invoiced       bool                      `json:"invoiced" bson:"invoiced"`
	Collected      bool                      `json:"collected" bson:"collected"`
	Version        int64                     `json:"version" bson:"version"`
	CreatedAt      time.Time                 `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at" bson:"updated_at"`
}

// IsWon 是否已成交
func (e *Enquiry) IsWon() bool {
	return e.Stage == StageCustomerWon
}

// UnitCount 询价单中产品的总件数
func (e *Enquiry) UnitCount() int {
	total := 0
	for _, p := range e.Products {
		total += p.Quantity
	}
	return total
}
