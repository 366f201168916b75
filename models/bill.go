package models

import "time"

// BillLine 账单中的单个产品行
type BillLine struct {
	ProductID   string   `json:"product_id" bson:"product_id"`
	ProductName string   `json:"product_name" bson:"product_name"`
	Price       float64  `json:"price" bson:"price"`
	Quantity    int      `json:"quantity" bson:"quantity"`
	BatchCodes  []string `json:"batch_codes,omitempty" bson:"batch_codes,omitempty"`
}

// PrintedBill 成交时打印的账单
type PrintedBill struct {
	BillID        string     `json:"bill_id" bson:"bill_id"`
	CustomerID    string     `json:"customer_id" bson:"customer_id"`
	CustomerName  string     `json:"customer_name" bson:"customer_name"`
	MobileNumber  string     `json:"mobile_number,omitempty" bson:"mobile_number,omitempty"`
	WaitingNumber string     `json:"waiting_number,omitempty" bson:"waiting_number,omitempty"`
	JobCardNumber string     `json:"job_card_number,omitempty" bson:"job_card_number,omitempty"`
	Products      []BillLine `json:"products" bson:"products"`
	Total         float64    `json:"total" bson:"total"`
	Invoiced      bool       `json:"invoiced" bson:"invoiced"`
	Collected     bool       `json:"collected" bson:"collected"`
	PipelineName  string     `json:"pipeline_name" bson:"pipeline_name"`
	CreatedBy     string     `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
}

// SoldProduct 已售产品流水（每件一行）
type SoldProduct struct {
	BillID        string    `json:"bill_id" bson:"bill_id"`
	OperationID   string    `json:"operation_id" bson:"operation_id"`
	CustomerID    string    `json:"customer_id" bson:"customer_id"`
	CustomerName  string    `json:"customer_name" bson:"customer_name"`
	SalesflowCode string    `json:"salesflow_code" bson:"salesflow_code"`
	ProductID     string    `json:"product_id" bson:"product_id"`
	ProductName   string    `json:"product_name" bson:"product_name"`
	Quantity      int       `json:"quantity" bson:"quantity"`
	Price         float64   `json:"price" bson:"price"`
	BatchCode     string    `json:"batch_code,omitempty" bson:"batch_code,omitempty"`
	SoldAt        time.Time `json:"sold_at" bson:"sold_at"`
}
