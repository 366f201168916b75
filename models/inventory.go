package models

import "time"

// 库存操作类型
const (
	InventoryOperationIn  = "in"
	InventoryOperationOut = "out"
)

// Product 产品及汇总库存
type Product struct {
	ProductID     string  `json:"product_id" bson:"product_id"`
	ProductName   string  `json:"product_name" bson:"product_name"`
	BarcodeNumber string  `json:"barcode_number,omitempty" bson:"barcode_number,omitempty"`
	CurrentStock  int     `json:"current_stock" bson:"current_stock"`
	Price         float64 `json:"price" bson:"price"`
}

// Batch 产品批次（独立的库存和效期）
type Batch struct {
	BatchID      string     `json:"batch_id" bson:"batch_id"`
	ProductID    string     `json:"product_id" bson:"product_id"`
	BatchCode    string     `json:"batch_code" bson:"batch_code"`
	CurrentStock int        `json:"current_stock" bson:"current_stock"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty" bson:"expiry_date,omitempty"`
}

// InventoryRecord 库存操作记录结构
type InventoryRecord struct {
	ProductID     string    `json:"productId" bson:"productId"`
	BatchCode     string    `json:"batchCode,omitempty" bson:"batchCode,omitempty"`
	OperationType string    `json:"operationType" bson:"operationType"`
	Quantity      int       `json:"quantity" bson:"quantity"`
	Remark        string    `json:"remark,omitempty" bson:"remark,omitempty"`
	Operator      string    `json:"operator" bson:"operator"`
	OperatorID    string    `json:"operatorId" bson:"operatorId"`
	OperationTime time.Time `json:"operationTime" bson:"operationTime"`
	OperationID   string    `json:"operationId,omitempty" bson:"operationId,omitempty"`
}
