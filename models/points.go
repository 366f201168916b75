package models

import "time"

// SalesmanPoint 销售积分记录，每个(用户,询价单)至多一条
type SalesmanPoint struct {
	UserID    string    `json:"user_id" bson:"user_id"`
	EnquiryID string    `json:"enquiry_id" bson:"enquiry_id"`
	Points    int       `json:"points" bson:"points"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// PointsSummary 用户积分汇总
type PointsSummary struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Points   int    `json:"points"`
}
