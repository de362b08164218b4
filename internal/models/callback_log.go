package models

import (
	"time"
)

const (
	CallbackTypeNotification = "notification"
	CallbackTypeVerify       = "verify"
	CallbackTypeFallback     = "fallback_verify"
	CallbackTypeReconcile    = "reconcile"
)

// CallbackLog keeps every provider notification and verification attempt,
// since notification handlers never report failures back to the provider.
type CallbackLog struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider      string    `gorm:"column:provider;size:20;index" json:"provider"`
	RequestType   string    `gorm:"column:request_type;size:40" json:"request_type"`
	GigID         string    `gorm:"column:gig_id;size:64;index" json:"gig_id"`
	TransactionID string    `gorm:"column:transaction_id;size:128;index" json:"transaction_id"`
	Request       string    `gorm:"column:request;type:text" json:"request"`
	Response      string    `gorm:"column:response;type:text" json:"response"`
	Processed     bool      `gorm:"column:processed;default:false" json:"processed"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (CallbackLog) TableName() string {
	return "callback_logs"
}

// ArchivedCallbackLog holds callback logs past the retention window.
type ArchivedCallbackLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Provider      string    `gorm:"column:provider;size:20" json:"provider"`
	RequestType   string    `gorm:"column:request_type;size:40" json:"request_type"`
	GigID         string    `gorm:"column:gig_id;size:64;index" json:"gig_id"`
	TransactionID string    `gorm:"column:transaction_id;size:128" json:"transaction_id"`
	Request       string    `gorm:"column:request;type:text" json:"request"`
	Response      string    `gorm:"column:response;type:text" json:"response"`
	Processed     bool      `gorm:"column:processed" json:"processed"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	ArchivedAt    time.Time `gorm:"column:archived_at" json:"archived_at"`
}

func (ArchivedCallbackLog) TableName() string {
	return "archived_callback_logs"
}
