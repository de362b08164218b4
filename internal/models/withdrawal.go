package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	WithdrawalStatusPending    = "pending"
	WithdrawalStatusProcessing = "processing"
	WithdrawalStatusCompleted  = "completed"
	WithdrawalStatusFailed     = "failed"
)

type BankDetails struct {
	BankName      string `gorm:"column:name;size:150" json:"bankName"`
	AccountNumber string `gorm:"column:account_number;size:32" json:"accountNumber"` // masked
	BranchCode    string `gorm:"column:branch_code;size:10" json:"branchCode"`
	AccountHolder string `gorm:"column:account_holder;size:100" json:"accountHolder"`
	AccountType   string `gorm:"column:account_type;size:20" json:"accountType"`
}

type WithdrawalRequest struct {
	ID            string          `gorm:"primaryKey;size:64" json:"id"`
	UserID        string          `gorm:"column:user_id;size:64;not null;index:idx_withdrawal_user" json:"userId"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Status        string          `gorm:"column:status;size:20;default:pending;index" json:"status"`
	BankDetails   BankDetails     `gorm:"embedded;embeddedPrefix:bank_" json:"bankDetails"`
	Reference     string          `gorm:"column:reference;size:40" json:"reference"`
	RequestedAt   time.Time       `gorm:"column:requested_at;index:idx_withdrawal_user" json:"requestedAt"`
	CompletedAt   *time.Time      `gorm:"column:completed_at" json:"completedAt,omitempty"`
	FailureReason string          `gorm:"column:failure_reason;type:text" json:"failureReason,omitempty"`
	AdminNotes    string          `gorm:"column:admin_notes;type:text" json:"adminNotes,omitempty"`
	ApprovedBy    string          `gorm:"column:approved_by;size:64" json:"approvedBy,omitempty"`
	RejectedBy    string          `gorm:"column:rejected_by;size:64" json:"rejectedBy,omitempty"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}
