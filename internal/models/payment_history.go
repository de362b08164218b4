package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	HistoryTypeWalletCredit        = "wallet_credit"
	HistoryTypeWalletDebit         = "wallet_debit"
	HistoryTypePendingAdjustment   = "pending_adjustment"
	HistoryTypePendingRelease      = "pending_release"
	HistoryTypeEscrowFunded        = "escrow_funded"
	HistoryTypeEscrowReleased      = "escrow_released"
	HistoryTypeWithdrawalRequested = "withdrawal_requested"
	HistoryTypeWithdrawalCompleted = "withdrawal_completed"
	HistoryTypeWithdrawalRefund    = "withdrawal_refund"

	HistoryStatusCompleted = "completed"
	HistoryStatusPending   = "pending"
)

// PaymentHistory is append-only. Amount is signed: money towards the user is positive.
type PaymentHistory struct {
	ID          string          `gorm:"primaryKey;size:64" json:"id"`
	UserID      string          `gorm:"column:user_id;size:64;not null;index" json:"userId"`
	Type        string          `gorm:"column:type;size:40;not null" json:"type"`
	Amount      decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Status      string          `gorm:"column:status;size:20" json:"status"`
	Description string          `gorm:"column:description;size:255" json:"description"`
	Reference   string          `gorm:"column:reference;size:64;index" json:"reference,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
}

func (PaymentHistory) TableName() string {
	return "payment_histories"
}
