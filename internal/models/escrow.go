package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EscrowStatusActive    = "active"
	EscrowStatusCompleted = "completed"
	EscrowStatusDisputed  = "disputed"
)

// EscrowAccount holds a gig's funded amount. Its id is the gig id.
type EscrowAccount struct {
	ID             string          `gorm:"primaryKey;size:64" json:"id"`
	GigID          string          `gorm:"column:gig_id;size:64;uniqueIndex;not null" json:"gig_id"`
	EmployerID     string          `gorm:"column:employer_id;size:64;index" json:"employer_id"`
	WorkerID       string          `gorm:"column:worker_id;size:64;index" json:"worker_id"`
	ApplicationID  string          `gorm:"column:application_id;size:64" json:"application_id"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:decimal(20,2);not null" json:"total_amount"`
	ReleasedAmount decimal.Decimal `gorm:"column:released_amount;type:decimal(20,2);not null" json:"released_amount"`
	Status         string          `gorm:"column:status;size:20;default:active" json:"status"`
	Provider       string          `gorm:"column:provider;size:20" json:"provider"`
	FundedAt       *time.Time      `gorm:"column:funded_at" json:"funded_at,omitempty"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (EscrowAccount) TableName() string {
	return "escrow_accounts"
}

// Remaining is the amount still held.
func (e EscrowAccount) Remaining() decimal.Decimal {
	return e.TotalAmount.Sub(e.ReleasedAmount)
}

const (
	ProviderPayFast   = "payfast"
	ProviderTradeSafe = "tradesafe"

	IntentStatusCreated    = "created"
	IntentStatusProcessing = "processing"
	IntentStatusFunded     = "funded"
	IntentStatusFailed     = "failed"
)

// PaymentIntent tracks one funding attempt. TransactionID is the provider's
// transaction id and the key used to get back to the gig; it is unique once set.
type PaymentIntent struct {
	ID                string          `gorm:"primaryKey;size:64" json:"id"`
	GigID             string          `gorm:"column:gig_id;size:64;index;not null" json:"gig_id"`
	ApplicationID     string          `gorm:"column:application_id;size:64" json:"application_id"`
	EmployerID        string          `gorm:"column:employer_id;size:64;index" json:"employer_id"`
	WorkerID          string          `gorm:"column:worker_id;size:64" json:"worker_id"`
	Amount            decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	ChargeAmount      decimal.Decimal `gorm:"column:charge_amount;type:decimal(20,2);not null" json:"charge_amount"`
	Provider          string          `gorm:"column:provider;size:20;not null" json:"provider"`
	Status            string          `gorm:"column:status;size:20;default:created;index" json:"status"`
	TransactionID     OptionalID      `gorm:"column:transaction_id;type:varchar(128);uniqueIndex:uq_payment_intents_transaction_id" json:"transaction_id"`
	ProviderReference string          `gorm:"column:provider_reference;size:128" json:"provider_reference"`
	AllocationID      string          `gorm:"column:allocation_id;size:128" json:"allocation_id"`
	CheckoutURL       string          `gorm:"column:checkout_url;type:text" json:"checkout_url"`
	FailureReason     string          `gorm:"column:failure_reason;size:255" json:"failure_reason,omitempty"`
	ExpiresAt         time.Time       `gorm:"column:expires_at;index" json:"expires_at"`
	FundedAt          *time.Time      `gorm:"column:funded_at" json:"funded_at,omitempty"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PaymentIntent) TableName() string {
	return "payment_intents"
}

func (p PaymentIntent) IsTerminal() bool {
	return p.Status == IntentStatusFunded || p.Status == IntentStatusFailed
}

// Expired reports whether an open intent ran past its deadline.
func (p PaymentIntent) Expired(now time.Time) bool {
	return !p.IsTerminal() && !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}
