package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	GigStatusOpen       = "open"
	GigStatusAssigned   = "assigned"
	GigStatusFunded     = "funded"
	GigStatusInProgress = "in_progress"
	GigStatusCompleted  = "completed"
	GigStatusCancelled  = "cancelled"

	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusInEscrow = "in_escrow"
	PaymentStatusReleased = "released"
)

type Gig struct {
	ID            string          `gorm:"primaryKey;size:64" json:"id"`
	EmployerID    string          `gorm:"column:employer_id;size:64;index;not null" json:"employer_id"`
	WorkerID      string          `gorm:"column:worker_id;size:64;index" json:"worker_id"`
	Title         string          `gorm:"column:title;size:255" json:"title"`
	Description   string          `gorm:"column:description;type:text" json:"description"`
	Budget        decimal.Decimal `gorm:"column:budget;type:decimal(20,2);not null" json:"budget"`
	Status        string          `gorm:"column:status;size:20;default:open" json:"status"`
	PaymentStatus string          `gorm:"column:payment_status;size:20;default:unpaid" json:"payment_status"`
	FundedAt      *time.Time      `gorm:"column:funded_at" json:"funded_at,omitempty"`
	CompletedAt   *time.Time      `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Gig) TableName() string {
	return "gigs"
}

// IsFunded reports whether the gig already went through the funding step.
func (g Gig) IsFunded() bool {
	switch g.Status {
	case GigStatusFunded, GigStatusInProgress, GigStatusCompleted:
		return true
	}
	return g.PaymentStatus == PaymentStatusInEscrow || g.PaymentStatus == PaymentStatusReleased
}

const (
	ApplicationStatusPending             = "pending"
	ApplicationStatusAccepted            = "accepted"
	ApplicationStatusFunded              = "funded"
	ApplicationStatusCompletionRequested = "completion_requested"
	ApplicationStatusCompletionDisputed  = "completion_disputed"
	ApplicationStatusCompleted           = "completed"
	ApplicationStatusRejected            = "rejected"

	ResolutionWorker   = "worker"
	ResolutionEmployer = "employer"
)

type GigApplication struct {
	ID            string              `gorm:"primaryKey;size:64" json:"id"`
	GigID         string              `gorm:"column:gig_id;size:64;index;not null" json:"gig_id"`
	WorkerID      string              `gorm:"column:worker_id;size:64;index;not null" json:"worker_id"`
	EmployerID    string              `gorm:"column:employer_id;size:64;index" json:"employer_id"`
	Status        string              `gorm:"column:status;size:32;default:pending;index" json:"status"`
	PaymentStatus string              `gorm:"column:payment_status;size:20;default:unpaid" json:"payment_status"`
	ProposedRate  decimal.NullDecimal `gorm:"column:proposed_rate;type:decimal(20,2)" json:"proposed_rate"`
	AgreedRate    decimal.NullDecimal `gorm:"column:agreed_rate;type:decimal(20,2)" json:"agreed_rate"`
	FundedAt      *time.Time          `gorm:"column:funded_at" json:"funded_at,omitempty"`

	CompletionRequestedAt   *time.Time `gorm:"column:completion_requested_at" json:"completion_requested_at,omitempty"`
	CompletionDisputedAt    *time.Time `gorm:"column:completion_disputed_at" json:"completion_disputed_at,omitempty"`
	CompletionDisputeReason string     `gorm:"column:completion_dispute_reason;type:text" json:"completion_dispute_reason,omitempty"`

	DisputeResolvedAt      *time.Time `gorm:"column:dispute_resolved_at" json:"dispute_resolved_at,omitempty"`
	DisputeResolvedBy      string     `gorm:"column:dispute_resolved_by;size:64" json:"dispute_resolved_by,omitempty"`
	DisputeResolution      string     `gorm:"column:dispute_resolution;size:20" json:"dispute_resolution,omitempty"`
	DisputeResolutionNotes string     `gorm:"column:dispute_resolution_notes;type:text" json:"dispute_resolution_notes,omitempty"`

	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (GigApplication) TableName() string {
	return "gig_applications"
}

// Rate is the amount the employer pays into escrow: agreed rate, then
// proposed rate, then the gig budget.
func (a GigApplication) Rate(budget decimal.Decimal) decimal.Decimal {
	if a.AgreedRate.Valid && a.AgreedRate.Decimal.IsPositive() {
		return a.AgreedRate.Decimal
	}
	if a.ProposedRate.Valid && a.ProposedRate.Decimal.IsPositive() {
		return a.ProposedRate.Decimal
	}
	return budget
}
