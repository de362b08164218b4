package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type FeeConfig struct {
	ID                             uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	PlatformFeePercentage          decimal.Decimal `gorm:"column:platform_fee_percentage;type:decimal(6,3);not null" json:"platformFeePercentage"`
	PaymentProcessingFeePercentage decimal.Decimal `gorm:"column:payment_processing_fee_percentage;type:decimal(6,3);not null" json:"paymentProcessingFeePercentage"`
	FixedTransactionFee            decimal.Decimal `gorm:"column:fixed_transaction_fee;type:decimal(20,2);not null" json:"fixedTransactionFee"`
	WorkerCommissionPercentage     decimal.Decimal `gorm:"column:worker_commission_percentage;type:decimal(6,3);not null" json:"workerCommissionPercentage"`
	IsActive                       bool            `gorm:"column:is_active;default:false;index" json:"isActive"`
	CreatedAt                      time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt                      time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (FeeConfig) TableName() string {
	return "fee_configs"
}

// DefaultFeeConfig is used when no active configuration row exists.
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		PlatformFeePercentage:          decimal.NewFromInt(5),
		PaymentProcessingFeePercentage: decimal.RequireFromString("2.9"),
		FixedTransactionFee:            decimal.RequireFromString("2.50"),
		WorkerCommissionPercentage:     decimal.NewFromInt(10),
		IsActive:                       true,
	}
}
