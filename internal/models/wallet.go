package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleJobSeeker = "job_seeker"
	RoleEmployer  = "employer"
	RoleAdmin     = "admin"
)

// User is the account record. The wallet lives on it as four nullable columns:
// NULL means the wallet was never touched.
type User struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	Email       string `gorm:"column:email;size:255;index" json:"email"`
	DisplayName string `gorm:"column:display_name;size:255" json:"display_name"`
	Role        string `gorm:"column:role;size:20;default:job_seeker" json:"role"`

	BankName      string `gorm:"column:bank_name;size:150" json:"bank_name"`
	AccountNumber string `gorm:"column:account_number;size:32" json:"-"`
	BranchCode    string `gorm:"column:branch_code;size:10" json:"branch_code"`
	AccountHolder string `gorm:"column:account_holder;size:100" json:"account_holder"`
	AccountType   string `gorm:"column:account_type;size:20" json:"account_type"`

	TradeSafeToken string `gorm:"column:tradesafe_token;size:128" json:"-"`

	WalletBalance  decimal.NullDecimal `gorm:"column:wallet_balance;type:decimal(20,2)" json:"-"`
	PendingBalance decimal.NullDecimal `gorm:"column:pending_balance;type:decimal(20,2)" json:"-"`
	TotalEarnings  decimal.NullDecimal `gorm:"column:total_earnings;type:decimal(20,2)" json:"-"`
	TotalWithdrawn decimal.NullDecimal `gorm:"column:total_withdrawn;type:decimal(20,2)" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// HasBankDetails reports whether payouts can be routed directly to the user.
func (u User) HasBankDetails() bool {
	return u.AccountNumber != "" && u.BranchCode != "" && u.AccountHolder != ""
}

// Wallet is the in-memory view of a user's balances. All fields are always present.
type Wallet struct {
	UserID         string          `json:"userId"`
	WalletBalance  decimal.Decimal `json:"walletBalance"`
	PendingBalance decimal.Decimal `json:"pendingBalance"`
	TotalEarnings  decimal.Decimal `json:"totalEarnings"`
	TotalWithdrawn decimal.Decimal `json:"totalWithdrawn"`
}

// EmptyWallet returns a zeroed wallet for userID.
func EmptyWallet(userID string) Wallet {
	return Wallet{
		UserID:         userID,
		WalletBalance:  decimal.Zero,
		PendingBalance: decimal.Zero,
		TotalEarnings:  decimal.Zero,
		TotalWithdrawn: decimal.Zero,
	}
}
