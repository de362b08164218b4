package models

import (
	"time"
)

// Bank maps a South African bank to its universal branch code and the
// enum the escrow provider expects on bank account tokens.
type Bank struct {
	ID            int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"column:name;size:150;not null" json:"name"`
	Slug          string    `gorm:"column:slug;size:150;not null;uniqueIndex" json:"slug"`
	BranchCode    string    `gorm:"column:branch_code;size:10" json:"branch_code"`
	TradeSafeCode string    `gorm:"column:tradesafe_code;size:40" json:"tradesafe_code"`
	Country       string    `gorm:"column:country;size:50;default:South Africa" json:"country"`
	Status        int       `gorm:"column:status;default:1" json:"status"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Bank) TableName() string {
	return "banks"
}

// DefaultBanks seeds the bank table.
func DefaultBanks() []Bank {
	return []Bank{
		{Name: "ABSA Bank", Slug: "absa", BranchCode: "632005", TradeSafeCode: "ABSA"},
		{Name: "African Bank", Slug: "african-bank", BranchCode: "430000", TradeSafeCode: "AFRICAN"},
		{Name: "Capitec Bank", Slug: "capitec", BranchCode: "470010", TradeSafeCode: "CAPITEC"},
		{Name: "Discovery Bank", Slug: "discovery", BranchCode: "679000", TradeSafeCode: "DISCOVERY"},
		{Name: "First National Bank", Slug: "fnb", BranchCode: "250655", TradeSafeCode: "FNB"},
		{Name: "Investec", Slug: "investec", BranchCode: "580105", TradeSafeCode: "INVESTEC"},
		{Name: "Nedbank", Slug: "nedbank", BranchCode: "198765", TradeSafeCode: "NEDBANK"},
		{Name: "Old Mutual", Slug: "old-mutual", BranchCode: "462005", TradeSafeCode: "OLD_MUTUAL"},
		{Name: "Standard Bank", Slug: "standard-bank", BranchCode: "051001", TradeSafeCode: "SBSA"},
		{Name: "TymeBank", Slug: "tymebank", BranchCode: "678910", TradeSafeCode: "TYME"},
	}
}
