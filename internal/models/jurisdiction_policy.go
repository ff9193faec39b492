package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// JurisdictionPolicy is one row of the tax-incentive rules table.
type JurisdictionPolicy struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Code string `gorm:"type:varchar(10);uniqueIndex;not null"`
	Name string `gorm:"type:varchar(120);not null"`

	CreditRate        float64          `gorm:"not null"`
	CapAmount         *decimal.Decimal `gorm:"type:numeric(30,2)"`
	MinQualifiedSpend decimal.Decimal  `gorm:"type:numeric(30,2);not null"`
	Refundable        bool             `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (JurisdictionPolicy) TableName() string {
	return "jurisdiction_policies"
}
