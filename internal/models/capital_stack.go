package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CapitalStack is a persisted financing structure. Instruments is the JSONB
// serialization of the validated capital.Stack instrument list; the derived
// aggregates are denormalized for querying.
type CapitalStack struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"type:varchar(120);not null"`
	ProjectName string `gorm:"type:varchar(200);index"`

	ProjectBudget decimal.Decimal `gorm:"type:numeric(30,2);not null"`
	Instruments   datatypes.JSON  `gorm:"type:jsonb;not null"`

	TotalDebt         decimal.Decimal `gorm:"type:numeric(30,2);not null"`
	TotalEquity       decimal.Decimal `gorm:"type:numeric(30,2);not null"`
	DebtToEquityRatio float64         `gorm:"not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (CapitalStack) TableName() string {
	return "capital_stacks"
}
