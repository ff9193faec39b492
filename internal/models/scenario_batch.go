package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ScenarioBatch is one scenario-generation request and its ranked results.
type ScenarioBatch struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	BatchID string `gorm:"type:varchar(40);uniqueIndex;not null"`

	ProjectBudget    decimal.Decimal `gorm:"type:numeric(30,2);not null"`
	WaterfallID      *uint64         `gorm:"index"`
	NumScenarios     int             `gorm:"not null"`
	ObjectiveWeights datatypes.JSON  `gorm:"type:jsonb"`
	BestScenarioID   *uint64

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ScenarioBatch) TableName() string {
	return "scenario_batches"
}

// ScenarioResult is one scored candidate within a batch, stored rank-ordered.
type ScenarioResult struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	BatchID string `gorm:"type:varchar(40);index;not null"`
	Rank    int    `gorm:"not null"`

	Template         string         `gorm:"type:varchar(40);not null;index"`
	CapitalStructure datatypes.JSON `gorm:"type:jsonb;not null"`
	Metrics          datatypes.JSON `gorm:"type:jsonb;not null"`
	Strengths        datatypes.JSON `gorm:"type:jsonb"`
	Weaknesses       datatypes.JSON `gorm:"type:jsonb"`

	ValidationPassed  bool           `gorm:"not null;index"`
	ValidationErrors  datatypes.JSON `gorm:"type:jsonb"`
	OptimizationScore float64        `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ScenarioResult) TableName() string {
	return "scenario_results"
}
