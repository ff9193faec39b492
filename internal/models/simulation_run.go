package models

import (
	"time"

	"gorm.io/datatypes"
)

// Simulation run lifecycle states.
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusCancelled = "cancelled"
	RunStatusFailed    = "failed"
)

// SimulationRun tracks one asynchronous Monte Carlo run: its request params,
// batch-level progress, and the final aggregated result.
type SimulationRun struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	RunID  string `gorm:"type:varchar(40);uniqueIndex;not null"`
	Status string `gorm:"type:varchar(20);not null;index"`

	Params datatypes.JSON `gorm:"type:jsonb;not null"`
	Result datatypes.JSON `gorm:"type:jsonb"`
	Error  string         `gorm:"type:text"`

	CompletedIterations int `gorm:"not null"`
	TotalIterations     int `gorm:"not null"`

	CreatedAt   time.Time  `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt   time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
	CompletedAt *time.Time `gorm:"type:timestamptz"`
}

func (SimulationRun) TableName() string {
	return "simulation_runs"
}
