package models

import (
	"time"

	"gorm.io/datatypes"
)

// WaterfallStructure is a persisted recoupment order. Tranches is the JSONB
// serialization of the validated waterfall.Structure tranche list.
type WaterfallStructure struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"type:varchar(120);not null"`

	Tranches datatypes.JSON `gorm:"type:jsonb;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (WaterfallStructure) TableName() string {
	return "waterfall_structures"
}
