package db

import (
	"filmstack/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.CapitalStack{},
		&models.WaterfallStructure{},
		&models.ScenarioBatch{},
		&models.ScenarioResult{},
		&models.SimulationRun{},
		&models.JurisdictionPolicy{},
	)
}
