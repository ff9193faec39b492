package service

import (
	"encoding/json"

	"gorm.io/datatypes"

	"filmstack/internal/capital"
	"filmstack/internal/models"
	"filmstack/internal/waterfall"
)

// decodeStack revalidates on the way out of the database: a row written by an
// older build or edited by hand still has to pass NewStack before the engine
// sees it.
func decodeStack(row *models.CapitalStack) (*capital.Stack, error) {
	if row == nil {
		return nil, invalidf("capital stack not found")
	}
	var instruments []capital.Instrument
	if err := json.Unmarshal(row.Instruments, &instruments); err != nil {
		return nil, invalidf("capital stack %d has malformed instruments: %v", row.ID, err)
	}
	stack, err := capital.NewStack(row.ProjectBudget, instruments)
	if err != nil {
		return nil, invalidf("capital stack %d failed validation: %v", row.ID, err)
	}
	return stack, nil
}

func decodeStructure(row *models.WaterfallStructure) (*waterfall.Structure, error) {
	if row == nil {
		return nil, invalidf("waterfall structure not found")
	}
	var tranches []waterfall.Tranche
	if err := json.Unmarshal(row.Tranches, &tranches); err != nil {
		return nil, invalidf("waterfall structure %d has malformed tranches: %v", row.ID, err)
	}
	structure, err := waterfall.NewStructure(row.Name, tranches)
	if err != nil {
		return nil, invalidf("waterfall structure %d failed validation: %v", row.ID, err)
	}
	return structure, nil
}

func encodeStackRow(name, projectName string, stack *capital.Stack) (*models.CapitalStack, error) {
	raw, err := json.Marshal(stack.Instruments)
	if err != nil {
		return nil, err
	}
	return &models.CapitalStack{
		Name:              name,
		ProjectName:       projectName,
		ProjectBudget:     stack.ProjectBudget,
		Instruments:       datatypes.JSON(raw),
		TotalDebt:         stack.TotalDebt(),
		TotalEquity:       stack.TotalEquity(),
		DebtToEquityRatio: stack.DebtToEquityRatio(),
	}, nil
}

func encodeStructureRow(structure *waterfall.Structure) (*models.WaterfallStructure, error) {
	raw, err := json.Marshal(structure.Tranches)
	if err != nil {
		return nil, err
	}
	return &models.WaterfallStructure{
		Name:     structure.Name,
		Tranches: datatypes.JSON(raw),
	}, nil
}

// toJSON marshals a value for a jsonb column. Errors surface to the caller;
// the columns are not null, so a failed marshal must abort the write rather
// than store a placeholder.
func toJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
