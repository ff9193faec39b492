package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"filmstack/internal/config"
	"filmstack/internal/models"
	"filmstack/internal/montecarlo"
	"filmstack/internal/repository"
	"filmstack/internal/revenue"
	"filmstack/internal/scenario"
	"filmstack/internal/waterfall"
)

// defaultRevenueMultiple sizes the baseline ultimate revenue when a request
// does not supply one: 2.5x the production budget, a mid-case theatrical
// ultimate.
const defaultRevenueMultiple = 2.5

type ScenarioGenerationRequest struct {
	ProjectBudget decimal.Decimal `json:"project_budget"`
	NumScenarios  int             `json:"num_scenarios"`
	// Templates restricts generation to the named templates. Empty means all
	// five.
	Templates []string `json:"templates,omitempty"`

	// WaterfallID evaluates every candidate against a stored structure
	// instead of the per-stack default waterfall.
	WaterfallID *uint64 `json:"waterfall_id,omitempty"`

	TotalRevenue    *decimal.Decimal `json:"total_revenue,omitempty"`
	ReleaseStrategy string           `json:"release_strategy,omitempty"`

	ObjectiveWeights scenario.ObjectiveWeights `json:"objective_weights"`
	Jurisdiction     string                    `json:"jurisdiction,omitempty"`
	StrategicScore   *float64                  `json:"strategic_score,omitempty"`

	RunMonteCarlo        bool   `json:"run_monte_carlo"`
	MonteCarloIterations int    `json:"monte_carlo_iterations,omitempty"`
	Seed                 *int64 `json:"seed,omitempty"`
}

type ScenarioGenerationResponse struct {
	BatchID        string               `json:"batch_id"`
	BestScenarioID *uint64              `json:"best_scenario_id,omitempty"`
	Scenarios      []*scenario.Scenario `json:"scenarios"`
}

type ScenarioService struct {
	Repo       repository.Repository
	Evaluator  *scenario.Evaluator
	Engine     config.EngineConfig
	MonteCarlo config.MonteCarloConfig
	Logger     *zap.Logger
}

// Generate builds candidate stacks across the requested templates, scores
// each one, ranks the lot, and persists the batch. Candidates that fail
// constraint validation are kept: they rank with their metrics and carry the
// violations.
func (s *ScenarioService) Generate(ctx context.Context, req ScenarioGenerationRequest) (*ScenarioGenerationResponse, error) {
	if s == nil || s.Evaluator == nil {
		return nil, invalidf("scenario service unavailable")
	}
	if req.ProjectBudget.LessThanOrEqual(decimal.Zero) {
		return nil, invalidf("project_budget must be positive, got %s", req.ProjectBudget.String())
	}
	if req.NumScenarios <= 0 {
		req.NumScenarios = 5
	}
	templates, err := resolveTemplates(req.Templates)
	if err != nil {
		return nil, err
	}

	strategyRaw := req.ReleaseStrategy
	if strategyRaw == "" {
		strategyRaw = s.Engine.DefaultReleaseStrategy
	}
	strategy := revenue.ReleaseStrategy(strategyRaw)
	known := false
	for _, k := range revenue.Strategies() {
		if strategy == k {
			known = true
			break
		}
	}
	if !known {
		return nil, invalidf("unknown release strategy %q", strategyRaw)
	}

	totalRevenue := req.ProjectBudget.Mul(decimal.NewFromFloat(defaultRevenueMultiple))
	if req.TotalRevenue != nil {
		if req.TotalRevenue.LessThanOrEqual(decimal.Zero) {
			return nil, invalidf("total_revenue must be positive, got %s", req.TotalRevenue.String())
		}
		totalRevenue = *req.TotalRevenue
	}

	var sharedStructure *waterfall.Structure
	if req.WaterfallID != nil {
		if s.Repo == nil {
			return nil, invalidf("waterfall_id requires storage")
		}
		row, err := s.Repo.GetWaterfallStructureByID(ctx, *req.WaterfallID)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, invalidf("waterfall structure %d not found", *req.WaterfallID)
		}
		sharedStructure, err = decodeStructure(row)
		if err != nil {
			return nil, err
		}
	}

	seed := int64(1)
	if req.Seed != nil {
		seed = *req.Seed
	}
	opts := waterfall.Options{
		DistributableShare: 1 - s.Engine.DistributionFeeRate,
		CarryForward:       s.Engine.CarryForward,
	}
	mcCfg := montecarlo.Config{
		Iterations: req.MonteCarloIterations,
		BatchSize:  s.MonteCarlo.BatchSize,
		Workers:    s.MonteCarlo.Workers,
		Sigma:      s.MonteCarlo.Sigma,
		Seed:       &seed,
	}
	if mcCfg.Iterations <= 0 {
		mcCfg.Iterations = s.MonteCarlo.Iterations
	}

	scenarios := make([]*scenario.Scenario, 0, req.NumScenarios)
	for i, tpl := range templates {
		count := perTemplateCount(req.NumScenarios, len(templates), i)
		if count == 0 {
			continue
		}
		// Per-template seed offset keeps jittered candidates distinct across
		// templates while the whole batch stays reproducible.
		stacks, err := scenario.Generate(req.ProjectBudget, tpl, count, seed+int64(i))
		if err != nil {
			return nil, invalidf("%v", err)
		}
		for _, stack := range stacks {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			structure := sharedStructure
			if structure == nil {
				structure, err = scenario.DefaultWaterfall(stack)
				if err != nil {
					return nil, invalidf("%v", err)
				}
			}
			sc, err := s.Evaluator.Evaluate(ctx, scenario.EvaluateParams{
				Template:       tpl,
				Stack:          stack,
				Structure:      structure,
				TotalRevenue:   totalRevenue,
				Strategy:       strategy,
				Options:        opts,
				Weights:        req.ObjectiveWeights,
				RunMonteCarlo:  req.RunMonteCarlo,
				MonteCarlo:     mcCfg,
				Jurisdiction:   req.Jurisdiction,
				StrategicScore: req.StrategicScore,
			})
			if err != nil {
				return nil, err
			}
			scenarios = append(scenarios, sc)
		}
	}
	scenario.Rank(scenarios)

	resp := &ScenarioGenerationResponse{
		BatchID:   uuid.NewString(),
		Scenarios: scenarios,
	}
	if s.Repo != nil {
		batch, err := s.persist(ctx, resp.BatchID, req, scenarios)
		if err != nil {
			return nil, err
		}
		resp.BestScenarioID = batch.BestScenarioID
	}
	if s.Logger != nil {
		s.Logger.Info("scenario batch generated",
			zap.String("batch_id", resp.BatchID),
			zap.Int("scenarios", len(scenarios)),
			zap.String("project_budget", req.ProjectBudget.String()),
			zap.Bool("monte_carlo", req.RunMonteCarlo))
	}
	return resp, nil
}

func (s *ScenarioService) GetBatch(ctx context.Context, batchID string) (*models.ScenarioBatch, []models.ScenarioResult, error) {
	if s == nil || s.Repo == nil {
		return nil, nil, invalidf("scenario storage unavailable")
	}
	return s.Repo.GetScenarioBatch(ctx, batchID)
}

func (s *ScenarioService) persist(ctx context.Context, batchID string, req ScenarioGenerationRequest, scenarios []*scenario.Scenario) (*models.ScenarioBatch, error) {
	weights, err := toJSON(req.ObjectiveWeights)
	if err != nil {
		return nil, err
	}
	batch := &models.ScenarioBatch{
		BatchID:          batchID,
		ProjectBudget:    req.ProjectBudget,
		WaterfallID:      req.WaterfallID,
		NumScenarios:     len(scenarios),
		ObjectiveWeights: weights,
	}
	results := make([]models.ScenarioResult, 0, len(scenarios))
	for i, sc := range scenarios {
		row := models.ScenarioResult{
			BatchID:           batchID,
			Rank:              i + 1,
			Template:          string(sc.Template),
			ValidationPassed:  sc.ValidationPassed,
			OptimizationScore: sc.OptimizationScore,
		}
		for _, col := range []struct {
			dst *datatypes.JSON
			src any
		}{
			{&row.CapitalStructure, sc.Stack},
			{&row.Metrics, sc.Metrics},
			{&row.Strengths, sc.Strengths},
			{&row.Weaknesses, sc.Weaknesses},
			{&row.ValidationErrors, sc.ValidationErrors},
		} {
			raw, err := toJSON(col.src)
			if err != nil {
				return nil, err
			}
			*col.dst = raw
		}
		results = append(results, row)
	}
	if err := s.Repo.CreateScenarioBatch(ctx, batch, results); err != nil {
		return nil, err
	}
	return batch, nil
}

func resolveTemplates(names []string) ([]scenario.Template, error) {
	if len(names) == 0 {
		return scenario.Templates(), nil
	}
	all := scenario.Templates()
	out := make([]scenario.Template, 0, len(names))
	for _, name := range names {
		tpl := scenario.Template(name)
		found := false
		for _, k := range all {
			if tpl == k {
				found = true
				break
			}
		}
		if !found {
			return nil, invalidf("unknown scenario template %q", name)
		}
		out = append(out, tpl)
	}
	return out, nil
}

// perTemplateCount splits n candidates across templates, front-loading the
// remainder so early templates get the extra slots.
func perTemplateCount(n, templates, index int) int {
	base := n / templates
	if index < n%templates {
		return base + 1
	}
	return base
}
