package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"filmstack/internal/capital"
	"filmstack/internal/config"
	"filmstack/internal/montecarlo"
	"filmstack/internal/repository"
	"filmstack/internal/revenue"
	"filmstack/internal/scenario"
	"filmstack/internal/waterfall"
)

// WaterfallExecutionRequest drives one deterministic waterfall run. The
// capital stack comes either from storage (CapitalStackID) or inline
// (ProjectBudget + Instruments); the waterfall either from storage
// (WaterfallID) or, when absent, from the default builder over the stack.
type WaterfallExecutionRequest struct {
	CapitalStackID *uint64              `json:"capital_stack_id,omitempty"`
	ProjectBudget  *decimal.Decimal     `json:"project_budget,omitempty"`
	Instruments    []capital.Instrument `json:"instruments,omitempty"`

	WaterfallID *uint64 `json:"waterfall_id,omitempty"`

	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	ReleaseStrategy string          `json:"release_strategy"`

	// CarryForward overrides the configured leftover policy for this run.
	CarryForward *bool `json:"carry_forward,omitempty"`

	RunMonteCarlo        bool   `json:"run_monte_carlo"`
	MonteCarloIterations int    `json:"monte_carlo_iterations,omitempty"`
	Seed                 *int64 `json:"seed,omitempty"`
}

type WaterfallExecutionResponse struct {
	StakeholderReturns   []waterfall.StakeholderReturn  `json:"stakeholder_returns"`
	DistributionTimeline []waterfall.PeriodDistribution `json:"distribution_timeline"`
	RevenueByWindow      []revenue.Window               `json:"revenue_by_window"`
	MonteCarloResults    *montecarlo.Result             `json:"monte_carlo_results,omitempty"`
}

type WaterfallService struct {
	Repo       repository.Repository
	Simulator  *montecarlo.Simulator
	Engine     config.EngineConfig
	MonteCarlo config.MonteCarloConfig
	Logger     *zap.Logger
}

func (s *WaterfallService) Execute(ctx context.Context, req WaterfallExecutionRequest) (*WaterfallExecutionResponse, error) {
	if s == nil {
		return nil, invalidf("waterfall service unavailable")
	}
	stack, structure, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.TotalRevenue.LessThanOrEqual(decimal.Zero) {
		return nil, invalidf("total_revenue must be positive, got %s", req.TotalRevenue.String())
	}
	strategy, err := s.strategy(req.ReleaseStrategy)
	if err != nil {
		return nil, err
	}

	projection, err := revenue.Project(req.TotalRevenue, strategy)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	opts := s.options(req.CarryForward)
	tl, err := waterfall.Execute(projection, structure, opts)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	invested := scenario.InvestedByStakeholder(stack)
	resp := &WaterfallExecutionResponse{
		StakeholderReturns:   waterfall.BuildReturns(tl, structure, invested),
		DistributionTimeline: tl.Periods,
		RevenueByWindow:      projection.Windows,
	}

	if req.RunMonteCarlo {
		mc, err := s.simulate(ctx, req, strategy, structure, invested, opts)
		if err != nil {
			return nil, err
		}
		resp.MonteCarloResults = mc
	}
	if s.Logger != nil {
		s.Logger.Info("waterfall executed",
			zap.String("release_strategy", string(strategy)),
			zap.String("total_revenue", req.TotalRevenue.String()),
			zap.Int("periods", len(resp.DistributionTimeline)),
			zap.Bool("monte_carlo", req.RunMonteCarlo))
	}
	return resp, nil
}

// resolve loads or builds the stack and structure for a request.
func (s *WaterfallService) resolve(ctx context.Context, req WaterfallExecutionRequest) (*capital.Stack, *waterfall.Structure, error) {
	var stack *capital.Stack
	switch {
	case req.CapitalStackID != nil:
		if s.Repo == nil {
			return nil, nil, invalidf("capital_stack_id requires storage")
		}
		row, err := s.Repo.GetCapitalStackByID(ctx, *req.CapitalStackID)
		if err != nil {
			return nil, nil, err
		}
		if row == nil {
			return nil, nil, invalidf("capital stack %d not found", *req.CapitalStackID)
		}
		stack, err = decodeStack(row)
		if err != nil {
			return nil, nil, err
		}
	case req.ProjectBudget != nil:
		var err error
		stack, err = capital.NewStack(*req.ProjectBudget, req.Instruments)
		if err != nil {
			return nil, nil, invalidf("%v", err)
		}
	default:
		return nil, nil, invalidf("request needs capital_stack_id or an inline stack")
	}

	if req.WaterfallID == nil {
		structure, err := scenario.DefaultWaterfall(stack)
		if err != nil {
			return nil, nil, invalidf("%v", err)
		}
		return stack, structure, nil
	}
	if s.Repo == nil {
		return nil, nil, invalidf("waterfall_id requires storage")
	}
	row, err := s.Repo.GetWaterfallStructureByID(ctx, *req.WaterfallID)
	if err != nil {
		return nil, nil, err
	}
	if row == nil {
		return nil, nil, invalidf("waterfall structure %d not found", *req.WaterfallID)
	}
	structure, err := decodeStructure(row)
	if err != nil {
		return nil, nil, err
	}
	return stack, structure, nil
}

func (s *WaterfallService) strategy(raw string) (revenue.ReleaseStrategy, error) {
	if raw == "" {
		raw = s.Engine.DefaultReleaseStrategy
	}
	strategy := revenue.ReleaseStrategy(raw)
	for _, known := range revenue.Strategies() {
		if strategy == known {
			return strategy, nil
		}
	}
	return "", invalidf("unknown release strategy %q", raw)
}

func (s *WaterfallService) options(carryForward *bool) waterfall.Options {
	opts := waterfall.Options{
		DistributableShare: 1 - s.Engine.DistributionFeeRate,
		CarryForward:       s.Engine.CarryForward,
	}
	if carryForward != nil {
		opts.CarryForward = *carryForward
	}
	return opts
}

func (s *WaterfallService) simulate(ctx context.Context, req WaterfallExecutionRequest, strategy revenue.ReleaseStrategy, structure *waterfall.Structure, invested map[string]decimal.Decimal, opts waterfall.Options) (*montecarlo.Result, error) {
	sim := s.Simulator
	if sim == nil {
		sim = &montecarlo.Simulator{Logger: s.Logger}
	}
	cfg := montecarlo.Config{
		Iterations: req.MonteCarloIterations,
		BatchSize:  s.MonteCarlo.BatchSize,
		Workers:    s.MonteCarlo.Workers,
		Sigma:      s.MonteCarlo.Sigma,
		Seed:       req.Seed,
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = s.MonteCarlo.Iterations
	}
	return sim.Simulate(ctx, montecarlo.Params{
		TotalRevenue: req.TotalRevenue,
		Strategy:     strategy,
		Structure:    structure,
		Invested:     invested,
		Options:      opts,
		Config:       cfg,
	}, nil)
}
