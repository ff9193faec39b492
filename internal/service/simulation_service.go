package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"filmstack/internal/capital"
	"filmstack/internal/config"
	"filmstack/internal/models"
	"filmstack/internal/montecarlo"
	"filmstack/internal/repository"
	"filmstack/internal/scenario"
)

// ProgressEvent is one progress frame for a run, emitted after each completed
// batch and once more with the terminal status.
type ProgressEvent struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// ProgressHub fans progress events out to websocket subscribers. Sends never
// block: a slow subscriber drops frames rather than stalling the run.
type ProgressHub struct {
	mu      sync.RWMutex
	subs    map[string][]chan ProgressEvent
	dropped uint64
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: map[string][]chan ProgressEvent{}}
}

// Subscribe returns a channel of events for one run plus an unsubscribe
// function. The channel is closed when the run reaches a terminal status.
func (h *ProgressHub) Subscribe(runID string, buf int) (<-chan ProgressEvent, func()) {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan ProgressEvent, buf)
	h.mu.Lock()
	h.subs[runID] = append(h.subs[runID], ch)
	h.mu.Unlock()
	return ch, func() { h.unsubscribe(runID, ch) }
}

func (h *ProgressHub) unsubscribe(runID string, ch chan ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.subs[runID][:0]
	for _, c := range h.subs[runID] {
		if c != ch {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(h.subs, runID)
	} else {
		h.subs[runID] = kept
	}
}

func (h *ProgressHub) Publish(ev ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[ev.RunID] {
		select {
		case ch <- ev:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

// Close publishes the terminal event and closes every subscriber channel for
// the run.
func (h *ProgressHub) Close(ev ProgressEvent) {
	h.mu.Lock()
	chans := h.subs[ev.RunID]
	delete(h.subs, ev.RunID)
	h.mu.Unlock()
	for _, ch := range chans {
		select {
		case ch <- ev:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
		close(ch)
	}
}

// SimulationRequest starts one asynchronous Monte Carlo run. The stack and
// waterfall resolve exactly as in a synchronous execution request.
type SimulationRequest struct {
	CapitalStackID *uint64              `json:"capital_stack_id,omitempty"`
	ProjectBudget  *decimal.Decimal     `json:"project_budget,omitempty"`
	Instruments    []capital.Instrument `json:"instruments,omitempty"`
	WaterfallID    *uint64              `json:"waterfall_id,omitempty"`

	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	ReleaseStrategy string          `json:"release_strategy"`
	CarryForward    *bool           `json:"carry_forward,omitempty"`

	Iterations int      `json:"iterations,omitempty"`
	Sigma      *float64 `json:"sigma,omitempty"`
	Seed       *int64   `json:"seed,omitempty"`
}

// RunManager owns the lifecycle of asynchronous simulation runs: it creates
// the run row, executes in a goroutine with a per-run cancel, persists
// batch-level progress, and feeds the progress hub.
type RunManager struct {
	Repo       repository.Repository
	Waterfalls *WaterfallService
	Simulator  *montecarlo.Simulator
	MonteCarlo config.MonteCarloConfig
	Hub        *ProgressHub
	Logger     *zap.Logger

	// base bounds every run's lifetime; set once via Run before any Start.
	base   context.Context
	mu     sync.Mutex
	cancel map[string]context.CancelFunc
}

// Run pins the manager to its parent context and blocks until shutdown, then
// cancels every in-flight run.
func (m *RunManager) Run(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	m.base = ctx
	if m.cancel == nil {
		m.cancel = map[string]context.CancelFunc{}
	}
	m.mu.Unlock()
	<-ctx.Done()
	m.mu.Lock()
	for _, cancel := range m.cancel {
		cancel()
	}
	m.mu.Unlock()
	return ctx.Err()
}

// Start validates the request, persists a pending run row, and launches the
// simulation goroutine. It returns the run ID immediately.
func (m *RunManager) Start(ctx context.Context, req SimulationRequest) (string, error) {
	if m == nil || m.Repo == nil || m.Waterfalls == nil {
		return "", invalidf("simulation manager unavailable")
	}
	execReq := WaterfallExecutionRequest{
		CapitalStackID: req.CapitalStackID,
		ProjectBudget:  req.ProjectBudget,
		Instruments:    req.Instruments,
		WaterfallID:    req.WaterfallID,
		TotalRevenue:   req.TotalRevenue,
	}
	stack, structure, err := m.Waterfalls.resolve(ctx, execReq)
	if err != nil {
		return "", err
	}
	if req.TotalRevenue.LessThanOrEqual(decimal.Zero) {
		return "", invalidf("total_revenue must be positive, got %s", req.TotalRevenue.String())
	}
	strategy, err := m.Waterfalls.strategy(req.ReleaseStrategy)
	if err != nil {
		return "", err
	}

	cfg := montecarlo.Config{
		Iterations: req.Iterations,
		BatchSize:  m.MonteCarlo.BatchSize,
		Workers:    m.MonteCarlo.Workers,
		Sigma:      m.MonteCarlo.Sigma,
		Seed:       req.Seed,
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = m.MonteCarlo.Iterations
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = montecarlo.DefaultIterations
	}
	if req.Sigma != nil && *req.Sigma > 0 {
		cfg.Sigma = *req.Sigma
	}

	params := montecarlo.Params{
		TotalRevenue: req.TotalRevenue,
		Strategy:     strategy,
		Structure:    structure,
		Invested:     scenario.InvestedByStakeholder(stack),
		Options:      m.Waterfalls.options(req.CarryForward),
		Config:       cfg,
	}

	runID := uuid.NewString()
	rawParams, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	row := &models.SimulationRun{
		RunID:           runID,
		Status:          models.RunStatusPending,
		Params:          rawParams,
		TotalIterations: cfg.Iterations,
	}
	if err := m.Repo.CreateSimulationRun(ctx, row); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(m.parent())
	m.mu.Lock()
	if m.cancel == nil {
		m.cancel = map[string]context.CancelFunc{}
	}
	m.cancel[runID] = cancel
	m.mu.Unlock()

	go m.execute(runCtx, runID, params)
	return runID, nil
}

// Cancel requests cooperative cancellation. The run stops at the next batch
// boundary; completed runs report false.
func (m *RunManager) Cancel(runID string) bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	cancel, ok := m.cancel[runID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (m *RunManager) Get(ctx context.Context, runID string) (*models.SimulationRun, error) {
	if m == nil || m.Repo == nil {
		return nil, invalidf("simulation storage unavailable")
	}
	return m.Repo.GetSimulationRun(ctx, runID)
}

func (m *RunManager) List(ctx context.Context, params repository.ListRunsParams) ([]models.SimulationRun, error) {
	if m == nil || m.Repo == nil {
		return nil, invalidf("simulation storage unavailable")
	}
	return m.Repo.ListSimulationRuns(ctx, params)
}

func (m *RunManager) parent() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.base != nil {
		return m.base
	}
	return context.Background()
}

func (m *RunManager) execute(ctx context.Context, runID string, params montecarlo.Params) {
	defer func() {
		m.mu.Lock()
		if cancel, ok := m.cancel[runID]; ok {
			cancel()
			delete(m.cancel, runID)
		}
		m.mu.Unlock()
	}()

	// Persistence uses Background: the run context is already cancelled when
	// we record a cancellation, and the final status must still land.
	store := context.Background()
	_ = m.Repo.UpdateSimulationRunStatus(store, runID, models.RunStatusRunning, nil, "")

	total := params.Config.Iterations
	sim := m.Simulator
	if sim == nil {
		sim = &montecarlo.Simulator{Logger: m.Logger}
	}
	result, err := sim.Simulate(ctx, params, func(p montecarlo.Progress) {
		_ = m.Repo.UpdateSimulationRunProgress(store, runID, p.Completed)
		if m.Hub != nil {
			m.Hub.Publish(ProgressEvent{RunID: runID, Status: models.RunStatusRunning, Completed: p.Completed, Total: p.Total})
		}
	})

	switch {
	case err == nil:
		raw, mErr := json.Marshal(result)
		if mErr != nil {
			m.finish(store, runID, models.RunStatusFailed, nil, mErr.Error(), total)
			return
		}
		m.finish(store, runID, models.RunStatusCompleted, raw, "", total)
	case ctx.Err() != nil:
		m.finish(store, runID, models.RunStatusCancelled, nil, "", total)
	default:
		m.finish(store, runID, models.RunStatusFailed, nil, err.Error(), total)
	}
}

func (m *RunManager) finish(ctx context.Context, runID, status string, result []byte, errMsg string, total int) {
	if err := m.Repo.UpdateSimulationRunStatus(ctx, runID, status, result, errMsg); err != nil && m.Logger != nil {
		m.Logger.Warn("simulation run status update failed", zap.String("run_id", runID), zap.Error(err))
	}
	completed := total
	if status != models.RunStatusCompleted {
		if row, err := m.Repo.GetSimulationRun(ctx, runID); err == nil && row != nil {
			completed = row.CompletedIterations
		} else {
			completed = 0
		}
	}
	if m.Hub != nil {
		m.Hub.Close(ProgressEvent{RunID: runID, Status: status, Completed: completed, Total: total})
	}
	if m.Logger != nil {
		m.Logger.Info("simulation run finished",
			zap.String("run_id", runID),
			zap.String("status", status),
			zap.Int("iterations", total))
	}
}
