// Package montecarlo wraps the waterfall executor in repeated stochastic
// trials: each trial draws a log-normal multiplier for total ultimate
// revenue, re-projects, re-executes, and records per-stakeholder outcomes.
package montecarlo

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"filmstack/internal/revenue"
	"filmstack/internal/waterfall"
)

const (
	DefaultIterations = 1000
	DefaultBatchSize  = 100
	DefaultSigma      = 0.35
	DefaultWorkers    = 4
)

// Config tunes one simulation. Zero values fall back to the defaults above.
type Config struct {
	Iterations int
	BatchSize  int
	Workers    int
	// Sigma is the log-space standard deviation of the revenue multiplier.
	// The multiplier is drawn as exp(N(-sigma^2/2, sigma)), which centers its
	// mean at 1.0.
	Sigma float64
	// Seed makes the run bit-for-bit reproducible. Nil draws a process-level
	// random seed; callers needing reproducibility always pass one.
	Seed *int64
}

func (c Config) withDefaults() Config {
	if c.Iterations <= 0 {
		c.Iterations = DefaultIterations
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Sigma <= 0 {
		c.Sigma = DefaultSigma
	}
	return c
}

// Params are the immutable inputs shared by every trial.
type Params struct {
	TotalRevenue decimal.Decimal
	Strategy     revenue.ReleaseStrategy
	Structure    *waterfall.Structure
	Invested     map[string]decimal.Decimal
	Options      waterfall.Options
	Config       Config
}

// Progress is reported after each completed batch.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// StakeholderStats aggregates one stakeholder's outcomes over all trials.
// Percentiles are over the non-nil IRR samples only; they are nil when no
// trial produced a defined IRR.
type StakeholderStats struct {
	StakeholderID           string   `json:"stakeholder_id"`
	P10                     *float64 `json:"p10_irr"`
	P50                     *float64 `json:"p50_irr"`
	P90                     *float64 `json:"p90_irr"`
	ProbabilityOfRecoupment float64  `json:"probability_of_recoupment"`
	IRRSamples              int      `json:"irr_samples"`
}

type Result struct {
	Iterations int                `json:"iterations"`
	Seed       int64              `json:"seed"`
	Stats      []StakeholderStats `json:"stakeholders"`
}

type trialOutcome struct {
	irr      map[string]*float64
	recouped map[string]bool
}

type Simulator struct {
	Logger *zap.Logger
}

// Simulate runs the configured number of trials and aggregates percentile
// statistics. Trials are embarrassingly parallel: each reads the shared
// immutable params and writes to its own result slot, so workers need no
// locking. Per-trial RNGs are seeded seed+trialIndex, making results
// independent of worker count and completion order. Cancellation is checked
// between batches, not mid-trial.
func (s *Simulator) Simulate(ctx context.Context, params Params, onProgress func(Progress)) (*Result, error) {
	cfg := params.Config.withDefaults()
	if params.Structure == nil {
		return nil, fmt.Errorf("montecarlo: nil structure")
	}
	if params.TotalRevenue.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("montecarlo: total revenue must be positive, got %s", params.TotalRevenue.String())
	}
	// Validate the baseline projection once up front so a bad strategy fails
	// the call instead of every trial.
	if _, err := revenue.Project(params.TotalRevenue, params.Strategy); err != nil {
		return nil, err
	}

	seed := int64(0)
	if cfg.Seed != nil {
		seed = *cfg.Seed
	} else {
		seed = time.Now().UnixNano()
	}

	outcomes := make([]trialOutcome, cfg.Iterations)
	start := time.Now()

	for offset := 0; offset < cfg.Iterations; offset += cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := offset + cfg.BatchSize
		if end > cfg.Iterations {
			end = cfg.Iterations
		}
		s.runBatch(params, cfg, seed, offset, end, outcomes)
		if onProgress != nil {
			onProgress(Progress{Completed: end, Total: cfg.Iterations})
		}
	}

	result := aggregate(params.Structure, params.Invested, outcomes)
	result.Iterations = cfg.Iterations
	result.Seed = seed

	if s.Logger != nil {
		s.Logger.Debug("simulation finished",
			zap.Int("iterations", cfg.Iterations),
			zap.Int64("seed", seed),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return result, nil
}

func (s *Simulator) runBatch(params Params, cfg Config, seed int64, from, to int, outcomes []trialOutcome) {
	var wg sync.WaitGroup
	indices := make(chan int)
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				outcomes[i] = runTrial(params, cfg, seed+int64(i))
			}
		}()
	}
	for i := from; i < to; i++ {
		indices <- i
	}
	close(indices)
	wg.Wait()
}

func runTrial(params Params, cfg Config, trialSeed int64) trialOutcome {
	rng := rand.New(rand.NewSource(trialSeed))
	// Log-normal multiplier with mean 1.0: mu = -sigma^2/2.
	mult := math.Exp(rng.NormFloat64()*cfg.Sigma - cfg.Sigma*cfg.Sigma/2)
	total := params.TotalRevenue.Mul(decimal.NewFromFloat(mult))

	out := trialOutcome{irr: map[string]*float64{}, recouped: map[string]bool{}}
	proj, err := revenue.Project(total, params.Strategy)
	if err != nil {
		return out
	}
	tl, err := waterfall.Execute(proj, params.Structure, params.Options)
	if err != nil {
		return out
	}
	for _, ret := range waterfall.BuildReturns(tl, params.Structure, params.Invested) {
		if ret.Invested.LessThanOrEqual(decimal.Zero) {
			continue
		}
		out.irr[ret.StakeholderID] = ret.IRR
		out.recouped[ret.StakeholderID] = ret.Recouped
	}
	return out
}

func aggregate(structure *waterfall.Structure, invested map[string]decimal.Decimal, outcomes []trialOutcome) *Result {
	ids := make([]string, 0, len(invested))
	for id, amt := range invested {
		if amt.GreaterThan(decimal.Zero) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	result := &Result{Stats: make([]StakeholderStats, 0, len(ids))}
	for _, id := range ids {
		irrs := make([]float64, 0, len(outcomes))
		recouped := 0
		for _, o := range outcomes {
			if o.recouped[id] {
				recouped++
			}
			if r := o.irr[id]; r != nil {
				irrs = append(irrs, *r)
			}
		}
		st := StakeholderStats{
			StakeholderID: id,
			IRRSamples:    len(irrs),
		}
		if len(outcomes) > 0 {
			st.ProbabilityOfRecoupment = float64(recouped) / float64(len(outcomes))
		}
		if len(irrs) > 0 {
			st.P10 = percentile(irrs, 10)
			st.P50 = percentile(irrs, 50)
			st.P90 = percentile(irrs, 90)
		}
		result.Stats = append(result.Stats, st)
	}
	return result
}

func percentile(samples []float64, p float64) *float64 {
	v, err := stats.Percentile(samples, p)
	if err != nil {
		return nil
	}
	return &v
}
