package service

import (
	"context"
	"testing"
	"time"

	"filmstack/internal/models"
	"filmstack/internal/repository"
)

func TestProgressHub_PublishAndClose(t *testing.T) {
	hub := NewProgressHub()
	ch, unsub := hub.Subscribe("run-1", 4)
	defer unsub()

	hub.Publish(ProgressEvent{RunID: "run-1", Status: models.RunStatusRunning, Completed: 10, Total: 100})
	hub.Publish(ProgressEvent{RunID: "run-2", Status: models.RunStatusRunning, Completed: 99, Total: 100})
	hub.Close(ProgressEvent{RunID: "run-1", Status: models.RunStatusCompleted, Completed: 100, Total: 100})

	ev, ok := <-ch
	if !ok || ev.Completed != 10 {
		t.Fatalf("first event=%+v ok=%v want completed=10", ev, ok)
	}
	ev, ok = <-ch
	if !ok || ev.Status != models.RunStatusCompleted {
		t.Fatalf("terminal event=%+v ok=%v want completed status", ev, ok)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after terminal event")
	}
}

func TestProgressHub_SlowSubscriberDropsFrames(t *testing.T) {
	hub := NewProgressHub()
	ch, unsub := hub.Subscribe("run-1", 1)
	defer unsub()

	hub.Publish(ProgressEvent{RunID: "run-1", Completed: 1})
	hub.Publish(ProgressEvent{RunID: "run-1", Completed: 2})

	ev := <-ch
	if ev.Completed != 1 {
		t.Fatalf("event=%+v want the first frame kept", ev)
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected second frame %+v, full buffer must drop", ev)
	default:
	}
}

func TestProgressHub_Unsubscribe(t *testing.T) {
	hub := NewProgressHub()
	ch, unsub := hub.Subscribe("run-1", 1)
	unsub()
	hub.Publish(ProgressEvent{RunID: "run-1", Completed: 1})
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v after unsubscribe", ev)
	default:
	}
}

func testRunManager(repo *stubRepo) *RunManager {
	return &RunManager{
		Repo:       repo,
		Waterfalls: testWaterfallService(repo),
		MonteCarlo: testMonteCarloConfig(),
		Hub:        NewProgressHub(),
	}
}

func waitForTerminal(t *testing.T, m *RunManager, runID string) *models.SimulationRun {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		run, err := m.Get(context.Background(), runID)
		if err != nil {
			t.Fatalf("get run: %v", err)
		}
		if run != nil && terminalRun(run.Status) {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s never reached a terminal status", runID)
	return nil
}

func terminalRun(status string) bool {
	return status == models.RunStatusCompleted || status == models.RunStatusCancelled || status == models.RunStatusFailed
}

func TestRunManager_CompletesAndPersistsResult(t *testing.T) {
	repo := newStubRepo()
	m := testRunManager(repo)
	budget := decInt(30_000_000)
	seed := int64(5)

	runID, err := m.Start(context.Background(), SimulationRequest{
		ProjectBudget: &budget,
		Instruments:   testInstruments(),
		TotalRevenue:  decInt(75_000_000),
		Iterations:    50,
		Seed:          &seed,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	run := waitForTerminal(t, m, runID)
	if run.Status != models.RunStatusCompleted {
		t.Fatalf("status=%s error=%q want completed", run.Status, run.Error)
	}
	if len(run.Result) == 0 {
		t.Fatalf("completed run has no persisted result")
	}
	if run.TotalIterations != 50 {
		t.Fatalf("total iterations=%d want=50", run.TotalIterations)
	}

	runs, err := m.List(context.Background(), repository.ListRunsParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs=%d want=1", len(runs))
	}
}

func TestRunManager_TerminalStatusPersistedBeforeHubClose(t *testing.T) {
	repo := newStubRepo()
	m := testRunManager(repo)
	budget := decInt(30_000_000)
	seed := int64(5)

	runID, err := m.Start(context.Background(), SimulationRequest{
		ProjectBudget: &budget,
		Instruments:   testInstruments(),
		TotalRevenue:  decInt(75_000_000),
		Iterations:    50,
		Seed:          &seed,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	ch, unsub := m.Hub.Subscribe(runID, 64)
	defer unsub()
	for range ch {
	}
	// The channel only closes on the terminal event, and by that point the
	// persisted row must already carry the terminal status. A streaming
	// client that subscribes and then re-reads the row would otherwise see
	// a running status with no further events to end the stream on.
	run, err := m.Get(context.Background(), runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run == nil || !terminalRun(run.Status) {
		t.Fatalf("run=%+v want a terminal status persisted before the hub closed", run)
	}

	// A subscriber that arrives after the hub closed the run gets a silent
	// channel. The row it re-reads must already be terminal.
	late, lateUnsub := m.Hub.Subscribe(runID, 1)
	defer lateUnsub()
	select {
	case ev := <-late:
		t.Fatalf("unexpected event %+v on a late subscription", ev)
	default:
	}
	run, err = m.Get(context.Background(), runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run == nil || !terminalRun(run.Status) {
		t.Fatalf("run=%+v want terminal status visible to a late subscriber", run)
	}
}

func TestRunManager_StartRejectsBadRequest(t *testing.T) {
	m := testRunManager(newStubRepo())
	budget := decInt(30_000_000)

	_, err := m.Start(context.Background(), SimulationRequest{TotalRevenue: decInt(1)})
	if err == nil || !IsValidation(err) {
		t.Fatalf("err=%v want validation error without a stack", err)
	}

	_, err = m.Start(context.Background(), SimulationRequest{
		ProjectBudget:   &budget,
		Instruments:     testInstruments(),
		TotalRevenue:    decInt(75_000_000),
		ReleaseStrategy: "imax_only",
	})
	if err == nil || !IsValidation(err) {
		t.Fatalf("err=%v want validation error for unknown strategy", err)
	}
}

func TestRunManager_CancelUnknownRun(t *testing.T) {
	m := testRunManager(newStubRepo())
	if m.Cancel("nope") {
		t.Fatalf("cancel of unknown run reported true")
	}
}

func TestRunManager_CancelStopsRun(t *testing.T) {
	repo := newStubRepo()
	m := testRunManager(repo)
	// Small batches and one worker keep the run slow enough to cancel at a
	// batch boundary.
	m.MonteCarlo.BatchSize = 1
	m.MonteCarlo.Workers = 1
	budget := decInt(30_000_000)
	seed := int64(5)

	runID, err := m.Start(context.Background(), SimulationRequest{
		ProjectBudget: &budget,
		Instruments:   testInstruments(),
		TotalRevenue:  decInt(75_000_000),
		Iterations:    100_000,
		Seed:          &seed,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !m.Cancel(runID) {
		t.Fatalf("cancel of in-flight run reported false")
	}

	run := waitForTerminal(t, m, runID)
	if run.Status != models.RunStatusCancelled {
		t.Fatalf("status=%s want cancelled", run.Status)
	}
	if run.CompletedIterations >= 100_000 {
		t.Fatalf("cancelled run claims all iterations completed")
	}
}
