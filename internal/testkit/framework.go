// Package testkit runs named scenario predicates and keeps their outcomes.
package testkit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"wacampaign/internal/observability"
	"wacampaign/internal/util"
)

type TestResult struct {
	TestName   string    `json:"testName"`
	Passed     bool      `json:"passed"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMS int64     `json:"durationMs"`
}

type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	PassRate int `json:"passRate"`
}

// SuiteRun is what a suite hands back to the orchestrator.
type SuiteRun struct {
	Summary Summary      `json:"summary"`
	Results []TestResult `json:"results"`
}

// Predicate returns true on success. A false return without error is a plain failure.
type Predicate func(ctx context.Context) (bool, error)

type Framework struct {
	Suite string
	// Timeout bounds each predicate through its context; 0 disables it.
	Timeout time.Duration

	mu      sync.Mutex
	results []TestResult
}

func New(suite string, timeout time.Duration) *Framework {
	return &Framework{Suite: suite, Timeout: timeout}
}

func (f *Framework) RunTest(ctx context.Context, name string, fn Predicate) (res TestResult) {
	start := time.Now()
	res = TestResult{TestName: name, Timestamp: util.NowUTC()}

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			res.Passed = false
			res.Error = fmt.Sprint(r)
		}
		res.DurationMS = time.Since(start).Milliseconds()
		f.record(res)
	}()

	ok, err := fn(ctx)
	switch {
	case err != nil:
		res.Error = err.Error()
	case ok:
		res.Passed = true
	}
	return res
}

func (f *Framework) record(res TestResult) {
	f.mu.Lock()
	f.results = append(f.results, res)
	f.mu.Unlock()

	if res.Passed {
		observability.TestResults.WithLabelValues(f.Suite, "passed").Inc()
		slog.Info("test passed", "suite", f.Suite, "test", res.TestName, "duration_ms", res.DurationMS)
		return
	}
	observability.TestResults.WithLabelValues(f.Suite, "failed").Inc()
	slog.Warn("test failed", "suite", f.Suite, "test", res.TestName, "err", res.Error, "duration_ms", res.DurationMS)
}

func (f *Framework) Results() []TestResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TestResult(nil), f.results...)
}

func (f *Framework) Summary() Summary {
	return Summarize(f.Results())
}

func (f *Framework) Run() SuiteRun {
	res := f.Results()
	return SuiteRun{Summary: Summarize(res), Results: res}
}

func (f *Framework) Reset() {
	f.mu.Lock()
	f.results = nil
	f.mu.Unlock()
}

func Summarize(results []TestResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		}
	}
	s.Failed = s.Total - s.Passed
	s.PassRate = PassRate(s.Passed, s.Total)
	return s
}

// PassRate is round(100*passed/total), 0 for an empty run.
func PassRate(passed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(passed) * 100 / float64(total)))
}

// Wait sleeps for d or until ctx ends.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
