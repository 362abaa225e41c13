// Package master runs the scenario suites in sequence and aggregates their
// outcomes into a single report with recommendations.
package master

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"wacampaign/internal/observability"
	"wacampaign/internal/suites"
	"wacampaign/internal/testkit"
	"wacampaign/internal/util"
)

// SuiteExecution names the synthetic result recorded when a suite itself fails.
const SuiteExecution = "Suite Execution"

type Options struct {
	Functional bool
	Webhook    bool
	Security   bool
	Analytics  bool
	Verbose    bool
}

func DefaultOptions() Options {
	return Options{Functional: true, Webhook: true, Security: true, Analytics: true}
}

func FunctionalOnly() Options { return Options{Functional: true} }

func SecurityOnly() Options { return Options{Security: true} }

// Critical covers what must pass before a release.
func Critical() Options { return Options{Functional: true, Security: true} }

func (o Options) includes(name string) bool {
	switch name {
	case suites.NameFunctional:
		return o.Functional
	case suites.NameWebhook:
		return o.Webhook
	case suites.NameSecurity:
		return o.Security
	case suites.NameAnalytics:
		return o.Analytics
	default:
		return true
	}
}

type SuiteResult struct {
	Name       string               `json:"name"`
	Summary    testkit.Summary      `json:"summary"`
	Results    []testkit.TestResult `json:"results"`
	DurationMS int64                `json:"durationMs"`
	Error      string               `json:"error,omitempty"`
}

type Overall struct {
	TotalSuites int `json:"totalSuites"`
	TotalTests  int `json:"totalTests"`
	Passed      int `json:"passed"`
	Failed      int `json:"failed"`
	PassRate    int `json:"passRate"`
}

type Report struct {
	StartedAt       time.Time     `json:"startedAt"`
	FinishedAt      time.Time     `json:"finishedAt"`
	DurationMS      int64         `json:"durationMs"`
	Suites          []SuiteResult `json:"suites"`
	Overall         Overall       `json:"overall"`
	Recommendations []string      `json:"recommendations"`
}

type Runner struct {
	Suites []suites.Suite
	// Out receives per-suite tables when Options.Verbose is set.
	Out io.Writer
}

func NewRunner(o suites.Options, out io.Writer) *Runner {
	return &Runner{Suites: suites.All(o), Out: out}
}

// RunAllTests runs every included suite in order. It always returns a report:
// a suite that errors or panics is recorded as one failed result.
func (r *Runner) RunAllTests(ctx context.Context, opts Options) Report {
	rep := Report{StartedAt: util.NowUTC()}
	start := time.Now()

	for _, s := range r.Suites {
		if !opts.includes(s.Name()) {
			continue
		}
		slog.Info("suite starting", "suite", s.Name())
		res := runSuite(ctx, s)
		slog.Info("suite finished", "suite", s.Name(),
			"passed", res.Summary.Passed, "failed", res.Summary.Failed, "duration_ms", res.DurationMS)
		if opts.Verbose && r.Out != nil {
			if err := RenderSuite(r.Out, res); err != nil {
				slog.Warn("render suite", "suite", s.Name(), "err", err)
			}
		}
		rep.Suites = append(rep.Suites, res)
	}

	rep.FinishedAt = util.NowUTC()
	rep.DurationMS = time.Since(start).Milliseconds()
	rep.Overall = aggregate(rep.Suites)
	rep.Recommendations = GenerateRecommendations(rep)
	return rep
}

func (r *Runner) RunFunctionalOnly(ctx context.Context) Report {
	return r.RunAllTests(ctx, FunctionalOnly())
}

func (r *Runner) RunSecurityOnly(ctx context.Context) Report {
	return r.RunAllTests(ctx, SecurityOnly())
}

func (r *Runner) RunCritical(ctx context.Context) Report {
	return r.RunAllTests(ctx, Critical())
}

func runSuite(ctx context.Context, s suites.Suite) (res SuiteResult) {
	res.Name = s.Name()
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			slog.Error("suite panicked", "suite", res.Name, "panic", p)
			res = executionFailure(res.Name, fmt.Sprint(p))
		}
		res.DurationMS = time.Since(start).Milliseconds()
		observability.SuiteDuration.WithLabelValues(res.Name).Observe(time.Since(start).Seconds())
	}()

	run, err := s.Run(ctx)
	if err != nil {
		slog.Error("suite failed", "suite", res.Name, "err", err)
		return executionFailure(res.Name, err.Error())
	}
	res.Summary, res.Results = run.Summary, run.Results
	return res
}

func executionFailure(name, msg string) SuiteResult {
	results := []testkit.TestResult{{
		TestName:  SuiteExecution,
		Error:     msg,
		Timestamp: util.NowUTC(),
	}}
	return SuiteResult{Name: name, Summary: testkit.Summarize(results), Results: results, Error: msg}
}

func aggregate(rs []SuiteResult) Overall {
	o := Overall{TotalSuites: len(rs)}
	for _, r := range rs {
		o.TotalTests += r.Summary.Total
		o.Passed += r.Summary.Passed
		o.Failed += r.Summary.Failed
	}
	o.PassRate = testkit.PassRate(o.Passed, o.TotalTests)
	return o
}

// Failed reports whether any included test failed.
func (r Report) Failed() bool { return r.Overall.Failed > 0 }
