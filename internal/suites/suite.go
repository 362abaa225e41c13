// Package suites holds the scenario suites run against the simulated
// WhatsApp transport. Each suite owns its own transport and result
// accumulator and runs its scenarios strictly in order.
package suites

import (
	"context"
	"fmt"
	"time"

	"wacampaign/internal/campaign"
	"wacampaign/internal/config"
	"wacampaign/internal/domain"
	"wacampaign/internal/mockapi"
	"wacampaign/internal/testkit"
)

const (
	NameFunctional = "Functional Tests"
	NameWebhook    = "Webhook Tests"
	NameSecurity   = "Security Tests"
	NameAnalytics  = "Analytics Tests"
)

type Suite interface {
	Name() string
	Run(ctx context.Context) (testkit.SuiteRun, error)
}

type Options struct {
	Simulation config.Simulation
	Suites     config.Suites
	// Rand overrides the transport's random source. Nil uses Simulation.Seed.
	Rand mockapi.Rand
}

func DefaultOptions() Options {
	return Options{Simulation: config.DefaultSimulation(), Suites: config.DefaultSuites()}
}

func (o Options) newAPI(opts ...mockapi.Option) *mockapi.API {
	if o.Rand != nil {
		opts = append(opts, mockapi.WithRand(o.Rand))
	}
	return mockapi.New(o.Simulation, opts...)
}

func (o Options) newFramework(name string) *testkit.Framework {
	return testkit.New(name, o.Suites.TestTimeout)
}

// All returns the four suites in their canonical order.
func All(o Options) []Suite {
	return []Suite{NewFunctional(o), NewWebhook(o), NewSecurity(o), NewAnalytics(o)}
}

func sendOnce(ctx context.Context, d *campaign.Dispatcher, tpl domain.TestTemplate, c domain.TestContact) (domain.SendResponse, error) {
	return d.Send(ctx, campaign.BuildPayload(tpl, c))
}

func expectKind(err error, want domain.ErrorKind) error {
	if err == nil {
		return fmt.Errorf("expected %s error, send succeeded", want)
	}
	if got := domain.KindOf(err); got != want {
		return fmt.Errorf("expected %s error, got %s: %v", want, got, err)
	}
	return nil
}

// pollUntil checks cond every interval until it holds or ctx ends.
func pollUntil(ctx context.Context, interval time.Duration, cond func() bool) bool {
	for {
		if cond() {
			return true
		}
		if err := testkit.Wait(ctx, interval); err != nil {
			return cond()
		}
	}
}

func runStarted(ctx context.Context, f *testkit.Framework) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s not started: %w", f.Suite, err)
	}
	f.Reset()
	return nil
}
