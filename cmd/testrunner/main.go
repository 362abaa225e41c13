package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"wacampaign/internal/config"
	"wacampaign/internal/logging"
	"wacampaign/internal/master"
	"wacampaign/internal/observability"
	"wacampaign/internal/suites"
)

func main() {
	cfg := config.LoadRunner()
	logging.InitWriter(os.Stderr, "testrunner", cfg.LogFormat, cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observability.Register(prometheus.DefaultRegisterer)

	opts, err := options(cfg)
	if err != nil {
		slog.Error("testrunner config invalid", "err", err)
		os.Exit(2)
	}

	runner := master.NewRunner(suites.Options{Simulation: cfg.Simulation, Suites: cfg.Suites}, os.Stdout)
	rep := runner.RunAllTests(ctx, opts)

	if err := master.Render(os.Stdout, rep); err != nil {
		slog.Error("render report failed", "err", err)
	}
	if err := writeReports(cfg.ReportDir, rep); err != nil {
		slog.Error("write reports failed", "err", err, "dir", cfg.ReportDir)
		os.Exit(1)
	}
	if rep.Failed() {
		os.Exit(1)
	}
}

func options(cfg config.Runner) (master.Options, error) {
	var opts master.Options
	switch cfg.Preset {
	case "", "all":
		opts = master.Options{
			Functional: cfg.RunFunctional,
			Webhook:    cfg.RunWebhook,
			Security:   cfg.RunSecurity,
			Analytics:  cfg.RunAnalytics,
		}
	case "functional":
		opts = master.FunctionalOnly()
	case "security":
		opts = master.SecurityOnly()
	case "critical":
		opts = master.Critical()
	default:
		return master.Options{}, fmt.Errorf("unknown preset %q", cfg.Preset)
	}
	opts.Verbose = cfg.Verbose
	return opts, nil
}

func writeReports(dir string, rep master.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	js, err := master.ExportReportJSON(rep)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "report.json"), js, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "report.csv"), []byte(master.ExportReportCSV(rep)), 0o644); err != nil {
		return err
	}
	slog.Info("reports written", "dir", dir)
	return nil
}
