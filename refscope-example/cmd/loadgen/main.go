// Command loadgen drives random transfers and the built-in scenarios
// against the example ledger server until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chosenoffset/refscope/refscope-example/internal/scenario"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		baseURL   string
		interval  time.Duration
		ratio     int
		balance   float64
		scenarios []string
	)
	cmd := &cobra.Command{
		Use:          "loadgen",
		Short:        "Send ledger traffic to the refscope example server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ratio < 0 || ratio > 10 {
				return fmt.Errorf("invalid --scenario-ratio %d (must be 0-10)", ratio)
			}
			selected, err := scenario.Lookup(scenarios...)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, logger, &scenario.Client{
				HTTP:    &http.Client{Timeout: 5 * time.Second},
				BaseURL: baseURL,
			}, selected, interval, ratio, balance)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "ledger server base URL")
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "pause between requests")
	cmd.Flags().IntVar(&ratio, "scenario-ratio", 2, "scenarios run per 10 requests")
	cmd.Flags().Float64Var(&balance, "balance", 500, "opening balance of each account")
	cmd.Flags().StringSliceVar(&scenarios, "scenario", nil, fmt.Sprintf("scenarios to run (default all of %v)", scenario.Names()))
	return cmd
}

func run(ctx context.Context, logger *slog.Logger, c *scenario.Client, scenarios []scenario.Scenario, interval time.Duration, ratio int, balance float64) error {
	if err := scenario.Setup(ctx, c, balance); err != nil {
		return err
	}
	logger.Info("accounts ready", "accounts", scenario.Accounts, "scenarios", len(scenarios))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var sent, failed int
	for {
		select {
		case <-ctx.Done():
			logger.Info("load generation stopped", "requests", sent, "failures", failed)
			return nil
		case <-ticker.C:
		}

		var err error
		if rand.IntN(10) >= ratio {
			err = scenario.RandomTransfer(ctx, c)
		} else {
			sc := scenarios[rand.IntN(len(scenarios))]
			logger.Debug("running scenario", "scenario", sc.Name())
			err = sc.Run(ctx, c.HTTP, c.BaseURL)
		}
		sent++
		if err != nil && !errors.Is(err, context.Canceled) {
			failed++
			logger.Warn("request failed", "error", err)
		}
	}
}
