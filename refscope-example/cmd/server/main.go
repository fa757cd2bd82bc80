// Package main provides the refscope example application, a financial
// ledger that publishes a rendered snapshot of every account it touches.
//
// The server runs on :8080 with the following API endpoints:
//   - POST /account: Create new account with initial balance
//   - GET /balance?id=<account_id>: Get account balance
//   - POST /transfer: Transfer funds between accounts
//   - GET /inspect[?id=<account_id>]: Render the ledger or one account
//
// The refscope dashboard is available at http://localhost:9090 and lists
// the published snapshots as they arrive.
//
// Usage:
//
//	go run ./refscope-example/cmd/server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chosenoffset/refscope/pkg/refscope"
	"github.com/chosenoffset/refscope/pkg/refscope/config"
	"github.com/chosenoffset/refscope/pkg/refscope/dashboard"
	"github.com/chosenoffset/refscope/pkg/refscope/metrics"
	"github.com/chosenoffset/refscope/refscope-example/internal/ledger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.FromEnv(config.Default())
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()
	in := refscope.New(
		refscope.WithConfig(cfg),
		refscope.WithMetrics(collector),
		refscope.WithLogger(logger),
	)
	in.Converter().RegisterType(&ledger.Account{}, &ledger.Transfer{})

	dash := dashboard.New(
		dashboard.WithAddr(":9090"),
		dashboard.WithMetrics(collector),
		dashboard.WithLogger(logger),
	)
	in.RegisterSink("dashboard", dash)

	l := ledger.NewLedger(in, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/account", collector.Middleware("/account", l.HandleCreateAccount))
	mux.HandleFunc("/balance", collector.Middleware("/balance", l.HandleGetBalance))
	mux.HandleFunc("/transfer", collector.Middleware("/transfer", l.HandleTransfer))
	mux.HandleFunc("/inspect", collector.Middleware("/inspect", l.HandleInspect))

	server := &http.Server{
		Addr:         ":8080",
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dash.Start(ctx)
	})
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", server.Addr, "dashboard", "http://localhost:9090")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	t := in.Time()
	logger.Info("server stopped", "documents", t.Queries, "render_cpu", t.CPU)
}
