package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chosenoffset/refscope/pkg/refscope"
	"github.com/chosenoffset/refscope/pkg/refscope/dashboard"
	"github.com/chosenoffset/refscope/pkg/refscope/heuristics"
	"github.com/chosenoffset/refscope/pkg/refscope/metrics"
	"github.com/chosenoffset/refscope/pkg/refscope/sink"
)

// publisher decodes a file and publishes it under its base name.
func publisher(cmd *cobra.Command, in *refscope.Inspector, an *heuristics.Analyzer, as string) func(name string) error {
	return func(name string) error {
		data, err := readInput(cmd, name)
		if err != nil {
			return err
		}
		v, err := decode(an, name, data, as)
		if err != nil {
			return err
		}
		_, err = in.Publish(v, filepath.Base(name), filepath.Base(name))
		return err
	}
}

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		history int
		as      string
	)
	cmd := &cobra.Command{
		Use:   "serve [file...]",
		Short: "Serve the live dashboard",
		Long: `Serve starts the dashboard: published documents over HTTP and a
websocket feed, Prometheus metrics on /metrics. Files given as arguments are
published on start and again whenever they change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			collector := metrics.NewCollector()
			if !cmd.Flags().Changed("format") {
				a.format = "html"
			}
			in, an, err := a.inspector(nil, collector)
			if err != nil {
				return err
			}
			srv := dashboard.New(
				dashboard.WithAddr(addr),
				dashboard.WithMetrics(collector),
				dashboard.WithHistory(history),
				dashboard.WithLogger(a.logger),
			)
			in.RegisterSink("dashboard", srv)
			fmt.Fprintf(cmd.OutOrStdout(), "dashboard on %s\n", addr)

			var w *watcher
			if len(args) > 0 {
				if w, err = newWatcher(args, publisher(cmd, in, an, as), a.logger); err != nil {
					return err
				}
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Start(gctx)
			})
			if w != nil {
				g.Go(func() error {
					return w.run(gctx)
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":7070", "listen address")
	cmd.Flags().IntVar(&history, "history", 500, "documents kept for late joiners")
	cmd.Flags().StringVar(&as, "as", inputAuto, "input kind of watched files")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "watch FILE...",
		Short: "Re-render files whenever they change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, a, as, args)
		},
	}
	cmd.Flags().StringVar(&as, "as", inputAuto, "input kind of watched files")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, a *app, as string, files []string) error {
	out := cmd.OutOrStdout()
	in, an, err := a.inspector(out, nil)
	if err != nil {
		return err
	}
	in.RegisterSink("console", sink.NewConsole(out))

	w, err := newWatcher(files, publisher(cmd, in, an, as), a.logger)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.run(gctx)
	})
	return g.Wait()
}
