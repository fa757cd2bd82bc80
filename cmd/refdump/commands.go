package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/chosenoffset/refscope/pkg/refscope"
	"github.com/chosenoffset/refscope/pkg/refscope/config"
	"github.com/chosenoffset/refscope/pkg/refscope/format"
	"github.com/chosenoffset/refscope/pkg/refscope/heuristics"
	"github.com/chosenoffset/refscope/pkg/refscope/host"
	"github.com/chosenoffset/refscope/pkg/refscope/metrics"
)

// app holds the persistent flags and what PersistentPreRunE builds from
// them.
type app struct {
	configPath  string
	format      string
	color       string
	logLevel    string
	maxDepth    int
	expandLevel int
	noMatches   bool

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "refdump",
		Short: "Render structured data as an inspectable tree",
		Long: `refdump renders JSON, YAML and serialized payloads with the refscope
inspector, validates delimited regular expressions, parses docblocks and
serves a live dashboard of published documents.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	flags.StringVarP(&a.format, "format", "f", "text", "output format ("+strings.Join(format.Names, ", ")+")")
	flags.StringVar(&a.color, "color", "auto", "color output (auto, always, never)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.IntVar(&a.maxDepth, "max-depth", 0, "maximum group depth, 0 for unlimited")
	flags.IntVar(&a.expandLevel, "expand", 1, "levels expanded by default, -1 for all")
	flags.BoolVar(&a.noMatches, "no-matches", false, "skip string heuristics")

	rootCmd.AddCommand(
		newRenderCmd(a),
		newRegexCmd(a),
		newDocblockCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.logLevel, err)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg, err := config.FromEnv(cfg)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("max-depth") {
		cfg.MaxDepth = a.maxDepth
	}
	if flags.Changed("expand") {
		cfg.ExpandLevel = a.expandLevel
	}
	if a.noMatches {
		cfg.ShowStringMatches = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// useColor resolves the --color mode for w. NO_COLOR turns auto off.
func (a *app) useColor(w io.Writer) (bool, error) {
	switch a.color {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		if os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		f, ok := w.(*os.File)
		if !ok {
			return false, nil
		}
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()), nil
	}
	return false, fmt.Errorf("invalid color mode %q (valid modes: auto, always, never)", a.color)
}

func (a *app) formatOptions(w io.Writer) ([]format.Option, error) {
	color, err := a.useColor(w)
	if err != nil {
		return nil, err
	}
	return []format.Option{format.WithLogger(a.logger), format.WithColor(color)}, nil
}

// inspector builds an inspector and the analyzer it decodes input with.
// Both share one converter so decoded classes resolve as symbols.
func (a *app) inspector(w io.Writer, collector *metrics.Collector) (*refscope.Inspector, *heuristics.Analyzer, error) {
	opts, err := a.formatOptions(w)
	if err != nil {
		return nil, nil, err
	}
	conv := host.New(host.WithLogger(a.logger))
	an := heuristics.New(conv.Symbols(), conv.Symbols())
	in := refscope.New(
		refscope.WithConfig(a.cfg),
		refscope.WithConverter(conv),
		refscope.WithAnalyzer(an),
		refscope.WithMetrics(collector),
		refscope.WithLogger(a.logger),
		refscope.WithFormat(a.format, opts...),
	)
	return in, an, nil
}

// readInput reads a named file, or stdin for "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
