package refscope

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/chosenoffset/refscope/pkg/refscope/config"
	"github.com/chosenoffset/refscope/pkg/refscope/format"
	"github.com/chosenoffset/refscope/pkg/refscope/heuristics"
	"github.com/chosenoffset/refscope/pkg/refscope/host"
	"github.com/chosenoffset/refscope/pkg/refscope/metrics"
	"github.com/chosenoffset/refscope/pkg/refscope/sink"
)

// Inspector renders values. It is safe for concurrent use: every query
// builds its own render state.
type Inspector struct {
	mu     sync.RWMutex
	cfg    config.Config
	format string
	opts   []format.Option

	converter *host.Converter
	analyzer  *heuristics.Analyzer
	metrics   *metrics.Collector
	sinks     *sink.Registry
	logger    *slog.Logger

	sequence atomic.Uint64
	timer    timer
}

type Option func(*Inspector)

func WithConfig(cfg config.Config) Option {
	return func(in *Inspector) { in.cfg = cfg }
}

// WithConverter shares a converter, and with it the symbol table and type
// registrations, with the inspector.
func WithConverter(c *host.Converter) Option {
	return func(in *Inspector) { in.converter = c }
}

func WithAnalyzer(a *heuristics.Analyzer) Option {
	return func(in *Inspector) { in.analyzer = a }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(in *Inspector) { in.metrics = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(in *Inspector) { in.logger = logger }
}

// WithFormat selects the renderer Publish uses. The default is html.
func WithFormat(name string, opts ...format.Option) Option {
	return func(in *Inspector) {
		in.format = name
		in.opts = opts
	}
}

func New(opts ...Option) *Inspector {
	in := &Inspector{
		cfg:    config.Default(),
		format: "html",
		sinks:  sink.NewRegistry(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.converter == nil {
		in.converter = host.New(host.WithLogger(in.logger))
	}
	if in.analyzer == nil {
		in.analyzer = heuristics.New(in.converter.Symbols(), nil)
	}
	in.sinks.Observe(in.metrics.ObserveDelivery)
	return in
}

func (in *Inspector) Config() config.Config {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.cfg
}

// SetConfig validates cfg and applies it to later queries.
func (in *Inspector) SetConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.cfg = cfg
	return nil
}

// Configure applies option key/value pairs over the current config.
func (in *Inspector) Configure(opts map[string]any) error {
	cfg := in.Config()
	for k, v := range opts {
		if err := cfg.Set(k, v); err != nil {
			return err
		}
	}
	return in.SetConfig(cfg)
}

func (in *Inspector) Converter() *host.Converter  { return in.converter }
func (in *Inspector) Sinks() *sink.Registry       { return in.sinks }
func (in *Inspector) Metrics() *metrics.Collector { return in.metrics }

func (in *Inspector) RegisterSink(name string, s sink.Sink) {
	in.sinks.Register(name, s)
}

// Time reports the accumulated time spent in queries.
func (in *Inspector) Time() Timing {
	return in.timer.timing()
}

// Query renders subject into f and flushes it. The expression, when not
// empty, is echoed above the value. The returned error comes from Flush;
// rendering itself does not fail.
func (in *Inspector) Query(f format.Formatter, subject any, expression string) error {
	return in.query(f, subject, expression, caller(2))
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

func formatName(f format.Formatter) string {
	switch f.(type) {
	case *format.HTMLFormatter:
		return "html"
	case *format.TextFormatter:
		return "text"
	case *format.Recorder:
		return "events"
	default:
		return "custom"
	}
}

type cached interface {
	Cache() *format.Cache
}

func (in *Inspector) query(f format.Formatter, subject any, expression, from string) error {
	s := in.timer.start()
	cfg := in.Config()
	v := in.converter.Convert(subject)

	c := newRenderContext(in, f, cfg)
	f.StartRoot(format.Limits{MaxDepth: cfg.MaxDepth, ExpandLevel: cfg.ExpandLevel})
	if expression != "" {
		f.StartExpression()
		c.expression(expression, from)
		f.EndExpression()
	}
	c.evaluate(v, false)
	f.EndRoot()

	if fc, ok := f.(cached); ok {
		in.metrics.ObserveCache(fc.Cache().Stats())
	}
	err := f.Flush()
	elapsed := in.timer.stop(s)
	in.metrics.ObserveQuery(formatName(f), elapsed)
	if err != nil {
		in.logger.Error("failed to flush query", "format", formatName(f), "error", err)
		return fmt.Errorf("failed to flush %s output: %w", formatName(f), err)
	}
	in.logger.Debug("query rendered", "format", formatName(f), "expression", expression, "duration", elapsed)
	return nil
}

// Render renders subject with the configured format and returns the output.
func (in *Inspector) Render(subject any, expression string) (string, error) {
	return in.render(subject, expression, caller(2))
}

func (in *Inspector) render(subject any, expression, from string) (string, error) {
	var buf bytes.Buffer
	f, err := format.New(in.format, &buf, append([]format.Option{format.WithLogger(in.logger)}, in.opts...)...)
	if err != nil {
		return "", err
	}
	if err := in.query(f, subject, expression, from); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Publish renders subject and delivers the document to every registered
// sink. Sink failures are joined into the returned error.
func (in *Inspector) Publish(subject any, expression string, tags ...string) (sink.Document, error) {
	body, err := in.render(subject, expression, caller(2))
	if err != nil {
		return sink.Document{}, err
	}
	doc := sink.NewDocument(in.format, expression, body, tags...)
	doc.Sequence = in.sequence.Add(1)
	if err := in.sinks.Deliver(doc); err != nil {
		in.logger.Warn("document delivery failed", "document_id", doc.ID.String(), "error", err)
		return doc, err
	}
	return doc, nil
}
