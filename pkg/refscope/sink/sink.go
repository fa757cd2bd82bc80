// Package sink delivers rendered documents: to a terminal, to a structured
// log, to the live dashboard or to any function. A Registry fans one
// document out to every registered sink.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Document is one rendered query.
type Document struct {
	ID         uuid.UUID `json:"id"`
	Sequence   uint64    `json:"sequence"`
	Format     string    `json:"format"`
	Expression string    `json:"expression,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Body       string    `json:"body"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewDocument(format, expression, body string, tags ...string) Document {
	return Document{
		ID:         uuid.New(),
		Format:     format,
		Expression: expression,
		Tags:       tags,
		Body:       body,
		Timestamp:  time.Now(),
	}
}

type Sink interface {
	Deliver(doc Document) error
}

// Func adapts a function to a Sink.
type Func func(doc Document) error

func (f Func) Deliver(doc Document) error { return f(doc) }

// Console writes a header line followed by the body. It suits the text
// format.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Deliver(doc Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	header := fmt.Sprintf("[%s] #%d", doc.Timestamp.Format("15:04:05"), doc.Sequence)
	if doc.Expression != "" {
		header += " " + doc.Expression
	}
	if _, err := fmt.Fprintf(c.w, "%s\n%s", header, doc.Body); err != nil {
		return fmt.Errorf("console sink: %w", err)
	}
	return nil
}

// Log records document metadata, not the body.
type Log struct {
	logger *slog.Logger
	level  slog.Level
}

func NewLog(logger *slog.Logger, level slog.Level) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger, level: level}
}

func (l *Log) Deliver(doc Document) error {
	l.logger.Log(context.Background(), l.level, "document rendered",
		"document_id", doc.ID.String(),
		"sequence", doc.Sequence,
		"format", doc.Format,
		"expression", doc.Expression,
		"tags", doc.Tags,
		"bytes", len(doc.Body),
	)
	return nil
}

type entry struct {
	name string
	sink Sink
}

// Registry holds named sinks. Delivery order is registration order.
type Registry struct {
	mu      sync.RWMutex
	sinks   []entry
	observe func(name string, err error)
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Observe installs a hook called after every single delivery.
func (r *Registry) Observe(fn func(name string, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observe = fn
}

// Register adds a sink, replacing any sink of the same name.
func (r *Registry) Register(name string, s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.sinks {
		if r.sinks[i].name == name {
			r.sinks[i].sink = s
			return
		}
	}
	r.sinks = append(r.sinks, entry{name: name, sink: s})
}

func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.sinks, func(e entry) bool { return e.name == name })
	if i < 0 {
		return false
	}
	r.sinks = slices.Delete(r.sinks, i, i+1)
	return true
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.sinks))
	for i, e := range r.sinks {
		names[i] = e.name
	}
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}

// Deliver hands doc to every sink. A failing sink does not stop the
// others; their errors are joined.
func (r *Registry) Deliver(doc Document) error {
	r.mu.RLock()
	sinks := slices.Clone(r.sinks)
	observe := r.observe
	r.mu.RUnlock()

	if len(sinks) == 0 {
		return nil
	}
	var errs []error
	for _, e := range sinks {
		err := e.sink.Deliver(doc)
		if observe != nil {
			observe(e.name, err)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", e.name, err))
		}
	}
	return errors.Join(errs...)
}
