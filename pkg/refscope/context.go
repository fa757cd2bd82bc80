package refscope

import (
	"log/slog"

	"github.com/chosenoffset/refscope/pkg/refscope/config"
	"github.com/chosenoffset/refscope/pkg/refscope/format"
	"github.com/chosenoffset/refscope/pkg/refscope/heuristics"
	"github.com/chosenoffset/refscope/pkg/refscope/metrics"
	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

// renderContext is the state of one query. It is shared by every nested
// render of that query, parameter defaults and decoded payloads included,
// and dropped when the query ends.
type renderContext struct {
	f        format.Formatter
	cfg      config.Config
	symbols  heuristics.SymbolTable
	analyzer *heuristics.Analyzer
	metrics  *metrics.Collector
	logger   *slog.Logger

	// visited holds the objects currently being expanded
	visited map[value.Identity]bool
	// active holds the sequences on the path from the root
	active map[*value.Sequence]bool
	guards heuristics.Guards
	// plain counts the renders that skip string heuristics
	plain int
}

func newRenderContext(in *Inspector, f format.Formatter, cfg config.Config) *renderContext {
	return &renderContext{
		f:        f,
		cfg:      cfg,
		symbols:  in.converter.Symbols(),
		analyzer: in.analyzer,
		metrics:  in.metrics,
		logger:   in.logger,
		visited:  make(map[value.Identity]bool),
		active:   make(map[*value.Sequence]bool),
	}
}

// enter marks obj as being expanded. It reports false when obj already is,
// which means the graph loops back to it.
func (c *renderContext) enter(obj *value.Object) bool {
	if c.visited[obj.ID] {
		return false
	}
	c.visited[obj.ID] = true
	return true
}

func (c *renderContext) leave(obj *value.Object) {
	delete(c.visited, obj.ID)
}

// enterSequence is enter for sequences, keyed by the share handle.
func (c *renderContext) enterSequence(s *value.Sequence) bool {
	if c.active[s] {
		return false
	}
	c.active[s] = true
	return true
}

func (c *renderContext) leaveSequence(s *value.Sequence) {
	delete(c.active, s)
}
