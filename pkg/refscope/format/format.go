// Package format defines the rendering protocol the inspector drives and
// the concrete renderers: HTML spans, an indented terminal tree and a raw
// event recorder.
package format

import (
	"fmt"
	"io"
	"log/slog"
)

// Limits bound a single render.
type Limits struct {
	// MaxDepth caps group nesting; 0 means unlimited.
	MaxDepth int
	// ExpandLevel marks groups up to this level as initially expanded;
	// negative expands everything.
	ExpandLevel int
}

// Tags classify a text or container. The first tag is the primary one.
type Tags []string

func Tag(tags ...string) Tags { return Tags(tags) }

func (t Tags) Primary() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

func (t Tags) Has(tag string) bool {
	for _, x := range t {
		if x == tag {
			return true
		}
	}
	return false
}

// Bubble is a one-letter modifier badge such as "A" for abstract.
type Bubble struct {
	Letter string `json:"letter"`
	Title  string `json:"title"`
}

type Formatter interface {
	StartRoot(limits Limits)
	EndRoot()
	StartExpression()
	EndExpression()

	Text(tags Tags, text string, meta *Meta, link string)
	StartContainer(tags Tags, label bool)
	EndContainer()

	// StartGroup opens a nested group. It returns false, after emitting a
	// "..." placeholder, when the group would exceed the depth limit.
	StartGroup(label string) bool
	EndGroup()
	EmptyGroup(label string)
	SectionTitle(title string)

	StartRow()
	EndRow()
	ColumnDivider(pad int)
	Sep(label string)
	Bubbles(bubbles []Bubble)

	// DidCache reports whether the output for key was replayed. A false
	// return opens a recording for key that CacheLock closes.
	DidCache(key string) bool
	CacheLock(key string)

	Flush() error
}

// Base implements every method as a no-op so renderers only override what
// they draw.
type Base struct{}

func (Base) StartRoot(Limits)                 {}
func (Base) EndRoot()                         {}
func (Base) StartExpression()                 {}
func (Base) EndExpression()                   {}
func (Base) Text(Tags, string, *Meta, string) {}
func (Base) StartContainer(Tags, bool)        {}
func (Base) EndContainer()                    {}
func (Base) StartGroup(string) bool           { return true }
func (Base) EndGroup()                        {}
func (Base) EmptyGroup(string)                {}
func (Base) SectionTitle(string)              {}
func (Base) StartRow()                        {}
func (Base) EndRow()                          {}
func (Base) ColumnDivider(int)                {}
func (Base) Sep(string)                       {}
func (Base) Bubbles([]Bubble)                 {}
func (Base) DidCache(string) bool             { return false }
func (Base) CacheLock(string)                 {}
func (Base) Flush() error                     { return nil }

type options struct {
	logger *slog.Logger
	color  bool
	assets *bool
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithColor turns on terminal styling in the text renderer.
func WithColor(on bool) Option {
	return func(o *options) { o.color = on }
}

// WithAssets forces the HTML renderer to include (or omit) its stylesheet.
// By default it is included with the first document of the process.
func WithAssets(on bool) Option {
	return func(o *options) { o.assets = &on }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Names lists the renderers New understands.
var Names = []string{"html", "text", "events"}

// New builds a renderer by name writing to w.
func New(name string, w io.Writer, opts ...Option) (Formatter, error) {
	switch name {
	case "html":
		return NewHTML(w, opts...), nil
	case "text", "":
		return NewText(w, opts...), nil
	case "events":
		return NewRecorder(w, opts...), nil
	default:
		return nil, fmt.Errorf("unknown format %q (valid formats: %v)", name, Names)
	}
}
