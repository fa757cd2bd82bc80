package format

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

type EventKind uint8

const (
	EventStartRoot EventKind = iota
	EventEndRoot
	EventStartExpression
	EventEndExpression
	EventText
	EventStartContainer
	EventEndContainer
	EventStartGroup
	EventEndGroup
	EventEmptyGroup
	EventSectionTitle
	EventStartRow
	EventEndRow
	EventColumnDivider
	EventSep
	EventBubbles
)

var eventNames = [...]string{
	EventStartRoot:       "start_root",
	EventEndRoot:         "end_root",
	EventStartExpression: "start_expression",
	EventEndExpression:   "end_expression",
	EventText:            "text",
	EventStartContainer:  "start_container",
	EventEndContainer:    "end_container",
	EventStartGroup:      "start_group",
	EventEndGroup:        "end_group",
	EventEmptyGroup:      "empty_group",
	EventSectionTitle:    "section_title",
	EventStartRow:        "start_row",
	EventEndRow:          "end_row",
	EventColumnDivider:   "column_divider",
	EventSep:             "sep",
	EventBubbles:         "bubbles",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("event(%d)", k)
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(b []byte) error {
	for i, name := range eventNames {
		if name == string(b) {
			*k = EventKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", b)
}

// Event is one formatter call. Text carries the text, label or separator;
// Tip indexes the tooltip table, -1 when absent.
type Event struct {
	Kind    EventKind `json:"kind"`
	Tags    Tags      `json:"tags,omitempty"`
	Text    string    `json:"text,omitempty"`
	Tip     int       `json:"tip"`
	Link    string    `json:"link,omitempty"`
	Pad     int       `json:"pad,omitempty"`
	Label   bool      `json:"label,omitempty"`
	Expand  bool      `json:"expand,omitempty"`
	Bubbles []Bubble  `json:"bubbles,omitempty"`
}

// Recording is the flushed form of a Recorder.
type Recording struct {
	Events []Event `json:"events"`
	Tips   []*Meta `json:"tips"`
}

// Recorder keeps the ordered event stream. It backs the text renderer and
// is written out as JSON by Flush when it has a writer.
type Recorder struct {
	w      io.Writer
	events []Event
	tips   Tips
	cache  *Cache
	limits Limits
	level  int
	logger *slog.Logger
}

func NewRecorder(w io.Writer, opts ...Option) *Recorder {
	o := buildOptions(opts)
	return &Recorder{
		w:      w,
		cache:  NewCache(o.logger),
		logger: o.logger,
	}
}

func (r *Recorder) push(e Event) {
	if e.Kind != EventText {
		e.Tip = -1
	}
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event { return r.events }
func (r *Recorder) Tips() []*Meta   { return r.tips.List() }
func (r *Recorder) Level() int      { return r.level }
func (r *Recorder) Cache() *Cache   { return r.cache }

func (r *Recorder) StartRoot(limits Limits) {
	r.limits = limits
	r.level = 0
	r.cache.Reset()
	r.push(Event{Kind: EventStartRoot})
}

func (r *Recorder) EndRoot()         { r.push(Event{Kind: EventEndRoot}) }
func (r *Recorder) StartExpression() { r.push(Event{Kind: EventStartExpression}) }
func (r *Recorder) EndExpression()   { r.push(Event{Kind: EventEndExpression}) }

func (r *Recorder) Text(tags Tags, text string, meta *Meta, link string) {
	r.events = append(r.events, Event{
		Kind: EventText,
		Tags: tags,
		Text: text,
		Tip:  r.tips.Ref(meta),
		Link: link,
	})
}

func (r *Recorder) StartContainer(tags Tags, label bool) {
	r.push(Event{Kind: EventStartContainer, Tags: tags, Label: label})
}

func (r *Recorder) EndContainer() { r.push(Event{Kind: EventEndContainer}) }

func (r *Recorder) StartGroup(label string) bool {
	if r.limits.MaxDepth > 0 && r.level+1 > r.limits.MaxDepth {
		r.EmptyGroup("...")
		r.cache.Cut()
		return false
	}
	r.level++
	r.cache.Observe(r.level)
	exp := r.limits.ExpandLevel < 0 || (r.limits.ExpandLevel > 0 && r.level <= r.limits.ExpandLevel)
	r.push(Event{Kind: EventStartGroup, Text: label, Expand: exp})
	return true
}

func (r *Recorder) EndGroup() {
	r.push(Event{Kind: EventEndGroup})
	r.level--
}

func (r *Recorder) EmptyGroup(label string) {
	r.push(Event{Kind: EventEmptyGroup, Text: label})
}

func (r *Recorder) SectionTitle(title string) {
	r.push(Event{Kind: EventSectionTitle, Text: title})
}

func (r *Recorder) StartRow() { r.push(Event{Kind: EventStartRow}) }
func (r *Recorder) EndRow()   { r.push(Event{Kind: EventEndRow}) }

func (r *Recorder) ColumnDivider(pad int) {
	r.push(Event{Kind: EventColumnDivider, Pad: pad})
}

func (r *Recorder) Sep(label string) {
	r.push(Event{Kind: EventSep, Text: label})
}

func (r *Recorder) Bubbles(bubbles []Bubble) {
	if len(bubbles) == 0 {
		return
	}
	r.push(Event{Kind: EventBubbles, Bubbles: bubbles})
}

func (r *Recorder) DidCache(key string) bool {
	start, n, hit := r.cache.Lookup(key, len(r.events), r.level, r.limits.MaxDepth)
	if hit {
		r.events = append(r.events, r.events[start:start+n]...)
	}
	return hit
}

func (r *Recorder) CacheLock(key string) {
	_ = r.cache.Lock(key, len(r.events))
}

// Recording returns the events and tooltips captured so far.
func (r *Recorder) Recording() Recording {
	return Recording{Events: r.events, Tips: r.tips.List()}
}

// Flush writes the recording as JSON, when the recorder has a writer, and
// clears it.
func (r *Recorder) Flush() error {
	defer r.reset()
	if r.w == nil {
		return nil
	}
	if err := json.NewEncoder(r.w).Encode(r.Recording()); err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}
	return nil
}

func (r *Recorder) reset() {
	r.events = nil
	r.tips.Reset()
	r.cache.Reset()
	r.level = 0
}
