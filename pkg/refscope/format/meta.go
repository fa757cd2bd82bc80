package format

import (
	"encoding/json"
)

// Meta is the tooltip attached to a text.
type Meta struct {
	Title       string    `json:"title,omitempty"`
	Left        string    `json:"left,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []MetaTag `json:"tags,omitempty"`
	Sub         []SubLine `json:"sub,omitempty"`
}

type MetaTag struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// SubLine is a label/value row under the tooltip body, such as
// "Defined in" / "ledger.go:12".
type SubLine struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Hint is a tooltip that only carries a title.
func Hint(title string) *Meta {
	return &Meta{Title: title}
}

func (m *Meta) Empty() bool {
	return m == nil || (m.Title == "" && m.Left == "" && m.Description == "" && len(m.Tags) == 0 && len(m.Sub) == 0)
}

// AddSub appends a sub line and returns m for chaining.
func (m *Meta) AddSub(label, value string) *Meta {
	m.Sub = append(m.Sub, SubLine{Label: label, Value: value})
	return m
}

func (m *Meta) key() string {
	b, err := json.Marshal(m)
	if err != nil {
		return m.Title
	}
	return string(b)
}

// Tips holds each distinct tooltip once; texts refer to it by index.
type Tips struct {
	index map[string]int
	list  []*Meta
}

// Ref returns the index of m, adding it on first sight. Empty metadata
// has no tooltip and yields -1.
func (t *Tips) Ref(m *Meta) int {
	if m.Empty() {
		return -1
	}
	if t.index == nil {
		t.index = make(map[string]int)
	}
	k := m.key()
	if i, ok := t.index[k]; ok {
		return i
	}
	t.list = append(t.list, m)
	t.index[k] = len(t.list) - 1
	return len(t.list) - 1
}

func (t *Tips) List() []*Meta { return t.list }
func (t *Tips) Len() int      { return len(t.list) }

func (t *Tips) Reset() {
	t.index = nil
	t.list = nil
}
