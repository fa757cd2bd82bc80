package refscope

import (
	"fmt"
	"path/filepath"

	"github.com/chosenoffset/refscope/pkg/refscope/docblock"
	"github.com/chosenoffset/refscope/pkg/refscope/format"
	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

// typeHeader renders the lineage of td root first, each ancestor a linked
// name, or td alone when single is set.
func (c *renderContext) typeHeader(td *value.TypeDescriptor, single bool) {
	key := fmt.Sprintf("hdr|%p|%t", td, single)
	if c.f.DidCache(key) {
		return
	}
	chain := td.Lineage()
	if single {
		chain = chain[len(chain)-1:]
	}
	for i, t := range chain {
		if i > 0 {
			c.f.Sep(" :: ")
		}
		c.typeName(t, single)
	}
	c.f.CacheLock(key)
}

func (c *renderContext) typeName(t *value.TypeDescriptor, single bool) {
	var bubbles []format.Bubble
	switch {
	case t.IsInterface():
		if single {
			bubbles = append(bubbles, format.Bubble{Letter: "I", Title: "Interface"})
		}
	case t.IsTrait():
	default:
		if t.Is(value.Abstract) {
			bubbles = append(bubbles, format.Bubble{Letter: "A", Title: "Abstract"})
		}
		if t.Is(value.Final) {
			bubbles = append(bubbles, format.Bubble{Letter: "F", Title: "Final"})
		}
		if t.Is(value.Cloneable) {
			bubbles = append(bubbles, format.Bubble{Letter: "C", Title: "Cloneable"})
		}
		if t.Is(value.Iterable) {
			bubbles = append(bubbles, format.Bubble{Letter: "X", Title: "Iterable"})
		}
	}
	c.f.Bubbles(bubbles)

	name := t.Name
	if t.IsInterface() && !single {
		name = fmt.Sprintf("%s (%d)", name, len(t.Methods))
	}
	c.f.Text(format.Tag("name"), name, typeMeta(t), t.Link)
}

func internalMeta(pkg string) *format.Meta {
	if pkg == "" {
		return format.Hint("Internal")
	}
	return format.Hint("Internal - part of " + pkg)
}

func typeMeta(t *value.TypeDescriptor) *format.Meta {
	if t.IsInternal() {
		return internalMeta(t.Package)
	}
	m := docMeta(docblock.Parse(t.Doc))
	if t.File != "" {
		m.AddSub("Defined in", fmt.Sprintf("%s:%d", filepath.Base(t.File), t.Line))
	}
	return m
}

// methodHeader renders the name of a method, or of a free function when
// ctx is nil. Ctx is the type the method is listed under.
func (c *renderContext) methodHeader(m *value.Method, ctx *value.TypeDescriptor) {
	key := fmt.Sprintf("hdr|%p|%s|%p", m.DeclaredBy, m.Name, ctx)
	if c.f.DidCache(key) {
		return
	}

	var meta *format.Meta
	if m.Internal {
		meta = internalMeta(m.Package)
	} else {
		meta = docMeta(docblock.Parse(m.Doc))
		if m.File != "" {
			meta.AddSub("Defined in", fmt.Sprintf("%s:%d", filepath.Base(m.File), m.Line))
		}
	}
	if ctx != nil && m.DeclaredBy != nil && m.DeclaredBy != ctx {
		meta.AddSub("Inherited from", m.DeclaredBy.Name)
	}
	if m.Prototype != nil {
		meta.AddSub("Prototype defined by", m.Prototype.Name)
	}

	name := m.Name
	if m.ReturnsRef {
		name = "&" + name
	}
	c.f.Text(format.Tag("name"), name, meta, m.Link)
	c.f.CacheLock(key)
}

// docMeta turns a parsed comment into tooltip metadata. Typed tags such as
// @param keep their type and name columns.
func docMeta(doc *docblock.Comment) *format.Meta {
	m := &format.Meta{}
	if doc == nil {
		return m
	}
	m.Title = doc.Title
	m.Description = doc.Description
	for _, name := range doc.Order {
		for _, tag := range doc.Tags[name] {
			fields := []string{tag.Description}
			if tag.Type != "" || tag.Name != "" {
				fields = []string{tag.Type, tag.Name, tag.Description}
			}
			m.Tags = append(m.Tags, format.MetaTag{Name: name, Fields: fields})
		}
	}
	return m
}
