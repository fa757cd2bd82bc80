package refscope

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/chosenoffset/refscope/pkg/refscope/docblock"
	"github.com/chosenoffset/refscope/pkg/refscope/format"
	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

// evaluate renders v. Special renders strings in their quoted form, as used
// for parameter defaults.
func (c *renderContext) evaluate(v value.Value, special bool) {
	switch v := v.(type) {
	case nil, *value.Null:
		c.f.Text(format.Tag("null"), "null", nil, "")
	case *value.Bool:
		c.f.Text(format.Tag(v.Inspect()), v.Inspect(), format.Hint("boolean"), "")
	case *value.Int:
		c.f.Text(format.Tag("integer"), v.Inspect(), format.Hint("integer"), "")
	case *value.Float:
		c.f.Text(format.Tag("double"), v.Inspect(), format.Hint("double"), "")
	case *value.String:
		c.str(v, special)
	case *value.Sequence:
		c.sequence(v, special)
	case *value.Object:
		c.object(v)
	case *value.Resource:
		c.resource(v)
	default:
		c.logger.Warn("unsupported value", "type", fmt.Sprintf("%T", v))
		c.f.Text(format.Tag("unknown"), v.Inspect(), nil, "")
	}
}

func (c *renderContext) sequence(s *value.Sequence, special bool) {
	entries := s.Entries()
	c.f.Text(format.Tag("array"), "array", nil, "")
	if len(entries) == 0 {
		c.f.EmptyGroup("")
		return
	}
	if !c.enterSequence(s) {
		c.f.EmptyGroup("recursion")
		return
	}
	defer c.leaveSequence(s)

	if !c.f.StartGroup(strconv.Itoa(len(entries))) {
		return
	}
	c.rows(entries, format.Tag("key"), "Key", special)
	c.f.EndGroup()
}

// rows renders "key => value" rows with keys padded to the widest one.
func (c *renderContext) rows(entries []value.Entry, keyTags format.Tags, keyTitle string, special bool) {
	width := 0
	for _, e := range entries {
		width = max(width, keyWidth(e.Key))
	}
	for _, e := range entries {
		c.f.StartRow()
		c.f.Text(keyTags, e.Key.String(), format.Hint(keyTitle+": "+keyType(e.Key)), "")
		c.f.ColumnDivider(width - keyWidth(e.Key))
		c.f.Sep("=>")
		c.f.ColumnDivider(0)
		c.evaluate(e.Value, special)
		c.f.EndRow()
	}
}

func keyWidth(k value.Key) int {
	return utf8.RuneCountInString(k.String())
}

func keyType(k value.Key) string {
	if k.IsString() {
		return fmt.Sprintf("string(%d)", keyWidth(k))
	}
	return "integer"
}

// members is what an object shows besides its header.
type members struct {
	contents   []value.Entry
	interfaces []*value.TypeDescriptor
	traits     []*value.TypeDescriptor
	constants  []value.Constant
	props      []value.Attribute
	methods    []value.Method
}

func (m members) empty() bool {
	return len(m.contents) == 0 && len(m.interfaces) == 0 && len(m.traits) == 0 &&
		len(m.constants) == 0 && len(m.props) == 0 && len(m.methods) == 0
}

func (c *renderContext) visible(vis value.Visibility) bool {
	return vis == value.Public || c.cfg.ShowPrivate
}

func (c *renderContext) members(obj *value.Object) members {
	var m members
	if c.cfg.ShowIteratorContents && obj.Iterate != nil {
		m.contents = obj.Iterate()
	}
	for _, a := range obj.Attributes() {
		if c.visible(a.Visibility) {
			m.props = append(m.props, a)
		}
	}
	td := obj.Class
	if td == nil {
		return m
	}
	m.interfaces = td.Interfaces
	m.traits = td.Traits
	m.constants = td.Constants
	if c.cfg.ShowMethods {
		for _, method := range td.Methods {
			if c.visible(method.Visibility) {
				m.methods = append(m.methods, method)
			}
		}
	}
	return m
}

func (c *renderContext) object(obj *value.Object) {
	if obj.Incomplete {
		c.f.Text(format.Tag("object"), "object", nil, "")
		c.f.EmptyGroup("incomplete")
		return
	}

	key := "obj|" + obj.ID.Key()
	recursion := c.visited[obj.ID]
	if !recursion && c.f.DidCache(key) {
		return
	}
	c.objectHeader(obj)
	if recursion {
		c.f.EmptyGroup("recursion")
		return
	}

	c.enter(obj)
	defer c.leave(obj)

	m := c.members(obj)
	if m.empty() {
		c.f.EmptyGroup("")
		c.f.CacheLock(key)
		return
	}
	// a truncated render stays unlocked so a shallower encounter renders
	// it in full
	if !c.f.StartGroup("") {
		return
	}

	if len(m.contents) > 0 {
		c.f.SectionTitle(fmt.Sprintf("Contents (%d)", len(m.contents)))
		c.rows(m.contents, format.Tag("key", "iterator"), "Iterator key", false)
	}
	if len(m.interfaces) > 0 {
		c.f.SectionTitle("Implements")
		c.typeList("interfaces", m.interfaces)
	}
	if len(m.traits) > 0 {
		c.f.SectionTitle("Uses")
		c.typeList("traits", m.traits)
	}
	if len(m.constants) > 0 {
		c.f.SectionTitle("Constants")
		c.constants(obj.Class, m.constants)
	}
	if len(m.props) > 0 {
		c.f.SectionTitle("Properties")
		c.properties(obj.Class, m.props)
	}
	if len(m.methods) > 0 {
		c.f.SectionTitle("Methods")
		c.methods(obj.Class, m.methods)
	}

	c.f.EndGroup()
	c.f.CacheLock(key)
}

func (c *renderContext) objectHeader(obj *value.Object) {
	if obj.Class == nil {
		c.f.Text(format.Tag("object"), "object", nil, "")
		return
	}
	c.f.StartContainer(format.Tag("class"), false)
	c.typeHeader(obj.Class, false)
	c.f.EndContainer()
	c.f.Text(format.Tag("object"), " object", nil, "")
}

func (c *renderContext) typeList(tag string, types []*value.TypeDescriptor) {
	c.f.StartRow()
	c.f.StartContainer(format.Tag(tag), false)
	for i, td := range types {
		if i > 0 {
			c.f.Sep(", ")
		}
		c.typeHeader(td, false)
	}
	c.f.EndContainer()
	c.f.EndRow()
}

func memberSep(static bool) string {
	if static {
		return "::"
	}
	return "->"
}

func visibilityTags(tags format.Tags, vis value.Visibility) format.Tags {
	switch vis {
	case value.Private:
		return append(tags, "private")
	case value.Protected:
		return append(tags, "protected")
	}
	return tags
}

func visibilityBubbles(bubbles []format.Bubble, vis value.Visibility) []format.Bubble {
	switch vis {
	case value.Private:
		return append(bubbles, format.Bubble{Letter: "!", Title: "Private"})
	case value.Protected:
		return append(bubbles, format.Bubble{Letter: "P", Title: "Protected"})
	}
	return bubbles
}

func memberLink(class *value.TypeDescriptor, name string) string {
	if class == nil || !class.IsInternal() || class.Link == "" {
		return ""
	}
	return class.Link + "." + name
}

func (c *renderContext) constants(class *value.TypeDescriptor, consts []value.Constant) {
	width := 0
	for _, k := range consts {
		width = max(width, utf8.RuneCountInString(k.Name))
	}
	for _, k := range consts {
		tags := format.Tag("const")
		var meta *format.Meta
		if k.DeclaredBy != nil && k.DeclaredBy != class {
			tags = append(tags, "inherited")
			meta = (&format.Meta{}).AddSub("Prototype defined by", k.DeclaredBy.Name)
		}
		c.f.StartRow()
		c.f.Sep("::")
		c.f.ColumnDivider(0)
		c.f.StartContainer(tags, false)
		c.f.Text(format.Tag("name"), k.Name, meta, "")
		c.f.EndContainer()
		c.f.ColumnDivider(width - utf8.RuneCountInString(k.Name))
		c.f.Sep("=")
		c.f.ColumnDivider(0)
		c.evaluate(k.Value, false)
		c.f.EndRow()
	}
}

func propertyMeta(class *value.TypeDescriptor, p value.Property) *format.Meta {
	doc := docblock.Parse(p.Doc)
	m := docMeta(doc)
	if tag, ok := doc.First("var"); ok {
		m.Left = tag.Type
	}
	if p.DeclaredBy != nil && p.DeclaredBy != class {
		m.AddSub("Declared in", p.DeclaredBy.Name)
	}
	return m
}

func (c *renderContext) properties(class *value.TypeDescriptor, attrs []value.Attribute) {
	width := 0
	for _, a := range attrs {
		width = max(width, utf8.RuneCountInString(a.Name))
	}
	for _, a := range attrs {
		p, ok := class.Property(a.Name)
		if !ok {
			p = value.Property{Name: a.Name, Visibility: a.Visibility}
		}
		tags := format.Tag("prop")
		if p.DeclaredBy != nil && p.DeclaredBy != class {
			tags = append(tags, "inherited")
		}
		tags = visibilityTags(tags, a.Visibility)
		bubbles := visibilityBubbles(nil, a.Visibility)

		c.f.StartRow()
		c.f.Sep(memberSep(p.Static))
		c.f.ColumnDivider(0)
		c.f.Bubbles(bubbles)
		c.f.ColumnDivider(1 - len(bubbles))
		c.f.StartContainer(tags, false)
		c.f.Text(format.Tag("name"), a.Name, propertyMeta(class, p), memberLink(class, a.Name))
		c.f.EndContainer()
		c.f.ColumnDivider(width - utf8.RuneCountInString(a.Name))
		c.f.Sep("=")
		c.f.ColumnDivider(0)
		c.evaluate(a.Value, false)
		c.f.EndRow()
	}
}

func (c *renderContext) methods(class *value.TypeDescriptor, methods []value.Method) {
	for i := range methods {
		m := &methods[i]
		var bubbles []format.Bubble
		switch {
		case m.Abstract:
			bubbles = append(bubbles, format.Bubble{Letter: "A", Title: "Abstract"})
		case m.Final:
			bubbles = append(bubbles, format.Bubble{Letter: "F", Title: "Final"})
		}
		bubbles = visibilityBubbles(bubbles, m.Visibility)

		tags := format.Tag("method")
		if m.DeclaredBy != nil && m.DeclaredBy != class {
			tags = append(tags, "inherited")
		}
		tags = visibilityTags(tags, m.Visibility)

		c.f.StartRow()
		c.f.Sep(memberSep(m.Static))
		c.f.ColumnDivider(0)
		c.f.Bubbles(bubbles)
		c.f.ColumnDivider(2 - len(bubbles))
		c.f.StartContainer(tags, false)
		c.methodHeader(m, class)
		c.f.EndContainer()
		c.params(m)
		c.f.EndRow()
	}
}

// params renders "(name type, name type = default)".
func (c *renderContext) params(m *value.Method) {
	doc := docblock.Parse(m.Doc)
	c.f.Sep("(")
	for i, p := range m.Params {
		if i > 0 {
			c.f.Sep(", ")
		}
		tags := format.Tag("param")
		if p.Optional {
			tags = append(tags, "optional")
		}
		c.f.StartContainer(tags, false)

		name := p.Name
		if p.ByRef {
			name = "&" + name
		}
		c.f.Text(format.Tag("name"), name, paramMeta(doc, p.Name), "")

		switch {
		case p.Hint != nil:
			c.f.Sep(" ")
			c.f.StartContainer(format.Tag("hint"), false)
			c.typeHeader(p.Hint, true)
			c.f.EndContainer()
		case p.HintName != "":
			c.f.Sep(" ")
			c.f.Text(format.Tag("hint"), p.HintName, nil, "")
		}

		if p.Optional && !p.Variadic {
			c.f.Sep(" = ")
			if p.DefaultConst != "" {
				c.f.Text(format.Tag("constant"), p.DefaultConst, format.Hint("Constant"), "")
			} else {
				d := p.Default
				if d == nil {
					d = value.NullValue
				}
				c.evaluate(d, true)
			}
		}
		c.f.EndContainer()
	}
	c.f.Sep(")")
}

func paramMeta(doc *docblock.Comment, name string) *format.Meta {
	if doc == nil {
		return nil
	}
	for _, tag := range doc.Tags["param"] {
		if strings.TrimLeft(tag.Name, "$&") == name {
			return &format.Meta{Title: tag.Description, Left: tag.Type}
		}
	}
	return nil
}
