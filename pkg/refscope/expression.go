package refscope

import (
	"strings"
	"unicode/utf8"

	"github.com/chosenoffset/refscope/pkg/refscope/format"
)

const maxExpressionLength = 120

// expression echoes the source expression of a query. A call or composite
// literal whose symbol is known renders that symbol as a linked header.
func (c *renderContext) expression(expr, caller string) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return
	}
	if utf8.RuneCountInString(expr) > maxExpressionLength {
		expr = string([]rune(expr)[:maxExpressionLength]) + "..."
	}
	c.f.Sep("> ")

	cut := strings.IndexAny(expr, "({")
	if cut <= 0 {
		var meta *format.Meta
		if caller != "" {
			meta = (&format.Meta{}).AddSub("Called from", caller)
		}
		c.f.Text(format.Tag("expTxt"), expr, meta, "")
		return
	}
	c.symbol(expr[:cut])
	c.f.Text(format.Tag("expTxt"), expr[cut:], nil, "")
}

// symbol renders the callee of an expression: "new T", "&T", "pkg.Func"
// or "T.Method".
func (c *renderContext) symbol(head string) {
	name := strings.TrimSpace(head)
	for _, prefix := range []string{"new ", "&"} {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if td, ok := c.symbols.LookupType(strings.TrimSpace(name[len(prefix):])); ok {
			c.f.Text(format.Tag("expTxt"), prefix, nil, "")
			c.typeHeader(td, true)
			return
		}
		c.f.Text(format.Tag("expTxt"), head, nil, "")
		return
	}

	if fn, ok := c.symbols.LookupFunc(name); ok {
		c.methodHeader(fn, nil)
		return
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		if td, ok := c.symbols.LookupType(name[:i]); ok {
			if m, ok := td.Method(name[i+1:]); ok {
				c.typeHeader(td, true)
				c.f.Sep(".")
				c.methodHeader(m, td)
				return
			}
		}
	}
	c.f.Text(format.Tag("expTxt"), head, nil, "")
}
