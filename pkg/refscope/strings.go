package refscope

import (
	"fmt"
	"unicode/utf8"

	"github.com/chosenoffset/refscope/pkg/refscope/format"
	"github.com/chosenoffset/refscope/pkg/refscope/heuristics"
	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

func (c *renderContext) str(s *value.String, special bool) {
	hint := fmt.Sprintf("string(%d)", utf8.RuneCountInString(s.Value))
	if s.Multibyte() {
		hint = fmt.Sprintf("string(%d; UTF-8)", utf8.RuneCountInString(s.Value))
	}
	if special {
		c.f.Sep(`"`)
		c.f.Text(format.Tag("string", "special"), s.Value, format.Hint(hint), "")
		c.f.Sep(`"`)
		return
	}
	c.f.Text(format.Tag("string"), s.Value, format.Hint(hint), "")
	if c.cfg.ShowStringMatches && c.plain == 0 {
		c.matches(s.Value)
	}
}

// matches renders every secondary reading of s in its own labeled
// container. Decoded payloads render as values, inside the nesting guards.
func (c *renderContext) matches(s string) {
	for _, m := range c.analyzer.Analyze(s, c.guards) {
		c.metrics.ObserveMatch(string(m.Kind))
		c.f.StartContainer(format.Tag(string(m.Kind)), true)
		switch m.Kind {
		case heuristics.KindFile, heuristics.KindDate:
			c.f.Text(format.Tag(string(m.Kind)), m.Text, nil, "")
		case heuristics.KindClass:
			c.typeHeader(m.Type, false)
		case heuristics.KindInterface:
			c.typeHeader(m.Type, true)
		case heuristics.KindFunction:
			c.methodHeader(m.Func, nil)
		case heuristics.KindSerialized:
			c.guards.Serialized++
			c.evaluate(m.Value, false)
			c.guards.Serialized--
		case heuristics.KindJSON:
			c.guards.JSON++
			c.evaluate(m.Value, false)
			c.guards.JSON--
		case heuristics.KindRegex:
			for _, tok := range m.Tokens {
				c.f.Text(format.Tag("regex-"+tok.Class()), tok.Literal, nil, "")
			}
		}
		c.f.EndContainer()
	}
}
