package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles is the terminal palette of the text renderer.
type Styles struct {
	String  lipgloss.Style
	Number  lipgloss.Style
	Keyword lipgloss.Style
	Key     lipgloss.Style
	Name    lipgloss.Style
	Sep     lipgloss.Style
	Marker  lipgloss.Style
	Section lipgloss.Style
	Match   lipgloss.Style
}

func DefaultStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		String:  r.NewStyle().Foreground(lipgloss.Color("114")),
		Number:  r.NewStyle().Foreground(lipgloss.Color("75")),
		Keyword: r.NewStyle().Foreground(lipgloss.Color("176")),
		Key:     r.NewStyle().Foreground(lipgloss.Color("221")),
		Name:    r.NewStyle().Bold(true),
		Sep:     r.NewStyle().Foreground(lipgloss.Color("244")),
		Marker:  r.NewStyle().Foreground(lipgloss.Color("203")),
		Section: r.NewStyle().Underline(true).Foreground(lipgloss.Color("250")),
		Match:   r.NewStyle().Faint(true).Italic(true),
	}
}

// TextFormatter draws an indented tree for terminals. It records events
// like the Recorder and lays them out on Flush, so replayed spans pick up
// the indentation of the place they are replayed at.
type TextFormatter struct {
	*Recorder
	out    io.Writer
	color  bool
	styles Styles
}

func NewText(w io.Writer, opts ...Option) *TextFormatter {
	o := buildOptions(opts)
	t := &TextFormatter{
		Recorder: NewRecorder(nil, opts...),
		out:      w,
		color:    o.color,
	}
	if o.color {
		r := lipgloss.NewRenderer(w)
		r.SetColorProfile(termenv.ANSI256)
		t.styles = DefaultStyles(r)
	}
	return t
}

// Render lays out the events recorded so far.
func (t *TextFormatter) Render() string {
	p := &textPrinter{styles: t.styles, color: t.color}
	for _, e := range t.events {
		p.event(e)
	}
	return p.b.String()
}

func (t *TextFormatter) Flush() error {
	text := t.Render()
	if err := t.Recorder.Flush(); err != nil {
		return err
	}
	if _, err := io.WriteString(t.out, text); err != nil {
		return fmt.Errorf("failed to write text output: %w", err)
	}
	return nil
}

type textPrinter struct {
	b          strings.Builder
	indent     int
	containers []bool
	styles     Styles
	color      bool
}

func (p *textPrinter) paint(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

func (p *textPrinter) newline() {
	if p.b.Len() > 0 {
		p.b.WriteByte('\n')
	}
	p.b.WriteString(strings.Repeat("  ", p.indent))
}

func (p *textPrinter) event(e Event) {
	switch e.Kind {
	case EventEndRoot:
		p.b.WriteByte('\n')
	case EventEndExpression:
		p.newline()
	case EventText:
		p.text(e)
	case EventStartContainer:
		p.containers = append(p.containers, e.Label)
		if e.Label {
			p.indent++
			p.newline()
			p.b.WriteString(p.paint(p.styles.Match, e.Tags.Primary()+": "))
		}
	case EventEndContainer:
		if n := len(p.containers); n > 0 {
			if p.containers[n-1] {
				p.indent--
			}
			p.containers = p.containers[:n-1]
		}
	case EventStartGroup:
		if e.Text != "" {
			p.b.WriteString(p.paint(p.styles.Sep, " ("+e.Text+")"))
		}
		p.b.WriteString(p.paint(p.styles.Sep, " {"))
		p.indent++
	case EventEndGroup:
		p.indent--
		p.newline()
		p.b.WriteString(p.paint(p.styles.Sep, "}"))
	case EventEmptyGroup:
		if e.Text == "" {
			p.b.WriteString(p.paint(p.styles.Sep, " {}"))
		} else {
			p.b.WriteString(p.paint(p.styles.Marker, " ("+e.Text+")"))
		}
	case EventSectionTitle:
		p.newline()
		p.b.WriteString(p.paint(p.styles.Section, e.Text+":"))
	case EventStartRow:
		p.newline()
	case EventColumnDivider:
		p.b.WriteString(strings.Repeat(" ", max(e.Pad, 0)+1))
	case EventSep:
		p.b.WriteString(p.paint(p.styles.Sep, e.Text))
	case EventBubbles:
		var letters strings.Builder
		for _, b := range e.Bubbles {
			letters.WriteString(b.Letter)
		}
		p.b.WriteString(p.paint(p.styles.Marker, letters.String()))
	}
}

func (p *textPrinter) text(e Event) {
	s := e.Text
	switch e.Tags.Primary() {
	case "string":
		if e.Tags.Has("special") {
			q := strconv.Quote(s)
			s = q[1 : len(q)-1]
		} else {
			s = strconv.Quote(s)
		}
		s = p.paint(p.styles.String, s)
	case "integer", "double":
		s = p.paint(p.styles.Number, s)
	case "null", "true", "false", "array", "object", "resource":
		s = p.paint(p.styles.Keyword, s)
	case "key", "resourceProp":
		s = p.paint(p.styles.Key, s)
	case "name":
		s = p.paint(p.styles.Name, s)
	}
	p.b.WriteString(s)
}
