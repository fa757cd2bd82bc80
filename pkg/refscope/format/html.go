package format

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/net/html"
)

//go:embed assets/refscope.css
var stylesheet string

//go:embed assets/refscope.js
var script string

var didAssets atomic.Bool

// Assets returns the stylesheet and script the HTML output relies on.
func Assets() string {
	return "<style scoped>" + stylesheet + "</style><script>" + script + "</script>"
}

var specialChars = strings.NewReplacer(
	"\r", `<i>\r</i>`,
	"\t", `<i>\t</i>`,
	"\n", `<i>\n</i>`,
	"\v", `<i>\v</i>`,
	"\x1b", `<i>\e</i>`,
	"\f", `<i>\f</i>`,
	"\x00", `<i>\0</i>`,
)

// HTMLFormatter renders nested spans annotated with data attributes, with
// tooltips collected into one table at the end of the document.
type HTMLFormatter struct {
	w      io.Writer
	out    []byte
	root   int
	roots  int
	level  int
	limits Limits
	tips   Tips
	cache  *Cache
	assets *bool
	logger *slog.Logger
}

func NewHTML(w io.Writer, opts ...Option) *HTMLFormatter {
	o := buildOptions(opts)
	return &HTMLFormatter{
		w:      w,
		cache:  NewCache(o.logger),
		assets: o.assets,
		logger: o.logger,
	}
}

func (h *HTMLFormatter) write(s ...string) {
	for _, part := range s {
		h.out = append(h.out, part...)
	}
}

func dataAttrs(tags Tags) string {
	var b strings.Builder
	for _, tag := range tags {
		b.WriteString(" data-")
		b.WriteString(tag)
	}
	return b.String()
}

func (h *HTMLFormatter) Sep(label string) {
	if label == " " {
		h.write(label)
		return
	}
	h.write("<i>", html.EscapeString(label), "</i>")
}

func (h *HTMLFormatter) Text(tags Tags, text string, meta *Meta, link string) {
	s := html.EscapeString(text)
	if tags.Has("special") {
		s = specialChars.Replace(s)
	}
	tip := ""
	if i := h.tips.Ref(meta); i >= 0 {
		tip = fmt.Sprintf(` data-tip="%d"`, i)
	}
	if link != "" {
		s = `<a href="` + html.EscapeString(link) + `" target="_blank">` + s + `</a>`
	}
	h.write("<span", dataAttrs(tags), tip, ">", s, "</span>")
}

func (h *HTMLFormatter) StartContainer(tags Tags, label bool) {
	if label {
		h.write("<br>")
	}
	h.write("<span", dataAttrs(tags), ">")
	if label {
		h.write("<span data-match>", html.EscapeString(tags.Primary()), "</span>")
	}
}

func (h *HTMLFormatter) EndContainer() {
	h.write("</span>")
}

func groupLabel(label string) string {
	if label == "" {
		return ""
	}
	return "<span data-gLabel>" + html.EscapeString(label) + "</span>"
}

func (h *HTMLFormatter) EmptyGroup(label string) {
	h.write("<i>(</i>", groupLabel(label), "<i>)</i>")
}

func (h *HTMLFormatter) StartGroup(label string) bool {
	if h.limits.MaxDepth > 0 && h.level+1 > h.limits.MaxDepth {
		h.EmptyGroup("...")
		h.cache.Cut()
		return false
	}
	h.level++
	h.cache.Observe(h.level)

	exp := ""
	if h.limits.ExpandLevel < 0 || (h.limits.ExpandLevel > 0 && h.level <= h.limits.ExpandLevel) {
		exp = " data-exp"
	}
	h.write("<i>(</i>", groupLabel(label), "<span data-toggle", exp, "></span><span data-group><span data-table>")
	return true
}

func (h *HTMLFormatter) EndGroup() {
	h.write("</span></span><i>)</i>")
	h.level--
}

func (h *HTMLFormatter) SectionTitle(title string) {
	h.write("</span><span data-tHead>", html.EscapeString(title), "</span><span data-table>")
}

func (h *HTMLFormatter) StartRow() {
	h.write("<span data-row><span data-cell>")
}

func (h *HTMLFormatter) EndRow() {
	h.write("</span></span>")
}

func (h *HTMLFormatter) ColumnDivider(int) {
	h.write("</span><span data-cell>")
}

func (h *HTMLFormatter) Bubbles(bubbles []Bubble) {
	if len(bubbles) == 0 {
		return
	}
	h.write("<span data-mod>")
	for _, b := range bubbles {
		h.Text(Tag("mod-"+strings.ToLower(b.Title)), b.Letter, Hint(b.Title), "")
	}
	h.write("</span>")
}

func (h *HTMLFormatter) StartExpression() {
	h.write("<span data-input>")
}

func (h *HTMLFormatter) EndExpression() {
	h.write("</span><span data-output>")
}

func (h *HTMLFormatter) includeAssets() bool {
	if h.assets != nil {
		return *h.assets
	}
	return didAssets.CompareAndSwap(false, true)
}

func (h *HTMLFormatter) StartRoot(limits Limits) {
	h.limits = limits
	h.level = 0
	h.cache.Reset()
	h.root = h.roots
	h.roots++

	assets := ""
	if h.includeAssets() {
		assets = Assets()
	}
	h.write(fmt.Sprintf("<!-- ref#%d --><div>", h.root), assets, `<div class="ref">`)
}

func (h *HTMLFormatter) EndRoot() {
	h.write("</span>")
	for _, meta := range h.tips.List() {
		h.write("<div>", tooltip(meta), "</div>")
	}
	h.write(fmt.Sprintf("</div></div><!-- /ref#%d -->", h.root))
}

func tooltip(m *Meta) string {
	esc := html.EscapeString

	var cols []string
	if m.Left != "" {
		cols = append(cols, "<span data-cell data-varType>"+esc(m.Left)+"</span>")
	}

	title, desc := "", ""
	if m.Title != "" {
		title = "<span data-title>" + esc(m.Title) + "</span>"
	}
	if m.Description != "" {
		desc = "<span data-desc>" + esc(m.Description) + "</span>"
	}

	var tags strings.Builder
	for _, tag := range m.Tags {
		cells := make([]string, len(tag.Fields))
		for i, f := range tag.Fields {
			cells[i] = esc(f)
		}
		tags.WriteString("<span data-row><span data-cell>@" + esc(tag.Name) + "</span><span data-cell>")
		tags.WriteString(strings.Join(cells, "</span><span data-cell>"))
		tags.WriteString("</span></span>")
	}
	tagTable := ""
	if tags.Len() > 0 {
		tagTable = "<span data-table>" + tags.String() + "</span>"
	}
	if title != "" || desc != "" || tagTable != "" {
		cols = append(cols, "<span data-cell>"+title+desc+tagTable+"</span>")
	}

	tip := ""
	if len(cols) > 0 {
		tip = "<span data-row>" + strings.Join(cols, "") + "</span>"
	}

	var sub strings.Builder
	for _, line := range m.Sub {
		sub.WriteString("<span data-row><span data-cell>" + esc(line.Label) + "</span><span data-cell>" + esc(line.Value) + "</span></span>")
	}
	if sub.Len() > 0 {
		tip += "<span data-row><span data-cell data-sub><span data-table>" + sub.String() + "</span></span></span>"
	}
	return tip
}

func (h *HTMLFormatter) DidCache(key string) bool {
	start, n, hit := h.cache.Lookup(key, len(h.out), h.level, h.limits.MaxDepth)
	if hit {
		h.out = append(h.out, h.out[start:start+n]...)
	}
	return hit
}

func (h *HTMLFormatter) CacheLock(key string) {
	_ = h.cache.Lock(key, len(h.out))
}

func (h *HTMLFormatter) Cache() *Cache { return h.cache }

// String returns the markup produced since the last Flush.
func (h *HTMLFormatter) String() string {
	return string(h.out)
}

func (h *HTMLFormatter) Flush() error {
	defer func() {
		h.out = h.out[:0]
		h.tips.Reset()
		h.cache.Reset()
	}()
	if h.w == nil {
		return nil
	}
	if _, err := h.w.Write(h.out); err != nil {
		return fmt.Errorf("failed to write html output: %w", err)
	}
	return nil
}
