package refscope

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chosenoffset/refscope/pkg/refscope/config"
	"github.com/chosenoffset/refscope/pkg/refscope/format"
	"github.com/chosenoffset/refscope/pkg/refscope/metrics"
	"github.com/chosenoffset/refscope/pkg/refscope/sink"
	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestInspector(opts ...Option) *Inspector {
	return New(append([]Option{WithLogger(quietLogger())}, opts...)...)
}

// plainConfig turns off string matches so outputs stay predictable.
func plainConfig() config.Config {
	cfg := config.Default()
	cfg.ShowStringMatches = false
	return cfg
}

func record(t *testing.T, in *Inspector, subject any, expression string) format.Recording {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, in.Query(format.NewRecorder(&buf), subject, expression))
	var rec format.Recording
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func renderText(t *testing.T, in *Inspector, subject any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, in.Query(format.NewText(&buf), subject, ""))
	return buf.String()
}

func texts(rec format.Recording) []string {
	var out []string
	for _, e := range rec.Events {
		if e.Kind == format.EventText {
			out = append(out, e.Text)
		}
	}
	return out
}

func count(rec format.Recording, kind format.EventKind, text string) int {
	n := 0
	for _, e := range rec.Events {
		if e.Kind == kind && e.Text == text {
			n++
		}
	}
	return n
}

func hasContainer(rec format.Recording, tags ...string) bool {
	for _, e := range rec.Events {
		if e.Kind == format.EventStartContainer && slicesEqual(e.Tags, tags) {
			return true
		}
	}
	return false
}

func slicesEqual(a format.Tags, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func tipFor(rec format.Recording, text string) *format.Meta {
	for _, e := range rec.Events {
		if e.Kind == format.EventText && e.Text == text && e.Tip >= 0 {
			return rec.Tips[e.Tip]
		}
	}
	return nil
}

// TestScalars verifies leaves and their type hints
func TestScalars(t *testing.T) {
	in := newTestInspector(WithConfig(plainConfig()))

	tests := []struct {
		input    any
		expected string
	}{
		{nil, "null\n"},
		{42, "42\n"},
		{2.5, "2.5\n"},
		{true, "true\n"},
		{"hi", "\"hi\"\n"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, renderText(t, in, tt.input))
	}

	rec := record(t, in, "héllo", "")
	require.NotNil(t, tipFor(rec, "héllo"))
	assert.Equal(t, "string(5; UTF-8)", tipFor(rec, "héllo").Title)

	rec = record(t, in, 7, "")
	assert.Equal(t, "integer", tipFor(rec, "7").Title)
}

// TestSequenceLayout verifies rows, key padding and empty sequences
func TestSequenceLayout(t *testing.T) {
	in := newTestInspector(WithConfig(plainConfig()))

	assert.Equal(t, "array (2) {\n  0 => 1\n  1 => 2\n}\n", renderText(t, in, []int{1, 2}))
	assert.Equal(t, "array (2) {\n  a   => 1\n  bbb => 2\n}\n", renderText(t, in, map[string]int{"bbb": 2, "a": 1}))
	assert.Equal(t, "array {}\n", renderText(t, in, value.List()))

	rec := record(t, in, map[string]int{"bbb": 2}, "")
	assert.Equal(t, "Key: string(3)", tipFor(rec, "bbb").Title)
}

// TestSelfAliasingSequence verifies a sequence holding itself ends in a
// recursion marker at the aliasing slot
func TestSelfAliasingSequence(t *testing.T) {
	in := newTestInspector(WithConfig(plainConfig()))

	s := value.List(value.NewInt(1))
	s.Append(s)
	assert.Equal(t, "array (2) {\n  0 => 1\n  1 => array (recursion)\n}\n", renderText(t, in, s))
}

// TestIndirectSequenceCycle verifies cycles through several sequences are
// caught at any depth
func TestIndirectSequenceCycle(t *testing.T) {
	in := newTestInspector(WithConfig(plainConfig()))

	a := value.List()
	b := value.List(a)
	a.Append(b)
	want := "array (1) {\n  0 => array (1) {\n    0 => array (recursion)\n  }\n}\n"
	assert.Equal(t, want, renderText(t, in, a))
}

// TestSharedSequenceIsNotRecursion verifies siblings aliasing one sequence
// both render in full
func TestSharedSequenceIsNotRecursion(t *testing.T) {
	in := newTestInspector(WithConfig(plainConfig()))

	shared := value.List(value.NewInt(1))
	rec := record(t, in, value.List(shared, shared), "")
	assert.Zero(t, count(rec, format.EventEmptyGroup, "recursion"))
	assert.Equal(t, 3, count(rec, format.EventStartGroup, "1")+count(rec, format.EventStartGroup, "2"))
}

// TestObjectCycle verifies the back reference of A -> B -> A renders as a
// recursion marker
func TestObjectCycle(t *testing.T) {
	in := newTestInspector(WithConfig(plainConfig()))

	a := value.NewObject(value.NewType("A"))
	b := value.NewObject(value.NewType("B"))
	a.SetAttribute("b", b, value.Public)
	b.SetAttribute("a", a, value.Public)

	want := "A object {\n" +
		"  Properties:\n" +
		"  ->   b = B object {\n" +
		"    Properties:\n" +
		"    ->   a = A object (recursion)\n" +
		"  }\n" +
		"}\n"
	assert.Equal(t, want, renderText(t, in, a))

	rec := record(t, in, a, "")
	assert.Equal(t, 1, count(rec, format.EventEmptyGroup, "recursion"))
}

// TestConvertedCycle verifies Go pointer cycles terminate
func TestConvertedCycle(t *testing.T) {
	type node struct {
		Name string
		Next *node
	}
	first := &node{Name: "first"}
	first.Next = &node{Name: "second", Next: first}

	in := newTestInspector(WithConfig(plainConfig()))
	rec := record(t, in, first, "")
	assert.Equal(t, 1, count(rec, format.EventEmptyGroup, "recursion"))
	assert.Contains(t, texts(rec), "second")
}

// TestDepthBound verifies no group nests past the maximum depth
func TestDepthBound(t *testing.T) {
	cfg := plainConfig()
	cfg.MaxDepth = 2
	in := newTestInspector(WithConfig(cfg))

	deep := value.List(value.List(value.List(value.List(value.NewInt(1)))))
	rec := record(t, in, deep, "")

	level, peak := 0, 0
	for _, e := range rec.Events {
		switch e.Kind {
		case format.EventStartGroup:
			level++
			peak = max(peak, level)
		case format.EventEndGroup:
			level--
		}
	}
	assert.Equal(t, 2, peak)
	assert.Equal(t, 1, count(rec, format.EventEmptyGroup, "..."))
	assert.NotContains(t, texts(rec), "1")
}

// TestUnlimitedDepth verifies a zero depth renders everything
func TestUnlimitedDepth(t *testing.T) {
	cfg := plainConfig()
	cfg.MaxDepth = 0
	in := newTestInspector(WithConfig(cfg))

	var v value.Value = value.NewInt(1)
	for range 10 {
		v = value.List(v)
	}
	rec := record(t, in, v, "")
	assert.Equal(t, 10, count(rec, format.EventStartGroup, "1"))
	assert.Zero(t, count(rec, format.EventEmptyGroup, "..."))
}

// TestDedupReplay verifies a repeated instance is expanded once and the
// replay matches the first expansion
func TestDedupReplay(t *testing.T) {
	collector := metrics.NewCollector()
	in := newTestInspector(WithConfig(plainConfig()), WithMetrics(collector))

	inner := value.NewObject(value.NewType("Inner"), value.Attribute{Name: "n", Value: value.NewInt(1)})
	holder := value.NewObject(value.NewType("Holder"),
		value.Attribute{Name: "first", Value: inner},
		value.Attribute{Name: "second", Value: inner},
	)

	want := "Holder object {\n" +
		"  Properties:\n" +
		"  ->   first  = Inner object {\n" +
		"    Properties:\n" +
		"    ->   n = 1\n" +
		"  }\n" +
		"  ->   second = Inner object {\n" +
		"    Properties:\n" +
		"    ->   n = 1\n" +
		"  }\n" +
		"}\n"
	assert.Equal(t, want, renderText(t, in, holder))

	snap, err := collector.Snapshot()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, snap.CacheHits, uint64(1))
}

// TestVisibility verifies private members follow ShowPrivate
func TestVisibility(t *testing.T) {
	class := value.NewType("Vault").
		Func(value.Method{Name: "Open"}).
		Func(value.Method{Name: "unlock", Visibility: value.Private})
	vault := value.NewObject(class,
		value.Attribute{Name: "Label", Value: value.NewString("main")},
		value.Attribute{Name: "secret", Value: value.NewString("x"), Visibility: value.Private},
		value.Attribute{Name: "guarded", Value: value.NewInt(1), Visibility: value.Protected},
	)

	cfg := plainConfig()
	cfg.ShowPrivate = false
	rec := record(t, newTestInspector(WithConfig(cfg)), vault, "")
	got := texts(rec)
	assert.Contains(t, got, "Label")
	assert.Contains(t, got, "Open")
	for _, name := range []string{"secret", "guarded", "unlock"} {
		assert.NotContains(t, got, name)
	}

	cfg.ShowPrivate = true
	rec = record(t, newTestInspector(WithConfig(cfg)), vault, "")
	got = texts(rec)
	for _, name := range []string{"Label", "secret", "guarded", "Open", "unlock"} {
		assert.Contains(t, got, name)
	}
	assert.True(t, hasContainer(rec, "prop", "private"))

	cfg.ShowMethods = false
	rec = record(t, newTestInspector(WithConfig(cfg)), vault, "")
	assert.NotContains(t, texts(rec), "Open")
	assert.Zero(t, count(rec, format.EventSectionTitle, "Methods"))
}

// TestMethodParams verifies hints, by-reference markers and defaults
func TestMethodParams(t *testing.T) {
	account := value.NewType("ledger.Account")
	class := value.NewType("ledger.Ledger").Func(value.Method{
		Name: "Transfer",
		Doc:  "Transfer moves funds.\n@param float64 $amount how much",
		Params: []value.Param{
			{Name: "to", Hint: account},
			{Name: "amount", HintName: "float64"},
			{Name: "into", HintName: "*float64", ByRef: true},
			{Name: "memo", HintName: "string", Optional: true, Default: value.NewString("none")},
			{Name: "mode", HintName: "int", Optional: true, DefaultConst: "ModeFast"},
			{Name: "rest", HintName: "...string", Optional: true, Variadic: true},
		},
	})

	rec := record(t, newTestInspector(WithConfig(plainConfig())), value.NewObject(class), "")
	got := texts(rec)
	for _, want := range []string{"Transfer", "to", "ledger.Account", "amount", "float64", "&into", "memo", "none", "ModeFast", "rest", "...string"} {
		assert.Contains(t, got, want)
	}
	assert.Equal(t, 2, count(rec, format.EventSep, " = "))
	assert.True(t, hasContainer(rec, "param", "optional"))
	assert.Equal(t, 2, count(rec, format.EventSep, `"`))

	var special bool
	for _, e := range rec.Events {
		if e.Kind == format.EventText && e.Text == "none" {
			special = e.Tags.Has("special")
		}
	}
	assert.True(t, special)

	tip := tipFor(rec, "amount")
	require.NotNil(t, tip)
	assert.Equal(t, "how much", tip.Title)
	assert.Equal(t, "float64", tip.Left)

	tip = tipFor(rec, "Transfer")
	require.NotNil(t, tip)
	assert.Equal(t, "Transfer moves funds.", tip.Title)
}

// TestInheritance verifies lineage headers and inherited members
func TestInheritance(t *testing.T) {
	stringer := value.NewType("fmt.Stringer").With(value.Interface).Func(value.Method{Name: "String"})
	parent := value.NewType("Base").
		Const("Version", value.NewInt(2)).
		Prop(value.Property{Name: "ID"}).
		Func(value.Method{Name: "Identify"})
	child := value.NewType("Child").Extends(parent).Implements(stringer).
		Const("Local", value.NewString("x")).
		Func(value.Method{Name: "String", Prototype: stringer})
	obj := value.NewObject(child, value.Attribute{Name: "ID", Value: value.NewInt(1)})

	rec := record(t, newTestInspector(WithConfig(plainConfig())), obj, "")
	got := texts(rec)
	assert.Contains(t, got, "Base")
	assert.Contains(t, got, "Child")
	assert.Contains(t, got, "fmt.Stringer (1)")
	assert.Equal(t, 1, count(rec, format.EventSep, " :: "))
	for _, title := range []string{"Implements", "Constants", "Properties", "Methods"} {
		assert.Equal(t, 1, count(rec, format.EventSectionTitle, title), title)
	}
	assert.True(t, hasContainer(rec, "const", "inherited"))
	assert.True(t, hasContainer(rec, "const"))
	assert.True(t, hasContainer(rec, "prop", "inherited"))
	assert.True(t, hasContainer(rec, "method", "inherited"))

	tip := tipFor(rec, "Identify")
	require.NotNil(t, tip)
	assert.Contains(t, tip.Sub, format.SubLine{Label: "Inherited from", Value: "Base"})

	tip = tipFor(rec, "String")
	require.NotNil(t, tip)
	assert.Contains(t, tip.Sub, format.SubLine{Label: "Prototype defined by", Value: "fmt.Stringer"})

	tip = tipFor(rec, "ID")
	require.NotNil(t, tip)
	assert.Contains(t, tip.Sub, format.SubLine{Label: "Declared in", Value: "Base"})
}

// TestTypeBubbles verifies modifier badges on type headers
func TestTypeBubbles(t *testing.T) {
	class := value.NewType("Sealed").With(value.Final | value.Iterable)
	rec := record(t, newTestInspector(WithConfig(plainConfig())), value.NewObject(class), "")

	var letters []string
	for _, e := range rec.Events {
		if e.Kind == format.EventBubbles {
			for _, b := range e.Bubbles {
				letters = append(letters, b.Letter)
			}
		}
	}
	assert.Equal(t, []string{"F", "X"}, letters)
}

// TestIteratorContents verifies iterable objects list their pairs when
// enabled
func TestIteratorContents(t *testing.T) {
	bag := value.NewObject(value.NewType("Bag").With(value.Iterable))
	bag.Iterate = func() []value.Entry {
		return []value.Entry{
			{Key: value.IntKey(10), Value: value.NewString("a")},
			{Key: value.IntKey(20), Value: value.NewString("b")},
		}
	}

	cfg := plainConfig()
	rec := record(t, newTestInspector(WithConfig(cfg)), bag, "")
	assert.Zero(t, count(rec, format.EventSectionTitle, "Contents (2)"))

	cfg.ShowIteratorContents = true
	rec = record(t, newTestInspector(WithConfig(cfg)), bag, "")
	assert.Equal(t, 1, count(rec, format.EventSectionTitle, "Contents (2)"))
	assert.Equal(t, "Iterator key: integer", tipFor(rec, "20").Title)
}

// TestEmptyAndIncompleteObjects verifies the empty and incomplete markers
func TestEmptyAndIncompleteObjects(t *testing.T) {
	in := newTestInspector(WithConfig(plainConfig()))
	assert.Equal(t, "Empty object {}\n", renderText(t, in, value.NewObject(value.NewType("Empty"))))
	assert.Equal(t, "object (incomplete)\n", renderText(t, in, &value.Object{Incomplete: true}))
}

// TestStringMatches verifies heuristic readings render under the string
func TestStringMatches(t *testing.T) {
	collector := metrics.NewCollector()
	in := newTestInspector(WithMetrics(collector))

	path := filepath.Join(t.TempDir(), "ledger.log")
	require.NoError(t, os.WriteFile(path, []byte("entry\n"), 0o644))
	rec := record(t, in, path, "")
	assert.True(t, hasContainer(rec, "file"))

	inner := `{"b":1}`
	outer, err := json.Marshal(map[string]string{"a": inner})
	require.NoError(t, err)
	rec = record(t, in, string(outer), "")
	jsonContainers := 0
	for _, e := range rec.Events {
		if e.Kind == format.EventStartContainer && e.Tags.Primary() == "json" {
			jsonContainers++
			assert.True(t, e.Label)
		}
	}
	assert.Equal(t, 2, jsonContainers)

	snap, err := collector.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.HeuristicMatches["file"])
	assert.Equal(t, uint64(2), snap.HeuristicMatches["json"])

	rec = record(t, newTestInspector(WithConfig(plainConfig())), path, "")
	assert.False(t, hasContainer(rec, "file"))
}

// TestRegexMatch verifies delimited patterns render as classified tokens
func TestRegexMatch(t *testing.T) {
	rec := record(t, newTestInspector(), "/^ab+c$/i", "")
	require.True(t, hasContainer(rec, "regex"))

	var tokens int
	for _, e := range rec.Events {
		if e.Kind == format.EventText && strings.HasPrefix(e.Tags.Primary(), "regex-") {
			tokens++
		}
	}
	assert.Positive(t, tokens)
}

// TestResources verifies metadata probes and their fallbacks
func TestResources(t *testing.T) {
	ch := make(chan int, 4)
	ch <- 1

	in := newTestInspector()
	rec := record(t, in, ch, "")
	assert.Equal(t, 1, count(rec, format.EventStartGroup, "chan"))
	got := texts(rec)
	for _, want := range []string{"Element Type", "Direction", "Length", "Capacity", "4"} {
		assert.Contains(t, got, want)
	}

	cfg := config.Default()
	cfg.ShowResourceInfo = false
	rec = record(t, newTestInspector(WithConfig(cfg)), ch, "")
	assert.Equal(t, 1, count(rec, format.EventEmptyGroup, "chan"))

	f, err := os.Create(filepath.Join(t.TempDir(), "closed.log"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	rec = record(t, in, f, "")
	assert.Equal(t, 1, count(rec, format.EventEmptyGroup, "stream"))

	failing := &value.Resource{Kind: "db", Label: "conn", Metadata: func() ([]value.MetaEntry, error) {
		return nil, errors.New("gone")
	}}
	rec = record(t, in, failing, "")
	assert.Equal(t, 1, count(rec, format.EventEmptyGroup, "db"))

	panicking := &value.Resource{Kind: "db", Metadata: func() ([]value.MetaEntry, error) {
		panic("driver bug")
	}}
	rec = record(t, in, panicking, "")
	assert.Equal(t, 1, count(rec, format.EventEmptyGroup, "db"))
}

// TestResourceValuesSkipMatches verifies metadata strings are not analyzed
func TestResourceValuesSkipMatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	res := &value.Resource{Kind: "store", Label: "store", Metadata: func() ([]value.MetaEntry, error) {
		return []value.MetaEntry{{Key: "data_path", Value: value.NewString(path)}}, nil
	}}
	rec := record(t, newTestInspector(), res, "")
	assert.Contains(t, texts(rec), "Data Path")
	assert.Contains(t, texts(rec), path)
	assert.False(t, hasContainer(rec, "file"))
}

// TestExpression verifies the echoed expression and symbol resolution
func TestExpression(t *testing.T) {
	in := newTestInspector(WithConfig(plainConfig()))
	account := value.NewType("ledger.Account").Func(value.Method{Name: "Balance"})
	in.Converter().Symbols().RegisterType(account)

	rec := record(t, in, 1, "ledger.Account.Balance()")
	got := texts(rec)
	assert.Contains(t, got, "ledger.Account")
	assert.Contains(t, got, "Balance")
	assert.Contains(t, got, "()")
	assert.Equal(t, 1, count(rec, format.EventSep, "."))

	rec = record(t, in, 1, "new ledger.Account()")
	assert.Contains(t, texts(rec), "new ")
	assert.Contains(t, texts(rec), "ledger.Account")

	rec = record(t, in, 1, "unknown.Call(x)")
	assert.Contains(t, texts(rec), "unknown.Call")
	assert.Contains(t, texts(rec), "(x)")

	rec = record(t, in, 1, "total")
	tip := tipFor(rec, "total")
	require.NotNil(t, tip)
	require.Len(t, tip.Sub, 1)
	assert.Equal(t, "Called from", tip.Sub[0].Label)
	assert.True(t, strings.HasPrefix(tip.Sub[0].Value, "refscope_test.go:"))

	rec = record(t, in, 1, strings.Repeat("x", 130))
	var echoed string
	for _, e := range rec.Events {
		if e.Kind == format.EventText && e.Tags.Primary() == "expTxt" {
			echoed = e.Text
		}
	}
	assert.Len(t, echoed, 123)
	assert.True(t, strings.HasSuffix(echoed, "..."))
}

// TestIdempotence verifies two queries of one subject render the same
func TestIdempotence(t *testing.T) {
	type entry struct {
		Memo   string
		Amount float64
		Tags   map[string]int
	}
	subject := []*entry{
		{Memo: `{"ref":"inv-1"}`, Amount: 12.5, Tags: map[string]int{"b": 2, "a": 1}},
		{Memo: "rent", Amount: -900},
	}

	in := newTestInspector()
	assert.Equal(t, renderText(t, in, subject), renderText(t, in, subject))

	for _, name := range format.Names {
		var outs [2]string
		for i := range outs {
			var buf bytes.Buffer
			f, err := format.New(name, &buf, format.WithAssets(false))
			require.NoError(t, err)
			require.NoError(t, in.Query(f, subject, ""))
			outs[i] = buf.String()
		}
		assert.Equal(t, outs[0], outs[1], "format %s", name)
	}
}

// TestHTMLQuery verifies the HTML renderer is driven end to end
func TestHTMLQuery(t *testing.T) {
	in := newTestInspector(WithConfig(plainConfig()))
	var buf bytes.Buffer
	require.NoError(t, in.Query(format.NewHTML(&buf, format.WithAssets(false)), map[string]int{"a": 1}, "totals"))
	out := buf.String()
	assert.Contains(t, out, `<div class="ref">`)
	assert.Contains(t, out, "totals")
}

// TestPublish verifies documents reach every sink in sequence
func TestPublish(t *testing.T) {
	collector := metrics.NewCollector()
	in := newTestInspector(WithConfig(plainConfig()), WithFormat("text"), WithMetrics(collector))

	var docs []sink.Document
	in.RegisterSink("memory", sink.Func(func(doc sink.Document) error {
		docs = append(docs, doc)
		return nil
	}))

	doc, err := in.Publish([]int{1}, "xs", "audit")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), doc.Sequence)
	assert.Equal(t, "text", doc.Format)
	assert.Equal(t, "> xs\narray (1) {\n  0 => 1\n}\n", doc.Body)
	assert.Equal(t, []string{"audit"}, doc.Tags)

	in.RegisterSink("broken", sink.Func(func(sink.Document) error { return errors.New("offline") }))
	doc, err = in.Publish(2, "")
	require.Error(t, err)
	assert.Equal(t, uint64(2), doc.Sequence)
	require.Len(t, docs, 2)

	snap, err := collector.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Deliveries)
	assert.Equal(t, uint64(1), snap.DeliveryErrors)
	assert.Equal(t, uint64(2), snap.Queries)
}

// TestUnknownFormat verifies Publish rejects an unknown renderer
func TestUnknownFormat(t *testing.T) {
	in := newTestInspector(WithFormat("pdf"))
	_, err := in.Publish(1, "")
	assert.Error(t, err)
}

// TestTime verifies query time accumulates
func TestTime(t *testing.T) {
	in := newTestInspector(WithConfig(plainConfig()))
	renderText(t, in, []int{1, 2, 3})
	renderText(t, in, "x")

	timing := in.Time()
	assert.Equal(t, uint64(2), timing.Queries)
	assert.Positive(t, timing.Wall)
}

// TestConfigure verifies option maps are validated before they apply
func TestConfigure(t *testing.T) {
	in := newTestInspector()
	require.NoError(t, in.Configure(map[string]any{"expLvl": 2, "maxDepth": 5}))
	assert.Equal(t, 2, in.Config().ExpandLevel)
	assert.Equal(t, 5, in.Config().MaxDepth)

	err := in.Configure(map[string]any{"colour": true})
	assert.ErrorIs(t, err, config.ErrUnknownOption)

	assert.Error(t, in.Configure(map[string]any{"maxDepth": -1}))
	assert.Equal(t, 5, in.Config().MaxDepth)
}
