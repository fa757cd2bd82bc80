package refscope

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chosenoffset/refscope/pkg/refscope/config"
	"github.com/chosenoffset/refscope/pkg/refscope/format"
	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

func TestRenderLimits(t *testing.T) {
	t.Run("DepthAcrossKinds", testDepthAcrossKinds)
	t.Run("ExpandLevel", testExpandLevel)
	t.Run("PayloadNesting", testPayloadNesting)
	t.Run("HostileStrings", testHostileStrings)
	t.Run("WideSequence", testWideSequence)
}

// testDepthAcrossKinds verifies the bound holds through objects, sequences
// and resources alike
func testDepthAcrossKinds(t *testing.T) {
	type level struct {
		Items []any
		Next  *level
	}
	ch := make(chan string)
	root := &level{Items: []any{ch, []int{1}}}
	root.Next = &level{Items: []any{map[string]any{"deep": []any{[]any{1}}}}}

	for depth := 1; depth <= 4; depth++ {
		cfg := config.Default()
		cfg.MaxDepth = depth
		in := newTestInspector(WithConfig(cfg))
		rec := record(t, in, root, "")

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
		assert.LessOrEqual(t, peak, depth, "depth %d", depth)
		assert.Zero(t, level)
	}
}

// testExpandLevel verifies groups start expanded up to the expand level
func testExpandLevel(t *testing.T) {
	nested := value.List(value.List(value.List(value.NewInt(1))))

	expanded := func(cfg config.Config) []bool {
		rec := record(t, newTestInspector(WithConfig(cfg)), nested, "")
		var out []bool
		for _, e := range rec.Events {
			if e.Kind == format.EventStartGroup {
				out = append(out, e.Expand)
			}
		}
		return out
	}

	cfg := plainConfig()
	cfg.ExpandLevel = 1
	assert.Equal(t, []bool{true, false, false}, expanded(cfg))

	cfg.ExpandLevel = -1
	assert.Equal(t, []bool{true, true, true}, expanded(cfg))

	cfg.ExpandLevel = 0
	assert.Equal(t, []bool{false, false, false}, expanded(cfg))
}

// testPayloadNesting verifies JSON documents nested in strings stop being
// decoded after a few levels
func testPayloadNesting(t *testing.T) {
	payload := `{"n":1}`
	for range 6 {
		payload = fmt.Sprintf(`{"inner":%q}`, payload)
	}

	cfg := config.Default()
	cfg.MaxDepth = 0
	rec := record(t, newTestInspector(WithConfig(cfg)), payload, "")
	decoded := 0
	for _, e := range rec.Events {
		if e.Kind == format.EventStartContainer && e.Tags.Primary() == "json" {
			decoded++
		}
	}
	assert.Equal(t, 3, decoded)
}

// testHostileStrings verifies odd input renders without failing
func testHostileStrings(t *testing.T) {
	inputs := []string{
		strings.Repeat("(", 500),
		"/" + strings.Repeat("[a-", 300) + "/",
		`a:2:{i:0;s:999:"short";}`,
		`O:8:"Missing":1:{s:1:"x";i:1;}`,
		"{" + strings.Repeat(`"a":`, 1000),
		"\x00\xff\xfe",
		strings.Repeat("é", 2000),
		"<script>alert(1)</script>",
	}
	in := newTestInspector()
	for _, s := range inputs {
		var buf bytes.Buffer
		require.NotPanics(t, func() {
			require.NoError(t, in.Query(format.NewHTML(&buf, format.WithAssets(false)), s, s))
		})
		assert.NotContains(t, buf.String(), "<script>")
	}
}

// testWideSequence verifies large sequences render every row
func testWideSequence(t *testing.T) {
	wide := make([]int, 5000)
	rec := record(t, newTestInspector(WithConfig(plainConfig())), wide, "")
	assert.Equal(t, 5000, count(rec, format.EventStartRow, ""))
}

// TestConcurrentQueries verifies queries on one inspector do not share
// render state
func TestConcurrentQueries(t *testing.T) {
	in := newTestInspector(WithConfig(plainConfig()))

	a := value.NewObject(value.NewType("A"))
	b := value.NewObject(value.NewType("B"))
	a.SetAttribute("b", b, value.Public)
	b.SetAttribute("a", a, value.Public)
	want := renderText(t, in, a)

	var wg sync.WaitGroup
	outputs := make([]string, 16)
	for i := range outputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var buf bytes.Buffer
			if err := in.Query(format.NewText(&buf), a, ""); err == nil {
				outputs[i] = buf.String()
			}
		}(i)
	}
	wg.Wait()

	for _, got := range outputs {
		assert.Equal(t, want, got)
	}
	assert.Equal(t, uint64(17), in.Time().Queries)
}
