package heuristics

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestAnalyzer(symbols SymbolTable) *Analyzer {
	a := New(symbols, nil)
	a.Now = func() time.Time { return fixedNow }
	return a
}

func kinds(matches []Match) []Kind {
	var out []Kind
	for _, m := range matches {
		out = append(out, m.Kind)
	}
	return out
}

func find(matches []Match, kind Kind) (Match, bool) {
	for _, m := range matches {
		if m.Kind == kind {
			return m, true
		}
	}
	return Match{}, false
}

// TestNumericSuppression verifies numeric strings skip the date and payload
// checks
func TestNumericSuppression(t *testing.T) {
	a := newTestAnalyzer(nil)
	for _, s := range []string{"123456", "20240101", "1.5e10", "-42.0"} {
		got := kinds(a.Analyze(s, Guards{}))
		assert.NotContains(t, got, KindDate, s)
		assert.NotContains(t, got, KindSerialized, s)
		assert.NotContains(t, got, KindJSON, s)
	}
}

// TestShortAndBlank verifies tiny or blank strings are never analyzed
func TestShortAndBlank(t *testing.T) {
	a := newTestAnalyzer(nil)
	assert.Nil(t, a.Analyze("ab", Guards{}))
	assert.Nil(t, a.Analyze("     ", Guards{}))
	assert.Nil(t, a.Analyze("", Guards{}))
}

// TestFileMatch verifies an existing file reports its mode and size
func TestFileMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(path, make([]byte, 1536), 0o644))
	require.NoError(t, os.Chmod(path, 0o644))

	a := newTestAnalyzer(nil)
	m, ok := find(a.Analyze(path, Guards{}), KindFile)
	require.True(t, ok)
	assert.Equal(t, "-rw-r--r-- 1.5 KiB", m.Text)

	m, ok = find(a.Analyze(dir, Guards{}), KindFile)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(m.Text, "d"))
	assert.NotContains(t, m.Text, " ")

	_, ok = find(a.Analyze(filepath.Join(dir, "missing.txt"), Guards{}), KindFile)
	assert.False(t, ok)
}

// TestLooksLikePath verifies the path shape rules
func TestLooksLikePath(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"/var/log/app.log", true},
		{`C:\Windows\win.ini`, true},
		{"C:/Windows", true},
		{"a:b", false},
		{"../etc/passwd", false},
		{"trailing.", false},
		{"with space", false},
		{"/" + strings.Repeat("a", 128), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, looksLikePath(tt.input, len(tt.input)), tt.input)
	}
}

// TestPermissions verifies the ls-style mode string
func TestPermissions(t *testing.T) {
	tests := []struct {
		mode     fs.FileMode
		expected string
	}{
		{0o644, "-rw-r--r--"},
		{fs.ModeDir | 0o755, "drwxr-xr-x"},
		{fs.ModeSetuid | 0o755, "-rwsr-xr-x"},
		{fs.ModeSetgid | 0o644, "-rw-r-Sr--"},
		{fs.ModeDir | fs.ModeSticky | 0o777, "drwxrwxrwt"},
		{fs.ModeSymlink | 0o777, "lrwxrwxrwx"},
		{fs.ModeNamedPipe | 0o600, "prw-------"},
		{fs.ModeDevice | fs.ModeCharDevice | 0o666, "crw-rw-rw-"},
		{fs.ModeDevice | 0o660, "brw-rw----"},
		{fs.ModeSocket | 0o755, "srwxr-xr-x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Permissions(tt.mode))
	}
}

// TestSymbolMatches verifies class, interface and function lookups
func TestSymbolMatches(t *testing.T) {
	reg := value.NewRegistry()
	reg.RegisterType(value.NewType("ledger.Account"))
	reg.RegisterType(value.NewType("io.Reader").With(value.Interface))
	reg.RegisterFunc(&value.Method{Name: "ledger.Open"})

	a := newTestAnalyzer(reg)

	m, ok := find(a.Analyze("ledger.Account", Guards{}), KindClass)
	require.True(t, ok)
	assert.Equal(t, "ledger.Account", m.Type.Name)

	_, ok = find(a.Analyze("io.Reader", Guards{}), KindInterface)
	assert.True(t, ok)

	m, ok = find(a.Analyze("ledger.Open", Guards{}), KindFunction)
	require.True(t, ok)
	assert.Equal(t, "ledger.Open", m.Func.Name)

	assert.Empty(t, a.Analyze("ledger.Missing", Guards{}))
}

// TestDateMatch verifies dates are described relative to now
func TestDateMatch(t *testing.T) {
	a := newTestAnalyzer(nil)
	m, ok := find(a.Analyze("2024-01-04T00:00:00Z", Guards{}), KindDate)
	require.True(t, ok)
	assert.Equal(t, "+3 days from now UTC", m.Text)

	m, ok = find(a.Analyze("2023-12-31", Guards{}), KindDate)
	require.True(t, ok)
	assert.Equal(t, "-1 day ago UTC", m.Text)

	_, ok = find(a.Analyze("hello world", Guards{}), KindDate)
	assert.False(t, ok)
}

// TestDescribeDate verifies relative text and zone offsets
func TestDescribeDate(t *testing.T) {
	zone := time.FixedZone("", 2*3600)
	assert.Equal(t, "-2 hours ago (UTC+2)", DescribeDate(fixedNow.Add(-2*time.Hour).In(zone), fixedNow))
	assert.Equal(t, "now UTC", DescribeDate(fixedNow, fixedNow))

	named := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "+1 hour from now EST (UTC-5)", DescribeDate(fixedNow.Add(90*time.Minute).In(named), fixedNow))
}

// TestPayloadGuards verifies decoded payloads stop at the nesting limit
func TestPayloadGuards(t *testing.T) {
	a := newTestAnalyzer(nil)
	serialized := `a:1:{i:0;s:3:"abc";}`
	json := `{"a":[1,2]}`

	assert.Contains(t, kinds(a.Analyze(serialized, Guards{Serialized: 2})), KindSerialized)
	assert.NotContains(t, kinds(a.Analyze(serialized, Guards{Serialized: MaxNesting})), KindSerialized)
	assert.Contains(t, kinds(a.Analyze(json, Guards{JSON: 2})), KindJSON)
	assert.NotContains(t, kinds(a.Analyze(json, Guards{JSON: MaxNesting})), KindJSON)
}

// TestSerializedExcludesJSON verifies a serialized match skips the JSON check
func TestSerializedExcludesJSON(t *testing.T) {
	a := newTestAnalyzer(nil)
	got := kinds(a.Analyze(`a:1:{i:0;i:1;}`, Guards{}))
	assert.Contains(t, got, KindSerialized)
	assert.NotContains(t, got, KindJSON)
}

// TestRegexMatch verifies a delimited pattern yields its tokens
func TestRegexMatch(t *testing.T) {
	a := newTestAnalyzer(nil)
	m, ok := find(a.Analyze(`/^[a-z]+$/i`, Guards{}), KindRegex)
	require.True(t, ok)
	require.NotEmpty(t, m.Tokens)

	_, ok = find(a.Analyze(`/a(b/`, Guards{}), KindRegex)
	assert.False(t, ok)
}
