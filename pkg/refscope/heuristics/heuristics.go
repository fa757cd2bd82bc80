// Package heuristics looks for secondary readings of a string: a file on
// disk, a known symbol, a date, a serialized or JSON payload, a pattern.
// Every check is best effort; a failed check is simply no match.
package heuristics

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chosenoffset/refscope/pkg/refscope/regex"
	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

type Kind string

const (
	KindFile       Kind = "file"
	KindClass      Kind = "class"
	KindInterface  Kind = "interface"
	KindFunction   Kind = "function"
	KindDate       Kind = "date"
	KindSerialized Kind = "serialized"
	KindJSON       Kind = "json"
	KindRegex      Kind = "regex"
)

// MaxNesting bounds how many decoded payloads may be rendered inside each
// other.
const MaxNesting = 3

// Match is one annotation for a string. Which fields are set depends on
// Kind: Text for files and dates, Value for decoded payloads, Type or Func
// for symbols and Tokens for patterns.
type Match struct {
	Kind   Kind
	Text   string
	Value  value.Value
	Type   *value.TypeDescriptor
	Func   *value.Method
	Tokens []regex.Token
}

// Guards count the decoded payloads currently being rendered.
type Guards struct {
	Serialized int
	JSON       int
}

// SymbolTable resolves names to known types and functions.
type SymbolTable interface {
	LookupType(name string) (*value.TypeDescriptor, bool)
	LookupFunc(name string) (*value.Method, bool)
}

type Analyzer struct {
	// Symbols may be nil, which disables the symbol check.
	Symbols SymbolTable
	// Types receives the classes of decoded documents.
	Types *value.Registry
	// Strict leaves objects of unregistered serialized classes incomplete
	// instead of registering the class.
	Strict bool
	Now    func() time.Time
}

func New(symbols SymbolTable, types *value.Registry) *Analyzer {
	if types == nil {
		types = value.NewRegistry()
	}
	return &Analyzer{Symbols: symbols, Types: types, Now: time.Now}
}

var (
	numericPattern = regexp.MustCompile(`^\s*[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?\s*$`)
	symbolPattern  = regexp.MustCompile(`^\*?[A-Za-z_]\w*(?:[./][A-Za-z_]\w*)*$`)
)

func isNumeric(s string) bool {
	return numericPattern.MatchString(s)
}

// Analyze runs every check over s in order and returns the matches. Strings
// of two characters or less, blank strings and, for the date, payload and
// pattern checks, numeric or short strings are skipped.
func (a *Analyzer) Analyze(s string, g Guards) []Match {
	length := utf8.RuneCountInString(s)
	if length <= 2 || strings.TrimSpace(s) == "" {
		return nil
	}

	var matches []Match
	if m, ok := a.checkFile(s, length); ok {
		matches = append(matches, m)
	}
	matches = append(matches, a.checkSymbol(s, length)...)

	if isNumeric(s) || length <= 4 {
		return matches
	}

	if m, ok := a.checkDate(s, length); ok {
		matches = append(matches, m)
	}

	serialized := false
	if g.Serialized < MaxNesting && looksSerialized(s) {
		if v, err := a.Unserialize(s); err == nil {
			serialized = true
			matches = append(matches, Match{Kind: KindSerialized, Value: v})
		}
	}

	if !serialized && g.JSON < MaxNesting && (s[0] == '{' || s[0] == '[') {
		if v, err := a.DecodeJSON(s); err == nil {
			matches = append(matches, Match{Kind: KindJSON, Value: v})
		}
	}

	if length < 768 {
		if tokens, err := regex.Split(s); err == nil {
			matches = append(matches, Match{Kind: KindRegex, Tokens: tokens})
		}
	}
	return matches
}

func (a *Analyzer) checkSymbol(s string, length int) []Match {
	if a.Symbols == nil || length >= 96 || !symbolPattern.MatchString(s) {
		return nil
	}
	var matches []Match
	if td, ok := a.Symbols.LookupType(s); ok {
		kind := KindClass
		if td.IsInterface() {
			kind = KindInterface
		}
		matches = append(matches, Match{Kind: kind, Type: td})
	}
	if fn, ok := a.Symbols.LookupFunc(s); ok {
		matches = append(matches, Match{Kind: KindFunction, Func: fn})
	}
	return matches
}
