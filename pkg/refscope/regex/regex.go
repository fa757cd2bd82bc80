// Package regex splits regular expressions into classified tokens for
// highlighting and rejects the malformed ones along the way.
package regex

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type TokenType int

const (
	TEXT      TokenType = iota // literal text
	META                       // anchors, shorthand classes, quantifiers
	GROUP                      // group delimiters, styled by depth 1..5
	CHR                        // bracket expression members
	CHR_META                   // escapes inside a bracket expression
	CHR_RANGE                  // range hyphen inside a bracket expression
	DELIM                      // pattern delimiter
	FLAGS                      // trailing modifiers
)

type Token struct {
	Type     TokenType
	Literal  string
	Position int
	Depth    int
}

// Class returns the highlight class of the token.
func (t Token) Class() string {
	switch t.Type {
	case META:
		return "meta"
	case GROUP:
		return fmt.Sprintf("g%d", t.Depth)
	case CHR:
		return "chr"
	case CHR_META:
		return "chr-meta"
	case CHR_RANGE:
		return "chr-range"
	case DELIM:
		return "delim"
	case FLAGS:
		return "flags"
	default:
		return "text"
	}
}

var (
	ErrNotPattern       = errors.New("not a delimited pattern")
	ErrUnclosedGroup    = errors.New("unclosed grouping")
	ErrUnmatchedClose   = errors.New("unmatched closing parenthesis")
	ErrUnclosedClass    = errors.New("unclosed character class")
	ErrReversedRange    = errors.New("reversed or invalid range")
	ErrIntervalTooLarge = errors.New("interval quantifier cannot use value over 65,535")
	ErrReversedInterval = errors.New("interval quantifier range is reversed")
	ErrNothingToRepeat  = errors.New("quantifiers must be preceded by a token that can be repeated")
	ErrEmptyAlternative = errors.New("empty alternative effectively truncates the regex here")
	ErrIncompleteEscape = errors.New("incomplete regex token")
	ErrUnsupportedGroup = errors.New("invalid or unsupported group type")
)

type SyntaxError struct {
	Kind   error
	Offset int
	Token  string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("regex: %v at offset %d", e.Kind, e.Offset)
	}
	return fmt.Sprintf("regex: %v at offset %d near %q", e.Kind, e.Offset, e.Token)
}

func (e *SyntaxError) Unwrap() error { return e.Kind }

const maxInterval = 65535

const flagChars = "imsxuADU"

// Split validates that pattern looks like a delimited regex ("/body/flags"
// or "{body}flags") and tokenizes it.
func Split(pattern string) ([]Token, error) {
	n, ok := shape(pattern)
	if !ok {
		return nil, &SyntaxError{Kind: ErrNotPattern}
	}
	inner, err := tokenize(pattern[1:n-1], 1)
	if err != nil {
		return nil, err
	}
	tokens := make([]Token, 0, len(inner)+3)
	tokens = append(tokens, Token{Type: DELIM, Literal: pattern[:1]})
	tokens = append(tokens, inner...)
	tokens = append(tokens, Token{Type: DELIM, Literal: pattern[n-1 : n], Position: n - 1})
	if n < len(pattern) {
		tokens = append(tokens, Token{Type: FLAGS, Literal: pattern[n:], Position: n})
	}
	return tokens, nil
}

// Validate reports the first syntax error in a delimited pattern.
func Validate(pattern string) error {
	_, err := Split(pattern)
	return err
}

// Tokenize classifies a bare pattern without delimiters.
func Tokenize(pattern string) ([]Token, error) {
	return tokenize(pattern, 0)
}

// shape returns the length of the delimited part, that is the shortest
// prefix of at least three bytes followed only by flag characters.
func shape(s string) (int, bool) {
	if len(s) < 3 || strings.ContainsRune(s, '\n') {
		return 0, false
	}
	n := 3
	for ; n <= len(s); n++ {
		if strings.Trim(s[n:], flagChars) == "" {
			break
		}
	}
	start, end := s[0], s[n-1]
	if start == '{' && end == '}' {
		return n, true
	}
	if start != end {
		return 0, false
	}
	if isLetter(start) || isDigit(start) || strings.IndexByte("*? \\", start) >= 0 || start >= utf8.RuneSelf {
		return 0, false
	}
	return n, true
}

// after-token states used to detect empty alternatives
const (
	afterToken = iota
	afterNothing
	afterAlternation
)

type openGroup struct {
	literal  string
	position int
}

type tokenizer struct {
	base   int
	out    []Token
	groups []openGroup

	captures         int
	style            int
	lastQuantifiable bool
	lastType         int
	lastStyle        int
}

func tokenize(pattern string, base int) ([]Token, error) {
	t := &tokenizer{base: base, lastType: afterNothing}
	l := newLexer(pattern)
	for {
		lx, ok := l.next()
		if !ok {
			break
		}
		if err := t.consume(lx); err != nil {
			return nil, err
		}
	}
	if len(t.groups) > 0 {
		g := t.groups[len(t.groups)-1]
		return nil, &SyntaxError{Kind: ErrUnclosedGroup, Offset: base + g.position, Token: g.literal}
	}
	return t.out, nil
}

func (t *tokenizer) emit(tt TokenType, literal string, position, depth int) {
	t.out = append(t.out, Token{Type: tt, Literal: literal, Position: t.base + position, Depth: depth})
}

func (t *tokenizer) fail(kind error, lx lexeme) error {
	return &SyntaxError{Kind: kind, Offset: t.base + lx.position, Token: lx.literal}
}

func (t *tokenizer) consume(lx lexeme) error {
	m := lx.literal
	switch lx.kind {
	case lexClass:
		if err := t.class(lx); err != nil {
			return err
		}
		t.lastQuantifiable = true

	case lexGroupOpen:
		if m == "(?" {
			return t.fail(ErrUnsupportedGroup, lx)
		}
		if m == "(" {
			t.captures++
		}
		if t.style != 5 {
			t.style++
		} else {
			t.style = 1
		}
		t.groups = append(t.groups, openGroup{literal: m, position: lx.position})
		t.emit(GROUP, m, lx.position, t.style)
		t.lastQuantifiable = false

	case lexEscape:
		if err := t.escape(lx); err != nil {
			return err
		}

	case lexQuantifier:
		if !t.lastQuantifiable {
			return t.fail(ErrNothingToRepeat, lx)
		}
		if m[0] == '{' {
			if err := t.interval(lx); err != nil {
				return err
			}
		}
		if t.lastStyle > 0 {
			t.emit(GROUP, m, lx.position, t.lastStyle)
		} else {
			t.emit(META, m, lx.position, 0)
		}
		t.lastQuantifiable = false

	case lexLiteral:
		t.emit(TEXT, m, lx.position, 0)
		t.lastQuantifiable = true

	case lexChar:
		switch m {
		case ")":
			if len(t.groups) == 0 {
				return t.fail(ErrUnmatchedClose, lx)
			}
			open := t.groups[len(t.groups)-1]
			t.groups = t.groups[:len(t.groups)-1]
			t.emit(GROUP, m, lx.position, t.style)
			// lookaheads cannot be repeated
			t.lastQuantifiable = open.literal != "(?=" && open.literal != "(?!"
			t.lastStyle = t.style
			t.lastType = afterToken
			if t.style != 1 {
				t.style--
			} else {
				t.style = 5
			}
			return nil
		case "|":
			if t.lastType == afterNothing || (t.lastType == afterAlternation && len(t.groups) == 0) {
				return t.fail(ErrEmptyAlternative, lx)
			}
			if len(t.groups) > 0 {
				t.emit(GROUP, m, lx.position, t.style)
			} else {
				t.emit(META, m, lx.position, 0)
			}
			t.lastQuantifiable = false
			t.lastType = afterAlternation
			t.lastStyle = 0
			return nil
		case "^", "$":
			t.emit(META, m, lx.position, 0)
			t.lastQuantifiable = false
		case ".":
			t.emit(META, m, lx.position, 0)
			t.lastQuantifiable = true
		default:
			t.emit(TEXT, m, lx.position, 0)
			t.lastQuantifiable = true
		}
	}

	t.lastType = afterToken
	t.lastStyle = 0
	return nil
}

func (t *tokenizer) escape(lx lexeme) error {
	m := lx.literal
	if len(m) == 1 {
		return t.fail(ErrIncompleteEscape, lx)
	}
	c := m[1]
	switch {
	case c >= '1' && c <= '9':
		// digits past the number of capturing groups so far are not part
		// of the backreference
		digits := m[1:]
		cut := len(digits)
		for cut > 0 {
			n, err := strconv.Atoi(digits[:cut])
			if err == nil && n <= t.captures {
				break
			}
			cut--
		}
		if cut > 0 {
			t.emit(META, m[:1+cut], lx.position, 0)
			if cut < len(digits) {
				t.emit(TEXT, digits[cut:], lx.position+1+cut, 0)
			}
		} else {
			// an octal escape or a literal 8/9 followed by plain digits
			n := octalPrefix(digits)
			t.emit(META, m[:1+n], lx.position, 0)
			if n < len(digits) {
				t.emit(TEXT, digits[n:], lx.position+1+n, 0)
			}
		}
		t.lastQuantifiable = true
	case strings.IndexByte("0bBcdDfnrsStuvwWx", c) >= 0:
		if len(m) == 2 && (c == 'c' || c == 'u' || c == 'x') {
			return t.fail(ErrIncompleteEscape, lx)
		}
		t.emit(META, m, lx.position, 0)
		t.lastQuantifiable = c != 'b' && c != 'B'
	default:
		t.emit(TEXT, m, lx.position, 0)
		t.lastQuantifiable = true
	}
	return nil
}

// octalPrefix returns how many leading digits form an octal escape, or 1
// for a lone 8 or 9.
func octalPrefix(digits string) int {
	c := digits[0]
	switch {
	case c <= '3':
		n := 1
		for n < 3 && n < len(digits) && isOctal(digits[n]) {
			n++
		}
		return n
	case c <= '7':
		if len(digits) > 1 && isOctal(digits[1]) {
			return 2
		}
		return 1
	default:
		return 1
	}
}

func (t *tokenizer) interval(lx lexeme) error {
	body := strings.TrimSuffix(lx.literal, "?")
	body = body[1 : len(body)-1]
	lo, hi, hasHi := body, "", false
	if i := strings.IndexByte(body, ','); i >= 0 {
		lo, hi = body[:i], body[i+1:]
		hasHi = hi != ""
	}
	from, err := strconv.Atoi(lo)
	if err != nil || from > maxInterval {
		return t.fail(ErrIntervalTooLarge, lx)
	}
	if !hasHi {
		return nil
	}
	to, err := strconv.Atoi(hi)
	if err != nil || to > maxInterval {
		return t.fail(ErrIntervalTooLarge, lx)
	}
	if from > to {
		return t.fail(ErrReversedInterval, lx)
	}
	return nil
}

// class emits the members of a bracket expression and checks its ranges.
func (t *tokenizer) class(lx lexeme) error {
	if lx.close == "" {
		return t.fail(ErrUnclosedClass, lx)
	}
	t.emit(CHR, lx.open, lx.position, 0)

	const (
		none = iota
		rangeHyphen
		shortClass
	)
	var (
		lastCode     rune
		haveLastCode bool
		rangeable    bool
		lastType     = none
	)
	parts := splitClass(lx.body)
	pos := lx.position + len(lx.open)
	for i, cm := range parts {
		switch {
		case cm[0] == '\\':
			switch {
			case len(cm) == 1, len(cm) == 2 && (cm[1] == 'c' || cm[1] == 'u' || cm[1] == 'x'):
				return &SyntaxError{Kind: ErrIncompleteEscape, Offset: t.base + pos, Token: cm}
			case isShortClass(cm):
				t.emit(CHR_META, cm, pos, 0)
				rangeable = lastType != rangeHyphen
				lastType = shortClass
			default:
				t.emit(CHR_META, cm, pos, 0)
				rangeable = lastType != rangeHyphen
				lastCode, haveLastCode = charCode(cm)
				lastType = none
			}
		case cm == "-":
			if rangeable && i+1 < len(parts) {
				next := parts[i+1]
				nextCode, ok := charCode(next)
				if (ok && haveLastCode && lastCode > nextCode) || lastType == shortClass || isShortClass(next) {
					return &SyntaxError{Kind: ErrReversedRange, Offset: t.base + pos, Token: cm}
				}
				t.emit(CHR_RANGE, cm, pos, 0)
				rangeable = false
				lastType = rangeHyphen
			} else {
				t.emit(CHR, cm, pos, 0)
				rangeable = lastType != rangeHyphen
			}
		default:
			t.emit(CHR, cm, pos, 0)
			rangeable = utf8.RuneCountInString(cm) > 1 || lastType != rangeHyphen
			r, _ := utf8.DecodeLastRuneInString(cm)
			lastCode, haveLastCode = r, true
			lastType = none
		}
		pos += len(cm)
	}

	t.emit(CHR, lx.close, pos, 0)
	return nil
}

func isShortClass(tok string) bool {
	if len(tok) != 2 || tok[0] != '\\' {
		return false
	}
	return strings.IndexByte("dDsSwW", tok[1]) >= 0
}

// charCode resolves the code point a class member stands for. Members that
// stand for no single character report false.
func charCode(tok string) (rune, bool) {
	if tok == "" {
		return 0, false
	}
	if tok[0] != '\\' {
		r, _ := utf8.DecodeRuneInString(tok)
		return r, true
	}
	t1 := tok[1:]
	switch {
	case t1 == "":
		return 0, false
	case len(t1) == 2 && t1[0] == 'c' && isLetter(t1[1]):
		return rune(strings.ToUpper(t1[1:])[0]) - 64, true
	case len(t1) == 3 && t1[0] == 'x', len(t1) == 5 && t1[0] == 'u':
		n, err := strconv.ParseUint(t1[1:], 16, 32)
		if err != nil {
			return 0, false
		}
		return rune(n), true
	case isOctal(t1[0]) && allOctal(t1) && len(t1) <= 3:
		n, _ := strconv.ParseUint(t1, 8, 32)
		return rune(n), true
	case len(t1) == 1 && strings.IndexByte("cuxDdSsWw", t1[0]) >= 0:
		return 0, false
	case len(t1) == 1:
		switch t1[0] {
		case 'b':
			return 8, true
		case 'f':
			return 12, true
		case 'n':
			return 10, true
		case 'r':
			return 13, true
		case 't':
			return 9, true
		case 'v':
			return 11, true
		}
	}
	r, _ := utf8.DecodeRuneInString(t1)
	return r, true
}

func allOctal(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isOctal(s[i]) {
			return false
		}
	}
	return true
}
