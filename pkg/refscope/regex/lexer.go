package regex

import "unicode/utf8"

type lexKind int

const (
	lexClass      lexKind = iota // [...]
	lexEscape                    // \x, \12, \cA ...
	lexGroupOpen                 // ( (? (?: (?= (?!
	lexQuantifier                // ? * + {n,m} with optional lazy ?
	lexLiteral                   // run of plain characters
	lexChar                      // any other single character
)

type lexeme struct {
	kind     lexKind
	literal  string
	position int

	// set for lexClass only
	open  string
	body  string
	close string
}

type lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
}

func newLexer(input string) *lexer {
	l := &lexer{input: input}
	l.readChar()
	return l
}

func (l *lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

// readRune consumes one whole UTF-8 sequence.
func (l *lexer) readRune() {
	_, size := utf8.DecodeRuneInString(l.input[l.position:])
	for i := 0; i < size; i++ {
		l.readChar()
	}
}

func (l *lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *lexer) eof() bool {
	return l.position >= len(l.input)
}

func (l *lexer) next() (lexeme, bool) {
	if l.eof() {
		return lexeme{}, false
	}
	start := l.position
	lx := lexeme{position: start}

	switch l.ch {
	case '[':
		lx.kind = lexClass
		l.readClass(&lx)
	case '\\':
		lx.kind = lexEscape
		l.readEscape()
	case '(':
		lx.kind = lexGroupOpen
		l.readChar()
		if !l.eof() && l.ch == '?' {
			l.readChar()
			if !l.eof() && (l.ch == ':' || l.ch == '=' || l.ch == '!') {
				l.readChar()
			}
		}
	case '?', '*', '+':
		lx.kind = lexQuantifier
		l.readChar()
		if !l.eof() && l.ch == '?' {
			l.readChar()
		}
	case '{':
		if n := intervalLength(l.input[start:]); n > 0 {
			lx.kind = lexQuantifier
			for i := 0; i < n; i++ {
				l.readChar()
			}
			if !l.eof() && l.ch == '?' {
				l.readChar()
			}
		} else {
			lx.kind = lexChar
			l.readChar()
		}
	default:
		if isLiteral(l.ch) {
			lx.kind = lexLiteral
			for !l.eof() && isLiteral(l.ch) {
				l.readChar()
			}
		} else {
			lx.kind = lexChar
			l.readRune()
		}
	}

	lx.literal = l.input[start:l.position]
	return lx, true
}

// readClass consumes a bracket expression. A ']' right after the opening
// bracket is a literal member, so "[]" alone stays unclosed.
func (l *lexer) readClass(lx *lexeme) {
	start := l.position
	l.readChar()
	if !l.eof() && l.ch == '^' {
		l.readChar()
	}
	lx.open = l.input[start:l.position]
	bodyStart := l.position
	if !l.eof() && l.ch == ']' {
		l.readChar()
	}
	for !l.eof() {
		switch l.ch {
		case '\\':
			l.readChar()
			if !l.eof() {
				l.readRune()
			}
			continue
		case ']':
			lx.body = l.input[bodyStart:l.position]
			l.readChar()
			lx.close = "]"
			return
		}
		l.readChar()
	}
	lx.body = l.input[bodyStart:l.position]
}

func (l *lexer) readEscape() {
	l.readChar()
	if l.eof() {
		return
	}
	switch {
	case l.ch == '0':
		l.readChar()
		switch {
		case !l.eof() && l.ch >= '0' && l.ch <= '3':
			l.readChar()
			for i := 0; i < 2 && !l.eof() && isOctal(l.ch); i++ {
				l.readChar()
			}
		case !l.eof() && l.ch >= '4' && l.ch <= '7':
			l.readChar()
			if !l.eof() && isOctal(l.ch) {
				l.readChar()
			}
		}
	case l.ch >= '1' && l.ch <= '9':
		for !l.eof() && isDigit(l.ch) {
			l.readChar()
		}
	case l.ch == 'x' && hexRun(l.input[l.readPosition:], 2):
		for i := 0; i < 3; i++ {
			l.readChar()
		}
	case l.ch == 'u' && hexRun(l.input[l.readPosition:], 4):
		for i := 0; i < 5; i++ {
			l.readChar()
		}
	case l.ch == 'c' && isLetter(l.peekChar()):
		l.readChar()
		l.readChar()
	default:
		l.readRune()
	}
}

// intervalLength returns the byte length of a leading {n} / {n,} / {n,m}
// quantifier, or 0 when s does not start with one.
func intervalLength(s string) int {
	i := 1
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if digits == 0 || i >= len(s) {
		return 0
	}
	if s[i] == ',' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	if i >= len(s) || s[i] != '}' {
		return 0
	}
	return i + 1
}

// splitClass breaks a bracket body into literal runs, hyphens and escapes.
func splitClass(body string) []string {
	var parts []string
	i := 0
	for i < len(body) {
		switch body[i] {
		case '-':
			parts = append(parts, "-")
			i++
		case '\\':
			n := classEscapeLength(body[i:])
			parts = append(parts, body[i:i+n])
			i += n
		default:
			j := i
			for j < len(body) && body[j] != '-' && body[j] != '\\' {
				j++
			}
			parts = append(parts, body[i:j])
			i = j
		}
	}
	return parts
}

func classEscapeLength(s string) int {
	if len(s) < 2 {
		return len(s)
	}
	c := s[1]
	switch {
	case c >= '0' && c <= '3':
		n := 2
		for n < 4 && n < len(s) && isOctal(s[n]) {
			n++
		}
		return n
	case c >= '4' && c <= '7':
		if len(s) > 2 && isOctal(s[2]) {
			return 3
		}
		return 2
	case c == 'x' && hexRun(s[2:], 2):
		return 4
	case c == 'u' && hexRun(s[2:], 4):
		return 6
	case c == 'c' && len(s) > 2 && isLetter(s[2]):
		return 3
	}
	_, size := utf8.DecodeRuneInString(s[1:])
	return 1 + size
}

func isLiteral(ch byte) bool {
	switch ch {
	case '.', '?', '*', '+', '^', '$', '{', '[', '(', ')', '|', '\\':
		return false
	}
	return true
}

func isDigit(ch byte) bool  { return ch >= '0' && ch <= '9' }
func isOctal(ch byte) bool  { return ch >= '0' && ch <= '7' }
func isLetter(ch byte) bool { return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' }

func isHex(ch byte) bool {
	return isDigit(ch) || ch >= 'a' && ch <= 'f' || ch >= 'A' && ch <= 'F'
}

func hexRun(s string, n int) bool {
	if len(s) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if !isHex(s[i]) {
			return false
		}
	}
	return true
}
