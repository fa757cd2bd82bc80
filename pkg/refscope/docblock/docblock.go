// Package docblock parses documentation comments into a title, a
// description and typed tags such as @param, @return and @var.
package docblock

import (
	"regexp"
	"strings"
)

type Tag struct {
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type Comment struct {
	Title       string           `json:"title" yaml:"title"`
	Description string           `json:"description" yaml:"description"`
	Tags        map[string][]Tag `json:"tags,omitempty" yaml:"tags,omitempty"`
	// Order lists tag names in the order they first appear.
	Order []string `json:"-" yaml:"-"`
}

// typed tags are split into type, name and description
var typed = map[string]bool{
	"global": true,
	"param":  true,
	"return": true,
	"var":    true,
}

var lineBreak = regexp.MustCompile(`\r\n|\r|\n`)

// Parse reads a block comment ("/** ... */"), a run of line comments or
// bare text. It returns nil when nothing survives parsing.
func Parse(comment string) *Comment {
	c := &Comment{Tags: make(map[string][]Tag)}

	trimmed := strings.Trim(comment, "/* \t\n\r\x00\x0B")
	lines := lineBreak.Split(trimmed, -1)

	var (
		description strings.Builder
		tag         string
		tagIndex    = -1
		padding     int
	)

	for _, line := range lines {
		line = strip(line)

		if !strings.HasPrefix(line, "@") {
			if tagIndex >= 0 {
				// continuation of the previous tag, re-indented relative to
				// its first continuation line
				text := strings.TrimSpace(line)
				if padding != 0 {
					if width := len(line) - padding; width > len(text) {
						text = strings.Repeat(" ", width-len(text)) + text
					}
				} else {
					padding = len(line) - len(text)
				}
				t := &c.Tags[tag][tagIndex]
				t.Description += "\n" + text
				continue
			}
			description.WriteString("\n")
			description.WriteString(line)
			continue
		}

		padding = 0
		parts := strings.SplitN(line, " ", 2)
		if len(parts) < 2 {
			// a bare tag carries nothing; later lines still continue the
			// previous one
			continue
		}

		tag = parts[0][1:]
		rest := strings.TrimLeft(parts[1], " \t")
		if _, seen := c.Tags[tag]; !seen {
			c.Order = append(c.Order, tag)
		}
		c.Tags[tag] = append(c.Tags[tag], shape(tag, rest))
		tagIndex = len(c.Tags[tag]) - 1
	}

	c.Title, c.Description = splitTitle(description.String())

	if c.Title == "" && c.Description == "" && len(c.Tags) == 0 {
		return nil
	}
	return c
}

// strip removes comment decoration: surrounding space, one leading "*" or
// "//" and a single space after it.
func strip(line string) string {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "//"):
		line = line[2:]
	case strings.HasPrefix(line, "*"):
		line = line[1:]
	}
	return strings.TrimPrefix(line, " ")
}

func shape(tag, rest string) Tag {
	if !typed[tag] {
		return Tag{Description: rest}
	}

	head, tail := cut(rest)
	if isName(head) {
		// no type given
		return Tag{Name: head, Description: tail}
	}

	if tag == "return" {
		return Tag{Type: head, Description: tail}
	}
	name, desc := cut(tail)
	if isName(name) {
		return Tag{Type: head, Name: name, Description: desc}
	}
	return Tag{Type: head, Description: tail}
}

func cut(s string) (string, string) {
	head, tail, _ := strings.Cut(s, " ")
	return head, strings.TrimLeft(tail, " \t")
}

func isName(s string) bool {
	return strings.HasPrefix(s, "$") || strings.HasPrefix(s, "&")
}

// splitTitle separates the title from the description at the first blank
// line, else at the first sentence end followed by a capital letter.
func splitTitle(text string) (string, string) {
	var title, desc string
	if i := strings.Index(text, "\n\n"); i > 0 {
		title, desc = text[:i], text[i+2:]
	} else if i, j := sentenceBreak(text); i > 0 {
		title, desc = text[:i], text[j:]
	} else {
		title = text
	}
	return strings.TrimSpace(title), strings.TrimSpace(desc)
}

// sentenceBreak finds ". X" style boundaries: one of .?! then whitespace
// then an uppercase ASCII letter. It returns the end of the first sentence
// and the start of the next.
func sentenceBreak(text string) (int, int) {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '?', '!':
		default:
			continue
		}
		j := i + 1
		for j < len(text) && isSpace(text[j]) {
			j++
		}
		if j > i+1 && j < len(text) && text[j] >= 'A' && text[j] <= 'Z' {
			return i + 1, j
		}
	}
	return -1, -1
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// Field returns the named part of the comment: "title", "description" or a
// tag name.
func (c *Comment) Field(key string) any {
	if c == nil {
		return nil
	}
	switch key {
	case "title":
		return c.Title
	case "description":
		return c.Description
	}
	if tags, ok := c.Tags[key]; ok {
		return tags
	}
	return nil
}

// First returns the first occurrence of the tag.
func (c *Comment) First(tag string) (Tag, bool) {
	if c == nil || len(c.Tags[tag]) == 0 {
		return Tag{}, false
	}
	return c.Tags[tag][0], true
}
