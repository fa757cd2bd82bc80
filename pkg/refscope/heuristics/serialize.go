package heuristics

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

var ErrNotSerialized = errors.New("not a serialized payload")

var serialHeader = regexp.MustCompile(`^[aOs]:[0-9]+:`)

// looksSerialized checks the first and last bytes against the shapes a
// serialized string, array or object can take.
func looksSerialized(s string) bool {
	n := len(s)
	if n < 2 || (s[n-1] != ';' && s[n-1] != '}') {
		return false
	}
	switch s[0] {
	case 's':
		return s[n-2] != '"' || serialHeader.MatchString(s)
	case 'a', 'O':
		return serialHeader.MatchString(s)
	}
	return false
}

// Unserialize decodes a serialized payload into values. Arrays keep their
// key order; objects get the class registered under their name, or stay
// incomplete in strict mode when the class is unknown.
func (a *Analyzer) Unserialize(s string) (value.Value, error) {
	d := &serialDecoder{input: s, analyzer: a}
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.input) {
		return nil, d.fail("trailing data")
	}
	return v, nil
}

type serialDecoder struct {
	input    string
	pos      int
	slots    []value.Value
	analyzer *Analyzer
}

func (d *serialDecoder) fail(reason string) error {
	return fmt.Errorf("%w: %s at offset %d", ErrNotSerialized, reason, d.pos)
}

func (d *serialDecoder) expect(c byte) error {
	if d.pos >= len(d.input) || d.input[d.pos] != c {
		return d.fail(fmt.Sprintf("expected %q", c))
	}
	d.pos++
	return nil
}

// readUntil returns the text up to the next c and moves past c.
func (d *serialDecoder) readUntil(c byte) (string, error) {
	i := strings.IndexByte(d.input[d.pos:], c)
	if i < 0 {
		return "", d.fail(fmt.Sprintf("missing %q", c))
	}
	text := d.input[d.pos : d.pos+i]
	d.pos += i + 1
	return text, nil
}

func (d *serialDecoder) readInt(end byte) (int64, error) {
	text, err := d.readUntil(end)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, d.fail("bad integer")
	}
	return n, nil
}

func (d *serialDecoder) readString() (string, error) {
	n, err := d.readInt(':')
	if err != nil {
		return "", err
	}
	if n < 0 || n > int64(len(d.input)-d.pos-2) {
		return "", d.fail("bad string length")
	}
	if err := d.expect('"'); err != nil {
		return "", err
	}
	s := d.input[d.pos : d.pos+int(n)]
	d.pos += int(n)
	if err := d.expect('"'); err != nil {
		return "", err
	}
	return s, nil
}

func (d *serialDecoder) push(v value.Value) value.Value {
	d.slots = append(d.slots, v)
	return v
}

func (d *serialDecoder) value() (value.Value, error) {
	if d.pos+1 >= len(d.input) {
		return nil, d.fail("unexpected end")
	}
	kind := d.input[d.pos]
	d.pos++
	if kind == 'N' {
		if err := d.expect(';'); err != nil {
			return nil, err
		}
		return d.push(value.NullValue), nil
	}
	if err := d.expect(':'); err != nil {
		return nil, err
	}

	switch kind {
	case 'b':
		n, err := d.readInt(';')
		if err != nil || (n != 0 && n != 1) {
			return nil, d.fail("bad boolean")
		}
		return d.push(value.NewBool(n == 1)), nil
	case 'i':
		n, err := d.readInt(';')
		if err != nil {
			return nil, err
		}
		return d.push(value.NewInt(n)), nil
	case 'd':
		text, err := d.readUntil(';')
		if err != nil {
			return nil, err
		}
		f, err := parseSerialFloat(text)
		if err != nil {
			return nil, d.fail("bad float")
		}
		return d.push(value.NewFloat(f)), nil
	case 's':
		s, err := d.readString()
		if err != nil {
			return nil, err
		}
		if err := d.expect(';'); err != nil {
			return nil, err
		}
		return d.push(value.NewString(s)), nil
	case 'a':
		return d.array()
	case 'O':
		return d.object()
	case 'r', 'R':
		n, err := d.readInt(';')
		if err != nil {
			return nil, err
		}
		if n < 1 || int(n) > len(d.slots) {
			return nil, d.fail("bad reference")
		}
		v := d.slots[n-1]
		if kind == 'r' {
			d.push(v)
		}
		return v, nil
	}
	return nil, d.fail(fmt.Sprintf("unknown type %q", kind))
}

func parseSerialFloat(text string) (float64, error) {
	switch text {
	case "INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	case "NAN":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(text, 64)
}

func (d *serialDecoder) key() (value.Key, error) {
	if d.pos+1 >= len(d.input) {
		return value.Key{}, d.fail("unexpected end")
	}
	kind := d.input[d.pos]
	d.pos++
	if err := d.expect(':'); err != nil {
		return value.Key{}, err
	}
	switch kind {
	case 'i':
		n, err := d.readInt(';')
		return value.IntKey(n), err
	case 's':
		s, err := d.readString()
		if err != nil {
			return value.Key{}, err
		}
		return value.StringKey(s), d.expect(';')
	}
	return value.Key{}, d.fail("bad key")
}

func (d *serialDecoder) members() (int64, error) {
	n, err := d.readInt(':')
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, d.fail("bad member count")
	}
	return n, d.expect('{')
}

func (d *serialDecoder) array() (value.Value, error) {
	n, err := d.members()
	if err != nil {
		return nil, err
	}
	seq := value.NewSequence()
	d.push(seq)
	for i := int64(0); i < n; i++ {
		k, err := d.key()
		if err != nil {
			return nil, err
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		seq.Set(k, v)
	}
	return seq, d.expect('}')
}

func (d *serialDecoder) object() (value.Value, error) {
	class, err := d.readString()
	if err != nil {
		return nil, err
	}
	if err := d.expect(':'); err != nil {
		return nil, err
	}
	n, err := d.members()
	if err != nil {
		return nil, err
	}

	obj := &value.Object{ID: value.NewIdentity(class)}
	if td, ok := d.analyzer.Types.LookupType(class); ok {
		obj.Class = td
	} else if d.analyzer.Strict {
		obj.Class = value.NewType(class)
		obj.Incomplete = true
	} else {
		obj.Class = d.analyzer.Types.Ensure(class, func() *value.TypeDescriptor {
			return value.NewType(class)
		})
	}
	d.push(obj)

	for i := int64(0); i < n; i++ {
		k, err := d.key()
		if err != nil {
			return nil, err
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		name, vis := memberName(k.String())
		obj.SetAttribute(name, v, vis)
	}
	return obj, d.expect('}')
}

// memberName decodes the NUL-prefixed visibility markers of a property
// name: "\x00*\x00name" is protected and "\x00Class\x00name" private.
func memberName(raw string) (string, value.Visibility) {
	if !strings.HasPrefix(raw, "\x00") {
		return raw, value.Public
	}
	i := strings.IndexByte(raw[1:], 0)
	if i < 0 {
		return raw, value.Public
	}
	if raw[1:1+i] == "*" {
		return raw[i+2:], value.Protected
	}
	return raw[i+2:], value.Private
}
