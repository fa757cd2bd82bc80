package heuristics

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

// JSONObjectClass names the class decoded JSON objects belong to.
const JSONObjectClass = "json.Object"

// DecodeJSON decodes a JSON document keeping the order of object members.
// Objects become json.Object instances, arrays sequences; numbers are
// integers when they fit, floats otherwise.
func (a *Analyzer) DecodeJSON(s string) (value.Value, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	class := a.Types.Ensure(JSONObjectClass, func() *value.TypeDescriptor {
		return value.NewType(JSONObjectClass).With(value.Internal)
	})
	v, err := decodeJSONValue(dec, class)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after JSON document")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder, class *value.TypeDescriptor) (value.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON token: %w", err)
	}

	switch t := tok.(type) {
	case nil:
		return value.NullValue, nil
	case bool:
		return value.NewBool(t), nil
	case string:
		return value.NewString(t), nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return value.NewInt(n), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("bad JSON number %q: %w", t, err)
		}
		return value.NewFloat(f), nil
	case json.Delim:
		switch t {
		case '[':
			seq := value.NewSequence()
			for dec.More() {
				v, err := decodeJSONValue(dec, class)
				if err != nil {
					return nil, err
				}
				seq.Append(v)
			}
			_, err := dec.Token()
			return seq, err
		case '{':
			obj := &value.Object{ID: value.NewIdentity(JSONObjectClass), Class: class}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("failed to read JSON key: %w", err)
				}
				key, _ := keyTok.(string)
				v, err := decodeJSONValue(dec, class)
				if err != nil {
					return nil, err
				}
				obj.SetAttribute(key, v, value.Public)
			}
			_, err := dec.Token()
			return obj, err
		}
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}
