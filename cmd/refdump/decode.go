package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chosenoffset/refscope/pkg/refscope/heuristics"
	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

// Input kinds accepted by --as.
const (
	inputAuto       = "auto"
	inputJSON       = "json"
	inputYAML       = "yaml"
	inputSerialized = "serialized"
	inputRaw        = "raw"
)

var inputKinds = []string{inputAuto, inputJSON, inputYAML, inputSerialized, inputRaw}

// detect picks an input kind from the file extension, then from the content.
func detect(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return inputJSON
	case ".yaml", ".yml":
		return inputYAML
	case ".ser":
		return inputSerialized
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return inputRaw
	}
	switch trimmed[0] {
	case '{', '[':
		return inputJSON
	case 'a', 'O', 's', 'i', 'd', 'b', 'N':
		if len(trimmed) > 1 && trimmed[1] == ':' || string(trimmed) == "N;" {
			return inputSerialized
		}
	}
	return inputRaw
}

// decode turns data into a value. In auto mode a document that fails to
// decode as its detected kind is rendered as raw text.
func decode(an *heuristics.Analyzer, name string, data []byte, as string) (value.Value, error) {
	kind := as
	if kind == inputAuto {
		kind = detect(name, data)
	}

	var (
		v   value.Value
		err error
	)
	switch kind {
	case inputJSON:
		v, err = an.DecodeJSON(string(data))
	case inputYAML:
		v, err = decodeYAML(data)
	case inputSerialized:
		v, err = an.Unserialize(string(bytes.TrimSpace(data)))
	case inputRaw:
		return value.NewString(string(data)), nil
	default:
		return nil, fmt.Errorf("unknown input kind %q (valid kinds: %s)", as, strings.Join(inputKinds, ", "))
	}
	if err != nil {
		if as == inputAuto {
			return value.NewString(string(data)), nil
		}
		return nil, fmt.Errorf("failed to decode %s as %s: %w", name, kind, err)
	}
	return v, nil
}

func decodeYAML(data []byte) (value.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return &value.Null{}, nil
	}
	y := &yamlConverter{anchors: make(map[*yaml.Node]value.Value)}
	return y.convert(&doc)
}

// yamlConverter keeps mapping order. Aliases resolve to the value already
// built for their anchor, so shared nodes stay shared.
type yamlConverter struct {
	anchors map[*yaml.Node]value.Value
}

func (y *yamlConverter) convert(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return &value.Null{}, nil
		}
		return y.convert(n.Content[0])
	case yaml.AliasNode:
		if v, ok := y.anchors[n.Alias]; ok {
			return v, nil
		}
		return y.convert(n.Alias)
	case yaml.SequenceNode:
		seq := value.NewSequence()
		y.remember(n, seq)
		for _, c := range n.Content {
			v, err := y.convert(c)
			if err != nil {
				return nil, err
			}
			seq.Append(v)
		}
		return seq, nil
	case yaml.MappingNode:
		seq := value.NewSequence()
		y.remember(n, seq)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := y.convert(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			seq.Set(yamlKey(n.Content[i]), v)
		}
		return seq, nil
	case yaml.ScalarNode:
		v, err := yamlScalar(n)
		if err != nil {
			return nil, err
		}
		y.remember(n, v)
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

func (y *yamlConverter) remember(n *yaml.Node, v value.Value) {
	if n.Anchor != "" {
		y.anchors[n] = v
	}
}

func yamlKey(n *yaml.Node) value.Key {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!int" {
		var i int64
		if err := n.Decode(&i); err == nil {
			return value.IntKey(i)
		}
	}
	return value.StringKey(n.Value)
}

func yamlScalar(n *yaml.Node) (value.Value, error) {
	var x any
	if err := n.Decode(&x); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	switch t := x.(type) {
	case nil:
		return &value.Null{}, nil
	case bool:
		return value.NewBool(t), nil
	case int:
		return value.NewInt(int64(t)), nil
	case int64:
		return value.NewInt(t), nil
	case uint64:
		return value.NewFloat(float64(t)), nil
	case float64:
		return value.NewFloat(t), nil
	case string:
		return value.NewString(t), nil
	case time.Time:
		return value.NewString(t.Format(time.RFC3339)), nil
	default:
		return value.NewString(n.Value), nil
	}
}
