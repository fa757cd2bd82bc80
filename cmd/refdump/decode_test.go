package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chosenoffset/refscope/pkg/refscope/heuristics"
	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"a.json", "whatever", inputJSON},
		{"a.YML", "", inputYAML},
		{"a.yaml", "", inputYAML},
		{"session.ser", "", inputSerialized},
		{"-", `  {"a":1}`, inputJSON},
		{"-", "[1,2]", inputJSON},
		{"-", `a:1:{i:0;s:1:"x";}`, inputSerialized},
		{"-", "N;", inputSerialized},
		{"-", "hello", inputRaw},
		{"-", "   ", inputRaw},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detect(tt.name, []byte(tt.data)), "%s %q", tt.name, tt.data)
	}
}

// TestDecodeYAMLOrder verifies mappings keep document order and integer keys
func TestDecodeYAMLOrder(t *testing.T) {
	v, err := decodeYAML([]byte("zeta: 1\nalpha: [true, null, 2.5]\n7: seven\n"))
	require.NoError(t, err)

	seq, ok := v.(*value.Sequence)
	require.True(t, ok)
	entries := seq.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "zeta", entries[0].Key.String())
	assert.Equal(t, "alpha", entries[1].Key.String())
	assert.False(t, entries[2].Key.IsString())
	assert.Equal(t, int64(7), entries[2].Key.Int())

	list, ok := entries[1].Value.(*value.Sequence)
	require.True(t, ok)
	items := list.Entries()
	require.Len(t, items, 3)
	assert.Equal(t, value.BOOLEAN_VAL, items[0].Value.Type())
	assert.Equal(t, value.NULL_VAL, items[1].Value.Type())
	assert.Equal(t, value.FLOAT_VAL, items[2].Value.Type())
}

// TestDecodeYAMLAliases verifies an alias shares the anchored value
func TestDecodeYAMLAliases(t *testing.T) {
	v, err := decodeYAML([]byte("base: &b {x: 1}\nfirst: *b\nsecond: *b\n"))
	require.NoError(t, err)

	entries := v.(*value.Sequence).Entries()
	require.Len(t, entries, 3)
	assert.Same(t, entries[0].Value, entries[1].Value)
	assert.Same(t, entries[1].Value, entries[2].Value)
}

func TestDecodeYAMLEmpty(t *testing.T) {
	v, err := decodeYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, value.NULL_VAL, v.Type())
}

// TestDecodeFallback verifies auto mode falls back to raw text and explicit
// kinds report the failure
func TestDecodeFallback(t *testing.T) {
	an := heuristics.New(nil, nil)

	v, err := decode(an, "broken.json", []byte(`{"a":`), inputAuto)
	require.NoError(t, err)
	assert.Equal(t, value.STRING_VAL, v.Type())

	_, err = decode(an, "broken.json", []byte(`{"a":`), inputJSON)
	assert.ErrorContains(t, err, "failed to decode broken.json as json")

	_, err = decode(an, "x", nil, "toml")
	assert.ErrorContains(t, err, `unknown input kind "toml"`)
}

func TestDecodeSerialized(t *testing.T) {
	an := heuristics.New(nil, nil)
	v, err := decode(an, "-", []byte("a:2:{i:0;s:1:\"x\";s:1:\"k\";b:1;}\n"), inputAuto)
	require.NoError(t, err)

	seq, ok := v.(*value.Sequence)
	require.True(t, ok)
	assert.Equal(t, 2, seq.Len())
}
