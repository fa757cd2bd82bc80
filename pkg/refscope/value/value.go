// Package value defines the tagged union the inspector renders: scalars,
// keyed sequences, objects with typed members and opaque resource handles.
package value

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"unicode/utf8"
)

type ValueType string

// The type names double as the leaf tags emitted by the renderer.
const (
	NULL_VAL     ValueType = "null"
	BOOLEAN_VAL  ValueType = "boolean"
	INTEGER_VAL  ValueType = "integer"
	FLOAT_VAL    ValueType = "double"
	STRING_VAL   ValueType = "string"
	SEQUENCE_VAL ValueType = "array"
	OBJECT_VAL   ValueType = "object"
	RESOURCE_VAL ValueType = "resource"
)

type Value interface {
	Type() ValueType
	Inspect() string
}

type Null struct{}

func (n *Null) Type() ValueType { return NULL_VAL }
func (n *Null) Inspect() string { return "null" }

type Bool struct {
	Value bool
}

func (b *Bool) Type() ValueType { return BOOLEAN_VAL }
func (b *Bool) Inspect() string {
	if b.Value {
		return "true"
	}
	return "false"
}

type Int struct {
	Value int64
}

func (i *Int) Type() ValueType { return INTEGER_VAL }
func (i *Int) Inspect() string { return strconv.FormatInt(i.Value, 10) }

type Float struct {
	Value float64
}

func (f *Float) Type() ValueType { return FLOAT_VAL }
func (f *Float) Inspect() string { return strconv.FormatFloat(f.Value, 'g', -1, 64) }

type String struct {
	Value string
}

func (s *String) Type() ValueType { return STRING_VAL }
func (s *String) Inspect() string { return s.Value }

// Multibyte reports whether the string holds any non-ASCII byte.
func (s *String) Multibyte() bool {
	return utf8.RuneCountInString(s.Value) != len(s.Value)
}

// Shared immutable leaves.
var (
	NullValue  = &Null{}
	TrueValue  = &Bool{Value: true}
	FalseValue = &Bool{Value: false}
)

func NewBool(b bool) *Bool {
	if b {
		return TrueValue
	}
	return FalseValue
}

func NewInt(n int64) *Int       { return &Int{Value: n} }
func NewFloat(f float64) *Float { return &Float{Value: f} }
func NewString(s string) *String {
	return &String{Value: s}
}

// Key is a sequence key: either an integer or a string.
type Key struct {
	num      int64
	str      string
	isString bool
}

func IntKey(n int64) Key     { return Key{num: n} }
func StringKey(s string) Key { return Key{str: s, isString: true} }

func (k Key) IsString() bool { return k.isString }
func (k Key) Int() int64     { return k.num }

func (k Key) String() string {
	if k.isString {
		return k.str
	}
	return strconv.FormatInt(k.num, 10)
}

type Entry struct {
	Key   Key
	Value Value
}

// Sequence is an ordered keyed collection. The pointer is the sequence's
// identity: two slots holding the same *Sequence alias each other.
type Sequence struct {
	mu      sync.Mutex
	entries []Entry
	load    func() []Entry

	// index maps a key to its first position; built on first keyed access.
	index map[Key]int
	next  int64
}

func NewSequence(entries ...Entry) *Sequence {
	return &Sequence{entries: entries}
}

// List builds a sequence keyed 0..n-1.
func List(values ...Value) *Sequence {
	entries := make([]Entry, len(values))
	for i, v := range values {
		entries[i] = Entry{Key: IntKey(int64(i)), Value: v}
	}
	return &Sequence{entries: entries}
}

// LazySequence defers building the entries until first read.
func LazySequence(load func() []Entry) *Sequence {
	return &Sequence{load: load}
}

func (s *Sequence) Type() ValueType { return SEQUENCE_VAL }
func (s *Sequence) Inspect() string { return fmt.Sprintf("array(%d)", s.Len()) }

// materialize must be called with s.mu held.
func (s *Sequence) materialize() {
	if s.load != nil {
		load := s.load
		s.load = nil
		s.entries = load()
	}
}

func (s *Sequence) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materialize()
	return s.entries
}

func (s *Sequence) Len() int { return len(s.Entries()) }

// indexed must be called with s.mu held.
func (s *Sequence) indexed() {
	s.materialize()
	if s.index != nil {
		return
	}
	s.index = make(map[Key]int, len(s.entries))
	for i, e := range s.entries {
		if _, dup := s.index[e.Key]; !dup {
			s.index[e.Key] = i
		}
		s.bump(e.Key)
	}
}

func (s *Sequence) bump(k Key) {
	if !k.IsString() && k.Int() >= s.next {
		s.next = k.Int() + 1
	}
}

func (s *Sequence) add(k Key, v Value) {
	s.index[k] = len(s.entries)
	s.entries = append(s.entries, Entry{Key: k, Value: v})
	s.bump(k)
}

// Append adds v under the next integer key.
func (s *Sequence) Append(v Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed()
	s.add(IntKey(s.next), v)
}

// Set replaces the value under key, or appends a new entry.
func (s *Sequence) Set(key Key, v Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed()
	if i, ok := s.index[key]; ok {
		s.entries[i].Value = v
		return
	}
	s.add(key, v)
}

func (s *Sequence) Get(key Key) (Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed()
	if i, ok := s.index[key]; ok {
		return s.entries[i].Value, true
	}
	return nil, false
}

// Identity names an object instance. Two objects are the same instance iff
// their identities are equal.
type Identity struct {
	Addr uintptr
	Type string
}

var syntheticIDs atomic.Uint64

// NewIdentity hands out a fresh identity for objects that have no address
// of their own (decoded documents, hand-built values).
func NewIdentity(typeName string) Identity {
	return Identity{Addr: uintptr(syntheticIDs.Add(1)), Type: "#" + typeName}
}

func (id Identity) Key() string {
	return fmt.Sprintf("%s@%x", id.Type, id.Addr)
}

type Attribute struct {
	Name       string
	Value      Value
	Visibility Visibility
}

type Object struct {
	ID    Identity
	Class *TypeDescriptor
	// Iterate yields the object's iteration pairs; nil when not iterable.
	Iterate func() []Entry
	// Incomplete marks an instance whose class could not be resolved.
	Incomplete bool

	mu    sync.Mutex
	attrs []Attribute
	load  func() []Attribute
	names map[string]int
}

func NewObject(class *TypeDescriptor, attrs ...Attribute) *Object {
	name := "object"
	if class != nil {
		name = class.Name
	}
	return &Object{ID: NewIdentity(name), Class: class, attrs: attrs}
}

func LazyObject(id Identity, class *TypeDescriptor, load func() []Attribute) *Object {
	return &Object{ID: id, Class: class, load: load}
}

func (o *Object) Type() ValueType { return OBJECT_VAL }
func (o *Object) Inspect() string {
	if o.Class == nil {
		return "object"
	}
	return o.Class.Name + " object"
}

// materialize must be called with o.mu held.
func (o *Object) materialize() {
	if o.load != nil {
		load := o.load
		o.load = nil
		o.attrs = load()
	}
}

func (o *Object) Attributes() []Attribute {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.materialize()
	return o.attrs
}

// indexed must be called with o.mu held.
func (o *Object) indexed() {
	o.materialize()
	if o.names != nil {
		return
	}
	o.names = make(map[string]int, len(o.attrs))
	for i, a := range o.attrs {
		if _, dup := o.names[a.Name]; !dup {
			o.names[a.Name] = i
		}
	}
}

func (o *Object) SetAttribute(name string, v Value, vis Visibility) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.indexed()
	if i, ok := o.names[name]; ok {
		o.attrs[i].Value = v
		o.attrs[i].Visibility = vis
		return
	}
	o.names[name] = len(o.attrs)
	o.attrs = append(o.attrs, Attribute{Name: name, Value: v, Visibility: vis})
}

func (o *Object) Attribute(name string) (Attribute, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.indexed()
	if i, ok := o.names[name]; ok {
		return o.attrs[i], true
	}
	return Attribute{}, false
}

type MetaEntry struct {
	Key   string
	Value Value
}

// Resource is an opaque external handle. Kind selects the metadata probe.
type Resource struct {
	Kind   string
	Label  string
	Handle any
	// Metadata overrides the kind-based probe when set.
	Metadata func() ([]MetaEntry, error)
}

func (r *Resource) Type() ValueType { return RESOURCE_VAL }
func (r *Resource) Inspect() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Kind
}
