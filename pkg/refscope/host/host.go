// Package host turns Go values into inspector values through reflection.
//
// Structs become objects whose class is described once per type: embedded
// structs form the lineage (the first one is the parent, the rest act as
// traits), exported fields are public and unexported ones private, and the
// method set of the pointer type provides the methods. Slices, arrays and
// maps become sequences, and files, connections, channels and functions
// become resources. Members are converted lazily, when the renderer asks
// for them, so large graphs cost only what is shown.
package host

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"slices"
	"strconv"
	"sync"
	"time"
	"unsafe"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

const (
	defaultCacheSize = 512
	// maxIterate caps the pairs drawn from an All() iterator.
	maxIterate = 10000
)

var timeType = reflect.TypeFor[time.Time]()

type constant struct {
	name  string
	value value.Value
}

// Converter converts values and describes their types. It is safe for
// concurrent use; each Convert call has its own identity memo.
type Converter struct {
	mu          sync.Mutex
	descriptors *lru.Cache[reflect.Type, *value.TypeDescriptor]
	symbols     *value.Registry
	docs        *Docs
	interfaces  []reflect.Type
	constants   map[reflect.Type][]constant

	resMu     sync.RWMutex
	resources map[reflect.Type]resourceProbe

	logger *slog.Logger
}

type Option func(*Converter)

// WithSymbols shares a symbol table with the converter.
func WithSymbols(r *value.Registry) Option {
	return func(c *Converter) { c.symbols = r }
}

func WithDocs(d *Docs) Option {
	return func(c *Converter) { c.docs = d }
}

// WithCacheSize bounds the number of type descriptors kept.
func WithCacheSize(n int) Option {
	return func(c *Converter) {
		if cache, err := lru.New[reflect.Type, *value.TypeDescriptor](n); err == nil {
			c.descriptors = cache
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) { c.logger = logger }
}

func New(opts ...Option) *Converter {
	cache, _ := lru.New[reflect.Type, *value.TypeDescriptor](defaultCacheSize)
	c := &Converter{
		descriptors: cache,
		symbols:     value.NewRegistry(),
		docs:        NewDocs(),
		interfaces:  slices.Clone(defaultInterfaces),
		constants:   make(map[reflect.Type][]constant),
		resources:   make(map[reflect.Type]resourceProbe),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Converter) Symbols() *value.Registry { return c.symbols }
func (c *Converter) Docs() *Docs              { return c.docs }

// RegisterType describes the types of the samples and adds them to the
// symbol table. Pointers are followed to their element type.
func (c *Converter) RegisterType(samples ...any) {
	for _, sample := range samples {
		t := reflect.TypeOf(sample)
		for t != nil && t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t == nil || t.Kind() != reflect.Struct {
			c.logger.Warn("skipping type registration", "type", fmt.Sprint(t))
			continue
		}
		c.symbols.RegisterType(c.Describe(t))
	}
}

// RegisterInterface adds an interface that described types are checked
// against and makes it known to the symbol table.
func (c *Converter) RegisterInterface(t reflect.Type) {
	if t.Kind() != reflect.Interface {
		return
	}
	c.mu.Lock()
	if !slices.Contains(c.interfaces, t) {
		c.interfaces = append(c.interfaces, t)
		c.descriptors.Purge()
	}
	td := c.describe(t)
	c.mu.Unlock()
	c.symbols.RegisterType(td)
}

// RegisterFunc adds a free function to the symbol table under name.
func (c *Converter) RegisterFunc(name string, fn any) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return
	}
	c.mu.Lock()
	m := c.method(name, name, rv.Type(), rv, 0)
	c.mu.Unlock()
	m.Package, m.Internal = funcPackage(rv)
	if m.Internal {
		m.Link = pkgLink(m.Package, shortName(name))
	}
	c.symbols.RegisterFunc(&m)
}

// DeclareConst attaches a named constant to the type of sample.
func (c *Converter) DeclareConst(sample any, name string, v any) {
	t := reflect.TypeOf(sample)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return
	}
	converted := c.Convert(v)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.constants[t] = append(c.constants[t], constant{name: name, value: converted})
	c.descriptors.Remove(t)
}

// Convert turns v into a value. Values that already are inspector values
// are returned unchanged.
func (c *Converter) Convert(v any) value.Value {
	if vv, ok := v.(value.Value); ok {
		return vv
	}
	s := &session{c: c, memo: make(map[value.Identity]value.Value)}
	return s.convert(reflect.ValueOf(v))
}

type session struct {
	c    *Converter
	memo map[value.Identity]value.Value
}

// expose lifts the read-only flag off values reached through unexported
// fields so they can be read like any other.
func expose(rv reflect.Value) reflect.Value {
	if rv.CanAddr() && !rv.CanInterface() {
		return reflect.NewAt(rv.Type(), unsafe.Pointer(rv.UnsafeAddr())).Elem()
	}
	return rv
}

func (s *session) convert(rv reflect.Value) value.Value {
	if !rv.IsValid() {
		return value.NullValue
	}
	rv = expose(rv)
	if r, ok := s.c.resource(rv); ok {
		return r
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return value.NullValue
		}
		return s.convert(rv.Elem())
	case reflect.Pointer:
		if rv.IsNil() {
			return value.NullValue
		}
		return s.convert(rv.Elem())
	case reflect.Bool:
		return value.NewBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.NewInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return value.NewFloat(float64(u))
		}
		return value.NewInt(int64(u))
	case reflect.Float32, reflect.Float64:
		return value.NewFloat(rv.Float())
	case reflect.Complex64, reflect.Complex128:
		return value.NewString(strconv.FormatComplex(rv.Complex(), 'g', -1, 128))
	case reflect.String:
		return value.NewString(rv.String())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return value.NewString(string(rv.Bytes()))
		}
		return s.slice(rv)
	case reflect.Array:
		return s.list(rv)
	case reflect.Map:
		return s.mapping(rv)
	case reflect.Struct:
		return s.object(rv)
	case reflect.UnsafePointer:
		return value.NewInt(int64(rv.Pointer()))
	case reflect.Chan, reflect.Func:
		// non-nil ones were taken as resources
		return value.NullValue
	}
	return value.NewString(rv.String())
}

func (s *session) object(rv reflect.Value) value.Value {
	t := rv.Type()
	if t == timeType && rv.CanInterface() {
		return value.NewString(rv.Interface().(time.Time).Format(time.RFC3339Nano))
	}

	class := s.c.Describe(t)
	var id value.Identity
	switch {
	case rv.CanAddr():
		id = value.Identity{Addr: rv.UnsafeAddr(), Type: class.Name}
	case rv.CanInterface():
		cp := reflect.New(t).Elem()
		cp.Set(rv)
		rv = cp
		id = value.NewIdentity(class.Name)
	default:
		return &value.Object{ID: value.NewIdentity(class.Name), Class: class, Incomplete: true}
	}

	if v, ok := s.memo[id]; ok {
		return v
	}
	obj := value.LazyObject(id, class, func() []value.Attribute {
		return s.attributes(rv)
	})
	if class.Is(value.Iterable) {
		obj.Iterate = func() []value.Entry { return s.iterate(rv) }
	}
	s.memo[id] = obj
	return obj
}

// attributes lists the fields of an addressable struct followed by the
// fields promoted from embedded structs that are not shadowed.
func (s *session) attributes(rv reflect.Value) []value.Attribute {
	t := rv.Type()
	var (
		attrs    []value.Attribute
		embedded []reflect.Value
		seen     = make(map[string]bool)
	)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fv := rv.Field(i)
		if _, ok := embeddedStruct(f); ok {
			embedded = append(embedded, fv)
			continue
		}
		seen[f.Name] = true
		attrs = append(attrs, value.Attribute{
			Name:       f.Name,
			Value:      s.convert(fv),
			Visibility: visibility(f),
		})
	}
	for _, ev := range embedded {
		ev = expose(ev)
		if ev.Kind() == reflect.Pointer {
			if ev.IsNil() {
				continue
			}
			ev = expose(ev.Elem())
		}
		for _, a := range s.attributes(ev) {
			if !seen[a.Name] {
				seen[a.Name] = true
				attrs = append(attrs, a)
			}
		}
	}
	return attrs
}

func (s *session) slice(rv reflect.Value) value.Value {
	if rv.Len() == 0 {
		return value.NewSequence()
	}
	id := value.Identity{Addr: rv.Pointer(), Type: fmt.Sprintf("%s[%d]", rv.Type(), rv.Len())}
	if v, ok := s.memo[id]; ok {
		return v
	}
	seq := s.list(rv)
	s.memo[id] = seq
	return seq
}

func (s *session) list(rv reflect.Value) *value.Sequence {
	return value.LazySequence(func() []value.Entry {
		entries := make([]value.Entry, rv.Len())
		for i := range entries {
			entries[i] = value.Entry{Key: value.IntKey(int64(i)), Value: s.convert(rv.Index(i))}
		}
		return entries
	})
}

func (s *session) mapping(rv reflect.Value) value.Value {
	if rv.IsNil() || rv.Len() == 0 {
		return value.NewSequence()
	}
	id := value.Identity{Addr: rv.Pointer(), Type: rv.Type().String()}
	if v, ok := s.memo[id]; ok {
		return v
	}
	seq := value.LazySequence(func() []value.Entry {
		keys := rv.MapKeys()
		slices.SortFunc(keys, compareKeys)
		entries := make([]value.Entry, 0, len(keys))
		for _, k := range keys {
			entries = append(entries, value.Entry{Key: toKey(k), Value: s.convert(rv.MapIndex(k))})
		}
		return entries
	})
	s.memo[id] = seq
	return seq
}

// iterate draws the pairs of an All() iterator, either iter.Seq2 or
// iter.Seq. A panicking iterator yields what it produced so far.
func (s *session) iterate(rv reflect.Value) (entries []value.Entry) {
	m := rv.Addr().MethodByName("All")
	if !m.IsValid() {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			s.c.logger.Warn("iterator panicked", "type", rv.Type().String(), "panic", r)
		}
	}()

	seq := m.Call(nil)[0]
	if seq.IsNil() {
		return nil
	}
	yield := reflect.MakeFunc(seq.Type().In(0), func(args []reflect.Value) []reflect.Value {
		e := value.Entry{Key: value.IntKey(int64(len(entries)))}
		if len(args) == 2 {
			e.Key = toKey(args[0])
			e.Value = s.convert(args[1])
		} else {
			e.Value = s.convert(args[0])
		}
		entries = append(entries, e)
		return []reflect.Value{reflect.ValueOf(len(entries) < maxIterate)}
	})
	seq.Call([]reflect.Value{yield})
	return entries
}

func toKey(k reflect.Value) value.Key {
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.IntKey(k.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := k.Uint(); u <= math.MaxInt64 {
			return value.IntKey(int64(u))
		}
	case reflect.String:
		return value.StringKey(k.String())
	}
	if k.CanInterface() {
		return value.StringKey(fmt.Sprint(k.Interface()))
	}
	return value.StringKey(k.String())
}

func compareKeys(a, b reflect.Value) int {
	switch a.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(a.Uint(), b.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float())
	case reflect.String:
		return cmp.Compare(a.String(), b.String())
	}
	return cmp.Compare(toKey(a).String(), toKey(b).String())
}

func visibility(f reflect.StructField) value.Visibility {
	if f.IsExported() {
		return value.Public
	}
	return value.Private
}
