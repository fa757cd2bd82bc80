package host

import (
	"encoding"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/chosenoffset/refscope/pkg/refscope/docblock"
	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

// defaultInterfaces are checked against every described type.
var defaultInterfaces = []reflect.Type{
	reflect.TypeFor[fmt.Stringer](),
	reflect.TypeFor[error](),
	reflect.TypeFor[io.Reader](),
	reflect.TypeFor[io.Writer](),
	reflect.TypeFor[io.Closer](),
	reflect.TypeFor[json.Marshaler](),
	reflect.TypeFor[encoding.TextMarshaler](),
	reflect.TypeFor[sort.Interface](),
}

const autogenerated = "<autogenerated>"

// Describe returns the descriptor of a struct or interface type, building
// it on first use.
func (c *Converter) Describe(t reflect.Type) *value.TypeDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.describe(t)
}

func (c *Converter) describe(t reflect.Type) *value.TypeDescriptor {
	if td, ok := c.descriptors.Get(t); ok {
		return td
	}
	td := &value.TypeDescriptor{Name: typeName(t), Package: t.PkgPath()}
	// stored before filling so self-referencing embeds resolve
	c.descriptors.Add(t, td)

	if isStdlib(t) {
		td.Flags |= value.Internal
		td.Link = typeLink(t)
	}
	td.Doc = c.docs.Lookup(td.Name)

	if t.Kind() == reflect.Interface {
		c.fillInterface(td, t)
	} else {
		c.fillStruct(td, t)
	}
	return td
}

func (c *Converter) fillInterface(td *value.TypeDescriptor, t reflect.Type) {
	td.Flags |= value.Interface
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		method := c.method(td.Name+"."+m.Name, m.Name, m.Type, reflect.Value{}, 0)
		method.DeclaredBy = td
		method.Abstract = true
		method.Internal = td.IsInternal()
		td.Methods = append(td.Methods, method)
	}
}

func (c *Converter) fillStruct(td *value.TypeDescriptor, t reflect.Type) {
	var embedded []*value.TypeDescriptor
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if et, ok := embeddedStruct(f); ok {
				embedded = append(embedded, c.describe(et))
				continue
			}
			td.Properties = append(td.Properties, value.Property{
				Name:       f.Name,
				Visibility: visibility(f),
				DeclaredBy: td,
				Doc:        c.docs.Lookup(td.Name + "." + f.Name),
			})
		}
	}
	if len(embedded) > 0 {
		td.Parent = embedded[0]
		td.Traits = embedded[1:]
	}

	for _, k := range c.constants[t] {
		td.Constants = append(td.Constants, value.Constant{Name: k.name, Value: k.value, DeclaredBy: td})
	}
	for _, from := range embedded {
		inherit(td, from)
	}

	pt := reflect.PointerTo(t)
	for _, iface := range c.interfaces {
		if pt.Implements(iface) {
			td.Interfaces = append(td.Interfaces, c.describe(iface))
		}
	}

	c.fillMethods(td, t, embedded)

	if _, ok := pt.MethodByName("Clone"); ok {
		td.Flags |= value.Cloneable
	}
	if iterable(pt) {
		td.Flags |= value.Iterable
	}
	for _, m := range td.Methods {
		if m.DeclaredBy == td && m.File != "" {
			td.File, td.Line = m.File, m.Line
			break
		}
	}
}

// inherit copies the properties and constants of an embedded type that the
// outer type does not shadow.
func inherit(td, from *value.TypeDescriptor) {
	for _, p := range from.Properties {
		if _, ok := td.Property(p.Name); !ok {
			td.Properties = append(td.Properties, p)
		}
	}
	for _, k := range from.Constants {
		if !td.HasConstant(k.Name) {
			td.Constants = append(td.Constants, k)
		}
	}
}

func (c *Converter) fillMethods(td *value.TypeDescriptor, t reflect.Type, embedded []*value.TypeDescriptor) {
	pt := reflect.PointerTo(t)
	for i := 0; i < pt.NumMethod(); i++ {
		pm := pt.Method(i)
		fn := pm.Func
		declared := !isAutogenerated(fn)
		if !declared {
			if vm, ok := t.MethodByName(pm.Name); ok && !isAutogenerated(vm.Func) {
				declared, fn = true, vm.Func
			}
		}

		var method value.Method
		if !declared {
			if inherited, ok := promotedFrom(embedded, pm.Name); ok {
				method = *inherited
			} else {
				declared = true
			}
		}
		if declared {
			method = c.method(td.Name+"."+pm.Name, pm.Name, pm.Type, fn, 1)
			method.DeclaredBy = td
			method.Package = t.PkgPath()
			method.Internal = td.IsInternal()
			if method.Internal && td.Link != "" {
				method.Link = td.Link + "." + pm.Name
			}
		}
		for _, iface := range td.Interfaces {
			if _, ok := iface.Method(pm.Name); ok {
				method.Prototype = iface
				break
			}
		}
		td.Methods = append(td.Methods, method)
	}
}

func promotedFrom(embedded []*value.TypeDescriptor, name string) (*value.Method, bool) {
	for _, e := range embedded {
		if m, ok := e.Method(name); ok {
			return m, true
		}
	}
	return nil, false
}

// method describes a function of type ft; skip drops leading receiver
// parameters. Parameter names come from @param tags of the doc comment.
func (c *Converter) method(key, name string, ft reflect.Type, fn reflect.Value, skip int) value.Method {
	m := value.Method{Name: name, Visibility: value.Public, Doc: c.docs.Lookup(key)}
	if fn.IsValid() {
		if f := runtime.FuncForPC(fn.Pointer()); f != nil {
			if file, line := f.FileLine(f.Entry()); file != autogenerated {
				m.File, m.Line = file, line
			}
		}
	}

	names := paramNames(m.Doc)
	for i := skip; i < ft.NumIn(); i++ {
		in := ft.In(i)
		idx := i - skip
		p := value.Param{Name: "arg" + strconv.Itoa(idx), HintName: in.String()}
		if idx < len(names) && names[idx] != "" {
			p.Name = names[idx]
		}
		if ft.IsVariadic() && i == ft.NumIn()-1 {
			p.Variadic, p.Optional = true, true
			p.HintName = "..." + in.Elem().String()
		}
		if in.Kind() == reflect.Pointer {
			p.ByRef = true
		}
		if st, ok := structOf(in); ok {
			if td, ok := c.symbols.LookupType(typeName(st)); ok {
				p.Hint = td
			}
		}
		m.Params = append(m.Params, p)
	}
	return m
}

func paramNames(doc string) []string {
	comment := docblock.Parse(doc)
	if comment == nil {
		return nil
	}
	var names []string
	for _, tag := range comment.Tags["param"] {
		names = append(names, strings.TrimLeft(tag.Name, "$&"))
	}
	return names
}

func isAutogenerated(fn reflect.Value) bool {
	if !fn.IsValid() {
		return true
	}
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return true
	}
	file, _ := f.FileLine(f.Entry())
	return file == autogenerated
}

// iterable reports whether pt has an All method returning iter.Seq or
// iter.Seq2.
func iterable(pt reflect.Type) bool {
	m, ok := pt.MethodByName("All")
	if !ok || m.Type.NumIn() != 1 || m.Type.NumOut() != 1 {
		return false
	}
	seq := m.Type.Out(0)
	if seq.Kind() != reflect.Func || seq.NumIn() != 1 || seq.NumOut() != 0 {
		return false
	}
	yield := seq.In(0)
	return yield.Kind() == reflect.Func &&
		(yield.NumIn() == 1 || yield.NumIn() == 2) &&
		yield.NumOut() == 1 && yield.Out(0).Kind() == reflect.Bool
}

func embeddedStruct(f reflect.StructField) (reflect.Type, bool) {
	if !f.Anonymous {
		return nil, false
	}
	return structOf(f.Type)
}

func structOf(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, false
	}
	return t, true
}

// typeName qualifies named types with their package name, e.g.
// "ledger.Account".
func typeName(t reflect.Type) string {
	return t.String()
}

// isStdlib reports whether t ships with Go: predeclared types and packages
// whose import path has no dot in its first element.
func isStdlib(t reflect.Type) bool {
	return stdlibPackage(t.PkgPath()) || (t.PkgPath() == "" && t.Name() != "")
}

func stdlibPackage(path string) bool {
	if path == "" || path == "main" {
		return false
	}
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}

func typeLink(t reflect.Type) string {
	if t.Name() == "" {
		return ""
	}
	if t.PkgPath() == "" {
		return pkgLink("builtin", t.Name())
	}
	return pkgLink(t.PkgPath(), t.Name())
}

func pkgLink(pkg, symbol string) string {
	return "https://pkg.go.dev/" + pkg + "#" + symbol
}

// funcPackage returns the import path of the package declaring fn.
func funcPackage(fn reflect.Value) (string, bool) {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return "", false
	}
	name := f.Name()
	slash := strings.LastIndexByte(name, '/')
	dot := strings.IndexByte(name[slash+1:], '.')
	if dot < 0 {
		return "", false
	}
	pkg := name[:slash+1+dot]
	return pkg, stdlibPackage(pkg)
}

func shortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
