package host

import (
	"iter"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

type base struct {
	ID     int
	secret string
}

func (b *base) Identify() int { return b.ID }

type Account struct {
	base
	Name    string
	balance float64
	Owner   *Owner
	Tags    []string
}

func (a *Account) Deposit(amount float64) { a.balance += amount }

func (a Account) String() string { return a.Name }

type Owner struct {
	Name    string
	Account *Account
}

type Bag struct {
	items []string
}

func (b *Bag) All() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i, item := range b.items {
			if !yield(i*10, item) {
				return
			}
		}
	}
}

func helper(name string, counts ...int) error { return nil }

func attrNames(obj *value.Object) []string {
	var names []string
	for _, a := range obj.Attributes() {
		names = append(names, a.Name)
	}
	return names
}

// TestConvertScalars verifies leaf conversions
func TestConvertScalars(t *testing.T) {
	c := New()
	tests := []struct {
		input    any
		expected value.Value
	}{
		{nil, value.NullValue},
		{true, value.TrueValue},
		{42, value.NewInt(42)},
		{uint8(3), value.NewInt(3)},
		{2.5, value.NewFloat(2.5)},
		{"x", value.NewString("x")},
		{[]byte("hi"), value.NewString("hi")},
		{complex(1, 2), value.NewString("(1+2i)")},
		{(*Owner)(nil), value.NullValue},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, c.Convert(tt.input))
	}

	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, value.NewString("2024-05-01T12:00:00Z"), c.Convert(when))

	doc := value.List(value.NewInt(1))
	assert.Same(t, doc, c.Convert(doc))
}

// TestConvertStruct verifies fields, visibility and promoted fields
func TestConvertStruct(t *testing.T) {
	c := New()
	acc := &Account{base: base{ID: 7, secret: "s"}, Name: "ops", balance: 1.5}

	obj, ok := c.Convert(acc).(*value.Object)
	require.True(t, ok)
	assert.Equal(t, "host.Account", obj.Class.Name)
	assert.Equal(t, []string{"Name", "balance", "Owner", "Tags", "ID", "secret"}, attrNames(obj))

	balance, ok := obj.Attribute("balance")
	require.True(t, ok)
	assert.Equal(t, value.Private, balance.Visibility)
	assert.Equal(t, value.NewFloat(1.5), balance.Value)

	secret, ok := obj.Attribute("secret")
	require.True(t, ok)
	assert.Equal(t, value.NewString("s"), secret.Value)

	owner, _ := obj.Attribute("Owner")
	assert.Equal(t, value.NullValue, owner.Value)
}

// TestConvertCycles verifies repeated references resolve to one value
func TestConvertCycles(t *testing.T) {
	c := New()
	acc := &Account{Name: "ops"}
	acc.Owner = &Owner{Name: "ana", Account: acc}

	obj := c.Convert(acc).(*value.Object)
	owner, _ := obj.Attribute("Owner")
	back, _ := owner.Value.(*value.Object).Attribute("Account")
	assert.Same(t, obj, back.Value)

	loop := make([]any, 1)
	loop[0] = loop
	seq := c.Convert(loop).(*value.Sequence)
	assert.Same(t, seq, seq.Entries()[0].Value)

	m := map[string]any{}
	m["self"] = m
	mseq := c.Convert(m).(*value.Sequence)
	assert.Same(t, mseq, mseq.Entries()[0].Value)
}

// TestConvertMapOrder verifies map keys come out sorted
func TestConvertMapOrder(t *testing.T) {
	c := New()
	seq := c.Convert(map[string]int{"b": 2, "a": 1}).(*value.Sequence)
	entries := seq.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, value.StringKey("a"), entries[0].Key)
	assert.Equal(t, value.StringKey("b"), entries[1].Key)

	seq = c.Convert(map[int]string{10: "x", 2: "y"}).(*value.Sequence)
	entries = seq.Entries()
	assert.Equal(t, value.IntKey(2), entries[0].Key)
	assert.Equal(t, value.IntKey(10), entries[1].Key)
}

// TestDescribe verifies lineage, methods and interfaces
func TestDescribe(t *testing.T) {
	docs := NewDocs()
	docs.Add("host.Account", "Account holds funds.")
	docs.Add("host.Account.Deposit", "Deposit adds funds.\n@param float64 $amount the amount")
	c := New(WithDocs(docs))

	td := c.Describe(reflect.TypeFor[Account]())
	require.NotNil(t, td.Parent)
	assert.Equal(t, "host.base", td.Parent.Name)
	assert.Equal(t, "Account holds funds.", td.Doc)
	assert.False(t, td.IsInternal())

	deposit, ok := td.Method("Deposit")
	require.True(t, ok)
	assert.Same(t, td, deposit.DeclaredBy)
	require.Len(t, deposit.Params, 1)
	assert.Equal(t, "amount", deposit.Params[0].Name)
	assert.Equal(t, "float64", deposit.Params[0].HintName)
	assert.NotEmpty(t, deposit.File)

	identify, ok := td.Method("Identify")
	require.True(t, ok)
	assert.Same(t, td.Parent, identify.DeclaredBy)

	str, ok := td.Method("String")
	require.True(t, ok)
	assert.Same(t, td, str.DeclaredBy)
	require.NotNil(t, str.Prototype)
	assert.Equal(t, "fmt.Stringer", str.Prototype.Name)
	assert.True(t, str.Prototype.IsInternal())
	assert.Equal(t, "https://pkg.go.dev/fmt#Stringer", str.Prototype.Link)

	var ifaces []string
	for _, i := range td.Interfaces {
		ifaces = append(ifaces, i.Name)
	}
	assert.Contains(t, ifaces, "fmt.Stringer")

	prop, ok := td.Property("ID")
	require.True(t, ok)
	assert.Same(t, td.Parent, prop.DeclaredBy)

	assert.Same(t, td, c.Describe(reflect.TypeFor[Account]()))
}

// TestIterable verifies All() iterators are drawn into entries
func TestIterable(t *testing.T) {
	c := New()
	obj := c.Convert(&Bag{items: []string{"a", "b"}}).(*value.Object)
	assert.True(t, obj.Class.Is(value.Iterable))
	require.NotNil(t, obj.Iterate)

	entries := obj.Iterate()
	require.Len(t, entries, 2)
	assert.Equal(t, value.IntKey(10), entries[1].Key)
	assert.Equal(t, value.NewString("b"), entries[1].Value)

	plain := c.Convert(&Owner{}).(*value.Object)
	assert.Nil(t, plain.Iterate)
}

// TestResources verifies handles are classified as resources
func TestResources(t *testing.T) {
	c := New()

	ch := make(chan int, 4)
	r, ok := c.Convert(ch).(*value.Resource)
	require.True(t, ok)
	assert.Equal(t, KindChan, r.Kind)
	assert.Equal(t, "chan int", r.Label)

	r, ok = c.Convert(helper).(*value.Resource)
	require.True(t, ok)
	assert.Equal(t, KindFunc, r.Kind)
	assert.Contains(t, r.Label, "host.helper")

	f, err := os.Create(filepath.Join(t.TempDir(), "out.log"))
	require.NoError(t, err)
	defer f.Close()
	r, ok = c.Convert(f).(*value.Resource)
	require.True(t, ok)
	assert.Equal(t, KindStream, r.Kind)
	assert.Same(t, f, r.Handle)

	c.RegisterResource(reflect.TypeFor[*Bag](), "bag", func(handle any) ([]value.MetaEntry, error) {
		return []value.MetaEntry{{Key: "items", Value: value.NewInt(int64(len(handle.(*Bag).items)))}}, nil
	})
	r, ok = c.Convert(&Bag{items: []string{"x"}}).(*value.Resource)
	require.True(t, ok)
	meta, err := r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, value.NewInt(1), meta[0].Value)
}

// TestSymbols verifies registered types, functions and constants
func TestSymbols(t *testing.T) {
	c := New()
	c.RegisterType(&Account{}, 42)
	c.RegisterFunc("host.helper", helper)
	c.DeclareConst(Account{}, "Limit", 100)

	td, ok := c.Symbols().LookupType("host.Account")
	require.True(t, ok)
	assert.Equal(t, "host.Account", td.Name)

	fn, ok := c.Symbols().LookupFunc("host.helper")
	require.True(t, ok)
	require.Len(t, fn.Params, 2)
	assert.True(t, fn.Params[1].Variadic)
	assert.Equal(t, "...int", fn.Params[1].HintName)
	assert.False(t, fn.Internal)

	described := c.Describe(reflect.TypeFor[Account]())
	require.Len(t, described.Constants, 1)
	assert.Equal(t, "Limit", described.Constants[0].Name)
	assert.Equal(t, value.NewInt(100), described.Constants[0].Value)
}

// TestStdlibHelpers verifies package classification and links
func TestStdlibHelpers(t *testing.T) {
	assert.True(t, stdlibPackage("net/http"))
	assert.False(t, stdlibPackage("github.com/gorilla/websocket"))
	assert.False(t, stdlibPackage("main"))
	assert.Equal(t, "https://pkg.go.dev/time#Time", typeLink(reflect.TypeFor[time.Time]()))
	assert.Equal(t, "https://pkg.go.dev/builtin#error", typeLink(reflect.TypeFor[error]()))
}
