package host

import (
	"net"
	"net/http"
	"os"
	"reflect"
	"runtime"

	"github.com/gorilla/websocket"

	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

// Resource kinds the converter recognises. The inspector probes each of
// them for metadata.
const (
	KindStream     = "stream"
	KindSocket     = "socket"
	KindListener   = "listener"
	KindWebsocket  = "websocket"
	KindHTTPClient = "http client"
	KindChan       = "chan"
	KindFunc       = "func"
)

var (
	fileType       = reflect.TypeFor[*os.File]()
	websocketType  = reflect.TypeFor[*websocket.Conn]()
	httpClientType = reflect.TypeFor[*http.Client]()
	connType       = reflect.TypeFor[net.Conn]()
	listenerType   = reflect.TypeFor[net.Listener]()
)

type resourceProbe struct {
	kind  string
	probe func(handle any) ([]value.MetaEntry, error)
}

// RegisterResource makes values of type t render as resources of the given
// kind, with probe supplying their metadata.
func (c *Converter) RegisterResource(t reflect.Type, kind string, probe func(handle any) ([]value.MetaEntry, error)) {
	c.resMu.Lock()
	defer c.resMu.Unlock()
	c.resources[t] = resourceProbe{kind: kind, probe: probe}
}

func (c *Converter) resource(rv reflect.Value) (*value.Resource, bool) {
	t := rv.Type()
	switch rv.Kind() {
	case reflect.Chan:
		if rv.IsNil() {
			return nil, false
		}
		return &value.Resource{Kind: KindChan, Label: t.String(), Handle: rv}, true
	case reflect.Func:
		if rv.IsNil() {
			return nil, false
		}
		label := t.String()
		if f := runtime.FuncForPC(rv.Pointer()); f != nil {
			label = f.Name()
		}
		return &value.Resource{Kind: KindFunc, Label: label, Handle: rv}, true
	case reflect.Pointer, reflect.Struct:
	default:
		return nil, false
	}
	if !rv.CanInterface() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return nil, false
	}

	c.resMu.RLock()
	custom, ok := c.resources[t]
	c.resMu.RUnlock()
	if ok {
		handle := rv.Interface()
		return &value.Resource{
			Kind:   custom.kind,
			Label:  t.String(),
			Handle: handle,
			Metadata: func() ([]value.MetaEntry, error) {
				return custom.probe(handle)
			},
		}, true
	}

	var kind string
	switch {
	case t == fileType:
		kind = KindStream
	case t == websocketType:
		kind = KindWebsocket
	case t == httpClientType:
		kind = KindHTTPClient
	case t.Kind() == reflect.Pointer && t.Implements(connType):
		kind = KindSocket
	case t.Kind() == reflect.Pointer && t.Implements(listenerType):
		kind = KindListener
	default:
		return nil, false
	}
	return &value.Resource{Kind: kind, Label: t.String(), Handle: rv.Interface()}, true
}
