package refscope

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/chosenoffset/refscope/pkg/refscope/format"
	"github.com/chosenoffset/refscope/pkg/refscope/heuristics"
	"github.com/chosenoffset/refscope/pkg/refscope/host"
	"github.com/chosenoffset/refscope/pkg/refscope/value"
)

func (c *renderContext) resource(r *value.Resource) {
	c.f.Text(format.Tag("resource"), r.Inspect(), format.Hint("resource("+r.Kind+")"), "")
	if !c.cfg.ShowResourceInfo {
		c.f.EmptyGroup(r.Kind)
		return
	}
	entries, err := probe(r)
	if err != nil {
		c.logger.Debug("resource metadata unavailable", "kind", r.Kind, "error", err)
	}
	if err != nil || len(entries) == 0 {
		c.f.EmptyGroup(r.Kind)
		return
	}
	if !c.f.StartGroup(r.Kind) {
		return
	}

	titles := make([]string, len(entries))
	width := 0
	for i, e := range entries {
		titles[i] = propertyTitle(e.Key)
		width = max(width, utf8.RuneCountInString(titles[i]))
	}
	c.plain++
	for i, e := range entries {
		c.f.StartRow()
		c.f.Text(format.Tag("resourceProp"), titles[i], nil, "")
		c.f.ColumnDivider(width - utf8.RuneCountInString(titles[i]))
		c.f.Sep(":")
		c.f.ColumnDivider(0)
		c.evaluate(e.Value, false)
		c.f.EndRow()
	}
	c.plain--
	c.f.EndGroup()
}

// propertyTitle turns a metadata key such as "remote_address" into
// "Remote Address".
func propertyTitle(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// probe reads the metadata of r: its own Metadata func when set, otherwise
// the probe for its kind. Unknown kinds have no metadata.
func probe(r *value.Resource) (entries []value.MetaEntry, err error) {
	defer func() {
		if p := recover(); p != nil {
			entries, err = nil, fmt.Errorf("%s probe panicked: %v", r.Kind, p)
		}
	}()
	if r.Metadata != nil {
		return r.Metadata()
	}

	switch r.Kind {
	case host.KindStream:
		if f, ok := r.Handle.(*os.File); ok {
			return probeFile(f)
		}
	case host.KindSocket:
		if conn, ok := r.Handle.(net.Conn); ok {
			return probeConn(conn), nil
		}
	case host.KindListener:
		if l, ok := r.Handle.(net.Listener); ok {
			return []value.MetaEntry{
				{Key: "protocol", Value: value.NewString(l.Addr().Network())},
				{Key: "address", Value: value.NewString(l.Addr().String())},
			}, nil
		}
	case host.KindWebsocket:
		if ws, ok := r.Handle.(*websocket.Conn); ok {
			return append(probeConn(ws.UnderlyingConn()),
				value.MetaEntry{Key: "subprotocol", Value: value.NewString(ws.Subprotocol())}), nil
		}
	case host.KindHTTPClient:
		if client, ok := r.Handle.(*http.Client); ok {
			return probeHTTPClient(client), nil
		}
	case host.KindChan:
		if rv, ok := r.Handle.(reflect.Value); ok {
			return []value.MetaEntry{
				{Key: "element_type", Value: value.NewString(rv.Type().Elem().String())},
				{Key: "direction", Value: value.NewString(rv.Type().ChanDir().String())},
				{Key: "length", Value: value.NewInt(int64(rv.Len()))},
				{Key: "capacity", Value: value.NewInt(int64(rv.Cap()))},
			}, nil
		}
	case host.KindFunc:
		if rv, ok := r.Handle.(reflect.Value); ok {
			return probeFunc(rv)
		}
	default:
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected %s handle %T", r.Kind, r.Handle)
}

func probeFile(f *os.File) ([]value.MetaEntry, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", f.Name(), err)
	}
	_, seekErr := f.Seek(0, io.SeekCurrent)
	return []value.MetaEntry{
		{Key: "uri", Value: value.NewString(f.Name())},
		{Key: "mode", Value: value.NewString(heuristics.Permissions(info.Mode()))},
		{Key: "size", Value: value.NewString(humanize.IBytes(uint64(info.Size())))},
		{Key: "modified", Value: value.NewString(info.ModTime().Format(time.RFC3339))},
		{Key: "seekable", Value: value.NewBool(seekErr == nil)},
	}, nil
}

func probeConn(conn net.Conn) []value.MetaEntry {
	entries := []value.MetaEntry{
		{Key: "protocol", Value: value.NewString(conn.LocalAddr().Network())},
		{Key: "local_address", Value: value.NewString(conn.LocalAddr().String())},
	}
	if remote := conn.RemoteAddr(); remote != nil {
		entries = append(entries, value.MetaEntry{Key: "remote_address", Value: value.NewString(remote.String())})
	}
	return entries
}

func probeHTTPClient(client *http.Client) []value.MetaEntry {
	timeout := "none"
	if client.Timeout > 0 {
		timeout = client.Timeout.String()
	}
	transport := "http.DefaultTransport"
	if client.Transport != nil {
		transport = fmt.Sprintf("%T", client.Transport)
	}
	return []value.MetaEntry{
		{Key: "timeout", Value: value.NewString(timeout)},
		{Key: "transport", Value: value.NewString(transport)},
		{Key: "cookie_jar", Value: value.NewBool(client.Jar != nil)},
		{Key: "custom_redirects", Value: value.NewBool(client.CheckRedirect != nil)},
	}
}

func probeFunc(rv reflect.Value) ([]value.MetaEntry, error) {
	if rv.IsNil() {
		return nil, nil
	}
	f := runtime.FuncForPC(rv.Pointer())
	if f == nil {
		return nil, fmt.Errorf("no symbol for func %s", rv.Type())
	}
	file, line := f.FileLine(f.Entry())
	return []value.MetaEntry{
		{Key: "name", Value: value.NewString(f.Name())},
		{Key: "signature", Value: value.NewString(rv.Type().String())},
		{Key: "defined_in", Value: value.NewString(fmt.Sprintf("%s:%d", filepath.Base(file), line))},
	}, nil
}
