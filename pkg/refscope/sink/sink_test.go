package sink

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewDocument verifies documents get an id and a timestamp
func TestNewDocument(t *testing.T) {
	doc := NewDocument("text", "$ledger", "body", "audit")
	assert.NotEqual(t, uuid.Nil, doc.ID)
	assert.Equal(t, []string{"audit"}, doc.Tags)
	assert.False(t, doc.Timestamp.IsZero())
}

// TestConsole verifies the header line and body are written
func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	doc := Document{
		Sequence:   7,
		Expression: "ledger",
		Body:       "array {}\n",
		Timestamp:  time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
	}
	require.NoError(t, NewConsole(&buf).Deliver(doc))
	assert.Equal(t, "[15:04:05] #7 ledger\narray {}\n", buf.String())
}

// TestLog verifies document metadata is logged without the body
func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	doc := NewDocument("html", "x", "<div>secret</div>")

	require.NoError(t, NewLog(logger, slog.LevelInfo).Deliver(doc))
	out := buf.String()
	assert.Contains(t, out, "document_id="+doc.ID.String())
	assert.Contains(t, out, "format=html")
	assert.NotContains(t, out, "secret")
}

// TestRegistry verifies fan-out, replacement and error joining
func TestRegistry(t *testing.T) {
	r := NewRegistry()
	var got []string
	r.Register("a", Func(func(doc Document) error {
		got = append(got, "a:"+doc.Body)
		return nil
	}))
	r.Register("b", Func(func(doc Document) error {
		return errors.New("offline")
	}))
	r.Register("c", Func(func(doc Document) error {
		got = append(got, "c:"+doc.Body)
		return nil
	}))

	var observed []string
	r.Observe(func(name string, err error) {
		observed = append(observed, name)
	})

	err := r.Deliver(Document{Body: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink b: offline")
	assert.Equal(t, []string{"a:1", "c:1"}, got)
	assert.Equal(t, []string{"a", "b", "c"}, observed)

	r.Register("b", Func(func(Document) error { return nil }))
	assert.Equal(t, []string{"a", "b", "c"}, r.Names())
	assert.NoError(t, r.Deliver(Document{Body: "2"}))

	assert.True(t, r.Unregister("a"))
	assert.False(t, r.Unregister("a"))
	assert.Equal(t, 2, r.Len())
}

// TestEmptyRegistry verifies delivering without sinks is a no-op
func TestEmptyRegistry(t *testing.T) {
	assert.NoError(t, NewRegistry().Deliver(NewDocument("text", "", "")))
}
