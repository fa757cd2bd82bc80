package ledger

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chosenoffset/refscope/pkg/refscope"
	"github.com/chosenoffset/refscope/pkg/refscope/sink"
)

type captured struct {
	mu   sync.Mutex
	docs []sink.Document
}

func (c *captured) Deliver(doc sink.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append(c.docs, doc)
	return nil
}

func (c *captured) tags() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var tags []string
	for _, d := range c.docs {
		tags = append(tags, d.Tags...)
	}
	return tags
}

func newTestLedger(t *testing.T) (*Ledger, *captured, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	in := refscope.New(refscope.WithFormat("text"), refscope.WithLogger(logger))
	c := &captured{}
	in.RegisterSink("capture", c)

	l := NewLedger(in, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/account", l.HandleCreateAccount)
	mux.HandleFunc("/balance", l.HandleGetBalance)
	mux.HandleFunc("/transfer", l.HandleTransfer)
	mux.HandleFunc("/inspect", l.HandleInspect)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return l, c, ts
}

func post(t *testing.T, url, body string) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestCreateAccount(t *testing.T) {
	l, c, ts := newTestLedger(t)

	assert.Equal(t, http.StatusCreated, post(t, ts.URL+"/account", `{"id":"alice","balance":100}`))
	assert.Equal(t, http.StatusConflict, post(t, ts.URL+"/account", `{"id":"alice","balance":5}`))
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/account", `{"balance":5}`))
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/account", `{"id":"bob","balance":-1}`))
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/account", `not json`))

	assert.Equal(t, []string{"alice"}, l.Accounts())
	assert.Equal(t, []string{"account"}, c.tags())

	code, body := get(t, ts.URL+"/balance?id=alice")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "100.00", body)
}

// TestTransfer verifies balances move and each outcome is published
func TestTransfer(t *testing.T) {
	l, c, ts := newTestLedger(t)
	require.Equal(t, http.StatusCreated, post(t, ts.URL+"/account", `{"id":"alice","balance":100}`))
	require.Equal(t, http.StatusCreated, post(t, ts.URL+"/account", `{"id":"bob","balance":0}`))

	assert.Equal(t, http.StatusOK, post(t, ts.URL+"/transfer", `{"from":"alice","to":"bob","amount":40}`))
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/transfer", `{"from":"bob","to":"alice","amount":500}`))
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/transfer", `{"from":"bob","to":"alice","amount":0}`))
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/transfer", `{"from":"bob","to":"bob","amount":1}`))
	assert.Equal(t, http.StatusNotFound, post(t, ts.URL+"/transfer", `{"from":"bob","to":"carol","amount":1}`))

	_, body := get(t, ts.URL+"/balance?id=alice")
	assert.Equal(t, "60.00", body)
	_, body = get(t, ts.URL+"/balance?id=bob")
	assert.Equal(t, "40.00", body)

	assert.Equal(t, 1, l.Transfers())
	assert.Equal(t, []string{"account", "account", "transfer", "overdraft"}, c.tags())

	c.mu.Lock()
	doc := c.docs[2]
	c.mu.Unlock()
	assert.True(t, strings.HasPrefix(doc.Body, `> transfer("alice", "bob", 40.00)`), doc.Body)
	assert.Contains(t, doc.Body, "History")
}

func TestBalanceErrors(t *testing.T) {
	_, _, ts := newTestLedger(t)

	code, _ := get(t, ts.URL+"/balance")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get(t, ts.URL+"/balance?id=ghost")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, http.StatusMethodNotAllowed, post(t, ts.URL+"/balance?id=ghost", ""))
}

func TestInspect(t *testing.T) {
	_, _, ts := newTestLedger(t)
	require.Equal(t, http.StatusCreated, post(t, ts.URL+"/account", `{"id":"alice","balance":100}`))

	code, body := get(t, ts.URL+"/inspect?id=alice")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `account("alice")`)
	assert.Contains(t, body, "Account object")

	code, body = get(t, ts.URL+"/inspect")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "> ledger")

	code, _ = get(t, ts.URL+"/inspect?id=ghost")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInspectDisabled(t *testing.T) {
	l := NewLedger(nil, nil)
	rec := httptest.NewRecorder()
	l.HandleInspect(rec, httptest.NewRequest(http.MethodGet, "/inspect", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

// TestConcurrentTransfers verifies the total balance is conserved
func TestConcurrentTransfers(t *testing.T) {
	l, _, ts := newTestLedger(t)
	require.Equal(t, http.StatusCreated, post(t, ts.URL+"/account", `{"id":"a","balance":1000}`))
	require.Equal(t, http.StatusCreated, post(t, ts.URL+"/account", `{"id":"b","balance":1000}`))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := `{"from":"a","to":"b","amount":10}`
			if i%2 == 1 {
				body = `{"from":"b","to":"a","amount":10}`
			}
			resp, err := http.Post(ts.URL+"/transfer", "application/json", strings.NewReader(body))
			if err == nil {
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	_, a := get(t, ts.URL+"/balance?id=a")
	_, b := get(t, ts.URL+"/balance?id=b")
	assert.Equal(t, "1000.00", a)
	assert.Equal(t, "1000.00", b)
	assert.Equal(t, 20, l.Transfers())
}
