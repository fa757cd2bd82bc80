package scenario

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chosenoffset/refscope/refscope-example/internal/ledger"
)

func newLedgerServer(t *testing.T) (*ledger.Ledger, *Client) {
	t.Helper()
	l := ledger.NewLedger(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("/account", l.HandleCreateAccount)
	mux.HandleFunc("/transfer", l.HandleTransfer)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return l, &Client{HTTP: ts.Client(), BaseURL: ts.URL}
}

// TestSetupIsIdempotent verifies a second setup accepts existing accounts
func TestSetupIsIdempotent(t *testing.T) {
	l, c := newLedgerServer(t)
	ctx := context.Background()

	require.NoError(t, Setup(ctx, c, 100))
	require.NoError(t, Setup(ctx, c, 100))
	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, l.Accounts())
}

func TestScenarios(t *testing.T) {
	l, c := newLedgerServer(t)
	ctx := context.Background()
	require.NoError(t, Setup(ctx, c, 100))

	scenarios, err := Lookup()
	require.NoError(t, err)
	require.Len(t, scenarios, 3)
	for _, sc := range scenarios {
		t.Run(sc.Name(), func(t *testing.T) {
			assert.NoError(t, sc.Run(ctx, c.HTTP, c.BaseURL))
		})
	}
	assert.Equal(t, 10, l.Transfers())

	for range 20 {
		require.NoError(t, RandomTransfer(ctx, c))
	}
}

func TestUnexpectedStatus(t *testing.T) {
	_, c := newLedgerServer(t)
	err := c.Transfer(context.Background(), "alice", "bob", 1, http.StatusOK)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.ErrorContains(t, err, "returned 404")
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"burst", "overdraft", "unknown-account"}, Names())

	scs, err := Lookup("burst")
	require.NoError(t, err)
	assert.Equal(t, "burst", scs[0].Name())

	_, err = Lookup("chaos")
	assert.ErrorContains(t, err, `unknown scenario "chaos"`)
}
