// Package scenario drives traffic against the example ledger server. Each
// scenario exercises one ledger path so the published snapshots cover
// transfers, overdrafts and rejected requests.
package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

type Scenario interface {
	Name() string
	Run(ctx context.Context, client *http.Client, baseURL string) error
}

// Client sends ledger requests and checks their status codes.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

func (c *Client) post(ctx context.Context, path string, body any, want ...int) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	resp.Body.Close()
	if !slices.Contains(want, resp.StatusCode) {
		return fmt.Errorf("%w: %s returned %d, want %v", ErrUnexpectedStatus, path, resp.StatusCode, want)
	}
	return nil
}

// CreateAccount opens an account. An existing account is not an error.
func (c *Client) CreateAccount(ctx context.Context, id string, balance float64) error {
	return c.post(ctx, "/account", map[string]any{"id": id, "balance": balance}, http.StatusCreated, http.StatusConflict)
}

// Transfer moves amount and fails unless the server answers with one of
// the wanted statuses.
func (c *Client) Transfer(ctx context.Context, from, to string, amount float64, want ...int) error {
	return c.post(ctx, "/transfer", map[string]any{"from": from, "to": to, "amount": amount}, want...)
}

// Accounts used by every scenario.
var Accounts = []string{"alice", "bob", "carol", "dave"}

// Setup creates the shared accounts.
func Setup(ctx context.Context, c *Client, balance float64) error {
	for _, id := range Accounts {
		if err := c.CreateAccount(ctx, id, balance); err != nil {
			return fmt.Errorf("failed to create %s: %w", id, err)
		}
	}
	return nil
}

func pair() (string, string) {
	i := rand.IntN(len(Accounts))
	j := (i + 1 + rand.IntN(len(Accounts)-1)) % len(Accounts)
	return Accounts[i], Accounts[j]
}

// RandomTransfer moves a small amount between two accounts. Insufficient
// funds are accepted as an outcome.
func RandomTransfer(ctx context.Context, c *Client) error {
	from, to := pair()
	amount := float64(1 + rand.IntN(25))
	return c.Transfer(ctx, from, to, amount, http.StatusOK, http.StatusBadRequest)
}

type overdraft struct{}

func (overdraft) Name() string { return "overdraft" }

// Run asks for far more than any account holds.
func (overdraft) Run(ctx context.Context, client *http.Client, baseURL string) error {
	from, to := pair()
	return (&Client{HTTP: client, BaseURL: baseURL}).Transfer(ctx, from, to, 1e9, http.StatusBadRequest)
}

type unknownAccount struct{}

func (unknownAccount) Name() string { return "unknown-account" }

func (unknownAccount) Run(ctx context.Context, client *http.Client, baseURL string) error {
	return (&Client{HTTP: client, BaseURL: baseURL}).Transfer(ctx, Accounts[0], "mallory", 1, http.StatusNotFound)
}

// burst sends concurrent transfers around the account ring.
type burst struct {
	size int
}

func (b burst) Name() string { return "burst" }

func (b burst) Run(ctx context.Context, client *http.Client, baseURL string) error {
	c := &Client{HTTP: client, BaseURL: baseURL}
	g, ctx := errgroup.WithContext(ctx)
	for i := range b.size {
		from := Accounts[i%len(Accounts)]
		to := Accounts[(i+1)%len(Accounts)]
		g.Go(func() error {
			return c.Transfer(ctx, from, to, 1, http.StatusOK, http.StatusBadRequest)
		})
	}
	return g.Wait()
}

var builtin = map[string]Scenario{
	"overdraft":       overdraft{},
	"unknown-account": unknownAccount{},
	"burst":           burst{size: 10},
}

// Names returns the built-in scenario names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named scenarios, or all of them when names is empty.
func Lookup(names ...string) ([]Scenario, error) {
	if len(names) == 0 {
		names = Names()
	}
	scenarios := make([]Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := builtin[name]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q (available: %v)", name, Names())
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}
