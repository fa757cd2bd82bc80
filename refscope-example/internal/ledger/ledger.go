// Package ledger provides a simple financial ledger for the refscope example
// application. It implements account management and transfers with
// thread-safe access, and publishes a snapshot of every account it touches
// to a refscope inspector.
//
// The ledger keeps accounts in memory and provides HTTP handlers for:
//   - Account creation with initial balance
//   - Balance queries by account ID
//   - Fund transfers between accounts with validation
//   - Rendering an account in the inspector's format
//
// Snapshots are published after each mutation while the ledger lock is
// still held, so a document always shows a consistent set of balances.
package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/chosenoffset/refscope/pkg/refscope"
)

// Account is one ledger account. History is append-only.
type Account struct {
	ID      string
	Balance float64
	Opened  time.Time
	History []Transfer
}

// Transfer records a movement of funds between two accounts.
type Transfer struct {
	From   string
	To     string
	Amount float64
	At     time.Time
}

// Ledger manages account balances and provides thread-safe operations
type Ledger struct {
	mu        sync.RWMutex
	accounts  map[string]*Account
	transfers int

	inspector *refscope.Inspector
	logger    *slog.Logger
}

// NewLedger returns an empty ledger. A nil inspector disables publishing.
func NewLedger(in *refscope.Inspector, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		accounts:  make(map[string]*Account),
		inspector: in,
		logger:    logger,
	}
}

// Accounts returns the account IDs in sorted order.
func (l *Ledger) Accounts() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.accounts))
	for id := range l.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Transfers returns the number of completed transfers.
func (l *Ledger) Transfers() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.transfers
}

// publish must be called with l.mu held.
func (l *Ledger) publish(subject any, expression string, tags ...string) {
	if l.inspector == nil {
		return
	}
	if _, err := l.inspector.Publish(subject, expression, tags...); err != nil {
		l.logger.Warn("failed to publish ledger snapshot", "expression", expression, "error", err)
	}
}

// CreateAccountRequest is the input for /account
type CreateAccountRequest struct {
	ID      string  `json:"id"`
	Balance float64 `json:"balance"`
}

func (l *Ledger) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Balance < 0 {
		http.Error(w, "negative opening balance", http.StatusBadRequest)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.accounts[req.ID]; exists {
		http.Error(w, "account already exists", http.StatusConflict)
		return
	}

	acc := &Account{ID: req.ID, Balance: req.Balance, Opened: time.Now()}
	l.accounts[req.ID] = acc
	l.logger.Info("account created", "account_id", req.ID, "balance", req.Balance)
	l.publish(acc, fmt.Sprintf("account(%q)", req.ID), "account")

	w.WriteHeader(http.StatusCreated)
}

func (l *Ledger) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.accounts[id]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	fmt.Fprintf(w, "%.2f", acc.Balance)
}

type TransferRequest struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

func (l *Ledger) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if req.Amount <= 0 {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}
	if req.From == req.To {
		http.Error(w, "cannot transfer to the same account", http.StatusBadRequest)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	from, fromOk := l.accounts[req.From]
	to, toOk := l.accounts[req.To]

	if !fromOk || !toOk {
		http.Error(w, "invalid account(s)", http.StatusNotFound)
		return
	}

	if from.Balance < req.Amount {
		l.publish(from, fmt.Sprintf("overdraft(%q, %.2f)", req.From, req.Amount), "overdraft")
		http.Error(w, "insufficient funds", http.StatusBadRequest)
		return
	}

	t := Transfer{From: req.From, To: req.To, Amount: req.Amount, At: time.Now()}
	from.Balance -= req.Amount
	to.Balance += req.Amount
	from.History = append(from.History, t)
	to.History = append(to.History, t)
	l.transfers++
	l.publish([]*Account{from, to}, fmt.Sprintf("transfer(%q, %q, %.2f)", req.From, req.To, req.Amount), "transfer")

	w.WriteHeader(http.StatusOK)
}

// HandleInspect renders one account, or the whole ledger when no id is
// given, with the inspector's configured format.
func (l *Ledger) HandleInspect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if l.inspector == nil {
		http.Error(w, "inspection disabled", http.StatusNotImplemented)
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var (
		subject any = l.accounts
		expr        = "ledger"
	)
	if id := r.URL.Query().Get("id"); id != "" {
		acc, ok := l.accounts[id]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		subject, expr = acc, fmt.Sprintf("account(%q)", id)
	}

	body, err := l.inspector.Render(subject, expr)
	if err != nil {
		l.logger.Error("failed to render ledger", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, body)
}
