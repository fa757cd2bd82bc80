package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/chosenoffset/refscope/pkg/refscope"
	"github.com/chosenoffset/refscope/pkg/refscope/dashboard"
	"github.com/chosenoffset/refscope/pkg/refscope/host"
	"github.com/chosenoffset/refscope/pkg/refscope/metrics"
	"github.com/chosenoffset/refscope/pkg/refscope/sink"
)

type Auditable interface {
	Audit() []string
}

type record struct {
	ID      int
	Created time.Time
	note    string
}

func (r *record) Audit() []string { return []string{r.note} }

type Account struct {
	record
	Owner   *Owner
	Balance float64
	Entries []Entry
	// Metadata holds the raw JSON the account was imported from.
	Metadata string
	events   chan string
}

func (a *Account) Credit(amount float64, memo string) {
	a.Balance += amount
	a.Entries = append(a.Entries, Entry{Amount: amount, Memo: memo})
}

func (a *Account) Debit(amount float64, memo ...string) bool {
	if amount > a.Balance {
		return false
	}
	a.Credit(-amount, fmt.Sprint(memo))
	return true
}

type Owner struct {
	Name     string
	Email    string
	Accounts []*Account
	session  string
}

type Entry struct {
	Amount float64
	Memo   string
}

func Transfer(from, to *Account, amount float64) error {
	if !from.Debit(amount, "transfer") {
		return fmt.Errorf("insufficient funds")
	}
	to.Credit(amount, "transfer")
	return nil
}

func newLedger() *Owner {
	owner := &Owner{Name: "Ada", Email: "ada@example.com", session: `a:2:{s:4:"user";s:3:"ada";s:5:"roles";a:1:{i:0;s:5:"admin";}}`}
	for i := range 2 {
		acc := &Account{
			record:   record{ID: i + 1, Created: time.Now(), note: "opened"},
			Owner:    owner,
			Metadata: fmt.Sprintf(`{"source":"import","batch":%d,"pattern":"/^acc-\\d+$/"}`, i),
			events:   make(chan string, 8),
		}
		acc.Credit(100, "opening balance")
		owner.Accounts = append(owner.Accounts, acc)
	}
	return owner
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	fmt.Println("Starting refscope dashboard demo...")

	conv := host.New(host.WithLogger(logger))
	conv.RegisterInterface(reflect.TypeFor[Auditable]())
	conv.RegisterType(&Account{}, &Owner{}, &Entry{})
	conv.RegisterFunc("Transfer", Transfer)
	conv.DeclareConst(&Account{}, "MaxEntries", 1000)
	conv.Docs().AddAll(map[string]string{
		"main.Account":        "Account holds a balance and its entries.\n\nEntries are append-only.",
		"main.Account.Credit": "Credit adds money.\n@param float64 $amount how much\n@param string $memo shown on the statement",
		"main.Account.Debit":  "Debit removes money when the balance allows it.\n@return bool whether the debit happened",
		"main.Owner.Email":    "@var string contact address",
		"Transfer":            "Transfer moves money between accounts.",
	})

	collector := metrics.NewCollector()
	in := refscope.New(
		refscope.WithConverter(conv),
		refscope.WithMetrics(collector),
		refscope.WithLogger(logger),
	)
	srv := dashboard.New(
		dashboard.WithAddr(":9090"),
		dashboard.WithMetrics(collector),
		dashboard.WithLogger(logger),
	)
	in.RegisterSink("dashboard", srv)
	in.RegisterSink("log", sink.NewLog(logger, slog.LevelInfo))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Dashboard available at: http://localhost:9090")
	fmt.Println("API endpoints:")
	fmt.Println("  - GET  /api/documents       - Published documents")
	fmt.Println("  - GET  /api/documents/{id}  - One document")
	fmt.Println("  - GET  /api/stats           - Inspector metrics")
	fmt.Println("  - POST /api/validate/regex  - Regex tokenizer")
	fmt.Println("  - POST /api/docblock        - Docblock parser")
	fmt.Println()
	fmt.Println("Publishing ledger snapshots...")

	go generateActivity(ctx, in, newLedger())

	if err := srv.Start(ctx); err != nil {
		logger.Error("dashboard stopped", "error", err)
		os.Exit(1)
	}
	t := in.Time()
	fmt.Printf("Rendered %d documents in %s (cpu %s)\n", t.Queries, t.Wall, t.CPU)
}

func generateActivity(ctx context.Context, in *refscope.Inspector, owner *Owner) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	if _, err := in.Publish(owner, "newLedger()", "ledger"); err != nil {
		slog.Warn("publish failed", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			from := owner.Accounts[rand.IntN(len(owner.Accounts))]
			to := owner.Accounts[rand.IntN(len(owner.Accounts))]
			amount := float64(rand.IntN(50))
			expr := fmt.Sprintf("Transfer(from, to, %.0f)", amount)
			if err := Transfer(from, to, amount); err != nil {
				expr += " // " + err.Error()
			}
			select {
			case from.events <- expr:
			default:
			}
			if _, err := in.Publish(owner.Accounts, expr, "transfer"); err != nil {
				slog.Warn("publish failed", "error", err)
			}
		}
	}
}
