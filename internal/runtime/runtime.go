// Package runtime executes program instructions against the account
// ledger. Each instruction runs as one atomic transition over the accounts
// it declares, at the slot reported by the clock when it starts.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/eigerco/hashmint/internal/slot"
	"github.com/eigerco/hashmint/internal/store"
	"github.com/eigerco/hashmint/pkg/log"
)

// Program handles the instructions addressed to its ID.
type Program interface {
	ID() solana.PublicKey
	Name() string
	Execute(inv *Invocation) error
}

// Transaction is a single signed instruction.
type Transaction struct {
	ProgramID solana.PublicKey
	Signer    solana.PublicKey
	Accounts  []solana.PublicKey
	Data      []byte
}

// Receipt describes a committed transaction.
type Receipt struct {
	Slot   uint64
	Events []store.Event
}

// Invocation is what a program sees while it runs.
type Invocation struct {
	Ctx      context.Context
	Program  solana.PublicKey
	Signer   solana.PublicKey
	Accounts []solana.PublicKey
	Data     []byte
	Slot     uint64
	Txn      *store.Txn
	Log      zerolog.Logger

	onCommit []func()
}

// Emit publishes data as an event of the running program.
func (inv *Invocation) Emit(data []byte) {
	inv.Txn.Emit(store.Event{Slot: inv.Slot, Program: inv.Program, Data: data})
}

// OnCommit registers fn to run once the transition has been committed.
func (inv *Invocation) OnCommit(fn func()) {
	inv.onCommit = append(inv.onCommit, fn)
}

// Account returns the i-th declared account.
func (inv *Invocation) Account(i int) (solana.PublicKey, error) {
	if i >= len(inv.Accounts) {
		return solana.PublicKey{}, fmt.Errorf("%w: expected at least %d accounts", ErrAccountNotDeclared, i+1)
	}
	return inv.Accounts[i], nil
}

type Runtime struct {
	accounts *store.Accounts
	clock    slot.Clock
	log      zerolog.Logger

	mu       sync.RWMutex
	programs map[solana.PublicKey]Program
}

func New(accounts *store.Accounts, clock slot.Clock) *Runtime {
	return &Runtime{
		accounts: accounts,
		clock:    clock,
		log:      log.Runtime,
		programs: make(map[solana.PublicKey]Program),
	}
}

// Register adds programs. Registering an ID twice is an error.
func (r *Runtime) Register(programs ...Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range programs {
		if _, ok := r.programs[p.ID()]; ok {
			return fmt.Errorf("program %s already registered", p.ID())
		}
		r.programs[p.ID()] = p
	}
	return nil
}

func (r *Runtime) program(id solana.PublicKey) (Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[id]
	return p, ok
}

func (r *Runtime) Accounts() *store.Accounts {
	return r.accounts
}

func (r *Runtime) Slot() uint64 {
	return r.clock.Slot()
}

// Execute runs tx as one atomic transition. A rejected transaction leaves
// every account unchanged.
func (r *Runtime) Execute(ctx context.Context, tx Transaction) (Receipt, error) {
	start := time.Now()

	prog, ok := r.program(tx.ProgramID)
	if !ok {
		transactionsTotal.WithLabelValues("unknown", "rejected").Inc()
		return Receipt{}, ErrProgramNotFound
	}
	name := prog.Name()

	current := r.clock.Slot()
	currentSlot.Set(float64(current))

	inv := &Invocation{
		Ctx:      ctx,
		Program:  tx.ProgramID,
		Signer:   tx.Signer,
		Accounts: tx.Accounts,
		Data:     tx.Data,
		Slot:     current,
		Log: r.log.With().
			Str("program", name).
			Stringer("signer", tx.Signer).
			Uint64("slot", current).
			Logger(),
	}
	events, err := r.accounts.Update(ctx, tx.Accounts, func(txn *store.Txn) error {
		inv.Txn = txn
		return prog.Execute(inv)
	})
	transactionDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		status := "rejected"
		var coded *Error
		if !errors.As(err, &coded) {
			status = "error"
		}
		transactionsTotal.WithLabelValues(name, status).Inc()
		inv.Log.Debug().Err(err).Msg("transaction failed")
		return Receipt{}, err
	}

	for _, fn := range inv.onCommit {
		fn()
	}
	transactionsTotal.WithLabelValues(name, "success").Inc()
	eventsEmittedTotal.WithLabelValues(name).Add(float64(len(events)))
	inv.Log.Debug().Int("events", len(events)).Msg("transaction committed")
	return Receipt{Slot: current, Events: events}, nil
}

// Genesis runs bootstrap work that is not reachable through any instruction,
// such as creating the token mint.
func (r *Runtime) Genesis(ctx context.Context, declared []solana.PublicKey, fn func(*store.Txn) error) error {
	_, err := r.accounts.Update(ctx, declared, fn)
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	return nil
}
