package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/eigerco/hashmint/pkg/db"
	"github.com/eigerco/hashmint/pkg/db/pebble"
	"github.com/eigerco/hashmint/pkg/log"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountNotDeclared = errors.New("account not declared by the transaction")
	ErrAccountsClosed     = errors.New("account store is closed")
	ErrMalformedAccount   = errors.New("malformed account entry")
)

const lockStripes = 256

// Account is the unit of state: opaque data owned by exactly one program.
type Account struct {
	Owner solana.PublicKey
	Data  []byte
}

func (a Account) bytes() []byte {
	out := make([]byte, solana.PublicKeyLength+len(a.Data))
	copy(out, a.Owner[:])
	copy(out[solana.PublicKeyLength:], a.Data)
	return out
}

func accountFromBytes(b []byte) (Account, error) {
	if len(b) < solana.PublicKeyLength {
		return Account{}, ErrMalformedAccount
	}
	data := make([]byte, len(b)-solana.PublicKeyLength)
	copy(data, b[solana.PublicKeyLength:])
	return Account{Owner: solana.PublicKeyFromBytes(b[:solana.PublicKeyLength]), Data: data}, nil
}

// Accounts is the ledger of program accounts. Every change goes through
// Update, which serializes transitions touching the same account and
// commits each transition in a single batch.
type Accounts struct {
	db     db.KVStore
	closed atomic.Bool
	log    zerolog.Logger

	locks [lockStripes]sync.Mutex

	// commitMu orders commits so event sequence numbers are gap free.
	commitMu sync.Mutex
	nextSeq  uint64
	notify   chan struct{}
}

// NewAccounts opens the account ledger on top of a key-value store and
// resumes the event sequence from where it stopped.
func NewAccounts(kv db.KVStore) (*Accounts, error) {
	a := &Accounts{db: kv, log: log.Store, notify: make(chan struct{})}
	raw, err := kv.Get(keyNextEventSeq)
	switch {
	case errors.Is(err, pebble.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("read event sequence: %w", err)
	case len(raw) != 8:
		return nil, fmt.Errorf("read event sequence: %w", ErrMalformedAccount)
	default:
		a.nextSeq = binary.BigEndian.Uint64(raw)
	}
	return a, nil
}

// Get returns the committed state of an account.
func (a *Accounts) Get(addr solana.PublicKey) (Account, error) {
	if a.closed.Load() {
		return Account{}, ErrAccountsClosed
	}
	raw, err := a.db.Get(makeKey(prefixAccount, addr[:]))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("get account %s: %w", addr, err)
	}
	return accountFromBytes(raw)
}

// Update runs fn against the declared accounts as one atomic transition.
// Transitions sharing an account never interleave. When fn fails nothing it
// wrote is kept and no events are published.
func (a *Accounts) Update(ctx context.Context, declared []solana.PublicKey, fn func(*Txn) error) ([]Event, error) {
	if a.closed.Load() {
		return nil, ErrAccountsClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := a.lock(declared)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txn := newTxn(a, declared)
	if err := fn(txn); err != nil {
		return nil, err
	}
	return a.commit(txn)
}

// lock acquires the stripes of every declared account in ascending order.
func (a *Accounts) lock(keys []solana.PublicKey) func() {
	seen := make(map[int]struct{}, len(keys))
	stripes := make([]int, 0, len(keys))
	for _, k := range keys {
		s := stripe(k)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		stripes = append(stripes, s)
	}
	sort.Ints(stripes)
	for _, s := range stripes {
		a.locks[s].Lock()
	}
	return func() {
		for i := len(stripes) - 1; i >= 0; i-- {
			a.locks[stripes[i]].Unlock()
		}
	}
}

func stripe(k solana.PublicKey) int {
	return int(binary.LittleEndian.Uint32(k[:4]) % lockStripes)
}

func (a *Accounts) commit(txn *Txn) ([]Event, error) {
	a.commitMu.Lock()
	defer a.commitMu.Unlock()

	batch := a.db.NewBatch()
	defer batch.Close()

	for addr, acc := range txn.writes {
		if err := batch.Put(makeKey(prefixAccount, addr[:]), acc.bytes()); err != nil {
			return nil, fmt.Errorf("store account %s: %w", addr, err)
		}
	}

	seq := a.nextSeq
	events := make([]Event, len(txn.events))
	for i, e := range txn.events {
		e.Seq = seq
		value, err := e.bytes()
		if err != nil {
			return nil, fmt.Errorf("encode event: %w", err)
		}
		if err := batch.Put(eventKey(seq), value); err != nil {
			return nil, fmt.Errorf("store event: %w", err)
		}
		events[i] = e
		seq++
	}
	if len(events) > 0 {
		var next [8]byte
		binary.BigEndian.PutUint64(next[:], seq)
		if err := batch.Put(keyNextEventSeq, next[:]); err != nil {
			return nil, fmt.Errorf("store event sequence: %w", err)
		}
	}

	if err := batch.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	if len(events) > 0 {
		a.nextSeq = seq
		close(a.notify)
		a.notify = make(chan struct{})
	}
	a.log.Debug().
		Int("accounts", len(txn.writes)).
		Int("events", len(events)).
		Msg("transition committed")
	return events, nil
}

// Close closes the underlying store. Closing twice has no effect.
func (a *Accounts) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	return a.db.Close()
}

// Txn is the buffered view of one transition.
type Txn struct {
	accounts *Accounts
	declared map[solana.PublicKey]struct{}
	writes   map[solana.PublicKey]Account
	events   []Event
}

func newTxn(a *Accounts, declared []solana.PublicKey) *Txn {
	t := &Txn{
		accounts: a,
		declared: make(map[solana.PublicKey]struct{}, len(declared)),
		writes:   make(map[solana.PublicKey]Account),
	}
	for _, k := range declared {
		t.declared[k] = struct{}{}
	}
	return t
}

// Get returns the account as seen by this transition and whether it exists.
func (t *Txn) Get(addr solana.PublicKey) (Account, bool, error) {
	if _, ok := t.declared[addr]; !ok {
		return Account{}, false, fmt.Errorf("%w: %s", ErrAccountNotDeclared, addr)
	}
	if acc, ok := t.writes[addr]; ok {
		return acc, true, nil
	}
	acc, err := t.accounts.Get(addr)
	if errors.Is(err, ErrAccountNotFound) {
		return Account{}, false, nil
	}
	if err != nil {
		return Account{}, false, err
	}
	return acc, true, nil
}

// Put buffers a write. It becomes visible to others only on commit.
func (t *Txn) Put(addr solana.PublicKey, acc Account) error {
	if _, ok := t.declared[addr]; !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotDeclared, addr)
	}
	data := make([]byte, len(acc.Data))
	copy(data, acc.Data)
	t.writes[addr] = Account{Owner: acc.Owner, Data: data}
	return nil
}

// Emit queues an event to be published with the transition.
func (t *Txn) Emit(e Event) {
	t.events = append(t.events, e)
}
