package store

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/eigerco/hashmint/pkg/serialization/codec"
)

const defaultEventPage = 256

// Event is an entry of the append-only event log. Seq is assigned on commit.
type Event struct {
	Seq     uint64
	Slot    uint64
	Program solana.PublicKey
	Data    []byte
}

func (e Event) bytes() ([]byte, error) {
	return codec.NewEncoder().
		U64(e.Slot).
		Fixed(e.Program[:]).
		Vec(e.Data).
		Bytes()
}

func eventFromBytes(seq uint64, b []byte) (Event, error) {
	d := codec.NewDecoder(b)
	e := Event{Seq: seq, Slot: d.U64()}
	d.Fixed(e.Program[:])
	e.Data = d.Vec()
	return e, d.Err()
}

// NextSeq is the sequence number the next published event will get.
func (a *Accounts) NextSeq() uint64 {
	a.commitMu.Lock()
	defer a.commitMu.Unlock()
	return a.nextSeq
}

// Events returns up to limit events starting at sequence number from.
func (a *Accounts) Events(from uint64, limit int) ([]Event, error) {
	if a.closed.Load() {
		return nil, ErrAccountsClosed
	}
	iter, err := a.db.NewIterator(eventKey(from), []byte{prefixEvent + 1})
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close()

	var events []Event
	for iter.Next() && len(events) < limit {
		key := iter.Key()
		value, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}
		e, err := eventFromBytes(binary.BigEndian.Uint64(key[1:]), value)
		if err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}

func (a *Accounts) changed() (<-chan struct{}, uint64) {
	a.commitMu.Lock()
	defer a.commitMu.Unlock()
	return a.notify, a.nextSeq
}

// Subscribe delivers every event from sequence number from onwards, in order,
// until ctx is done or fn returns an error. It blocks while waiting for new
// events.
func (a *Accounts) Subscribe(ctx context.Context, from uint64, fn func(Event) error) error {
	for {
		notify, next := a.changed()
		for from < next {
			events, err := a.Events(from, defaultEventPage)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				break
			}
			for _, e := range events {
				if err := fn(e); err != nil {
					return err
				}
				from = e.Seq + 1
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-notify:
		}
	}
}
