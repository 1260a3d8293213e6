package handlers

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/internal/store"
	"github.com/eigerco/hashmint/pkg/serialization/codec"
)

// RequestKind is the leading tag byte of every request.
type RequestKind uint8

const (
	KindSubmit RequestKind = iota + 1
	KindGetAccount
	KindGetSlot
	KindSubscribe
)

func (k RequestKind) String() string {
	switch k {
	case KindSubmit:
		return "submit"
	case KindGetAccount:
		return "get_account"
	case KindGetSlot:
		return "get_slot"
	case KindSubscribe:
		return "subscribe"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// MaxAccounts limits the account list of a submitted transaction.
const MaxAccounts = 64

var (
	ErrUnknownRequest  = errors.New("unknown request kind")
	ErrTooManyAccounts = errors.New("too many accounts")
	ErrTrailingBytes   = errors.New("trailing bytes after message")
)

// Request is implemented by every message a client can open a stream with.
type Request interface {
	Kind() RequestKind
	encode(e *codec.Encoder)
}

// Submit asks the node to execute a transaction signed by the stream's peer.
type Submit struct {
	ProgramID solana.PublicKey
	Accounts  []solana.PublicKey
	Data      []byte
}

func (Submit) Kind() RequestKind { return KindSubmit }

func (s Submit) encode(e *codec.Encoder) {
	e.Fixed(s.ProgramID[:]).U32(uint32(len(s.Accounts)))
	for _, a := range s.Accounts {
		e.Fixed(a[:])
	}
	e.Vec(s.Data)
}

type GetAccount struct {
	Address solana.PublicKey
}

func (GetAccount) Kind() RequestKind { return KindGetAccount }

func (g GetAccount) encode(e *codec.Encoder) { e.Fixed(g.Address[:]) }

type GetSlot struct{}

func (GetSlot) Kind() RequestKind { return KindGetSlot }

func (GetSlot) encode(*codec.Encoder) {}

// Subscribe streams every event with a sequence number of at least FromSeq
// until the client goes away.
type Subscribe struct {
	FromSeq uint64
}

func (Subscribe) Kind() RequestKind { return KindSubscribe }

func (s Subscribe) encode(e *codec.Encoder) { e.U64(s.FromSeq) }

func EncodeRequest(r Request) ([]byte, error) {
	e := codec.NewEncoder().U8(uint8(r.Kind()))
	r.encode(e)
	return e.Bytes()
}

func DecodeRequest(b []byte) (Request, error) {
	d := codec.NewDecoder(b)
	var req Request
	switch kind := RequestKind(d.U8()); kind {
	case KindSubmit:
		var s Submit
		d.Fixed(s.ProgramID[:])
		n := d.U32()
		if n > MaxAccounts {
			return nil, fmt.Errorf("%w: %d", ErrTooManyAccounts, n)
		}
		s.Accounts = make([]solana.PublicKey, n)
		for i := range s.Accounts {
			d.Fixed(s.Accounts[i][:])
		}
		s.Data = d.Vec()
		req = s
	case KindGetAccount:
		var g GetAccount
		d.Fixed(g.Address[:])
		req = g
	case KindGetSlot:
		req = GetSlot{}
	case KindSubscribe:
		req = Subscribe{FromSeq: d.U64()}
	default:
		if d.Err() != nil {
			return nil, d.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownRequest, kind)
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	if d.Remaining() != 0 {
		return nil, ErrTrailingBytes
	}
	return req, nil
}

// Response carries either a payload (Code zero) or a program error.
type Response struct {
	Code    uint32
	Name    string
	Message string
	Payload []byte
}

// Err rebuilds the program error carried by a failed response.
func (r Response) Err() error {
	if r.Code == 0 {
		return nil
	}
	return runtime.NewError(r.Code, r.Name, r.Message)
}

func ErrorResponse(err error) Response {
	e := runtime.AsError(err)
	return Response{Code: e.Code, Name: e.Name, Message: e.Msg}
}

func EncodeResponse(r Response) ([]byte, error) {
	return codec.NewEncoder().
		U32(r.Code).
		Str(r.Name).
		Str(r.Message).
		Vec(r.Payload).
		Bytes()
}

func DecodeResponse(b []byte) (Response, error) {
	d := codec.NewDecoder(b)
	r := Response{Code: d.U32(), Name: d.Str(), Message: d.Str(), Payload: d.Vec()}
	if err := d.Err(); err != nil {
		return Response{}, err
	}
	return r, nil
}

func encodeEvent(e *codec.Encoder, ev store.Event) {
	e.U64(ev.Seq).U64(ev.Slot).Fixed(ev.Program[:]).Vec(ev.Data)
}

func decodeEvent(d *codec.Decoder) store.Event {
	ev := store.Event{Seq: d.U64(), Slot: d.U64()}
	d.Fixed(ev.Program[:])
	ev.Data = d.Vec()
	return ev
}

func EncodeEvent(ev store.Event) ([]byte, error) {
	e := codec.NewEncoder()
	encodeEvent(e, ev)
	return e.Bytes()
}

func DecodeEvent(b []byte) (store.Event, error) {
	d := codec.NewDecoder(b)
	ev := decodeEvent(d)
	return ev, d.Err()
}

func EncodeReceipt(r runtime.Receipt) ([]byte, error) {
	e := codec.NewEncoder().U64(r.Slot).U32(uint32(len(r.Events)))
	for _, ev := range r.Events {
		encodeEvent(e, ev)
	}
	return e.Bytes()
}

func DecodeReceipt(b []byte) (runtime.Receipt, error) {
	d := codec.NewDecoder(b)
	r := runtime.Receipt{Slot: d.U64()}
	n := d.U32()
	for i := uint32(0); i < n && d.Err() == nil; i++ {
		r.Events = append(r.Events, decodeEvent(d))
	}
	return r, d.Err()
}

// AccountInfo answers GetAccount. Found is false for an address nothing was
// ever written to.
type AccountInfo struct {
	Found   bool
	Account store.Account
}

func EncodeAccountInfo(a AccountInfo) ([]byte, error) {
	return codec.NewEncoder().
		Bool(a.Found).
		Fixed(a.Account.Owner[:]).
		Vec(a.Account.Data).
		Bytes()
}

func DecodeAccountInfo(b []byte) (AccountInfo, error) {
	d := codec.NewDecoder(b)
	a := AccountInfo{Found: d.Bool()}
	d.Fixed(a.Account.Owner[:])
	a.Account.Data = d.Vec()
	return a, d.Err()
}

func EncodeSlot(s uint64) ([]byte, error) {
	return codec.NewEncoder().U64(s).Bytes()
}

func DecodeSlot(b []byte) (uint64, error) {
	d := codec.NewDecoder(b)
	s := d.U64()
	return s, d.Err()
}
