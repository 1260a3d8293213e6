package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/internal/store"
	"github.com/eigerco/hashmint/pkg/log"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: runtime.MetricsNamespace,
		Subsystem: "network",
		Name:      "requests_total",
		Help:      "Requests served, by kind and result.",
	}, []string{"kind", "result"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: runtime.MetricsNamespace,
		Subsystem: "network",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving a request, subscriptions excluded.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
)

// Stream is the part of a QUIC stream the handlers use. Close finishes the
// send direction only.
type Stream interface {
	io.Reader
	io.Writer
	Close() error
}

// Backend is the node state a request stream is served from.
type Backend interface {
	Execute(ctx context.Context, tx runtime.Transaction) (runtime.Receipt, error)
	Account(addr solana.PublicKey) (store.Account, error)
	Slot() uint64
	Subscribe(ctx context.Context, from uint64, fn func(store.Event) error) error
}

// RequestHandler serves one request per stream.
//
// Protocol flow:
//
//	--> Request (tag byte + borsh body)
//	--> FIN
//	<-- Response
//	<-- FIN
//
// Subscribe keeps the stream open and writes one Response per event.
type RequestHandler struct {
	backend Backend
	log     zerolog.Logger
}

func NewRequestHandler(backend Backend) *RequestHandler {
	return &RequestHandler{backend: backend, log: log.Network}
}

// HandleStream reads a request from stream and answers it on behalf of signer,
// the key the peer authenticated with.
func (h *RequestHandler) HandleStream(ctx context.Context, stream Stream, signer solana.PublicKey) error {
	msg, err := ReadMessage(ctx, stream)
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	req, err := DecodeRequest(msg)
	if err != nil {
		requestsTotal.WithLabelValues("invalid", "error").Inc()
		resp := ErrorResponse(fmt.Errorf("%w: %v", runtime.ErrInstructionDidNotDeserialize, err))
		if werr := h.respond(ctx, stream, resp); werr != nil {
			return werr
		}
		return stream.Close()
	}

	if sub, ok := req.(Subscribe); ok {
		requestsTotal.WithLabelValues(KindSubscribe.String(), "ok").Inc()
		return h.subscribe(ctx, stream, sub)
	}

	start := time.Now()
	resp := h.serve(ctx, req, signer)
	requestDuration.WithLabelValues(req.Kind().String()).Observe(time.Since(start).Seconds())
	result := "ok"
	if resp.Code != 0 {
		result = resp.Name
	}
	requestsTotal.WithLabelValues(req.Kind().String(), result).Inc()

	if err := h.respond(ctx, stream, resp); err != nil {
		return err
	}
	return stream.Close()
}

func (h *RequestHandler) serve(ctx context.Context, req Request, signer solana.PublicKey) Response {
	var (
		payload []byte
		err     error
	)
	switch r := req.(type) {
	case Submit:
		var receipt runtime.Receipt
		receipt, err = h.backend.Execute(ctx, runtime.Transaction{
			ProgramID: r.ProgramID,
			Signer:    signer,
			Accounts:  r.Accounts,
			Data:      r.Data,
		})
		if err == nil {
			payload, err = EncodeReceipt(receipt)
		} else {
			h.log.Debug().
				Stringer("signer", signer).
				Stringer("program", r.ProgramID).
				Err(err).
				Msg("transaction rejected")
		}
	case GetAccount:
		info := AccountInfo{}
		info.Account, err = h.backend.Account(r.Address)
		switch {
		case err == nil:
			info.Found = true
		case errors.Is(err, store.ErrAccountNotFound):
			err = nil
		}
		if err == nil {
			payload, err = EncodeAccountInfo(info)
		}
	case GetSlot:
		payload, err = EncodeSlot(h.backend.Slot())
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownRequest, req.Kind())
	}
	if err != nil {
		return ErrorResponse(err)
	}
	return Response{Payload: payload}
}

func (h *RequestHandler) subscribe(ctx context.Context, stream Stream, sub Subscribe) error {
	h.log.Debug().Uint64("from", sub.FromSeq).Msg("subscription opened")
	err := h.backend.Subscribe(ctx, sub.FromSeq, func(ev store.Event) error {
		payload, err := EncodeEvent(ev)
		if err != nil {
			return err
		}
		return h.respond(ctx, stream, Response{Payload: payload})
	})
	h.log.Debug().Uint64("from", sub.FromSeq).Err(err).Msg("subscription closed")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (h *RequestHandler) respond(ctx context.Context, stream Stream, resp Response) error {
	b, err := EncodeResponse(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := WriteMessage(ctx, stream, b); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// Requester is the client side of RequestHandler.
type Requester struct{}

func NewRequester() *Requester {
	return &Requester{}
}

// Request sends req on a fresh stream and returns the single response.
// A program error is returned as a *runtime.Error.
func (r *Requester) Request(ctx context.Context, stream Stream, req Request) ([]byte, error) {
	if err := r.send(ctx, stream, req); err != nil {
		return nil, err
	}
	resp, err := r.receive(ctx, stream)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// Subscribe calls fn for every event the node streams back until ctx is
// cancelled, the stream ends or fn fails.
func (r *Requester) Subscribe(ctx context.Context, stream Stream, from uint64, fn func(store.Event) error) error {
	if err := r.send(ctx, stream, Subscribe{FromSeq: from}); err != nil {
		return err
	}
	for {
		resp, err := r.receive(ctx, stream)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := resp.Err(); err != nil {
			return err
		}
		ev, err := DecodeEvent(resp.Payload)
		if err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

func (r *Requester) send(ctx context.Context, stream Stream, req Request) error {
	b, err := EncodeRequest(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := WriteMessage(ctx, stream, b); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	return nil
}

func (r *Requester) receive(ctx context.Context, stream Stream) (Response, error) {
	msg, err := ReadMessage(ctx, stream)
	if err != nil {
		return Response{}, err
	}
	resp, err := DecodeResponse(msg)
	if err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
