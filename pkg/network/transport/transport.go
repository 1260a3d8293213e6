// Package transport carries hashmint requests over QUIC. Both sides present
// self-signed certificates so every stream is bound to a wallet key.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/quic-go/quic-go"
	"github.com/rs/zerolog"

	"github.com/eigerco/hashmint/pkg/log"
	"github.com/eigerco/hashmint/pkg/network/cert"
)

// MaxIdleTimeout is how long a connection may stay silent before it is dropped.
const MaxIdleTimeout = 30 * time.Minute

// StreamHandler serves a single inbound stream.
type StreamHandler interface {
	HandleStream(ctx context.Context, stream quic.Stream, signer solana.PublicKey) error
}

// StreamHandlerFunc adapts a function to StreamHandler.
type StreamHandlerFunc func(ctx context.Context, stream quic.Stream, signer solana.PublicKey) error

func (f StreamHandlerFunc) HandleStream(ctx context.Context, stream quic.Stream, signer solana.PublicKey) error {
	return f(ctx, stream, signer)
}

type Config struct {
	TLSCert    *tls.Certificate
	ListenAddr string
	Protocol   ProtocolID
	// Handler is required for listening only.
	Handler StreamHandler
}

// Transport accepts connections when started and dials nodes on demand.
type Transport struct {
	config    Config
	validator *cert.Validator
	log       zerolog.Logger

	listener *quic.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns map[*Conn]struct{}
}

func NewTransport(config Config) (*Transport, error) {
	if config.TLSCert == nil {
		return nil, fmt.Errorf("TLS certificate required")
	}
	leaf, err := leafCertificate(config.TLSCert)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	config.TLSCert.Leaf = leaf
	validator := cert.NewValidator()
	if err := validator.Validate(leaf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		config:    config,
		validator: validator,
		log:       log.Network,
		ctx:       ctx,
		cancel:    cancel,
		conns:     make(map[*Conn]struct{}),
	}, nil
}

func (t *Transport) tlsConfig() *tls.Config {
	return &tls.Config{
		Certificates:       []tls.Certificate{*t.config.TLSCert},
		NextProtos:         []string{t.config.Protocol.String()},
		ClientAuth:         tls.RequireAnyClientCert,
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: true,
		VerifyConnection: func(cs tls.ConnectionState) error {
			if _, err := t.validator.PeerSigner(cs); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
			}
			if cs.NegotiatedProtocol != t.config.Protocol.String() {
				return fmt.Errorf("%w: negotiated %q", ErrProtocolMismatch, cs.NegotiatedProtocol)
			}
			return nil
		},
	}
}

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  MaxIdleTimeout,
		KeepAlivePeriod: MaxIdleTimeout / 3,
	}
}

// Start listens on the configured address and serves streams until Stop.
func (t *Transport) Start() error {
	if t.config.Handler == nil {
		return fmt.Errorf("stream handler required")
	}
	listener, err := quic.ListenAddr(t.config.ListenAddr, t.tlsConfig(), quicConfig())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrListenerFailed, err)
	}
	t.listener = listener
	t.log.Info().Stringer("addr", listener.Addr()).Str("protocol", t.config.Protocol.String()).Msg("listening")

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.acceptLoop()
	}()
	return nil
}

// Addr is the bound listen address, useful when listening on port zero.
func (t *Transport) Addr() (net.Addr, error) {
	if t.listener == nil {
		return nil, ErrNotStarted
	}
	return t.listener.Addr(), nil
}

// Stop closes the listener and every connection, then waits for the
// serving goroutines.
func (t *Transport) Stop() error {
	t.cancel()

	t.mu.Lock()
	for c := range t.conns {
		if err := c.Close(); err != nil {
			t.log.Debug().Err(err).Msg("close connection")
		}
	}
	t.conns = make(map[*Conn]struct{})
	t.mu.Unlock()

	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}
	t.wg.Wait()
	return err
}

// Connect dials a node and returns the authenticated connection.
func (t *Transport) Connect(ctx context.Context, addr string) (*Conn, error) {
	qconn, err := quic.DialAddr(ctx, addr, t.tlsConfig(), quicConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDialFailed, err)
	}
	conn, err := t.wrap(qconn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (t *Transport) acceptLoop() {
	for {
		qconn, err := t.listener.Accept(t.ctx)
		if err != nil {
			if t.ctx.Err() == nil && !errors.Is(err, quic.ErrServerClosed) {
				t.log.Error().Err(err).Msg("accept connection")
			}
			return
		}
		conn, err := t.wrap(qconn)
		if err != nil {
			t.log.Warn().Err(err).Stringer("remote", qconn.RemoteAddr()).Msg("rejected connection")
			continue
		}
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.serve(conn)
		}()
	}
}

func (t *Transport) wrap(qconn quic.Connection) (*Conn, error) {
	signer, err := t.validator.PeerSigner(qconn.ConnectionState().TLS)
	if err != nil {
		_ = qconn.CloseWithError(1, ErrInvalidCertificate.Error())
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	conn := &Conn{qconn: qconn, peerKey: signer}
	t.mu.Lock()
	t.conns[conn] = struct{}{}
	t.mu.Unlock()
	return conn, nil
}

func (t *Transport) forget(conn *Conn) {
	t.mu.Lock()
	delete(t.conns, conn)
	t.mu.Unlock()
}

func (t *Transport) serve(conn *Conn) {
	defer t.forget(conn)
	logger := t.log.With().Stringer("peer", conn.PeerKey()).Logger()
	logger.Debug().Msg("connection opened")

	ctx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	go func() {
		select {
		case <-conn.Context().Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			logger.Debug().Err(err).Msg("connection closed")
			return
		}
		go func() {
			if err := t.config.Handler.HandleStream(ctx, stream, conn.PeerKey()); err != nil {
				logger.Debug().Err(err).Msg("stream failed")
				stream.CancelRead(0)
				stream.CancelWrite(0)
			}
		}()
	}
}

func leafCertificate(c *tls.Certificate) (*x509.Certificate, error) {
	if c.Leaf != nil {
		return c.Leaf, nil
	}
	if len(c.Certificate) == 0 {
		return nil, fmt.Errorf("empty certificate chain")
	}
	return x509.ParseCertificate(c.Certificate[0])
}
