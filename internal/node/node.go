// Package node assembles a hashmint node: the account store, the runtime
// with its programs, the QUIC request server and the metrics endpoint.
package node

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quic-go/quic-go"
	"github.com/rs/zerolog"

	"github.com/eigerco/hashmint/internal/config"
	"github.com/eigerco/hashmint/internal/miner"
	"github.com/eigerco/hashmint/internal/minter"
	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/internal/slot"
	"github.com/eigerco/hashmint/internal/store"
	"github.com/eigerco/hashmint/pkg/db"
	"github.com/eigerco/hashmint/pkg/db/pebble"
	"github.com/eigerco/hashmint/pkg/log"
	"github.com/eigerco/hashmint/pkg/network/cert"
	"github.com/eigerco/hashmint/pkg/network/handlers"
	"github.com/eigerco/hashmint/pkg/network/transport"
)

// Option customises a node before it starts.
type Option func(*options)

type options struct {
	clock slot.Clock
}

// WithClock replaces the wall-clock slot source.
func WithClock(c slot.Clock) Option {
	return func(o *options) { o.clock = c }
}

type Node struct {
	cfg      config.Config
	accounts *store.Accounts
	runtime  *runtime.Runtime
	minter   *minter.Program
	miners   []*miner.Program

	transport *transport.Transport
	metrics   *http.Server
	log       zerolog.Logger
}

// New opens the store, registers every configured program and creates the
// token mint if this is a fresh ledger. identity is the node's TLS key.
func New(ctx context.Context, cfg config.Config, identity solana.PrivateKey, opts ...Option) (*Node, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		clock, err := slot.NewSystemClock(cfg.Node.Genesis, cfg.Node.SlotDuration)
		if err != nil {
			return nil, err
		}
		o.clock = clock
	}

	kv, err := openKV(cfg.Node)
	if err != nil {
		return nil, err
	}
	accounts, err := store.NewAccounts(kv)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	n := &Node{
		cfg:      cfg,
		accounts: accounts,
		runtime:  runtime.New(accounts, o.clock),
		log:      log.Root.With().Str("component", "node").Logger(),
	}
	if err := n.registerPrograms(ctx); err != nil {
		_ = accounts.Close()
		return nil, err
	}

	tlsCert, err := newCertificate(identity)
	if err != nil {
		_ = accounts.Close()
		return nil, err
	}
	requests := handlers.NewRequestHandler(backend{n})
	n.transport, err = transport.NewTransport(transport.Config{
		TLSCert:    tlsCert,
		ListenAddr: cfg.Node.Listen,
		Protocol:   transport.NewProtocolID(n.minter.ID()),
		Handler: transport.StreamHandlerFunc(func(ctx context.Context, s quic.Stream, signer solana.PublicKey) error {
			return requests.HandleStream(ctx, s, signer)
		}),
	})
	if err != nil {
		_ = accounts.Close()
		return nil, err
	}
	return n, nil
}

func openKV(cfg config.Node) (db.KVStore, error) {
	if cfg.InMemory {
		return pebble.NewKVStore()
	}
	return pebble.Open(cfg.DBPath)
}

func newCertificate(identity solana.PrivateKey) (*tls.Certificate, error) {
	g, err := cert.NewGenerator(identity, cert.DefaultValidity)
	if err != nil {
		return nil, fmt.Errorf("node identity: %w", err)
	}
	return g.Generate()
}

func (n *Node) registerPrograms(ctx context.Context) error {
	profiles, err := n.cfg.MinerProfiles()
	if err != nil {
		return err
	}
	programs := make([]runtime.Program, 0, len(profiles)+1)
	for _, p := range profiles {
		m, err := miner.New(p)
		if err != nil {
			return err
		}
		n.miners = append(n.miners, m)
		programs = append(programs, m)
	}

	minterCfg, err := n.cfg.MinterConfig()
	if err != nil {
		return err
	}
	n.minter, err = minter.New(minterCfg)
	if err != nil {
		return err
	}
	programs = append(programs, n.minter)

	if err := n.runtime.Register(programs...); err != nil {
		return err
	}
	if err := n.minter.Bootstrap(ctx, n.runtime); err != nil {
		return err
	}
	for _, m := range n.miners {
		n.log.Info().
			Uint8("kind", m.Profile().Kind).
			Stringer("program", m.ID()).
			Uint8("batch", m.Profile().BatchSize).
			Msg("miner registered")
	}
	n.log.Info().Stringer("program", n.minter.ID()).Stringer("mint", n.minter.Mint()).Msg("minter registered")
	return nil
}

// Start begins serving requests and, when configured, metrics.
func (n *Node) Start() error {
	if err := n.transport.Start(); err != nil {
		return err
	}
	if n.cfg.Node.MetricsAddr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", n.cfg.Node.MetricsAddr)
	if err != nil {
		_ = n.transport.Stop()
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	n.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := n.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			n.log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	n.log.Info().Stringer("addr", ln.Addr()).Msg("serving metrics")
	return nil
}

// Stop shuts every listener down and closes the store.
func (n *Node) Stop() error {
	var errs []error
	if n.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, n.metrics.Shutdown(ctx))
		cancel()
	}
	errs = append(errs, n.transport.Stop(), n.accounts.Close())
	return errors.Join(errs...)
}

// Addr is the bound QUIC address once started.
func (n *Node) Addr() (net.Addr, error) {
	return n.transport.Addr()
}

func (n *Node) Runtime() *runtime.Runtime { return n.runtime }

func (n *Node) Minter() *minter.Program { return n.minter }

// backend exposes the node to the request handlers.
type backend struct {
	n *Node
}

func (b backend) Execute(ctx context.Context, tx runtime.Transaction) (runtime.Receipt, error) {
	return b.n.runtime.Execute(ctx, tx)
}

func (b backend) Account(addr solana.PublicKey) (store.Account, error) {
	return b.n.accounts.Get(addr)
}

func (b backend) Slot() uint64 {
	return b.n.runtime.Slot()
}

func (b backend) Subscribe(ctx context.Context, from uint64, fn func(store.Event) error) error {
	return b.n.accounts.Subscribe(ctx, from, fn)
}
