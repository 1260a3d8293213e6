// Package client talks to a hashmint node over QUIC on behalf of a wallet.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/internal/store"
	"github.com/eigerco/hashmint/pkg/network/cert"
	"github.com/eigerco/hashmint/pkg/network/handlers"
	"github.com/eigerco/hashmint/pkg/network/transport"
)

// ErrForeignSigner is returned when a transaction names a signer other than
// the wallet the client authenticated with.
var ErrForeignSigner = errors.New("transaction signer is not the client wallet")

type Client struct {
	wallet    solana.PrivateKey
	transport *transport.Transport
	conn      *transport.Conn
	requester *handlers.Requester
}

// Dial connects to the node at addr. minter selects the network and must
// match the node's minter program.
func Dial(ctx context.Context, addr string, wallet solana.PrivateKey, minter solana.PublicKey) (*Client, error) {
	g, err := cert.NewGenerator(wallet, 24*time.Hour)
	if err != nil {
		return nil, err
	}
	tlsCert, err := g.Generate()
	if err != nil {
		return nil, err
	}
	tr, err := transport.NewTransport(transport.Config{
		TLSCert:  tlsCert,
		Protocol: transport.NewProtocolID(minter),
	})
	if err != nil {
		return nil, err
	}
	conn, err := tr.Connect(ctx, addr)
	if err != nil {
		_ = tr.Stop()
		return nil, err
	}
	return &Client{
		wallet:    wallet,
		transport: tr,
		conn:      conn,
		requester: handlers.NewRequester(),
	}, nil
}

// Signer is the key every submitted transaction is signed with.
func (c *Client) Signer() solana.PublicKey {
	return c.wallet.PublicKey()
}

// NodeKey is the identity the node presented.
func (c *Client) NodeKey() solana.PublicKey {
	return c.conn.PeerKey()
}

func (c *Client) Close() error {
	return c.transport.Stop()
}

func (c *Client) request(ctx context.Context, req handlers.Request) ([]byte, error) {
	stream, err := c.conn.OpenStream(ctx)
	if err != nil {
		return nil, err
	}
	return c.requester.Request(ctx, stream, req)
}

// Submit executes tx on the node. A rejected transaction comes back as a
// *runtime.Error carrying the program's error code.
func (c *Client) Submit(ctx context.Context, tx runtime.Transaction) (runtime.Receipt, error) {
	if !tx.Signer.IsZero() && !tx.Signer.Equals(c.Signer()) {
		return runtime.Receipt{}, ErrForeignSigner
	}
	payload, err := c.request(ctx, handlers.Submit{
		ProgramID: tx.ProgramID,
		Accounts:  tx.Accounts,
		Data:      tx.Data,
	})
	if err != nil {
		return runtime.Receipt{}, err
	}
	return handlers.DecodeReceipt(payload)
}

// Account fetches an account; found is false when nothing was ever stored there.
func (c *Client) Account(ctx context.Context, addr solana.PublicKey) (acc store.Account, found bool, err error) {
	payload, err := c.request(ctx, handlers.GetAccount{Address: addr})
	if err != nil {
		return store.Account{}, false, err
	}
	info, err := handlers.DecodeAccountInfo(payload)
	if err != nil {
		return store.Account{}, false, fmt.Errorf("decode account: %w", err)
	}
	return info.Account, info.Found, nil
}

func (c *Client) Slot(ctx context.Context) (uint64, error) {
	payload, err := c.request(ctx, handlers.GetSlot{})
	if err != nil {
		return 0, err
	}
	return handlers.DecodeSlot(payload)
}

// Subscribe calls fn for every event from sequence number from onwards.
// It blocks until ctx is cancelled or fn returns an error.
func (c *Client) Subscribe(ctx context.Context, from uint64, fn func(store.Event) error) error {
	stream, err := c.conn.OpenStream(ctx)
	if err != nil {
		return err
	}
	defer stream.CancelRead(0)
	err = c.requester.Subscribe(ctx, stream, from, fn)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
