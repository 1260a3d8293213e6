package transport

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/quic-go/quic-go"
)

// Conn is an authenticated QUIC connection. The peer key is the one its
// certificate was issued for.
type Conn struct {
	qconn   quic.Connection
	peerKey solana.PublicKey
}

// OpenStream opens a bidirectional stream. Closing the returned stream only
// finishes the send direction.
func (c *Conn) OpenStream(ctx context.Context) (quic.Stream, error) {
	stream, err := c.qconn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return stream, nil
}

func (c *Conn) AcceptStream(ctx context.Context) (quic.Stream, error) {
	stream, err := c.qconn.AcceptStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("accept stream: %w", err)
	}
	return stream, nil
}

func (c *Conn) PeerKey() solana.PublicKey {
	return c.peerKey
}

func (c *Conn) Close() error {
	return c.qconn.CloseWithError(0, "")
}

// Context is cancelled once the connection is gone.
func (c *Conn) Context() context.Context {
	return c.qconn.Context()
}
