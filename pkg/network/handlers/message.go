package handlers

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize bounds a single frame so a peer cannot force a huge allocation.
const MaxMessageSize = 4 << 20

var ErrMessageTooLarge = errors.New("message exceeds maximum size")

// WriteMessage writes content prefixed by its size as a little-endian uint32.
// The write is abandoned when ctx is cancelled.
func WriteMessage(ctx context.Context, w io.Writer, content []byte) error {
	if len(content) > MaxMessageSize {
		return ErrMessageTooLarge
	}
	done := make(chan error, 1)
	go func() {
		frame := make([]byte, 4+len(content))
		binary.LittleEndian.PutUint32(frame, uint32(len(content)))
		copy(frame[4:], content)
		if _, err := w.Write(frame); err != nil {
			done <- fmt.Errorf("write message: %w", err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type readResult struct {
	content []byte
	err     error
}

// ReadMessage reads one size-prefixed frame. io.EOF is returned unwrapped
// when the peer finished the stream cleanly between frames.
func ReadMessage(ctx context.Context, r io.Reader) ([]byte, error) {
	done := make(chan readResult, 1)
	go func() {
		var size [4]byte
		if _, err := io.ReadFull(r, size[:]); err != nil {
			if errors.Is(err, io.EOF) {
				done <- readResult{err: io.EOF}
				return
			}
			done <- readResult{err: fmt.Errorf("read message size: %w", err)}
			return
		}
		n := binary.LittleEndian.Uint32(size[:])
		if n > MaxMessageSize {
			done <- readResult{err: fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, n)}
			return
		}
		content := make([]byte, n)
		if _, err := io.ReadFull(r, content); err != nil {
			done <- readResult{err: fmt.Errorf("read message content: %w", err)}
			return
		}
		done <- readResult{content: content}
	}()

	select {
	case res := <-done:
		return res.content, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
