package transport

import "errors"

var (
	ErrInvalidCertificate = errors.New("invalid certificate")
	ErrProtocolMismatch   = errors.New("protocol mismatch")
	ErrListenerFailed     = errors.New("failed to create QUIC listener")
	ErrDialFailed         = errors.New("failed to dial node")
	ErrNotStarted         = errors.New("transport not started")
)
