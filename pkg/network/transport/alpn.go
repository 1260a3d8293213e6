package transport

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

const (
	protocolPrefix = "hashmint"
	currentVersion = "0"

	// networkIDLength is the number of hex nibbles of the minter program ID
	// carried in the protocol string.
	networkIDLength = 8
)

// ProtocolID is the ALPN identifier of a hashmint network. Nodes and
// clients only talk when they agree on the minter program.
type ProtocolID struct {
	Version   string
	NetworkID string
}

func NewProtocolID(minter solana.PublicKey) ProtocolID {
	return ProtocolID{
		Version:   currentVersion,
		NetworkID: hex.EncodeToString(minter[:networkIDLength/2]),
	}
}

func (p ProtocolID) String() string {
	return strings.Join([]string{protocolPrefix, p.Version, p.NetworkID}, "/")
}

func ParseProtocolID(s string) (ProtocolID, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return ProtocolID{}, fmt.Errorf("%w: malformed protocol %q", ErrProtocolMismatch, s)
	}
	if parts[0] != protocolPrefix {
		return ProtocolID{}, fmt.Errorf("%w: prefix %q", ErrProtocolMismatch, parts[0])
	}
	if parts[1] != currentVersion {
		return ProtocolID{}, fmt.Errorf("%w: unsupported version %q", ErrProtocolMismatch, parts[1])
	}
	id := parts[2]
	if len(id) != networkIDLength {
		return ProtocolID{}, fmt.Errorf("%w: network id %q", ErrProtocolMismatch, id)
	}
	if _, err := hex.DecodeString(id); err != nil || strings.ToLower(id) != id {
		return ProtocolID{}, fmt.Errorf("%w: network id %q", ErrProtocolMismatch, id)
	}
	return ProtocolID{Version: parts[1], NetworkID: id}, nil
}
