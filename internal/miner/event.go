package miner

import (
	"github.com/gagliardetto/solana-go"

	"github.com/eigerco/hashmint/internal/identity"
	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/pkg/serialization/codec"
)

var HashEventDiscriminator = runtime.EventDiscriminator("HashEvent")

// HashEvent is published for every scored batch.
type HashEvent struct {
	Slot        uint64
	User        solana.PublicKey
	EthAccount  [identity.AddressLength]byte
	Hashes      uint8
	Superhashes uint8
	Points      uint64
}

func (e HashEvent) Bytes() ([]byte, error) {
	return codec.NewEncoder().
		Fixed(HashEventDiscriminator[:]).
		U64(e.Slot).
		Fixed(e.User[:]).
		Fixed(e.EthAccount[:]).
		U8(e.Hashes).
		U8(e.Superhashes).
		U64(e.Points).
		Bytes()
}

// IsHashEvent reports whether event data carries a HashEvent.
func IsHashEvent(data []byte) bool {
	return len(data) >= runtime.DiscriminatorSize &&
		runtime.Discriminator(data[:runtime.DiscriminatorSize]) == HashEventDiscriminator
}

func DecodeHashEvent(data []byte) (HashEvent, error) {
	if !IsHashEvent(data) {
		return HashEvent{}, runtime.ErrAccountDiscriminatorMismatch
	}
	d := codec.NewDecoder(data[runtime.DiscriminatorSize:])
	e := HashEvent{Slot: d.U64()}
	d.Fixed(e.User[:])
	d.Fixed(e.EthAccount[:])
	e.Hashes = d.U8()
	e.Superhashes = d.U8()
	e.Points = d.U64()
	return e, d.Err()
}
