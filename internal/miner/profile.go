package miner

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/eigerco/hashmint/internal/records"
	"github.com/eigerco/hashmint/internal/scorer"
)

const (
	DefaultSuperhashMultiplier uint64 = 250
	DefaultAmpStart            uint16 = 300
	DefaultCycleSlots          uint64 = 100_000
	DefaultStartSlot           uint64 = 0

	// BaseUnit is the number of raw points one hash is worth at amp 1.
	BaseUnit uint64 = 1_000_000_000
)

// ProgramIDs are the deployed miner programs, indexed by kind.
var ProgramIDs = [records.Kinds]solana.PublicKey{
	solana.MustPublicKeyFromBase58("B8HwMYCk1o7EaJhooM4P43BHSk5M8zZHsTeJixqw7LMN"),
	solana.MustPublicKeyFromBase58("2Ewuie2KnTvMLwGqKWvEM1S2gUStHzDUfrANdJfu45QJ"),
	solana.MustPublicKeyFromBase58("5dxcK28nyAJdK9fSFuReRREeKnmAGVRpXPhwkZxAxFtJ"),
	solana.MustPublicKeyFromBase58("DdVCjv7fsPPm64HnepYy5MBfh2bNfkd84Rawey9rdt5S"),
}

// Profile is the configuration of one pool. Every kind runs its own
// program with its own profile.
type Profile struct {
	Kind                uint8
	ProgramID           solana.PublicKey
	BatchSize           uint8
	Patterns            scorer.Patterns
	SuperhashMultiplier uint64
	AmpStart            uint16
	CycleSlots          uint64
	StartSlot           uint64
}

// DefaultProfile returns the deployed configuration of the given kind.
func DefaultProfile(kind uint8) Profile {
	p := Profile{
		Kind:                kind,
		BatchSize:           scorer.DefaultBatchSize,
		Patterns:            scorer.DefaultPatterns(),
		SuperhashMultiplier: DefaultSuperhashMultiplier,
		AmpStart:            DefaultAmpStart,
		CycleSlots:          DefaultCycleSlots,
		StartSlot:           DefaultStartSlot,
	}
	if int(kind) < len(ProgramIDs) {
		p.ProgramID = ProgramIDs[kind]
	}
	return p
}

func (p Profile) Validate() error {
	if p.Kind >= records.Kinds {
		return fmt.Errorf("kind %d out of range", p.Kind)
	}
	if p.ProgramID.IsZero() {
		return fmt.Errorf("kind %d: missing program id", p.Kind)
	}
	if p.BatchSize == 0 {
		return fmt.Errorf("kind %d: batch size must be positive", p.Kind)
	}
	if p.Patterns.Hash == "" || p.Patterns.Superhash == "" {
		return fmt.Errorf("kind %d: empty hash pattern", p.Kind)
	}
	return nil
}
