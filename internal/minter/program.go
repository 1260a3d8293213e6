// Package minter converts mined points into tokens. Each signer has one
// token record tracking, per pool kind, how many of its points were already
// converted, which makes repeated mint requests safe.
package minter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/eigerco/hashmint/internal/address"
	"github.com/eigerco/hashmint/internal/miner"
	"github.com/eigerco/hashmint/internal/records"
	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/internal/store"
	"github.com/eigerco/hashmint/internal/token"
	"github.com/eigerco/hashmint/pkg/log"
)

const (
	DefaultStartSlot       uint64 = 1
	DefaultDecimals        uint8  = 9
	DefaultDecimalsDivisor uint64 = 1000
)

var DefaultProgramID = solana.MustPublicKeyFromBase58("EPAdVJ5S317jJr2ejgxoA52iptvphGXjPLbqXhZH4n8o")

var MintTokensDiscriminator = runtime.InstructionDiscriminator("mint_tokens")

type Config struct {
	ProgramID       solana.PublicKey
	StartSlot       uint64
	Decimals        uint8
	DecimalsDivisor uint64
	// Miners are the accepted miner programs, indexed by kind.
	Miners [records.Kinds]solana.PublicKey
}

// DefaultConfig is the deployed minter, accepting the deployed miners.
func DefaultConfig() Config {
	return Config{
		ProgramID:       DefaultProgramID,
		StartSlot:       DefaultStartSlot,
		Decimals:        DefaultDecimals,
		DecimalsDivisor: DefaultDecimalsDivisor,
		Miners:          miner.ProgramIDs,
	}
}

func (c Config) Validate() error {
	if c.ProgramID.IsZero() {
		return fmt.Errorf("minter: missing program id")
	}
	if c.DecimalsDivisor == 0 {
		return fmt.Errorf("minter: decimals divisor must be positive")
	}
	for kind, m := range c.Miners {
		if m.IsZero() {
			return fmt.Errorf("minter: missing miner program for kind %d", kind)
		}
	}
	return nil
}

var _ runtime.Program = (*Program)(nil)

type Program struct {
	cfg  Config
	mint address.Derived
}

func New(cfg Config) (*Program, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mint, err := address.Mint(cfg.ProgramID)
	if err != nil {
		return nil, err
	}
	return &Program{cfg: cfg, mint: mint}, nil
}

func (p *Program) ID() solana.PublicKey { return p.cfg.ProgramID }

func (p *Program) Name() string { return "minter" }

// Mint is the address of the token mint, which is also its own authority.
func (p *Program) Mint() solana.PublicKey { return p.mint.Address }

// Bootstrap creates the token mint unless it already exists.
func (p *Program) Bootstrap(ctx context.Context, rt *runtime.Runtime) error {
	return rt.Genesis(ctx, []solana.PublicKey{p.mint.Address}, func(txn *store.Txn) error {
		_, exists, err := txn.Get(p.mint.Address)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		log.Program.Info().
			Stringer("mint", p.mint.Address).
			Uint8("decimals", p.cfg.Decimals).
			Msg("creating token mint")
		return token.InitializeMint(txn, p.mint.Address, p.mint.Address, p.cfg.Decimals)
	})
}

func (p *Program) Execute(inv *runtime.Invocation) error {
	disc, args, err := runtime.SplitInstruction(inv.Data)
	if err != nil {
		return err
	}
	if disc != MintTokensDiscriminator {
		return runtime.ErrInstructionFallbackNotFound
	}
	return p.mintTokens(inv, args)
}

// Declared account order of mint_tokens.
const (
	accUserRecord = iota
	accTokensRecord
	accTokenAccount
	accMint
	accMinerProgram
)

func (p *Program) mintTokens(inv *runtime.Invocation, args []byte) error {
	if len(args) < 1 {
		return runtime.ErrInstructionDidNotDeserialize
	}
	kind := args[0]

	tokensRecord, err := address.TokenRecord(p.ID(), inv.Signer)
	if err != nil {
		return err
	}
	if err := expectAccount(inv, accTokensRecord, tokensRecord.Address, runtime.ErrConstraintSeeds); err != nil {
		return err
	}
	if err := expectAccount(inv, accMint, p.mint.Address, runtime.ErrConstraintSeeds); err != nil {
		return err
	}
	tokenAccount, err := address.AssociatedToken(inv.Signer, p.mint.Address)
	if err != nil {
		return err
	}
	if err := expectAccount(inv, accTokenAccount, tokenAccount, runtime.ErrConstraintAssociated); err != nil {
		return err
	}
	userRecord, err := inv.Account(accUserRecord)
	if err != nil {
		return err
	}
	minerProgram, err := inv.Account(accMinerProgram)
	if err != nil {
		return err
	}

	var rec records.UserTokens
	if _, err := records.Load(inv.Txn, tokensRecord.Address, p.ID(), &rec); err != nil {
		return err
	}
	if _, err := token.CreateAssociatedAccount(inv.Txn, inv.Signer, p.mint.Address); err != nil {
		return err
	}

	if inv.Slot <= p.cfg.StartSlot {
		return ErrMintIsNotActive
	}
	if kind >= records.Kinds || !p.cfg.Miners[kind].Equals(minerProgram) {
		return ErrBadParam
	}
	points, err := p.scoredPoints(inv, userRecord, minerProgram, kind)
	if err != nil {
		return err
	}

	before := rec.PointsCounters[kind]
	mintable, err := Reconcile(kind, points, &rec)
	if err != nil {
		return err
	}
	var units uint64
	if !mintable.IsZero() {
		units, err = Units(mintable, p.cfg.DecimalsDivisor)
		if err != nil {
			return err
		}
		if err := token.MintTo(inv.Txn, p.mint.Address, tokenAccount, units, p.ID(), p.mint.SignerSeeds()); err != nil {
			return err
		}
	}
	if err := records.Save(inv.Txn, tokensRecord.Address, p.ID(), &rec); err != nil {
		return err
	}

	inv.Log.Info().
		Uint8("kind", kind).
		Str("points", points.String()).
		Str("counter", before.String()).
		Str("mintable", mintable.String()).
		Uint64("units", units).
		Msg("mint reconciled")
	label := strconv.Itoa(int(kind))
	inv.OnCommit(func() {
		mintRequestsTotal.WithLabelValues(label, outcome(mintable.IsZero())).Inc()
		unitsMintedTotal.WithLabelValues(label).Add(float64(units))
	})
	return nil
}

// scoredPoints reads the signer's points from the miner program's record,
// after checking that the record is the genuine one.
func (p *Program) scoredPoints(inv *runtime.Invocation, userRecord, minerProgram solana.PublicKey, kind uint8) (points uint128.Uint128, err error) {
	want, err := address.BySol(minerProgram, inv.Signer, kind)
	if err != nil {
		return points, err
	}
	if !want.Address.Equals(userRecord) {
		return points, ErrBadOwner
	}
	acc, exists, err := inv.Txn.Get(userRecord)
	if err != nil {
		return points, err
	}
	if !exists || !acc.Owner.Equals(minerProgram) {
		return points, ErrBadOwner
	}
	var score records.UserSol
	if err := records.Unmarshal(acc.Data, &score); err != nil {
		return points, err
	}
	return score.Points, nil
}

func outcome(nothing bool) string {
	if nothing {
		return "nothing"
	}
	return "minted"
}

func expectAccount(inv *runtime.Invocation, i int, want solana.PublicKey, mismatch error) error {
	got, err := inv.Account(i)
	if err != nil {
		return err
	}
	if !got.Equals(want) {
		return mismatch
	}
	return nil
}
