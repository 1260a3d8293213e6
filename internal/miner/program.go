// Package miner implements the pool program: pool initialization and the
// scoring of hash batches into per identity, per signer and per pool
// records.
package miner

import (
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/eigerco/hashmint/internal/address"
	"github.com/eigerco/hashmint/internal/identity"
	"github.com/eigerco/hashmint/internal/records"
	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/internal/scorer"
)

var _ runtime.Program = (*Program)(nil)

type Program struct {
	profile Profile
	label   string
}

func New(profile Profile) (*Program, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &Program{profile: profile, label: strconv.Itoa(int(profile.Kind))}, nil
}

func (p *Program) ID() solana.PublicKey { return p.profile.ProgramID }

func (p *Program) Name() string { return "miner-" + p.label }

func (p *Program) Profile() Profile { return p.profile }

func (p *Program) Execute(inv *runtime.Invocation) error {
	disc, args, err := runtime.SplitInstruction(inv.Data)
	if err != nil {
		return err
	}
	switch disc {
	case InitMinerDiscriminator:
		return p.initMiner(inv, args)
	case MineHashesDiscriminator:
		return p.mineHashes(inv, args)
	default:
		return runtime.ErrInstructionFallbackNotFound
	}
}

func (p *Program) initMiner(inv *runtime.Invocation, args []byte) error {
	kind, err := decodeKind(args)
	if err != nil {
		return err
	}
	global, err := address.Global(p.ID(), kind)
	if err != nil {
		return err
	}
	if err := expectAccount(inv, 0, global); err != nil {
		return err
	}

	var g records.Global
	if _, err := records.Load(inv.Txn, global.Address, p.ID(), &g); err != nil {
		return err
	}
	if g.Initialized() {
		return ErrMintIsAlreadyActive
	}
	if kind >= records.Kinds || kind != p.profile.Kind {
		return ErrInvalidMinerKind
	}
	if inv.Slot == 0 {
		return ErrZeroSlotValue
	}

	g.Kind = kind
	g.Amp = p.profile.AmpStart
	g.LastAmpSlot = inv.Slot
	copy(g.Nonce[:], inv.Signer[:len(g.Nonce)])
	if err := records.Save(inv.Txn, global.Address, p.ID(), &g); err != nil {
		return err
	}

	inv.Log.Info().
		Uint8("kind", kind).
		Uint16("amp", g.Amp).
		Hex("nonce", g.Nonce[:]).
		Msg("pool initialized")
	inv.OnCommit(func() {
		ampGauge.WithLabelValues(p.label).Set(float64(g.Amp))
	})
	return nil
}

func (p *Program) mineHashes(inv *runtime.Invocation, args []byte) error {
	eth, kind, err := decodeMineHashes(args)
	if err != nil {
		return err
	}
	if kind != p.profile.Kind {
		return ErrInvalidMinerKind
	}

	global, err := address.Global(p.ID(), kind)
	if err != nil {
		return err
	}
	byEth, err := address.ByEth(p.ID(), eth.Address, kind)
	if err != nil {
		return err
	}
	bySol, err := address.BySol(p.ID(), inv.Signer, kind)
	if err != nil {
		return err
	}
	for i, want := range []address.Derived{global, byEth, bySol} {
		if err := expectAccount(inv, i, want); err != nil {
			return err
		}
	}

	var (
		g       records.Global
		userEth records.UserEth
		userSol records.UserSol
	)
	exists, err := records.Load(inv.Txn, global.Address, p.ID(), &g)
	if err != nil {
		return err
	}
	if !exists {
		return runtime.ErrAccountNotInitialized
	}
	if _, err := records.Load(inv.Txn, byEth.Address, p.ID(), &userEth); err != nil {
		return err
	}
	if _, err := records.Load(inv.Txn, bySol.Address, p.ID(), &userSol); err != nil {
		return err
	}

	if err := validateIdentity(eth); err != nil {
		return err
	}
	current := inv.Slot
	if current <= p.profile.StartSlot {
		return ErrMintIsNotActive
	}
	if current == 0 {
		return ErrZeroSlotValue
	}

	ampChanged := AdvanceAmp(&g, current, p.profile.CycleSlots)

	nonce := scorer.Nonce(g.Nonce)
	hashes, superhashes := scorer.ScoreBatch(current, nonce, p.profile.BatchSize, p.profile.Patterns)
	if debugEnabled(inv.Log) {
		logMatches(inv.Log, current, nonce, p.profile)
	}

	points, err := Points(g.Amp, hashes, superhashes, p.profile.SuperhashMultiplier)
	if err != nil {
		return err
	}
	if err := ApplyResult(&g, &userEth, &userSol, hashes, superhashes, points); err != nil {
		return err
	}
	g.Nonce = NextNonce(inv.Signer, hashes, superhashes, current)

	if err := records.Save(inv.Txn, global.Address, p.ID(), &g); err != nil {
		return err
	}
	if err := records.Save(inv.Txn, byEth.Address, p.ID(), &userEth); err != nil {
		return err
	}
	if err := records.Save(inv.Txn, bySol.Address, p.ID(), &userSol); err != nil {
		return err
	}

	event := HashEvent{
		Slot:        current,
		User:        inv.Signer,
		EthAccount:  eth.Address,
		Hashes:      hashes,
		Superhashes: superhashes,
		Points:      points,
	}
	data, err := event.Bytes()
	if err != nil {
		return err
	}
	inv.Emit(data)

	inv.Log.Info().
		Uint8("kind", kind).
		Str("eth", eth.AddressStr).
		Uint8("hashes", hashes).
		Uint8("superhashes", superhashes).
		Uint64("points", points).
		Uint16("amp", g.Amp).
		Bool("amp_changed", ampChanged).
		Msg("mined hashes")
	inv.OnCommit(func() {
		hashesFoundTotal.WithLabelValues(p.label).Add(float64(hashes))
		superhashesFoundTotal.WithLabelValues(p.label).Add(float64(superhashes))
		pointsAwardedTotal.WithLabelValues(p.label).Add(float64(points))
		ampGauge.WithLabelValues(p.label).Set(float64(g.Amp))
	})
	return nil
}

func validateIdentity(eth identity.EthAccount) error {
	addr, err := identity.ParseChecksummed(eth.AddressStr)
	if err != nil {
		return ErrInvalidEthAddressChecksum
	}
	if addr != eth.Address {
		return ErrInvalidEthAddressData
	}
	return nil
}

func debugEnabled(logger zerolog.Logger) bool {
	return logger.GetLevel() <= zerolog.DebugLevel && zerolog.GlobalLevel() <= zerolog.DebugLevel
}

func logMatches(logger zerolog.Logger, current uint64, nonce scorer.Nonce, profile Profile) {
	matches := scorer.Matches(current, nonce, profile.BatchSize, profile.Patterns)
	if len(matches) == 0 {
		logger.Debug().Uint8("batch", profile.BatchSize).Msg("no pattern found in batch")
		return
	}
	for _, m := range matches {
		logger.Debug().
			Uint8("index", m.Index).
			Bool("superhash", m.Superhash).
			Str("digest", m.Digest.Hex()).
			Msg("pattern found")
	}
}
