package miner

import (
	"lukechampine.com/uint128"

	"github.com/eigerco/hashmint/internal/records"
	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/internal/safemath"
)

// Points is the score awarded for a batch:
// BaseUnit*amp*hashes + BaseUnit*amp*multiplier*superhashes.
func Points(amp uint16, hashes, superhashes uint8, multiplier uint64) (uint64, error) {
	perHash, ok := safemath.Mul64(BaseUnit, uint64(amp))
	if !ok {
		return 0, runtime.ErrArithmeticOverflow
	}
	fromHashes, ok := safemath.Mul64(perHash, uint64(hashes))
	if !ok {
		return 0, runtime.ErrArithmeticOverflow
	}
	perSuperhash, ok := safemath.Mul64(perHash, multiplier)
	if !ok {
		return 0, runtime.ErrArithmeticOverflow
	}
	fromSuperhashes, ok := safemath.Mul64(perSuperhash, uint64(superhashes))
	if !ok {
		return 0, runtime.ErrArithmeticOverflow
	}
	total, ok := safemath.Add64(fromHashes, fromSuperhashes)
	if !ok {
		return 0, runtime.ErrArithmeticOverflow
	}
	return total, nil
}

type scoreCounters struct {
	hashes      uint64
	superhashes uint32
}

func (c scoreCounters) add(hashes, superhashes uint8) (scoreCounters, error) {
	h, ok := safemath.Add64(c.hashes, uint64(hashes))
	if !ok {
		return c, runtime.ErrArithmeticOverflow
	}
	s, ok := safemath.Add32(c.superhashes, uint32(superhashes))
	if !ok {
		return c, runtime.ErrArithmeticOverflow
	}
	return scoreCounters{hashes: h, superhashes: s}, nil
}

func addPoints(total uint128.Uint128, points uint64) (uint128.Uint128, error) {
	sum, ok := safemath.Add128(total, uint128.From64(points))
	if !ok {
		return total, runtime.ErrArithmeticOverflow
	}
	return sum, nil
}

// ApplyResult adds a batch result to the identity, signer and pool records.
// Either all three records are updated or, on overflow, none is.
func ApplyResult(g *records.Global, eth *records.UserEth, sol *records.UserSol, hashes, superhashes uint8, points uint64) error {
	ethCounters, err := scoreCounters{eth.Hashes, eth.Superhashes}.add(hashes, superhashes)
	if err != nil {
		return err
	}
	solCounters, err := scoreCounters{sol.Hashes, sol.Superhashes}.add(hashes, superhashes)
	if err != nil {
		return err
	}
	solPoints, err := addPoints(sol.Points, points)
	if err != nil {
		return err
	}
	globalCounters, err := scoreCounters{g.Hashes, g.Superhashes}.add(hashes, superhashes)
	if err != nil {
		return err
	}
	globalPoints, err := addPoints(g.Points, points)
	if err != nil {
		return err
	}

	eth.Hashes, eth.Superhashes = ethCounters.hashes, ethCounters.superhashes
	sol.Hashes, sol.Superhashes, sol.Points = solCounters.hashes, solCounters.superhashes, solPoints
	g.Hashes, g.Superhashes, g.Points = globalCounters.hashes, globalCounters.superhashes, globalPoints
	return nil
}
