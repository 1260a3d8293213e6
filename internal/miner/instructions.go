package miner

import (
	"github.com/gagliardetto/solana-go"

	"github.com/eigerco/hashmint/internal/address"
	"github.com/eigerco/hashmint/internal/identity"
	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/pkg/serialization/codec"
)

var (
	InitMinerDiscriminator  = runtime.InstructionDiscriminator("init_miner")
	MineHashesDiscriminator = runtime.InstructionDiscriminator("mine_hashes")
)

// InitMiner starts the pool of the given kind on program.
func InitMiner(program, admin solana.PublicKey, kind uint8) (runtime.Transaction, error) {
	global, err := address.Global(program, kind)
	if err != nil {
		return runtime.Transaction{}, err
	}
	data, err := codec.NewEncoder().Fixed(InitMinerDiscriminator[:]).U8(kind).Bytes()
	if err != nil {
		return runtime.Transaction{}, err
	}
	return runtime.Transaction{
		ProgramID: program,
		Signer:    admin,
		Accounts:  []solana.PublicKey{global.Address},
		Data:      data,
	}, nil
}

// MineHashes scores one batch for user on behalf of eth.
func MineHashes(program, user solana.PublicKey, eth identity.EthAccount, kind uint8) (runtime.Transaction, error) {
	global, err := address.Global(program, kind)
	if err != nil {
		return runtime.Transaction{}, err
	}
	byEth, err := address.ByEth(program, eth.Address, kind)
	if err != nil {
		return runtime.Transaction{}, err
	}
	bySol, err := address.BySol(program, user, kind)
	if err != nil {
		return runtime.Transaction{}, err
	}
	data, err := codec.NewEncoder().
		Fixed(MineHashesDiscriminator[:]).
		Fixed(eth.Address[:]).
		Str(eth.AddressStr).
		U8(kind).
		Bytes()
	if err != nil {
		return runtime.Transaction{}, err
	}
	return runtime.Transaction{
		ProgramID: program,
		Signer:    user,
		Accounts:  []solana.PublicKey{global.Address, byEth.Address, bySol.Address},
		Data:      data,
	}, nil
}

func decodeKind(args []byte) (uint8, error) {
	d := codec.NewDecoder(args)
	kind := d.U8()
	if d.Err() != nil {
		return 0, runtime.ErrInstructionDidNotDeserialize
	}
	return kind, nil
}

func decodeMineHashes(args []byte) (identity.EthAccount, uint8, error) {
	d := codec.NewDecoder(args)
	var eth identity.EthAccount
	d.Fixed(eth.Address[:])
	eth.AddressStr = d.Str()
	kind := d.U8()
	if d.Err() != nil {
		return identity.EthAccount{}, 0, runtime.ErrInstructionDidNotDeserialize
	}
	return eth, kind, nil
}

// expectAccount checks that the declared account at index i is want.
func expectAccount(inv *runtime.Invocation, i int, want address.Derived) error {
	got, err := inv.Account(i)
	if err != nil {
		return err
	}
	if !got.Equals(want.Address) {
		return runtime.ErrConstraintSeeds
	}
	return nil
}
