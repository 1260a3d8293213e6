package client

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/eigerco/hashmint/internal/address"
	"github.com/eigerco/hashmint/internal/miner"
	"github.com/eigerco/hashmint/internal/records"
	"github.com/eigerco/hashmint/internal/store"
	"github.com/eigerco/hashmint/internal/token"
)

// ErrNotFound is returned by the record readers for an address with no data.
var ErrNotFound = store.ErrAccountNotFound

func (c *Client) fetch(ctx context.Context, addr, owner solana.PublicKey, r records.Record) error {
	acc, found, err := c.Account(ctx, addr)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	return records.Decode(acc, owner, r)
}

// Global reads the pool record of a miner program.
func (c *Client) Global(ctx context.Context, minerProgram solana.PublicKey, kind uint8) (records.Global, error) {
	addr, err := address.Global(minerProgram, kind)
	if err != nil {
		return records.Global{}, err
	}
	var g records.Global
	if err := c.fetch(ctx, addr.Address, minerProgram, &g); err != nil {
		return g, err
	}
	return g, nil
}

func (c *Client) ByEth(ctx context.Context, minerProgram solana.PublicKey, eth [20]byte, kind uint8) (records.UserEth, error) {
	addr, err := address.ByEth(minerProgram, eth, kind)
	if err != nil {
		return records.UserEth{}, err
	}
	var u records.UserEth
	if err := c.fetch(ctx, addr.Address, minerProgram, &u); err != nil {
		return u, err
	}
	return u, nil
}

// BySol reads the record of user, the client's own wallet when zero.
func (c *Client) BySol(ctx context.Context, minerProgram, user solana.PublicKey, kind uint8) (records.UserSol, error) {
	if user.IsZero() {
		user = c.Signer()
	}
	addr, err := address.BySol(minerProgram, user, kind)
	if err != nil {
		return records.UserSol{}, err
	}
	var u records.UserSol
	if err := c.fetch(ctx, addr.Address, minerProgram, &u); err != nil {
		return u, err
	}
	return u, nil
}

// Tokens reads the minter's record of what user has already converted.
func (c *Client) Tokens(ctx context.Context, minterProgram, user solana.PublicKey) (records.UserTokens, error) {
	if user.IsZero() {
		user = c.Signer()
	}
	addr, err := address.TokenRecord(minterProgram, user)
	if err != nil {
		return records.UserTokens{}, err
	}
	var u records.UserTokens
	if err := c.fetch(ctx, addr.Address, minterProgram, &u); err != nil {
		return u, err
	}
	return u, nil
}

// Balance is the token balance of user's associated token account, zero
// when the account does not exist yet.
func (c *Client) Balance(ctx context.Context, minterProgram, user solana.PublicKey) (uint64, error) {
	if user.IsZero() {
		user = c.Signer()
	}
	mint, err := address.Mint(minterProgram)
	if err != nil {
		return 0, err
	}
	ata, err := address.AssociatedToken(user, mint.Address)
	if err != nil {
		return 0, err
	}
	acc, found, err := c.Account(ctx, ata)
	if err != nil || !found {
		return 0, err
	}
	ta, err := token.DecodeAccount(acc)
	if err != nil {
		return 0, err
	}
	return ta.Amount, nil
}

// HashEvents tails the event log and hands every HashEvent to fn together
// with the program that emitted it.
func (c *Client) HashEvents(ctx context.Context, from uint64, fn func(store.Event, miner.HashEvent) error) error {
	return c.Subscribe(ctx, from, func(ev store.Event) error {
		if !miner.IsHashEvent(ev.Data) {
			return nil
		}
		he, err := miner.DecodeHashEvent(ev.Data)
		if err != nil {
			return fmt.Errorf("event %d: %w", ev.Seq, err)
		}
		return fn(ev, he)
	})
}
