package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/eigerco/hashmint/internal/identity"
	"github.com/eigerco/hashmint/internal/records"
)

func NewAccountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Read score and mint records from a node",
	}

	var kind uint8
	cmd.PersistentFlags().Uint8VarP(&kind, "kind", "k", 0, "miner kind (0-3)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "global",
			Short: "Show the pool record of a miner kind",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				program, err := kindProgram(rootOpts, kind)
				if err != nil {
					return err
				}
				c, err := rootOpts.dial(cmd.Context())
				if err != nil {
					return err
				}
				defer c.Close()

				g, err := c.Global(cmd.Context(), program, kind)
				if err != nil {
					return err
				}
				return rootOpts.printer(cmd.OutOrStdout()).print("global", fields{
					{"kind", g.Kind},
					{"amp", g.Amp},
					{"last_amp_slot", g.LastAmpSlot},
					{"nonce", hex.EncodeToString(g.Nonce[:])},
					{"hashes", g.Hashes},
					{"superhashes", g.Superhashes},
					{"points", g.Points},
				})
			},
		},
		&cobra.Command{
			Use:   "by-eth ADDRESS",
			Short: "Show the score of an Ethereum address",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				eth, err := identity.NewEthAccount(args[0])
				if err != nil {
					return err
				}
				program, err := kindProgram(rootOpts, kind)
				if err != nil {
					return err
				}
				c, err := rootOpts.dial(cmd.Context())
				if err != nil {
					return err
				}
				defer c.Close()

				u, err := c.ByEth(cmd.Context(), program, eth.Address, kind)
				if err != nil {
					return err
				}
				return rootOpts.printer(cmd.OutOrStdout()).print("by eth", fields{
					{"eth", identity.Checksum(eth.Address)},
					{"hashes", u.Hashes},
					{"superhashes", u.Superhashes},
				})
			},
		},
		&cobra.Command{
			Use:   "by-sol [PUBKEY]",
			Short: "Show the score of a signer, the wallet by default",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				user, err := optionalKey(args)
				if err != nil {
					return err
				}
				program, err := kindProgram(rootOpts, kind)
				if err != nil {
					return err
				}
				c, err := rootOpts.dial(cmd.Context())
				if err != nil {
					return err
				}
				defer c.Close()

				u, err := c.BySol(cmd.Context(), program, user, kind)
				if err != nil {
					return err
				}
				if user.IsZero() {
					user = c.Signer()
				}
				return rootOpts.printer(cmd.OutOrStdout()).print("by sol", fields{
					{"user", user},
					{"hashes", u.Hashes},
					{"superhashes", u.Superhashes},
					{"points", u.Points},
				})
			},
		},
		&cobra.Command{
			Use:   "tokens [PUBKEY]",
			Short: "Show how many points of a signer were converted",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				user, err := optionalKey(args)
				if err != nil {
					return err
				}
				minterCfg, err := rootOpts.cfg.MinterConfig()
				if err != nil {
					return err
				}
				c, err := rootOpts.dial(cmd.Context())
				if err != nil {
					return err
				}
				defer c.Close()

				u, err := c.Tokens(cmd.Context(), minterCfg.ProgramID, user)
				if err != nil {
					return err
				}
				fs := make(fields, 0, records.Kinds+1)
				for k, counter := range u.PointsCounters {
					fs = append(fs, field{fmt.Sprintf("converted_%d", k), counter})
				}
				fs = append(fs, field{"tokens_minted", u.TokensMinted})
				return rootOpts.printer(cmd.OutOrStdout()).print("tokens", fs)
			},
		},
	)
	return cmd
}

func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [PUBKEY]",
		Short: "Show the token balance of a signer, the wallet by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := optionalKey(args)
			if err != nil {
				return err
			}
			minterCfg, err := rootOpts.cfg.MinterConfig()
			if err != nil {
				return err
			}
			c, err := rootOpts.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			balance, err := c.Balance(cmd.Context(), minterCfg.ProgramID, user)
			if err != nil {
				return err
			}
			if user.IsZero() {
				user = c.Signer()
			}
			return rootOpts.printer(cmd.OutOrStdout()).print("balance", fields{
				{"user", user},
				{"amount", balance},
				{"decimals", *rootOpts.cfg.Minter.Decimals},
			})
		},
	}
}

func kindProgram(rootOpts *RootOptions, kind uint8) (solana.PublicKey, error) {
	if err := checkKind(kind); err != nil {
		return solana.PublicKey{}, err
	}
	return rootOpts.minerProgram(kind)
}

// optionalKey parses the first argument as a base58 key. No argument yields
// the zero key, which the readers replace with the wallet.
func optionalKey(args []string) (solana.PublicKey, error) {
	if len(args) == 0 {
		return solana.PublicKey{}, nil
	}
	key, err := solana.PublicKeyFromBase58(args[0])
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid public key %q: %w", args[0], err)
	}
	return key, nil
}
