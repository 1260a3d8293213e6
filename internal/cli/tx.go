package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/eigerco/hashmint/internal/client"
	"github.com/eigerco/hashmint/internal/identity"
	"github.com/eigerco/hashmint/internal/miner"
	"github.com/eigerco/hashmint/internal/minter"
	"github.com/eigerco/hashmint/internal/records"
	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/pkg/log"
)

func checkKind(kind uint8) error {
	if kind >= records.Kinds {
		return fmt.Errorf("kind must be below %d, got %d", records.Kinds, kind)
	}
	return nil
}

func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var kind uint8
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Start the pool of a miner program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkKind(kind); err != nil {
				return err
			}
			program, err := rootOpts.minerProgram(kind)
			if err != nil {
				return err
			}
			c, err := rootOpts.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			tx, err := miner.InitMiner(program, c.Signer(), kind)
			if err != nil {
				return err
			}
			receipt, err := c.Submit(cmd.Context(), tx)
			if err != nil {
				return err
			}
			return rootOpts.printer(cmd.OutOrStdout()).print("miner initialized", fields{
				{"kind", kind},
				{"program", program},
				{"slot", receipt.Slot},
			})
		},
	}
	cmd.Flags().Uint8VarP(&kind, "kind", "k", 0, "miner kind (0-3)")
	return cmd
}

type mineOptions struct {
	kind     uint8
	eth      string
	count    uint64
	interval time.Duration
	autoMint uint64
}

func NewMineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &mineOptions{}
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Submit hash batches to a miner program",
		Long: `Submit mine_hashes transactions, one per interval, crediting the given
Ethereum address and the wallet. With --auto-mint the accumulated points
are converted to tokens whenever that many slots passed since the last
conversion.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMine(cmd, rootOpts, opts)
		},
	}
	cmd.Flags().Uint8VarP(&opts.kind, "kind", "k", 0, "miner kind (0-3)")
	cmd.Flags().StringVar(&opts.eth, "eth", "", "EIP-55 checksummed Ethereum address to credit")
	cmd.Flags().Uint64Var(&opts.count, "count", 1, "number of batches, 0 mines until interrupted")
	cmd.Flags().DurationVar(&opts.interval, "interval", 400*time.Millisecond, "pause between batches")
	cmd.Flags().Uint64Var(&opts.autoMint, "auto-mint", 0, "convert points every N slots, 0 disables")
	_ = cmd.MarkFlagRequired("eth")
	return cmd
}

func runMine(cmd *cobra.Command, rootOpts *RootOptions, opts *mineOptions) error {
	if err := checkKind(opts.kind); err != nil {
		return err
	}
	eth, err := identity.NewEthAccount(opts.eth)
	if err != nil {
		return err
	}
	program, err := rootOpts.minerProgram(opts.kind)
	if err != nil {
		return err
	}
	minterCfg, err := rootOpts.cfg.MinterConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := rootOpts.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	out := rootOpts.printer(cmd.OutOrStdout())
	m := &mineLoop{
		client:   c,
		program:  program,
		minter:   minterCfg.ProgramID,
		eth:      eth,
		kind:     opts.kind,
		autoMint: opts.autoMint,
	}
	for i := uint64(0); opts.count == 0 || i < opts.count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(opts.interval):
			}
		}
		ev, err := m.mineOnce(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := out.print("", fields{
			{"slot", ev.Slot},
			{"hashes", ev.Hashes},
			{"superhashes", ev.Superhashes},
			{"points", ev.Points},
		}); err != nil {
			return err
		}
		if err := m.maybeMint(ctx, ev.Slot); err != nil {
			return err
		}
	}
	return nil
}

type mineLoop struct {
	client   *client.Client
	program  solana.PublicKey
	minter   solana.PublicKey
	eth      identity.EthAccount
	kind     uint8
	autoMint uint64
	lastMint uint64
}

func (m *mineLoop) mineOnce(ctx context.Context) (miner.HashEvent, error) {
	tx, err := miner.MineHashes(m.program, m.client.Signer(), m.eth, m.kind)
	if err != nil {
		return miner.HashEvent{}, err
	}
	receipt, err := m.client.Submit(ctx, tx)
	if err != nil {
		return miner.HashEvent{}, err
	}
	for _, ev := range receipt.Events {
		if miner.IsHashEvent(ev.Data) {
			return miner.DecodeHashEvent(ev.Data)
		}
	}
	return miner.HashEvent{}, fmt.Errorf("slot %d: no hash event in receipt", receipt.Slot)
}

// maybeMint converts points once autoMint slots passed since the previous
// conversion. The first batch only starts the count.
func (m *mineLoop) maybeMint(ctx context.Context, current uint64) error {
	if m.autoMint == 0 {
		return nil
	}
	if m.lastMint == 0 {
		m.lastMint = current
		return nil
	}
	if current-m.lastMint < m.autoMint {
		return nil
	}
	if _, err := submitMint(ctx, m.client, m.minter, m.program, m.kind); err != nil {
		return err
	}
	m.lastMint = current
	return nil
}

func submitMint(ctx context.Context, c *client.Client, minterID, minerID solana.PublicKey, kind uint8) (runtime.Receipt, error) {
	tx, err := minter.MintTokens(minterID, minerID, c.Signer(), kind)
	if err != nil {
		return runtime.Receipt{}, err
	}
	receipt, err := c.Submit(ctx, tx)
	if err != nil {
		return runtime.Receipt{}, err
	}
	log.Root.Info().Uint8("kind", kind).Uint64("slot", receipt.Slot).Msg("points converted")
	return receipt, nil
}

func NewMintCommand(rootOpts *RootOptions) *cobra.Command {
	var kind uint8
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Convert the wallet's unconverted points of a kind into tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkKind(kind); err != nil {
				return err
			}
			minerID, err := rootOpts.minerProgram(kind)
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

			receipt, err := submitMint(cmd.Context(), c, minterCfg.ProgramID, minerID, kind)
			if err != nil {
				return err
			}
			balance, err := c.Balance(cmd.Context(), minterCfg.ProgramID, c.Signer())
			if err != nil {
				return err
			}
			return rootOpts.printer(cmd.OutOrStdout()).print("points converted", fields{
				{"kind", kind},
				{"slot", receipt.Slot},
				{"balance", balance},
			})
		},
	}
	cmd.Flags().Uint8VarP(&kind, "kind", "k", 0, "miner kind (0-3)")
	return cmd
}
