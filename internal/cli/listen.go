package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eigerco/hashmint/internal/identity"
	"github.com/eigerco/hashmint/internal/miner"
	"github.com/eigerco/hashmint/internal/store"
)

func NewListenCommand(rootOpts *RootOptions) *cobra.Command {
	var from uint64
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print hash events as the node commits them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := rootOpts.dial(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			out := rootOpts.printer(cmd.OutOrStdout())
			return c.HashEvents(ctx, from, func(ev store.Event, he miner.HashEvent) error {
				return out.print("", fields{
					{"seq", ev.Seq},
					{"slot", he.Slot},
					{"program", ev.Program},
					{"user", he.User},
					{"eth", identity.Checksum(he.EthAccount)},
					{"hashes", he.Hashes},
					{"superhashes", he.Superhashes},
					{"points", he.Points},
				})
			})
		},
	}
	cmd.Flags().Uint64Var(&from, "from", 0, "first event sequence number to replay")
	return cmd
}
