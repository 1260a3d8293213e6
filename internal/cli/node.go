package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/eigerco/hashmint/internal/node"
	"github.com/eigerco/hashmint/pkg/log"
)

type nodeOptions struct {
	listen   string
	dbPath   string
	inMemory bool
	metrics  string
}

func NewNodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &nodeOptions{}
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Run a node serving the miner and minter programs",
		Long: `Run a node. The node keeps the account ledger in pebble, executes
submitted transactions and serves them over QUIC. Flags override the
matching node settings of the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd, rootOpts, opts)
		},
	}
	cmd.Flags().StringVar(&opts.listen, "listen", "", "QUIC listen address")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "database directory")
	cmd.Flags().BoolVar(&opts.inMemory, "in-memory", false, "keep the ledger in memory only")
	cmd.Flags().StringVar(&opts.metrics, "metrics", "", "prometheus listen address, \"off\" to disable")
	return cmd
}

func runNode(cmd *cobra.Command, rootOpts *RootOptions, opts *nodeOptions) error {
	cfg := rootOpts.cfg
	if opts.listen != "" {
		cfg.Node.Listen = opts.listen
	}
	if opts.dbPath != "" {
		cfg.Node.DBPath = opts.dbPath
	}
	if opts.inMemory {
		cfg.Node.InMemory = true
	}
	switch opts.metrics {
	case "":
	case "off":
		cfg.Node.MetricsAddr = ""
	default:
		cfg.Node.MetricsAddr = opts.metrics
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	identity, err := nodeIdentity(cfg.Node.KeyFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := node.New(ctx, cfg, identity)
	if err != nil {
		return err
	}
	if err := n.Start(); err != nil {
		_ = n.Stop()
		return err
	}
	log.Root.Info().
		Stringer("identity", identity.PublicKey()).
		Str("db", cfg.Node.DBPath).
		Bool("in_memory", cfg.Node.InMemory).
		Msg("node started")

	<-ctx.Done()
	log.Root.Info().Msg("shutting down")
	return n.Stop()
}

func nodeIdentity(keyFile string) (solana.PrivateKey, error) {
	if keyFile == "" {
		return solana.NewRandomPrivateKey()
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("load node key %s: %w", keyFile, err)
	}
	return key, nil
}
