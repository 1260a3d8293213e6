// Package cli implements the hashmint command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/eigerco/hashmint/internal/client"
	"github.com/eigerco/hashmint/internal/config"
	"github.com/eigerco/hashmint/pkg/log"
)

// RootOptions holds the flags shared by every command.
type RootOptions struct {
	ConfigPath string
	NodeAddr   string
	WalletPath string
	LogLevel   string
	LogFormat  string
	Format     string // "text" | "json"

	cfg config.Config
}

var ValidFormats = []string{"text", "json"}

func defaultWalletPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "id.json"
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "hashmint",
		Short:         "Proof-of-work scoring and token minting",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&opts.NodeAddr, "node", "", "node address (defaults to node.listen from the config)")
	flags.StringVarP(&opts.WalletPath, "wallet", "w", defaultWalletPath(), "solana keygen file of the signing wallet")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (overrides the config)")
	flags.StringVar(&opts.LogFormat, "log-format", "", "log format, console or json (overrides the config)")
	flags.StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(
		NewNodeCommand(opts),
		NewInitCommand(opts),
		NewMineCommand(opts),
		NewMintCommand(opts),
		NewAccountCommand(opts),
		NewBalanceCommand(opts),
		NewListenCommand(opts),
	)
	return cmd
}

func (o *RootOptions) setup(cmd *cobra.Command) error {
	if !isValidFormat(o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}

	cfg := config.Default()
	if o.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(o.ConfigPath); err != nil {
			return err
		}
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if o.NodeAddr == "" {
		o.NodeAddr = cfg.Node.Listen
	}
	o.cfg = cfg

	level, err := log.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	format, err := log.ParseLoggerType(cfg.Log.Format)
	if err != nil {
		return err
	}
	log.Init(log.Options{LogLevel: level, Type: format, Output: cmd.ErrOrStderr()})
	return nil
}

func (o *RootOptions) wallet() (solana.PrivateKey, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(o.WalletPath)
	if err != nil {
		return nil, fmt.Errorf("load wallet %s: %w", o.WalletPath, err)
	}
	return key, nil
}

// dial connects to the node with the configured wallet.
func (o *RootOptions) dial(ctx context.Context) (*client.Client, error) {
	wallet, err := o.wallet()
	if err != nil {
		return nil, err
	}
	minterCfg, err := o.cfg.MinterConfig()
	if err != nil {
		return nil, err
	}
	c, err := client.Dial(ctx, o.NodeAddr, wallet, minterCfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", o.NodeAddr, err)
	}
	log.Root.Debug().Str("node", o.NodeAddr).Stringer("signer", c.Signer()).Msg("connected")
	return c, nil
}

func (o *RootOptions) minerProgram(kind uint8) (solana.PublicKey, error) {
	return o.cfg.MinerProgram(kind)
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
