// Package config loads the node configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"

	"github.com/eigerco/hashmint/internal/miner"
	"github.com/eigerco/hashmint/internal/minter"
	"github.com/eigerco/hashmint/internal/records"
	"github.com/eigerco/hashmint/internal/scorer"
	"github.com/eigerco/hashmint/internal/slot"
)

const (
	DefaultListen      = "127.0.0.1:9420"
	DefaultDBPath      = "hashmint-data"
	DefaultMetricsAddr = "127.0.0.1:9421"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
)

type Config struct {
	Node   Node    `yaml:"node"`
	Log    Log     `yaml:"log"`
	Minter Minter  `yaml:"minter"`
	Miners []Miner `yaml:"miners"`
}

type Node struct {
	Listen       string        `yaml:"listen"`
	DBPath       string        `yaml:"db_path"`
	InMemory     bool          `yaml:"in_memory"`
	MetricsAddr  string        `yaml:"metrics_addr"`
	SlotDuration time.Duration `yaml:"slot_duration"`
	Genesis      time.Time     `yaml:"genesis"`
	// KeyFile holds the node's TLS identity; a fresh key is generated when empty.
	KeyFile string `yaml:"key_file"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Minter struct {
	ProgramID       string  `yaml:"program_id"`
	StartSlot       *uint64 `yaml:"start_slot"`
	Decimals        *uint8  `yaml:"decimals"`
	DecimalsDivisor uint64  `yaml:"decimals_divisor"`
}

// Miner is the profile of one pool. Zero fields take the deployed default
// of the pool's kind.
type Miner struct {
	Kind                uint8  `yaml:"kind"`
	ProgramID           string `yaml:"program_id"`
	BatchSize           uint8  `yaml:"batch_size"`
	HashPattern         string `yaml:"hash_pattern"`
	SuperhashPattern    string `yaml:"superhash_pattern"`
	SuperhashMultiplier uint64 `yaml:"superhash_multiplier"`
	AmpStart            uint16 `yaml:"amp_start"`
	CycleSlots          uint64 `yaml:"cycle_slots"`
	StartSlot           uint64 `yaml:"start_slot"`
}

// Default reproduces the deployed programs.
func Default() Config {
	return Config{}.WithDefaults()
}

// Load reads a YAML file. Unknown fields are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, fills defaults and validates the result.
func Parse(data []byte) (Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// WithDefaults returns a copy with every unset field filled in.
func (c Config) WithDefaults() Config {
	if c.Node.Listen == "" {
		c.Node.Listen = DefaultListen
	}
	if c.Node.DBPath == "" {
		c.Node.DBPath = DefaultDBPath
	}
	if c.Node.MetricsAddr == "" {
		c.Node.MetricsAddr = DefaultMetricsAddr
	}
	if c.Node.SlotDuration == 0 {
		c.Node.SlotDuration = slot.DefaultDuration
	}
	if c.Node.Genesis.IsZero() {
		c.Node.Genesis = slot.DefaultGenesis
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	if c.Minter.ProgramID == "" {
		c.Minter.ProgramID = minter.DefaultProgramID.String()
	}
	if c.Minter.StartSlot == nil {
		start := minter.DefaultStartSlot
		c.Minter.StartSlot = &start
	}
	if c.Minter.Decimals == nil {
		decimals := minter.DefaultDecimals
		c.Minter.Decimals = &decimals
	}
	if c.Minter.DecimalsDivisor == 0 {
		c.Minter.DecimalsDivisor = minter.DefaultDecimalsDivisor
	}

	if len(c.Miners) == 0 {
		for kind := uint8(0); kind < records.Kinds; kind++ {
			c.Miners = append(c.Miners, Miner{Kind: kind})
		}
	}
	miners := make([]Miner, len(c.Miners))
	for i, m := range c.Miners {
		miners[i] = m.withDefaults()
	}
	c.Miners = miners
	return c
}

func (m Miner) withDefaults() Miner {
	d := miner.DefaultProfile(m.Kind)
	if m.ProgramID == "" && !d.ProgramID.IsZero() {
		m.ProgramID = d.ProgramID.String()
	}
	if m.BatchSize == 0 {
		m.BatchSize = d.BatchSize
	}
	if m.HashPattern == "" {
		m.HashPattern = d.Patterns.Hash
	}
	if m.SuperhashPattern == "" {
		m.SuperhashPattern = d.Patterns.Superhash
	}
	if m.SuperhashMultiplier == 0 {
		m.SuperhashMultiplier = d.SuperhashMultiplier
	}
	if m.AmpStart == 0 {
		m.AmpStart = d.AmpStart
	}
	if m.CycleSlots == 0 {
		m.CycleSlots = d.CycleSlots
	}
	return m
}

func (c Config) Validate() error {
	if c.Node.SlotDuration <= 0 {
		return slot.ErrInvalidDuration
	}
	if !c.Node.InMemory && c.Node.DBPath == "" {
		return errors.New("node: db_path is required unless in_memory is set")
	}
	profiles, err := c.MinerProfiles()
	if err != nil {
		return err
	}
	seen := make(map[uint8]bool, len(profiles))
	for _, p := range profiles {
		if seen[p.Kind] {
			return fmt.Errorf("miners: kind %d configured twice", p.Kind)
		}
		seen[p.Kind] = true
	}
	if _, err := c.MinterConfig(); err != nil {
		return err
	}
	return nil
}

// MinerProfiles converts the miner sections into program profiles.
func (c Config) MinerProfiles() ([]miner.Profile, error) {
	profiles := make([]miner.Profile, 0, len(c.Miners))
	for _, m := range c.Miners {
		id, err := solana.PublicKeyFromBase58(m.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("miners: kind %d: program_id: %w", m.Kind, err)
		}
		p := miner.Profile{
			Kind:                m.Kind,
			ProgramID:           id,
			BatchSize:           m.BatchSize,
			Patterns:            scorer.Patterns{Hash: m.HashPattern, Superhash: m.SuperhashPattern},
			SuperhashMultiplier: m.SuperhashMultiplier,
			AmpStart:            m.AmpStart,
			CycleSlots:          m.CycleSlots,
			StartSlot:           m.StartSlot,
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("miners: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// MinterConfig builds the minter configuration. The accepted miner
// program of a kind is taken from its miner section when there is one.
func (c Config) MinterConfig() (minter.Config, error) {
	id, err := solana.PublicKeyFromBase58(c.Minter.ProgramID)
	if err != nil {
		return minter.Config{}, fmt.Errorf("minter: program_id: %w", err)
	}
	cfg := minter.Config{
		ProgramID:       id,
		DecimalsDivisor: c.Minter.DecimalsDivisor,
		Miners:          miner.ProgramIDs,
	}
	if c.Minter.StartSlot != nil {
		cfg.StartSlot = *c.Minter.StartSlot
	}
	if c.Minter.Decimals != nil {
		cfg.Decimals = *c.Minter.Decimals
	}
	profiles, err := c.MinerProfiles()
	if err != nil {
		return minter.Config{}, err
	}
	for _, p := range profiles {
		cfg.Miners[p.Kind] = p.ProgramID
	}
	if err := cfg.Validate(); err != nil {
		return minter.Config{}, err
	}
	return cfg, nil
}

// MinerProgram returns the program id configured for kind.
func (c Config) MinerProgram(kind uint8) (solana.PublicKey, error) {
	for _, m := range c.Miners {
		if m.Kind == kind {
			return solana.PublicKeyFromBase58(m.ProgramID)
		}
	}
	return solana.PublicKey{}, fmt.Errorf("no miner configured for kind %d", kind)
}
