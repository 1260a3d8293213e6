package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/hashmint/internal/miner"
	"github.com/eigerco/hashmint/internal/minter"
	"github.com/eigerco/hashmint/internal/slot"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultListen, cfg.Node.Listen)
	assert.Equal(t, slot.DefaultDuration, cfg.Node.SlotDuration)
	assert.Equal(t, slot.DefaultGenesis, cfg.Node.Genesis)

	profiles, err := cfg.MinerProfiles()
	require.NoError(t, err)
	require.Len(t, profiles, 4)
	for kind, p := range profiles {
		assert.Equal(t, miner.DefaultProfile(uint8(kind)), p)
	}

	m, err := cfg.MinterConfig()
	require.NoError(t, err)
	assert.Equal(t, minter.DefaultConfig(), m)
}

func TestParseOverrides(t *testing.T) {
	data := []byte(`
node:
  listen: 0.0.0.0:7000
  in_memory: true
  slot_duration: 1s
  genesis: 2025-02-03T04:05:06Z
log:
  level: debug
  format: json
minter:
  start_slot: 0
  decimals_divisor: 1
miners:
  - kind: 0
    batch_size: 100
    superhash_multiplier: 500
    cycle_slots: 50000
  - kind: 1
    program_id: 5dxcK28nyAJdK9fSFuReRREeKnmAGVRpXPhwkZxAxFtJ
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:7000", cfg.Node.Listen)
	assert.True(t, cfg.Node.InMemory)
	assert.Equal(t, time.Second, cfg.Node.SlotDuration)
	assert.True(t, time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC).Equal(cfg.Node.Genesis))
	assert.Equal(t, "debug", cfg.Log.Level)

	profiles, err := cfg.MinerProfiles()
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, uint8(100), profiles[0].BatchSize)
	assert.Equal(t, uint64(500), profiles[0].SuperhashMultiplier)
	assert.Equal(t, uint64(50_000), profiles[0].CycleSlots)
	assert.Equal(t, miner.DefaultAmpStart, profiles[0].AmpStart)
	assert.Equal(t, miner.ProgramIDs[2], profiles[1].ProgramID)

	m, err := cfg.MinterConfig()
	require.NoError(t, err)
	assert.Zero(t, m.StartSlot)
	assert.Equal(t, uint64(1), m.DecimalsDivisor)
	assert.Equal(t, minter.DefaultDecimals, m.Decimals)
	assert.Equal(t, miner.ProgramIDs[2], m.Miners[1])
	assert.Equal(t, miner.ProgramIDs[3], m.Miners[3])
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown field", "node:\n  listn: 1.2.3.4:1\n"},
		{"bad program id", "minter:\n  program_id: not-base58!\n"},
		{"kind out of range", "miners:\n  - kind: 4\n    program_id: B8HwMYCk1o7EaJhooM4P43BHSk5M8zZHsTeJixqw7LMN\n"},
		{"duplicate kind", "miners:\n  - kind: 1\n  - kind: 1\n"},
		{"negative slot duration", "node:\n  slot_duration: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashmint.yaml")
	require.NoError(t, os.WriteFile(path, []byte("node:\n  db_path: /var/lib/hashmint\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/hashmint", cfg.Node.DBPath)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMinerProgram(t *testing.T) {
	cfg := Default()
	id, err := cfg.MinerProgram(3)
	require.NoError(t, err)
	assert.Equal(t, miner.ProgramIDs[3], id)

	_, err = cfg.MinerProgram(7)
	assert.Error(t, err)
}
