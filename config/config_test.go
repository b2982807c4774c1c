package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[upstream]
FastSourceURL = "http://localhost:9001"
FeeScheduleURL = "http://localhost:9002"
RelayURL = "http://localhost:9003"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8648", cfg.RPCAddress)
	require.Equal(t, "feedregistry-local", cfg.NetworkName)
	require.Equal(t, float64(120), cfg.RateLimit.RequestsPerMinute)
	require.Equal(t, 20, cfg.RateLimit.Burst)
	require.Equal(t, 15, cfg.Upstream.TimeoutSeconds)
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	_, err := Load(path)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestValidateRejectsMissingUpstream(t *testing.T) {
	path := writeConfig(t, `
RPCAddress = ":9000"
[upstream]
FastSourceURL = "http://localhost:9001"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsBadAdminAddress(t *testing.T) {
	path := writeConfig(t, `
AdminAddress = "0x1234"
[upstream]
FastSourceURL = "http://localhost:9001"
FeeScheduleURL = "http://localhost:9002"
RelayURL = "http://localhost:9003"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x00000000000000000000000000000000000000ad")
	require.NoError(t, err)
	require.Equal(t, byte(0xAD), addr[19])

	_, err = ParseAddress("0xzz")
	require.Error(t, err)
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
aliases:
  - old: "0x015842542f55534400000000000000000000000000"
    new: "0x014254432f55534400000000000000000000000000"
calculated:
  - "0x0000000000000000000000000000000000000010"
`), 0o644))

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Aliases, 1)
	require.Len(t, seed.Calculated, 1)

	empty, err := LoadSeed("")
	require.NoError(t, err)
	require.Empty(t, empty.Aliases)

	missing, err := LoadSeed(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Empty(t, missing.Calculated)
}
