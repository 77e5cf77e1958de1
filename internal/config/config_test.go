package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Default(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8125", cfg.ListenUDP)
	require.Equal(t, 90, cfg.Percentile)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statsdaggd.toml")
	contents := `
listen_udp = ":9125"
flush_interval_ms = 5000
percentile = 95

[[backend]]
kind = "graphite"
addresses = ["graphite.internal:2003"]
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9125", cfg.ListenUDP)
	require.Equal(t, int64(5000), cfg.FlushInterval)
	require.Equal(t, 95, cfg.Percentile)
	require.Len(t, cfg.Backends, 1)
	require.Equal(t, "graphite.internal:2003", cfg.Backends[0].Addresses[0])
}

func TestLoad_RejectsSubSecondInterval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statsdaggd.toml")
	require.NoError(t, os.WriteFile(path, []byte("flush_interval_ms = 500\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
