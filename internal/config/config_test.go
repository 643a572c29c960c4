package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/glrecon/internal/ingest"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GLRECON_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "share", "glrecon", "glrecon.db"), cfg.Database.Path)
	require.Equal(t, "auto", cfg.Import.DefaultEncoding)
	require.Equal(t, ingest.DefaultTargetAccounts, cfg.Import.TargetAccounts)
	require.Equal(t, 15*time.Minute, cfg.Import.PreviewTTL)
	require.Equal(t, 5*time.Minute, cfg.Lock.TTL)
	require.Empty(t, cfg.Lock.RedisAddr)
	require.False(t, cfg.Server.Production)
}

func TestSaveThenLoadWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	t.Setenv("HOME", dir)
	t.Setenv("GLRECON_CONFIG", path)

	cfg, err := Load()
	require.Error(t, err, "explicit config path must exist")
	_ = cfg

	in := Config{
		Database: DatabaseConfig{Path: filepath.Join(dir, "x.db")},
		Import:   ImportConfig{DefaultEncoding: "shift_jis", TargetAccounts: []string{"511", "512"}, PreviewTTL: time.Minute},
		Log:      LogConfig{Level: "debug", Format: "json"},
		Server:   ServerConfig{Addr: ":9000", Production: true},
		Lock:     LockConfig{TTL: 30 * time.Second},
	}
	require.NoError(t, Save(in))

	t.Setenv("GLRECON_SERVER_ADDR", ":9100")
	out, err := Load()
	require.NoError(t, err)
	require.Equal(t, in.Database.Path, out.Database.Path)
	require.Equal(t, "shift_jis", out.Import.DefaultEncoding)
	require.Equal(t, []string{"511", "512"}, out.Import.TargetAccounts)
	require.Equal(t, time.Minute, out.Import.PreviewTTL)
	require.Equal(t, "json", out.Log.Format)
	require.Equal(t, ":9100", out.Server.Addr)
	require.True(t, out.Server.Production)
	require.Equal(t, 30*time.Second, out.Lock.TTL)
}
