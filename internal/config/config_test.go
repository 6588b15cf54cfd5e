package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{"db_path": "papergen.db"}`))
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Equal(t, "basic", cfg.Project.Template)
	require.Len(t, cfg.AI.Chain, 1)
	require.Equal(t, "offline", cfg.AI.Chain[0].Provider)
	require.Equal(t, 120, cfg.AI.Timeout)
	require.Equal(t, 30, cfg.AI.RetryWaitSeconds)
	require.Equal(t, 6000, cfg.Context.MaxTokens)
	require.InDelta(t, 0.25, cfg.Context.Margin, 1e-9)
	require.Equal(t, 720, cfg.Cache.TTLHours)
	require.Equal(t, 8901, cfg.Preview.Port)
}

func TestLoadValidates(t *testing.T) {
	_, err := Load(writeConfig(t, `{}`))
	require.Error(t, err)

	_, err = Load(writeConfig(t, `{"db_path":"x","ai":{"chain":[{"provider":"gemini"}]}}`))
	require.Error(t, err)

	_, err = Load(writeConfig(t, `{"db_path":"x","context":{"margin":1.5}}`))
	require.Error(t, err)

	cfg, err := Load(writeConfig(t, `{"db_path":"x","ai":{"chain":[{"provider":"gemini","model":"gemini-2.5-flash","args":{"api_key":"k"}}]}}`))
	require.NoError(t, err)
	require.Equal(t, "gemini", cfg.AI.Chain[0].Provider)
	require.Equal(t, "gemini-2.5-flash", cfg.AI.Chain[0].Model)
}
