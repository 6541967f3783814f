package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestGetConfigWithoutFileReadsEnvironment(t *testing.T) {
	t.Setenv("PORT_CLIENT_SECRET", "s3cr3t")

	cfg, err := GetConfig("")
	require.NoError(t, err)
	require.Equal(t, "", cfg.GetPath())
	require.Equal(t, "s3cr3t", cfg.GetString("client-secret"))
}

func TestGetConfigMissingFile(t *testing.T) {
	_, err := GetConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "does not exist")
}

func TestGetConfigFlagOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch-size: 10\ntimeout: 5s\n"), 0o600))

	cfg, err := GetConfig(path)
	require.NoError(t, err)
	require.Equal(t, path, cfg.GetPath())
	require.Equal(t, 5*time.Second, cfg.GetDuration("timeout"))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("batch-size", 100, "")
	require.NoError(t, cfg.BindFlag("batch-size", flags.Lookup("batch-size")))
	require.Equal(t, 10, cfg.GetInt("batch-size"))

	require.NoError(t, flags.Parse([]string{"--batch-size", "3"}))
	require.Equal(t, 3, cfg.GetInt("batch-size"))
}

func TestGetIntOrElse(t *testing.T) {
	cfg, err := GetConfig("")
	require.NoError(t, err)
	require.Equal(t, 7, cfg.GetIntOrElse("batch-size", 7))

	cfg.Set("batch-size", 9)
	require.Equal(t, 9, cfg.GetIntOrElse("batch-size", 7))
}

func TestBindFlagRejectsNil(t *testing.T) {
	cfg, err := GetConfig("")
	require.NoError(t, err)
	require.Error(t, cfg.BindFlag("output", nil))
}

func TestLoadEnvFileDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT_CLIENT_ID=from-file\nPORT_TEST_ONLY_VALUE=loaded\n"), 0o600))
	t.Setenv("PORT_CLIENT_ID", "from-env")
	t.Setenv("PORT_TEST_ONLY_VALUE", "")
	require.NoError(t, os.Unsetenv("PORT_TEST_ONLY_VALUE"))

	require.NoError(t, LoadEnvFile(path))
	require.Equal(t, "from-env", os.Getenv("PORT_CLIENT_ID"))
	require.Equal(t, "loaded", os.Getenv("PORT_TEST_ONLY_VALUE"))
}

func TestLoadEnvFileMissing(t *testing.T) {
	require.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, LoadEnvFile(""))
}
