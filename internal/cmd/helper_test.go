package cmd

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/kong/portpurge/internal/build"
	"github.com/kong/portpurge/internal/cmd/common"
	"github.com/kong/portpurge/internal/config"
	"github.com/kong/portpurge/internal/log"
	"github.com/kong/portpurge/internal/port"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func newCommandWithContext(ctx context.Context) *cobra.Command {
	c := &cobra.Command{Use: "test"}
	c.SetContext(ctx)
	return c
}

func TestCommandHelperReadsContextValues(t *testing.T) {
	cfg, err := config.GetConfig("")
	require.NoError(t, err)
	cfg.Set(common.OutputConfigPath, "yaml")

	logger := slog.New(slog.DiscardHandler)
	info := &build.Info{Version: "1.0.0"}
	ctx := context.WithValue(context.Background(), config.ConfigKey, config.Hook(cfg))
	ctx = context.WithValue(ctx, build.InfoKey, info)
	ctx = context.WithValue(ctx, log.LoggerKey, logger)

	helper := BuildHelper(newCommandWithContext(ctx), []string{"arg"})
	require.Equal(t, []string{"arg"}, helper.GetArgs())

	format, err := helper.GetOutputFormat()
	require.NoError(t, err)
	require.Equal(t, common.YAML, format)

	gotInfo, err := helper.GetBuildInfo()
	require.NoError(t, err)
	require.Same(t, info, gotInfo)

	gotLogger, err := helper.GetLogger()
	require.NoError(t, err)
	require.Same(t, logger, gotLogger)
}

func TestCommandHelperMissingValues(t *testing.T) {
	helper := BuildHelper(newCommandWithContext(context.Background()), nil)

	_, err := helper.GetBuildInfo()
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	_, err = helper.GetLogger()
	require.ErrorAs(t, err, &cfgErr)

	_, err = helper.GetConfig()
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
}

func TestInvalidOutputFormatIsConfigurationError(t *testing.T) {
	cfg, err := config.GetConfig("")
	require.NoError(t, err)
	cfg.Set(common.OutputConfigPath, "table")
	ctx := context.WithValue(context.Background(), config.ConfigKey, config.Hook(cfg))

	_, err = BuildHelper(newCommandWithContext(ctx), nil).GetOutputFormat()
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestPrepareExecutionErrorFromErrCollectsAttrs(t *testing.T) {
	c := newCommandWithContext(context.Background())
	reqErr := &port.RequestError{Operation: "search entities", Method: "POST", URL: "http://x", StatusCode: 500}
	wrapped := errors.Join(errors.New("context"), reqErr)

	execErr := PrepareExecutionErrorFromErr(BuildHelper(c, nil), wrapped, "run_id", "r1")
	require.True(t, c.SilenceUsage)
	require.True(t, c.SilenceErrors)
	require.Equal(t, wrapped.Error(), execErr.Msg)
	require.Equal(t, []any{"run_id", "r1"}, execErr.Attrs[:2])
	require.Contains(t, execErr.Attrs, "search entities")
	require.ErrorIs(t, execErr, reqErr)

	require.Nil(t, PrepareExecutionErrorFromErr(BuildHelper(c, nil), nil))
}

func TestPrepareExecutionErrorMsgDefaultsMessage(t *testing.T) {
	execErr := PrepareExecutionErrorMsg(nil, "")
	require.Equal(t, "an unknown error occurred", execErr.Error())
}

func TestTryConvertErrorToAttrs(t *testing.T) {
	attrs := TryConvertErrorToAttrs(errors.New(`{"status":404}`))
	require.Equal(t, []any{"status", float64(404)}, attrs)
	require.Nil(t, TryConvertErrorToAttrs(errors.New("plain")))
}

func TestFlagEnum(t *testing.T) {
	e := NewEnum([]string{"json", "yaml", "text"}, "text")
	require.Equal(t, "text", e.String())
	require.NoError(t, e.Set("json"))
	require.Equal(t, "json", e.String())
	require.Error(t, e.Set("table"))
	require.Equal(t, "string", e.Type())
}
