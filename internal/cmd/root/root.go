package root

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kong/portpurge/internal/build"
	"github.com/kong/portpurge/internal/cmd"
	"github.com/kong/portpurge/internal/cmd/common"
	"github.com/kong/portpurge/internal/cmd/root/purge"
	"github.com/kong/portpurge/internal/cmd/root/version"
	"github.com/kong/portpurge/internal/config"
	"github.com/kong/portpurge/internal/iostreams"
	"github.com/kong/portpurge/internal/log"
	"github.com/kong/portpurge/internal/meta"
	"github.com/kong/portpurge/internal/util/i18n"
	"github.com/kong/portpurge/internal/util/normalizers"
	"github.com/spf13/cobra"
)

var (
	rootLong = normalizers.LongDesc(i18n.T("root.rootLong", `
  Remove every catalog entity a Port integration created.

  Entities whose $datasource contains the integration identifier are found,
  grouped by blueprint and deleted in bulk batches. With --delete-integration
  the integration itself is removed afterwards. Use --dry-run to see what
  would be deleted without changing anything.`))

	rootShort = i18n.T("root/rootShort",
		fmt.Sprintf("%s deletes the entities of a Port integration", meta.CLIName))

	rootExample = normalizers.Examples(i18n.T("root.rootExamples", fmt.Sprintf(`
		# List what would be deleted
		%[1]s --integration-id my-github-exporter --dry-run
		# Delete the entities and the integration, credentials read from a .env file
		%[1]s --integration-id my-github-exporter --delete-integration --env-file .env
		# Count deleted entities per blueprint
		%[1]s --integration-id my-github-exporter -o json --jq '.blueprints[] | {blueprint, deleted}'
		`, meta.CLIName)))
)

// rootState holds what the persistent pre-run resolves so Execute can report
// errors through the configured logger and release the log file.
type rootState struct {
	streams        *iostreams.IOStreams
	buildInfo      *build.Info
	configFilePath string
	envFilePath    string
	outputFormat   *cmd.FlagEnum
	logLevel       *cmd.FlagEnum
	colorMode      *cmd.FlagEnum

	logger    *slog.Logger
	logCloser io.Closer
}

// NewRootCmd builds the command tree writing to streams.
func NewRootCmd(streams *iostreams.IOStreams, buildInfo *build.Info) *cobra.Command {
	return newRootState(streams, buildInfo).newRootCmd()
}

func newRootState(streams *iostreams.IOStreams, buildInfo *build.Info) *rootState {
	return &rootState{
		streams:      streams,
		buildInfo:    buildInfo,
		outputFormat: cmd.NewEnum([]string{"json", "yaml", "text"}, common.DefaultOutputFormat),
		logLevel:     cmd.NewEnum(log.LevelNames(), common.DefaultLogLevel),
		colorMode: cmd.NewEnum([]string{
			common.ColorModeAuto.String(),
			common.ColorModeAlways.String(),
			common.ColorModeNever.String(),
		}, common.DefaultColorMode),
	}
}

func (s *rootState) newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               meta.CLIName,
		Short:             rootShort,
		Long:              rootLong,
		Example:           rootExample,
		Args:              cobra.NoArgs,
		PersistentPreRunE: s.persistentPreRunE,
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return s.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&s.configFilePath, common.ConfigFilePathFlagName, "",
		i18n.T("root."+common.ConfigFilePathFlagName,
			"Path to an optional configuration file (yaml, json or toml). It is only read."))

	rootCmd.PersistentFlags().StringVar(&s.envFilePath, common.EnvFilePathFlagName, "",
		i18n.T("root."+common.EnvFilePathFlagName,
			"Path to a .env file loaded before reading environment variables."))

	rootCmd.PersistentFlags().VarP(s.outputFormat, common.OutputFlagName, common.OutputFlagShort,
		fmt.Sprintf(`Configures the output format.
- Config path: [ %s ]
- Allowed    : [ %s ]`,
			common.OutputConfigPath, strings.Join(s.outputFormat.Allowed, "|")))

	rootCmd.PersistentFlags().Var(s.logLevel, common.LogLevelFlagName,
		fmt.Sprintf(`Configures the logging level. Execution logs are written to stderr.
- Config path: [ %s ]
- Allowed    : [ %s ]`,
			common.LogLevelConfigPath, strings.Join(s.logLevel.Allowed, "|")))

	rootCmd.PersistentFlags().String(common.LogFileFlagName, "",
		fmt.Sprintf(`Write JSON logs to this file instead of stderr. Errors are still shown on stderr.
- Config path: [ %s ]`, common.LogFileConfigPath))

	rootCmd.PersistentFlags().Var(s.colorMode, common.ColorFlagName,
		fmt.Sprintf(`Controls colorized output.
- Config path: [ %s ]
- Allowed    : [ %s ]`,
			common.ColorConfigPath, strings.Join(s.colorMode.Allowed, "|")))

	purge.NewPurgeCmd(rootCmd)
	rootCmd.AddCommand(version.NewVersionCmd())

	return rootCmd
}

var persistentBindings = []struct{ flag, cfgPath string }{
	{common.OutputFlagName, common.OutputConfigPath},
	{common.LogLevelFlagName, common.LogLevelConfigPath},
	{common.LogFileFlagName, common.LogFileConfigPath},
	{common.ColorFlagName, common.ColorConfigPath},
}

func (s *rootState) persistentPreRunE(c *cobra.Command, _ []string) error {
	if err := config.LoadEnvFile(s.envFilePath); err != nil {
		return &cmd.ConfigurationError{Err: err}
	}

	cfg, err := config.GetConfig(s.configFilePath)
	if err != nil {
		return &cmd.ConfigurationError{Err: err}
	}
	for _, b := range persistentBindings {
		if err := cfg.BindFlag(b.cfgPath, c.Flags().Lookup(b.flag)); err != nil {
			return err
		}
	}

	level := cfg.GetString(common.LogLevelConfigPath)
	if _, err := common.LogLevelStringToIota(strings.ToLower(level)); err != nil {
		return &cmd.ConfigurationError{Err: err}
	}

	logger, closer, err := log.New(log.Config{
		Level:   level,
		File:    cfg.GetString(common.LogFileConfigPath),
		Console: s.streams.ErrOut,
	})
	if err != nil {
		return &cmd.ConfigurationError{Err: err}
	}
	s.logger, s.logCloser = logger, closer
	logger.Debug("configuration loaded", "config_file", cfg.GetPath(), "command", c.CommandPath())

	ctx := context.WithValue(c.Context(), config.ConfigKey, config.Hook(cfg))
	ctx = context.WithValue(ctx, iostreams.StreamsKey, s.streams)
	ctx = context.WithValue(ctx, build.InfoKey, s.buildInfo)
	ctx = context.WithValue(ctx, log.LoggerKey, logger)
	ctx = log.WithHTTPLogContext(ctx, log.HTTPLogContext{CommandPath: c.CommandPath()})
	c.SetContext(ctx)
	return nil
}

func (s *rootState) close() error {
	if s.logCloser == nil {
		return nil
	}
	err := s.logCloser.Close()
	s.logCloser = nil
	return err
}

// report writes err to the user. Execution errors go through the logger so
// they render in friendly form and land in the log file; everything else was
// already printed by cobra.
func (s *rootState) report(err error) {
	var executionError *cmd.ExecutionError
	if !errors.As(err, &executionError) {
		return
	}
	logger := s.logger
	if logger == nil {
		logger = slog.New(log.NewFriendlyErrorHandler(s.streams.ErrOut))
	}
	logger.Error(executionError.Msg, executionError.Attrs...)
}

// ExecuteArgs runs the command tree with args and returns the resulting error.
func ExecuteArgs(ctx context.Context, s *iostreams.IOStreams, bi *build.Info, args []string) error {
	cobra.EnableTraverseRunHooks = true
	state := newRootState(s, bi)
	rootCmd := state.newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(s.In)
	rootCmd.SetOut(s.Out)
	rootCmd.SetErr(s.ErrOut)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		state.report(err)
	}
	_ = state.close()
	return err
}

func Execute(ctx context.Context, s *iostreams.IOStreams, bi *build.Info) {
	if err := ExecuteArgs(ctx, s, bi, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
