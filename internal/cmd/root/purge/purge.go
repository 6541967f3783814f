package purge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kong/portpurge/internal/cmd"
	"github.com/kong/portpurge/internal/cmd/common"
	"github.com/kong/portpurge/internal/cmd/output/jq"
	"github.com/kong/portpurge/internal/meta"
	"github.com/kong/portpurge/internal/port"
	"github.com/kong/portpurge/internal/port/auth"
	"github.com/kong/portpurge/internal/port/httpclient"
	workflow "github.com/kong/portpurge/internal/purge"
	"github.com/kong/portpurge/internal/theme"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	UserAgentHeader = "User-Agent"
	RequestIDHeader = "X-Request-Id"
)

// settings is everything a run needs, resolved and validated from flags,
// environment and config file.
type settings struct {
	credentials port.Credentials
	baseURL     string
	timeout     time.Duration
	options     workflow.Options
	output      common.OutputFormat
	colorMode   common.ColorMode
	jq          jq.Settings
}

type purgeCmd struct {
	*cobra.Command
}

// AddFlags registers the purge flags on flags.
func AddFlags(flags *pflag.FlagSet) {
	flags.String(common.ClientIDFlagName, "",
		flagUsage("Port client id used to request an access token.", common.ClientIDConfigPath))
	flags.String(common.ClientSecretFlagName, "",
		flagUsage("Port client secret used to request an access token.", common.ClientSecretConfigPath))
	flags.String(common.IntegrationIDFlagName, "",
		flagUsage("Identifier of the integration whose entities are purged (required).", common.IntegrationIDConfigPath))
	flags.Bool(common.DryRunFlagName, false,
		flagUsage("List the entities that would be deleted without deleting anything.", common.DryRunConfigPath))
	flags.Bool(common.DeleteIntegrationFlagName, false,
		flagUsage("Delete the integration itself once its entities are gone.", common.DeleteIntegrationConfigPath))
	flags.Int(common.BatchSizeFlagName, workflow.DefaultBatchSize,
		flagUsage("Maximum number of identifiers sent in one bulk delete request.", common.BatchSizeConfigPath))
	flags.String(common.BaseURLFlagName, port.DefaultBaseURL,
		flagUsage("Base URL of the Port API.", common.BaseURLConfigPath))
	flags.Duration(common.RequestTimeoutFlagName, httpclient.DefaultTimeout,
		flagUsage("Timeout applied to each HTTP request.", common.RequestTimeoutConfigPath))
	jq.AddFlags(flags)
}

func flagUsage(desc, configPath string) string {
	envVar := strings.ToUpper(meta.EnvPrefix + "_" + strings.ReplaceAll(configPath, "-", "_"))
	return fmt.Sprintf(`%s
- Config path: [ %s ]
- Env        : [ %s ]`, desc, configPath, envVar)
}

var flagBindings = []struct{ flag, cfgPath string }{
	{common.ClientIDFlagName, common.ClientIDConfigPath},
	{common.ClientSecretFlagName, common.ClientSecretConfigPath},
	{common.IntegrationIDFlagName, common.IntegrationIDConfigPath},
	{common.DryRunFlagName, common.DryRunConfigPath},
	{common.DeleteIntegrationFlagName, common.DeleteIntegrationConfigPath},
	{common.BatchSizeFlagName, common.BatchSizeConfigPath},
	{common.BaseURLFlagName, common.BaseURLConfigPath},
	{common.RequestTimeoutFlagName, common.RequestTimeoutConfigPath},
}

func (c *purgeCmd) bindFlags(helper cmd.Helper) error {
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}
	flags := helper.GetCmd().Flags()
	for _, b := range flagBindings {
		if err := cfg.BindFlag(b.cfgPath, flags.Lookup(b.flag)); err != nil {
			return err
		}
	}
	return nil
}

func configurationError(format string, args ...any) error {
	return &cmd.ConfigurationError{Err: fmt.Errorf(format, args...)}
}

func (c *purgeCmd) validate(helper cmd.Helper) (*settings, error) {
	cfg, err := helper.GetConfig()
	if err != nil {
		return nil, err
	}

	s := &settings{
		credentials: port.Credentials{
			ClientID:     strings.TrimSpace(cfg.GetString(common.ClientIDConfigPath)),
			ClientSecret: strings.TrimSpace(cfg.GetString(common.ClientSecretConfigPath)),
		},
		baseURL: strings.TrimSpace(cfg.GetString(common.BaseURLConfigPath)),
		timeout: cfg.GetDuration(common.RequestTimeoutConfigPath),
		options: workflow.Options{
			IntegrationID:     strings.TrimSpace(cfg.GetString(common.IntegrationIDConfigPath)),
			BatchSize:         cfg.GetIntOrElse(common.BatchSizeConfigPath, workflow.DefaultBatchSize),
			DryRun:            cfg.GetBool(common.DryRunConfigPath),
			DeleteIntegration: cfg.GetBool(common.DeleteIntegrationConfigPath),
		},
	}

	if err := s.options.Validate(); err != nil {
		return nil, optionsError(err)
	}
	if s.credentials.ClientID == "" || s.credentials.ClientSecret == "" {
		return nil, configurationError(
			"Port credentials are required: set --%s and --%s or the %s_CLIENT_ID and %s_CLIENT_SECRET environment variables",
			common.ClientIDFlagName, common.ClientSecretFlagName,
			strings.ToUpper(meta.EnvPrefix), strings.ToUpper(meta.EnvPrefix))
	}
	if s.timeout < 0 {
		return nil, configurationError("--%s must not be negative", common.RequestTimeoutFlagName)
	}

	if s.output, err = helper.GetOutputFormat(); err != nil {
		return nil, err
	}
	if s.colorMode, err = common.ColorModeStringToIota(cfg.GetString(common.ColorConfigPath)); err != nil {
		return nil, &cmd.ConfigurationError{Err: err}
	}
	if s.jq, err = jq.ResolveSettings(helper.GetCmd().Flags(), s.colorMode); err != nil {
		return nil, &cmd.ConfigurationError{Err: err}
	}
	if err := jq.ValidateOutputFormat(s.output, s.jq); err != nil {
		return nil, err
	}
	return s, nil
}

func optionsError(err error) error {
	switch {
	case errors.Is(err, workflow.ErrMissingIntegrationID):
		return configurationError("--%s is required (or set %s_INTEGRATION_ID)",
			common.IntegrationIDFlagName, strings.ToUpper(meta.EnvPrefix))
	case errors.Is(err, workflow.ErrInvalidBatchSize):
		return configurationError("--%s must be greater than zero", common.BatchSizeFlagName)
	default:
		return &cmd.ConfigurationError{Err: err}
	}
}

func (c *purgeCmd) run(helper cmd.Helper, s *settings) error {
	logger, err := helper.GetLogger()
	if err != nil {
		return err
	}
	buildInfo, err := helper.GetBuildInfo()
	if err != nil {
		return err
	}
	streams := helper.GetStreams()

	runID := uuid.NewString()
	s.options.RunID = runID

	client := port.NewClient(
		s.baseURL,
		httpclient.NewLoggingHTTPClient(logger, s.timeout),
		port.WithHeader(UserAgentHeader, fmt.Sprintf("%s/%s", meta.CLIName, buildInfo.Version)),
		port.WithHeader(RequestIDHeader, runID),
	)

	purger := &workflow.Purger{
		API:     client,
		Token:   authenticator(client, s.credentials),
		Options: s.options,
		Logger:  logger,
	}

	var progress *textProgress
	if s.output == common.TEXT {
		color := jq.ShouldUseColor(s.colorMode, streams.Out)
		progress = newTextProgress(streams.Out, theme.NewStyles(streams.Out, theme.Default(), color))
		purger.Progress = progress.handle
	}

	report, runErr := purger.Run(helper.GetContext())
	if report != nil {
		var printErr error
		if progress != nil {
			printErr = progress.summary(report, runErr)
		} else {
			printErr = printReport(streams.Out, s, report)
		}
		if printErr != nil && runErr == nil {
			return cmd.PrepareExecutionErrorFromErr(helper, printErr)
		}
	}
	if runErr != nil {
		return cmd.PrepareExecutionErrorFromErr(helper, runErr, "run_id", runID)
	}
	return nil
}

func authenticator(client *port.Client, creds port.Credentials) workflow.TokenSource {
	return func(ctx context.Context) (string, error) {
		return auth.Authenticate(ctx, client, creds)
	}
}

func printReport(out io.Writer, s *settings, report *workflow.Report) error {
	payload, handled, err := jq.ApplyToRaw(report, s.output, s.jq, out)
	if err != nil || handled {
		return err
	}

	printer, err := cli.Format(s.output.String(), out)
	if err != nil {
		return err
	}
	defer printer.Flush()
	printer.Print(payload)
	return nil
}

func (c *purgeCmd) preRunE(cobraCmd *cobra.Command, args []string) error {
	return c.bindFlags(cmd.BuildHelper(cobraCmd, args))
}

func (c *purgeCmd) runE(cobraCmd *cobra.Command, args []string) error {
	helper := cmd.BuildHelper(cobraCmd, args)
	s, e := c.validate(helper)
	if e != nil {
		return e
	}
	return c.run(helper, s)
}

// NewPurgeCmd turns baseCmd into the purge command: it registers the purge
// flags and installs the run hooks.
func NewPurgeCmd(baseCmd *cobra.Command) *cobra.Command {
	rv := purgeCmd{
		Command: baseCmd,
	}

	AddFlags(baseCmd.Flags())
	baseCmd.PreRunE = rv.preRunE
	baseCmd.RunE = rv.runE

	return baseCmd
}
