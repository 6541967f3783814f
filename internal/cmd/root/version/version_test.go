package version

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/kong/portpurge/internal/build"
	"github.com/kong/portpurge/internal/cmd/common"
	"github.com/kong/portpurge/internal/config"
	"github.com/kong/portpurge/internal/iostreams"
	"github.com/kong/portpurge/test/cmd"
	testConfig "github.com/kong/portpurge/test/config"
	"github.com/stretchr/testify/require"
)

func newHelper(streams *iostreams.IOStreams, format common.OutputFormat, showCommit bool) *cmd.MockHelper {
	return &cmd.MockHelper{
		GetOutputFormatMock: func() (common.OutputFormat, error) {
			return format, nil
		},
		GetConfigMock: func() (config.Hook, error) {
			return &testConfig.MockConfigHook{
				GetBoolMock: func(key string) bool {
					return key == ShowCommitConfigPath && showCommit
				},
			}, nil
		},
		GetStreamsMock: func() *iostreams.IOStreams {
			return streams
		},
		GetBuildInfoMock: func() (*build.Info, error) {
			return &build.Info{Version: "1.2.3", Commit: "abc123", Date: "2026-01-02"}, nil
		},
	}
}

func Test_VersionCmd(t *testing.T) {
	streams, _, out, _ := iostreams.NewTestIOStreams()
	helper := newHelper(streams, common.TEXT, false)

	require.NoError(t, validate(helper))
	require.NoError(t, run(helper))
	require.Equal(t, "1.2.3\n", out.String())
}

func Test_VersionCmdShowCommit(t *testing.T) {
	streams, _, out, _ := iostreams.NewTestIOStreams()

	require.NoError(t, run(newHelper(streams, common.TEXT, true)))
	require.Equal(t, "1.2.3 (abc123, 2026-01-02)\n", out.String())
}

func Test_VersionCmdJSONOutput(t *testing.T) {
	streams, _, out, _ := iostreams.NewTestIOStreams()

	require.NoError(t, run(newHelper(streams, common.JSON, false)))

	var actual map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &actual))
	require.Equal(t, map[string]any{"version": "1.2.3"}, actual)
}
