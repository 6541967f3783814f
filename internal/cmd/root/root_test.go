package root

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/kong/portpurge/internal/build"
	"github.com/kong/portpurge/internal/cmd"
	"github.com/kong/portpurge/internal/iostreams"
	"github.com/kong/portpurge/internal/port"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method        string
	Path          string
	Body          string
	Authorization string
	UserAgent     string
	RequestID     string
}

// fakePort serves the subset of the Port API a purge run uses.
type fakePort struct {
	t        *testing.T
	server   *httptest.Server
	token    string
	entities string
	// failBlueprint makes bulk deletes for that blueprint return 500.
	failBlueprint string

	mu       sync.Mutex
	requests []recordedRequest
}

func newFakePort(t *testing.T, entities string) *fakePort {
	t.Helper()
	f := &fakePort{t: t, token: "tok-123", entities: entities}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePort) baseURL() string {
	return f.server.URL + "/v1"
}

func (f *fakePort) serve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	require.NoError(f.t, err)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Body:          string(body),
		Authorization: r.Header.Get("Authorization"),
		UserAgent:     r.Header.Get("User-Agent"),
		RequestID:     r.Header.Get("X-Request-Id"),
	})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/auth/access_token":
		if f.token == "" {
			_, _ = w.Write([]byte(`{"ok":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"accessToken":"` + f.token + `"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/v1/entities/search":
		require.Equal(f.t, []string{"identifier", "blueprint"}, r.URL.Query()["include"])
		_, _ = w.Write([]byte(`{"ok":true,"entities":` + f.entities + `}`))
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/v1/blueprints/"):
		blueprint := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/blueprints/"), "/bulk/entities")
		if blueprint == f.failBlueprint {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"ok":false,"error":"internal_error"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/v1/integration/"):
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakePort) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakePort) count(method, pathPrefix string) int {
	n := 0
	for _, r := range f.recorded() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			n++
		}
	}
	return n
}

const threeEntities = `[
	{"identifier":"a","blueprint":"x"},
	{"identifier":"b","blueprint":"x"},
	{"identifier":"c","blueprint":"y"}
]`

type result struct {
	err    error
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func execute(t *testing.T, args ...string) result {
	t.Helper()
	streams, _, out, errOut := iostreams.NewTestIOStreams()
	err := ExecuteArgs(context.Background(), streams, &build.Info{Version: "1.2.3", Commit: "abc", Date: "today"}, args)
	return result{err: err, stdout: out, stderr: errOut}
}

func baseArgs(f *fakePort, extra ...string) []string {
	return append([]string{
		"--base-url", f.baseURL(),
		"--client-id", "id",
		"--client-secret", "secret",
		"--integration-id", "my-int",
	}, extra...)
}

func TestDryRunPrintsPlanWithoutDeleting(t *testing.T) {
	f := newFakePort(t, threeEntities)

	res := execute(t, baseArgs(f, "--dry-run", "--delete-integration")...)
	require.NoError(t, res.err)

	require.Zero(t, f.count(http.MethodDelete, "/"))
	out := res.stdout.String()
	require.Contains(t, out, "Authenticating with Port...")
	require.Contains(t, out, "Searching for entities with datasource containing 'my-int'...")
	require.Contains(t, out, "Found 3 entities.")
	require.Contains(t, out, "Blueprint: x")
	require.Contains(t, out, "Number of entities to be deleted: 2")
	require.Contains(t, out, "Entities ids: [a, b]")
	require.Contains(t, out, "Dry run enabled, batch 1/1 (1 entities) not deleted.")
	require.Contains(t, out, "Dry run enabled, integration 'my-int' not deleted.")
	require.Contains(t, out, "Dry run complete: 3 entities across 2 blueprints would be deleted.")
	require.NotContains(t, out, "\x1b[")
}

func TestPurgeDeletesBatchesAndIntegration(t *testing.T) {
	f := newFakePort(t, threeEntities)

	res := execute(t, baseArgs(f, "--batch-size", "2", "--delete-integration", "-o", "json")...)
	require.NoError(t, res.err, res.stderr.String())

	var report map[string]any
	require.NoError(t, json.Unmarshal(res.stdout.Bytes(), &report))
	require.Equal(t, float64(3), report["entities_deleted"])
	require.Equal(t, true, report["completed"])
	require.Equal(t, map[string]any{"id": "my-int", "deleted": true}, report["integration"])

	requests := f.recorded()
	require.Len(t, requests, 5)
	require.Equal(t, "/v1/auth/access_token", requests[0].Path)
	require.Empty(t, requests[0].Authorization)
	require.Equal(t, "/v1/entities/search", requests[1].Path)
	require.JSONEq(t,
		`{"combinator":"and","rules":[{"property":"$datasource","operator":"contains","value":"my-int"}]}`,
		requests[1].Body)
	require.Equal(t, "/v1/blueprints/x/bulk/entities", requests[2].Path)
	require.JSONEq(t, `{"entities":["a","b"]}`, requests[2].Body)
	require.Equal(t, "/v1/blueprints/y/bulk/entities", requests[3].Path)
	require.JSONEq(t, `{"entities":["c"]}`, requests[3].Body)
	require.Equal(t, http.MethodDelete, requests[4].Method)
	require.Equal(t, "/v1/integration/my-int", requests[4].Path)

	for _, r := range requests {
		require.Equal(t, "portpurge/1.2.3", r.UserAgent)
		require.Equal(t, report["run_id"], r.RequestID)
	}
	for _, r := range requests[1:] {
		require.Equal(t, "Bearer tok-123", r.Authorization)
	}
}

func TestPurgeReadsSettingsFromEnvironment(t *testing.T) {
	f := newFakePort(t, threeEntities)
	t.Setenv("PORT_CLIENT_ID", "id")
	t.Setenv("PORT_CLIENT_SECRET", "secret")
	t.Setenv("PORT_INTEGRATION_ID", "env-int")
	t.Setenv("PORT_BASE_URL", f.baseURL())
	t.Setenv("PORT_BATCH_SIZE", "1")

	res := execute(t, "-o", "yaml")
	require.NoError(t, res.err, res.stderr.String())
	require.Contains(t, res.stdout.String(), "integration_id: env-int")
	require.Equal(t, 3, f.count(http.MethodDelete, "/v1/blueprints/"))
}

func TestPurgeFlagOverridesEnvironment(t *testing.T) {
	f := newFakePort(t, `[]`)
	t.Setenv("PORT_INTEGRATION_ID", "env-int")

	res := execute(t, baseArgs(f, "-o", "json", "--jq", ".integration_id", "-r")...)
	require.NoError(t, res.err, res.stderr.String())
	require.Equal(t, "my-int\n", res.stdout.String())
}

func TestPurgeLoadsEnvFile(t *testing.T) {
	f := newFakePort(t, `[]`)
	keys := []string{"PORT_CLIENT_ID", "PORT_CLIENT_SECRET", "PORT_INTEGRATION_ID"}
	for _, k := range keys {
		_, set := os.LookupEnv(k)
		require.False(t, set, "%s must not be set for this test", k)
	}
	t.Cleanup(func() {
		for _, k := range keys {
			_ = os.Unsetenv(k)
		}
	})

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile,
		[]byte("PORT_CLIENT_ID=id\nPORT_CLIENT_SECRET=secret\nPORT_INTEGRATION_ID=file-int\n"), 0o600))

	res := execute(t, "--env-file", envFile, "--base-url", f.baseURL(), "-o", "json", "--jq", ".integration_id")
	require.NoError(t, res.err, res.stderr.String())
	require.Equal(t, `"file-int"`, strings.TrimSpace(res.stdout.String()))
}

func TestPurgeReadsConfigFile(t *testing.T) {
	f := newFakePort(t, threeEntities)
	cfgFile := filepath.Join(t.TempDir(), "portpurge.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(
		"client-id: id\nclient-secret: secret\nintegration-id: cfg-int\nbatch-size: 5\nbase-url: "+f.baseURL()+"\n"), 0o600))

	res := execute(t, "--config-file", cfgFile, "-o", "json", "--jq", ".batch_size")
	require.NoError(t, res.err, res.stderr.String())
	require.Equal(t, "5", strings.TrimSpace(res.stdout.String()))
}

func TestMissingIntegrationIDIsConfigurationError(t *testing.T) {
	f := newFakePort(t, threeEntities)

	res := execute(t, "--base-url", f.baseURL(), "--client-id", "id", "--client-secret", "secret")
	var cfgErr *cmd.ConfigurationError
	require.ErrorAs(t, res.err, &cfgErr)
	require.Contains(t, res.err.Error(), "--integration-id is required")
	require.Contains(t, res.stderr.String(), "Error: --integration-id is required")
	require.Contains(t, res.stdout.String()+res.stderr.String(), "Usage:")
	require.Empty(t, f.recorded())
}

func TestMissingCredentialsIsConfigurationError(t *testing.T) {
	f := newFakePort(t, threeEntities)

	res := execute(t, "--base-url", f.baseURL(), "--integration-id", "my-int")
	var cfgErr *cmd.ConfigurationError
	require.ErrorAs(t, res.err, &cfgErr)
	require.Contains(t, res.err.Error(), "credentials are required")
	require.Empty(t, f.recorded())
}

func TestInvalidBatchSizeIsConfigurationError(t *testing.T) {
	f := newFakePort(t, threeEntities)

	res := execute(t, baseArgs(f, "--batch-size", "0")...)
	var cfgErr *cmd.ConfigurationError
	require.ErrorAs(t, res.err, &cfgErr)
	require.Empty(t, f.recorded())
}

func TestJQRequiresStructuredOutput(t *testing.T) {
	f := newFakePort(t, threeEntities)

	res := execute(t, baseArgs(f, "--jq", ".")...)
	var cfgErr *cmd.ConfigurationError
	require.ErrorAs(t, res.err, &cfgErr)
	require.Empty(t, f.recorded())
}

func TestMissingTokenFailsBeforeSearch(t *testing.T) {
	f := newFakePort(t, threeEntities)
	f.token = ""

	res := execute(t, baseArgs(f)...)
	var authErr *port.AuthenticationError
	require.ErrorAs(t, res.err, &authErr)

	require.Len(t, f.recorded(), 1)
	require.Contains(t, res.stderr.String(), "Error: authentication failed")
	require.Contains(t, res.stderr.String(), "access token not found in response")
}

func TestBatchFailureStopsRunAndReportsPartialProgress(t *testing.T) {
	f := newFakePort(t, threeEntities)
	f.failBlueprint = "y"

	res := execute(t, baseArgs(f, "--delete-integration", "-o", "json")...)
	var reqErr *port.RequestError
	require.ErrorAs(t, res.err, &reqErr)
	require.Equal(t, http.StatusInternalServerError, reqErr.StatusCode)
	require.Zero(t, f.count(http.MethodDelete, "/v1/integration/"))

	var report map[string]any
	require.NoError(t, json.Unmarshal(res.stdout.Bytes(), &report))
	require.Equal(t, float64(2), report["entities_deleted"])
	require.Equal(t, false, report["completed"])

	stderr := res.stderr.String()
	require.Contains(t, stderr, "Error: failed to delete batch 1/1 of blueprint \"y\"")
	require.Contains(t, stderr, "status: 500")
	require.NotContains(t, res.stdout.String()+stderr, "Usage:")
}

func TestZeroEntitiesStillDeletesIntegration(t *testing.T) {
	f := newFakePort(t, `[]`)

	res := execute(t, baseArgs(f, "--delete-integration")...)
	require.NoError(t, res.err, res.stderr.String())
	require.Zero(t, f.count(http.MethodDelete, "/v1/blueprints/"))
	require.Equal(t, 1, f.count(http.MethodDelete, "/v1/integration/my-int"))
	require.Contains(t, res.stdout.String(), "Integration 'my-int' deleted.")
	require.Contains(t, res.stdout.String(), "Deleted 0 of 0 entities across 0 blueprints.")
}

func TestLogFileReceivesRedactedTraceLogs(t *testing.T) {
	f := newFakePort(t, threeEntities)
	logFile := filepath.Join(t.TempDir(), "logs", "portpurge.log")

	res := execute(t, baseArgs(f, "--dry-run", "--log-level", "trace", "--log-file", logFile)...)
	require.NoError(t, res.err)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	logs := string(data)
	require.Contains(t, logs, `"msg":"HTTP request"`)
	require.Contains(t, logs, `"level":"TRACE"`)
	require.Contains(t, logs, `"workflow_phase":"search"`)
	require.Contains(t, logs, "[REDACTED]")
	require.NotContains(t, logs, "tok-123")
	require.NotContains(t, logs, "secret")
	require.Empty(t, res.stderr.String())
}

func TestInvalidLogLevelIsRejected(t *testing.T) {
	t.Setenv("PORT_LOG_LEVEL", "loud")
	res := execute(t, "version")
	var cfgErr *cmd.ConfigurationError
	require.ErrorAs(t, res.err, &cfgErr)
}

func TestVersionSubcommand(t *testing.T) {
	res := execute(t, "version", "--show-commit")
	require.NoError(t, res.err)
	require.Equal(t, "1.2.3 (abc, today)\n", res.stdout.String())
}
