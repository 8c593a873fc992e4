package cmd

import (
	"bytes"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iksnae/jonas-chat/internal/mockserver"
	"github.com/iksnae/jonas-chat/testutil"
)

// testEnv is a mock backend plus an isolated data directory
type testEnv struct {
	t       *testing.T
	server  *mockserver.Server
	ts      *httptest.Server
	dataDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := testutil.CreateTempDir(t)
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("JONAS_API_URL", "")
	t.Setenv("JONAS_TIMEOUT", "")
	t.Setenv("JONAS_DATA_DIR", "")

	s := mockserver.New(mockserver.Config{})
	ts := httptest.NewServer(mockserver.NewEcho(s))
	t.Cleanup(ts.Close)

	return &testEnv{
		t:       t,
		server:  s,
		ts:      ts,
		dataDir: testutil.CreateTempDir(t),
	}
}

// run executes the root command against the mock backend
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	return e.runWithInput(nil, args...)
}

func (e *testEnv) runWithInput(in io.Reader, args ...string) (string, error) {
	e.t.Helper()
	resetFlags()
	full := append([]string{"--api-url", e.ts.URL, "--data-dir", e.dataDir}, args...)
	return execute(in, full...)
}

func execute(in io.Reader, args ...string) (string, error) {
	if in == nil {
		in = strings.NewReader("")
	}
	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(in)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	err := rootCmd.Execute()
	return stdout.String(), err
}

// resetFlags restores flag variables; cobra keeps values between executions
func resetFlags() {
	verbose = false
	configPath = ""
	envFile = ""
	apiURL = ""
	timeoutArg = ""
	dataDir = ""

	sendRaw, sendNewChat = false, false
	sessionsClearCache = false
	showRaw, showLimit = false, 0
	deleteAll, deleteCurrent, deleteYes = false, false, false
	format, outputDir, exportAll, toStdout, exportClear = "md", "./exports", false, false, false
	normalizeHTML = false
	healthcheckDetails, probeChat, probeQuery = false, false, "ping"
	inspectFormat, inspectPattern = "text", "%"
}
