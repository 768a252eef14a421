package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/apsdm-go/internal/config"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their zero values. Tests must either:
//   - Set globals AFTER newRootCmd() returns (direct function tests), or
//   - Use cmd.SetArgs() + cmd.Execute() to let Cobra parse flags (integration tests).

// saveGlobals restores the CLI globals a test mutates.
func saveGlobals(t *testing.T) {
	t.Helper()

	oldCfg, oldVerbose, oldQuiet, oldJSON := resolvedCfg, flagVerbose, flagQuiet, flagJSON

	t.Cleanup(func() {
		resolvedCfg = oldCfg
		flagVerbose = oldVerbose
		flagQuiet = oldQuiet
		flagJSON = oldJSON
	})
}

func TestBuildLogger_Levels(t *testing.T) {
	saveGlobals(t)

	ctx := context.Background()

	tests := []struct {
		name     string
		cfgLevel string
		verbose  bool
		quiet    bool
		enabled  slog.Level
		disabled slog.Level
	}{
		{"no config", "", false, false, slog.LevelInfo, slog.LevelDebug},
		{"config warn", "warn", false, false, slog.LevelWarn, slog.LevelInfo},
		{"verbose beats config", "error", true, false, slog.LevelDebug, slog.LevelDebug - 1},
		{"quiet", "debug", false, true, slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolvedCfg = nil
			if tt.cfgLevel != "" {
				resolvedCfg = &config.Resolved{Config: *config.DefaultConfig()}
				resolvedCfg.LogLevel = tt.cfgLevel
			}

			flagVerbose = tt.verbose
			flagQuiet = tt.quiet

			logger := buildLogger()
			assert.True(t, logger.Handler().Enabled(ctx, tt.enabled))
			assert.False(t, logger.Handler().Enabled(ctx, tt.disabled))
		})
	}
}

func TestNewLogger_Format(t *testing.T) {
	tests := []struct {
		format string
		tty    bool
		json   bool
	}{
		{"auto", true, false},
		{"auto", false, true},
		{"text", false, false},
		{"json", true, true},
	}

	for _, tt := range tests {
		var buf bytes.Buffer

		newLogger(&buf, tt.format, slog.LevelInfo, tt.tty).Info("hello")

		if tt.json {
			assert.Contains(t, buf.String(), `"msg":"hello"`, "format=%s tty=%v", tt.format, tt.tty)
		} else {
			assert.Contains(t, buf.String(), "msg=hello", "format=%s tty=%v", tt.format, tt.tty)
		}
	}
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	want := []string{
		"login", "logout", "auth", "hubs", "projects", "folders", "ls",
		"versions", "search", "upload", "watch", "uploads", "config",
	}

	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

// writeCLIConfig writes a config file pointing every endpoint at baseURL and
// keeping the token and journal inside the test's temp dir.
func writeCLIConfig(t *testing.T, baseURL string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `client_id = "cli-id"
client_secret = "cli-secret"
base_url = "` + baseURL + `"
hub_id = "b.hub"
project_id = "b.proj"
token_path = "` + filepath.Join(dir, "token.json") + `"
journal_path = "` + filepath.Join(dir, "journal.db") + `"
log_level = "error"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestRootCmd_HubsUsesAppToken(t *testing.T) {
	saveGlobals(t)

	var grants, hubCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /authentication/v2/token", func(w http.ResponseWriter, r *http.Request) {
		grants.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"app-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /project/v1/hubs", func(w http.ResponseWriter, r *http.Request) {
		hubCalls.Add(1)
		assert.Equal(t, "Bearer app-token", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"data":[{"type":"hubs","id":"b.hub","attributes":{"name":"Acme"}}]}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", writeCLIConfig(t, srv.URL), "--auth", "app", "--json", "hubs"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, int32(1), grants.Load())
	assert.Equal(t, int32(1), hubCalls.Load())
}

func TestRootCmd_FlagsOverrideConfigTargets(t *testing.T) {
	saveGlobals(t)

	cmd := newRootCmd()
	cmd.SetArgs([]string{
		"--config", writeCLIConfig(t, "https://example.invalid"),
		"--project", "b.other", "--folder", "urn:folder:x",
		"config", "show",
	})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	require.NotNil(t, resolvedCfg)
	assert.Equal(t, "b.hub", resolvedCfg.HubID)
	assert.Equal(t, "b.other", resolvedCfg.ProjectID)
	assert.Equal(t, "urn:folder:x", resolvedCfg.FolderID)
}

func TestRootCmd_ConfigInitSkipsLoading(t *testing.T) {
	saveGlobals(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	// A broken file elsewhere must not matter; init writes to --config.
	t.Setenv(config.EnvConfig, filepath.Join(dir, "broken.toml"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("nonsense = ["), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path, "config", "init"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.FileExists(t, path)
}

func TestRootCmd_MissingProject(t *testing.T) {
	saveGlobals(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("client_id = \"a\"\nclient_secret = \"b\"\n"+
		"token_path = \""+filepath.Join(dir, "token.json")+"\"\n"), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path, "--auth", "app", "ls"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--project")
}
