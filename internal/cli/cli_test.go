package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		configPath = ""
	}()
	err := Execute(context.Background())
	return buf.String(), err
}

func TestRootRegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"run", "serve", "sites", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestVersionCmd(t *testing.T) {
	original := version
	version = "test-1.0.0"
	defer func() { version = original }()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "storyscanner version test-1.0.0")
}

func TestSitesCmd_Defaults(t *testing.T) {
	t.Setenv("STORY_SCANNER_CONFIG", "")
	t.Setenv("DATABASE_DSN", "")

	out, err := execute(t, "sites")
	require.NoError(t, err)
	assert.Contains(t, out, "Reddit")
	assert.Contains(t, out, "The Rundown AI")
	assert.Contains(t, out, "newsletter")
}

func TestRunCmd_WritesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"children":[{"data":{"title":"Open Weights Model Tops Leaderboard","permalink":"/r/AI/1/","subreddit":"AI","thumbnail":"https://i.example.com/t.jpg"}}]}}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	output := filepath.Join(dir, "payload.json")
	cfgFile := filepath.Join(dir, "config.yaml")
	cfg := "logging:\n  level: error\n" +
		"output:\n  path: " + output + "\n" +
		"sites:\n  - name: Forum\n    scanner: forum\n    url: " + server.URL + "/new.json\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfg), 0o600))
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("OUTPUT_PATH", "")

	out, err := execute(t, "run", "--config", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Stored 1 records")

	raw, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Open Weights Model Tops Leaderboard")
}
