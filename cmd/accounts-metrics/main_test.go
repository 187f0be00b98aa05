package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentbai/accounts-metrics/internal/transport"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var output bytes.Buffer
	rootCmd.SetOut(&output)
	rootCmd.SetErr(&output)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return output.String(), err
}

func TestResumeTokenRoundTrip(t *testing.T) {
	output, err := execute(t, "resume-token", "encode", "campaign=spring", "entrypoint=menu", "extra=dropped")
	require.NoError(t, err)
	token := strings.TrimSpace(output)
	require.NotEmpty(t, token)

	output, err = execute(t, "resume-token", "decode", token)
	require.NoError(t, err)

	var fields map[string]string
	require.NoError(t, json.Unmarshal([]byte(output), &fields))
	assert.Equal(t, map[string]string{"campaign": "spring", "entrypoint": "menu"}, fields)
}

func TestResumeTokenEncodeRejectsBareArgument(t *testing.T) {
	_, err := execute(t, "resume-token", "encode", "campaign")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")
}

func TestEmitFlushesToCollector(t *testing.T) {
	var received map[string]any
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, transport.MetricsPath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer collector.Close()

	t.Setenv("ACCOUNTS_METRICS_CLIENT_COLLECTOR", collector.URL)
	t.Setenv("ACCOUNTS_METRICS_APP_LOG_LEVEL", "error")

	output, err := execute(t, "emit",
		"--url", "https://accounts.example.com/signin?service=sync&campaign=fennec&utm_source=email",
		"--referrer", "https://www.example.com/",
		"--screen", "signin",
		"--event", "signin.submit",
		"--event", "signin.success",
	)
	require.NoError(t, err)
	assert.Contains(t, output, "flushed")

	require.NotNil(t, received)
	assert.Equal(t, "sync", received["service"])
	assert.Equal(t, "fennec", received["campaign"])
	assert.Equal(t, "email", received["utm_source"])
	assert.Equal(t, "https://www.example.com/", received["referrer"])

	events, ok := received["events"].([]any)
	require.True(t, ok)
	var names []string
	for _, event := range events {
		names = append(names, event.(map[string]any)["type"].(string))
	}
	assert.Equal(t, []string{"screen.signin", "signin.submit", "signin.success"}, names)
}

func TestDefaultApplicationDirectory(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	directory, err := defaultApplicationDirectory()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(directory, home))

	info, err := os.Stat(directory)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "AccountsMetrics", filepath.Base(directory))
}
