// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildmooseai/pageprep/api/schemas"
	"github.com/wildmooseai/pageprep/internal/config"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	config.SetDefaults(viper.GetViper())
	t.Cleanup(viper.Reset)
}

func TestRootHasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["ready"])
	assert.True(t, names["watch"])
	assert.True(t, names["classify"])
}

func TestClassifyCommand(t *testing.T) {
	resetViper(t)

	input := `[
		{"tag": "span", "id": "recaptcha-anchor"},
		{"tag": "button", "aria_label": "Log in"},
		{"tag": "button", "aria_label": "Delete account"}
	]`

	cmd := newClassifyCmd()
	cmd.SetIn(strings.NewReader(input))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var results []classifyOutput
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 3)
	assert.Equal(t, "allow", results[0].Verdict)
	assert.Equal(t, "allow", results[1].Verdict)
	assert.Equal(t, "defer", results[2].Verdict)
}

func TestClassifyCommandFromFile(t *testing.T) {
	resetViper(t)

	path := filepath.Join(t.TempDir(), "elements.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "recaptcha-anchor"}]`), 0o644))

	cmd := newClassifyCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--input", path})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), `"allow"`)
}

func TestClassifyCommandRejectsBadJSON(t *testing.T) {
	resetViper(t)

	cmd := newClassifyCmd()
	cmd.SetIn(strings.NewReader("not json"))
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	assert.Error(t, cmd.ExecuteContext(context.Background()))
}

func TestReadyCommandOffline(t *testing.T) {
	resetViper(t)
	viper.Set("sinks.stdout", false)

	path := filepath.Join(t.TempDir(), "page.html")
	html := `<html><body><header><h2>Overview</h2></header></body></html>`
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	cmd := newReadyCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--html", path, "--selector", "header h2", "--settle", "0s"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var result schemas.ReadinessResult
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &result))
	assert.True(t, result.Found)
	assert.Equal(t, "header h2", result.Selector)
	assert.Equal(t, "h2", result.Element.Tag)
}

func TestReadyCommandNotFound(t *testing.T) {
	resetViper(t)
	viper.Set("sinks.stdout", false)
	viper.Set("readiness.timeout", "50ms")
	viper.Set("readiness.settle", "0s")
	viper.Set("readiness.poll_interval", "10ms")

	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(`<html><body></body></html>`), 0o644))

	cmd := newReadyCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--html", path, "--selector", "#missing"})

	assert.Error(t, cmd.ExecuteContext(context.Background()))
}

func TestOpenPageRequiresSource(t *testing.T) {
	resetViper(t)
	cfg := config.NewDefaultConfig()

	_, err := openPage(context.Background(), cfg, nil, "", "")
	assert.Error(t, err)
}
