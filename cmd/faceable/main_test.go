package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestVersion(t *testing.T) {
	isolateHome(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Faceable v"+version)
}

func TestConfigInitAndShow(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "faceable.yaml")

	out, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = execute(t, "--config", path, "config", "init")
	assert.Error(t, err, "init refuses to overwrite")

	_, err = execute(t, "--config", path, "config", "init", "--force")
	assert.NoError(t, err)

	out, err = execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "smile_threshold: 0.8")
	assert.Contains(t, out, "ws_path: /ws")

	out, err = execute(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, path)
}

func TestConfigShow_EnvWithoutFile(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, "missing.yaml")
	t.Setenv("FACEABLE_GESTURE_SMILE_THRESHOLD", "0.55")

	out, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "smile_threshold: 0.55")

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestReplay(t *testing.T) {
	home := isolateHome(t)
	rec := filepath.Join(home, "rec.yaml")
	require.NoError(t, os.WriteFile(rec, []byte(`
frames:
  - t_ms: 0
    blendshapes: {mouthSmileRight: 0.9}
    landmark: {x: 0.5, y: 0.5}
  - t_ms: 40
    blendshapes: {jawOpen: 0.7}
`), 0644))

	out, err := execute(t, "--config", filepath.Join(home, "none.yaml"), "replay", rec, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"tool_cycle"`)
	assert.Contains(t, out, `"draw_toggle"`)
	assert.Contains(t, out, `"tool": "eraser"`)

	out, err = execute(t, "--config", filepath.Join(home, "none.yaml"), "replay", rec)
	require.NoError(t, err)
	assert.Contains(t, out, "kind: tool_cycle")
	assert.Contains(t, out, "drawing: true")

	_, err = execute(t, "--config", filepath.Join(home, "none.yaml"), "replay", rec, "-o", "xml")
	assert.Error(t, err)

	_, err = execute(t, "--config", filepath.Join(home, "none.yaml"), "replay", filepath.Join(home, "missing.yaml"))
	assert.Error(t, err)
}
