package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
general:
  serverPort: 5000
obs:
  password: hunter2
  sceneAliases:
    - name: Game Scene
      alias: game
remote:
  allowed: true
  macros:
    - name: brb
      macro:
        - {type: key, key: f9, modifiers: [control]}
        - {type: delay, delay: 250}
        - {type: string, string: back soon}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := cmd.Execute()
	return out.String(), err
}

func configFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "stream-automate version "+version+"\n", out)
}

func TestCheck(t *testing.T) {
	out, err := execute(t, "check", "--config", configFile(t, sampleConfig))
	require.NoError(t, err)
	assert.Contains(t, out, `"serverPort": 5000`)
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "scene aliases: 1\n")
	assert.Contains(t, out, "macros: 1\n")
	assert.Contains(t, out, "ok\n")
}

func TestCheckRejectsInvalidConfig(t *testing.T) {
	_, err := execute(t, "check", "--config", configFile(t, "general:\n  serverPort: 70000\n"))
	assert.Error(t, err)
}

func TestMacroList(t *testing.T) {
	out, err := execute(t, "macro", "list", "--config", configFile(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "brb\t3 controls\n", out)
}

func TestMacroShow(t *testing.T) {
	path := configFile(t, sampleConfig)
	out, err := execute(t, "macro", "show", "brb", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"key": "f9"`)

	_, err = execute(t, "macro", "show", "nope", "--config", path)
	assert.EqualError(t, err, `macro "nope" does not exist`)
}

func TestMacroRunDryRun(t *testing.T) {
	out, err := execute(t, "macro", "run", "brb", "--dry-run", "--config", configFile(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "key f9 [control]\ndelay 250ms\nstring \"back soon\"\nmacro \"brb\" completed\n", out)
}
