package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig points the database at a fresh SQLite file.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
log:
  level: error
database:
  driver: sqlite
  dsn: "file:%s?_pragma=foreign_keys(1)"
`, filepath.ToSlash(filepath.Join(dir, "textlab.db")))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyze_Stdin(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := run(t, "The cat sat on the mat. The dog ran fast across the big green field.", "analyze", "-", "-c", cfgPath, "--sentences")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.EqualValues(t, 2, report["sentence_count"])
	assert.Equal(t, map[string]any{"beginner": 100.0, "intermediate": 0.0, "advanced": 0.0}, report["complexity"])
	assert.Len(t, report["sentences"], 2)
}

func TestAnalyze_Directory(t *testing.T) {
	cfgPath := writeConfig(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Plain words in a short file here."), 0o644))

	out, err := run(t, "", "analyze", dir, "-c", cfgPath, "--pattern", "*.txt")
	require.NoError(t, err)
	assert.Equal(t, "wrote 1 reports\n", out)
	assert.FileExists(t, filepath.Join(dir, "a.txt.readability.json"))
}

func TestAnalyze_UnsupportedFormat(t *testing.T) {
	cfgPath := writeConfig(t)
	path := filepath.Join(t.TempDir(), "data.odt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := run(t, "", "analyze", path, "-c", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supported: txt")
}

func TestOwnerAndHistory(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := run(t, "", "owner", "add", "Ada@Example.com", "-u", "ada", "-c", cfgPath)
	require.NoError(t, err)
	var owner map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &owner))
	assert.Equal(t, "ada@example.com", owner["email"])

	_, err = run(t, "", "owner", "add", "ada@example.com", "-c", cfgPath)
	assert.ErrorContains(t, err, "already exists")

	out, err = run(t, "", "history", "ada@example.com", "-c", cfgPath)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	_, err = run(t, "", "history", "ghost@example.com", "-c", cfgPath)
	assert.Error(t, err)

	_, err = run(t, "", "history", "ada@example.com", "-c", cfgPath, "--search", "cats")
	assert.ErrorContains(t, err, "history_index.enabled")
}
