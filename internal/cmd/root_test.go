package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxesandglue/stylecheck"
)

func TestRootCommandHelp(t *testing.T) {
	cmd := NewRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	output := buf.String()
	assert.Contains(t, output, "stylecheck")
	assert.Contains(t, output, "--instructor")
	assert.Contains(t, output, "--quiescence")
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

const indexHTML = `<html><body><p class="selected">a <span>b</span></p></body></html>`

func TestRunPassing(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"index.html":  indexHTML,
		"setting.css": "body { color: #7f8c8d; font-size: 12px }",
		"style.css":   ".selected { color: #e74c3c } p.selected span { color: #3498db }",
	})
	cmd := NewRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--color", "never"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "\nAutograder results:\n✓ body color\n✓ body font-size\n✓ .selected color\n✓ p.selected > span color\n", buf.String())
}

func TestRunFailing(t *testing.T) {
	dir := writeFiles(t, map[string]string{"index.html": indexHTML})
	cmd := NewRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--color", "never"})

	err := cmd.Execute()
	assert.ErrorIs(t, err, stylecheck.ErrChecksFailed)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 5)
	assert.Equal(t, "✗ body color — actual: rgb(0, 0, 0)", lines[1])
}

func TestRunCustomStylesheets(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"index.html": indexHTML,
		"all.css":    "body { color: #7f8c8d; font-size: 12px } .selected { color: #e74c3c } p.selected span { color: #3498db }",
	})
	cmd := NewRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--stylesheet", "all.css", "--color", "never"})
	assert.NoError(t, cmd.Execute())
}

func TestRunMissingDocument(t *testing.T) {
	cmd := NewRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	assert.ErrorIs(t, err, stylecheck.ErrDocumentUnreadable)
	assert.Empty(t, buf.String())
}

func TestInvalidFlags(t *testing.T) {
	dir := writeFiles(t, map[string]string{"index.html": indexHTML})
	for _, args := range [][]string{
		{dir, "--color", "sometimes"},
		{dir, "--log-level", "loud"},
	} {
		cmd := NewRootCommand()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetArgs(args)
		err := cmd.Execute()
		require.Error(t, err)
		assert.NotErrorIs(t, err, stylecheck.ErrChecksFailed)
	}
}

func TestExerciseDir(t *testing.T) {
	assert.Equal(t, "x", exerciseDir([]string{"x"}, true))
	assert.Equal(t, filepath.Join("..", ".."), exerciseDir(nil, true))
	assert.Equal(t, "..", exerciseDir(nil, false))
}
