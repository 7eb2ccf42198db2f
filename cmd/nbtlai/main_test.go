package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaguanLabs/nbtlai"
	"github.com/ZaguanLabs/nbtlai/notebook"
)

const testNotebook = `{
 "cells": [
  {"cell_type": "markdown", "metadata": {}, "source": ["Hello World"]},
  {"cell_type": "code", "execution_count": null, "metadata": {}, "outputs": [], "source": ["# World\n", "x = 1"]}
 ],
 "metadata": {"kernelspec": {"display_name": "Python 3", "language": "python", "name": "python3"}},
 "nbformat": 4,
 "nbformat_minor": 5
}`

const previousNotebook = `{
 "cells": [
  {"cell_type": "markdown", "metadata": {}, "source": ["Goodbye"]},
  {"cell_type": "code", "execution_count": null, "metadata": {}, "outputs": [], "source": ["# World\n", "x = 1"]}
 ],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}`

func writeNotebook(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, name := range []string{"GOOGLE_API_KEY", "OPENAI_API_KEY", "MYMEMORY_EMAIL", "NBTLAI_REDIS_URL"} {
		t.Setenv(name, "")
	}
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func sourceOf(t *testing.T, path string, cell int) string {
	t.Helper()
	doc, err := notebook.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(doc.Cells), cell)
	return doc.Cells[cell].Source
}

func TestRunVersion(t *testing.T) {
	stdout, _, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "nbtlai")
	assert.Contains(t, stdout, version)
}

func TestRunRequiresNotebook(t *testing.T) {
	_, _, err := runCLI(t, "--target", "es")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a notebook file is required")
}

func TestRunRequiresTarget(t *testing.T) {
	input := writeNotebook(t, t.TempDir(), "lesson.ipynb", testNotebook)

	_, _, err := runCLI(t, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target language is required")
}

func TestRunUnknownTranslator(t *testing.T) {
	input := writeNotebook(t, t.TempDir(), "lesson.ipynb", testNotebook)

	_, _, err := runCLI(t, "--target", "es", "--translator", "babelfish", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `translator "babelfish" not supported`)
}

func TestRunUnsupportedLanguage(t *testing.T) {
	input := writeNotebook(t, t.TempDir(), "lesson.ipynb", testNotebook)

	_, _, err := runCLI(t, "--target", "auto", "--translator", "mock", input)
	require.Error(t, err)
}

func TestRunGoogleUnsupportedLanguageWithoutCredentials(t *testing.T) {
	input := writeNotebook(t, t.TempDir(), "lesson.ipynb", testNotebook)
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", filepath.Join(t.TempDir(), "missing.json"))

	_, _, err := runCLI(t, "--target", "tlh", input)
	require.Error(t, err)
	var langErr *nbtlai.UnsupportedLanguageError
	require.ErrorAs(t, err, &langErr)
	assert.Equal(t, "google", langErr.Backend)
	assert.Contains(t, err.Error(), "supported codes")
}

func TestRunTranslate(t *testing.T) {
	dir := t.TempDir()
	input := writeNotebook(t, dir, "lesson.ipynb", testNotebook)

	stdout, _, err := runCLI(t, "--target", "es", "--translator", "mock", input)
	require.NoError(t, err)

	output := filepath.Join(dir, "lesson_es.ipynb")
	assert.Contains(t, stdout, "Total cells: 2 Code cells: 1 Markdown cells: 1")
	assert.Contains(t, stdout, "The es translation has been saved as "+output)

	assert.Equal(t, "Hola Mundo", sourceOf(t, output, 0))
	assert.Equal(t, "# Mundo\nx = 1", sourceOf(t, output, 1))
	assert.Equal(t, "Hello World", sourceOf(t, input, 0), "input must be untouched")

	_, err = os.Stat(output + ".lock")
	assert.True(t, os.IsNotExist(err), "lock file must be removed")
}

func TestRunOutputFlag(t *testing.T) {
	dir := t.TempDir()
	input := writeNotebook(t, dir, "lesson.ipynb", testNotebook)
	output := filepath.Join(dir, "translated.ipynb")

	_, _, err := runCLI(t, "--target", "es", "--translator", "mock", "-o", output, input)
	require.NoError(t, err)
	assert.Equal(t, "Hola Mundo", sourceOf(t, output, 0))
}

func TestRunRename(t *testing.T) {
	dir := t.TempDir()
	input := writeNotebook(t, dir, "lesson.ipynb", testNotebook)

	stdout, _, err := runCLI(t, "--target", "es", "--translator", "mock", "--rename", input)
	require.NoError(t, err)

	backup := filepath.Join(dir, "lesson_bk.ipynb")
	assert.Contains(t, stdout, input+" has been renamed as "+backup)
	assert.Contains(t, stdout, "The es translation has been saved as "+input)

	assert.Equal(t, "Hola Mundo", sourceOf(t, input, 0))
	assert.Equal(t, "Hello World", sourceOf(t, backup, 0))
}

func TestRunRenameRefusesExistingBackup(t *testing.T) {
	dir := t.TempDir()
	input := writeNotebook(t, dir, "lesson.ipynb", testNotebook)
	writeNotebook(t, dir, "lesson_bk.ipynb", previousNotebook)

	_, _, err := runCLI(t, "--target", "es", "--translator", "mock", "--rename", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Equal(t, "Hello World", sourceOf(t, input, 0))
}

func TestRunRenameWithOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeNotebook(t, dir, "lesson.ipynb", testNotebook)

	_, _, err := runCLI(t, "--target", "es", "--translator", "mock", "--rename", "-o", filepath.Join(dir, "x.ipynb"), input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output cannot be combined with --rename")
}

func TestRunPrint(t *testing.T) {
	input := writeNotebook(t, t.TempDir(), "lesson.ipynb", testNotebook)

	stdout, _, err := runCLI(t, "--target", "es", "--translator", "mock", "--print", input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Hello World -> Hola Mundo\n")
	assert.Contains(t, stdout, "\nWorld -> Mundo\n")
}

func TestRunJSON(t *testing.T) {
	dir := t.TempDir()
	input := writeNotebook(t, dir, "lesson.ipynb", testNotebook)

	stdout, _, err := runCLI(t, "--target", "es", "--translator", "mock", "--json", input)
	require.NoError(t, err)

	var out translateOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, filepath.Join(dir, "lesson_es.ipynb"), out.OutputFile)
	assert.Equal(t, "es", out.TargetLang)
	assert.Equal(t, "mock", out.Translator)
	assert.Equal(t, 2, out.TotalCells)
	assert.Equal(t, 2, out.TotalSpans)
	assert.Equal(t, 2, out.TranslatedCount)
	assert.Equal(t, 0, out.CachedCount)
}

func TestRunCacheFile(t *testing.T) {
	dir := t.TempDir()
	input := writeNotebook(t, dir, "lesson.ipynb", testNotebook)
	cacheFile := filepath.Join(dir, "cache", "translations.json")

	args := []string{"--target", "es", "--translator", "mock", "--json", "--cache-file", cacheFile, input}

	_, _, err := runCLI(t, args...)
	require.NoError(t, err)
	require.FileExists(t, cacheFile)

	stdout, _, err := runCLI(t, args...)
	require.NoError(t, err)

	var out translateOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 2, out.CachedCount)
	assert.Equal(t, 0, out.TranslatedCount)
}

func TestRunDryRun(t *testing.T) {
	dir := t.TempDir()
	input := writeNotebook(t, dir, "lesson.ipynb", testNotebook)

	stdout, _, err := runCLI(t, "--target", "es", "--dry-run", input)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Dry run: lesson.ipynb -> es")
	assert.Contains(t, stdout, "Found 2 translatable spans")
	assert.Contains(t, stdout, "Hello World")
	assert.NoFileExists(t, filepath.Join(dir, "lesson_es.ipynb"))
}

func TestRunDryRunJSON(t *testing.T) {
	input := writeNotebook(t, t.TempDir(), "lesson.ipynb", testNotebook)

	stdout, _, err := runCLI(t, "--target", "es", "--dry-run", "--json", input)
	require.NoError(t, err)

	var out dryRunOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 2, out.SpanCount)
	require.Len(t, out.Spans, 2)
	assert.Equal(t, dryRunEntry{Cell: 0, Kind: "markdown", Text: "Hello World"}, out.Spans[0])
	assert.Equal(t, dryRunEntry{Cell: 1, Kind: "code", Text: "World"}, out.Spans[1])
}

func TestRunDiff(t *testing.T) {
	dir := t.TempDir()
	input := writeNotebook(t, dir, "lesson.ipynb", testNotebook)
	previous := writeNotebook(t, dir, "old.ipynb", previousNotebook)

	stdout, _, err := runCLI(t, "--target", "es", "--diff", previous, input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Diff: lesson.ipynb vs old.ipynb")
	assert.Contains(t, stdout, "Needs translation: 1 spans")
	assert.Contains(t, stdout, `"Goodbye" -> "Hello World"`)
}

func TestRunDiffJSON(t *testing.T) {
	dir := t.TempDir()
	input := writeNotebook(t, dir, "lesson.ipynb", testNotebook)
	previous := writeNotebook(t, dir, "old.ipynb", previousNotebook)

	stdout, _, err := runCLI(t, "--target", "es", "--diff", previous, "--json", input)
	require.NoError(t, err)

	var out diffOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 1, out.Stats.Unchanged)
	assert.Equal(t, 1, out.Stats.Modified)
	assert.Equal(t, []string{"Hello World"}, out.NeedsTranslation)
	assert.Equal(t, []modifiedText{{Old: "Goodbye", New: "Hello World"}}, out.Modified)
}

func TestRunDiffUnchanged(t *testing.T) {
	dir := t.TempDir()
	input := writeNotebook(t, dir, "lesson.ipynb", testNotebook)

	stdout, _, err := runCLI(t, "--target", "es", "--diff", input, input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No changes detected")
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	input := writeNotebook(t, dir, "lesson.ipynb", testNotebook)
	cfgPath := filepath.Join(dir, "nbtlai.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
target = "fr"
backend = "mock"

[output]
indent = "  "
`), 0o644))

	_, _, err := runCLI(t, "-c", cfgPath, input)
	require.NoError(t, err)
	assert.Equal(t, "Hola Mundo", sourceOf(t, filepath.Join(dir, "lesson_fr.ipynb"), 0))

	// Flags win over the file.
	_, _, err = runCLI(t, "-c", cfgPath, "--target", "de", input)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "lesson_de.ipynb"))
}

func TestRunBadConfig(t *testing.T) {
	dir := t.TempDir()
	input := writeNotebook(t, dir, "lesson.ipynb", testNotebook)
	cfgPath := filepath.Join(dir, "nbtlai.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("unknown_key = 1\n"), 0o644))

	_, _, err := runCLI(t, "-c", cfgPath, "--target", "es", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestRunInvalidNotebook(t *testing.T) {
	input := writeNotebook(t, t.TempDir(), "broken.ipynb", `{"nbformat": 4}`)

	_, _, err := runCLI(t, "--target", "es", "--translator", "mock", input)
	require.Error(t, err)
	var fe *notebook.FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestPlanOutput(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		output string
		rename bool
		want   outputPlan
	}{
		{"default", "dir/nb.ipynb", "", false, outputPlan{input: "dir/nb.ipynb", output: "dir/nb_pt-BR.ipynb"}},
		{"explicit", "nb.ipynb", "out.ipynb", false, outputPlan{input: "nb.ipynb", output: "out.ipynb"}},
		{"rename", "dir/nb.ipynb", "", true, outputPlan{input: "dir/nb.ipynb", output: "dir/nb.ipynb", backup: "dir/nb_bk.ipynb"}},
		{"no extension", "notes", "", false, outputPlan{input: "notes", output: "notes_pt-BR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, planOutput(tt.input, "pt-BR", tt.output, tt.rename))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate(" a\nb ", 10))
	assert.Equal(t, "ñññ...", truncate("ñññññññ", 6))
}
