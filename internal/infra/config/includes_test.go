package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIncludesAppendWikis(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "extra.yaml", `
wikis:
  - code: "wp"
    name: "Wookieepedia"
    base_url: "https://starwars.fandom.com"
    label: "Star Wars"
`)
	path := writeConfigFile(t, dir, "config.yaml", `
includes:
  - "extra.yaml"
wikis:
  - code: "ma"
    name: "Memory Alpha"
    base_url: "https://memory-alpha.fandom.com"
    label: "Star Trek"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Wikis, 2)
	assert.Equal(t, "ma", cfg.Wikis[0].Code, "main file entries come first")
	assert.Equal(t, "wp", cfg.Wikis[1].Code)
}

func TestIncludesGlobPattern(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	subdir := filepath.Join(dir, "wikis.d")
	require.NoError(t, os.Mkdir(subdir, 0755))
	writeConfigFile(t, subdir, "a.yaml", `
wikis:
  - code: "mw"
    name: "Memory Beta"
    base_url: "https://memory-beta.fandom.com"
`)
	writeConfigFile(t, subdir, "b.yaml", `
logger:
  format: "json"
`)
	path := writeConfigFile(t, dir, "config.yaml", `
includes:
  - "wikis.d/*.yaml"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Logger.Format)
	require.Len(t, cfg.Wikis, 4, "defaults plus the included entry")
	assert.Equal(t, "mw", cfg.Wikis[3].Code)
}

func TestIncludesMainTakesPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.yaml", `
logger:
  level: "debug"
`)
	path := writeConfigFile(t, dir, "config.yaml", `
includes:
  - "base.yaml"
logger:
  level: "error"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logger.Level)
}

func TestIncludesCircular(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "a.yaml", "includes:\n  - \"b.yaml\"\n")
	writeConfigFile(t, dir, "b.yaml", "includes:\n  - \"a.yaml\"\n")
	path := writeConfigFile(t, dir, "config.yaml", "includes:\n  - \"a.yaml\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular include")
}

func TestIncludesPathTraversal(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "config.yaml", "includes:\n  - \"../outside.yaml\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes config directory")
}

func TestIncludesMissingFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "config.yaml", "includes:\n  - \"nope.yaml\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestIncludesEmptyGlobIsFine(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "config.yaml", "includes:\n  - \"none/*.yaml\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Wikis, 3)
}
