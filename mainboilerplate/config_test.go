package mainboilerplate

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Log LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
	DB  DBConfig  `group:"Database" namespace:"db" env-namespace:"DB"`
}

const testINI = `
[Database]
Driver = sqlite3
DSN = file:game.db
Unknown = ignored

[Exporter]
workers = 12
`

func TestParseConfigFileThenFlags(t *testing.T) {
	var dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "axmltools.ini"), []byte(testINI), 0644))

	var cfg testConfig
	var parser = flags.NewParser(&cfg, flags.Default)

	var path, err = ParseConfigFile(parser, []string{
		filepath.Join(dir, "missing", "axmltools.ini"),
		filepath.Join(dir, "axmltools.ini"),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "axmltools.ini"), path)
	assert.Equal(t, flags.Options(flags.Default), parser.Options) // Restored.

	_, err = parser.ParseArgs([]string{"--db.dsn=file:other.db"})
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.DB.Driver)
	assert.Equal(t, "file:other.db", cfg.DB.DSN)
	assert.Equal(t, 16, cfg.DB.MaxOpen)
	assert.Equal(t, "info", cfg.Log.Level)

	var buf bytes.Buffer
	require.NoError(t, printConfig{Parser: parser, out: &buf}.Execute(nil))
	assert.Contains(t, buf.String(), "DSN = file:other.db")
	assert.Contains(t, buf.String(), "Driver = sqlite3")
}

func TestParseConfigFileErrors(t *testing.T) {
	var dir = t.TempDir()
	var parser = flags.NewParser(&testConfig{}, flags.Default)

	// No file is not an error.
	var path, err = ParseConfigFile(parser, []string{filepath.Join(dir, "axmltools.ini")})
	assert.NoError(t, err)
	assert.Equal(t, "", path)

	// A malformed value is.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "axmltools.ini"),
		[]byte("[Database]\nMaxOpen = lots\n"), 0644))
	_, err = ParseConfigFile(parser, []string{filepath.Join(dir, "axmltools.ini")})
	assert.Error(t, err)
}

func TestConfigPaths(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	t.Setenv(ConfigRootEnv, "/etc/axmltools")

	var paths = ConfigPaths("axmltools.ini")
	assert.Equal(t, "axmltools.ini", paths[0])
	assert.Equal(t, filepath.Join("/home/dev", ".config", "axmltools", "axmltools.ini"), paths[1])
	assert.Equal(t, filepath.Join("/etc/axmltools", "axmltools.ini"), paths[len(paths)-1])
}
