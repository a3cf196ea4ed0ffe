package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsTargetsAndFlags(t *testing.T) {
	opts, err := ParseArgs([]string{"-d", "-j4", "a.o", "b.o"}, Defaults{})
	require.NoError(t, err)
	assert.True(t, opts.Debug)
	assert.Equal(t, 4, opts.Jobs)
	assert.Equal(t, []string{"a.o", "b.o"}, opts.Targets)
}

func TestParseArgsJobsFlagWithoutNumberIsUnbounded(t *testing.T) {
	opts, err := ParseArgs([]string{"-j"}, Defaults{})
	require.NoError(t, err)
	assert.Equal(t, 0, opts.Jobs)
}

func TestParseArgsLongJobsFlag(t *testing.T) {
	opts, err := ParseArgs([]string{"--jobs=8"}, Defaults{})
	require.NoError(t, err)
	assert.Equal(t, 8, opts.Jobs)
}

func TestParseArgsHelp(t *testing.T) {
	_, err := ParseArgs([]string{"-h"}, Defaults{})
	assert.ErrorIs(t, err, ErrHelp)

	_, err = ParseArgs([]string{"--help"}, Defaults{})
	assert.ErrorIs(t, err, ErrHelp)
}

func TestParseArgsUnknownOptionIsUsageError(t *testing.T) {
	_, err := ParseArgs([]string{"--bogus"}, Defaults{})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestParseArgsEmptyArgIsUsageError(t *testing.T) {
	_, err := ParseArgs([]string{""}, Defaults{})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestParseArgsDefaultsApplyWhenNoFlagsGiven(t *testing.T) {
	opts, err := ParseArgs([]string{"out"}, Defaults{Jobs: 2, Debug: true, SocketDir: "/tmp/x"})
	require.NoError(t, err)
	assert.Equal(t, 2, opts.Jobs)
	assert.True(t, opts.Debug)
	assert.Equal(t, "/tmp/x", opts.SocketDir)
}

func TestParseArgsFlagsOverrideDefaults(t *testing.T) {
	opts, err := ParseArgs([]string{"-j6"}, Defaults{Jobs: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, opts.Jobs)
}

func TestParseArgsNotifyFlag(t *testing.T) {
	opts, err := ParseArgs([]string{"-n"}, Defaults{})
	require.NoError(t, err)
	assert.True(t, opts.Notify)

	opts, err = ParseArgs([]string{"--notify"}, Defaults{})
	require.NoError(t, err)
	assert.True(t, opts.Notify)
}

func TestLoadDefaultsMissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	d, err := LoadDefaults(filepath.Join(dir, ".remakerc.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults{}, d)
}

func TestLoadDefaultsParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".remakerc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs: 3\ndebug: true\nsocket_dir: /var/tmp\n"), 0644))

	d, err := LoadDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults{Jobs: 3, Debug: true, SocketDir: "/var/tmp"}, d)
}
