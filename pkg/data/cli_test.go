package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGlobalOptions(t *testing.T) {
	t.Run("KnownFlags", func(t *testing.T) {
		opts, remaining, err := ParseGlobalOptions([]string{
			"--store", "mongo",
			"--mongo-uri", "mongodb://db:27017",
			"--store-timeout", "2s",
			"--ledger", "spring",
			"-v",
		})
		require.NoError(t, err)

		assert.Equal(t, "mongo", opts.Store)
		assert.Equal(t, "mongodb://db:27017", opts.MongoURI)
		assert.Equal(t, 2*time.Second, opts.StoreTimeout)
		assert.Equal(t, "spring", opts.Ledger)
		assert.True(t, opts.Verbose)
		assert.Equal(t, DefaultConfigFile, opts.ConfigFile)
		assert.Empty(t, remaining)
	})

	t.Run("UnknownFlagsAreLeftAlone", func(t *testing.T) {
		opts, remaining, err := ParseGlobalOptions([]string{"tournament", "--apply", "--no-journal"})
		require.NoError(t, err)

		assert.True(t, opts.NoJournal)
		assert.Contains(t, remaining, "tournament")
		assert.Contains(t, remaining, "--apply")
	})

	t.Run("BadDuration", func(t *testing.T) {
		_, _, err := ParseGlobalOptions([]string{"--store-timeout", "soon"})
		assert.Error(t, err)
	})
}

func TestResolveConfig(t *testing.T) {
	tempDir := t.TempDir()

	configPath := filepath.Join(tempDir, "club.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
store:
  path: file-players.json
log:
  level: warn
export:
  format: csv
`), 0644))

	t.Run("FlagsBeatEnvironmentBeatFile", func(t *testing.T) {
		t.Setenv("CLUBELO_STORE_PATH", "env-players.json")
		t.Setenv("CLUBELO_EXPORT_FORMAT", "json")

		config, err := ResolveConfig(&GlobalOptions{
			ConfigFile: configPath,
			StorePath:  "flag-players.json",
		})
		require.NoError(t, err)

		assert.Equal(t, "flag-players.json", config.Store.Path)
		assert.Equal(t, "json", config.Export.Format)
		assert.Equal(t, "warn", config.Log.Level)
	})

	t.Run("VerboseForcesDebug", func(t *testing.T) {
		config, err := ResolveConfig(&GlobalOptions{ConfigFile: configPath, Verbose: true, LogLevel: "error"})
		require.NoError(t, err)
		assert.Equal(t, "debug", config.Log.Level)
	})

	t.Run("NoConfigUsesDefaults", func(t *testing.T) {
		config, err := ResolveConfig(&GlobalOptions{ConfigFile: configPath, NoConfig: true, NoJournal: true})
		require.NoError(t, err)

		assert.Equal(t, "players.json", config.Store.Path)
		assert.False(t, config.Journal.Enabled)
	})

	t.Run("ExplicitMissingFile", func(t *testing.T) {
		_, err := ResolveConfig(&GlobalOptions{ConfigFile: filepath.Join(tempDir, "missing.yaml")})
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("InvalidFlagValue", func(t *testing.T) {
		_, err := ResolveConfig(&GlobalOptions{ConfigFile: configPath, LogFormat: "xml"})
		assert.ErrorIs(t, err, ErrInvalidLogConfig)
	})

	t.Run("NilOptions", func(t *testing.T) {
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(tempDir))
		t.Cleanup(func() { _ = os.Chdir(wd) })
		config, err := ResolveConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultAppConfig().Store, config.Store)
	})
}

func TestCreateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "clubelo.yaml")
	require.NoError(t, CreateDefaultConfig(path))

	config, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig(), *config)
}

func TestGetConfigSearchPaths(t *testing.T) {
	paths := GetConfigSearchPaths("clubelo.yaml")

	require.NotEmpty(t, paths)
	assert.Equal(t, "clubelo.yaml", paths[0])
	assert.Equal(t, filepath.Join("/etc", "clubelo", "clubelo.yaml"), paths[len(paths)-1])
}

func TestIsHelp(t *testing.T) {
	assert.True(t, IsHelp(&flags.Error{Type: flags.ErrHelp}))
	assert.False(t, IsHelp(&flags.Error{Type: flags.ErrRequired}))
	assert.False(t, IsHelp(os.ErrNotExist))
}
