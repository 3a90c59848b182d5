package data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"
)

// DefaultConfigFile is the configuration file looked up when --config is not given
const DefaultConfigFile = "clubelo.yaml"

// GlobalOptions defines command-line flags shared by every clubelo command
type GlobalOptions struct {
	// Configuration file options
	ConfigFile string `long:"config" short:"c" description:"Configuration file path" default:"clubelo.yaml"`
	NoConfig   bool   `long:"no-config" description:"Skip loading configuration file"`
	EnvFile    string `long:"env-file" description:"Environment file with CLUBELO_* variables" default:".env"`

	// Logging
	Verbose   bool   `long:"verbose" short:"v" description:"Enable debug logging"`
	LogLevel  string `long:"log-level" description:"Log level (debug/info/warn/error)"`
	LogFormat string `long:"log-format" description:"Log format (text/json)"`

	// Rating store
	Store        string        `long:"store" description:"Rating store backend (file/mongo)"`
	StorePath    string        `long:"store-path" description:"Player file for the file backend"`
	MongoURI     string        `long:"mongo-uri" description:"MongoDB connection string"`
	StoreTimeout time.Duration `long:"store-timeout" description:"Rating store operation timeout"`

	// History journal
	JournalDir string `long:"journal-dir" description:"Directory of the rating history journal"`
	Ledger     string `long:"ledger" description:"Journal ledger name"`
	NoJournal  bool   `long:"no-journal" description:"Do not write the rating history journal"`

	JSON    bool `long:"json" description:"Print machine readable output"`
	Version bool `long:"version" description:"Show version information"`
}

// ParseGlobalOptions parses only the global flags, leaving everything else for the caller
func ParseGlobalOptions(args []string) (*GlobalOptions, []string, error) {
	var opts GlobalOptions

	parser := flags.NewParser(&opts, flags.IgnoreUnknown)
	remaining, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse command-line arguments: %w", err)
	}

	return &opts, remaining, nil
}

// ResolveConfig builds the effective configuration.
// Precedence is defaults, then the configuration file, then CLUBELO_* variables, then flags.
func ResolveConfig(opts *GlobalOptions) (*AppConfig, error) {
	if opts == nil {
		opts = &GlobalOptions{ConfigFile: DefaultConfigFile}
	}

	if err := LoadDotEnv(opts.EnvFile); err != nil {
		return nil, err
	}

	var config *AppConfig
	if !opts.NoConfig {
		configPath := findConfigFile(opts.ConfigFile)

		loaded, err := LoadWithEnvironment(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration file: %w", err)
		}
		// An explicitly requested file must exist
		if opts.ConfigFile != DefaultConfigFile {
			if _, statErr := os.Stat(configPath); statErr != nil {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, opts.ConfigFile)
			}
		}
		config = loaded
	} else {
		defaultConfig := DefaultAppConfig()
		config = &defaultConfig
		applyEnvironmentOverrides(config)
	}

	applyCLIOverrides(config, opts)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// findConfigFile returns the first existing location of filename, or filename itself
func findConfigFile(filename string) string {
	if filename == "" {
		filename = DefaultConfigFile
	}
	if filepath.IsAbs(filename) {
		return filename
	}
	for _, candidate := range GetConfigSearchPaths(filename) {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filename
}

// applyCLIOverrides applies command-line flag values to the configuration
func applyCLIOverrides(config *AppConfig, opts *GlobalOptions) {
	if opts.LogLevel != "" {
		config.Log.Level = opts.LogLevel
	}
	if opts.Verbose {
		config.Log.Level = "debug"
	}
	if opts.LogFormat != "" {
		config.Log.Format = opts.LogFormat
	}

	if opts.Store != "" {
		config.Store.Backend = opts.Store
	}
	if opts.StorePath != "" {
		config.Store.Path = opts.StorePath
	}
	if opts.MongoURI != "" {
		config.Store.MongoURI = opts.MongoURI
	}
	if opts.StoreTimeout > 0 {
		config.Store.Timeout = opts.StoreTimeout
	}

	if opts.JournalDir != "" {
		config.Journal.Directory = opts.JournalDir
	}
	if opts.Ledger != "" {
		config.Journal.Ledger = opts.Ledger
	}
	if opts.NoJournal {
		config.Journal.Enabled = false
	}
}

// GetConfigSearchPaths returns possible configuration file locations
func GetConfigSearchPaths(filename string) []string {
	paths := []string{filename}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "clubelo", filename))
		paths = append(paths, filepath.Join(homeDir, ".clubelo", filename))
	}

	paths = append(paths, filepath.Join("/etc", "clubelo", filename))

	return paths
}

// CreateDefaultConfig creates a default configuration file at the specified path
func CreateDefaultConfig(filePath string) error {
	config := DefaultAppConfig()

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := config.SaveToFile(filePath); err != nil {
		return fmt.Errorf("failed to create default config: %w", err)
	}

	return nil
}

// IsHelp reports whether err is the go-flags help request
func IsHelp(err error) bool {
	var flagsErr *flags.Error
	return errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp
}
