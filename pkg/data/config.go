// Package data provides configuration management and tournament input parsing for clubelo.
// It handles input parsing settings, history journal location, export preferences,
// rating store selection and logging, with validation and environment variable support.
package data

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Error types for configuration validation
var (
	ErrInvalidInputConfig   = errors.New("invalid input configuration")
	ErrInvalidJournalConfig = errors.New("invalid journal configuration")
	ErrInvalidExportConfig  = errors.New("invalid export configuration")
	ErrInvalidStoreConfig   = errors.New("invalid store configuration")
	ErrInvalidLogConfig     = errors.New("invalid log configuration")
	ErrConfigNotFound       = errors.New("configuration file not found")
	ErrConfigParseError     = errors.New("failed to parse configuration file")
)

// Store backends
const (
	BackendFile  = "file"
	BackendMongo = "mongo"
)

// AppConfig is the top-level configuration of the clubelo tool.
// Rating constants are intentionally absent: they are fixed by the engine.
type AppConfig struct {
	Input   InputConfig   `yaml:"input" json:"input"`
	Journal JournalConfig `yaml:"journal" json:"journal"`
	Export  ExportConfig  `yaml:"export" json:"export"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Log     LogConfig     `yaml:"log" json:"log"`
}

// InputConfig defines how tournament input files are read
type InputConfig struct {
	Format    string `yaml:"format" json:"format"`         // auto, yaml, json or csv
	Delimiter string `yaml:"delimiter" json:"delimiter"`   // CSV field separator (default comma)
	HasHeader bool   `yaml:"has_header" json:"has_header"` // Whether CSV input has a header row
}

// JournalConfig locates the rating history ledger
type JournalConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Directory string `yaml:"directory" json:"directory"`
	Ledger    string `yaml:"ledger" json:"ledger"` // Journal file is history_<ledger>.jsonl
}

// ExportConfig holds output format settings
type ExportConfig struct {
	Format         string `yaml:"format" json:"format"`                   // csv, json, text or xlsx
	SortBy         string `yaml:"sort_by" json:"sort_by"`                 // rating, change, bonus or player
	SortOrder      string `yaml:"sort_order" json:"sort_order"`           // asc or desc
	IncludeMatches bool   `yaml:"include_matches" json:"include_matches"` // Per-match breakdown in reports
}

// StoreConfig selects where player ratings are persisted
type StoreConfig struct {
	Backend    string        `yaml:"backend" json:"backend"`
	Path       string        `yaml:"path" json:"path"`
	MongoURI   string        `yaml:"mongo_uri" json:"mongo_uri"`
	Database   string        `yaml:"database" json:"database"`
	Collection string        `yaml:"collection" json:"collection"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// LogConfig configures the structured logger
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// DefaultAppConfig returns a configuration with sensible defaults
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Input:   DefaultInputConfig(),
		Journal: DefaultJournalConfig(),
		Export:  DefaultExportConfig(),
		Store:   DefaultStoreConfig(),
		Log:     DefaultLogConfig(),
	}
}

// DefaultInputConfig returns input parsing defaults
func DefaultInputConfig() InputConfig {
	return InputConfig{
		Format:    "auto",
		Delimiter: ",",
		HasHeader: true,
	}
}

// DefaultJournalConfig returns journal defaults
func DefaultJournalConfig() JournalConfig {
	return JournalConfig{
		Enabled:   true,
		Directory: "journal",
		Ledger:    "club",
	}
}

// DefaultExportConfig returns export format defaults
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Format:         "text",
		SortBy:         "rating",
		SortOrder:      "desc",
		IncludeMatches: false,
	}
}

// DefaultStoreConfig returns rating store defaults
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Backend:    BackendFile,
		Path:       "players.json",
		Database:   "clubelo",
		Collection: "users",
		Timeout:    10 * time.Second,
	}
}

// DefaultLogConfig returns logging defaults
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate checks that the application configuration is valid
func (ac *AppConfig) Validate() error {
	if err := ac.Input.Validate(); err != nil {
		return fmt.Errorf("input config validation failed: %w", err)
	}

	if err := ac.Journal.Validate(); err != nil {
		return fmt.Errorf("journal config validation failed: %w", err)
	}

	if err := ac.Export.Validate(); err != nil {
		return fmt.Errorf("export config validation failed: %w", err)
	}

	if err := ac.Store.Validate(); err != nil {
		return fmt.Errorf("store config validation failed: %w", err)
	}

	if err := ac.Log.Validate(); err != nil {
		return fmt.Errorf("log config validation failed: %w", err)
	}

	return nil
}

// Validate checks that input configuration is valid
func (c *InputConfig) Validate() error {
	validFormats := map[string]bool{
		"auto": true, "yaml": true, "json": true, "csv": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("%w: format '%s' must be one of: auto, yaml, json, csv", ErrInvalidInputConfig, c.Format)
	}

	if c.Delimiter == "" {
		return fmt.Errorf("%w: delimiter cannot be empty", ErrInvalidInputConfig)
	}

	validDelimiters := map[string]bool{
		",": true, ";": true, "\t": true, "|": true,
	}

	if !validDelimiters[c.Delimiter] {
		return fmt.Errorf("%w: delimiter '%s' is not a common CSV separator", ErrInvalidInputConfig, c.Delimiter)
	}

	return nil
}

// Validate checks that journal configuration is valid
func (j *JournalConfig) Validate() error {
	if !j.Enabled {
		return nil
	}

	if strings.TrimSpace(j.Directory) == "" {
		return fmt.Errorf("%w: directory is required when the journal is enabled", ErrInvalidJournalConfig)
	}

	if strings.TrimSpace(j.Ledger) == "" {
		return fmt.Errorf("%w: ledger is required when the journal is enabled", ErrInvalidJournalConfig)
	}

	if strings.ContainsAny(j.Ledger, `/\`) {
		return fmt.Errorf("%w: ledger '%s' must not contain path separators", ErrInvalidJournalConfig, j.Ledger)
	}

	return nil
}

// Validate checks that export configuration is valid
func (e *ExportConfig) Validate() error {
	validFormats := map[string]bool{
		"csv":  true,
		"json": true,
		"text": true,
		"xlsx": true,
	}

	if !validFormats[e.Format] {
		return fmt.Errorf("%w: format '%s' must be one of: csv, json, text, xlsx", ErrInvalidExportConfig, e.Format)
	}

	validSortBy := map[string]bool{
		"rating": true,
		"change": true,
		"bonus":  true,
		"player": true,
	}

	if !validSortBy[e.SortBy] {
		return fmt.Errorf("%w: sort_by '%s' must be one of: rating, change, bonus, player", ErrInvalidExportConfig, e.SortBy)
	}

	if e.SortOrder != "asc" && e.SortOrder != "desc" {
		return fmt.Errorf("%w: sort_order '%s' must be 'asc' or 'desc'", ErrInvalidExportConfig, e.SortOrder)
	}

	return nil
}

// Validate checks that store configuration is valid
func (s *StoreConfig) Validate() error {
	switch s.Backend {
	case BackendFile:
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("%w: path is required for the file backend", ErrInvalidStoreConfig)
		}
	case BackendMongo:
		if strings.TrimSpace(s.MongoURI) == "" {
			return fmt.Errorf("%w: mongo_uri is required for the mongo backend", ErrInvalidStoreConfig)
		}
		if s.Database == "" || s.Collection == "" {
			return fmt.Errorf("%w: database and collection are required for the mongo backend", ErrInvalidStoreConfig)
		}
	default:
		return fmt.Errorf("%w: backend '%s' must be 'file' or 'mongo'", ErrInvalidStoreConfig, s.Backend)
	}

	if s.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidStoreConfig, s.Timeout)
	}

	return nil
}

// Validate checks that log configuration is valid
func (l *LogConfig) Validate() error {
	if _, err := l.SlogLevel(); err != nil {
		return err
	}

	if l.Format != "text" && l.Format != "json" {
		return fmt.Errorf("%w: format '%s' must be 'text' or 'json'", ErrInvalidLogConfig, l.Format)
	}

	return nil
}

// SlogLevel maps the configured level name onto a slog level
func (l *LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: level '%s' must be one of: debug, info, warn, error", ErrInvalidLogConfig, l.Level)
}

// NewLogger builds a slog logger writing to w in the configured format
func (l *LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*AppConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, filename)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var config AppConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParseError, filename, err)
	}

	config = mergeWithDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", filename, err)
	}

	return &config, nil
}

// LoadDotEnv loads KEY=value pairs from a .env file into the process environment.
// Variables that are already set win over the file. A missing file is not an error.
func LoadDotEnv(filename string) error {
	if filename == "" {
		return nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(filename); err != nil {
		return fmt.Errorf("failed to load environment file %s: %w", filename, err)
	}
	return nil
}

// LoadWithEnvironment loads configuration from file and applies environment variable overrides
func LoadWithEnvironment(filename string) (*AppConfig, error) {
	config := DefaultAppConfig()

	if filename != "" {
		fileConfig, err := LoadFromFile(filename)
		if err != nil && !errors.Is(err, ErrConfigNotFound) {
			return nil, err
		}
		if err == nil {
			config = *fileConfig
		}
	}

	applyEnvironmentOverrides(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid final configuration: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a YAML file
func (ac *AppConfig) SaveToFile(filename string) error {
	data, err := yaml.Marshal(ac)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}

// mergeWithDefaults fills in missing values with defaults
func mergeWithDefaults(config AppConfig) AppConfig {
	defaults := DefaultAppConfig()

	if config.Input.Format == "" {
		config.Input.Format = defaults.Input.Format
	}
	if config.Input.Delimiter == "" {
		config.Input.Delimiter = defaults.Input.Delimiter
	}

	if config.Journal.Directory == "" {
		config.Journal.Directory = defaults.Journal.Directory
	}
	if config.Journal.Ledger == "" {
		config.Journal.Ledger = defaults.Journal.Ledger
	}

	if config.Export.Format == "" {
		config.Export.Format = defaults.Export.Format
	}
	if config.Export.SortBy == "" {
		config.Export.SortBy = defaults.Export.SortBy
	}
	if config.Export.SortOrder == "" {
		config.Export.SortOrder = defaults.Export.SortOrder
	}

	if config.Store.Backend == "" {
		config.Store.Backend = defaults.Store.Backend
	}
	if config.Store.Path == "" {
		config.Store.Path = defaults.Store.Path
	}
	if config.Store.Database == "" {
		config.Store.Database = defaults.Store.Database
	}
	if config.Store.Collection == "" {
		config.Store.Collection = defaults.Store.Collection
	}
	if config.Store.Timeout == 0 {
		config.Store.Timeout = defaults.Store.Timeout
	}

	if config.Log.Level == "" {
		config.Log.Level = defaults.Log.Level
	}
	if config.Log.Format == "" {
		config.Log.Format = defaults.Log.Format
	}

	return config
}

// applyEnvironmentOverrides applies CLUBELO_* environment variable overrides
func applyEnvironmentOverrides(config *AppConfig) {
	// Input configuration overrides
	if val := os.Getenv("CLUBELO_INPUT_FORMAT"); val != "" {
		config.Input.Format = val
	}
	if val := os.Getenv("CLUBELO_INPUT_DELIMITER"); val != "" {
		config.Input.Delimiter = val
	}
	if val := os.Getenv("CLUBELO_INPUT_HAS_HEADER"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.Input.HasHeader = parsed
		}
	}

	// Journal configuration overrides
	if val := os.Getenv("CLUBELO_JOURNAL_ENABLED"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.Journal.Enabled = parsed
		}
	}
	if val := os.Getenv("CLUBELO_JOURNAL_DIRECTORY"); val != "" {
		config.Journal.Directory = val
	}
	if val := os.Getenv("CLUBELO_JOURNAL_LEDGER"); val != "" {
		config.Journal.Ledger = val
	}

	// Export configuration overrides
	if val := os.Getenv("CLUBELO_EXPORT_FORMAT"); val != "" {
		config.Export.Format = val
	}
	if val := os.Getenv("CLUBELO_EXPORT_SORT_BY"); val != "" {
		config.Export.SortBy = val
	}
	if val := os.Getenv("CLUBELO_EXPORT_SORT_ORDER"); val != "" {
		config.Export.SortOrder = val
	}
	if val := os.Getenv("CLUBELO_EXPORT_INCLUDE_MATCHES"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.Export.IncludeMatches = parsed
		}
	}

	// Store configuration overrides
	if val := os.Getenv("CLUBELO_STORE_BACKEND"); val != "" {
		config.Store.Backend = val
	}
	if val := os.Getenv("CLUBELO_STORE_PATH"); val != "" {
		config.Store.Path = val
	}
	if val := os.Getenv("CLUBELO_STORE_MONGO_URI"); val != "" {
		config.Store.MongoURI = val
	}
	if val := os.Getenv("CLUBELO_STORE_DATABASE"); val != "" {
		config.Store.Database = val
	}
	if val := os.Getenv("CLUBELO_STORE_COLLECTION"); val != "" {
		config.Store.Collection = val
	}
	if val := os.Getenv("CLUBELO_STORE_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.Store.Timeout = parsed
		}
	}

	// Log configuration overrides
	if val := os.Getenv("CLUBELO_LOG_LEVEL"); val != "" {
		config.Log.Level = val
	}
	if val := os.Getenv("CLUBELO_LOG_FORMAT"); val != "" {
		config.Log.Format = val
	}
}
