package data

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Error types for storage operations
var (
	ErrCSVFormat          = errors.New("CSV format error")
	ErrJSONSerialization  = errors.New("JSON serialization error")
	ErrYAMLSerialization  = errors.New("YAML serialization error")
	ErrAtomicWrite        = errors.New("atomic write operation failed")
	ErrUnsupportedFormat  = errors.New("unsupported input format")
	ErrTournamentNotFound = errors.New("tournament file not found")
)

// CSV column names of the per-match tournament layout
const (
	ColumnPlayerID            = "player_id"
	ColumnCurrentRating       = "current_rating"
	ColumnGamesPlayed         = "games_played"
	ColumnOpponentID          = "opponent_id"
	ColumnOpponentRating      = "opponent_rating"
	ColumnOpponentGamesPlayed = "opponent_games_played"
	ColumnResult              = "result"
)

// csvColumns is the positional layout used when the file has no header row
var csvColumns = []string{
	ColumnPlayerID, ColumnCurrentRating, ColumnGamesPlayed,
	ColumnOpponentID, ColumnOpponentRating, ColumnOpponentGamesPlayed, ColumnResult,
}

// ParseError represents a problem with a single CSV row
type ParseError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"error"`
}

// Error implements the error interface
func (e ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("row %d, field '%s': %s", e.Row, e.Field, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ParseErrors collects every row problem of one input file
type ParseErrors []ParseError

// Error implements the error interface
func (pe ParseErrors) Error() string {
	msgs := make([]string, len(pe))
	for i, e := range pe {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d invalid rows: %s", len(pe), strings.Join(msgs, "; "))
}

// Storage defines the tournament file operations
type Storage interface {
	LoadTournament(filename string, config InputConfig) (*Tournament, error)
	SaveTournament(t *Tournament, filename string) error
}

// FileStorage implements Storage on the local file system
type FileStorage struct {
	mu           sync.RWMutex // Protects concurrent operations
	atomicWrites bool         // Whether to use atomic writes for safety
}

// NewFileStorage creates a new FileStorage instance with sensible defaults
func NewFileStorage() *FileStorage {
	return &FileStorage{
		atomicWrites: true,
	}
}

// SetAtomicWrites enables or disables atomic write operations
func (fs *FileStorage) SetAtomicWrites(enabled bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.atomicWrites = enabled
}

// DetectFormat picks the input format from the configured value or the file extension
func DetectFormat(filename, configured string) (string, error) {
	if configured != "" && configured != "auto" {
		return configured, nil
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".json":
		return "json", nil
	case ".csv":
		return "csv", nil
	}
	return "", fmt.Errorf("%w: cannot detect format of %s", ErrUnsupportedFormat, filename)
}

// LoadTournament reads and validates a tournament file
func (fs *FileStorage) LoadTournament(filename string, config InputConfig) (*Tournament, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	format, err := DetectFormat(filename, config.Format)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTournamentNotFound, filename)
		}
		return nil, fmt.Errorf("cannot open tournament file %s: %w", filename, err)
	}
	defer func() { _ = file.Close() }()

	t, err := ParseTournament(file, format, config)
	if err != nil {
		return nil, err
	}

	// CSV files carry no header block, the file name stands in for the id
	if t.ID == "" {
		t.ID = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// ParseTournament decodes a tournament from r in the given format
func ParseTournament(r io.Reader, format string, config InputConfig) (*Tournament, error) {
	switch format {
	case "yaml":
		var t Tournament
		decoder := yaml.NewDecoder(r)
		decoder.KnownFields(true)
		if err := decoder.Decode(&t); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrYAMLSerialization, err)
		}
		return &t, nil
	case "json":
		var t Tournament
		decoder := json.NewDecoder(r)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&t); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrJSONSerialization, err)
		}
		return &t, nil
	case "csv":
		return parseCSVTournament(r, config)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// parseCSVTournament groups per-match rows by player in order of appearance
func parseCSVTournament(r io.Reader, config InputConfig) (*Tournament, error) {
	csvReader := csv.NewReader(r)

	delimiter := ','
	if config.Delimiter != "" {
		delimiter = rune(config.Delimiter[0])
	}
	csvReader.Comma = delimiter
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse CSV: %v", ErrCSVFormat, err)
	}

	columns := make(map[string]int, len(csvColumns))
	startRow := 0
	if config.HasHeader && len(records) > 0 {
		for i, header := range records[0] {
			columns[strings.TrimSpace(strings.ToLower(header))] = i
		}
		for _, required := range []string{ColumnPlayerID, ColumnOpponentID, ColumnResult} {
			if _, ok := columns[required]; !ok {
				return nil, fmt.Errorf("%w: required column '%s' not found", ErrCSVFormat, required)
			}
		}
		startRow = 1
	} else {
		for i, name := range csvColumns {
			columns[name] = i
		}
	}

	t := &Tournament{}
	index := make(map[string]int)
	var parseErrors ParseErrors

	for rowIdx := startRow; rowIdx < len(records); rowIdx++ {
		row := records[rowIdx]
		rowNum := rowIdx + 1

		if isEmptyRow(row) {
			continue
		}

		rec, perr := readMatchRow(row, rowNum, columns)
		if perr != nil {
			parseErrors = append(parseErrors, *perr)
			continue
		}

		pos, known := index[rec.playerID]
		if !known {
			index[rec.playerID] = len(t.Participants)
			t.Participants = append(t.Participants, ParticipantInput{
				PlayerID:      rec.playerID,
				CurrentRating: rec.rating,
				GamesPlayed:   rec.games,
			})
			pos = len(t.Participants) - 1
		} else {
			p := &t.Participants[pos]
			if (rec.rating != 0 && rec.rating != p.CurrentRating) || (rec.games != 0 && rec.games != p.GamesPlayed) {
				parseErrors = append(parseErrors, ParseError{
					Row:     rowNum,
					Message: fmt.Sprintf("player %s has conflicting rating or games played", rec.playerID),
				})
				continue
			}
		}

		t.Participants[pos].Matches = append(t.Participants[pos].Matches, rec.match)
	}

	if len(parseErrors) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrCSVFormat, parseErrors)
	}

	return t, nil
}

type matchRow struct {
	playerID string
	rating   int
	games    int
	match    MatchInput
}

func readMatchRow(row []string, rowNum int, columns map[string]int) (*matchRow, *ParseError) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	number := func(name string) (int, *ParseError) {
		raw := field(name)
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return 0, &ParseError{Row: rowNum, Field: name, Message: fmt.Sprintf("'%s' is not a non-negative integer", raw)}
		}
		return v, nil
	}

	rec := &matchRow{playerID: field(ColumnPlayerID)}
	if rec.playerID == "" {
		return nil, &ParseError{Row: rowNum, Field: ColumnPlayerID, Message: "player id cannot be empty"}
	}

	var perr *ParseError
	if rec.rating, perr = number(ColumnCurrentRating); perr != nil {
		return nil, perr
	}
	if rec.games, perr = number(ColumnGamesPlayed); perr != nil {
		return nil, perr
	}

	rec.match.OpponentID = field(ColumnOpponentID)
	if rec.match.OpponentID == "" {
		return nil, &ParseError{Row: rowNum, Field: ColumnOpponentID, Message: "opponent id cannot be empty"}
	}
	if rec.match.OpponentRating, perr = number(ColumnOpponentRating); perr != nil {
		return nil, perr
	}
	if rec.match.OpponentGamesPlayed, perr = number(ColumnOpponentGamesPlayed); perr != nil {
		return nil, perr
	}

	rec.match.Result = strings.ToLower(field(ColumnResult))
	switch rec.match.Result {
	case "win", "loss", "draw":
	default:
		return nil, &ParseError{Row: rowNum, Field: ColumnResult, Message: fmt.Sprintf("'%s' must be win, loss or draw", rec.match.Result)}
	}

	return rec, nil
}

// isEmptyRow checks if a CSV row is empty or contains only whitespace
func isEmptyRow(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// SaveTournament writes the tournament as YAML or JSON, chosen by extension
func (fs *FileStorage) SaveTournament(t *Tournament, filename string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if t == nil {
		return fmt.Errorf("%w: tournament cannot be nil", ErrJSONSerialization)
	}

	var (
		payload []byte
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if payload, err = yaml.Marshal(t); err != nil {
			return fmt.Errorf("%w: %v", ErrYAMLSerialization, err)
		}
	case ".json":
		if payload, err = json.MarshalIndent(t, "", "  "); err != nil {
			return fmt.Errorf("%w: %v", ErrJSONSerialization, err)
		}
	default:
		return fmt.Errorf("%w: cannot save tournament as %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: cannot create directory: %v", ErrAtomicWrite, err)
		}
	}

	if !fs.atomicWrites {
		return os.WriteFile(filename, payload, 0644)
	}
	return WriteFileAtomic(filename, payload, 0644)
}

// WriteFileAtomic writes to a temporary file, syncs it and renames it over filename
func WriteFileAtomic(filename string, payload []byte, perm os.FileMode) error {
	tempFile := filename + ".tmp"

	file, err := os.OpenFile(tempFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("%w: cannot create temp file: %v", ErrAtomicWrite, err)
	}

	if _, err := file.Write(payload); err != nil {
		_ = file.Close()
		_ = os.Remove(tempFile)
		return fmt.Errorf("%w: failed to write temp file: %v", ErrAtomicWrite, err)
	}

	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tempFile)
		return fmt.Errorf("%w: failed to sync temp file: %v", ErrAtomicWrite, err)
	}

	_ = file.Close()

	if err := os.Rename(tempFile, filename); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("%w: atomic rename failed: %v", ErrAtomicWrite, err)
	}

	return nil
}
