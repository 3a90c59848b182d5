// Package journal keeps the append-only rating history ledger of the club and
// renders reports and charts from it. The ledger is a JSON Lines file in which
// every entry carries the hash of its predecessor, so edits and truncation in
// the middle of the file are detected when it is reopened.
package journal

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pashagolub/clubelo/pkg/elo"
)

// Error types for journal operations
var (
	ErrJournalCorrupted = errors.New("history journal corrupted or tampered")
	ErrJournalClosed    = errors.New("history journal is closed")
	ErrEmptyLedger      = errors.New("ledger name cannot be empty")
)

const maxLineSize = 4 * 1024 * 1024

// EventType represents the type of event being recorded
type EventType string

const (
	EventRatingUpdated       EventType = "rating_updated"
	EventMatchProcessed      EventType = "match_processed"
	EventTournamentProcessed EventType = "tournament_processed"
)

// MatchSummary records both sides of a single processed match
type MatchSummary struct {
	PlayerID   string                `json:"player_id"`
	OpponentID string                `json:"opponent_id"`
	Result     elo.MatchResult       `json:"result"`
	Outcome    elo.CalculationResult `json:"outcome"`
}

// TournamentSummary records the per-participant outcome of a tournament
type TournamentSummary struct {
	Participants int                             `json:"participants"`
	Matches      int                             `json:"matches"`
	Results      map[string]elo.TournamentResult `json:"results"`
}

// Entry is a single line of the ledger
type Entry struct {
	ID           string    `json:"id"`
	Sequence     uint64    `json:"sequence"`
	Timestamp    time.Time `json:"timestamp"`
	EventType    EventType `json:"event_type"`
	Ledger       string    `json:"ledger"`
	PlayerID     string    `json:"player_id,omitempty"`
	TournamentID string    `json:"tournament_id,omitempty"`

	History    *elo.HistoryEntry  `json:"history,omitempty"`
	Match      *MatchSummary      `json:"match,omitempty"`
	Tournament *TournamentSummary `json:"tournament,omitempty"`

	PreviousHash string `json:"previous_hash"`
	EntryHash    string `json:"entry_hash"`
}

// HistoryJournal manages the append-only ledger file history_<ledger>.jsonl
type HistoryJournal struct {
	ledger   string
	path     string
	file     *os.File
	mutex    sync.Mutex
	lastHash string
	sequence uint64
	now      func() time.Time
}

// NewHistoryJournal opens or creates the ledger in directory, validating any existing chain
func NewHistoryJournal(ledger, directory string) (*HistoryJournal, error) {
	if strings.TrimSpace(ledger) == "" {
		return nil, ErrEmptyLedger
	}

	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	j := &HistoryJournal{
		ledger: ledger,
		path:   filepath.Join(directory, fmt.Sprintf("history_%s.jsonl", ledger)),
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := j.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize history journal: %w", err)
	}

	return j, nil
}

func (j *HistoryJournal) initialize() error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if _, err := os.Stat(j.path); err == nil {
		lastHash, count, err := j.verifyChain()
		if err != nil {
			return err
		}
		j.lastHash = lastHash
		j.sequence = count
	}

	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal file: %w", err)
	}
	j.file = file

	return nil
}

// scan calls fn for every non-empty line of the ledger
func (j *HistoryJournal) scan(fn func(line int, entry Entry, err error) error) error {
	readFile, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open journal for reading: %w", err)
	}
	defer func() { _ = readFile.Close() }()

	scanner := bufio.NewScanner(readFile)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var entry Entry
		decodeErr := json.Unmarshal([]byte(text), &entry)
		if err := fn(line, entry, decodeErr); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading journal: %w", err)
	}
	return nil
}

// verifyChain walks the whole ledger and returns the last hash and the entry count
func (j *HistoryJournal) verifyChain() (string, uint64, error) {
	var previousHash string
	var sequence uint64

	err := j.scan(func(line int, entry Entry, decodeErr error) error {
		if decodeErr != nil {
			return fmt.Errorf("%w: invalid JSON on line %d: %v", ErrJournalCorrupted, line, decodeErr)
		}
		if entry.Sequence != sequence {
			return fmt.Errorf("%w: sequence mismatch on line %d: expected %d, got %d",
				ErrJournalCorrupted, line, sequence, entry.Sequence)
		}
		if entry.PreviousHash != previousHash {
			return fmt.Errorf("%w: hash chain broken at sequence %d", ErrJournalCorrupted, sequence)
		}
		if expected := calculateEntryHash(&entry); entry.EntryHash != expected {
			return fmt.Errorf("%w: entry hash mismatch at sequence %d", ErrJournalCorrupted, sequence)
		}

		previousHash = entry.EntryHash
		sequence++
		return nil
	})

	return previousHash, sequence, err
}

// AppendRating records a new rating history entry of one player
func (j *HistoryJournal) AppendRating(playerID string, history elo.HistoryEntry) error {
	return j.append(Entry{
		EventType:    EventRatingUpdated,
		PlayerID:     playerID,
		TournamentID: history.TournamentID,
		History:      &history,
	})
}

// AppendMatch records a processed single match
func (j *HistoryJournal) AppendMatch(tournamentID string, match MatchSummary) error {
	return j.append(Entry{
		EventType:    EventMatchProcessed,
		PlayerID:     match.PlayerID,
		TournamentID: tournamentID,
		Match:        &match,
	})
}

// AppendTournament records the summary of a processed tournament
func (j *HistoryJournal) AppendTournament(tournamentID string, summary TournamentSummary) error {
	if summary.Participants == 0 {
		summary.Participants = len(summary.Results)
	}
	return j.append(Entry{
		EventType:    EventTournamentProcessed,
		TournamentID: tournamentID,
		Tournament:   &summary,
	})
}

func (j *HistoryJournal) append(entry Entry) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if j.file == nil {
		return ErrJournalClosed
	}

	entry.ID = uuid.NewString()
	entry.Sequence = j.sequence
	entry.Timestamp = j.now()
	entry.Ledger = j.ledger
	entry.PreviousHash = j.lastHash
	entry.EntryHash = calculateEntryHash(&entry)

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	if _, err := j.file.Write(append(jsonData, '\n')); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}

	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal: %w", err)
	}

	j.lastHash = entry.EntryHash
	j.sequence++

	return nil
}

// calculateEntryHash computes the SHA-256 hash of an entry without its own hash field
func calculateEntryHash(entry *Entry) string {
	payload, _ := json.Marshal(struct {
		History    *elo.HistoryEntry  `json:"history,omitempty"`
		Match      *MatchSummary      `json:"match,omitempty"`
		Tournament *TournamentSummary `json:"tournament,omitempty"`
	}{entry.History, entry.Match, entry.Tournament})

	content := fmt.Sprintf("%s|%d|%s|%s|%s|%s|%s|%s|%s",
		entry.ID,
		entry.Sequence,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.EventType,
		entry.Ledger,
		entry.PlayerID,
		entry.TournamentID,
		entry.PreviousHash,
		payload)

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// Close closes the journal file
func (j *HistoryJournal) Close() error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if j.file != nil {
		err := j.file.Close()
		j.file = nil
		return err
	}
	return nil
}

// Path returns the ledger file path
func (j *HistoryJournal) Path() string {
	return j.path
}

// Sequence returns the number of entries written so far
func (j *HistoryJournal) Sequence() uint64 {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	return j.sequence
}

// QueryOptions defines filtering criteria for journal queries
type QueryOptions struct {
	EventTypes   []EventType `json:"event_types,omitempty"`
	PlayerID     string      `json:"player_id,omitempty"` // Matches either side of a match
	TournamentID string      `json:"tournament_id,omitempty"`
	StartTime    *time.Time  `json:"start_time,omitempty"`
	EndTime      *time.Time  `json:"end_time,omitempty"`
	Limit        int         `json:"limit,omitempty"`
	Offset       int         `json:"offset,omitempty"`
}

// QueryResult contains the results of a journal query
type QueryResult struct {
	Entries      []Entry      `json:"entries"`
	TotalCount   int          `json:"total_count"`
	HasMore      bool         `json:"has_more"`
	QueryOptions QueryOptions `json:"query_options"`
}

// Query returns entries matching options in ledger order.
// Malformed lines are skipped; VerifyIntegrity reports them.
func (j *HistoryJournal) Query(options QueryOptions) (*QueryResult, error) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	matches := []Entry{}
	err := j.scan(func(_ int, entry Entry, decodeErr error) error {
		if decodeErr == nil && matchesQuery(&entry, options) {
			matches = append(matches, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	totalCount := len(matches)
	start := min(max(options.Offset, 0), totalCount)
	end := totalCount
	if options.Limit > 0 {
		end = min(start+options.Limit, totalCount)
	}

	return &QueryResult{
		Entries:      matches[start:end],
		TotalCount:   totalCount,
		HasMore:      end < totalCount,
		QueryOptions: options,
	}, nil
}

func matchesQuery(entry *Entry, options QueryOptions) bool {
	if len(options.EventTypes) > 0 && !slices.Contains(options.EventTypes, entry.EventType) {
		return false
	}

	if options.StartTime != nil && entry.Timestamp.Before(*options.StartTime) {
		return false
	}
	if options.EndTime != nil && entry.Timestamp.After(*options.EndTime) {
		return false
	}

	if options.TournamentID != "" && entry.TournamentID != options.TournamentID {
		return false
	}

	if options.PlayerID != "" {
		involved := entry.PlayerID == options.PlayerID
		if entry.Match != nil && entry.Match.OpponentID == options.PlayerID {
			involved = true
		}
		if entry.Tournament != nil {
			if _, ok := entry.Tournament.Results[options.PlayerID]; ok {
				involved = true
			}
		}
		if !involved {
			return false
		}
	}

	return true
}

// PlayerHistory returns the rating history of a player in the order it was recorded
func (j *HistoryJournal) PlayerHistory(playerID string) ([]elo.HistoryEntry, error) {
	result, err := j.Query(QueryOptions{
		EventTypes: []EventType{EventRatingUpdated},
		PlayerID:   playerID,
	})
	if err != nil {
		return nil, err
	}

	history := make([]elo.HistoryEntry, 0, len(result.Entries))
	for _, entry := range result.Entries {
		if entry.History != nil {
			history = append(history, *entry.History)
		}
	}
	return history, nil
}

// VerifyIntegrity performs a complete integrity check of the ledger
func (j *HistoryJournal) VerifyIntegrity() error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	_, count, err := j.verifyChain()
	if err != nil {
		return err
	}
	if count != j.sequence {
		return fmt.Errorf("%w: ledger has %d entries, expected %d", ErrJournalCorrupted, count, j.sequence)
	}
	return nil
}

// Statistics provides summary information about the ledger
type Statistics struct {
	Ledger       string            `json:"ledger"`
	TotalEntries int               `json:"total_entries"`
	EventCounts  map[EventType]int `json:"event_counts"`
	Players      int               `json:"players"`
	Tournaments  int               `json:"tournaments"`
	FirstEntry   *time.Time        `json:"first_entry,omitempty"`
	LastEntry    *time.Time        `json:"last_entry,omitempty"`
}

// Statistics summarises the ledger contents
func (j *HistoryJournal) Statistics() (*Statistics, error) {
	result, err := j.Query(QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate statistics: %w", err)
	}

	stats := &Statistics{
		Ledger:       j.ledger,
		TotalEntries: result.TotalCount,
		EventCounts:  make(map[EventType]int),
	}

	players := make(map[string]bool)
	tournaments := make(map[string]bool)
	for _, entry := range result.Entries {
		stats.EventCounts[entry.EventType]++
		if entry.PlayerID != "" {
			players[entry.PlayerID] = true
		}
		if entry.TournamentID != "" {
			tournaments[entry.TournamentID] = true
		}
	}
	stats.Players = len(players)
	stats.Tournaments = len(tournaments)

	if n := len(result.Entries); n > 0 {
		stats.FirstEntry = &result.Entries[0].Timestamp
		stats.LastEntry = &result.Entries[n-1].Timestamp
	}

	return stats, nil
}
