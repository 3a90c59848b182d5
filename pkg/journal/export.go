package journal

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pashagolub/clubelo/pkg/data"
	"github.com/pashagolub/clubelo/pkg/elo"
)

// ErrNothingToExport is returned for reports without standings
var ErrNothingToExport = errors.New("no standings to export")

// ExportFormat represents the format for exporting results
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatText ExportFormat = "text"
	FormatXLSX ExportFormat = "xlsx"
)

const (
	standingsSheet = "Standings"
	matchesSheet   = "Matches"
)

// MatchLine is one match of a participant as it appears in a report
type MatchLine struct {
	OpponentID     string          `json:"opponent_id"`
	OpponentRating int             `json:"opponent_rating"`
	Result         elo.MatchResult `json:"result"`
}

// Standing is a single row of the tournament standings
type Standing struct {
	Rank      int         `json:"rank"`
	PlayerID  string      `json:"player_id"`
	OldRating int         `json:"old_rating"`
	NewRating int         `json:"new_rating"`
	Change    int         `json:"change"`
	Bonus     int         `json:"bonus"`
	Wins      int         `json:"wins"`
	Losses    int         `json:"losses"`
	Draws     int         `json:"draws"`
	Matches   []MatchLine `json:"matches,omitempty"`
}

// Record formats the win/loss/draw counts as W-L-D
func (s Standing) Record() string {
	return fmt.Sprintf("%d-%d-%d", s.Wins, s.Losses, s.Draws)
}

// Report holds the standings of one processed tournament
type Report struct {
	TournamentID string     `json:"tournament_id"`
	Name         string     `json:"name,omitempty"`
	GeneratedAt  time.Time  `json:"generated_at"`
	SortBy       string     `json:"sort_by"`
	SortOrder    string     `json:"sort_order"`
	Standings    []Standing `json:"standings"`
}

// NewReport builds standings from the tournament input and the engine results.
// Ranks follow the new rating, ties share a rank; rows are then ordered per config.
// Participants missing from results are skipped.
func NewReport(tournamentID, name string, participants []elo.TournamentParticipant,
	results map[string]elo.TournamentResult, config data.ExportConfig) *Report {
	report := &Report{
		TournamentID: tournamentID,
		Name:         name,
		GeneratedAt:  time.Now(),
		SortBy:       config.SortBy,
		SortOrder:    config.SortOrder,
		Standings:    make([]Standing, 0, len(participants)),
	}

	for _, p := range participants {
		result, ok := results[p.PlayerID]
		if !ok {
			continue
		}
		row := Standing{
			PlayerID:  p.PlayerID,
			OldRating: p.CurrentRating,
			NewRating: result.NewRating,
			Change:    result.RatingChange,
			Bonus:     result.TotalBonusPoints,
		}
		for _, m := range p.Matches {
			switch m.Result {
			case elo.Win:
				row.Wins++
			case elo.Loss:
				row.Losses++
			case elo.Draw:
				row.Draws++
			}
			if config.IncludeMatches {
				row.Matches = append(row.Matches, MatchLine{
					OpponentID:     m.OpponentID,
					OpponentRating: m.OpponentRating,
					Result:         m.Result,
				})
			}
		}
		report.Standings = append(report.Standings, row)
	}

	assignRanks(report.Standings)
	report.Sort(config.SortBy, config.SortOrder)
	return report
}

// Sort reorders the standings by rating, change, bonus or player. Ranks are kept.
func (r *Report) Sort(sortBy, order string) {
	r.SortBy = sortBy
	r.SortOrder = order
	sortStandings(r.Standings, sortBy, order)
}

func assignRanks(rows []Standing) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].NewRating != rows[j].NewRating {
			return rows[i].NewRating > rows[j].NewRating
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})
	for i := range rows {
		if i > 0 && rows[i].NewRating == rows[i-1].NewRating {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}
}

func sortStandings(rows []Standing, sortBy, order string) {
	key := func(s Standing) int {
		switch sortBy {
		case "change":
			return s.Change
		case "bonus":
			return s.Bonus
		default:
			return s.NewRating
		}
	}
	ascending := order == "asc"

	sort.SliceStable(rows, func(i, j int) bool {
		if sortBy == "player" {
			if ascending || order == "" {
				return rows[i].PlayerID < rows[j].PlayerID
			}
			return rows[i].PlayerID > rows[j].PlayerID
		}
		a, b := key(rows[i]), key(rows[j])
		if a == b {
			return rows[i].PlayerID < rows[j].PlayerID
		}
		if ascending {
			return a < b
		}
		return a > b
	})
}

// Exporter writes reports in the supported formats
type Exporter struct {
	now func() time.Time
}

// NewExporter creates a new exporter instance
func NewExporter() *Exporter {
	return &Exporter{now: time.Now}
}

// Export writes report to writer in the given format
func (e *Exporter) Export(report *Report, writer io.Writer, format ExportFormat) error {
	switch format {
	case FormatCSV:
		return e.ExportCSV(report, writer)
	case FormatJSON:
		return e.ExportJSON(report, writer)
	case FormatText:
		return e.ExportText(report, writer)
	case FormatXLSX:
		return e.ExportXLSX(report, writer)
	default:
		return fmt.Errorf("%w: %s", data.ErrUnsupportedFormat, format)
	}
}

// ExportToFile renders report fully in memory and then replaces filePath atomically
func (e *Exporter) ExportToFile(report *Report, filePath string, format ExportFormat) error {
	dir := filepath.Dir(filePath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	var buf bytes.Buffer
	if err := e.Export(report, &buf, format); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	return data.WriteFileAtomic(filePath, buf.Bytes(), 0644)
}

var csvHeader = []string{
	"rank", "player_id", "old_rating", "new_rating", "change", "bonus", "wins", "losses", "draws",
}

func (s Standing) fields() []string {
	return []string{
		strconv.Itoa(s.Rank),
		s.PlayerID,
		strconv.Itoa(s.OldRating),
		strconv.Itoa(s.NewRating),
		strconv.Itoa(s.Change),
		strconv.Itoa(s.Bonus),
		strconv.Itoa(s.Wins),
		strconv.Itoa(s.Losses),
		strconv.Itoa(s.Draws),
	}
}

func (s Standing) matchLog() string {
	parts := make([]string, 0, len(s.Matches))
	for _, m := range s.Matches {
		parts = append(parts, fmt.Sprintf("%s:%s", m.OpponentID, m.Result))
	}
	return strings.Join(parts, " ")
}

// ExportCSV writes one row per participant; a match log column is added
// when the report carries per-match lines
func (e *Exporter) ExportCSV(report *Report, writer io.Writer) error {
	if report == nil || len(report.Standings) == 0 {
		return ErrNothingToExport
	}

	withMatches := hasMatches(report)
	header := csvHeader
	if withMatches {
		header = append(append([]string{}, csvHeader...), "matches")
	}

	csvWriter := csv.NewWriter(writer)
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range report.Standings {
		record := row.fields()
		if withMatches {
			record = append(record, row.matchLog())
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record for player %s: %w", row.PlayerID, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// ExportJSON writes the report as indented JSON
func (e *Exporter) ExportJSON(report *Report, writer io.Writer) error {
	if report == nil {
		return ErrNothingToExport
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportText generates a human-readable standings report
func (e *Exporter) ExportText(report *Report, writer io.Writer) error {
	if report == nil || len(report.Standings) == 0 {
		return ErrNothingToExport
	}

	title := report.Name
	if title == "" {
		title = report.TournamentID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tournament Standings: %s\n", title)
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", 22+len(title)))
	fmt.Fprintf(&b, "Tournament ID: %s\n", report.TournamentID)
	fmt.Fprintf(&b, "Generated: %s\n", e.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Participants: %d\n\n", len(report.Standings))

	fmt.Fprintf(&b, "%4s  %-20s %6s %6s %7s %6s  %s\n", "Rank", "Player", "Old", "New", "Change", "Bonus", "W-L-D")
	for _, row := range report.Standings {
		fmt.Fprintf(&b, "%4d  %-20s %6d %6d %+7d %6d  %s\n",
			row.Rank, row.PlayerID, row.OldRating, row.NewRating, row.Change, row.Bonus, row.Record())
		for _, m := range row.Matches {
			fmt.Fprintf(&b, "        vs %-16s (%d) %s\n", m.OpponentID, m.OpponentRating, m.Result)
		}
	}

	_, err := io.WriteString(writer, b.String())
	return err
}

// ExportXLSX writes a workbook with a standings sheet and, when present,
// a sheet of per-match lines
func (e *Exporter) ExportXLSX(report *Report, writer io.Writer) error {
	if report == nil || len(report.Standings) == 0 {
		return ErrNothingToExport
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), standingsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(csvHeader))
	for i, h := range csvHeader {
		header[i] = h
	}
	if err := setRow(f, standingsSheet, 1, header); err != nil {
		return err
	}
	if err := f.SetRowStyle(standingsSheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range report.Standings {
		values := []interface{}{
			row.Rank, row.PlayerID, row.OldRating, row.NewRating, row.Change,
			row.Bonus, row.Wins, row.Losses, row.Draws,
		}
		if err := setRow(f, standingsSheet, i+2, values); err != nil {
			return err
		}
	}

	if hasMatches(report) {
		if _, err := f.NewSheet(matchesSheet); err != nil {
			return fmt.Errorf("failed to add matches sheet: %w", err)
		}
		if err := setRow(f, matchesSheet, 1, []interface{}{"player_id", "opponent_id", "opponent_rating", "result"}); err != nil {
			return err
		}
		if err := f.SetRowStyle(matchesSheet, 1, 1, headerStyle); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
		line := 2
		for _, row := range report.Standings {
			for _, m := range row.Matches {
				if err := setRow(f, matchesSheet, line, []interface{}{row.PlayerID, m.OpponentID, m.OpponentRating, string(m.Result)}); err != nil {
					return err
				}
				line++
			}
		}
	}

	if err := f.Write(writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, axis, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func hasMatches(report *Report) bool {
	for _, row := range report.Standings {
		if len(row.Matches) > 0 {
			return true
		}
	}
	return false
}
