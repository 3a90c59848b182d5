// Package main provides the command-line interface for the clubelo rating engine.
// It implements subcommands for one-off match calculations, applying tournaments to
// stored ratings, exporting standings, browsing the history journal and validating
// tournament input files.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/pashagolub/clubelo/pkg/data"
	"github.com/pashagolub/clubelo/pkg/elo"
	"github.com/pashagolub/clubelo/pkg/journal"
	"github.com/pashagolub/clubelo/pkg/league"
	"github.com/pashagolub/clubelo/pkg/store"
	"github.com/pashagolub/clubelo/pkg/tui"
)

// Version information - set by build process
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// ErrorCode represents CLI exit codes
type ErrorCode int

const (
	ExitSuccess ErrorCode = iota
	ExitFileError
	ExitConfigError
	ExitStoreError
	ExitExportError
	ExitValidationError
	ExitJournalError
)

// CLIError represents a CLI error with exit code
type CLIError struct {
	Code        ErrorCode
	Message     string
	Details     map[string]interface{}
	Suggestions []string
}

func (e *CLIError) Error() string {
	return e.Message
}

// formatErrorJSON formats error as JSON for structured output
func formatErrorJSON(err *CLIError) string {
	body := map[string]interface{}{
		"code":    err.Code,
		"message": err.Message,
	}
	if err.Details != nil {
		body["details"] = err.Details
	}
	if err.Suggestions != nil {
		body["suggestions"] = err.Suggestions
	}

	jsonBytes, _ := json.MarshalIndent(map[string]interface{}{"error": body}, "", "  ")
	return string(jsonBytes)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var cliErr *CLIError
		if errors.As(err, &cliErr) {
			fmt.Fprintln(os.Stderr, formatErrorJSON(cliErr))
			os.Exit(int(cliErr.Code))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// application carries the state shared by every command
type application struct {
	opts    *data.GlobalOptions
	stdout  io.Writer
	stderr  io.Writer
	storage *data.FileStorage

	config *data.AppConfig
	logger *slog.Logger
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, remaining, err := data.ParseGlobalOptions(args)
	if err != nil {
		return &CLIError{Code: ExitConfigError, Message: err.Error()}
	}

	app := &application{
		opts:    opts,
		stdout:  stdout,
		stderr:  stderr,
		storage: data.NewFileStorage(),
	}

	if opts.Version {
		app.showVersion()
		return nil
	}

	parser := newParser(app)
	if _, err := parser.ParseArgs(remaining); err != nil {
		if data.IsHelp(err) {
			fmt.Fprintln(stdout, err)
			return nil
		}

		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrCommandRequired {
				parser.WriteHelp(stderr)
				return &CLIError{
					Code:    ExitConfigError,
					Message: "No command specified",
					Suggestions: []string{
						"Use 'clubelo tournament --input night.yaml' to rate a tournament",
						"Use 'clubelo --help' to see all available commands",
					},
				}
			}
			return &CLIError{
				Code:    ExitConfigError,
				Message: fmt.Sprintf("Invalid arguments: %v", err),
			}
		}
		return err
	}

	return nil
}

func newParser(app *application) *flags.Parser {
	parser := flags.NewParser(nil, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "clubelo"
	parser.Usage = "[OPTIONS] COMMAND [COMMAND-OPTIONS]"

	parser.AddCommand("match", "Calculate the rating change of a single match", "", &MatchCommand{app: app})
	parser.AddCommand("tournament", "Rate a tournament and print or export the standings", "", &TournamentCommand{app: app})
	parser.AddCommand("history", "Browse and verify the rating history journal", "", &HistoryCommand{app: app})
	parser.AddCommand("leaderboard", "Show the top rated players", "", &LeaderboardCommand{app: app})
	parser.AddCommand("validate", "Validate a tournament input file", "", &ValidateCommand{app: app})
	parser.AddCommand("init", "Write a default configuration file", "", &InitCommand{app: app})

	return parser
}

// loadConfig resolves the configuration once and builds the logger from it
func (a *application) loadConfig() (*data.AppConfig, error) {
	if a.config != nil {
		return a.config, nil
	}

	config, err := data.ResolveConfig(a.opts)
	if err != nil {
		return nil, &CLIError{
			Code:    ExitConfigError,
			Message: fmt.Sprintf("Failed to load configuration: %v", err),
			Suggestions: []string{
				"Check configuration file syntax",
				"Use --config to point at a different file or --no-config to skip it",
			},
		}
	}

	a.config = config
	a.logger = config.Log.NewLogger(a.stderr)
	return config, nil
}

// context returns a context bounded by the store timeout
func (a *application) context() (context.Context, context.CancelFunc) {
	if a.config != nil && a.config.Store.Timeout > 0 {
		return context.WithTimeout(context.Background(), a.config.Store.Timeout)
	}
	return context.WithCancel(context.Background())
}

func (a *application) openJournal() (*journal.HistoryJournal, error) {
	cfg := a.config.Journal
	j, err := journal.NewHistoryJournal(cfg.Ledger, cfg.Directory)
	if err != nil {
		return nil, &CLIError{
			Code:    ExitJournalError,
			Message: fmt.Sprintf("Failed to open history journal: %v", err),
			Details: map[string]interface{}{
				"directory": cfg.Directory,
				"ledger":    cfg.Ledger,
			},
			Suggestions: []string{
				"Run 'clubelo history --verify' to locate the damaged entry",
			},
		}
	}
	return j, nil
}

// openService connects the rating store and, when enabled, the history journal
func (a *application) openService(ctx context.Context) (*league.Service, func(), error) {
	repo, err := store.Open(ctx, a.config.Store)
	if err != nil {
		return nil, nil, &CLIError{
			Code:    ExitStoreError,
			Message: fmt.Sprintf("Failed to open rating store: %v", err),
			Details: map[string]interface{}{
				"backend": a.config.Store.Backend,
			},
			Suggestions: []string{
				"Check --store-path or --mongo-uri",
				"Use --store file to fall back to the local player file",
			},
		}
	}

	closers := []func() error{
		func() error { return repo.Close(context.Background()) },
	}
	options := []league.Option{league.WithLogger(a.logger)}

	if a.config.Journal.Enabled {
		j, err := a.openJournal()
		if err != nil {
			_ = repo.Close(ctx)
			return nil, nil, err
		}
		options = append(options, league.WithJournal(j))
		closers = append(closers, j.Close)
	}

	cleanup := func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				a.logger.Warn("Failed to close resource", slog.Any("error", err))
			}
		}
	}

	return league.NewService(repo, options...), cleanup, nil
}

func (a *application) printJSON(v interface{}) error {
	encoder := json.NewEncoder(a.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (a *application) showVersion() {
	fmt.Fprintf(a.stdout, "clubelo version %s\n", Version)
	fmt.Fprintf(a.stdout, "Build date: %s\n", BuildDate)
	fmt.Fprintf(a.stdout, "Git commit: %s\n", GitCommit)
}

// journalError reports ratings that were stored while the journal fell behind
func journalError(err error) *CLIError {
	return &CLIError{
		Code:    ExitJournalError,
		Message: err.Error(),
		Suggestions: []string{
			"Ratings were saved; run 'clubelo history --verify' before the next import",
		},
	}
}

// MatchCommand handles 'clubelo match'
type MatchCommand struct {
	Player         string `long:"player" short:"p" description:"Player id" required:"true"`
	Opponent       string `long:"opponent" short:"o" description:"Opponent id" required:"true"`
	Result         string `long:"result" short:"r" description:"Result from the player's side (win/loss/draw)" required:"true"`
	Rating         int    `long:"rating" description:"Player rating" default:"1200"`
	OpponentRating int    `long:"opponent-rating" description:"Opponent rating" default:"1200"`
	Games          int    `long:"games" description:"Games the player has played" default:"50"`
	OpponentGames  int    `long:"opponent-games" description:"Games the opponent has played" default:"50"`
	KFactor        int    `long:"k-factor" short:"k" description:"Override the player's K-factor; 0 keeps the experience-based value"`
	Tournament     string `long:"tournament" short:"t" description:"Tournament the match belongs to"`
	Apply          bool   `long:"apply" description:"Use and update the stored ratings instead of the given ones"`

	app *application
}

// matchReport is the printable outcome of one match
type matchReport struct {
	PlayerID          string          `json:"player_id"`
	OpponentID        string          `json:"opponent_id"`
	Result            elo.MatchResult `json:"result"`
	PlayerRating      int             `json:"player_rating"`
	NewPlayerRating   int             `json:"new_player_rating"`
	PlayerChange      int             `json:"player_change"`
	OpponentRating    int             `json:"opponent_rating"`
	NewOpponentRating int             `json:"new_opponent_rating"`
	OpponentChange    int             `json:"opponent_change"`
	PointsAwarded     int             `json:"points_awarded"`
	Applied           bool            `json:"applied"`
}

// Execute implements the Command interface for MatchCommand
func (c *MatchCommand) Execute(args []string) error {
	if _, err := c.app.loadConfig(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Player) == "" || strings.TrimSpace(c.Opponent) == "" {
		return &CLIError{Code: ExitValidationError, Message: "player and opponent are required"}
	}

	result, err := elo.ParseMatchResult(strings.ToLower(c.Result))
	if err != nil {
		return &CLIError{
			Code:        ExitValidationError,
			Message:     err.Error(),
			Suggestions: []string{"Use one of: win, loss, draw"},
		}
	}

	var kFactor *int
	if c.KFactor != 0 {
		kFactor = &c.KFactor
	}

	var report matchReport
	if c.Apply {
		report, err = c.apply(kFactor)
	} else {
		report, err = c.calculate(result, kFactor)
	}
	if err != nil && !report.Applied {
		return err
	}

	if c.app.opts.JSON {
		if printErr := c.app.printJSON(report); printErr != nil {
			return printErr
		}
	} else {
		writeMatchReport(c.app.stdout, report)
	}
	return err
}

func (c *MatchCommand) calculate(result elo.MatchResult, kFactor *int) (matchReport, error) {
	if kFactor != nil && *kFactor < 0 {
		return matchReport{}, &CLIError{
			Code:    ExitValidationError,
			Message: fmt.Sprintf("K-factor cannot be negative, got %d (0 means no override)", *kFactor),
		}
	}

	calc, err := elo.CalculateEloChangeWithExperience(elo.CalculationParams{
		PlayerRating:   c.Rating,
		OpponentRating: c.OpponentRating,
		PlayerResult:   result,
		KFactor:        kFactor,
	}, c.Games, c.OpponentGames)
	if err != nil {
		return matchReport{}, &CLIError{Code: ExitValidationError, Message: err.Error()}
	}

	return matchReport{
		PlayerID:          c.Player,
		OpponentID:        c.Opponent,
		Result:            result,
		PlayerRating:      c.Rating,
		NewPlayerRating:   calc.NewPlayerRating,
		PlayerChange:      calc.PlayerRatingChange,
		OpponentRating:    c.OpponentRating,
		NewOpponentRating: calc.NewOpponentRating,
		OpponentChange:    calc.OpponentRatingChange,
		PointsAwarded:     calc.PointsAwarded,
	}, nil
}

func (c *MatchCommand) apply(kFactor *int) (matchReport, error) {
	ctx, cancel := c.app.context()
	defer cancel()

	service, cleanup, err := c.app.openService(ctx)
	if err != nil {
		return matchReport{}, err
	}
	defer cleanup()

	outcome, err := service.ProcessMatch(ctx, league.MatchRequest{
		TournamentID: c.Tournament,
		PlayerID:     c.Player,
		OpponentID:   c.Opponent,
		Result:       c.Result,
		KFactor:      kFactor,
	})
	if outcome == nil {
		code := ExitStoreError
		if errors.Is(err, league.ErrInvalidMatch) {
			code = ExitValidationError
		}
		return matchReport{}, &CLIError{Code: code, Message: err.Error()}
	}

	// Each side's history records the other side's rating before the match
	report := matchReport{
		PlayerID:          outcome.OpponentHistory.OpponentID,
		OpponentID:        outcome.PlayerHistory.OpponentID,
		Result:            outcome.PlayerHistory.Result,
		PlayerRating:      outcome.OpponentHistory.OpponentRating,
		NewPlayerRating:   outcome.Result.NewPlayerRating,
		PlayerChange:      outcome.Result.PlayerRatingChange,
		OpponentRating:    outcome.PlayerHistory.OpponentRating,
		NewOpponentRating: outcome.Result.NewOpponentRating,
		OpponentChange:    outcome.Result.OpponentRatingChange,
		PointsAwarded:     outcome.Result.PointsAwarded,
		Applied:           true,
	}
	if err != nil {
		return report, journalError(err)
	}
	return report, nil
}

func writeMatchReport(w io.Writer, r matchReport) {
	width := max(len(r.PlayerID), len(r.OpponentID))
	fmt.Fprintf(w, "Match: %s vs %s (%s)\n", r.PlayerID, r.OpponentID, r.Result)
	fmt.Fprintf(w, "  %-*s  %4d -> %4d  (%+d)\n", width, r.PlayerID, r.PlayerRating, r.NewPlayerRating, r.PlayerChange)
	fmt.Fprintf(w, "  %-*s  %4d -> %4d  (%+d)\n", width, r.OpponentID, r.OpponentRating, r.NewOpponentRating, r.OpponentChange)
	fmt.Fprintf(w, "Points awarded: %d\n", r.PointsAwarded)
	if r.Applied {
		fmt.Fprintln(w, "Stored ratings updated")
	}
}

// TournamentCommand handles 'clubelo tournament'
type TournamentCommand struct {
	Input          string `long:"input" short:"i" description:"Tournament file (yaml/json/csv)" required:"true"`
	Apply          bool   `long:"apply" description:"Rate against the stored ratings and save the results"`
	Output         string `long:"output" short:"o" description:"Write the standings to this file"`
	Format         string `long:"format" short:"f" description:"Standings format (csv/json/text/xlsx)"`
	SortBy         string `long:"sort-by" description:"Sort standings by rating/change/bonus/player"`
	SortOrder      string `long:"sort-order" description:"Sort order (asc/desc)"`
	IncludeMatches bool   `long:"include-matches" description:"Include the per-match breakdown"`
	View           bool   `long:"view" description:"Browse the standings in the terminal viewer"`

	app *application
}

// Execute implements the Command interface for TournamentCommand
func (c *TournamentCommand) Execute(args []string) error {
	config, err := c.app.loadConfig()
	if err != nil {
		return err
	}

	tournament, err := loadTournament(c.app.storage, c.Input, config.Input)
	if err != nil {
		return err
	}

	participants, err := tournament.EngineParticipants()
	if err != nil {
		return &CLIError{Code: ExitValidationError, Message: err.Error()}
	}

	var (
		results    map[string]elo.TournamentResult
		journalErr error
	)
	if c.Apply {
		ctx, cancel := c.app.context()
		defer cancel()

		service, cleanup, err := c.app.openService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		outcome, err := service.ProcessTournament(ctx, tournament.ID, participants)
		if outcome == nil {
			code := ExitStoreError
			if errors.Is(err, league.ErrInvalidTournament) {
				code = ExitValidationError
			}
			return &CLIError{Code: code, Message: err.Error()}
		}
		if err != nil {
			journalErr = journalError(err)
		}
		participants, results = outcome.Participants, outcome.Results
	} else {
		results, err = elo.CalculateTournamentEloChanges(participants)
		if err != nil {
			return &CLIError{Code: ExitValidationError, Message: err.Error()}
		}
	}

	exportConfig := config.Export
	if c.SortBy != "" {
		exportConfig.SortBy = c.SortBy
	}
	if c.SortOrder != "" {
		exportConfig.SortOrder = c.SortOrder
	}
	if c.IncludeMatches {
		exportConfig.IncludeMatches = true
	}
	if err := exportConfig.Validate(); err != nil {
		return &CLIError{Code: ExitConfigError, Message: err.Error()}
	}

	report := journal.NewReport(tournament.ID, tournament.Name, participants, results, exportConfig)

	if err := c.present(report, exportConfig); err != nil {
		return err
	}
	if journalErr != nil {
		return journalErr
	}
	return nil
}

func (c *TournamentCommand) present(report *journal.Report, exportConfig data.ExportConfig) error {
	if c.View {
		if err := tui.NewStandingsView(report).Run(); err != nil {
			return fmt.Errorf("standings viewer failed: %w", err)
		}
		return nil
	}

	format := exportFormat(c.Format, c.Output, exportConfig.Format)
	if c.app.opts.JSON && c.Output == "" {
		format = journal.FormatJSON
	}

	exporter := journal.NewExporter()
	if c.Output == "" {
		if format == journal.FormatXLSX {
			return &CLIError{
				Code:        ExitExportError,
				Message:     "xlsx standings need an output file",
				Suggestions: []string{"Add --output standings.xlsx"},
			}
		}
		if err := exporter.Export(report, c.app.stdout, format); err != nil {
			return &CLIError{Code: ExitExportError, Message: fmt.Sprintf("Export failed: %v", err)}
		}
		return nil
	}

	if err := exporter.ExportToFile(report, c.Output, format); err != nil {
		return &CLIError{
			Code:    ExitExportError,
			Message: fmt.Sprintf("Export failed: %v", err),
			Details: map[string]interface{}{
				"output_file": c.Output,
				"format":      format,
			},
			Suggestions: []string{
				"Check output directory permissions",
				"Try different output format",
			},
		}
	}

	fmt.Fprintf(c.app.stdout, "Exported standings to: %s\n", c.Output)
	return nil
}

// exportFormat picks the flag value, then the output extension, then the configured default
func exportFormat(flagValue, output, configured string) journal.ExportFormat {
	if flagValue != "" {
		return journal.ExportFormat(strings.ToLower(flagValue))
	}
	switch strings.ToLower(filepath.Ext(output)) {
	case ".csv":
		return journal.FormatCSV
	case ".json":
		return journal.FormatJSON
	case ".txt":
		return journal.FormatText
	case ".xlsx":
		return journal.FormatXLSX
	}
	return journal.ExportFormat(configured)
}

func loadTournament(storage *data.FileStorage, path string, config data.InputConfig) (*data.Tournament, error) {
	tournament, err := storage.LoadTournament(path, config)
	if err == nil {
		return tournament, nil
	}

	if errors.Is(err, data.ErrTournamentNotFound) {
		return nil, &CLIError{
			Code:    ExitFileError,
			Message: fmt.Sprintf("Input file not found: %s", path),
			Details: map[string]interface{}{
				"file": path,
			},
			Suggestions: []string{
				"Check file path and name",
				"Use absolute path if needed",
			},
		}
	}

	details := map[string]interface{}{"file": path}
	var parseErrors data.ParseErrors
	if errors.As(err, &parseErrors) {
		rows := make([]string, 0, len(parseErrors))
		for _, parseErr := range parseErrors {
			rows = append(rows, parseErr.Error())
		}
		details["rows"] = rows
	}

	return nil, &CLIError{
		Code:    ExitValidationError,
		Message: fmt.Sprintf("Invalid tournament file: %v", err),
		Details: details,
		Suggestions: []string{
			"Validate the file with 'clubelo validate --input " + path + "'",
		},
	}
}

// HistoryCommand handles 'clubelo history'
type HistoryCommand struct {
	Player     string `long:"player" short:"p" description:"Only entries involving this player"`
	Tournament string `long:"tournament" short:"t" description:"Only entries of this tournament"`
	Limit      int    `long:"limit" short:"n" description:"Maximum number of entries" default:"20"`
	Offset     int    `long:"offset" description:"Skip this many matching entries"`
	Verify     bool   `long:"verify" description:"Check the hash chain of the journal"`
	Stats      bool   `long:"stats" description:"Show journal statistics"`
	Chart      string `long:"chart" description:"Render the player's rating chart to this PNG file"`

	app *application
}

// Execute implements the Command interface for HistoryCommand
func (c *HistoryCommand) Execute(args []string) error {
	if _, err := c.app.loadConfig(); err != nil {
		return err
	}

	j, err := c.app.openJournal()
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	switch {
	case c.Verify:
		return c.verify(j)
	case c.Stats:
		return c.statistics(j)
	case c.Chart != "":
		return c.chart(j)
	}
	return c.list(j)
}

func (c *HistoryCommand) verify(j *journal.HistoryJournal) error {
	if err := j.VerifyIntegrity(); err != nil {
		return &CLIError{
			Code:    ExitJournalError,
			Message: err.Error(),
			Details: map[string]interface{}{
				"journal": j.Path(),
			},
		}
	}
	fmt.Fprintf(c.app.stdout, "Journal %s is intact (%d entries)\n", j.Path(), j.Sequence())
	return nil
}

func (c *HistoryCommand) statistics(j *journal.HistoryJournal) error {
	stats, err := j.Statistics()
	if err != nil {
		return &CLIError{Code: ExitJournalError, Message: err.Error()}
	}
	if c.app.opts.JSON {
		return c.app.printJSON(stats)
	}

	w := c.app.stdout
	fmt.Fprintf(w, "Ledger: %s\n", stats.Ledger)
	fmt.Fprintf(w, "Entries: %d\n", stats.TotalEntries)
	for _, eventType := range []journal.EventType{
		journal.EventRatingUpdated, journal.EventMatchProcessed, journal.EventTournamentProcessed,
	} {
		fmt.Fprintf(w, "  %-22s %d\n", eventType, stats.EventCounts[eventType])
	}
	fmt.Fprintf(w, "Players: %d\n", stats.Players)
	fmt.Fprintf(w, "Tournaments: %d\n", stats.Tournaments)
	if stats.FirstEntry != nil && stats.LastEntry != nil {
		fmt.Fprintf(w, "Period: %s - %s\n",
			stats.FirstEntry.Format("2006-01-02 15:04"), stats.LastEntry.Format("2006-01-02 15:04"))
	}
	return nil
}

func (c *HistoryCommand) chart(j *journal.HistoryJournal) error {
	if c.Player == "" {
		return &CLIError{
			Code:        ExitValidationError,
			Message:     "--chart needs --player",
			Suggestions: []string{"clubelo history --player alice --chart alice.png"},
		}
	}

	history, err := j.PlayerHistory(c.Player)
	if err != nil {
		return &CLIError{Code: ExitJournalError, Message: err.Error()}
	}

	if dir := filepath.Dir(c.Chart); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &CLIError{Code: ExitExportError, Message: fmt.Sprintf("Failed to create chart directory: %v", err)}
		}
	}
	file, err := os.Create(c.Chart)
	if err != nil {
		return &CLIError{Code: ExitExportError, Message: fmt.Sprintf("Failed to create chart file: %v", err)}
	}

	renderErr := journal.RenderRatingChart(c.Player, history, file)
	if err := errors.Join(renderErr, file.Close()); err != nil {
		return &CLIError{Code: ExitExportError, Message: fmt.Sprintf("Failed to render chart: %v", err)}
	}

	fmt.Fprintf(c.app.stdout, "Rating chart for %s (%d matches) written to %s\n", c.Player, len(history), c.Chart)
	return nil
}

func (c *HistoryCommand) list(j *journal.HistoryJournal) error {
	result, err := j.Query(journal.QueryOptions{
		PlayerID:     c.Player,
		TournamentID: c.Tournament,
		Limit:        c.Limit,
		Offset:       c.Offset,
	})
	if err != nil {
		return &CLIError{Code: ExitJournalError, Message: err.Error()}
	}
	if c.app.opts.JSON {
		return c.app.printJSON(result)
	}

	w := c.app.stdout
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "No journal entries found")
		return nil
	}

	for _, entry := range result.Entries {
		fmt.Fprintf(w, "%6d  %s  %-20s  %-12s  %s\n",
			entry.Sequence,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.EventType,
			entry.TournamentID,
			describeEntry(entry))
	}
	if result.HasMore {
		fmt.Fprintf(w, "... %d of %d entries shown, use --offset for more\n", len(result.Entries), result.TotalCount)
	}
	return nil
}

func describeEntry(entry journal.Entry) string {
	switch {
	case entry.History != nil:
		h := entry.History
		return fmt.Sprintf("%s %d (%+d) vs %s (%d) %s",
			entry.PlayerID, h.Rating, h.Change, h.OpponentID, h.OpponentRating, h.Result)
	case entry.Match != nil:
		m := entry.Match
		return fmt.Sprintf("%s vs %s %s: %+d / %+d, %d points",
			m.PlayerID, m.OpponentID, m.Result,
			m.Outcome.PlayerRatingChange, m.Outcome.OpponentRatingChange, m.Outcome.PointsAwarded)
	case entry.Tournament != nil:
		return fmt.Sprintf("%d participants, %d matches", entry.Tournament.Participants, entry.Tournament.Matches)
	}
	return ""
}

// LeaderboardCommand handles 'clubelo leaderboard'
type LeaderboardCommand struct {
	Limit int `long:"limit" short:"n" description:"Number of players to show" default:"10"`

	app *application
}

// Execute implements the Command interface for LeaderboardCommand
func (c *LeaderboardCommand) Execute(args []string) error {
	if _, err := c.app.loadConfig(); err != nil {
		return err
	}

	ctx, cancel := c.app.context()
	defer cancel()

	service, cleanup, err := c.app.openService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	players, err := service.Leaderboard(ctx, c.Limit)
	if err != nil {
		return &CLIError{Code: ExitStoreError, Message: err.Error()}
	}
	if c.app.opts.JSON {
		return c.app.printJSON(players)
	}

	w := c.app.stdout
	if len(players) == 0 {
		fmt.Fprintln(w, "No rated players yet")
		return nil
	}

	fmt.Fprintf(w, "%-5s %-20s %7s %6s\n", "RANK", "PLAYER", "RATING", "GAMES")
	fmt.Fprintln(w, strings.Repeat("-", 41))
	for i, p := range players {
		name := p.PlayerID
		if len(name) > 20 {
			name = name[:17] + "..."
		}
		fmt.Fprintf(w, "%-5d %-20s %7d %6d\n", i+1, name, p.EloRating, p.GamesPlayed)
	}
	return nil
}

// ValidateCommand handles 'clubelo validate'
type ValidateCommand struct {
	Input     string `long:"input" short:"i" description:"Tournament file to validate" required:"true"`
	Normalize string `long:"normalize" description:"Write the parsed tournament to this yaml or json file"`

	app *application
}

// Execute implements the Command interface for ValidateCommand
func (c *ValidateCommand) Execute(args []string) error {
	config, err := c.app.loadConfig()
	if err != nil {
		return err
	}

	w := c.app.stdout
	fmt.Fprintf(w, "Validation Results for: %s\n", c.Input)
	fmt.Fprintf(w, "===========================================\n\n")

	tournament, err := loadTournament(c.app.storage, c.Input, config.Input)
	if err == nil {
		_, err = tournament.EngineParticipants()
		if err != nil {
			err = &CLIError{Code: ExitValidationError, Message: err.Error()}
		}
	}
	if err != nil {
		fmt.Fprintf(w, "INVALID: %v\n", err)
		var cliErr *CLIError
		if errors.As(err, &cliErr) {
			if rows, ok := cliErr.Details["rows"].([]string); ok {
				for _, row := range rows {
					fmt.Fprintf(w, "  - %s\n", row)
				}
			}
		}
		return err
	}

	fmt.Fprintf(w, "VALID tournament file\n\n")
	fmt.Fprintf(w, "Tournament: %s\n", tournament.ID)
	if tournament.Name != "" {
		fmt.Fprintf(w, "Name: %s\n", tournament.Name)
	}
	if len(tournament.Placements) > 0 {
		fmt.Fprintf(w, "Placements: %d players\n", len(tournament.Placements))
	} else {
		fmt.Fprintf(w, "Participants: %d\n", len(tournament.Participants))
	}
	fmt.Fprintf(w, "Matches: %d\n", tournament.MatchCount())

	if c.Normalize != "" {
		if err := c.app.storage.SaveTournament(tournament, c.Normalize); err != nil {
			return &CLIError{
				Code:    ExitFileError,
				Message: fmt.Sprintf("Failed to write normalized tournament: %v", err),
				Details: map[string]interface{}{
					"file": c.Normalize,
				},
			}
		}
		fmt.Fprintf(w, "\nNormalized tournament written to: %s\n", c.Normalize)
	}

	return nil
}

// InitCommand handles 'clubelo init'
type InitCommand struct {
	Output string `long:"output" short:"o" description:"Configuration file to create" default:"clubelo.yaml"`
	Force  bool   `long:"force" description:"Overwrite an existing file"`

	app *application
}

// Execute implements the Command interface for InitCommand
func (c *InitCommand) Execute(args []string) error {
	if _, err := os.Stat(c.Output); err == nil && !c.Force {
		return &CLIError{
			Code:        ExitFileError,
			Message:     fmt.Sprintf("Configuration file already exists: %s", c.Output),
			Suggestions: []string{"Use --force to overwrite it"},
		}
	}

	if err := data.CreateDefaultConfig(c.Output); err != nil {
		return &CLIError{Code: ExitFileError, Message: err.Error()}
	}

	fmt.Fprintf(c.app.stdout, "Default configuration written to: %s\n", c.Output)
	fmt.Fprintf(c.app.stdout, "Search path: %s\n", strings.Join(data.GetConfigSearchPaths(data.DefaultConfigFile), ", "))
	return nil
}
