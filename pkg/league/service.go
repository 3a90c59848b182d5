// Package league applies match and tournament outcomes to stored player ratings.
// It is the caller-side glue around the rating engine: it reads the current
// records, runs the calculation, writes ratings, games played and history back
// in one repository update and mirrors every change into the history journal.
package league

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pashagolub/clubelo/pkg/elo"
	"github.com/pashagolub/clubelo/pkg/journal"
	"github.com/pashagolub/clubelo/pkg/store"
)

// Error types for league operations
var (
	ErrInvalidMatch      = errors.New("invalid match request")
	ErrInvalidTournament = errors.New("invalid tournament")
	ErrJournalAppend     = errors.New("ratings stored but journal append failed")
)

// Journal receives a copy of every applied change
type Journal interface {
	AppendRating(playerID string, history elo.HistoryEntry) error
	AppendMatch(tournamentID string, match journal.MatchSummary) error
	AppendTournament(tournamentID string, summary journal.TournamentSummary) error
}

// Service applies outcomes through a repository
type Service struct {
	repo    store.Repository
	engine  *elo.Engine
	journal Journal
	logger  *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithEngine replaces the default rating engine
func WithEngine(engine *elo.Engine) Option {
	return func(s *Service) { s.engine = engine }
}

// WithJournal mirrors applied changes into j
func WithJournal(j Journal) Option {
	return func(s *Service) { s.journal = j }
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a service over repo
func NewService(repo store.Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		engine: elo.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MatchRequest describes one completed match from the player's perspective
type MatchRequest struct {
	TournamentID string
	PlayerID     string
	OpponentID   string
	Result       string
	KFactor      *int // overrides the player's K-factor only
}

// MatchOutcome is the applied result of a match
type MatchOutcome struct {
	Result          elo.CalculationResult `json:"result"`
	PlayerHistory   elo.HistoryEntry      `json:"player_history"`
	OpponentHistory elo.HistoryEntry      `json:"opponent_history"`
}

func (r MatchRequest) validate() (elo.MatchResult, error) {
	if r.PlayerID == "" || r.OpponentID == "" {
		return "", fmt.Errorf("%w: player and opponent are required", ErrInvalidMatch)
	}
	if r.PlayerID == r.OpponentID {
		return "", fmt.Errorf("%w: player %s cannot play themselves", ErrInvalidMatch, r.PlayerID)
	}
	result, err := elo.ParseMatchResult(strings.ToLower(strings.TrimSpace(r.Result)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidMatch, err)
	}
	if r.KFactor != nil && *r.KFactor <= 0 {
		return "", fmt.Errorf("%w: K-factor must be positive, got %d", ErrInvalidMatch, *r.KFactor)
	}
	return result, nil
}

// ProcessMatch applies a single match to both players.
// Both records get the new rating, one more game and a history entry; the
// opponent's entry carries the opposite result. Nothing is written when the
// request is invalid.
func (s *Service) ProcessMatch(ctx context.Context, req MatchRequest) (*MatchOutcome, error) {
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	req.OpponentID = strings.TrimSpace(req.OpponentID)

	result, err := req.validate()
	if err != nil {
		return nil, err
	}

	var outcome MatchOutcome
	err = s.repo.Update(ctx, []string{req.PlayerID, req.OpponentID}, func(records map[string]*store.PlayerRecord) error {
		player, opponent := records[req.PlayerID], records[req.OpponentID]

		calc, err := s.engine.CalculateEloChangeWithExperience(elo.CalculationParams{
			PlayerRating:   player.EloRating,
			OpponentRating: opponent.EloRating,
			PlayerResult:   result,
			KFactor:        req.KFactor,
		}, player.GamesPlayed, opponent.GamesPlayed)
		if err != nil {
			return err
		}

		playerEntry := s.engine.CreateEloHistoryEntry(calc.NewPlayerRating, calc.PlayerRatingChange,
			opponent.PlayerID, opponent.EloRating, req.TournamentID, result)
		opponentEntry := s.engine.CreateEloHistoryEntry(calc.NewOpponentRating, calc.OpponentRatingChange,
			player.PlayerID, player.EloRating, req.TournamentID, result.Opposite())

		player.EloRating = calc.NewPlayerRating
		player.GamesPlayed++
		player.EloHistory = append(player.EloHistory, playerEntry)

		opponent.EloRating = calc.NewOpponentRating
		opponent.GamesPlayed++
		opponent.EloHistory = append(opponent.EloHistory, opponentEntry)

		outcome = MatchOutcome{Result: calc, PlayerHistory: playerEntry, OpponentHistory: opponentEntry}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to apply match",
			slog.String("player_id", req.PlayerID),
			slog.String("opponent_id", req.OpponentID),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to apply match: %w", err)
	}

	s.logger.InfoContext(ctx, "Match applied",
		slog.String("tournament_id", req.TournamentID),
		slog.String("player_id", req.PlayerID),
		slog.String("opponent_id", req.OpponentID),
		slog.String("result", string(result)),
		slog.Int("player_change", outcome.Result.PlayerRatingChange),
		slog.Int("opponent_change", outcome.Result.OpponentRatingChange),
		slog.Int("points_awarded", outcome.Result.PointsAwarded))

	if s.journal != nil {
		err := errors.Join(
			s.journal.AppendMatch(req.TournamentID, journal.MatchSummary{
				PlayerID:   req.PlayerID,
				OpponentID: req.OpponentID,
				Result:     result,
				Outcome:    outcome.Result,
			}),
			s.journal.AppendRating(req.PlayerID, outcome.PlayerHistory),
			s.journal.AppendRating(req.OpponentID, outcome.OpponentHistory),
		)
		if err != nil {
			return &outcome, s.journalFailed(ctx, req.TournamentID, err)
		}
	}

	return &outcome, nil
}

// Outcome is the applied result of a tournament
type Outcome struct {
	TournamentID string                          `json:"tournament_id"`
	Participants []elo.TournamentParticipant     `json:"participants"` // with ratings as used by the fold
	Results      map[string]elo.TournamentResult `json:"results"`
	History      map[string][]elo.HistoryEntry   `json:"history"`
}

// MatchCount returns the number of match records folded into the outcome,
// counted per participant side like data.Tournament.MatchCount
func (o *Outcome) MatchCount() int {
	count := 0
	for _, p := range o.Participants {
		count += len(p.Matches)
	}
	return count
}

func validateParticipants(participants []elo.TournamentParticipant) ([]string, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrInvalidTournament)
	}

	ids := make([]string, 0, len(participants))
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if strings.TrimSpace(p.PlayerID) == "" {
			return nil, fmt.Errorf("%w: participant without player id", ErrInvalidTournament)
		}
		if strings.TrimSpace(p.PlayerID) != p.PlayerID {
			return nil, fmt.Errorf("%w: player id %q has surrounding whitespace", ErrInvalidTournament, p.PlayerID)
		}
		if seen[p.PlayerID] {
			return nil, fmt.Errorf("%w: duplicate participant %s", ErrInvalidTournament, p.PlayerID)
		}
		seen[p.PlayerID] = true
		ids = append(ids, p.PlayerID)

		for i, m := range p.Matches {
			if !m.Result.Valid() {
				return nil, fmt.Errorf("%w: player %s match %d against %s: %w",
					ErrInvalidTournament, p.PlayerID, i+1, m.OpponentID, elo.ErrInvalidResult)
			}
		}
	}
	return ids, nil
}

// ProcessTournament folds every participant's matches and stores the results.
// Ratings and games played already in the store take precedence over the
// values carried by the input; opponent ratings are used as recorded.
// Each participant gets one history entry per match.
func (s *Service) ProcessTournament(ctx context.Context, tournamentID string, participants []elo.TournamentParticipant) (*Outcome, error) {
	ids, err := validateParticipants(participants)
	if err != nil {
		return nil, err
	}

	var outcome *Outcome
	err = s.repo.Update(ctx, ids, func(records map[string]*store.PlayerRecord) error {
		attempt := &Outcome{
			TournamentID: tournamentID,
			Participants: make([]elo.TournamentParticipant, 0, len(participants)),
			Results:      make(map[string]elo.TournamentResult, len(participants)),
			History:      make(map[string][]elo.HistoryEntry, len(participants)),
		}

		for _, p := range participants {
			rec := records[p.PlayerID]
			if rec.Stored() {
				p.CurrentRating = rec.EloRating
				p.GamesPlayed = rec.GamesPlayed
			}

			result, steps, err := s.engine.FoldParticipant(p)
			if err != nil {
				return err
			}

			entries := make([]elo.HistoryEntry, 0, len(steps))
			for i, step := range steps {
				m := p.Matches[i]
				entries = append(entries, s.engine.CreateEloHistoryEntry(step.NewPlayerRating, step.PlayerRatingChange,
					m.OpponentID, m.OpponentRating, tournamentID, m.Result))
			}

			rec.EloRating = result.NewRating
			rec.GamesPlayed = p.GamesPlayed + len(p.Matches)
			rec.EloHistory = append(rec.EloHistory, entries...)

			attempt.Participants = append(attempt.Participants, p)
			attempt.Results[p.PlayerID] = result
			attempt.History[p.PlayerID] = entries
		}

		outcome = attempt
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to apply tournament",
			slog.String("tournament_id", tournamentID),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to apply tournament %s: %w", tournamentID, err)
	}

	s.logger.InfoContext(ctx, "Tournament applied",
		slog.String("tournament_id", tournamentID),
		slog.Int("participants", len(outcome.Participants)),
		slog.Int("matches", outcome.MatchCount()))

	if s.journal != nil {
		var errs []error
		for _, p := range outcome.Participants {
			for _, entry := range outcome.History[p.PlayerID] {
				errs = append(errs, s.journal.AppendRating(p.PlayerID, entry))
			}
		}
		errs = append(errs, s.journal.AppendTournament(tournamentID, journal.TournamentSummary{
			Participants: len(outcome.Participants),
			Matches:      outcome.MatchCount(),
			Results:      outcome.Results,
		}))
		if err := errors.Join(errs...); err != nil {
			return outcome, s.journalFailed(ctx, tournamentID, err)
		}
	}

	return outcome, nil
}

func (s *Service) journalFailed(ctx context.Context, tournamentID string, err error) error {
	s.logger.ErrorContext(ctx, "Journal append failed after ratings were stored",
		slog.String("tournament_id", tournamentID),
		slog.Any("error", err))
	return fmt.Errorf("%w: %w", ErrJournalAppend, err)
}

// Leaderboard returns the top stored players
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]store.PlayerRecord, error) {
	return s.repo.Leaderboard(ctx, limit)
}

// Players returns the stored records of ids, defaulting unknown players
func (s *Service) Players(ctx context.Context, ids ...string) (map[string]store.PlayerRecord, error) {
	return s.repo.Get(ctx, ids...)
}
