package data

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pashagolub/clubelo/pkg/elo"
)

// Validation errors for tournament input
var (
	ErrTournamentInvalid = errors.New("invalid tournament input")
	ErrDuplicatePlayer   = errors.New("duplicate player in tournament")
)

// MatchInput is one recorded match of a participant as read from input files.
// A zero opponent rating means the opponent has no rating yet.
type MatchInput struct {
	OpponentID          string `yaml:"opponent_id" json:"opponent_id"`
	OpponentRating      int    `yaml:"opponent_rating,omitempty" json:"opponent_rating,omitempty"`
	OpponentGamesPlayed int    `yaml:"opponent_games_played,omitempty" json:"opponent_games_played,omitempty"`
	Result              string `yaml:"result" json:"result"`
}

// ParticipantInput is a participant with the matches in the order they were played
type ParticipantInput struct {
	PlayerID      string       `yaml:"player_id" json:"player_id"`
	CurrentRating int          `yaml:"current_rating,omitempty" json:"current_rating,omitempty"`
	GamesPlayed   int          `yaml:"games_played,omitempty" json:"games_played,omitempty"`
	Matches       []MatchInput `yaml:"matches" json:"matches"`
}

// Tournament is a completed bracket or game night submitted for rating.
// Either Participants or Placements is set, never both.
type Tournament struct {
	ID           string             `yaml:"id" json:"id"`
	Name         string             `yaml:"name,omitempty" json:"name,omitempty"`
	PlayedAt     time.Time          `yaml:"played_at,omitempty" json:"played_at,omitempty"`
	Participants []ParticipantInput `yaml:"participants,omitempty" json:"participants,omitempty"`
	Placements   []elo.Placement    `yaml:"placements,omitempty" json:"placements,omitempty"`
}

// Validate checks the tournament for structural problems before any rating is computed
func (t *Tournament) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: tournament id is required", ErrTournamentInvalid)
	}

	if len(t.Participants) > 0 && len(t.Placements) > 0 {
		return fmt.Errorf("%w: use either participants or placements, not both", ErrTournamentInvalid)
	}

	if len(t.Participants) == 0 && len(t.Placements) == 0 {
		return fmt.Errorf("%w: tournament %s has no participants", ErrTournamentInvalid, t.ID)
	}

	seen := make(map[string]bool)
	for i, p := range t.Participants {
		if strings.TrimSpace(p.PlayerID) == "" {
			return fmt.Errorf("%w: participant %d has no player id", ErrTournamentInvalid, i+1)
		}
		if seen[p.PlayerID] {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.PlayerID)
		}
		seen[p.PlayerID] = true

		if p.CurrentRating < 0 || p.GamesPlayed < 0 {
			return fmt.Errorf("%w: player %s has a negative rating or games count", ErrTournamentInvalid, p.PlayerID)
		}

		for j, m := range p.Matches {
			if strings.TrimSpace(m.OpponentID) == "" {
				return fmt.Errorf("%w: player %s match %d has no opponent", ErrTournamentInvalid, p.PlayerID, j+1)
			}
			if m.OpponentID == p.PlayerID {
				return fmt.Errorf("%w: player %s cannot play against themselves", ErrTournamentInvalid, p.PlayerID)
			}
			if _, err := elo.ParseMatchResult(m.Result); err != nil {
				return fmt.Errorf("player %s match %d against %s: %w", p.PlayerID, j+1, m.OpponentID, err)
			}
		}
	}

	for _, p := range t.Placements {
		if strings.TrimSpace(p.PlayerID) == "" {
			return fmt.Errorf("%w: placement without player id", ErrTournamentInvalid)
		}
		if seen[p.PlayerID] {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.PlayerID)
		}
		seen[p.PlayerID] = true
	}

	return nil
}

// EngineParticipants converts the input into engine participants,
// filling missing ratings with the default rating.
func (t *Tournament) EngineParticipants() ([]elo.TournamentParticipant, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	defaultRating := elo.DefaultConfig().DefaultRating

	if len(t.Placements) > 0 {
		placements := make([]elo.Placement, len(t.Placements))
		for i, p := range t.Placements {
			if p.Rating == 0 {
				p.Rating = defaultRating
			}
			placements[i] = p
		}
		return elo.PlacementsToParticipants(placements)
	}

	participants := make([]elo.TournamentParticipant, 0, len(t.Participants))
	for _, p := range t.Participants {
		rating := p.CurrentRating
		if rating == 0 {
			rating = defaultRating
		}

		matches := make([]elo.TournamentMatch, 0, len(p.Matches))
		for _, m := range p.Matches {
			opponentRating := m.OpponentRating
			if opponentRating == 0 {
				opponentRating = defaultRating
			}
			matches = append(matches, elo.TournamentMatch{
				OpponentID:          m.OpponentID,
				OpponentRating:      opponentRating,
				OpponentGamesPlayed: m.OpponentGamesPlayed,
				Result:              elo.MatchResult(m.Result),
			})
		}

		participants = append(participants, elo.TournamentParticipant{
			PlayerID:      p.PlayerID,
			CurrentRating: rating,
			GamesPlayed:   p.GamesPlayed,
			Matches:       matches,
		})
	}

	return participants, nil
}

// MatchCount returns the number of match records across all participants.
// A match recorded by both sides counts twice; a finishing order of n players
// expands to n*(n-1) records.
func (t *Tournament) MatchCount() int {
	if len(t.Placements) > 0 {
		return 2 * elo.GetExpectedMatchCount(len(t.Placements))
	}
	total := 0
	for _, p := range t.Participants {
		total += len(p.Matches)
	}
	return total
}
