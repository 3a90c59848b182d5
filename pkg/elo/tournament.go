package elo

import (
	"fmt"
)

// TournamentMatch is one match of a participant as recorded by the bracket
type TournamentMatch struct {
	OpponentID          string      `json:"opponent_id" yaml:"opponent_id"`
	OpponentRating      int         `json:"opponent_rating" yaml:"opponent_rating"`
	OpponentGamesPlayed int         `json:"opponent_games_played" yaml:"opponent_games_played"`
	Result              MatchResult `json:"result" yaml:"result"`
}

// TournamentParticipant is the batch input for one player
type TournamentParticipant struct {
	PlayerID      string            `json:"player_id" yaml:"player_id"`
	CurrentRating int               `json:"current_rating" yaml:"current_rating"`
	GamesPlayed   int               `json:"games_played" yaml:"games_played"`
	Matches       []TournamentMatch `json:"matches" yaml:"matches"`
}

// TournamentResult is the folded outcome for one participant
type TournamentResult struct {
	NewRating        int `json:"new_rating"`
	RatingChange     int `json:"rating_change"`
	TotalBonusPoints int `json:"total_bonus_points"`
}

// FoldParticipant processes a participant's matches in the given order.
// The running rating and games played carry forward from match to match,
// so reordering matches can change the final rating. Opponent ratings are
// used exactly as recorded in each match.
func (e *Engine) FoldParticipant(p TournamentParticipant) (TournamentResult, []CalculationResult, error) {
	currentRating := p.CurrentRating
	gamesPlayed := p.GamesPlayed
	totalChange := 0
	totalBonus := 0
	steps := make([]CalculationResult, 0, len(p.Matches))

	for i, match := range p.Matches {
		step, err := e.CalculateEloChangeWithExperience(CalculationParams{
			PlayerRating:   currentRating,
			OpponentRating: match.OpponentRating,
			PlayerResult:   match.Result,
		}, gamesPlayed, match.OpponentGamesPlayed)
		if err != nil {
			return TournamentResult{}, nil, fmt.Errorf("player %s match %d against %s: %w", p.PlayerID, i+1, match.OpponentID, err)
		}

		currentRating = step.NewPlayerRating
		gamesPlayed++
		totalChange += step.PlayerRatingChange
		totalBonus += step.PointsAwarded
		steps = append(steps, step)
	}

	return TournamentResult{
		NewRating:        currentRating,
		RatingChange:     totalChange,
		TotalBonusPoints: totalBonus,
	}, steps, nil
}

// CalculateTournamentEloChanges folds every participant independently.
// Participants do not see each other's updates within the batch.
func (e *Engine) CalculateTournamentEloChanges(participants []TournamentParticipant) (map[string]TournamentResult, error) {
	results := make(map[string]TournamentResult, len(participants))

	for _, p := range participants {
		result, _, err := e.FoldParticipant(p)
		if err != nil {
			return nil, err
		}
		results[p.PlayerID] = result
	}

	return results, nil
}

// CalculateTournamentEloChanges calls Default().CalculateTournamentEloChanges
func CalculateTournamentEloChanges(participants []TournamentParticipant) (map[string]TournamentResult, error) {
	return defaultEngine.CalculateTournamentEloChanges(participants)
}
