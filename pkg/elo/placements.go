package elo

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// Additional error types for finishing-order input
var (
	ErrTooFewPlacements = errors.New("a finishing order needs at least 2 players")
	ErrDuplicatePlayer  = errors.New("player appears multiple times")
	ErrInvalidPosition  = errors.New("finishing position must be positive")
)

// Placement is one player's finish in a free-for-all game.
// Equal positions mean a shared finish.
type Placement struct {
	PlayerID    string `json:"player_id" yaml:"player_id"`
	Rating      int    `json:"rating" yaml:"rating"`
	GamesPlayed int    `json:"games_played" yaml:"games_played"`
	Position    int    `json:"position" yaml:"position"`
}

// PlacementsToParticipants expands a finishing order into pairwise matches.
// Every player beats everyone who finished below them, loses to everyone above
// and draws with anyone sharing their position. Opponents appear in finishing order.
func PlacementsToParticipants(placements []Placement) ([]TournamentParticipant, error) {
	if len(placements) < 2 {
		return nil, ErrTooFewPlacements
	}

	seen := make(map[string]bool, len(placements))
	for _, p := range placements {
		if seen[p.PlayerID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.PlayerID)
		}
		seen[p.PlayerID] = true

		if p.Position <= 0 {
			return nil, fmt.Errorf("%w: player %s has position %d", ErrInvalidPosition, p.PlayerID, p.Position)
		}
	}

	ordered := slices.Clone(placements)
	slices.SortStableFunc(ordered, func(a, b Placement) int {
		return cmp.Compare(a.Position, b.Position)
	})

	participants := make([]TournamentParticipant, 0, len(ordered))
	for _, player := range ordered {
		matches := make([]TournamentMatch, 0, len(ordered)-1)

		for _, opponent := range ordered {
			if opponent.PlayerID == player.PlayerID {
				continue
			}
			matches = append(matches, TournamentMatch{
				OpponentID:          opponent.PlayerID,
				OpponentRating:      opponent.Rating,
				OpponentGamesPlayed: opponent.GamesPlayed,
				Result:              placementResult(player.Position, opponent.Position),
			})
		}

		participants = append(participants, TournamentParticipant{
			PlayerID:      player.PlayerID,
			CurrentRating: player.Rating,
			GamesPlayed:   player.GamesPlayed,
			Matches:       matches,
		})
	}

	return participants, nil
}

// placementResult compares finishing positions, lower is better
func placementResult(player, opponent int) MatchResult {
	switch {
	case player < opponent:
		return Win
	case player > opponent:
		return Loss
	default:
		return Draw
	}
}

// GetExpectedMatchCount returns the number of pairwise matches in a finishing order
func GetExpectedMatchCount(playerCount int) int {
	if playerCount < 2 {
		return 0
	}
	return playerCount * (playerCount - 1) / 2
}
