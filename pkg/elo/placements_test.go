package elo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlacementsToParticipants(t *testing.T) {
	t.Run("three player finish", func(t *testing.T) {
		participants, err := PlacementsToParticipants([]Placement{
			{PlayerID: "third", Rating: 1100, GamesPlayed: 3, Position: 3},
			{PlayerID: "first", Rating: 1300, GamesPlayed: 40, Position: 1},
			{PlayerID: "second", Rating: 1200, GamesPlayed: 120, Position: 2},
		})
		require.NoError(t, err)
		require.Len(t, participants, 3)

		// Participants come back in finishing order
		assert.Equal(t, "first", participants[0].PlayerID)
		assert.Equal(t, "second", participants[1].PlayerID)
		assert.Equal(t, "third", participants[2].PlayerID)

		assert.Equal(t, []TournamentMatch{
			{OpponentID: "second", OpponentRating: 1200, OpponentGamesPlayed: 120, Result: Win},
			{OpponentID: "third", OpponentRating: 1100, OpponentGamesPlayed: 3, Result: Win},
		}, participants[0].Matches)

		assert.Equal(t, []TournamentMatch{
			{OpponentID: "first", OpponentRating: 1300, OpponentGamesPlayed: 40, Result: Loss},
			{OpponentID: "third", OpponentRating: 1100, OpponentGamesPlayed: 3, Result: Win},
		}, participants[1].Matches)

		assert.Equal(t, 1100, participants[2].CurrentRating)
		assert.Equal(t, 3, participants[2].GamesPlayed)
		for _, m := range participants[2].Matches {
			assert.Equal(t, Loss, m.Result)
		}
	})

	t.Run("shared position is a draw", func(t *testing.T) {
		participants, err := PlacementsToParticipants([]Placement{
			{PlayerID: "a", Rating: 1200, Position: 1},
			{PlayerID: "b", Rating: 1200, Position: 1},
		})
		require.NoError(t, err)

		assert.Equal(t, Draw, participants[0].Matches[0].Result)
		assert.Equal(t, Draw, participants[1].Matches[0].Result)
	})

	t.Run("match count", func(t *testing.T) {
		placements := []Placement{
			{PlayerID: "a", Position: 1}, {PlayerID: "b", Position: 2},
			{PlayerID: "c", Position: 3}, {PlayerID: "d", Position: 4},
		}
		participants, err := PlacementsToParticipants(placements)
		require.NoError(t, err)

		total := 0
		for _, p := range participants {
			total += len(p.Matches)
		}
		// every pairing shows up once per side
		assert.Equal(t, 2*GetExpectedMatchCount(len(placements)), total)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := PlacementsToParticipants([]Placement{{PlayerID: "solo", Position: 1}})
		assert.ErrorIs(t, err, ErrTooFewPlacements)

		_, err = PlacementsToParticipants([]Placement{{PlayerID: "a", Position: 1}, {PlayerID: "a", Position: 2}})
		assert.ErrorIs(t, err, ErrDuplicatePlayer)

		_, err = PlacementsToParticipants([]Placement{{PlayerID: "a", Position: 1}, {PlayerID: "b", Position: 0}})
		assert.ErrorIs(t, err, ErrInvalidPosition)
	})
}

func TestGetExpectedMatchCount(t *testing.T) {
	assert.Equal(t, 0, GetExpectedMatchCount(0))
	assert.Equal(t, 0, GetExpectedMatchCount(1))
	assert.Equal(t, 1, GetExpectedMatchCount(2))
	assert.Equal(t, 3, GetExpectedMatchCount(3))
	assert.Equal(t, 6, GetExpectedMatchCount(4))
}

func TestPlacementsFeedTheTournamentFold(t *testing.T) {
	participants, err := PlacementsToParticipants([]Placement{
		{PlayerID: "winner", Rating: 1200, GamesPlayed: 50, Position: 1},
		{PlayerID: "loser", Rating: 1200, GamesPlayed: 50, Position: 2},
	})
	require.NoError(t, err)

	results, err := CalculateTournamentEloChanges(participants)
	require.NoError(t, err)

	assert.Equal(t, 1210, results["winner"].NewRating)
	assert.Equal(t, 1190, results["loser"].NewRating)
}
