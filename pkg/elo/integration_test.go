package elo

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test data structures for the reference scenarios
type ScenarioFile struct {
	Description string          `json:"description"`
	Matches     []MatchScenario `json:"matches"`
	Bonus       []BonusScenario `json:"bonus"`
}

type MatchScenario struct {
	Description    string            `json:"description"`
	PlayerRating   int               `json:"player_rating"`
	OpponentRating int               `json:"opponent_rating"`
	Result         string            `json:"result"`
	PlayerGames    int               `json:"player_games"`
	OpponentGames  int               `json:"opponent_games"`
	Expected       CalculationResult `json:"expected"`
}

type BonusScenario struct {
	PlayerRating   int    `json:"player_rating"`
	OpponentRating int    `json:"opponent_rating"`
	Result         string `json:"result"`
	Points         int    `json:"points"`
}

func loadScenarios(t *testing.T) ScenarioFile {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join("testdata", "scenarios.json"))
	require.NoError(t, err, "Failed to read testdata/scenarios.json")

	var scenarios ScenarioFile
	require.NoError(t, json.Unmarshal(raw, &scenarios), "Failed to parse scenarios.json")
	require.NotEmpty(t, scenarios.Matches)

	return scenarios
}

func TestReferenceMatchScenarios(t *testing.T) {
	scenarios := loadScenarios(t)

	for _, sc := range scenarios.Matches {
		t.Run(sc.Description, func(t *testing.T) {
			result, err := ParseMatchResult(sc.Result)
			require.NoError(t, err)

			got, err := CalculateEloChangeWithExperience(CalculationParams{
				PlayerRating:   sc.PlayerRating,
				OpponentRating: sc.OpponentRating,
				PlayerResult:   result,
			}, sc.PlayerGames, sc.OpponentGames)
			require.NoError(t, err)

			assert.Equal(t, sc.Expected, got)
		})
	}
}

func TestReferenceBonusScenarios(t *testing.T) {
	scenarios := loadScenarios(t)

	for _, sc := range scenarios.Bonus {
		result, err := ParseMatchResult(sc.Result)
		require.NoError(t, err)

		points, err := BonusPoints(sc.PlayerRating, sc.OpponentRating, result)
		require.NoError(t, err)
		assert.Equal(t, sc.Points, points, "%d vs %d (%s)", sc.PlayerRating, sc.OpponentRating, sc.Result)
	}
}

// The result of a match seen from the other side must mirror the original call
func TestPerspectiveSwap(t *testing.T) {
	scenarios := loadScenarios(t)

	for _, sc := range scenarios.Matches {
		t.Run(sc.Description, func(t *testing.T) {
			result, err := ParseMatchResult(sc.Result)
			require.NoError(t, err)

			swapped, err := CalculateEloChangeWithExperience(CalculationParams{
				PlayerRating:   sc.OpponentRating,
				OpponentRating: sc.PlayerRating,
				PlayerResult:   result.Opposite(),
			}, sc.OpponentGames, sc.PlayerGames)
			require.NoError(t, err)

			assert.Equal(t, sc.Expected.NewOpponentRating, swapped.NewPlayerRating)
			assert.Equal(t, sc.Expected.NewPlayerRating, swapped.NewOpponentRating)
			assert.Equal(t, sc.Expected.OpponentRatingChange, swapped.PlayerRatingChange)
			assert.Equal(t, sc.Expected.PlayerRatingChange, swapped.OpponentRatingChange)
		})
	}
}
