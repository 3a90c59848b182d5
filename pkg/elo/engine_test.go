package elo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Floating point comparison tolerance
const tolerance = 0.0001

func intPtr(v int) *int {
	return &v
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 1200, config.DefaultRating)
	assert.Equal(t, 100, config.MinRating)
	assert.Equal(t, 3000, config.MaxRating)
	assert.Equal(t, 40, config.KFactorNew)
	assert.Equal(t, 20, config.KFactorActive)
	assert.Equal(t, 10, config.KFactorExpert)
	assert.Equal(t, 15, config.MinWinBonus)
	assert.Equal(t, 150, config.MaxWinBonus)
	assert.Equal(t, UpsetMultipliers{3.0, 2.5, 2.0, 1.5, 1.0, 0.8}, config.Multipliers)
	require.NoError(t, config.Validate())

	t.Run("copies cannot change the engine table", func(t *testing.T) {
		changed := DefaultConfig()
		changed.MaxRating = 10
		changed.Multipliers.Massive = 99

		engine := NewEngine()
		assert.Equal(t, 3000, engine.Config().MaxRating)
		assert.Equal(t, 3.0, engine.Config().Multipliers.Massive)
		assert.Equal(t, 3000, DefaultConfig().MaxRating)
	})
}

func TestDefaultEngine(t *testing.T) {
	require.NotNil(t, Default())
	assert.Same(t, Default(), Default(), "one process-wide engine")
	assert.Equal(t, DefaultConfig(), Default().Config())

	changed := Default().Config()
	changed.KFactorNew = 99
	assert.Equal(t, 40, Default().KFactor(0, 1200))
	assert.Equal(t, 40, KFactor(0, 1200))
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"inverted rating bounds", func(c *Config) { c.MinRating, c.MaxRating = 3000, 100 }},
		{"default rating outside bounds", func(c *Config) { c.DefaultRating = 50 }},
		{"zero scale", func(c *Config) { c.Scale = 0 }},
		{"zero k-factor", func(c *Config) { c.KFactorExpert = 0 }},
		{"experience thresholds inverted", func(c *Config) { c.NewPlayerGames = 200 }},
		{"extreme ratings inverted", func(c *Config) { c.ExtremeLow = 2500 }},
		{"win bonus bounds inverted", func(c *Config) { c.MinWinBonus = 200 }},
		{"multipliers increase", func(c *Config) { c.Multipliers.Expected = 1.1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.mutate(&config)

			err := config.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestParseMatchResult(t *testing.T) {
	for _, raw := range []string{"win", "loss", "draw"} {
		result, err := ParseMatchResult(raw)
		require.NoError(t, err)
		assert.Equal(t, MatchResult(raw), result)
	}

	for _, raw := range []string{"", "WIN", "forfeit", "tie"} {
		_, err := ParseMatchResult(raw)
		assert.ErrorIs(t, err, ErrInvalidResult, raw)
	}
}

func TestMatchResultScoreAndOpposite(t *testing.T) {
	testCases := []struct {
		result   MatchResult
		score    float64
		opposite MatchResult
	}{
		{Win, 1.0, Loss},
		{Draw, 0.5, Draw},
		{Loss, 0.0, Win},
	}

	for _, tc := range testCases {
		t.Run(string(tc.result), func(t *testing.T) {
			score, err := tc.result.Score()
			require.NoError(t, err)
			assert.Equal(t, tc.score, score)
			assert.Equal(t, tc.opposite, tc.result.Opposite())
		})
	}

	_, err := MatchResult("bye").Score()
	assert.ErrorIs(t, err, ErrInvalidResult)
}

func TestExpectedScore(t *testing.T) {
	testCases := []struct {
		name     string
		player   int
		opponent int
		expected float64
	}{
		{"equal ratings", 1200, 1200, 0.5},
		{"player higher by 400", 1600, 1200, 0.9090909090909091},
		{"player lower by 400", 800, 1200, 0.09090909090909091},
		{"player higher by 200", 1400, 1200, 0.7597469733656174},
		{"player lower by 200", 1000, 1200, 0.24025302663438258},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ExpectedScore(tc.player, tc.opponent)
			assert.InDelta(t, tc.expected, result, tolerance)

			// E_A + E_B should equal 1.0
			assert.InDelta(t, 1.0, result+ExpectedScore(tc.opponent, tc.player), 1e-12)
		})
	}
}

func TestKFactor(t *testing.T) {
	testCases := []struct {
		name   string
		games  int
		rating int
		want   int
	}{
		{"new player", 10, 1200, 40},
		{"last provisional game", 29, 1200, 40},
		{"new player with extreme rating", 10, 2500, 40},
		{"first active game", 30, 1200, 20},
		{"active player", 50, 1200, 20},
		{"last active game", 99, 1200, 20},
		{"first expert game", 100, 1200, 10},
		{"expert", 150, 1200, 10},
		{"expert above 2000", 150, 2100, 20},
		{"expert exactly 2000", 150, 2000, 10},
		{"expert below 800", 150, 700, 20},
		{"expert exactly 800", 150, 800, 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KFactor(tc.games, tc.rating))
		})
	}
}

func TestBonusPoints(t *testing.T) {
	testCases := []struct {
		name     string
		player   int
		opponent int
		result   MatchResult
		want     int
	}{
		{"even win clamps up to minimum", 1200, 1200, Win, 15},
		{"minor upset", 1200, 1300, Win, 15},
		{"between minor and moderate", 1200, 1350, Win, 15},
		{"moderate upset", 1200, 1400, Win, 20},
		{"major upset", 1200, 1500, Win, 25},
		{"massive upset", 1000, 1400, Win, 30},
		{"huge gap stays at massive", 100, 3000, Win, 30},
		{"slightly favored counts as even", 1300, 1200, Win, 15},
		{"expected win", 1400, 1200, Win, 15},
		{"draw", 1200, 1200, Draw, 12},
		{"draw against much stronger", 1000, 1600, Draw, 12},
		{"loss", 1200, 1200, Loss, 10},
		{"loss against much stronger", 1000, 1400, Loss, 10},
		{"loss against much weaker", 1400, 1000, Loss, 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			points, err := BonusPoints(tc.player, tc.opponent, tc.result)
			require.NoError(t, err)
			assert.Equal(t, tc.want, points)
		})
	}

	t.Run("invalid result", func(t *testing.T) {
		_, err := BonusPoints(1200, 1200, MatchResult("forfeit"))
		assert.ErrorIs(t, err, ErrInvalidResult)
	})
}

// Loss payouts skip the clamp that wins get. This pins the current behavior.
func TestLossPayoutBypassesWinClamp(t *testing.T) {
	config := DefaultConfig()

	for _, gap := range []int{-1000, -400, -100, 0, 100, 400, 1000} {
		points, err := BonusPoints(1500, 1500+gap, Loss)
		require.NoError(t, err)
		assert.Equal(t, config.BaseBonus, points)
		assert.Less(t, points, config.MinWinBonus, "loss payout must stay below the win floor")
	}
}

func TestUpsetMultiplierThresholds(t *testing.T) {
	engine := NewEngine()

	testCases := []struct {
		diff int
		want float64
	}{
		{1000, 3.0}, {400, 3.0}, {399, 2.5}, {300, 2.5}, {299, 2.0},
		{200, 2.0}, {199, 1.5}, {100, 1.5}, {99, 1.0}, {0, 1.0},
		{-100, 1.0}, {-101, 0.8}, {-1000, 0.8},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, engine.upsetMultiplier(tc.diff), "difference %d", tc.diff)
	}
}

func TestCalculateEloChange(t *testing.T) {
	t.Run("equal ratings, player wins", func(t *testing.T) {
		result, err := CalculateEloChangeWithExperience(CalculationParams{
			PlayerRating:   1200,
			OpponentRating: 1200,
			PlayerResult:   Win,
		}, 50, 50)
		require.NoError(t, err)

		assert.Equal(t, CalculationResult{
			NewPlayerRating:      1210,
			NewOpponentRating:    1190,
			PlayerRatingChange:   10,
			OpponentRatingChange: -10,
			PointsAwarded:        15,
		}, result)
	})

	t.Run("default experience matches explicit 50 games", func(t *testing.T) {
		params := CalculationParams{PlayerRating: 1350, OpponentRating: 1180, PlayerResult: Loss}

		implicit, err := CalculateEloChange(params)
		require.NoError(t, err)
		explicit, err := CalculateEloChangeWithExperience(params, 50, 50)
		require.NoError(t, err)

		assert.Equal(t, explicit, implicit)
	})

	t.Run("underdog beats favorite", func(t *testing.T) {
		result, err := CalculateEloChangeWithExperience(CalculationParams{
			PlayerRating:   1000,
			OpponentRating: 1400,
			PlayerResult:   Win,
		}, 50, 50)
		require.NoError(t, err)

		assert.Equal(t, 18, result.PlayerRatingChange)
		assert.Equal(t, -18, result.OpponentRatingChange)
		assert.Equal(t, 1018, result.NewPlayerRating)
		assert.Equal(t, 1382, result.NewOpponentRating)
		assert.Equal(t, 30, result.PointsAwarded)
	})

	t.Run("draw between equals changes nothing", func(t *testing.T) {
		result, err := CalculateEloChange(CalculationParams{PlayerRating: 1500, OpponentRating: 1500, PlayerResult: Draw})
		require.NoError(t, err)

		assert.Equal(t, 0, result.PlayerRatingChange)
		assert.Equal(t, 0, result.OpponentRatingChange)
		assert.Equal(t, 12, result.PointsAwarded)
	})

	t.Run("each side uses its own k-factor", func(t *testing.T) {
		result, err := CalculateEloChangeWithExperience(CalculationParams{
			PlayerRating:   1200,
			OpponentRating: 1200,
			PlayerResult:   Win,
		}, 10, 150)
		require.NoError(t, err)

		assert.Equal(t, 20, result.PlayerRatingChange)
		assert.Equal(t, -5, result.OpponentRatingChange)
	})

	t.Run("k-factor override applies to the player only", func(t *testing.T) {
		result, err := CalculateEloChangeWithExperience(CalculationParams{
			PlayerRating:   1200,
			OpponentRating: 1200,
			PlayerResult:   Win,
			KFactor:        intPtr(32),
		}, 50, 50)
		require.NoError(t, err)

		assert.Equal(t, 16, result.PlayerRatingChange)
		assert.Equal(t, -10, result.OpponentRatingChange)
	})

	t.Run("already out of bounds rating is clamped on output", func(t *testing.T) {
		result, err := CalculateEloChange(CalculationParams{
			PlayerRating:   95,
			OpponentRating: 1200,
			PlayerResult:   Loss,
		})
		require.NoError(t, err)

		assert.Equal(t, 100, result.NewPlayerRating)
		assert.Equal(t, 1200, result.NewOpponentRating)
	})

	t.Run("upper bound enforcement", func(t *testing.T) {
		result, err := CalculateEloChange(CalculationParams{
			PlayerRating:   2995,
			OpponentRating: 2995,
			PlayerResult:   Win,
		})
		require.NoError(t, err)

		assert.Equal(t, 10, result.PlayerRatingChange)
		assert.Equal(t, 3000, result.NewPlayerRating)
		assert.Equal(t, 2985, result.NewOpponentRating)
	})

	t.Run("invalid result fails before any computation", func(t *testing.T) {
		_, err := CalculateEloChange(CalculationParams{PlayerRating: 1200, OpponentRating: 1200, PlayerResult: "forfeit"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidResult))
	})
}

func TestRoundHalfUp(t *testing.T) {
	testCases := []struct {
		in   float64
		want int
	}{
		{2.5, 3},
		{-2.5, -2},
		{18.18, 18},
		{-18.18, -18},
		{0.4, 0},
		{-0.4, 0},
		{-0.5, 0},
		{11.999, 12},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, roundHalfUp(tc.in), "round(%v)", tc.in)
	}
}
