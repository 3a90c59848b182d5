// Package elo provides the club's Elo rating and bonus-points calculations.
// It implements the standard logistic Elo model with experience-tiered K-factors,
// upset multipliers for bonus points and a per-participant tournament fold.
// Every function is a pure computation over its inputs; persistence is the caller's job.
package elo

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Error types for validation
var (
	ErrInvalidResult = errors.New("match result must be one of win, loss, draw")
	ErrInvalidConfig = errors.New("invalid rating configuration")
)

// DefaultGamesPlayed is the experience assumed for a side whose games played is unknown.
const DefaultGamesPlayed = 50

// MatchResult is the outcome of a match from one player's perspective
type MatchResult string

// Supported match results
const (
	Win  MatchResult = "win"
	Loss MatchResult = "loss"
	Draw MatchResult = "draw"
)

// ParseMatchResult converts a raw value into a MatchResult
func ParseMatchResult(s string) (MatchResult, error) {
	r := MatchResult(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: got %q", ErrInvalidResult, s)
	}
	return r, nil
}

// Valid reports whether r is one of win, loss or draw
func (r MatchResult) Valid() bool {
	switch r {
	case Win, Loss, Draw:
		return true
	}
	return false
}

// Score maps the result to the actual score used by the Elo formula
func (r MatchResult) Score() (float64, error) {
	switch r {
	case Win:
		return 1.0, nil
	case Draw:
		return 0.5, nil
	case Loss:
		return 0.0, nil
	}
	return 0, fmt.Errorf("%w: got %q", ErrInvalidResult, string(r))
}

// Opposite returns the same match seen from the opponent's side
func (r MatchResult) Opposite() MatchResult {
	switch r {
	case Win:
		return Loss
	case Loss:
		return Win
	}
	return r
}

// UpsetMultipliers scale the base bonus of a win by how unlikely it was.
// Thresholds are rating differences (opponent minus player).
type UpsetMultipliers struct {
	Massive  float64 // difference >= 400
	Major    float64 // difference >= 300
	Moderate float64 // difference >= 200
	Minor    float64 // difference >= 100
	Even     float64 // difference >= -100
	Expected float64 // player was already favored
}

// Config is the rating constants table
type Config struct {
	DefaultRating int // Rating for players without history
	MinRating     int // Lower clamp for every computed rating
	MaxRating     int // Upper clamp for every computed rating
	Scale         float64

	KFactorNew    int // Fewer than NewPlayerGames games
	KFactorActive int // Between NewPlayerGames and ExpertGames
	KFactorExpert int // ExpertGames or more with a non-extreme rating

	NewPlayerGames int
	ExpertGames    int
	ExtremeHigh    int // Experts above this keep KFactorActive
	ExtremeLow     int // Experts below this keep KFactorActive

	BaseBonus      int
	DrawMultiplier float64
	MinWinBonus    int
	MaxWinBonus    int
	Multipliers    UpsetMultipliers
}

var defaultConfig = Config{
	DefaultRating: 1200,
	MinRating:     100,
	MaxRating:     3000,
	Scale:         400,

	KFactorNew:    40,
	KFactorActive: 20,
	KFactorExpert: 10,

	NewPlayerGames: 30,
	ExpertGames:    100,
	ExtremeHigh:    2000,
	ExtremeLow:     800,

	BaseBonus:      10,
	DrawMultiplier: 1.2,
	MinWinBonus:    15,
	MaxWinBonus:    150,
	Multipliers: UpsetMultipliers{
		Massive:  3.0,
		Major:    2.5,
		Moderate: 2.0,
		Minor:    1.5,
		Even:     1.0,
		Expected: 0.8,
	},
}

// DefaultConfig returns a copy of the rating constants table
func DefaultConfig() Config {
	return defaultConfig
}

// Validate checks the internal consistency of the constants table
func (c Config) Validate() error {
	if c.MinRating >= c.MaxRating {
		return fmt.Errorf("%w: min rating %d must be below max rating %d", ErrInvalidConfig, c.MinRating, c.MaxRating)
	}
	if c.DefaultRating < c.MinRating || c.DefaultRating > c.MaxRating {
		return fmt.Errorf("%w: default rating %d outside [%d, %d]", ErrInvalidConfig, c.DefaultRating, c.MinRating, c.MaxRating)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("%w: scale must be positive", ErrInvalidConfig)
	}
	if c.KFactorNew <= 0 || c.KFactorActive <= 0 || c.KFactorExpert <= 0 {
		return fmt.Errorf("%w: k-factors must be positive", ErrInvalidConfig)
	}
	if c.NewPlayerGames >= c.ExpertGames {
		return fmt.Errorf("%w: new player threshold %d must be below expert threshold %d", ErrInvalidConfig, c.NewPlayerGames, c.ExpertGames)
	}
	if c.ExtremeLow >= c.ExtremeHigh {
		return fmt.Errorf("%w: extreme low %d must be below extreme high %d", ErrInvalidConfig, c.ExtremeLow, c.ExtremeHigh)
	}
	if c.MinWinBonus > c.MaxWinBonus {
		return fmt.Errorf("%w: win bonus bounds [%d, %d] are inverted", ErrInvalidConfig, c.MinWinBonus, c.MaxWinBonus)
	}
	m := c.Multipliers
	ordered := []float64{m.Massive, m.Major, m.Moderate, m.Minor, m.Even, m.Expected}
	for i := 1; i < len(ordered); i++ {
		if ordered[i] > ordered[i-1] {
			return fmt.Errorf("%w: upset multipliers must not increase as the upset shrinks", ErrInvalidConfig)
		}
	}
	return nil
}

// CalculationParams describes a single match from the player's perspective
type CalculationParams struct {
	PlayerRating   int
	OpponentRating int
	PlayerResult   MatchResult
	KFactor        *int // nil derives the player's K-factor from experience
}

// CalculationResult holds both sides' rating updates for a single match
type CalculationResult struct {
	NewPlayerRating      int `json:"new_player_rating"`
	NewOpponentRating    int `json:"new_opponent_rating"`
	PlayerRatingChange   int `json:"player_rating_change"`
	OpponentRatingChange int `json:"opponent_rating_change"`
	PointsAwarded        int `json:"points_awarded"`
}

// Engine computes rating updates against an immutable constants table
type Engine struct {
	config Config
	now    func() time.Time
}

var defaultEngine = NewEngine()

// Default returns the process-wide engine used by the package-level functions
func Default() *Engine {
	return defaultEngine
}

// NewEngine creates an engine over the default constants table
func NewEngine() *Engine {
	return &Engine{
		config: defaultConfig,
		now:    time.Now,
	}
}

// Config returns a copy of the engine's constants table
func (e *Engine) Config() Config {
	return e.config
}

// ExpectedScore computes the logistic expectation of player against opponent
func (e *Engine) ExpectedScore(playerRating, opponentRating int) float64 {
	return 1.0 / (1.0 + math.Pow(10.0, float64(opponentRating-playerRating)/e.config.Scale))
}

// KFactor selects the sensitivity for a player with the given experience and rating
func (e *Engine) KFactor(gamesPlayed, currentRating int) int {
	switch {
	case gamesPlayed < e.config.NewPlayerGames:
		return e.config.KFactorNew
	case gamesPlayed < e.config.ExpertGames:
		return e.config.KFactorActive
	case currentRating > e.config.ExtremeHigh || currentRating < e.config.ExtremeLow:
		return e.config.KFactorActive
	default:
		return e.config.KFactorExpert
	}
}

// upsetMultiplier picks the multiplier for a win, highest difference first
func (e *Engine) upsetMultiplier(ratingDifference int) float64 {
	m := e.config.Multipliers
	switch {
	case ratingDifference >= 400:
		return m.Massive
	case ratingDifference >= 300:
		return m.Major
	case ratingDifference >= 200:
		return m.Moderate
	case ratingDifference >= 100:
		return m.Minor
	case ratingDifference >= -100:
		return m.Even
	default:
		return m.Expected
	}
}

// BonusPoints awards participation points for a match.
// Losses always pay the flat base amount and skip the clamp; only wins are
// clamped to [MinWinBonus, MaxWinBonus].
func (e *Engine) BonusPoints(playerRating, opponentRating int, result MatchResult) (int, error) {
	base := float64(e.config.BaseBonus)

	switch result {
	case Loss:
		return e.config.BaseBonus, nil
	case Draw:
		return roundHalfUp(base * e.config.DrawMultiplier), nil
	case Win:
		points := roundHalfUp(base * e.upsetMultiplier(opponentRating-playerRating))
		return clamp(points, e.config.MinWinBonus, e.config.MaxWinBonus), nil
	}
	return 0, fmt.Errorf("%w: got %q", ErrInvalidResult, string(result))
}

// CalculateEloChange updates both ratings assuming DefaultGamesPlayed for each side
func (e *Engine) CalculateEloChange(params CalculationParams) (CalculationResult, error) {
	return e.CalculateEloChangeWithExperience(params, DefaultGamesPlayed, DefaultGamesPlayed)
}

// CalculateEloChangeWithExperience updates both ratings for a single match.
// Each side uses its own K-factor, so the two changes need not cancel out.
func (e *Engine) CalculateEloChangeWithExperience(params CalculationParams, playerGamesPlayed, opponentGamesPlayed int) (CalculationResult, error) {
	actual, err := params.PlayerResult.Score()
	if err != nil {
		return CalculationResult{}, err
	}

	playerK := e.KFactor(playerGamesPlayed, params.PlayerRating)
	if params.KFactor != nil {
		playerK = *params.KFactor
	}
	opponentK := e.KFactor(opponentGamesPlayed, params.OpponentRating)

	playerExpected := e.ExpectedScore(params.PlayerRating, params.OpponentRating)
	opponentExpected := e.ExpectedScore(params.OpponentRating, params.PlayerRating)

	playerChange := roundHalfUp(float64(playerK) * (actual - playerExpected))
	opponentChange := roundHalfUp(float64(opponentK) * ((1 - actual) - opponentExpected))

	points, err := e.BonusPoints(params.PlayerRating, params.OpponentRating, params.PlayerResult)
	if err != nil {
		return CalculationResult{}, err
	}

	return CalculationResult{
		NewPlayerRating:      e.clampRating(params.PlayerRating + playerChange),
		NewOpponentRating:    e.clampRating(params.OpponentRating + opponentChange),
		PlayerRatingChange:   playerChange,
		OpponentRatingChange: opponentChange,
		PointsAwarded:        points,
	}, nil
}

// clampRating ensures a rating stays within configured bounds
func (e *Engine) clampRating(rating int) int {
	return clamp(rating, e.config.MinRating, e.config.MaxRating)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundHalfUp rounds halves toward positive infinity, so -2.5 becomes -2
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// ExpectedScore calls Default().ExpectedScore
func ExpectedScore(playerRating, opponentRating int) float64 {
	return defaultEngine.ExpectedScore(playerRating, opponentRating)
}

// KFactor calls Default().KFactor
func KFactor(gamesPlayed, currentRating int) int {
	return defaultEngine.KFactor(gamesPlayed, currentRating)
}

// BonusPoints calls Default().BonusPoints
func BonusPoints(playerRating, opponentRating int, result MatchResult) (int, error) {
	return defaultEngine.BonusPoints(playerRating, opponentRating, result)
}

// CalculateEloChange calls Default().CalculateEloChange
func CalculateEloChange(params CalculationParams) (CalculationResult, error) {
	return defaultEngine.CalculateEloChange(params)
}

// CalculateEloChangeWithExperience calls Default().CalculateEloChangeWithExperience
func CalculateEloChangeWithExperience(params CalculationParams, playerGamesPlayed, opponentGamesPlayed int) (CalculationResult, error) {
	return defaultEngine.CalculateEloChangeWithExperience(params, playerGamesPlayed, opponentGamesPlayed)
}
