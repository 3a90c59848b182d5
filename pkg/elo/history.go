package elo

import "time"

// HistoryEntry is an immutable audit record of one processed match
type HistoryEntry struct {
	Date           time.Time   `json:"date" yaml:"date" bson:"date"`
	Rating         int         `json:"rating" yaml:"rating" bson:"rating"`
	Change         int         `json:"change" yaml:"change" bson:"change"`
	OpponentID     string      `json:"opponent_id" yaml:"opponent_id" bson:"opponentId"`
	OpponentRating int         `json:"opponent_rating" yaml:"opponent_rating" bson:"opponentRating"`
	TournamentID   string      `json:"tournament_id" yaml:"tournament_id" bson:"tournamentId"`
	Result         MatchResult `json:"result" yaml:"result" bson:"result"`
}

// CreateEloHistoryEntry stamps a history record with the engine clock
func (e *Engine) CreateEloHistoryEntry(newRating, ratingChange int, opponentID string, opponentRating int, tournamentID string, result MatchResult) HistoryEntry {
	return HistoryEntry{
		Date:           e.now(),
		Rating:         newRating,
		Change:         ratingChange,
		OpponentID:     opponentID,
		OpponentRating: opponentRating,
		TournamentID:   tournamentID,
		Result:         result,
	}
}

// CreateEloHistoryEntry calls Default().CreateEloHistoryEntry
func CreateEloHistoryEntry(newRating, ratingChange int, opponentID string, opponentRating int, tournamentID string, result MatchResult) HistoryEntry {
	return defaultEngine.CreateEloHistoryEntry(newRating, ratingChange, opponentID, opponentRating, tournamentID, result)
}
