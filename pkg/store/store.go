// Package store persists player ratings, games played and rating history.
// The rating engine never touches storage; callers read records, compute, and
// write the results back through a Repository, one atomic update at a time.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pashagolub/clubelo/pkg/data"
	"github.com/pashagolub/clubelo/pkg/elo"
)

// Error types for store operations
var (
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrEmptyPlayerID  = errors.New("player id cannot be empty")
	ErrStoreClosed    = errors.New("store is closed")
)

// PlayerRecord is the stored shape of a player.
// Unknown players materialise with the default rating, no games and no history.
type PlayerRecord struct {
	PlayerID    string             `json:"player_id" bson:"_id"`
	EloRating   int                `json:"elo_rating" bson:"eloRating"`
	GamesPlayed int                `json:"games_played" bson:"gamesPlayed"`
	EloHistory  []elo.HistoryEntry `json:"elo_history" bson:"eloHistory"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updatedAt"`
}

// NewPlayerRecord returns the record of a player who has never been rated
func NewPlayerRecord(playerID string) PlayerRecord {
	return PlayerRecord{
		PlayerID:    playerID,
		EloRating:   elo.DefaultConfig().DefaultRating,
		GamesPlayed: 0,
		EloHistory:  []elo.HistoryEntry{},
	}
}

// Stored reports whether the record has been written by a store
func (r PlayerRecord) Stored() bool {
	return !r.UpdatedAt.IsZero()
}

// UpdateFunc mutates the records of one update in place.
// Returning an error discards every change. It may be called more than once
// when the backend retries a transaction, so it must not keep state between calls.
type UpdateFunc func(records map[string]*PlayerRecord) error

// Repository is implemented by every rating store
type Repository interface {
	// Get returns the records for ids, defaulting players that were never stored
	Get(ctx context.Context, ids ...string) (map[string]PlayerRecord, error)
	// Update runs fn over the records for ids and persists the result atomically
	Update(ctx context.Context, ids []string, fn UpdateFunc) error
	// Leaderboard returns up to limit stored players by rating, highest first
	Leaderboard(ctx context.Context, limit int) ([]PlayerRecord, error)
	Close(ctx context.Context) error
}

// Open creates the repository selected by the configuration
func Open(ctx context.Context, cfg data.StoreConfig) (Repository, error) {
	switch cfg.Backend {
	case data.BackendFile, "":
		return NewFileStore(cfg.Path)
	case data.BackendMongo:
		return NewMongoStore(ctx, cfg)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
}

// normalizeIDs trims, rejects empty and removes duplicate ids preserving order
func normalizeIDs(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, ErrEmptyPlayerID
		}
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r PlayerRecord) clone() PlayerRecord {
	r.EloHistory = slices.Clone(r.EloHistory)
	if r.EloHistory == nil {
		r.EloHistory = []elo.HistoryEntry{}
	}
	return r
}
