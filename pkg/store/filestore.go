package store

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/pashagolub/clubelo/pkg/data"
)

// fileDocument is the on-disk layout of a FileStore
type fileDocument struct {
	Version   int                     `json:"version"`
	UpdatedAt time.Time               `json:"updated_at"`
	Players   map[string]PlayerRecord `json:"players"`
}

// FileStore keeps every player in one JSON document.
// Updates are serialised by a mutex and written with an atomic rename.
type FileStore struct {
	mu      sync.Mutex
	path    string
	players map[string]PlayerRecord
	closed  bool
	now     func() time.Time
}

// NewFileStore opens path, creating an empty store when the file does not exist
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		path:    path,
		players: make(map[string]PlayerRecord),
		now:     time.Now,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, fmt.Errorf("cannot read player file %s: %w", path, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: player file %s: %v", data.ErrJSONSerialization, path, err)
	}
	for id, rec := range doc.Players {
		rec.PlayerID = id
		fs.players[id] = rec
	}

	return fs, nil
}

// Get returns copies of the requested records
func (fs *FileStore) Get(_ context.Context, ids ...string) (map[string]PlayerRecord, error) {
	ids, err := normalizeIDs(ids)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil, ErrStoreClosed
	}

	out := make(map[string]PlayerRecord, len(ids))
	for _, id := range ids {
		out[id] = fs.lookup(id)
	}
	return out, nil
}

// Update applies fn under the store lock and persists the document before releasing it
func (fs *FileStore) Update(ctx context.Context, ids []string, fn UpdateFunc) error {
	ids, err := normalizeIDs(ids)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	working := make(map[string]*PlayerRecord, len(ids))
	for _, id := range ids {
		rec := fs.lookup(id)
		working[id] = &rec
	}

	if err := fn(working); err != nil {
		return err
	}

	previous := make(map[string]PlayerRecord, len(working))
	now := fs.now()
	for _, id := range ids {
		rec := working[id]
		if rec == nil {
			continue
		}
		if old, ok := fs.players[id]; ok {
			previous[id] = old
		}
		rec.PlayerID = id
		rec.UpdatedAt = now
		fs.players[id] = rec.clone()
	}

	if err := fs.persist(); err != nil {
		// Keep memory consistent with the file
		for _, id := range ids {
			if old, ok := previous[id]; ok {
				fs.players[id] = old
			} else {
				delete(fs.players, id)
			}
		}
		return err
	}

	return nil
}

// Leaderboard returns stored players sorted by rating, ties broken by player id
func (fs *FileStore) Leaderboard(_ context.Context, limit int) ([]PlayerRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil, ErrStoreClosed
	}

	records := make([]PlayerRecord, 0, len(fs.players))
	for _, rec := range fs.players {
		records = append(records, rec.clone())
	}
	slices.SortFunc(records, func(a, b PlayerRecord) int {
		if c := cmp.Compare(b.EloRating, a.EloRating); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Close marks the store closed; the file is already up to date
func (fs *FileStore) Close(_ context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.closed = true
	return nil
}

func (fs *FileStore) lookup(id string) PlayerRecord {
	if rec, ok := fs.players[id]; ok {
		return rec.clone()
	}
	return NewPlayerRecord(id)
}

func (fs *FileStore) persist() error {
	doc := fileDocument{
		Version:   1,
		UpdatedAt: fs.now(),
		Players:   fs.players,
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode players: %v", data.ErrJSONSerialization, err)
	}

	if dir := filepath.Dir(fs.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create store directory: %w", err)
		}
	}

	return data.WriteFileAtomic(fs.path, payload, 0644)
}
