package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pashagolub/clubelo/pkg/data"
	"github.com/pashagolub/clubelo/pkg/elo"
)

// MongoStore keeps players in a MongoDB collection, one document per player.
// Updates run inside a multi-document transaction, so the server must be a replica set.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoStore connects, verifies the connection and ensures the rating index
func NewMongoStore(ctx context.Context, cfg data.StoreConfig) (*MongoStore, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(50).
		SetMaxConnIdleTime(5 * time.Minute)
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	ms := &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    timeout,
	}

	if err := ms.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return ms, nil
}

func (ms *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := ms.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "eloRating", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create rating index: %w", err)
	}
	return nil
}

// Get returns the requested records, defaulting players without a document
func (ms *MongoStore) Get(ctx context.Context, ids ...string) (map[string]PlayerRecord, error) {
	ids, err := normalizeIDs(ids)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	return ms.load(ctx, ids)
}

func (ms *MongoStore) load(ctx context.Context, ids []string) (map[string]PlayerRecord, error) {
	cursor, err := ms.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}

	var found []PlayerRecord
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode players: %w", err)
	}

	out := make(map[string]PlayerRecord, len(ids))
	for _, rec := range found {
		out[rec.PlayerID] = rec.clone()
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			out[id] = NewPlayerRecord(id)
		}
	}
	return out, nil
}

// Update reads, mutates and writes the records inside one transaction.
// New history entries are appended with $push so concurrent writers never drop history.
func (ms *MongoStore) Update(ctx context.Context, ids []string, fn UpdateFunc) error {
	ids, err := normalizeIDs(ids)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	session, err := ms.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		current, err := ms.load(sc, ids)
		if err != nil {
			return nil, err
		}

		working := make(map[string]*PlayerRecord, len(current))
		stored := make(map[string]int, len(current))
		for id, rec := range current {
			rec := rec // per-iteration copy; go.mod targets go 1.21 loop semantics
			working[id] = &rec
			stored[id] = len(rec.EloHistory)
		}

		if err := fn(working); err != nil {
			return nil, err
		}

		now := time.Now()
		for _, id := range ids {
			rec := working[id]
			if rec == nil {
				continue
			}

			added := []elo.HistoryEntry{}
			if len(rec.EloHistory) > stored[id] {
				added = rec.EloHistory[stored[id]:]
			}

			update := bson.M{
				"$set": bson.M{
					"eloRating":   rec.EloRating,
					"gamesPlayed": rec.GamesPlayed,
					"updatedAt":   now,
				},
				"$push": bson.M{
					"eloHistory": bson.M{"$each": added},
				},
			}
			if _, err := ms.collection.UpdateOne(sc, bson.M{"_id": id}, update, options.Update().SetUpsert(true)); err != nil {
				return nil, fmt.Errorf("failed to update player %s: %w", id, err)
			}
		}
		return nil, nil
	})
	return err
}

// Leaderboard returns up to limit players using the rating index
func (ms *MongoStore) Leaderboard(ctx context.Context, limit int) ([]PlayerRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	findOptions := options.Find().SetSort(bson.D{{Key: "eloRating", Value: -1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}

	cursor, err := ms.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}

	var records []PlayerRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	return records, nil
}

// Close disconnects the client
func (ms *MongoStore) Close(ctx context.Context) error {
	if err := ms.client.Disconnect(ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return err
	}
	return nil
}
