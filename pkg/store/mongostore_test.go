package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pashagolub/clubelo/pkg/data"
	"github.com/pashagolub/clubelo/pkg/elo"
)

// Runs against a replica set given by CLUBELO_TEST_MONGO_URI, e.g.
// mongodb://localhost:27017/?replicaSet=rs0
func setupMongoStore(t *testing.T) *MongoStore {
	t.Helper()

	uri := os.Getenv("CLUBELO_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CLUBELO_TEST_MONGO_URI not set")
	}

	cfg := data.DefaultStoreConfig()
	cfg.Backend = data.BackendMongo
	cfg.MongoURI = uri
	cfg.Database = "clubelo_test"
	cfg.Collection = fmt.Sprintf("players_%d", time.Now().UnixNano())

	ms, err := NewMongoStore(context.Background(), cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.Background()
		_ = ms.collection.Drop(ctx)
		_ = ms.Close(ctx)
	})
	return ms
}

func TestMongoStore_RoundTrip(t *testing.T) {
	ms := setupMongoStore(t)
	ctx := context.Background()

	records, err := ms.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1200, records["alice"].EloRating)

	for i := 1; i <= 2; i++ {
		err := ms.Update(ctx, []string{"alice", "bob"}, func(records map[string]*PlayerRecord) error {
			records["alice"].EloRating += 10
			records["alice"].GamesPlayed++
			records["alice"].EloHistory = append(records["alice"].EloHistory, elo.HistoryEntry{
				Date: time.Now().UTC(), Rating: records["alice"].EloRating, Change: 10, OpponentID: "bob", Result: elo.Win,
			})
			records["bob"].GamesPlayed++
			return nil
		})
		require.NoError(t, err)
	}

	records, err = ms.Get(ctx, "alice", "bob")
	require.NoError(t, err)

	assert.Equal(t, 1220, records["alice"].EloRating)
	assert.Equal(t, 2, records["alice"].GamesPlayed)
	require.Len(t, records["alice"].EloHistory, 2)
	assert.Equal(t, 1220, records["alice"].EloHistory[1].Rating)
	assert.Equal(t, 2, records["bob"].GamesPlayed)
	assert.Empty(t, records["bob"].EloHistory)

	top, err := ms.Leaderboard(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "alice", top[0].PlayerID)
}
