package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pashagolub/clubelo/pkg/elo"
)

const sampleYAML = `
id: friday-night-42
name: Friday Night Catan
participants:
  - player_id: alice
    current_rating: 1250
    games_played: 12
    matches:
      - opponent_id: bob
        opponent_rating: 1180
        opponent_games_played: 40
        result: win
      - opponent_id: carol
        result: loss
  - player_id: bob
    current_rating: 1180
    games_played: 40
    matches:
      - opponent_id: alice
        opponent_rating: 1250
        opponent_games_played: 12
        result: loss
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename   string
		configured string
		want       string
		wantErr    bool
	}{
		{"night.yaml", "auto", "yaml", false},
		{"night.YML", "", "yaml", false},
		{"night.json", "auto", "json", false},
		{"night.csv", "auto", "csv", false},
		{"night.txt", "csv", "csv", false},
		{"night.txt", "auto", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename+"/"+tt.configured, func(t *testing.T) {
			got, err := DetectFormat(tt.filename, tt.configured)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileStorage_LoadTournament(t *testing.T) {
	tempDir := t.TempDir()
	fs := NewFileStorage()

	t.Run("YAML", func(t *testing.T) {
		path := writeFile(t, tempDir, "night.yaml", sampleYAML)

		tournament, err := fs.LoadTournament(path, DefaultInputConfig())
		require.NoError(t, err)

		assert.Equal(t, "friday-night-42", tournament.ID)
		assert.Equal(t, "Friday Night Catan", tournament.Name)
		require.Len(t, tournament.Participants, 2)
		assert.Len(t, tournament.Participants[0].Matches, 2)
		assert.Equal(t, "carol", tournament.Participants[0].Matches[1].OpponentID)
		assert.Zero(t, tournament.Participants[0].Matches[1].OpponentRating)
	})

	t.Run("JSON", func(t *testing.T) {
		path := writeFile(t, tempDir, "night.json", `{
  "id": "json-night",
  "participants": [
    {"player_id": "p1", "matches": [{"opponent_id": "p2", "result": "draw"}]}
  ]
}`)

		tournament, err := fs.LoadTournament(path, DefaultInputConfig())
		require.NoError(t, err)
		assert.Equal(t, "json-night", tournament.ID)
		assert.Equal(t, "draw", tournament.Participants[0].Matches[0].Result)
	})

	t.Run("JSONUnknownField", func(t *testing.T) {
		path := writeFile(t, tempDir, "typo.json", `{"id": "x", "participant": []}`)

		_, err := fs.LoadTournament(path, DefaultInputConfig())
		assert.ErrorIs(t, err, ErrJSONSerialization)
	})

	t.Run("Placements", func(t *testing.T) {
		path := writeFile(t, tempDir, "ffa.yaml", `
id: ffa-1
placements:
  - {player_id: a, rating: 1300, games_played: 60, position: 1}
  - {player_id: b, position: 2}
  - {player_id: c, rating: 1100, games_played: 5, position: 2}
`)

		tournament, err := fs.LoadTournament(path, DefaultInputConfig())
		require.NoError(t, err)
		require.Len(t, tournament.Placements, 3)
		assert.Equal(t, 3, tournament.MatchCount())
	})

	t.Run("CSVUsesFileNameAsID", func(t *testing.T) {
		path := writeFile(t, tempDir, "league-week-3.csv", `player_id,current_rating,games_played,opponent_id,opponent_rating,opponent_games_played,result
alice,1250,12,bob,1180,40,win
bob,1180,40,alice,1250,12,loss
alice,,,carol,,,draw
`)

		tournament, err := fs.LoadTournament(path, DefaultInputConfig())
		require.NoError(t, err)

		assert.Equal(t, "league-week-3", tournament.ID)
		require.Len(t, tournament.Participants, 2)

		alice := tournament.Participants[0]
		assert.Equal(t, "alice", alice.PlayerID)
		assert.Equal(t, 1250, alice.CurrentRating)
		require.Len(t, alice.Matches, 2)
		assert.Equal(t, "bob", alice.Matches[0].OpponentID)
		assert.Equal(t, "carol", alice.Matches[1].OpponentID)
		assert.Equal(t, "draw", alice.Matches[1].Result)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := fs.LoadTournament(filepath.Join(tempDir, "absent.yaml"), DefaultInputConfig())
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})

	t.Run("InvalidResult", func(t *testing.T) {
		path := writeFile(t, tempDir, "bad.yaml", `
id: bad
participants:
  - player_id: p1
    matches:
      - {opponent_id: p2, result: forfeit}
`)
		_, err := fs.LoadTournament(path, DefaultInputConfig())
		assert.ErrorIs(t, err, elo.ErrInvalidResult)
	})
}

func TestParseTournament_CSV(t *testing.T) {
	t.Run("NoHeaderPositional", func(t *testing.T) {
		input := "p1;1400;150;p2;1300;80;win\np2;1300;80;p1;1400;150;loss\n"
		config := InputConfig{Format: "csv", Delimiter: ";", HasHeader: false}

		tournament, err := ParseTournament(strings.NewReader(input), "csv", config)
		require.NoError(t, err)

		require.Len(t, tournament.Participants, 2)
		assert.Equal(t, 150, tournament.Participants[0].GamesPlayed)
		assert.Equal(t, 80, tournament.Participants[0].Matches[0].OpponentGamesPlayed)
	})

	t.Run("HeaderInAnyOrder", func(t *testing.T) {
		input := "Result,Opponent_ID,Player_ID\nWIN,b,a\n"

		tournament, err := ParseTournament(strings.NewReader(input), "csv", DefaultInputConfig())
		require.NoError(t, err)
		assert.Equal(t, "win", tournament.Participants[0].Matches[0].Result)
		assert.Equal(t, "b", tournament.Participants[0].Matches[0].OpponentID)
	})

	t.Run("MissingRequiredColumn", func(t *testing.T) {
		_, err := ParseTournament(strings.NewReader("player_id,result\na,win\n"), "csv", DefaultInputConfig())
		assert.ErrorIs(t, err, ErrCSVFormat)
		assert.Contains(t, err.Error(), "opponent_id")
	})

	t.Run("RowErrorsAreCollected", func(t *testing.T) {
		input := `player_id,current_rating,games_played,opponent_id,opponent_rating,opponent_games_played,result
a,1200,0,b,1200,0,win
,1200,0,b,1200,0,win
a,abc,0,c,1200,0,win
a,1200,0,,1200,0,loss
a,1200,0,d,1200,0,forfeit

a,1300,0,e,1200,0,draw
`
		_, err := ParseTournament(strings.NewReader(input), "csv", DefaultInputConfig())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCSVFormat)

		var rowErrors ParseErrors
		require.ErrorAs(t, err, &rowErrors)
		require.Len(t, rowErrors, 5)

		assert.Equal(t, 3, rowErrors[0].Row)
		assert.Equal(t, ColumnPlayerID, rowErrors[0].Field)
		assert.Equal(t, ColumnCurrentRating, rowErrors[1].Field)
		assert.Equal(t, ColumnOpponentID, rowErrors[2].Field)
		assert.Equal(t, ColumnResult, rowErrors[3].Field)
		// blank lines are skipped by the reader and do not count as rows
		assert.Equal(t, 7, rowErrors[4].Row)
		assert.Contains(t, rowErrors[4].Message, "conflicting")
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		_, err := ParseTournament(strings.NewReader(""), "toml", DefaultInputConfig())
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestFileStorage_SaveTournament(t *testing.T) {
	tempDir := t.TempDir()
	fs := NewFileStorage()

	source := writeFile(t, tempDir, "night.yaml", sampleYAML)
	original, err := fs.LoadTournament(source, DefaultInputConfig())
	require.NoError(t, err)

	for _, name := range []string{"out/copy.json", "out/copy.yaml"} {
		t.Run(name, func(t *testing.T) {
			target := filepath.Join(tempDir, name)
			require.NoError(t, fs.SaveTournament(original, target))

			_, err := os.Stat(target + ".tmp")
			assert.True(t, os.IsNotExist(err), "temporary file must be renamed away")

			reloaded, err := fs.LoadTournament(target, DefaultInputConfig())
			require.NoError(t, err)
			assert.Equal(t, original.Participants, reloaded.Participants)
		})
	}

	t.Run("DirectWrites", func(t *testing.T) {
		direct := NewFileStorage()
		direct.SetAtomicWrites(false)
		require.NoError(t, direct.SaveTournament(original, filepath.Join(tempDir, "direct.json")))
	})

	t.Run("Rejected", func(t *testing.T) {
		assert.ErrorIs(t, fs.SaveTournament(nil, filepath.Join(tempDir, "nil.json")), ErrJSONSerialization)
		assert.ErrorIs(t, fs.SaveTournament(original, filepath.Join(tempDir, "night.csv")), ErrUnsupportedFormat)
	})
}
