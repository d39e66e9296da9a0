package services_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"trivia/models"
	"trivia/services"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "trivia.db")
	db, err := gorm.Open(gormlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Game{}, &models.Score{}))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestScoreStoreRecordsGame(t *testing.T) {
	store := services.NewScoreStore(newTestDB(t))
	ctx := context.Background()

	started := time.Now().Add(-time.Minute)
	err := store.RecordScores(ctx, services.GameResult{
		RoomID:         "ABC123",
		HostName:       "Alice",
		TotalQuestions: 5,
		StartedAt:      &started,
		EndedAt:        time.Now(),
		Scores:         map[string]int{"Alice": 30, "Bob": 50},
	})
	require.NoError(t, err)

	game, err := store.GameByRoom(ctx, "ABC123")
	require.NoError(t, err)
	require.Equal(t, "Alice", game.HostName)
	require.Equal(t, 5, game.TotalQuestions)
	require.Len(t, game.Scores, 2)
	require.Equal(t, "Bob", game.Scores[0].PlayerName)
	require.Equal(t, 50, game.Scores[0].ScoreValue)
	require.Equal(t, game.ID, game.Scores[1].GameID)

	_, err = store.GameByRoom(ctx, "ZZZ999")
	require.ErrorIs(t, err, services.ErrRoomNotFound)
}

func TestScoreStoreRanking(t *testing.T) {
	store := services.NewScoreStore(newTestDB(t))
	ctx := context.Background()

	results := []map[string]int{
		{"Alice": 10, "Bob": 40},
		{"Carol": 40, "Dave": 0},
		{"Erin": 20},
	}
	for i, scores := range results {
		err := store.RecordScores(ctx, services.GameResult{
			RoomID:  fmt.Sprintf("ROOM%02d", i+1),
			EndedAt: time.Now(),
			Scores:  scores,
		})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	ranking, err := store.Ranking(ctx, 0, 3)
	require.NoError(t, err)
	require.Len(t, ranking, 3)
	require.Equal(t, "Carol", ranking[0].PlayerName, "ties go to the newest score")
	require.Equal(t, "Bob", ranking[1].PlayerName)
	require.Equal(t, "Erin", ranking[2].PlayerName)

	page, err := store.Ranking(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "Alice", page[0].PlayerName)
	require.Equal(t, "Dave", page[1].PlayerName)
}

func TestScoreStoreEmptyRoom(t *testing.T) {
	store := services.NewScoreStore(newTestDB(t))

	err := store.RecordScores(context.Background(), services.GameResult{RoomID: "EMPTY1", EndedAt: time.Now()})
	require.NoError(t, err)

	game, err := store.GameByRoom(context.Background(), "EMPTY1")
	require.NoError(t, err)
	require.Empty(t, game.Scores)
}
