package services_test

import (
	"context"
	"testing"
	"time"

	"trivia/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLeaderboard(t *testing.T) (*services.Leaderboard, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return services.NewLeaderboard(client), mr
}

func TestLeaderboardKeepsBestScore(t *testing.T) {
	board, _ := newTestLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, board.RecordScores(ctx, services.GameResult{
		RoomID: "ROOM01",
		Scores: map[string]int{"Alice": 30, "Bob": 10},
	}))
	require.NoError(t, board.RecordScores(ctx, services.GameResult{
		RoomID: "ROOM02",
		Scores: map[string]int{"Alice": 20, "Bob": 50, "Carol": 40},
	}))

	top, err := board.Top(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []services.LeaderboardEntry{
		{PlayerName: "Bob", Score: 50},
		{PlayerName: "Carol", Score: 40},
	}, top)

	all, err := board.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, services.LeaderboardEntry{PlayerName: "Alice", Score: 30}, all[2])

	none, err := board.Top(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestLeaderboardRoomScores(t *testing.T) {
	board, mr := newTestLeaderboard(t)
	ctx := context.Background()

	require.NoError(t, board.RecordScores(ctx, services.GameResult{
		RoomID: "ROOM01",
		Scores: map[string]int{"Alice": 30, "Bob": 10},
	}))

	scores, err := board.RoomScores(ctx, "ROOM01")
	require.NoError(t, err)
	require.Equal(t, map[string]int{"Alice": 30, "Bob": 10}, scores)

	mr.FastForward(25 * time.Hour)

	_, err = board.RoomScores(ctx, "ROOM01")
	require.ErrorIs(t, err, services.ErrRoomNotFound)
}

func TestLeaderboardUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	board := services.NewLeaderboard(client)

	err := board.RecordScores(context.Background(), services.GameResult{
		RoomID: "ROOM01",
		Scores: map[string]int{"Alice": 30},
	})

	var perr *services.PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "ROOM01", perr.RoomID)
}
