package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	leaderboardKey      = "trivia:leaderboard"
	roomScoresKeyPrefix = "trivia:room:"
	roomScoresTTL       = 24 * time.Hour
)

// LeaderboardEntry is one row of the all-time leaderboard.
type LeaderboardEntry struct {
	PlayerName string `json:"player_name"`
	Score      int    `json:"score"`
}

// Leaderboard keeps each player's best score in a Redis sorted set and the
// last result of every room in a short-lived hash.
type Leaderboard struct {
	redis *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{redis: client}
}

func roomScoresKey(roomID string) string {
	return roomScoresKeyPrefix + roomID + ":scores"
}

func (l *Leaderboard) RecordScores(ctx context.Context, result GameResult) error {
	if len(result.Scores) == 0 {
		return nil
	}

	key := roomScoresKey(result.RoomID)
	fields := make(map[string]any, len(result.Scores))

	pipe := l.redis.TxPipeline()
	for name, score := range result.Scores {
		pipe.ZAddGT(ctx, leaderboardKey, redis.Z{Score: float64(score), Member: name})
		fields[name] = score
	}
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, roomScoresTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return &PersistenceError{RoomID: result.RoomID, Err: fmt.Errorf("update leaderboard: %w", err)}
	}
	return nil
}

// Top returns the n best players of all time.
func (l *Leaderboard) Top(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	if n <= 0 {
		return []LeaderboardEntry{}, nil
	}

	zs, err := l.redis.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		entries = append(entries, LeaderboardEntry{
			PlayerName: fmt.Sprintf("%v", z.Member),
			Score:      int(z.Score),
		})
	}
	return entries, nil
}

// RoomScores returns the cached final scores of a recently finished room.
func (l *Leaderboard) RoomScores(ctx context.Context, roomID string) (map[string]int, error) {
	raw, err := l.redis.HGetAll(ctx, roomScoresKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load room scores: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrRoomNotFound
	}

	scores := make(map[string]int, len(raw))
	for name, value := range raw {
		score, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("parse score for %s: %w", name, err)
		}
		scores[name] = score
	}
	return scores, nil
}
