package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"trivia/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScoreStore is the durable ScoreSink: one Game row and one Score row per
// player for every finished room.
type ScoreStore struct {
	db *gorm.DB
}

func NewScoreStore(db *gorm.DB) *ScoreStore {
	return &ScoreStore{db: db}
}

func (s *ScoreStore) RecordScores(ctx context.Context, result GameResult) error {
	game := models.Game{
		ID:             uuid.NewString(),
		RoomID:         result.RoomID,
		HostName:       result.HostName,
		TotalQuestions: result.TotalQuestions,
		StartedAt:      result.StartedAt,
		EndedAt:        result.EndedAt,
	}

	names := make([]string, 0, len(result.Scores))
	for name := range result.Scores {
		names = append(names, name)
	}
	sort.Strings(names)

	scores := make([]models.Score, 0, len(names))
	for _, name := range names {
		scores = append(scores, models.Score{
			GameID:     game.ID,
			PlayerName: name,
			ScoreValue: result.Scores[name],
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&game).Error; err != nil {
			return fmt.Errorf("create game: %w", err)
		}
		if len(scores) == 0 {
			return nil
		}
		if err := tx.Create(&scores).Error; err != nil {
			return fmt.Errorf("create scores: %w", err)
		}
		return nil
	})
	if err != nil {
		return &PersistenceError{RoomID: result.RoomID, Err: err}
	}
	return nil
}

// Ranking returns scores ordered best first, newest first among equals.
func (s *ScoreStore) Ranking(ctx context.Context, skip, limit int) ([]models.Score, error) {
	var scores []models.Score
	err := s.db.WithContext(ctx).
		Order("score_value DESC").
		Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&scores).Error
	if err != nil {
		return nil, fmt.Errorf("load ranking: %w", err)
	}
	return scores, nil
}

// GameByRoom returns the most recent finished game played under roomID.
func (s *ScoreStore) GameByRoom(ctx context.Context, roomID string) (*models.Game, error) {
	var game models.Game
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("ended_at DESC").
		Preload("Scores", func(db *gorm.DB) *gorm.DB {
			return db.Order("score_value DESC")
		}).
		First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("load game: %w", err)
	}
	return &game, nil
}
