package models

import (
	"time"
)

// Score is one player's final score in one finished game.
type Score struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	GameID     string    `json:"game_id" gorm:"index;not null;size:36"`
	PlayerName string    `json:"player_name" gorm:"index;not null;size:50"`
	ScoreValue int       `json:"score_value" gorm:"index;not null"`
	CreatedAt  time.Time `json:"timestamp" gorm:"index"`
}
