package models

import (
	"time"

	"gorm.io/gorm"
)

// Game is the durable record of a finished room.
type Game struct {
	ID             string         `json:"id" gorm:"primaryKey;size:36"`
	RoomID         string         `json:"room_id" gorm:"index;not null;size:16"`
	HostName       string         `json:"host_name"`
	TotalQuestions int            `json:"total_questions" gorm:"not null"`
	StartedAt      *time.Time     `json:"started_at"`
	EndedAt        time.Time      `json:"ended_at" gorm:"index"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Scores []Score `json:"scores,omitempty" gorm:"foreignKey:GameID"`
}
