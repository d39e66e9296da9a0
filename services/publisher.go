package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	GameFinishedEvent      = "game_finished"
	GameFinishedRoutingKey = "game.finished"
)

// AMQPPublisher is the part of *amqp.Channel the publisher needs.
type AMQPPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// GameFinishedMessage is the body published for every finished room.
type GameFinishedMessage struct {
	Event          string         `json:"event"`
	RoomID         string         `json:"room_id"`
	HostName       string         `json:"host_name"`
	TotalQuestions int            `json:"total_questions"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	EndedAt        time.Time      `json:"ended_at"`
	Scores         map[string]int `json:"scores"`
}

// ResultPublisher announces finished games on a topic exchange.
type ResultPublisher struct {
	channel  AMQPPublisher
	exchange string
}

func NewResultPublisher(channel AMQPPublisher, exchange string) *ResultPublisher {
	return &ResultPublisher{channel: channel, exchange: exchange}
}

func (p *ResultPublisher) RecordScores(ctx context.Context, result GameResult) error {
	body, err := json.Marshal(GameFinishedMessage{
		Event:          GameFinishedEvent,
		RoomID:         result.RoomID,
		HostName:       result.HostName,
		TotalQuestions: result.TotalQuestions,
		StartedAt:      result.StartedAt,
		EndedAt:        result.EndedAt,
		Scores:         result.Scores,
	})
	if err != nil {
		return &PersistenceError{RoomID: result.RoomID, Err: fmt.Errorf("encode result: %w", err)}
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		GameFinishedRoutingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Timestamp:    result.EndedAt,
			Type:         GameFinishedEvent,
			Body:         body,
		})
	if err != nil {
		return &PersistenceError{RoomID: result.RoomID, Err: fmt.Errorf("publish result: %w", err)}
	}
	return nil
}
