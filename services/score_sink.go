package services

import (
	"context"
	"errors"
	"time"
)

// GameResult is what a finished room hands to its ScoreSink.
type GameResult struct {
	RoomID         string
	HostName       string
	TotalQuestions int
	StartedAt      *time.Time
	EndedAt        time.Time
	Scores         map[string]int
}

// ScoreSink receives final scores exactly once per finished room.
type ScoreSink interface {
	RecordScores(ctx context.Context, result GameResult) error
}

// MultiSink fans a result out to every sink, continuing past failures.
type MultiSink []ScoreSink

func (m MultiSink) RecordScores(ctx context.Context, result GameResult) error {
	var errs []error
	for _, sink := range m {
		if err := sink.RecordScores(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &PersistenceError{RoomID: result.RoomID, Err: errors.Join(errs...)}
}

type NopSink struct{}

func (NopSink) RecordScores(context.Context, GameResult) error {
	return nil
}
