package services

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrGameNotWaiting       = errors.New("game already in progress or finished")
	ErrGameNotActive        = errors.New("game is not active")
	ErrDuplicateName        = errors.New("player name already taken in this room")
	ErrNotHost              = errors.New("only the host can start the game")
	ErrStaleAnswer          = errors.New("answer is for the wrong question")
	ErrPlayerFinished       = errors.New("player has already answered every question")
	ErrAlreadyAnswered      = errors.New("question already answered")
	ErrPlayerNotInRoom      = errors.New("player is not in this room")
	ErrNoQuestionsAvailable = errors.New("no questions available")
	ErrInvalidName          = errors.New("invalid player name")
	ErrUnknownMessage       = errors.New("unknown message type")
	ErrMalformedPayload     = errors.New("malformed payload")
	ErrMissingRoomID        = errors.New("room_id is required")
	ErrNotJoined            = errors.New("create or join a room first")
	ErrAlreadyJoined        = errors.New("already in a room")
	ErrSendBufferFull       = errors.New("send buffer full")
	ErrConnectionClosed     = errors.New("connection closed")
)

// PersistenceError reports a Score Sink failure for one finalized room.
type PersistenceError struct {
	RoomID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist scores for room %s: %v", e.RoomID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
