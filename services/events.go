package services

import (
	"encoding/json"

	"trivia/models"
)

// Inbound message types.
const (
	MsgCreateRoom   = "create_room"
	MsgJoinRoom     = "join_room"
	MsgStartGame    = "start_game"
	MsgSubmitAnswer = "submit_answer"
	MsgPing         = "ping"
)

// Outbound event types.
const (
	EventJoinRoomSuccess = "join_room_success"
	EventJoinRoomError   = "join_room_error"
	EventCreateRoomError = "create_room_error"
	EventRoomStateUpdate = "room_state_update"
	EventGameStarted     = "game_started"
	EventNewQuestion     = "new_question"
	EventAnswerResult    = "answer_result"
	EventScoreUpdate     = "score_update"
	EventGameOver        = "game_over_for_all"
	EventError           = "error"
	EventPong            = "pong"
)

// Message is the inbound envelope.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinRoomPayload struct {
	RoomID string `json:"room_id"`
}

// SubmitAnswerPayload accepts question_id as an alias of question_index.
type SubmitAnswerPayload struct {
	QuestionIndex *int    `json:"question_index"`
	QuestionID    *int    `json:"question_id"`
	Answer        *string `json:"answer"`
}

func (p SubmitAnswerPayload) index() (int, bool) {
	if p.QuestionIndex != nil {
		return *p.QuestionIndex, true
	}
	if p.QuestionID != nil {
		return *p.QuestionID, true
	}
	return 0, false
}

// RoomState is the client-facing view of a room.
type RoomState struct {
	RoomID               string                    `json:"room_id"`
	CreatorName          string                    `json:"creator_name"`
	HostName             string                    `json:"host_name"`
	Players              map[string]*models.Player `json:"players"`
	Questions            []models.PublicQuestion   `json:"questions"`
	CurrentQuestionIndex int                       `json:"current_question_index"`
	GameStatus           string                    `json:"game_status"`
	PlayerOrder          []string                  `json:"player_order"`
}

type JoinRoomSuccessEvent struct {
	Type      string    `json:"type"`
	RoomID    string    `json:"room_id"`
	IsHost    bool      `json:"is_host"`
	RoomState RoomState `json:"room_state"`
}

type RoomStateUpdateEvent struct {
	Type      string    `json:"type"`
	RoomState RoomState `json:"room_state"`
}

// QuestionEvent is used for both game_started and new_question.
type QuestionEvent struct {
	Type           string                `json:"type"`
	Question       models.PublicQuestion `json:"question"`
	QuestionNumber int                   `json:"question_number"`
	TotalQuestions int                   `json:"total_questions"`
}

type AnswerResultEvent struct {
	Type       string `json:"type"`
	QuestionID int    `json:"question_id"`
	IsCorrect  bool   `json:"is_correct"`
	YourScore  int    `json:"your_score"`
}

type ScoreUpdateEvent struct {
	Type   string         `json:"type"`
	Scores map[string]int `json:"scores"`
}

type GameOverEvent struct {
	Type        string         `json:"type"`
	FinalScores map[string]int `json:"final_scores"`
}

type PongEvent struct {
	Type string `json:"type"`
}

// ErrorEvent covers error, join_room_error and create_room_error.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func errorEvent(eventType string, err error) ErrorEvent {
	return ErrorEvent{Type: eventType, Message: err.Error()}
}
