package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	DefaultQuestionsPerRoom = 10

	roomIDBytes     = 3
	sinkTimeout     = 10 * time.Second
	maxRoomAttempts = 32
)

// GameService owns every live room and runs their state machines.
type GameService struct {
	rooms map[string]*Room
	mutex sync.RWMutex

	hub              *Hub
	bank             *QuestionBank
	sink             ScoreSink
	questionsPerRoom int
	logger           *slog.Logger
}

func NewGameService(hub *Hub, bank *QuestionBank, sink ScoreSink, questionsPerRoom int, logger *slog.Logger) *GameService {
	if sink == nil {
		sink = NopSink{}
	}
	if questionsPerRoom <= 0 {
		questionsPerRoom = DefaultQuestionsPerRoom
	}

	return &GameService{
		rooms:            make(map[string]*Room),
		hub:              hub,
		bank:             bank,
		sink:             sink,
		questionsPerRoom: questionsPerRoom,
		logger:           logger,
	}
}

// CreateRoom opens a waiting room with creatorName as its only player and host.
// On failure a create_room_error has already been sent to conn.
func (s *GameService) CreateRoom(ctx context.Context, conn Connection, creatorName string) (string, error) {
	questions, err := s.bank.SampleForSession(s.questionsPerRoom)
	if err != nil {
		s.hub.SendTo(conn, errorEvent(EventCreateRoomError, err))
		return "", err
	}

	s.mutex.Lock()
	roomID, err := s.generateRoomID()
	if err != nil {
		s.mutex.Unlock()
		s.hub.SendTo(conn, errorEvent(EventCreateRoomError, err))
		return "", err
	}

	// Not yet visible to anyone else, so this cannot contend.
	room := NewRoom(roomID, creatorName, questions)
	room.mu.Lock()
	s.rooms[roomID] = room
	s.mutex.Unlock()
	defer room.mu.Unlock()

	s.hub.Register(conn, roomID, creatorName)

	state := room.State()
	s.hub.SendTo(conn, JoinRoomSuccessEvent{
		Type:      EventJoinRoomSuccess,
		RoomID:    roomID,
		IsHost:    true,
		RoomState: state,
	})
	s.hub.Broadcast(roomID, RoomStateUpdateEvent{Type: EventRoomStateUpdate, RoomState: state}, conn)

	s.logger.Info("room created", "room", roomID, "host", creatorName, "questions", len(questions))
	return roomID, nil
}

// JoinRoom admits name into a waiting room. On failure nothing is registered
// and a join_room_error has already been sent to conn.
func (s *GameService) JoinRoom(ctx context.Context, conn Connection, roomID, name string) error {
	room, err := s.lockRoom(roomID)
	if err != nil {
		s.hub.SendTo(conn, errorEvent(EventJoinRoomError, err))
		return err
	}
	defer room.mu.Unlock()

	if _, err := room.AddPlayer(name); err != nil {
		s.hub.SendTo(conn, errorEvent(EventJoinRoomError, err))
		return err
	}

	s.hub.Register(conn, roomID, name)

	state := room.State()
	s.hub.SendTo(conn, JoinRoomSuccessEvent{
		Type:      EventJoinRoomSuccess,
		RoomID:    roomID,
		IsHost:    room.HostName == name,
		RoomState: state,
	})
	s.hub.Broadcast(roomID, RoomStateUpdateEvent{Type: EventRoomStateUpdate, RoomState: state}, conn)

	s.logger.Info("player joined", "room", roomID, "player", name, "players", len(room.Players))
	return nil
}

// HandleMessage dispatches a message from a player that has already joined.
// Player mistakes are answered with an error event and never change state.
func (s *GameService) HandleMessage(ctx context.Context, conn Connection, roomID, name string, msg Message) {
	switch msg.Type {
	case MsgStartGame:
		s.startGame(ctx, conn, roomID, name)

	case MsgSubmitAnswer:
		var payload SubmitAnswerPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			s.hub.SendTo(conn, errorEvent(EventError, err))
			return
		}
		index, ok := payload.index()
		if !ok || payload.Answer == nil {
			s.hub.SendTo(conn, errorEvent(EventError, ErrMalformedPayload))
			return
		}
		s.submitAnswer(ctx, conn, roomID, name, index, *payload.Answer)

	case MsgPing:
		s.hub.SendTo(conn, PongEvent{Type: EventPong})

	default:
		s.hub.SendTo(conn, errorEvent(EventError, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)))
	}
}

func (s *GameService) startGame(ctx context.Context, conn Connection, roomID, name string) {
	room, err := s.lockRoom(roomID)
	if err != nil {
		s.hub.SendTo(conn, errorEvent(EventError, err))
		return
	}
	defer room.mu.Unlock()

	if err := room.Start(name); err != nil {
		s.hub.SendTo(conn, errorEvent(EventError, err))
		return
	}

	s.hub.Broadcast(roomID, QuestionEvent{
		Type:           EventGameStarted,
		Question:       room.Questions[0].Public(),
		QuestionNumber: 1,
		TotalQuestions: len(room.Questions),
	}, nil)

	s.logger.Info("game started", "room", roomID, "host", name, "players", len(room.Players))
}

func (s *GameService) submitAnswer(ctx context.Context, conn Connection, roomID, name string, index int, answer string) {
	room, err := s.lockRoom(roomID)
	if err != nil {
		s.hub.SendTo(conn, errorEvent(EventError, err))
		return
	}
	defer room.mu.Unlock()

	outcome, err := room.SubmitAnswer(name, index, answer)
	if err != nil {
		s.logger.Debug("answer rejected", "room", roomID, "player", name, "index", index, "error", err)
		s.hub.SendTo(conn, errorEvent(EventError, err))
		return
	}

	s.hub.SendTo(conn, AnswerResultEvent{
		Type:       EventAnswerResult,
		QuestionID: outcome.QuestionID,
		IsCorrect:  outcome.IsCorrect,
		YourScore:  outcome.Score,
	})
	s.hub.Broadcast(roomID, ScoreUpdateEvent{Type: EventScoreUpdate, Scores: room.Scores()}, nil)

	if outcome.Finished {
		s.logger.Debug("player finished", "room", roomID, "player", name)
	}

	// Only the host's own last answer ends the game early.
	if name == room.HostName && room.HostComplete() {
		s.logger.Info("host completed every question", "room", roomID, "host", name)
		s.finalize(ctx, room)
		return
	}

	s.progress(ctx, room)
}

// HandleDisconnect removes a departed connection's player from its room and
// lets the room recover: host migration, roster update, barrier.
func (s *GameService) HandleDisconnect(ctx context.Context, conn Connection, roomID, name string) {
	s.hub.Unregister(conn, roomID)

	room, err := s.lockRoom(roomID)
	if err != nil {
		return
	}
	defer room.mu.Unlock()

	reachable := s.hub.ListNames(roomID)

	if name == room.HostName && room.Status != StatusFinished {
		if next, ok := room.ElectHost(name, reachable); ok {
			room.HostName = next
			s.logger.Info("host migrated", "room", roomID, "from", name, "to", next)
		} else if room.Status == StatusActive {
			room.RemovePlayer(name)
			s.logger.Info("host left an empty room", "room", roomID)
			s.finalize(ctx, room)
			return
		}
	}

	room.RemovePlayer(name)
	s.logger.Info("player left", "room", roomID, "player", name, "status", room.Status)

	// Finished rooms are kept; only an abandoned waiting room is dropped.
	if room.Status == StatusWaiting && len(reachable) == 0 {
		s.removeRoom(room)
		s.logger.Info("room closed", "room", roomID)
		return
	}

	s.hub.Broadcast(roomID, RoomStateUpdateEvent{Type: EventRoomStateUpdate, RoomState: room.State()}, conn)

	if room.Status == StatusActive {
		s.progress(ctx, room)
	}
}

// progress applies the answer barrier. Caller holds room.mu.
func (s *GameService) progress(ctx context.Context, room *Room) {
	if room.Status != StatusActive {
		return
	}

	switch room.Evaluate(s.hub.ListNames(room.ID)) {
	case ProgressWait:
		return

	case ProgressFinalize:
		s.finalize(ctx, room)

	case ProgressAdvance:
		q, ok := room.Advance()
		if !ok {
			s.finalize(ctx, room)
			return
		}

		s.hub.Broadcast(room.ID, QuestionEvent{
			Type:           EventNewQuestion,
			Question:       q.Public(),
			QuestionNumber: room.CurrentQuestionIndex + 1,
			TotalQuestions: len(room.Questions),
		}, nil)
		s.logger.Debug("question advanced", "room", room.ID, "index", room.CurrentQuestionIndex)
	}
}

// finalize ends the game once, hands the scores to the sink and announces the
// result. Caller holds room.mu.
func (s *GameService) finalize(ctx context.Context, room *Room) {
	if !room.Finish() {
		return
	}

	scores := room.FinalScores()
	result := GameResult{
		RoomID:         room.ID,
		HostName:       room.HostName,
		TotalQuestions: len(room.Questions),
		StartedAt:      room.StartedAt,
		EndedAt:        *room.EndedAt,
		Scores:         scores,
	}

	// The triggering connection may be going away; the write must not be.
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	if err := s.sink.RecordScores(sinkCtx, result); err != nil {
		var perr *PersistenceError
		if !errors.As(err, &perr) {
			err = &PersistenceError{RoomID: room.ID, Err: err}
		}
		s.logger.Error("record scores", "room", room.ID, "error", err)
	}

	s.hub.Broadcast(room.ID, GameOverEvent{Type: EventGameOver, FinalScores: scores}, nil)
	s.logger.Info("game finished", "room", room.ID, "players", len(scores))
}

// ActiveRooms lists every room the service currently holds, newest first.
func (s *GameService) ActiveRooms() []RoomSummary {
	s.mutex.RLock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	s.mutex.RUnlock()

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		room.mu.Lock()
		if !room.closed {
			summaries = append(summaries, room.Summary())
		}
		room.mu.Unlock()
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries
}

func (s *GameService) RoomExists(roomID string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	_, ok := s.rooms[roomID]
	return ok
}

// RoomState returns a snapshot of one room.
func (s *GameService) RoomState(roomID string) (RoomState, error) {
	room, err := s.lockRoom(roomID)
	if err != nil {
		return RoomState{}, err
	}
	defer room.mu.Unlock()

	return room.State(), nil
}

// lockRoom looks roomID up and returns it locked. A room removed while the
// caller waited for its lock is reported as not found.
func (s *GameService) lockRoom(roomID string) (*Room, error) {
	s.mutex.RLock()
	room, ok := s.rooms[roomID]
	s.mutex.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	if room.closed {
		room.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// removeRoom drops room from the registry. Caller holds room.mu.
func (s *GameService) removeRoom(room *Room) {
	room.closed = true

	s.mutex.Lock()
	if s.rooms[room.ID] == room {
		delete(s.rooms, room.ID)
	}
	s.mutex.Unlock()
}

// generateRoomID returns an unused 6 character code. Caller holds s.mutex.
func (s *GameService) generateRoomID() (string, error) {
	bytes := make([]byte, roomIDBytes)
	for range maxRoomAttempts {
		if _, err := rand.Read(bytes); err != nil {
			return "", fmt.Errorf("generate room id: %w", err)
		}

		id := strings.ToUpper(hex.EncodeToString(bytes))
		if _, taken := s.rooms[id]; !taken {
			return id, nil
		}
	}
	return "", errors.New("generate room id: no free id")
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return ErrMalformedPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}
