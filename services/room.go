package services

import (
	"strings"
	"sync"
	"time"

	"trivia/models"
)

// Room statuses. A room moves waiting -> active -> finished, never back.
const (
	StatusWaiting  = "waiting"
	StatusActive   = "active"
	StatusFinished = "finished"
)

// Progress is the outcome of evaluating a room after an answer or a disconnect.
type Progress int

const (
	ProgressWait Progress = iota
	ProgressAdvance
	ProgressFinalize
)

// AnswerOutcome describes an accepted answer.
type AnswerOutcome struct {
	QuestionID int
	IsCorrect  bool
	Score      int
	Finished   bool
}

// Room holds one trivia session. It does no I/O and no locking of its own
// state; callers hold mu around every read-decide-mutate-emit sequence.
type Room struct {
	ID                   string
	CreatorName          string
	HostName             string
	Players              map[string]*models.Player
	PlayerOrder          []string
	Questions            []models.Question
	CurrentQuestionIndex int
	Status               string
	CreatedAt            time.Time
	StartedAt            *time.Time
	EndedAt              *time.Time

	// departed keeps the last score of players who left a started game.
	departed map[string]int

	mu     sync.Mutex
	closed bool
}

// NewRoom builds a waiting room with the creator as its only player and host.
func NewRoom(id, creatorName string, questions []models.Question) *Room {
	r := &Room{
		ID:                   id,
		CreatorName:          creatorName,
		HostName:             creatorName,
		Players:              make(map[string]*models.Player),
		Questions:            questions,
		CurrentQuestionIndex: -1,
		Status:               StatusWaiting,
		CreatedAt:            time.Now(),
		departed:             make(map[string]int),
	}
	r.Players[creatorName] = models.NewPlayer(creatorName, len(questions))
	r.PlayerOrder = append(r.PlayerOrder, creatorName)
	return r
}

// AddPlayer admits name to a waiting room.
func (r *Room) AddPlayer(name string) (*models.Player, error) {
	if r.Status != StatusWaiting {
		return nil, ErrGameNotWaiting
	}
	if _, exists := r.Players[name]; exists {
		return nil, ErrDuplicateName
	}

	p := models.NewPlayer(name, len(r.Questions))
	r.Players[name] = p
	r.PlayerOrder = append(r.PlayerOrder, name)
	return p, nil
}

// RemovePlayer drops name from the roster. Once the game has started the
// player's score is kept for the final results.
func (r *Room) RemovePlayer(name string) bool {
	p, ok := r.Players[name]
	if !ok {
		return false
	}

	if r.Status != StatusWaiting {
		r.departed[name] = p.Score
	}
	delete(r.Players, name)

	for i, n := range r.PlayerOrder {
		if n == name {
			r.PlayerOrder = append(r.PlayerOrder[:i], r.PlayerOrder[i+1:]...)
			break
		}
	}
	return true
}

// Start moves the room to active on the host's request.
func (r *Room) Start(requester string) error {
	if requester != r.HostName {
		return ErrNotHost
	}
	if r.Status != StatusWaiting {
		return ErrGameNotWaiting
	}
	if len(r.Questions) == 0 {
		return ErrNoQuestionsAvailable
	}

	now := time.Now()
	r.Status = StatusActive
	r.CurrentQuestionIndex = 0
	r.StartedAt = &now
	return nil
}

// SubmitAnswer records name's answer for questionIndex and scores it.
func (r *Room) SubmitAnswer(name string, questionIndex int, answer string) (AnswerOutcome, error) {
	if r.Status != StatusActive {
		return AnswerOutcome{}, ErrGameNotActive
	}

	p, ok := r.Players[name]
	if !ok {
		return AnswerOutcome{}, ErrPlayerNotInRoom
	}
	if p.Finished {
		return AnswerOutcome{}, ErrPlayerFinished
	}
	if questionIndex != r.CurrentQuestionIndex {
		return AnswerOutcome{}, ErrStaleAnswer
	}
	if p.Answered(questionIndex) {
		return AnswerOutcome{}, ErrAlreadyAnswered
	}

	q := r.Questions[questionIndex]
	recorded := answer
	p.Answers[questionIndex] = &recorded

	correct := IsCorrectAnswer(answer, q.CorrectAnswer)
	if correct {
		p.Score += q.Points
	}

	if p.Complete() {
		p.Finished = true
	}

	return AnswerOutcome{
		QuestionID: q.ID,
		IsCorrect:  correct,
		Score:      p.Score,
		Finished:   p.Finished,
	}, nil
}

// IsCorrectAnswer compares ignoring case and surrounding whitespace.
func IsCorrectAnswer(given, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(correct))
}

// HostComplete reports whether the current host has answered every question.
func (r *Room) HostComplete() bool {
	host, ok := r.Players[r.HostName]
	return ok && host.Complete()
}

// Evaluate applies the synchronization barrier for an active room: players
// that are both reachable and unfinished must all have answered the current
// question. With nobody left to wait on the room finalizes.
func (r *Room) Evaluate(reachable map[string]struct{}) Progress {
	if r.Status != StatusActive {
		return ProgressWait
	}

	waiting := 0
	for name, p := range r.Players {
		if _, live := reachable[name]; !live || p.Finished {
			continue
		}
		waiting++
		if !p.Answered(r.CurrentQuestionIndex) {
			return ProgressWait
		}
	}

	if waiting == 0 {
		return ProgressFinalize
	}
	return ProgressAdvance
}

// Advance moves to the next question. It returns false when the sequence is
// exhausted; the index is left untouched in that case.
func (r *Room) Advance() (models.Question, bool) {
	if r.Status != StatusActive || r.CurrentQuestionIndex+1 >= len(r.Questions) {
		return models.Question{}, false
	}

	r.CurrentQuestionIndex++
	return r.Questions[r.CurrentQuestionIndex], true
}

// Finish marks the room finished. It reports false if it already was.
func (r *Room) Finish() bool {
	if r.Status == StatusFinished {
		return false
	}

	now := time.Now()
	r.Status = StatusFinished
	r.EndedAt = &now
	return true
}

// ElectHost picks the earliest-joined reachable player other than departing.
func (r *Room) ElectHost(departing string, reachable map[string]struct{}) (string, bool) {
	for _, name := range r.PlayerOrder {
		if name == departing {
			continue
		}
		if _, live := reachable[name]; live {
			return name, true
		}
	}
	return "", false
}

// Scores returns name -> score for the current roster.
func (r *Room) Scores() map[string]int {
	scores := make(map[string]int, len(r.Players))
	for name, p := range r.Players {
		scores[name] = p.Score
	}
	return scores
}

// FinalScores returns the scores of everyone who was in the roster after the
// game started, including players who have since left.
func (r *Room) FinalScores() map[string]int {
	scores := make(map[string]int, len(r.Players)+len(r.departed))
	for name, score := range r.departed {
		scores[name] = score
	}
	for name, p := range r.Players {
		scores[name] = p.Score
	}
	return scores
}

// State builds the client-facing snapshot; answer keys never leave here.
func (r *Room) State() RoomState {
	players := make(map[string]*models.Player, len(r.Players))
	for name, p := range r.Players {
		answers := make([]*string, len(p.Answers))
		copy(answers, p.Answers)
		players[name] = &models.Player{
			Name:     p.Name,
			Score:    p.Score,
			Answers:  answers,
			Finished: p.Finished,
		}
	}

	questions := make([]models.PublicQuestion, len(r.Questions))
	for i, q := range r.Questions {
		questions[i] = q.Public()
	}

	order := make([]string, len(r.PlayerOrder))
	copy(order, r.PlayerOrder)

	return RoomState{
		RoomID:               r.ID,
		CreatorName:          r.CreatorName,
		HostName:             r.HostName,
		Players:              players,
		Questions:            questions,
		CurrentQuestionIndex: r.CurrentQuestionIndex,
		GameStatus:           r.Status,
		PlayerOrder:          order,
	}
}

// Summary is the listing view of a room.
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		RoomID:         r.ID,
		Status:         r.Status,
		HostName:       r.HostName,
		PlayerCount:    len(r.Players),
		TotalQuestions: len(r.Questions),
		CreatedAt:      r.CreatedAt,
	}
}

type RoomSummary struct {
	RoomID         string    `json:"room_id"`
	Status         string    `json:"game_status"`
	HostName       string    `json:"host_name"`
	PlayerCount    int       `json:"player_count"`
	TotalQuestions int       `json:"total_questions"`
	CreatedAt      time.Time `json:"created_at"`
}
