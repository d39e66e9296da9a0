package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"trivia/models"
	"trivia/services"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeConn records every frame it is sent.
type fakeConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	broken bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string {
	return c.id
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken {
		return services.ErrSendBufferFull
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) setBroken(broken bool) {
	c.mu.Lock()
	c.broken = broken
	c.mu.Unlock()
}

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	types := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var envelope struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(f, &envelope)
		types = append(types, envelope.Type)
	}
	return types
}

func (c *fakeConn) count(eventType string) int {
	n := 0
	for _, t := range c.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

// last decodes the most recent frame of eventType into v.
func (c *fakeConn) last(t *testing.T, eventType string, v any) {
	t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.frames) - 1; i >= 0; i-- {
		var envelope struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(c.frames[i], &envelope))
		if envelope.Type == eventType {
			require.NoError(t, json.Unmarshal(c.frames[i], v))
			return
		}
	}
	t.Fatalf("no %s event for %s", eventType, c.id)
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

// fakeSink records every result it receives.
type fakeSink struct {
	mu      sync.Mutex
	results []services.GameResult
	err     error
}

func (s *fakeSink) RecordScores(_ context.Context, result services.GameResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, result)
	return s.err
}

func (s *fakeSink) calls() []services.GameResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]services.GameResult, len(s.results))
	copy(out, s.results)
	return out
}

// testQuestions builds n questions whose answer is always "A".
func testQuestions(n int) []models.Question {
	questions := make([]models.Question, n)
	for i := range questions {
		questions[i] = models.Question{
			ID:            i,
			Text:          fmt.Sprintf("question %d", i),
			Options:       []string{"A", "B", "C"},
			Points:        10,
			CorrectAnswer: "A",
		}
	}
	return questions
}

type testEnv struct {
	hub  *services.Hub
	game *services.GameService
	sink *fakeSink
}

func newTestEnv(t *testing.T, questions int) *testEnv {
	t.Helper()

	logger := discardLogger()
	hub := services.NewHub(logger)
	sink := &fakeSink{}
	bank := services.NewQuestionBank(testQuestions(questions))

	return &testEnv{
		hub:  hub,
		game: services.NewGameService(hub, bank, sink, questions, logger),
		sink: sink,
	}
}

func message(t *testing.T, msgType string, payload any) services.Message {
	t.Helper()

	msg := services.Message{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		msg.Payload = raw
	}
	return msg
}

func answer(t *testing.T, index int, text string) services.Message {
	return message(t, services.MsgSubmitAnswer, map[string]any{"question_index": index, "answer": text})
}
