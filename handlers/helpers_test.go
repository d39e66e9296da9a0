package handlers_test

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"trivia/handlers"
	"trivia/models"
	"trivia/routes"
	"trivia/services"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testQuestions(n int) []models.Question {
	questions := make([]models.Question, 0, n)
	for i := range n {
		questions = append(questions, models.Question{
			ID:            i + 1,
			Text:          fmt.Sprintf("Question %d?", i+1),
			Options:       []string{"A", "B", "C"},
			Points:        10,
			CorrectAnswer: "A",
		})
	}
	return questions
}

type testServer struct {
	router  *gin.Engine
	hub     *services.Hub
	service *services.GameService
}

// newTestServer wires the live room endpoints over an in-memory game. The
// ranking routes are backed by store and top.
func newTestServer(t *testing.T, store handlers.RankingStore, top handlers.TopScores) *testServer {
	t.Helper()

	logger := discardLogger()
	hub := services.NewHub(logger)
	service := services.NewGameService(hub, services.NewQuestionBank(testQuestions(3)), nil, 3, logger)

	router := gin.New()
	routes.SetupRoutes(router,
		handlers.NewRankingHandler(store, top, logger),
		handlers.NewGameHandler(service, hub, "https://trivia.example.com", logger),
		handlers.NewWebSocketHandler(service, hub, nil, logger),
	)

	return &testServer{router: router, hub: hub, service: service}
}

// fakeConn discards everything it is sent.
type fakeConn struct {
	id string
}

func (c *fakeConn) ID() string {
	return c.id
}

func (c *fakeConn) Send([]byte) error {
	return nil
}
