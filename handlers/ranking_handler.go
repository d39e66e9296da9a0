package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"trivia/models"
	"trivia/services"

	"github.com/gin-gonic/gin"
)

const (
	defaultRankingLimit = 10
	maxRankingLimit     = 100
)

// RankingStore is the durable score history.
type RankingStore interface {
	Ranking(ctx context.Context, skip, limit int) ([]models.Score, error)
	GameByRoom(ctx context.Context, roomID string) (*models.Game, error)
}

// TopScores is the cached all-time leaderboard.
type TopScores interface {
	Top(ctx context.Context, n int) ([]services.LeaderboardEntry, error)
}

type RankingHandler struct {
	store       RankingStore
	leaderboard TopScores
	logger      *slog.Logger
}

// NewRankingHandler builds the ranking endpoints. leaderboard may be nil when
// no cache is configured.
func NewRankingHandler(store RankingStore, leaderboard TopScores, logger *slog.Logger) *RankingHandler {
	return &RankingHandler{
		store:       store,
		leaderboard: leaderboard,
		logger:      logger,
	}
}

func (h *RankingHandler) GetRanking(c *gin.Context) {
	skip, err := queryInt(c, "skip", 0)
	if err != nil || skip < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "skip must be a non-negative integer"})
		return
	}

	limit, err := queryInt(c, "limit", defaultRankingLimit)
	if err != nil || limit < 1 || limit > maxRankingLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}

	scores, err := h.store.Ranking(c.Request.Context(), skip, limit)
	if err != nil {
		h.logger.Error("load ranking", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load ranking"})
		return
	}

	c.JSON(http.StatusOK, scores)
}

func (h *RankingHandler) GetTop(c *gin.Context) {
	if h.leaderboard == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Leaderboard not configured"})
		return
	}

	limit, err := queryInt(c, "limit", defaultRankingLimit)
	if err != nil || limit < 1 || limit > maxRankingLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}

	entries, err := h.leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("load leaderboard", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load leaderboard"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (h *RankingHandler) GetGame(c *gin.Context) {
	roomID := strings.ToUpper(strings.TrimSpace(c.Param("roomId")))
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room ID required"})
		return
	}

	game, err := h.store.GameByRoom(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
			return
		}
		h.logger.Error("load game", "room", roomID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load game"})
		return
	}

	c.JSON(http.StatusOK, game)
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
