package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"trivia/services"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

type GameHandler struct {
	gameService *services.GameService
	hub         *services.Hub
	publicURL   string
	logger      *slog.Logger
}

// NewGameHandler serves the live room endpoints. publicURL is the base join
// link encoded into QR codes; when empty it is derived from the request.
func NewGameHandler(gameService *services.GameService, hub *services.Hub, publicURL string, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		hub:         hub,
		publicURL:   strings.TrimRight(publicURL, "/"),
		logger:      logger,
	}
}

func (h *GameHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"rooms":           h.gameService.ActiveRooms(),
		"connected_rooms": h.hub.RoomCount(),
	})
}

func (h *GameHandler) GetRoom(c *gin.Context) {
	roomID := strings.ToUpper(strings.TrimSpace(c.Param("roomId")))

	state, err := h.gameService.RoomState(roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room_state":  state,
		"connections": h.hub.ConnectionCount(roomID),
	})
}

// RoomQR renders a PNG QR code of the room's join link.
func (h *GameHandler) RoomQR(c *gin.Context) {
	roomID := strings.ToUpper(strings.TrimSpace(c.Param("roomId")))
	if !h.gameService.RoomExists(roomID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	link := h.joinLink(c.Request, roomID)
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		h.logger.Error("encode qr", "room", roomID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "QR generation failed"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func (h *GameHandler) joinLink(r *http.Request, roomID string) string {
	base := h.publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}

	return base + "/?room=" + url.QueryEscape(roomID)
}
