package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"unicode/utf8"

	"trivia/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const maxNameLength = 32

// WebSocketHandler upgrades player connections and runs their session loop.
type WebSocketHandler struct {
	gameService *services.GameService
	hub         *services.Hub
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewWebSocketHandler accepts upgrades from allowedOrigins; an empty list or
// "*" allows any origin.
func NewWebSocketHandler(gameService *services.GameService, hub *services.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	anyOrigin := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")

	return &WebSocketHandler{
		gameService: gameService,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return anyOrigin || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
		logger: logger,
	}
}

// ValidateName trims name and checks its length.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", services.ErrInvalidName
	}
	return name, nil
}

func (h *WebSocketHandler) Serve(c *gin.Context) {
	raw := c.Param("playerName")
	if raw == "" {
		raw = c.Query("name")
	}

	name, err := ValidateName(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Player name must be 1 to 32 characters"})
		return
	}

	socket, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "player", name, "error", err)
		return
	}

	client := services.NewClient(socket, h.logger)
	go client.WritePump()

	h.logger.Debug("websocket connected", "player", name, "conn", client.ID(), "remote", c.ClientIP())
	h.session(c.Request.Context(), client, name)
}

// session reads until the connection drops. Before joining only room
// creation and joining are accepted; afterwards everything goes to the game.
func (h *WebSocketHandler) session(ctx context.Context, client *services.Client, name string) {
	defer client.Close()

	var roomID string
	defer func() {
		if roomID != "" {
			h.gameService.HandleDisconnect(context.WithoutCancel(ctx), client, roomID, name)
		}
	}()

	for {
		data, err := client.Read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "player", name, "room", roomID, "error", err)
			}
			return
		}

		var msg services.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(client, services.EventError, services.ErrMalformedPayload)
			continue
		}

		if roomID != "" {
			switch msg.Type {
			case services.MsgCreateRoom, services.MsgJoinRoom:
				h.sendError(client, services.EventError, services.ErrAlreadyJoined)
			default:
				h.gameService.HandleMessage(ctx, client, roomID, name, msg)
			}
			continue
		}

		switch msg.Type {
		case services.MsgCreateRoom:
			id, err := h.gameService.CreateRoom(ctx, client, name)
			if err != nil {
				h.logger.Warn("create room failed", "player", name, "error", err)
				return
			}
			roomID = id

		case services.MsgJoinRoom:
			var payload services.JoinRoomPayload
			if len(msg.Payload) > 0 {
				if err := json.Unmarshal(msg.Payload, &payload); err != nil {
					h.sendError(client, services.EventJoinRoomError, services.ErrMalformedPayload)
					continue
				}
			}
			target := strings.ToUpper(strings.TrimSpace(payload.RoomID))
			if target == "" {
				h.sendError(client, services.EventJoinRoomError, services.ErrMissingRoomID)
				continue
			}
			if err := h.gameService.JoinRoom(ctx, client, target, name); err != nil {
				h.logger.Debug("join room failed", "player", name, "room", target, "error", err)
				continue
			}
			roomID = target

		case services.MsgPing:
			h.hub.SendTo(client, services.PongEvent{Type: services.EventPong})

		default:
			h.sendError(client, services.EventError, services.ErrNotJoined)
		}
	}
}

func (h *WebSocketHandler) sendError(client *services.Client, eventType string, err error) {
	h.hub.SendTo(client, services.ErrorEvent{Type: eventType, Message: err.Error()})
}
