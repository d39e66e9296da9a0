package routes

import (
	"net/http"

	"trivia/handlers"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	rankingHandler *handlers.RankingHandler,
	gameHandler *handlers.GameHandler,
	wsHandler *handlers.WebSocketHandler,
) {
	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}

	api := router.Group("/api/v1")
	{
		api.GET("/health", health)

		ranking := api.Group("/ranking")
		{
			ranking.GET("", rankingHandler.GetRanking)
			ranking.GET("/top", rankingHandler.GetTop)
		}

		api.GET("/games/:roomId", rankingHandler.GetGame)

		rooms := api.Group("/rooms")
		{
			rooms.GET("", gameHandler.ListRooms)
			rooms.GET("/:roomId", gameHandler.GetRoom)
			rooms.GET("/:roomId/qr", gameHandler.RoomQR)
		}
	}

	// WebSocket endpoint; the player name comes from the path or ?name=
	router.GET("/ws", wsHandler.Serve)
	router.GET("/ws/:playerName", wsHandler.Serve)

	router.GET("/health", health)
}
