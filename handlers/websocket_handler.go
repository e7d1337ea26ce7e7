package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Dosada05/futside/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin,
		// чтобы разрешать подключения только с доверенных доменов.
		return true // Для разработки разрешаем все
	},
}

type WebSocketHandler struct {
	hub    *realtime.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// ServeRegion транслирует события нового матча для города.
// Подключение: /ws/region/{city}.
func (h *WebSocketHandler) ServeRegion(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	if city == "" {
		http.Error(w, "missing city", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade region websocket", slog.Any("error", err))
		return
	}

	topic := realtime.RegionTopic(city)
	h.hub.Subscribe(conn, topic.Name)

	h.logger.Debug("region websocket client connected", slog.String("room", topic.Name))
}

// ServeMatch транслирует события лобби и live-счёт одного матча.
// Подключение: /ws/matches/{matchID} — клиент получает обе ленты.
func (h *WebSocketHandler) ServeMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade match websocket", slog.Any("error", err))
		return
	}

	lobby := realtime.MatchLobbyTopic(matchID)
	live := realtime.MatchLiveTopic(matchID)
	h.hub.Subscribe(conn, lobby.Name, live.Name)

	h.logger.Debug("match websocket client connected",
		slog.String("lobby", lobby.Name), slog.String("live", live.Name))
}
