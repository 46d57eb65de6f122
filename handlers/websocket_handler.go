package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Dosada05/sports-scheduling/models"
	"github.com/Dosada05/sports-scheduling/realtime"
	"github.com/Dosada05/sports-scheduling/services"
)

type WebSocketHandler struct {
	hub        *realtime.Hub
	eventYears services.EventYearProvider
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewWebSocketHandler: allowedOrigins empty or containing "*" accepts any origin.
func NewWebSocketHandler(hub *realtime.Hub, eventYears services.EventYearProvider, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub:        hub,
		eventYears: eventYears,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}

// ServeWs подписывает клиента на изменения расписания вида спорта.
// Клиент подключается к /schedulings/ws/event-schedule/{sport}?event_id=
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	sport := models.NormalizeSportName(sportParam(r))
	if sport == "" {
		errorResponse(w, r, http.StatusBadRequest, "sport is required")
		return
	}
	eventID := strings.TrimSpace(r.URL.Query().Get("event_id"))
	if eventID == "" && h.eventYears != nil {
		ey, err := h.eventYears.EventYear(r.Context(), "")
		if err != nil {
			errorResponse(w, r, http.StatusNotFound, services.ErrNoActiveEventYear.Message)
			return
		}
		eventID = ey.EventID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой.
		h.logger.Warn("websocket upgrade failed", slog.String("sport", sport), slog.Any("error", err))
		return
	}

	room := realtime.RoomID(sport, eventID)
	client := h.hub.NewClient(conn, room)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("websocket client subscribed", slog.String("room", room))
}
