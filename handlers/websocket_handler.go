package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/Dosada05/tournament-arena/hub"
	"github.com/Dosada05/tournament-arena/services"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub         *hub.Hub
	tournaments services.TournamentService
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewWebSocketHandler принимает upgrade только с перечисленных origin; "*" разрешает любой.
func NewWebSocketHandler(h *hub.Hub, ts services.TournamentService, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         h,
		tournaments: ts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.Named("ws"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		// same-origin пропускаем всегда
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// ServeWs подключает клиента к комнате турнира: /ws/tournaments/{tournamentID}
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if _, err := h.tournaments.Get(r.Context(), actorFromRequest(r), tournamentID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой
		h.logger.Warn("websocket upgrade failed", zap.String("tournament_id", tournamentID), zap.Error(err))
		return
	}
	h.hub.Attach(conn, tournamentID)
	h.logger.Debug("websocket client attached", zap.String("tournament_id", tournamentID))
}
