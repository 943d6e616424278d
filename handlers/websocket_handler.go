package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/texperia/registration/auth"
	"github.com/texperia/registration/live"
	"github.com/texperia/registration/middleware"
)

type WebSocketHandler struct {
	hub      *live.Hub
	tokens   middleware.TokenValidator
	resolver middleware.ScopeResolver
	upgrader websocket.Upgrader
}

// NewWebSocketHandler разрешает подключения только с доверенных Origin.
// Запросы без Origin (не из браузера) пропускаются.
func NewWebSocketHandler(hub *live.Hub, tokens middleware.TokenValidator, resolver middleware.ScopeResolver, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return &WebSocketHandler{
		hub:      hub,
		tokens:   tokens,
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// ServeWs подключает администратора к живой ленте платежей.
// Браузер не умеет передавать заголовки при апгрейде, поэтому токен
// принимается и в query-параметре ?token=.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var err error
		if token, err = middleware.BearerToken(r); err != nil {
			unauthorizedResponse(w, r, err.Error())
			return
		}
	}

	identity, err := h.tokens.Validate(token)
	if err != nil {
		unauthorizedResponse(w, r, auth.ErrInvalidToken.Error())
		return
	}
	scope, err := h.resolver.Resolve(identity)
	if err != nil {
		forbiddenResponse(w, r, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой.
		slog.WarnContext(r.Context(), "Failed to upgrade live feed connection", slog.Any("error", err))
		return
	}

	room := live.RoomFor(scope)
	h.hub.Serve(conn, room)
	slog.InfoContext(r.Context(), "Admin joined live feed",
		slog.String("email", identity.Email),
		slog.String("room", room))
}
