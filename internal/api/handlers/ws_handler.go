package handlers

import (
	"log/slog"
	"strings"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/veltamail/veltamail-backend/internal/auth"
	"github.com/veltamail/veltamail-backend/internal/websocket"
)

// WSHandler upgrades authenticated connections and attaches them to the hub
type WSHandler struct {
	hub      *websocket.Hub
	sessions *auth.SessionManager
	upgrader gorilla.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *websocket.Hub, sessions *auth.SessionManager, upgrader gorilla.Upgrader, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:      hub,
		sessions: sessions,
		upgrader: upgrader,
		logger:   logger,
	}
}

// Connect handles GET /ws
// The session token is taken from the token query parameter or the
// Authorization header. The session fixes which mailbox the connection may
// register for; register frames for any other mailbox are refused.
func (h *WSHandler) Connect(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		header := c.Request().Header.Get("Authorization")
		token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if token == "" {
		return echo.NewHTTPError(401, map[string]string{
			"error": "session token required",
			"code":  "UNAUTHORIZED",
		})
	}

	claims, err := h.sessions.Verify(token)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("websocket session rejected",
				slog.String("ip", c.RealIP()),
				slog.Any("error", err))
		}
		return echo.NewHTTPError(401, map[string]string{
			"error": "invalid session token",
			"code":  "UNAUTHORIZED",
		})
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the error response
		return nil
	}

	client := websocket.NewClient(h.hub, conn, claims.MailboxAddress, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	return nil
}
