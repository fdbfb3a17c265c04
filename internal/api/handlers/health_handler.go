package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/veltamail/veltamail-backend/internal/websocket"
)

// HealthHandler serves the liveness and readiness probes. Liveness covers the
// message store; readiness additionally reports the notifier's connection
// count so operators can see fan-out load per instance.
type HealthHandler struct {
	db  *gorm.DB
	hub *websocket.Hub
}

// NewHealthHandler creates a HealthHandler. hub may be nil for processes
// running without the real-time notifier.
func NewHealthHandler(db *gorm.DB, hub *websocket.Hub) *HealthHandler {
	return &HealthHandler{db: db, hub: hub}
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// ReadyResponse is the readiness payload. WSConnections counts live WebSocket
// connections attached to this instance's hub, registered or not.
type ReadyResponse struct {
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	WSConnections int    `json:"ws_connections"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	services := make(map[string]string)
	status := "healthy"

	if err := h.pingDatabase(); err != nil {
		services["database"] = "unhealthy"
		status = "unhealthy"
	} else {
		services["database"] = "healthy"
	}

	if h.hub != nil {
		services["notifier"] = "running"
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, HealthResponse{
		Status:   status,
		Services: services,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c echo.Context) error {
	resp := ReadyResponse{Status: "ready"}
	if h.hub != nil {
		resp.WSConnections = h.hub.Connections()
	}

	if err := h.pingDatabase(); err != nil {
		resp.Status = "not ready"
		resp.Reason = "database ping failed"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) pingDatabase() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
