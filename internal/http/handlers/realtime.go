package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coachlens/coachlens-backend/internal/http/response"
	"github.com/coachlens/coachlens-backend/internal/platform/logger"
	"github.com/coachlens/coachlens-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log: log.With("handler", "RealtimeHandler"),
		hub: hub,
	}
}

// SSEStream holds the connection open and forwards events for the
// requested session channel. `session_id` is required; the stream stays
// up until the client disconnects.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Query("session_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}

	client := h.hub.NewSSEClient(uuid.Nil)
	channel := realtime.SessionChannel(sessionID.String())
	h.hub.AddChannel(client, channel)

	h.log.Info("SSE stream open", "client_id", client.ID, "channel", channel)
	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Info("SSE stream closed", "client_id", client.ID, "channel", channel)
}
