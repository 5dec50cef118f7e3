package realtime

type SSEEvent string

const (
	SSEEventUploadStarted  SSEEvent = "UploadStarted"
	SSEEventUploadProgress SSEEvent = "UploadProgress"
	SSEEventUploadFileDone SSEEvent = "UploadFileDone"
	SSEEventUploadFinished SSEEvent = "UploadFinished"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// SessionChannel is the per-session progress channel name.
func SessionChannel(sessionID string) string {
	return "session:" + sessionID
}
