package bus

import (
	"context"

	"github.com/coachlens/coachlens-backend/internal/realtime"
)

// Bus fans SSE messages out across backend replicas. Each replica
// publishes progress events and forwards everything it receives to its
// local hub.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
