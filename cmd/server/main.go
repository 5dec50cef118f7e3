package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coachlens/coachlens-backend/internal/data/db"
	feedbackrepo "github.com/coachlens/coachlens-backend/internal/data/repos/feedback"
	sessionrepo "github.com/coachlens/coachlens-backend/internal/data/repos/sessions"
	httpx "github.com/coachlens/coachlens-backend/internal/http"
	httpH "github.com/coachlens/coachlens-backend/internal/http/handlers"
	"github.com/coachlens/coachlens-backend/internal/platform/envutil"
	"github.com/coachlens/coachlens-backend/internal/platform/gcp"
	"github.com/coachlens/coachlens-backend/internal/platform/logger"
	"github.com/coachlens/coachlens-backend/internal/realtime"
	"github.com/coachlens/coachlens-backend/internal/realtime/bus"
	"github.com/coachlens/coachlens-backend/internal/services"
	"github.com/coachlens/coachlens-backend/internal/uploads"
)

func main() {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	thePG := postgresService.DB()
	if err := db.AutoMigrateAll(thePG); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}

	// Repos
	sessionRepo := sessionrepo.NewSessionRepo(thePG, log)
	sessionFileRepo := sessionrepo.NewSessionFileRepo(thePG, log)
	feedbackRepo := feedbackrepo.NewFeedbackRepo(thePG, log)

	// Realtime: local hub, plus a redis bus when configured so progress
	// events reach clients attached to other replicas.
	sseHub := realtime.NewSSEHub(log)
	emit := localEmitter(sseHub)
	sseBus, err := bus.NewRedisBus(log)
	if err != nil {
		log.Warn("Redis SSE bus unavailable, events stay replica-local", "error", err)
	} else {
		defer sseBus.Close()
		if err := sseBus.StartForwarder(ctx, sseHub.Broadcast); err != nil {
			log.Warn("Redis SSE forwarder failed to start", "error", err)
		} else {
			emit = busEmitter(log, sseBus)
		}
	}

	// Object storage
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Fatal("Could not init BucketService", "error", err)
	}

	// Upload policy
	policy := uploads.DefaultPolicy()
	if path := envutil.String("UPLOAD_POLICY_PATH", ""); path != "" {
		policy, err = uploads.LoadPolicy(path)
		if err != nil {
			log.Fatal("Could not load upload policy", "error", err, "path", path)
		}
	}

	// Services
	feedbackService := services.NewFeedbackService(thePG, log, feedbackRepo)
	uploadService := services.NewUploadService(thePG, log, policy, bucketService, sessionRepo, sessionFileRepo, emit)

	// Handlers
	healthHandler := httpH.NewHealthHandler()
	sessionHandler := httpH.NewSessionHandler(log, uploadService, sessionRepo, sessionFileRepo)
	feedbackHandler := httpH.NewFeedbackHandler(log, feedbackService)
	realtimeHandler := httpH.NewRealtimeHandler(log, sseHub)

	srv := httpx.NewServer(httpx.RouterConfig{
		Log:             log,
		HealthHandler:   healthHandler,
		SessionHandler:  sessionHandler,
		FeedbackHandler: feedbackHandler,
		RealtimeHandler: realtimeHandler,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := srv.Run(ctx, ":"+port); err != nil {
		log.Fatal("Server failed", "error", err)
	}
	log.Info("Server stopped")
}

// localEmitter broadcasts straight to the in-process hub.
func localEmitter(hub *realtime.SSEHub) services.Emitter {
	return func(_ context.Context, msg realtime.SSEMessage) {
		hub.Broadcast(msg)
	}
}

// busEmitter publishes through redis; the forwarder delivers to every
// replica's hub, including our own.
func busEmitter(log *logger.Logger, b bus.Bus) services.Emitter {
	return func(ctx context.Context, msg realtime.SSEMessage) {
		if err := b.Publish(ctx, msg); err != nil {
			log.Warn("SSE publish failed", "error", err, "channel", msg.Channel)
		}
	}
}
