package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"petbuddy-realtime/internal/api"
	"petbuddy-realtime/internal/booking"
	"petbuddy-realtime/internal/chat"
	"petbuddy-realtime/internal/config"
	"petbuddy-realtime/internal/database"
	"petbuddy-realtime/internal/identity"
	"petbuddy-realtime/internal/location"
	"petbuddy-realtime/internal/message"
	"petbuddy-realtime/internal/metrics"
	"petbuddy-realtime/internal/realtime"
	"petbuddy-realtime/internal/room"
	"petbuddy-realtime/internal/security"
	"petbuddy-realtime/internal/signaling"
	"petbuddy-realtime/internal/websocket"
)

// app is the wired process: every component plus the HTTP handler in front of them.
type app struct {
	cfg     *config.ServerConfig
	mongo   *database.MongoDB
	manager *websocket.Manager
	hub     *realtime.Hub
	handler http.Handler
}

func newApp(ctx context.Context, cm *config.ConfigManager) (*app, error) {
	cfg := cm.GetConfig()
	var m *metrics.Metrics
	if cfg.EnableMetrics {
		m = metrics.New()
	}

	a := &app{cfg: cfg}
	var (
		messages message.Repository
		bookings booking.Repository
	)
	switch cfg.Storage {
	case config.StorageMongo:
		db, err := database.NewMongoDB(ctx, &database.MongoConfig{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			ConnectTimeout: cfg.MongoConnectTimeout,
			PingTimeout:    cfg.MongoOpTimeout,
			MaxPoolSize:    100,
			MinPoolSize:    5,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := db.CreateIndexes(ctx); err != nil {
			db.Close(context.Background())
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		a.mongo = db
		messages = message.NewMongoRepository(db)
		bookings = booking.NewMongoRepository(db)
	default:
		log.Println("⚠️ Using in-memory storage, data is lost on restart")
		messages = message.NewInMemoryRepository()
		bookings = booking.NewInMemoryRepository()
	}

	resolver := identity.NewJWTResolver(cfg.JWTSecret, cfg.TokenTTL)
	validator := security.NewInputValidator(cfg)

	a.manager = websocket.NewManager(cfg, m)
	registry := room.NewRegistry(a.manager)
	relay := chat.NewRelay(registry, messages, m, cfg.HistoryLimit)

	a.hub = realtime.NewHub(ctx, cfg, realtime.Deps{
		Manager:     a.manager,
		Registry:    registry,
		Relay:       relay,
		Calls:       signaling.NewCoordinator(registry, m),
		Location:    location.NewGlobalBroadcaster(a.manager, m),
		Resolver:    resolver,
		Validator:   validator,
		Metrics:     m,
		CheckOrigin: security.OriginChecker(cfg.CORSOrigins),
	})

	a.handler = api.NewRouter(api.Dependencies{
		Hub:           a.hub,
		Relay:         relay,
		Bookings:      booking.NewService(bookings, m),
		Resolver:      resolver,
		Validator:     validator,
		Metrics:       m,
		CORSOrigins:   cfg.CORSOrigins,
		ConfigSummary: cm.GetConfigSummary,
	})
	return a, nil
}

// applyConfig takes over the settings that can change while running.
func (a *app) applyConfig(cfg *config.ServerConfig) {
	a.manager.SetMaxConnections(cfg.MaxConnections)
	log.Printf("⚙️ Max connections now %d", cfg.MaxConnections)
}

func (a *app) close(ctx context.Context) {
	if a.mongo == nil {
		return
	}
	if err := a.mongo.Close(ctx); err != nil {
		log.Printf("❌ Failed to close MongoDB: %v", err)
	}
}
