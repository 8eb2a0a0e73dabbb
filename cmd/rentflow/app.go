package main

import (
	"context"
	"database/sql"
	"fmt"

	"rentflow/internal/config"
	"rentflow/internal/database"
	"rentflow/internal/events"
	"rentflow/internal/logger"
	"rentflow/internal/repository"
	"rentflow/internal/seed"
	"rentflow/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// app holds everything a command needs. Commands build one, use it and
// close it.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *sql.DB
	redis     *redis.Client
	mqtt      *events.MQTTPublisher
	store     repository.Store
	publisher events.Publisher
	clock     service.Clock
	portal    *service.Portal
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log, err := logger.New(cfg.Log, "rentflow")
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	a := &app{cfg: cfg, logger: log, clock: service.SystemClock{}}

	if cfg.DBEnabled {
		db, err := database.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.store = repository.NewPostgresStore(db)
		log.Info("Using PostgreSQL store", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
	} else {
		a.store = repository.NewMemoryStore()
		log.Info("DB disabled, using in-memory store")
	}

	a.publisher = a.buildPublisher()

	identity := service.NewIdentityService(a.store, service.BcryptVerifier{Cost: bcrypt.DefaultCost}, a.clock, a.publisher, log)
	inventory := service.NewInventoryService(a.store, a.clock, a.publisher, log)
	appointments := service.NewAppointmentService(a.store, a.clock, a.publisher, log)
	messaging := service.NewMessagingService(a.store, a.clock, a.publisher, log)
	a.portal = service.NewPortal(identity, inventory, appointments, messaging, log)

	// the memory store starts empty on every run
	if !cfg.DBEnabled {
		if _, err := a.seeder().Run(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to seed memory store: %w", err)
		}
	}
	return a, nil
}

// buildPublisher fans events out to every configured sink. A sink that
// cannot be reached is logged and skipped.
func (a *app) buildPublisher() events.Publisher {
	var sinks events.Multi
	if a.cfg.Events.Enabled {
		a.redis = events.NewRedisClient(&a.cfg.Redis)
		sinks = append(sinks, events.NewRedisStreamPublisher(a.redis, a.cfg.Events.Stream))
		a.logger.Info("Publishing events to Redis stream", zap.String("stream", a.cfg.Events.Stream))
	}
	if a.cfg.MQTT.Enabled {
		client, err := events.NewMQTTClient(&a.cfg.MQTT)
		if err != nil {
			a.logger.Warn("MQTT enabled but connection failed, events will not be published to MQTT", zap.Error(err))
		} else {
			a.mqtt = events.NewMQTTPublisher(client, a.cfg.MQTT.TopicPrefix, a.cfg.MQTT.QoS)
			sinks = append(sinks, a.mqtt)
			a.logger.Info("Publishing events to MQTT", zap.String("broker", a.cfg.MQTT.Broker))
		}
	}
	switch len(sinks) {
	case 0:
		return events.Nop{}
	case 1:
		return sinks[0]
	}
	return sinks
}

func (a *app) seeder() *seed.Seeder {
	return seed.New(a.store, a.portal, a.clock, a.logger)
}

func (a *app) close() {
	if a.mqtt != nil {
		a.mqtt.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
