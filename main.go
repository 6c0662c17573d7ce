package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"video-autopilot/domain/repository"
	"video-autopilot/infrastructure/cache"
	"video-autopilot/infrastructure/clients/generator"
	"video-autopilot/infrastructure/clients/renderer"
	youtubeclient "video-autopilot/infrastructure/clients/youtube"
	"video-autopilot/infrastructure/configuration"
	"video-autopilot/infrastructure/logger"
	"video-autopilot/infrastructure/persistence"
	"video-autopilot/infrastructure/pubsub"
	"video-autopilot/infrastructure/realtime"
	"video-autopilot/infrastructure/servicebus"
	httpHandler "video-autopilot/interfaces/http"
	"video-autopilot/server"
	"video-autopilot/usecase"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	psqlDb, mssqlDb, err := InitiateDatabase()
	if err != nil {
		// Channel and credential state live in SQL; without it the ops API
		// would be serving nil repositories.
		logger.GetLogger().WithField("error", err).Fatal("Database initialization failed - no persistence backend available")
	}

	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
		configuration.C.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without cycle audit trail")
		mongoDb = nil
	} else if err := mongoDb.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - continuing without cycle audit trail")
		mongoDb = nil
	}

	pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("PubSub not available - continuing without cycle events")
		pubSubClient = nil
	}

	azServiceBusClient, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - pause alerts will be log-only")
		azServiceBusClient = nil
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - health snapshots will not be cached")
		redisClient = nil
	}

	// Repository wiring: channels and credentials run on MSSQL in production,
	// PostgreSQL otherwise. Quota and duplicate history are PostgreSQL only
	// for now.
	var channelRepo repository.IChannel
	var credentialRepo repository.ICredential
	if psqlDb != nil {
		if err := persistence.EnsureFleetSchema(psqlDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring fleet schema")
		}
		channelRepo = persistence.NewChannelRepository(psqlDb)
		credentialRepo = persistence.NewCredentialRepository(psqlDb)
	} else if mssqlDb != nil {
		if err := persistence.EnsureChannelSchemaMSSQL(mssqlDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring channel schema (mssql)")
		}
		if err := persistence.EnsureCredentialSchemaMSSQL(mssqlDb); err != nil {
			logger.GetLogger().WithField("error", err).Error("failed ensuring credential schema (mssql)")
		}
		channelRepo = persistence.NewChannelRepositoryMSSQL(mssqlDb)
		credentialRepo = persistence.NewCredentialRepositoryMSSQL(mssqlDb)
	}

	auditRepo := persistence.NewCycleAuditRepository(mongoDb)
	statusCache := cache.NewStatusCache(redisClient, 30*time.Second)
	cycleEvents := pubsub.NewCycleEvents(pubSubClient, configuration.C.Pubsub.Topic)
	alertBus := servicebus.NewAlertBus(azServiceBusClient, configuration.C.ServiceBus.AlertQueue)
	fleetHub := realtime.NewFleetHub()

	scriptClient := generator.NewScriptClient(
		configuration.C.Generator.Host,
		configuration.C.Generator.APIKey,
		time.Duration(configuration.C.Generator.TimeoutSeconds)*time.Second,
	)
	renderClient := renderer.NewRenderClient(
		configuration.C.Renderer.Host,
		time.Duration(configuration.C.Renderer.TimeoutSeconds)*time.Second,
		time.Duration(configuration.C.Renderer.PollIntervalSec)*time.Second,
	)

	youtubeConfig, err := configuration.GetYouTubeConfig()
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("YouTube OAuth client not configured - publishing and consent flow disabled")
	}
	var publishClient *youtubeclient.PublishClient
	if youtubeConfig != nil {
		publishClient = youtubeclient.NewPublishClient(youtubeConfig)
	}

	var channelAuthHandler httpHandler.IChannelAuthHandler
	if publishClient != nil && channelRepo != nil {
		channelAuthHandler = httpHandler.NewChannelAuthHandler(publishClient.OAuthConfig(), channelRepo, credentialRepo)
	}

	// Fleet engine wiring (PostgreSQL only for now: the quota ledger and
	// duplicate history have no MSSQL backend).
	var supervisor usecase.IFleetSupervisor
	if psqlDb != nil && publishClient != nil {
		quotaRepo := persistence.NewQuotaRepository(psqlDb)
		historyRepo := persistence.NewDuplicateHistoryRepository(psqlDb)

		ledger := usecase.NewQuotaLedger(quotaRepo, configuration.C.Quota.DefaultCeiling, configuration.C.Quota.Ceilings)
		guard := usecase.NewDuplicateGuard(historyRepo, configuration.C.Duplicate.HistorySize, configuration.C.Duplicate.SimilarityThreshold)
		refresher := usecase.NewCredentialRefresher(
			credentialRepo, channelRepo, publishClient, alertBus, fleetHub,
			time.Duration(configuration.C.Refresher.ProactiveWindowHours)*time.Hour,
			configuration.C.Refresher.MaxAttempts,
			time.Duration(configuration.C.Refresher.BaseDelaySeconds)*time.Second,
		)
		scheduler := usecase.NewScheduler(
			channelRepo, auditRepo, scriptClient, renderClient, publishClient,
			guard, ledger, refresher, cycleEvents, alertBus, fleetHub,
			usecase.SchedulerOptions{
				PollInterval:       time.Duration(configuration.C.Scheduler.PollSeconds) * time.Second,
				CycleTimeout:       time.Duration(configuration.C.Scheduler.CycleTimeoutSeconds) * time.Second,
				MaxRegenerations:   configuration.C.Duplicate.MaxRegenerations,
				PauseAfterFailures: configuration.C.Scheduler.PauseAfterFailures,
				Retry:              usecase.DefaultRetryPolicy(),
			},
		)
		monitor := usecase.NewQuotaMonitor(channelRepo, ledger, fleetHub)
		supervisor = usecase.NewFleetSupervisor(
			channelRepo, scheduler, monitor, refresher, ledger, statusCache, alertBus, fleetHub,
			usecase.SupervisorOptions{
				QuotaSweepInterval:   time.Duration(configuration.C.Quota.MonitorIntervalMinutes) * time.Minute,
				RefreshSweepInterval: time.Duration(configuration.C.Refresher.PollMinutes) * time.Minute,
				StalePauseAlertAfter: time.Duration(configuration.C.Scheduler.StalePauseAlertHours) * time.Hour,
			},
		)
		g.Go(func() error { return supervisor.Run(ctx) })
	} else {
		logger.GetLogger().Info("Fleet engine disabled: requires PostgreSQL and a configured YouTube OAuth client")
	}

	channelHandler := httpHandler.NewChannelHandler(channelRepo, auditRepo, supervisor, httpHandler.CadenceBounds{
		DefaultMinutes: configuration.C.Scheduler.DefaultIntervalMinutes,
		MinMinutes:     configuration.C.Scheduler.MinIntervalMinutes,
		MaxMinutes:     configuration.C.Scheduler.MaxIntervalMinutes,
	})
	healthHandler := httpHandler.NewHealthHandler(supervisor)
	operatorHandler := httpHandler.NewOperatorHandler(app.OperatorSecret, app.SecretKey)

	router := server.InitiateRouter(channelHandler, healthHandler, operatorHandler, channelAuthHandler, fleetHub, app.SecretKey)

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			}
			if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateDatabase returns (psqlDb, mssqlDb). In production or with
// DB_VENDOR=mssql the fleet metadata lives in MSSQL and psqlDb is nil;
// otherwise PostgreSQL is the primary store.
func InitiateDatabase() (*sql.DB, *sql.DB, error) {
	env := os.Getenv("ENV")
	if v := os.Getenv("DB_VENDOR"); v == "mssql" || env == "production" || env == "prod" {
		mssql, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, nil, err
		}
		return nil, mssql, nil
	}

	postgres, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
		return nil, nil, err
	}
	return postgres, nil, nil
}
