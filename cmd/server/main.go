package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	approvalhandler "eventdesk/internal/approval/handler"
	approvalmetrics "eventdesk/internal/approval/metrics"
	"eventdesk/internal/approval/service"
	decisionstore "eventdesk/internal/approval/store/decision"
	requeststore "eventdesk/internal/approval/store/request"
	"eventdesk/internal/history"
	"eventdesk/internal/history/feed"
	jwttoken "eventdesk/internal/jwt_token"
	"eventdesk/internal/notification"
	"eventdesk/internal/platform/config"
	"eventdesk/internal/platform/httpserver"
	"eventdesk/internal/platform/kafka"
	"eventdesk/internal/platform/logger"
	"eventdesk/internal/platform/middleware"
	"eventdesk/internal/platform/postgres"
	platformredis "eventdesk/internal/platform/redis"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/idgen"
)

// main wires dependencies and owns process lifecycle. Business logic lives in
// the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		requests      service.RequestStore
		decisions     service.DecisionStore
		historyStore  history.Store
		notifications notification.Store
		ids           idgen.Allocator
		svcOpts       []service.Option
	)

	switch cfg.StoreMode {
	case config.StoreModePostgres:
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		requests = requeststore.NewPostgres(db)
		decisions = decisionstore.NewPostgres(db)
		historyStore = history.NewPostgresStore(db)
		notifications = notification.NewPostgresStore(db)
		ids = idgen.Random{}
		svcOpts = append(svcOpts, service.WithStoreTx(service.NewPostgresStoreTx(db)))
	default:
		requests = requeststore.NewInMemory()
		decisions = decisionstore.NewInMemory()
		historyStore = history.NewInMemoryStore()
		notifications = notification.NewInMemoryStore()
		ids = idgen.NewSequential()
	}

	g, ctx := errgroup.WithContext(ctx)

	recorderOpts := []history.RecorderOption{history.WithLogger(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		recorderOpts = append(recorderOpts, history.WithFeedInbox(256))
	}
	recorder := history.NewRecorder(historyStore, ids, recorderOpts...)

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer producer.Close()
		worker := history.NewWorker(recorder.Inbox(), feed.NewKafkaPublisher(producer), log)
		g.Go(func() error { return ignoreCancel(worker.Run(ctx)) })
	}

	dispatcherOpts := []notification.DispatcherOption{notification.WithLogger(log)}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		queue := notification.NewDeliveryQueue(redisClient)
		dispatcherOpts = append(dispatcherOpts, notification.WithDeliveryQueue(queue))
		deliveryWorker := notification.NewDeliveryWorker(queue, notifications, log)
		g.Go(func() error { return ignoreCancel(deliveryWorker.Run(ctx)) })
	}
	dispatcher := notification.NewDispatcher(notifications, recorder, ids, dispatcherOpts...)

	svcOpts = append(svcOpts,
		service.WithLogger(log),
		service.WithMetrics(approvalmetrics.New()),
		service.WithIDAllocator(ids),
	)
	approvals := service.New(requests, decisions, recorder, dispatcher, svcOpts...)

	router := chi.NewRouter()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.RequestTime,
		middleware.Logger(log),
	)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(actorMiddleware(cfg, log))
		approvalhandler.New(approvals, log).Register(r, middleware.RequireRole("approver"))
		notification.NewHandler(notifications, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "store_mode", string(cfg.StoreMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// actorMiddleware resolves the request actor. Postgres deployments validate
// bearer tokens; memory mode runs with the configured development identity.
func actorMiddleware(cfg config.Server, log *slog.Logger) func(http.Handler) http.Handler {
	if cfg.StoreMode == config.StoreModePostgres {
		jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "eventdesk", "eventdesk")
		return middleware.RequireAuth(jwtService, log)
	}

	actorID, err := id.ParseUserID(cfg.StaticActorID)
	if err != nil {
		actorID = id.UserID{}
	}
	return middleware.StaticActor(actorID, cfg.StaticActorName, cfg.StaticActorRole)
}

// ignoreCancel maps context cancellation to a clean exit so worker shutdown
// does not fail the errgroup.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
