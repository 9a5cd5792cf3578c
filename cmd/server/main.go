package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"kycbridge/internal/audit"
	"kycbridge/internal/correlation"
	"kycbridge/internal/correlation/store/memory"
	pgStore "kycbridge/internal/correlation/store/postgres"
	redisStore "kycbridge/internal/correlation/store/redis"
	decisionHandler "kycbridge/internal/decision/handler"
	decisionMetrics "kycbridge/internal/decision/metrics"
	decisionService "kycbridge/internal/decision/service"
	"kycbridge/internal/notify"
	"kycbridge/internal/notify/infobip"
	notifyMetrics "kycbridge/internal/notify/metrics"
	"kycbridge/internal/platform/config"
	"kycbridge/internal/platform/httpserver"
	"kycbridge/internal/platform/logger"
	"kycbridge/internal/platform/metrics"
	"kycbridge/internal/platform/postgres"
	"kycbridge/internal/platform/redis"
	httptransport "kycbridge/internal/transport/http"
	verificationHandler "kycbridge/internal/verification/handler"
	verificationMetrics "kycbridge/internal/verification/metrics"
	"kycbridge/internal/verification/provider"
	verificationService "kycbridge/internal/verification/service"
	"kycbridge/pkg/platform/circuit"
)

const auditBuffer = 1024

// main wires dependencies and runs the server, the notification workers and
// the background sweepers until SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Provider.Configured() {
		log.Warn("verification provider credentials missing; /create-session will fail until VERIFF_API_KEY and VERIFF_SECRET_KEY are set")
	}
	if !cfg.Messaging.Configured() {
		log.Warn("messaging credentials missing; decision notifications will be skipped")
	}
	if !cfg.Webhook.RequireSignature {
		log.Warn("decision webhook signature verification disabled")
	}

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	tokens, err := correlation.IssuerFor(cfg.Correlation.Mode)
	if err != nil {
		return err
	}

	auditor, closeAudit, err := buildAudit(cfg, log)
	if err != nil {
		return err
	}
	defer closeAudit()

	dispatcher, err := notify.NewDispatcher(
		infobip.New(cfg.Messaging.BaseURL, cfg.Messaging.APIKey, cfg.Messaging.Sender,
			infobip.WithTimeout(cfg.Messaging.Timeout)),
		notify.WithWorkers(cfg.Notify.Workers),
		notify.WithQueueSize(cfg.Notify.QueueSize),
		notify.WithMaxAttempts(cfg.Notify.MaxAttempts),
		notify.WithBackoff(cfg.Notify.InitialBackoff, cfg.Notify.MaxBackoff),
		notify.WithBreaker(circuit.New("infobip",
			circuit.WithFailureThreshold(cfg.Notify.BreakerThreshold),
			circuit.WithSuccessThreshold(1),
			circuit.WithCooldown(cfg.Notify.BreakerCooldown),
		)),
		notify.WithDispatcherLogger(log),
		notify.WithDispatcherMetrics(notifyMetrics.New()),
	)
	if err != nil {
		return err
	}

	vSvc, err := verificationService.New(
		provider.NewClient(cfg.Provider.SessionsURL, cfg.Provider.ClientKey, cfg.Provider.SharedSecret,
			provider.WithTimeout(cfg.Provider.Timeout)),
		store,
		verificationService.WithLogger(log),
		verificationService.WithMetrics(verificationMetrics.New()),
		verificationService.WithAuditPublisher(auditor),
		verificationService.WithTokenIssuer(tokens),
		verificationService.WithRetention(cfg.Correlation.TTL),
		verificationService.WithCallbackURL(cfg.Provider.CallbackURL),
		verificationService.WithDocumentType(cfg.Provider.DocumentType),
	)
	if err != nil {
		return err
	}

	dSvc, err := decisionService.New(store, dispatcher,
		decisionService.WithLogger(log),
		decisionService.WithMetrics(decisionMetrics.New()),
		decisionService.WithAuditPublisher(auditor),
		decisionService.WithSignatureVerification(cfg.Webhook.Secret, cfg.Webhook.RequireSignature),
		decisionService.WithDedupe(cfg.Webhook.Dedupe),
		decisionService.WithOpaqueTokens(tokens.Opaque()),
		decisionService.WithHandledTTL(cfg.Correlation.TTL),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:  log,
		Metrics: metrics.New(),
		Health:  store,
		Handlers: []httptransport.RouteRegistrar{
			verificationHandler.New(vSvc, log),
			decisionHandler.New(dSvc, log),
		},
		MetricsHandler: metrics.Handler(),
	})
	srv := httpserver.New(cfg.Addr, router)

	// Workers outlive the server so requests still draining can enqueue.
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting kycbridge", "addr", cfg.Addr, "correlation_mode", cfg.Correlation.Mode, "correlation_store", cfg.Correlation.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return shutdownInOrder(cfg.ShutdownTimeout, srv.Shutdown, stopWorkers)
	})
	g.Go(func() error {
		return dispatcher.Run(workersCtx)
	})
	if cfg.Correlation.Store != config.StoreRedis {
		sweeper := correlation.NewSweeper(store, cfg.Correlation.SweepInterval, log)
		g.Go(func() error {
			return ignoreCanceled(sweeper.Run(gctx))
		})
	}
	if w, ok := auditor.(*audit.Worker); ok {
		g.Go(func() error {
			return w.Run(workersCtx)
		})
	}
	return g.Wait()
}

// openStore selects the correlation backend.
func openStore(ctx context.Context, cfg config.Server, log *slog.Logger) (correlation.Store, func(), error) {
	switch cfg.Correlation.Store {
	case config.StoreRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Info("correlation store: redis")
		return redisStore.NewRedis(client.Client), func() { _ = client.Close() }, nil
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		s := pgStore.NewPostgres(db)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure correlation schema: %w", err)
		}
		log.Info("correlation store: postgres")
		return s, func() { _ = db.Close() }, nil
	default:
		log.Info("correlation store: memory")
		return memory.New(memory.WithMaxEntries(cfg.Correlation.MaxEntries)), func() {}, nil
	}
}

// buildAudit always logs; Kafka is added behind an async worker when brokers
// are configured.
func buildAudit(cfg config.Server, log *slog.Logger) (audit.Publisher, func(), error) {
	logPub := audit.NewLogPublisher(log)
	if !cfg.Kafka.Enabled() {
		return logPub, func() {}, nil
	}
	kafka, err := audit.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	log.Info("audit events published to kafka", "topic", cfg.Kafka.AuditTopic)
	return audit.NewWorker(audit.Fanout{logPub, kafka}, auditBuffer, log), kafka.Close, nil
}

// shutdownInOrder waits for in-flight requests before stopping the workers
// they enqueue into. Workers are stopped even when shutdown times out.
func shutdownInOrder(timeout time.Duration, shutdown func(context.Context) error, stopWorkers context.CancelFunc) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	defer stopWorkers()
	return shutdown(ctx)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
