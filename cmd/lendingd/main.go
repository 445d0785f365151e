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

	"go.opentelemetry.io/otel"

	"github.com/bibbank/installment-lending/internal/application/usecase"
	"github.com/bibbank/installment-lending/internal/infrastructure/config"
	"github.com/bibbank/installment-lending/internal/infrastructure/kafka"
	pgRepo "github.com/bibbank/installment-lending/internal/infrastructure/postgres"
	grpcPresentation "github.com/bibbank/installment-lending/internal/presentation/grpc"
	"github.com/bibbank/installment-lending/internal/presentation/rest"
	"github.com/bibbank/installment-lending/pkg/auth"
	pkgkafka "github.com/bibbank/installment-lending/pkg/kafka"
	"github.com/bibbank/installment-lending/pkg/observability"
	pkgpostgres "github.com/bibbank/installment-lending/pkg/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: cfg.ServiceName,
	})

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("installment-lending stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("installment-lending stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("starting installment-lending",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
	)

	// Tracing is optional: no endpoint, no exporter.
	if cfg.Tracing.Endpoint != "" {
		shutdown, err := observability.InitTracer(ctx, observability.TracingConfig{
			ServiceName: cfg.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }() //nolint:errcheck // best-effort tracer shutdown
		}
	}

	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: cfg.ServiceName})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() { _ = meterProvider.Shutdown(context.Background()) }() //nolint:errcheck // best-effort flush

	metrics, err := usecase.NewMetrics(otel.Meter("installment-lending"))
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// Database connection and schema.
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()

	pool, err := pkgpostgres.NewPool(dbCtx, cfg.DB)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	version, err := pgRepo.Migrate(cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("schema migrated", "version", version)

	// Wire infrastructure adapters.
	loanRepo := pgRepo.NewLoanRepo(pool)
	customerRepo := pgRepo.NewCustomerRepo(pool)
	processedPayments := pgRepo.NewProcessedPaymentRepo(pool)
	outboxRepo := pgRepo.NewOutboxRepo(pool)
	transactor := pkgpostgres.NewTransactor(pool)

	producer, err := pkgkafka.NewProducer(cfg.Kafka.Config)
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}
	defer producer.Close()
	publisher := kafka.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic, logger)

	// Wire use cases.
	originateUC := usecase.NewOriginateLoanUseCase(loanRepo, customerRepo, transactor, cfg.Policy, metrics, logger, nil)
	settleUC := usecase.NewSettlePaymentUseCase(loanRepo, customerRepo, processedPayments, transactor, cfg.Policy.Allocation, metrics, logger, nil)
	relayUC := usecase.NewRelayOutboxUseCase(outboxRepo, publisher, transactor, cfg.Outbox.BatchSize, logger)
	getLoanUC := usecase.NewGetLoanUseCase(loanRepo)
	listLoansUC := usecase.NewListCustomerLoansUseCase(customerRepo, loanRepo)
	installmentsUC := usecase.NewListLoanInstallmentsUseCase(loanRepo)

	jwtSvc, err := auth.NewJWTService(cfg.JWT)
	if err != nil {
		return fmt.Errorf("initialize JWT service: %w", err)
	}

	// gRPC server.
	handler := grpcPresentation.NewLendingHandler(originateUC, settleUC, getLoanUC, listLoansUC, installmentsUC)
	grpcServer, err := grpcPresentation.NewServer(handler, logger, jwtSvc, grpcPresentation.ServerOptions{
		TLSCertFile: cfg.TLS.CertFile,
		TLSKeyFile:  cfg.TLS.KeyFile,
		Reflection:  cfg.GRPCReflection,
	})
	if err != nil {
		return fmt.Errorf("create gRPC server: %w", err)
	}

	// HTTP server (health checks and metrics).
	mux := http.NewServeMux()
	rest.NewHealthHandler(cfg.ServiceName, map[string]rest.ReadinessCheck{
		"postgres": pkgpostgres.ReadinessCheck(pool),
	}, metricsHandler, logger).RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start servers, the outbox relay and the payment consumer.
	errCh := make(chan error, 3)

	go func() {
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relayUC.Run(consumerCtx, cfg.Outbox.RelayInterval)
	}()
	if cfg.Kafka.ConsumePayments {
		consumer, err := pkgkafka.NewConsumer(cfg.Kafka.Config, cfg.Kafka.PaymentsTopic,
			kafka.NewPaymentInstructionHandler(settleUC, logger), logger)
		if err != nil {
			return fmt.Errorf("create payment consumer: %w", err)
		}
		defer consumer.Close()

		go func() {
			if err := consumer.Start(consumerCtx); err != nil {
				errCh <- fmt.Errorf("payment consumer error: %w", err)
			}
		}()
	}

	// Wait for shutdown signal.
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	// Graceful shutdown.
	stopConsumer()
	grpcServer.GracefulStop()
	<-relayDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	return runErr
}
