// Package app собирает сервис заказов: хранилище, транспорты, outbox и пробы.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/orders/internal/service/grpc"
	httpsvc "github.com/vladislavdragonenkov/orders/internal/service/http"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/service/outbox"
	"github.com/vladislavdragonenkov/orders/internal/version"
)

const readHeaderTimeout = 5 * time.Second

// App: собранный, но ещё не запущенный сервис. Слушатели уже открыты.
type App struct {
	cfg    Config
	logger *log.Entry
	deps   *runtimeDependencies

	httpSrv      *http.Server
	httpLis      net.Listener
	grpcSrv      *grpc.Server
	grpcLis      net.Listener
	grpcHealth   *health.Server
	metricsSrv   *http.Server
	metricsLis   net.Listener
	outboxWorker *outbox.Worker
}

// Run собирает приложение и работает до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	a, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// New открывает зависимости и слушатели. При ошибке всё открытое закрывается.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, deps: deps}
	if err := a.build(); err != nil {
		a.closeListeners()
		deps.Close(logger)
		return nil, err
	}
	return a, nil
}

func (a *App) build() error {
	orderMetrics := metrics.NewOrderMetrics()

	opts := []orders.Option{orders.WithMetrics(orderMetrics)}
	if a.deps.producer != nil {
		opts = append(opts, orders.WithOutbox(a.deps.outboxRepo))
		a.outboxWorker = a.newOutboxWorker()
	}
	svc := orders.NewService(a.deps.repo, a.logger.WithField("layer", "service"), opts...)
	async := orders.NewAsyncService(svc, a.cfg.AsyncConcurrency)

	router := httpsvc.NewRouter(httpsvc.RouterConfig{
		Blocking: svc,
		Reactive: async.Awaiting(),
		Metrics:  orderMetrics,
		Logger:   a.logger.WithField("layer", "http"),
	})
	a.httpSrv = &http.Server{Handler: router, ReadHeaderTimeout: readHeaderTimeout}

	var err error
	if a.httpLis, err = net.Listen("tcp", a.cfg.HTTPAddr); err != nil {
		return err
	}

	if a.cfg.GRPCAddr != "" {
		a.grpcSrv, a.grpcHealth = newGRPCServer(svc, a.logger)
		if a.grpcLis, err = net.Listen("tcp", a.cfg.GRPCAddr); err != nil {
			return err
		}
	}

	if a.cfg.MetricsAddr != "" {
		healthHandler := healthcheck.NewHandler(version.GetVersion())
		a.deps.registerHealthChecks(healthHandler)
		a.metricsSrv = newMetricsServer(healthHandler)
		if a.metricsLis, err = net.Listen("tcp", a.cfg.MetricsAddr); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) newOutboxWorker() *outbox.Worker {
	publisher := kafka.NewOutboxPublisher(a.deps.producer, a.cfg.KafkaTopic)
	dlq := kafka.NewDLQPublisher(a.deps.producer, a.cfg.KafkaTopic)
	return outbox.NewWorker(a.deps.outboxRepo, publisher,
		outbox.WithLogger(a.logger.WithField("layer", "outbox")),
		outbox.WithMetrics(metrics.NewOutboxMetrics(nil)),
		outbox.WithDLQPublisher(dlq),
		outbox.WithPollInterval(a.cfg.OutboxPollInterval),
		outbox.WithBatchSize(a.cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(a.cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(a.cfg.OutboxRetryDelay),
	)
}

// newGRPCServer создаёт gRPC-сервер с метриками, health и reflection.
func newGRPCServer(svc orders.Operations, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcMetrics.UnaryServerInterceptor(),
		grpcsvc.RecoveryInterceptor(logger.WithField("layer", "grpc")),
	))
	grpcsvc.RegisterOrderServiceServer(server, grpcsvc.NewOrderService(svc, logger.WithField("layer", "grpc")))
	grpcMetrics.InitializeMetrics(server)

	// Register reflection service for grpcurl
	reflection.Register(server)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	return server, healthServer
}

// newMetricsServer отдаёт /metrics для Prometheus и HTTP-пробы.
func newMetricsServer(healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	return &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
}

// HTTPAddr возвращает фактический адрес REST API (полезно при порте :0).
func (a *App) HTTPAddr() string {
	return a.httpLis.Addr().String()
}

// GRPCAddr возвращает адрес gRPC-сервера или "", если он отключён.
func (a *App) GRPCAddr() string {
	if a.grpcLis == nil {
		return ""
	}
	return a.grpcLis.Addr().String()
}

// MetricsAddr возвращает адрес сервера метрик или "", если он отключён.
func (a *App) MetricsAddr() string {
	if a.metricsLis == nil {
		return ""
	}
	return a.metricsLis.Addr().String()
}

// Run обслуживает запросы до отмены ctx или падения одного из серверов.
// Отмена ctx считается штатной остановкой и возвращает nil.
func (a *App) Run(ctx context.Context) error {
	defer a.deps.Close(a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Infof("HTTP API слушает %s", a.HTTPAddr())
		return ignoreClosed(a.httpSrv.Serve(a.httpLis))
	})

	if a.grpcSrv != nil {
		g.Go(func() error {
			a.logger.Infof("gRPC сервер слушает %s", a.GRPCAddr())
			return ignoreClosed(a.grpcSrv.Serve(a.grpcLis))
		})
	}

	if a.metricsSrv != nil {
		g.Go(func() error {
			addr := a.MetricsAddr()
			a.logger.Infof("метрики доступны по адресу %s/metrics", addr)
			a.logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
			return ignoreClosed(a.metricsSrv.Serve(a.metricsLis))
		})
	}

	if a.outboxWorker != nil {
		g.Go(func() error {
			return a.outboxWorker.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("получен сигнал остановки, останавливаем серверы")
		a.shutdown()
		return nil
	})

	err := g.Wait()
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) shutdown() {
	timeout := a.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	shutdownHTTP(a.httpSrv, timeout, a.logger)

	if a.grpcSrv != nil {
		if a.grpcHealth != nil {
			a.grpcHealth.Shutdown()
		}
		stoppedCh := make(chan struct{})
		go func() {
			a.grpcSrv.GracefulStop()
			close(stoppedCh)
		}()
		select {
		case <-stoppedCh:
		case <-time.After(timeout):
			a.logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
			a.grpcSrv.Stop()
		}
	}

	shutdownHTTP(a.metricsSrv, timeout, a.logger)
}

func (a *App) closeListeners() {
	for _, lis := range []net.Listener{a.httpLis, a.grpcLis, a.metricsLis} {
		if lis != nil {
			_ = lis.Close()
		}
	}
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

func ignoreClosed(err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}
