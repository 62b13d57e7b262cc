package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xela07ax/floorwatch/internal/audit"
	"github.com/xela07ax/floorwatch/internal/console/handler"
	"github.com/xela07ax/floorwatch/internal/console/server"
	"github.com/xela07ax/floorwatch/internal/console/service"
	"github.com/xela07ax/floorwatch/internal/engine"
	healthcls "github.com/xela07ax/floorwatch/internal/health"
	"github.com/xela07ax/floorwatch/internal/infra"
	"github.com/xela07ax/floorwatch/internal/policy"
	"github.com/xela07ax/floorwatch/internal/repository/postgres"
	"github.com/xela07ax/floorwatch/internal/source"
	"github.com/xela07ax/floorwatch/internal/zone"
)

// rulHealthService - имя сервиса в grpc health, за которым стоит удалённая модель RUL
const rulHealthService = "floorwatch.rul"

func main() {
	// .env необязателен: в контейнере всё приходит через окружение
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("floorwatch stopped with error", zap.Error(err))
	}
	logger.Info("floorwatch exited properly")
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	// Контекст для управления жизненным циклом фоновых горутин.
	// SIGTERM отменяет его и запускает graceful shutdown.
	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	// 2. Хранилища: Postgres опционален, без него справочник берётся из конфига
	var (
		dirRepo      *postgres.DirectoryRepo
		auditStorage audit.Storage = audit.NewLogStorage(logger)
	)
	if cfg.Database.URL != "" {
		pool, err := postgres.NewPool(appCtx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(appCtx, pool); err != nil {
			return err
		}
		dirRepo = postgres.NewDirectoryRepo(pool)
		auditStorage = postgres.NewAuditRepo(pool)
		logger.Info("postgres connected")
	}

	dir, err := loadDirectory(appCtx, cfg, dirRepo)
	if err != nil {
		return err
	}
	registry, err := engine.NewIdentityRegistry(dir, metrics)
	if err != nil {
		return fmt.Errorf("directory: %w", err)
	}
	logger.Info("directory loaded",
		zap.Int("employees", len(dir.Employees)),
		zap.Int("machines", len(dir.Machines)),
		zap.Int("permanent", len(dir.Permanent)))

	// 3. Временные допуски: с Redis синхронизируются между инстансами
	var access service.TemporaryAccess = engine.NewLocalAccess(registry)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		tempSync := engine.NewTemporarySync(registry, rdb, logger)
		if err := tempSync.Init(appCtx); err != nil {
			return fmt.Errorf("temporary access sync: %w", err)
		}
		go tempSync.StartListener(appCtx)
		access = tempSync
	}

	// 4. Ядро: классификаторы и движок сессий
	criticality := policy.NewMemoCriticality(cfg.Health.HighCriticality, cfg.Health.MediumCriticality, criticalityRepo(dirRepo), logger)
	if err := criticality.Refresh(appCtx); err != nil {
		logger.Warn("criticality refresh failed, using configured levels", zap.Error(err))
	}

	scorer, closeScorer, err := newScorer(cfg.Scorer, metrics, logger)
	if err != nil {
		return err
	}
	defer closeScorer()

	var zones zone.Classifier = zone.NewThresholdClassifier(cfg.Zones.Thresholds)
	if cfg.Zones.Polygon {
		zones = zone.NewPolygonClassifier(zone.BuildingBoundary, cfg.Zones.OutsideOwner, zones)
	}

	hc := healthcls.NewClassifier(scorer, criticality, cfg.Health.Thresholds)
	src := source.NewFileSource(cfg.Stream.LocationSource, cfg.Stream.SensorSource)
	eng := engine.NewEngine(registry, zones, hc, src, cfg.Stream.Duration, metrics, logger)

	// 5. Журнал админки
	trail := audit.NewTrail(auditStorage, audit.Options{
		BufferSize:    cfg.Admin.AuditBufferSize,
		BatchSize:     cfg.Admin.AuditBatchSize,
		FlushInterval: cfg.Admin.AuditFlushInterval,
		BufferFill:    metrics.AuditBufferFill,
	}, logger)
	trail.Start()
	defer trail.Stop()

	// 6. HTTP API
	accessService := service.NewAccessService(access, trail, logger)
	api := server.NewServer(
		cfg.Admin,
		logger,
		handler.NewAccessHandler(accessService, logger),
		handler.NewDirectoryHandler(registry),
		handler.NewStreamHandler(eng, logger),
	)
	srv := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     api,
		ReadTimeout: cfg.Server.ReadTimeout,
		// Стримы живут весь проход: WriteTimeout не ставим, сессию закрывает контекст
		BaseContext: func(net.Listener) context.Context { return appCtx },
	}

	errCh := make(chan error, 3)
	go func() {
		logger.Info("http api started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http api: %w", err)
		}
	}()

	// Экспортируем метрики для Prometheus
	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics: %w", err)
			}
		}()
	}

	// gRPC health для оркестратора
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		go func() {
			logger.Info("grpc health started", zap.String("addr", cfg.GRPC.Addr))
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	if rs, ok := scorer.(*engine.ReliableScorer); ok {
		go rs.WatchHealth(appCtx, healthSrv, rulHealthService, time.Second)
	}

	// 7. Graceful Shutdown
	var runErr error
	select {
	case <-appCtx.Done():
		logger.Info("floorwatch stopping...")
	case runErr = <-errCh:
	}
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http api shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	grpcSrv.GracefulStop()
	return runErr
}

func loadDirectory(ctx context.Context, cfg *infra.Config, repo *postgres.DirectoryRepo) (engine.Directory, error) {
	if cfg.Directory.Source == infra.DirectorySourcePostgres {
		if repo == nil {
			return engine.Directory{}, errors.New("directory.source=postgres requires database.url")
		}
		return repo.LoadDirectory(ctx)
	}
	employees, machines := cfg.Directory.Entities()
	return engine.Directory{
		Employees: employees,
		Machines:  machines,
		Permanent: cfg.Directory.Permanent,
		Temporary: cfg.Directory.Temporary,
	}, nil
}

// criticalityRepo не даёт типизированному nil попасть в интерфейс.
func criticalityRepo(repo *postgres.DirectoryRepo) policy.CriticalityRepository {
	if repo == nil {
		return nil
	}
	return repo
}
