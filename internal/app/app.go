package app

import (
	"context"
	"errors"
	"fmt"
	"gw-transaction-webhook/docs"
	"gw-transaction-webhook/internal/api/handlers"
	"gw-transaction-webhook/internal/api/middlew"
	"gw-transaction-webhook/internal/config"
	"gw-transaction-webhook/internal/db"
	"gw-transaction-webhook/internal/downstream"
	"gw-transaction-webhook/internal/kafka"
	"gw-transaction-webhook/internal/server"
	"gw-transaction-webhook/internal/service"
	"gw-transaction-webhook/internal/storage"
	"gw-transaction-webhook/internal/storage/memory"
	"gw-transaction-webhook/internal/storage/mongodb"
	"gw-transaction-webhook/internal/storage/postgres"
	"gw-transaction-webhook/pkg/logger"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	log       *slog.Logger
	server    *server.Server
	store     storage.Storage
	logFile   *os.File
	cfg       *config.Config
	producer  kafka.Producer
	scheduler *service.Scheduler
}

func NewApp() (*App, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации конфига: %w", err)
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	loggerWithFile, err := logger.NewLoggerWithFile(cfg.Log.File, level)
	if err != nil {
		return nil, err
	}
	log := loggerWithFile.Logger
	log.Info("конфигурация загружена",
		slog.String("port", cfg.HTTPPort),
		slog.String("storage_driver", cfg.StorageDriver),
		slog.Duration("finalize_delay", cfg.Finalizer.Delay))

	store, err := newStorage(context.Background(), cfg, log)
	if err != nil {
		_ = loggerWithFile.LogFile.Close()
		return nil, err
	}

	var producer kafka.Producer
	if cfg.Kafka.Enabled {
		log.Info("инициализация kafka producer", slog.Any("brokers", cfg.Kafka.Brokers))
		producer, err = kafka.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			_ = store.Close()
			_ = loggerWithFile.LogFile.Close()
			return nil, fmt.Errorf("ошибка инициализации kafka: %w", err)
		}
	} else {
		log.Info("kafka отключен в конфигурации")
		producer = kafka.NewNoOpProducer(log)
	}

	settler := downstream.NewSimulated(cfg.Downstream.Latency, cfg.Downstream.FailureRate, log)
	finalizer := service.NewFinalizer(store, settler, producer, log)
	scheduler := service.NewScheduler(finalizer, service.SchedulerConfig{
		Delay:     cfg.Finalizer.Delay,
		Timeout:   cfg.Finalizer.Timeout,
		Workers:   cfg.Finalizer.Workers,
		QueueSize: cfg.Finalizer.QueueSize,
	}, log)
	log.Info("планировщик финализации запущен",
		slog.Int("workers", cfg.Finalizer.Workers),
		slog.Int("queue_size", cfg.Finalizer.QueueSize))

	webhookService := service.NewWebhookService(store, scheduler, cfg.Finalizer.IntakeTimeout, log)

	srv := server.NewServer(cfg.HTTPPort)
	srv.Router.Use(middleware.RequestID)
	srv.Router.Use(middlew.WithLogger(log))
	srv.Router.Use(middleware.RealIP)
	srv.Router.Use(middleware.Recoverer)
	srv.Router.Use(middlew.CORS)

	if cfg.Swagger.Enabled {
		docs.SwaggerInfo.Host = cfg.Swagger.Host
		srv.RegisterSwagger(cfg.Swagger.Host)
	}
	handlers.RegisterRoutes(srv.Router, webhookService)
	log.Info("сервер инициализирован", slog.String("port", cfg.HTTPPort))

	return &App{
		log:       log,
		server:    srv,
		store:     store,
		logFile:   loggerWithFile.LogFile,
		cfg:       cfg,
		producer:  producer,
		scheduler: scheduler,
	}, nil
}

func newStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		log.Info("выполнение миграций базы данных")
		if _, err := db.RunMigrations(cfg.DB.MigrationURL(), cfg.DB.MigrationsPath, log); err != nil {
			return nil, fmt.Errorf("ошибка выполнения миграций: %w", err)
		}

		pool, err := db.NewPool(ctx, cfg.DB.DSN(), db.DefaultPoolConfig(cfg.Finalizer.Workers), log)
		if err != nil {
			return nil, fmt.Errorf("не удалось подключиться к базе данных: %w", err)
		}
		return postgres.NewTransactionRepository(pool), nil

	case config.DriverMongo:
		store, err := mongodb.NewMongoStorage(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, cfg.Mongo.Timeout)
		if err != nil {
			return nil, fmt.Errorf("не удалось подключиться к MongoDB: %w", err)
		}
		log.Info("подключение к MongoDB установлено", slog.String("database", cfg.Mongo.Database))
		return store, nil

	case config.DriverMemory:
		log.Warn("используется хранилище в памяти, записи не переживут перезапуск")
		return memory.NewMemoryStorage(), nil
	}

	return nil, fmt.Errorf("неизвестный драйвер хранилища %q", cfg.StorageDriver)
}

func (a *App) Run() error {
	a.log.Info("сервер запускается", slog.String("port", a.cfg.HTTPPort))

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("ошибка запуска сервера: %w", err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case runErr = <-serverErr:
		a.log.Error("сервер завершился с ошибкой", slog.String("error", runErr.Error()))
	case sig := <-shutdownChan:
		a.log.Info("получен сигнал завершения", slog.String("signal", sig.String()))
	}

	a.shutdown()
	return runErr
}

// shutdown останавливает компоненты в порядке зависимостей: сначала прием
// запросов, затем планировщик, и только потом producer и хранилище.
func (a *App) shutdown() {
	a.log.Info("приложение останавливается")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.log.Info("остановка http сервера")
	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error("ошибка при остановке http сервера", slog.String("error", err.Error()))
	}

	a.log.Info("остановка планировщика финализации", slog.Int("pending", a.scheduler.Pending()))
	if err := a.scheduler.Shutdown(ctx); err != nil {
		a.log.Error("ошибка при остановке планировщика", slog.String("error", err.Error()))
	}

	a.log.Info("закрытие kafka producer")
	if err := a.producer.Close(); err != nil {
		a.log.Error("ошибка при закрытии kafka producer", slog.String("error", err.Error()))
	}

	a.log.Info("закрытие хранилища")
	if err := a.store.Close(); err != nil {
		a.log.Error("ошибка при закрытии хранилища", slog.String("error", err.Error()))
	}

	a.log.Info("закрытие файла логов")
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			a.log.Error("ошибка при закрытии файла логов", slog.String("error", err.Error()))
		}
	}

	a.log.Info("приложение остановлено")
}
