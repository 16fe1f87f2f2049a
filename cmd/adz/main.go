package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/client"
	"github.com/totegamma/concrnt-adz/internal/config"
	"github.com/totegamma/concrnt-adz/internal/infra/cache"
	"github.com/totegamma/concrnt-adz/internal/infra/database"
	"github.com/totegamma/concrnt-adz/internal/infra/gateway"
	"github.com/totegamma/concrnt-adz/internal/infra/memdb"
	"github.com/totegamma/concrnt-adz/internal/infra/repository"
	"github.com/totegamma/concrnt-adz/internal/interface/rest"
	"github.com/totegamma/concrnt-adz/internal/logger"
	"github.com/totegamma/concrnt-adz/internal/service"
	"github.com/totegamma/concrnt-adz/internal/tracing"
	"github.com/totegamma/concrnt-adz/internal/usecase"
)

func main() {
	configPath := flag.String("config", os.Getenv("ADZ_CONFIG"), "path to config yaml")
	flag.Parse()

	conf, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log, err := logger.New(conf.Server.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.Server.EnableTrace {
		shutdown, err := tracing.Setup(ctx, conf.Server.TraceEndpoint, "adz")
		if err != nil {
			log.Fatal("failed to setup tracing", zap.Error(err))
		}
		defer shutdown(context.Background())
	}

	log.Info("starting adz",
		zap.String("fqdn", conf.NodeInfo.FQDN),
		zap.String("storage", conf.Server.Storage),
		zap.String("escrow", string(conf.NodeInfo.EscrowAccount)),
	)

	var (
		store  usecase.Store
		events rest.EventReader
		sinks  service.MultiSink
	)

	switch conf.Server.Storage {
	case config.StorageMemory:
		store = memdb.New()
		eventLog := service.NewEventLog()
		events = eventLog
		sinks = append(sinks, eventLog)
	case config.StoragePostgres, config.StorageSqlite:
		db, err := openDatabase(conf)
		if err != nil {
			log.Fatal("failed to connect database", zap.Error(err))
		}
		err = database.Migrate(db)
		if err != nil {
			log.Fatal("failed to migrate database", zap.Error(err))
		}
		store = repository.NewStore(db)
		eventRepo := repository.NewEventRepository(db)
		events = eventRepo
		sinks = append(sinks, eventRepo)
	}

	var queryCache usecase.QueryCache = cache.NewLocalCache()
	if conf.Server.MemcachedAddr != "" {
		mc, err := database.NewMemcached(conf.Server.MemcachedAddr)
		if err != nil {
			log.Fatal("failed to connect memcached", zap.Error(err))
		}
		queryCache = cache.NewMemcachedCache(mc, "adz:", log)
	}
	query := usecase.NewQueryUsecase(store, queryCache, log)
	sinks = append(sinks, query)

	var realtime rest.Realtime
	if conf.Server.RedisAddr != "" {
		rdb, err := database.NewRedis(ctx, conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
		if err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		signalService := service.NewSignalService(rdb, log)
		sinks = append(sinks, signalService)
		realtime = signalService
	}

	var (
		escrow usecase.Escrow
		clock  usecase.Clock
	)
	if conf.Server.LedgerEndpoint != "" {
		ledger := gateway.NewLedgerGateway(client.New(conf.Server.LedgerEndpoint))
		escrow = ledger
		clock = ledger
	} else {
		log.Warn("no ledger endpoint configured, using in-process bank")
		escrow = gateway.NewBank()
		clock = gateway.SystemClock{}
	}

	adUsecase := usecase.NewAdUsecase(store, escrow, clock, sinks, conf.NodeInfo.EscrowAccount, log)
	commentUsecase := usecase.NewCommentUsecase(store, clock, sinks, log)
	dispatcher := usecase.NewDispatcher(adUsecase, commentUsecase)

	handler := rest.NewHandler(conf.Domain(), dispatcher, query, events, realtime, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("adz"))
	}

	handler.RegisterRoutes(e)

	go func() {
		err := e.Start(conf.Server.Listen)
		if err != nil {
			log.Info("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = e.Shutdown(shutdownCtx)
	if err != nil {
		log.Error("failed to shutdown server", zap.Error(err))
	}
}

func openDatabase(conf config.Config) (*gorm.DB, error) {
	if conf.Server.Storage == config.StorageSqlite {
		return database.NewSqlite(conf.Server.SqlitePath)
	}
	return database.NewPostgres(conf.Server.PostgresDsn)
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	conf := config.Config{}
	conf.Server.Listen = ":8000"
	conf.Server.Storage = config.StorageMemory
	conf.NodeInfo.ModuleID = adz.DefaultModuleID
	escrow, err := adz.ModuleAccount(conf.NodeInfo.ModuleID)
	if err != nil {
		return config.Config{}, err
	}
	conf.NodeInfo.EscrowAccount = escrow
	return conf, nil
}
