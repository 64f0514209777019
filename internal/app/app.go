package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jgivc/archives/internal/adapter/fsadapter"
	"github.com/jgivc/archives/internal/adapter/mdadapter"
	"github.com/jgivc/archives/internal/config"
	httphandler "github.com/jgivc/archives/internal/handler/http"
	"github.com/jgivc/archives/internal/repository/counter"
	"github.com/jgivc/archives/internal/service/archive"
	"github.com/redis/go-redis/v9"
)

const (
	pingTimeout       = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
)

type App struct {
	cfgPath string
	cfg     *config.Config
	srv     *http.Server
	rdb     *redis.Client
	root    string // Absolute data path
	log     *slog.Logger
}

func New(cfgPath string) *App {
	return &App{
		cfgPath: cfgPath,
	}
}

func (a *App) Start() {
	a.cfg = config.MustLoad(a.cfgPath)

	log, err := newLogger(os.Stderr, a.cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	a.log = log

	handler, err := a.buildHandler()
	if err != nil {
		panic(err)
	}

	a.srv = &http.Server{
		Addr:              a.cfg.Listen(),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	go func() {
		log.Info("Start listen", slog.String("addr", a.srv.Addr), slog.String("data_path", a.root))

		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Could not serve", slog.String("listen_addr", a.srv.Addr), slog.Any("error", err))
			os.Exit(2)
		}
	}()
}

func (a *App) buildHandler() (http.Handler, error) {
	scanner, err := fsadapter.NewScanner(&a.cfg.ScannerConfig, a.log)
	if err != nil {
		return nil, fmt.Errorf("cannot create scanner: %w", err)
	}
	a.root = scanner.Root()

	renderer, err := mdadapter.NewReadmeRenderer(a.cfg.HandlerConfig.URLPrefix, a.log)
	if err != nil {
		return nil, fmt.Errorf("cannot create readme renderer: %w", err)
	}

	var repo archive.CounterRepository
	if a.cfg.RedisURL != "" {
		a.rdb, err = connectRedis(a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}

		repo = counter.NewCounterRepository(a.rdb, a.log)
	} else {
		a.log.Info("Redis url is not set, download counters disabled")
	}

	srv := archive.NewArchiveService(scanner, renderer, repo, a.log)

	return httphandler.NewRouter(srv, a.cfg.HandlerConfig.URLPrefix, a.log), nil
}

func (a *App) Stop() {
	if a.srv == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.srv.Shutdown(ctx); err != nil {
		a.log.Error("Cannot shutdown server", slog.Any("error", err))
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Error("Cannot close redis client", slog.Any("error", err))
		}
	}
}

func connectRedis(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cannot parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if _, err = rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()

		return nil, fmt.Errorf("cannot connect to redis: %w", err)
	}

	return rdb, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lo := &slog.HandlerOptions{}
	switch level {
	case config.LogLevelInfo:
		lo.Level = slog.LevelInfo
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	default:
		return nil, fmt.Errorf("unknown log level: %s", level)
	}

	return slog.New(slog.NewTextHandler(w, lo)), nil
}
