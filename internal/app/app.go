// Package app wires the keygate server together from its configuration and
// runs it until a signal or context cancellation asks it to stop.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/keygate/adapters/events"
	"github.com/layer-3/keygate/adapters/store"
	"github.com/layer-3/keygate/adapters/tokenizer"
	"github.com/layer-3/keygate/adapters/users"
	"github.com/layer-3/keygate/adapters/verifier"
	"github.com/layer-3/keygate/internal/config"
	"github.com/layer-3/keygate/internal/logging"
	"github.com/layer-3/keygate/ports"
	"github.com/layer-3/keygate/protocol"
	"github.com/layer-3/keygate/service"
	transport "github.com/layer-3/keygate/transport/http"
	"github.com/layer-3/keygate/transport/ws"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	auth    *service.Authenticator
	closers []io.Closer

	mu   sync.Mutex
	addr net.Addr

	conns sync.WaitGroup
}

// NewApp builds every component the configuration selects
func NewApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (app *App, err error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger := logging.NewJSONLogger(logOut, level)

	app = &App{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		app.closers = append(app.closers, redisClient)
	}

	repo, err := app.userRepository(ctx, redisClient)
	if err != nil {
		return nil, err
	}

	v, err := verifier.New(cfg.SignatureScheme)
	if err != nil {
		return nil, err
	}

	signKey, err := tokenizer.GenerateSigningKey()
	if err != nil {
		return nil, err
	}

	var sessions ports.Store
	if cfg.SessionStore == config.StoreRedis {
		sessions = store.NewRedisStore(redisClient)
	} else {
		sessions = store.NewMemoryStore()
	}

	var eventPub ports.EventPublisher
	if cfg.EventsEnabled {
		publisher, err := events.NewRedisStreamPublisher(redisClient, watermill.NewStdLogger(false, false))
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, publisher)
		eventPub = events.NewWatermillPublisher(publisher)
	}

	app.auth, err = service.NewAuthenticator(service.Dependencies{
		Users:     repo,
		Verifier:  v,
		Codec:     protocol.NewCodec(),
		Tokenizer: tokenizer.NewJWTTokenizer(signKey, cfg.TokenIssuer),
		Store:     sessions,
		EventPub:  eventPub,
		Logger:    logger,
	}, service.Settings{
		MaxClockSkew:   cfg.MaxClockSkew,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		return nil, err
	}

	return app, nil
}

func (app *App) userRepository(ctx context.Context, redisClient *redis.Client) (ports.UserRepository, error) {
	var (
		repo   ports.UserRepository
		writer ports.UserWriter
	)

	switch app.config.UserStore {
	case config.StorePostgres:
		db, err := users.OpenPostgres(ctx, app.config.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.closers = append(app.closers, db)
		r := users.NewPostgresRepository(db)
		repo, writer = r, r
	case config.StoreRedis:
		r := users.NewRedisRepository(redisClient)
		repo, writer = r, r
	default:
		r := users.NewMemoryRepository()
		repo, writer = r, r
	}

	if app.config.UsersFile != "" {
		n, err := users.LoadFile(ctx, writer, app.config.UsersFile)
		if err != nil {
			return nil, err
		}
		app.logger.Info(ctx, "users loaded", "count", n, "store", app.config.UserStore)
	}

	return repo, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Addr returns the bound listen address once Run has started listening
func (app *App) Addr() net.Addr {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.addr
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// shuts the HTTP server down and releases every resource
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.initSignalHandler(ctx, cancelFunc)

	gin.SetMode(gin.ReleaseMode)
	router := transport.SetupRouter(app.auth, transport.Options{
		WS: ws.Settings{
			AuthTimeout:  app.config.AuthTimeout,
			WriteTimeout: app.config.WriteTimeout,
			PongWait:     app.config.PongWait,
			MaxFrameSize: app.config.MaxFrameSize,
		},
		Logger:      app.logger,
		BaseContext: ctx,
		Connections: &app.conns,
	})

	ln, err := net.Listen("tcp", app.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.config.ListenAddr, err)
	}
	app.mu.Lock()
	app.addr = ln.Addr()
	app.mu.Unlock()

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	app.logger.Info(ctx, "Starting app...", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	shutdownErr := srv.Shutdown(shutdownCtx)

	// Sessions are revoked as websockets close; wait for that before the
	// stores behind them are released
	if err := app.drainConnections(shutdownCtx); err != nil {
		app.logger.Warn(ctx, "websocket connections still open at shutdown", "error", err)
	}

	if shutdownErr != nil {
		return fmt.Errorf("shutdown failed: %w", shutdownErr)
	}
	return nil
}

func (app *App) drainConnections(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		app.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			app.logger.Warn(context.Background(), "failed to release resource", "error", err)
		}
	}
	app.closers = nil
}
