package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/jackc/pgx/v5/pgxpool"

	openfoliodb "github.com/openfolio/openfolio/db"
	"github.com/openfolio/openfolio/internal/config"
	"github.com/openfolio/openfolio/internal/db"
	"github.com/openfolio/openfolio/internal/gateway"
	"github.com/openfolio/openfolio/internal/handlers"
	"github.com/openfolio/openfolio/internal/logger"
	"github.com/openfolio/openfolio/internal/profiles"
	"github.com/openfolio/openfolio/internal/ratelimit"
	"github.com/openfolio/openfolio/internal/server"
	"github.com/openfolio/openfolio/internal/signup"
	"github.com/openfolio/openfolio/internal/verification"
	"github.com/openfolio/openfolio/internal/version"
)

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideLimiter(cfg config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Window(), cfg.RateLimit.MaxRequests)
}

func provideGatewayClient(log *slog.Logger, cfg config.Config) *gateway.Client {
	return gateway.NewClient(log, cfg.Gateway)
}

func provideProfilesService(log *slog.Logger, conn *pgxpool.Pool) *profiles.Service {
	return profiles.NewService(log, conn)
}

func provideSignupService(log *slog.Logger, client *gateway.Client, store *profiles.Service) *signup.Service {
	return signup.NewService(log, client, store)
}

func provideVerificationService(log *slog.Logger, client *gateway.Client) *verification.Service {
	return verification.NewService(log, client)
}

func provideUsernameHandler(log *slog.Logger, limiter *ratelimit.Limiter, store *profiles.Service) *handlers.UsernameHandler {
	return handlers.NewUsernameHandler(log, limiter, store)
}

func provideAuthHandler(log *slog.Logger, signupService *signup.Service, verificationService *verification.Service, cfg config.Config) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, signupService, verificationService, cfg.Site.BaseURL)
}

func provideProfilesHandler(log *slog.Logger, store *profiles.Service, signupService *signup.Service) *handlers.ProfilesHandler {
	return handlers.NewProfilesHandler(log, store, signupService)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.ServerHandlers...)
}

func startServer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	srv *server.Server,
	shutdowner fx.Shutdowner,
) {
	fmt.Printf("Starting Openfolio %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil { // block until server is stopped
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

// runMigrate handles `server migrate <up|down|version|force N>` without
// bringing up the fx graph.
func runMigrate(args []string) {
	cfg, err := provideConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := provideLogger(cfg)

	command := "up"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}
	migrations, err := fs.Sub(openfoliodb.MigrationsFS, "migrations")
	if err != nil {
		log.Error("migrations fs", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.RunMigrate(log, cfg.Postgres, migrations, command, args); err != nil {
		log.Error("migrate failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(os.Args[2:])
		return
	}

	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideLimiter,
			provideGatewayClient,

			provideProfilesService,
			provideSignupService,
			provideVerificationService,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideUsernameHandler),
			provideServerHandler(provideAuthHandler),
			provideServerHandler(provideProfilesHandler),

			provideServer,
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}
