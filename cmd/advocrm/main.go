package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	migrations "github.com/advocrmhq/advocrm/db"
	"github.com/advocrmhq/advocrm/internal/appointments"
	"github.com/advocrmhq/advocrm/internal/calendar"
	"github.com/advocrmhq/advocrm/internal/config"
	"github.com/advocrmhq/advocrm/internal/contacts"
	"github.com/advocrmhq/advocrm/internal/conversations"
	"github.com/advocrmhq/advocrm/internal/dashboard"
	"github.com/advocrmhq/advocrm/internal/db"
	"github.com/advocrmhq/advocrm/internal/documents"
	"github.com/advocrmhq/advocrm/internal/evolution"
	"github.com/advocrmhq/advocrm/internal/handlers"
	"github.com/advocrmhq/advocrm/internal/instances"
	"github.com/advocrmhq/advocrm/internal/logger"
	"github.com/advocrmhq/advocrm/internal/server"
	"github.com/advocrmhq/advocrm/internal/storage"
	"github.com/advocrmhq/advocrm/internal/users"
	"github.com/advocrmhq/advocrm/internal/version"
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
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

func provideStorage(cfg config.Config) (storage.Provider, error) {
	local, err := storage.NewLocal(cfg.Uploads.Dir)
	if err != nil {
		return nil, fmt.Errorf("uploads dir: %w", err)
	}
	return local, nil
}

func provideGateway(log *slog.Logger, cfg config.Config) *evolution.Client {
	timeout := time.Duration(cfg.Evolution.TimeoutSeconds) * time.Second
	return evolution.NewClient(log, cfg.Evolution.BaseURL, cfg.Evolution.APIKey, timeout)
}

// provideScheduler wires the Google Calendar client when a calendar is
// configured; otherwise appointments run without calendar events.
func provideScheduler(log *slog.Logger, cfg config.Config) appointments.Scheduler {
	if cfg.Calendar.CalendarID == "" {
		log.Info("calendar integration disabled, no calendar_id configured")
		return nil
	}
	timeout := time.Duration(cfg.Calendar.TimeoutSeconds) * time.Second
	return calendar.NewClient(log, cfg.Calendar.BaseURL, cfg.Calendar.CalendarID,
		cfg.Calendar.Token, cfg.Calendar.Timezone, timeout)
}

func provideAppointmentsService(log *slog.Logger, pool *pgxpool.Pool, scheduler appointments.Scheduler) *appointments.Service {
	return appointments.NewService(log, pool, scheduler)
}

func provideContactsService(log *slog.Logger, pool *pgxpool.Pool, provider storage.Provider) *contacts.Service {
	return contacts.NewService(log, pool, provider)
}

func provideDocumentsService(log *slog.Logger, pool *pgxpool.Pool, provider storage.Provider) *documents.Service {
	return documents.NewService(log, pool, provider)
}

func provideInstancesService(log *slog.Logger, pool *pgxpool.Pool, gateway *evolution.Client) *instances.Service {
	return instances.NewService(log, pool, gateway)
}

func provideConversationsService(log *slog.Logger, pool *pgxpool.Pool, gateway *evolution.Client, instanceService *instances.Service) *conversations.Service {
	return conversations.NewService(log, pool, gateway, instanceService)
}

func provideAuthHandler(log *slog.Logger, userService *users.Service, cfg config.Config) (*handlers.AuthHandler, error) {
	expiresIn, err := time.ParseDuration(cfg.Auth.JWTExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("parse jwt_expires_in: %w", err)
	}
	return handlers.NewAuthHandler(log, userService, cfg.Auth.JWTSecret, expiresIn), nil
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

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
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
			provideStorage,
			provideGateway,
			provideScheduler,

			users.NewService,
			provideAppointmentsService,
			dashboard.NewService,
			provideContactsService,
			provideDocumentsService,
			provideInstancesService,
			provideConversationsService,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideAuthHandler),
			provideServerHandler(handlers.NewContactsHandler),
			provideServerHandler(handlers.NewAppointmentsHandler),
			provideServerHandler(handlers.NewUsersHandler),
			provideServerHandler(handlers.NewDocumentsHandler),
			provideServerHandler(handlers.NewInstancesHandler),
			provideServerHandler(handlers.NewMessagesHandler),
			provideServerHandler(handlers.NewDashboardHandler),

			provideServer,
		),
		fx.Invoke(startServer),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func startServer(
	lc fx.Lifecycle,
	log *slog.Logger,
	srv *server.Server,
	shutdowner fx.Shutdowner,
	cfg config.Config,
	userService *users.Service,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting advocrm", slog.String("version", version.GetInfo()))

			if err := ensureAdminUser(ctx, log, userService, cfg); err != nil {
				return err
			}

			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
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

// ensureAdminUser seeds the first admin account when the users table is empty.
func ensureAdminUser(ctx context.Context, log *slog.Logger, userService *users.Service, cfg config.Config) error {
	count, err := userService.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return fmt.Errorf("admin email/password required in config.toml")
	}
	if cfg.Admin.Password == "change-your-password-here" {
		log.Warn("admin password uses default placeholder; please update config.toml")
	}

	user, err := userService.Create(ctx, users.CreateRequest{
		Name:     cfg.Admin.Name,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		Role:     users.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	log.Info("admin user created", slog.String("email", user.Email))
	return nil
}

func runMigrate(args []string) {
	cfg, err := provideConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	command := "up"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}
	migrationsFS, err := fs.Sub(migrations.Migrations, "migrations")
	if err != nil {
		logger.L.Error("migrations fs", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.Migrate(logger.L, cfg.Postgres, migrationsFS, command, args); err != nil {
		logger.L.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}
}
