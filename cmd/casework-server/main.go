package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/casework/casework/internal/config"
	"github.com/casework/casework/internal/domain/analytics"
	"github.com/casework/casework/internal/domain/assignment"
	"github.com/casework/casework/internal/domain/patient"
	"github.com/casework/casework/internal/domain/progressreport"
	"github.com/casework/casework/internal/domain/rating"
	"github.com/casework/casework/internal/domain/session"
	"github.com/casework/casework/internal/domain/therapyplan"
	"github.com/casework/casework/internal/domain/user"
	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/auth"
	"github.com/casework/casework/internal/platform/db"
	"github.com/casework/casework/internal/platform/events"
	"github.com/casework/casework/internal/platform/middleware"
	"github.com/casework/casework/internal/seed"
	"github.com/casework/casework/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "casework-server",
		Short:        "Therapy clinic case management API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(eventsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnIdleTime: 5 * time.Minute,
	})
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// migrationSource returns the embedded migrations unless dir is set.
func migrationSource(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	return migrations.FS
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	cmd.PersistentFlags().String("dir", "", "Read migrations from this directory instead of the embedded set")

	withMigrator := func(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator) error) error {
		dir, _ := cmd.Flags().GetString("dir")
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx := context.Background()
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(ctx, db.NewMigrator(pool, migrationSource(dir)))
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the latest applied migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				version, err := m.Down(ctx)
				if err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				if version == 0 {
					fmt.Println("No migrations to revert.")
					return nil
				}
				fmt.Printf("Reverted migration %03d.\n", version)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					state, at := "pending", ""
					if s.Applied {
						state = "applied"
						if s.AppliedAt != nil {
							at = s.AppliedAt.Format(time.RFC3339)
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, state, at)
				}
				return nil
			})
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML fixture of users, patients and case records",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env)

			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open fixture: %w", err)
			}
			defer file.Close()
			fixture, err := seed.Load(file)
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			svcs := newServices(pool, events.NewLogPublisher(logger), cfg, logger)
			res, err := seed.New(svcs.seedTargets(), svcs.tx, logger).Apply(ctx, fixture)
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			out, _ := json.Marshal(res)
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().String("file", "", "Path to the YAML fixture")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect published domain events",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "tail",
		Short: "Print assignment events from Redis as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.RedisURL == "" {
				return fmt.Errorf("REDIS_URL is required to tail events")
			}
			logger := newLogger(cfg.Env)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sub, err := events.NewRedisPublisher(ctx, cfg.RedisURL, cfg.EventsChannel, logger)
			if err != nil {
				return err
			}
			defer sub.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			return sub.Subscribe(ctx, func(evt events.Event) {
				_ = enc.Encode(evt)
			})
		},
	})
	return cmd
}

// services holds every domain service built over one pool.
type services struct {
	tx          db.TxRunner
	users       *user.Service
	patients    *patient.Service
	assignments *assignment.Service
	plans       *therapyplan.Service
	sessions    *session.Service
	reports     *progressreport.Service
	ratings     *rating.Service
	analytics   *analytics.Service
}

func newServices(pool *pgxpool.Pool, publisher events.Publisher, cfg *config.Config, logger zerolog.Logger) *services {
	s := &services{tx: db.NewTxRunner(pool)}
	s.users = user.NewService(user.NewRepoPG(pool), logger)
	s.patients = patient.NewService(patient.NewRepoPG(pool), s.users, logger)
	s.assignments = assignment.NewService(assignment.NewRepoPG(pool), s.patients, s.users,
		s.tx, publisher, cfg.AutoAssignConcurrency, logger)
	s.plans = therapyplan.NewService(therapyplan.NewRepoPG(pool), logger)
	s.sessions = session.NewService(session.NewRepoPG(pool), logger)
	s.reports = progressreport.NewService(progressreport.NewRepoPG(pool), logger)
	s.ratings = rating.NewService(rating.NewRepoPG(pool), s.users, logger)
	s.analytics = analytics.NewService(analytics.NewRepo(pool), cfg.AutoAssignConcurrency, logger)
	return s
}

func (s *services) seedTargets() seed.Targets {
	return seed.Targets{
		Users:       s.users,
		Patients:    s.patients,
		Assignments: s.assignments,
		Plans:       s.plans,
		Sessions:    s.sessions,
		Reports:     s.reports,
		Ratings:     s.ratings,
	}
}

func newVerifier(ctx context.Context, cfg *config.Config, resolver auth.UserResolver) (auth.TokenVerifier, error) {
	if cfg.ResolvedAuthMode() == "development" {
		return auth.NewDevVerifier(cfg.DevUserRole, resolver), nil
	}
	jwtCfg := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
		Resolver: resolver,
	}
	if cfg.AuthSigningKey != "" {
		jwtCfg.SigningKey = []byte(cfg.AuthSigningKey)
	}
	return auth.NewJWTVerifier(ctx, jwtCfg)
}

func newPublisher(ctx context.Context, cfg *config.Config, logger zerolog.Logger) events.Publisher {
	if cfg.RedisURL == "" {
		return events.NewLogPublisher(logger)
	}
	pub, err := events.NewRedisPublisher(ctx, cfg.RedisURL, cfg.EventsChannel, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, logging events instead")
		return events.NewLogPublisher(logger)
	}
	return pub
}

// newServer assembles the echo instance: global middleware, the auth gate,
// health endpoints and every domain route under /api.
func newServer(cfg *config.Config, pinger db.Pinger, verifier auth.TokenVerifier, svcs *services, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
		AllowCredentials: true,
	}))
	e.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{HSTS: !cfg.IsDev()}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}
	e.Use(auth.Gate(verifier, logger, auth.Skipper))
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"ok":          true,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": cfg.Env,
		})
	})
	e.GET("/health/db", db.HealthHandler(pinger))

	api := e.Group("/api")
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	api.Use(middleware.RateLimit(rl))

	user.NewHandler(svcs.users).RegisterRoutes(api)
	patient.NewHandler(svcs.patients).RegisterRoutes(api)
	assignment.NewHandler(svcs.assignments).RegisterRoutes(api)
	therapyplan.NewHandler(svcs.plans).RegisterRoutes(api)
	session.NewHandler(svcs.sessions).RegisterRoutes(api)
	progressreport.NewHandler(svcs.reports).RegisterRoutes(api)
	rating.NewHandler(svcs.ratings).RegisterRoutes(api)
	analytics.NewHandler(svcs.analytics).RegisterRoutes(api)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	publisher := newPublisher(ctx, cfg, logger)
	defer publisher.Close()

	svcs := newServices(pool, publisher, cfg, logger)
	verifier, err := newVerifier(ctx, cfg, svcs.users)
	if err != nil {
		logger.Error().Err(err).Msg("failed to configure authentication")
		return err
	}
	logger.Info().Str("auth_mode", cfg.ResolvedAuthMode()).Msg("authentication configured")

	e := newServer(cfg, pool, verifier, svcs, logger)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
