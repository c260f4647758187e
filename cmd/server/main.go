package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Gkemhcs/kavach-auth/internal/auth"
	"github.com/Gkemhcs/kavach-auth/internal/auth/jwt"
	"github.com/Gkemhcs/kavach-auth/internal/authz"
	"github.com/Gkemhcs/kavach-auth/internal/config"
	"github.com/Gkemhcs/kavach-auth/internal/db"
	"github.com/Gkemhcs/kavach-auth/internal/keysource"
	"github.com/Gkemhcs/kavach-auth/internal/metrics"
	"github.com/Gkemhcs/kavach-auth/internal/middleware"
	"github.com/Gkemhcs/kavach-auth/internal/server"
	"github.com/Gkemhcs/kavach-auth/internal/types"
	"github.com/Gkemhcs/kavach-auth/internal/user"
	"github.com/Gkemhcs/kavach-auth/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

const adminRole = "admin"

// accountStore is what main needs beyond auth.Store to seed the admin account.
type accountStore interface {
	auth.Store
	AssignRole(ctx context.Context, username, role string) error
	AddClaim(ctx context.Context, u *types.User, claim types.Claim) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger := utils.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Signing key
	source, err := keysource.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Cannot create key source: ", err)
	}
	key, err := source.Key(ctx)
	if err != nil {
		logger.Fatalf("Cannot load signing key from %s: %v", source.Name(), err)
	}
	if closer, ok := source.(io.Closer); ok {
		_ = closer.Close()
	}

	signingConfig, err := jwt.NewSigningConfig(key, cfg.JWTIssuer, cfg.JWTAudience,
		time.Duration(cfg.JWTDurationInMinutes)*time.Minute)
	if err != nil {
		logger.Fatal("Invalid signing configuration: ", err)
	}
	jwter := jwt.NewManager(signingConfig)

	hasher, err := user.NewHasher(cfg.BcryptCost)
	if err != nil {
		logger.Fatal("Invalid bcrypt cost: ", err)
	}
	validator := user.NewValidator(cfg.PhoneDefaultRegion)

	// User store
	var (
		store accountStore
		conn  = initDatabase(cfg, logger)
	)
	if conn != nil {
		defer conn.Close()
		roles, err := authz.NewRoleStore(authz.NewSQLXAdapter(conn), logger)
		if err != nil {
			logger.Fatal("Cannot create role store: ", err)
		}
		store = user.NewPostgresStore(conn, hasher, validator, roles, logger)
	} else {
		roles, err := authz.NewRoleStore(nil, logger)
		if err != nil {
			logger.Fatal("Cannot create role store: ", err)
		}
		store = user.NewMemoryStore(hasher, validator, roles, logger)
	}

	if err := bootstrapAdmin(ctx, cfg, store, logger); err != nil {
		logger.Fatal("Cannot seed admin account: ", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	limiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimitPerMinute, cfg.RateLimitBurst), logger, recorder)
	defer limiter.Stop()

	authService := auth.NewAuthService(store, jwter, recorder, logger)
	authHandler := auth.NewAuthHandler(authService, logger)

	srv := server.New(cfg, logger, conn, registry, recorder)
	srv.SetupRoutes(authHandler, jwter, limiter.Middleware())

	if err := srv.Start(ctx); err != nil {
		logger.Fatal("Server exited: ", err)
	}
	logger.Info("server stopped")
}

// initDatabase opens Postgres and applies migrations when STORE=postgres.
// It returns nil for the in-memory store.
func initDatabase(cfg *config.Config, logger *logrus.Logger) *sql.DB {
	switch cfg.Store {
	case "memory":
		logger.Warn("Using in-memory user store; accounts are lost on restart")
		return nil
	case "postgres", "":
	default:
		logger.Fatalf("Unsupported STORE %q", cfg.Store)
	}

	conn := db.InitDB(logger, cfg)
	if err := db.ValidateConnectionPool(conn, logger); err != nil {
		logger.Fatal(err)
	}
	if err := db.RunMigrations(db.DatabaseURL(cfg), logger); err != nil {
		logger.Fatal("Cannot run migrations: ", err)
	}
	return conn
}

// bootstrapAdmin creates the configured admin account once, grants it the
// admin role and stores any configured claims it does not already hold.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, store accountStore, logger *logrus.Logger) error {
	if cfg.BootstrapAdminUsername == "" || cfg.BootstrapAdminPassword == "" {
		return nil
	}

	claims, err := parseClaims(cfg.BootstrapAdminClaims)
	if err != nil {
		return err
	}

	admin, err := store.Create(ctx, &types.User{
		UserName: cfg.BootstrapAdminUsername,
		Email:    cfg.BootstrapAdminEmail,
	}, cfg.BootstrapAdminPassword)
	if err != nil {
		var verr *types.ValidationError
		if !errors.As(err, &verr) || !verr.Has(types.CodeDuplicateUserName) || len(verr.Errors) != 1 {
			return err
		}
		logger.WithField("username", cfg.BootstrapAdminUsername).Debug("Admin account already exists")
		if admin, err = store.FindByUsername(ctx, cfg.BootstrapAdminUsername); err != nil {
			return err
		}
		if admin == nil {
			return fmt.Errorf("admin account %q disappeared during bootstrap", cfg.BootstrapAdminUsername)
		}
	} else {
		logger.WithField("username", admin.UserName).Info("Admin account created")
	}

	if err := store.AssignRole(ctx, admin.UserName, adminRole); err != nil {
		return err
	}

	existing, err := store.GetClaims(ctx, admin)
	if err != nil {
		return err
	}
	held := make(map[types.Claim]bool, len(existing))
	for _, c := range existing {
		held[c] = true
	}
	for _, c := range claims {
		if held[c] {
			continue
		}
		if err := store.AddClaim(ctx, admin, c); err != nil {
			return fmt.Errorf("add claim %s: %w", c.Type, err)
		}
		held[c] = true
	}
	return nil
}

// parseClaims reads a comma-separated list of type=value pairs.
func parseClaims(raw string) ([]types.Claim, error) {
	var claims []types.Claim
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		claimType, value, ok := strings.Cut(item, "=")
		claimType = strings.TrimSpace(claimType)
		if !ok || claimType == "" {
			return nil, fmt.Errorf("invalid claim %q, want type=value", item)
		}
		claims = append(claims, types.NewClaim(claimType, strings.TrimSpace(value)))
	}
	return claims, nil
}
