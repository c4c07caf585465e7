package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/middleware"
	"github.com/hms/hms/internal/platform/telemetry"
	"github.com/hms/hms/migrations"
)

// store bundles the selected patient repository with its health probe and
// cleanup.
type store struct {
	repo   patient.PatientRepository
	pinger db.Pinger
	closer func()
}

func (s *store) Close() {
	if s.closer != nil {
		s.closer()
	}
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		Schema:      cfg.DBSchema,
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, poolConfig(cfg))
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			n, err := db.NewMigrator(pool, migrations.FS).Up(ctx, cfg.DBSchema)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
			logger.Info().Int("applied", n).Str("schema", cfg.DBSchema).Msg("migrations up to date")
		}
		return &store{repo: patient.NewPatientRepoPG(pool), pinger: pool, closer: pool.Close}, nil

	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		repo, err := patient.NewPatientRepoSQLite(ctx, sqlDB)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return &store{
			repo:   repo,
			pinger: db.PingerFromSQL(sqlDB),
			closer: func() { _ = sqlDB.Close() },
		}, nil

	case config.DriverMemory:
		logger.Warn().Msg("memory store selected: patients are lost on restart")
		return &store{repo: patient.NewPatientRepoMemory()}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// newServer wires middleware, operational endpoints and the patient API.
func newServer(cfg *config.Config, logger zerolog.Logger, st *store, metrics *telemetry.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	if metrics != nil {
		e.Use(metrics.Middleware())
		e.GET("/metrics", metrics.Handler())
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if st.pinger != nil {
		e.GET("/health/db", db.HealthHandler(cfg.StoreDriver, st.pinger))
	}

	svc := patient.NewService(st.repo)
	if metrics != nil {
		svc.SetRecorder(patient.NewLogRecorder(logger, metrics))
	} else {
		svc.SetRecorder(patient.NewLogRecorder(logger))
	}

	api := e.Group("/api/hms")
	patient.NewHandler(svc).RegisterRoutes(api)

	return e
}
