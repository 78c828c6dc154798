package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"Ystore/internal/config"
	"Ystore/internal/db"
	"Ystore/internal/engine"
	"Ystore/internal/engine/memory"
	"Ystore/internal/engine/redisstore"
	"Ystore/internal/engine/sqlstore"
	"Ystore/internal/logger"
	"Ystore/internal/model"
	"Ystore/internal/router"
)

// SQLEngine is the name the SQL engine registers under.
const SQLEngine = "sql"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(config.LoadConfig())
		},
	}
}

func runServe(cfg *config.Config) error {
	if err := logger.Init(cfg.LogDir, "app.log"); err != nil {
		return fmt.Errorf("log init failed: %w", err)
	}

	if err := model.InitRegistry(cfg.ModelsDir); err != nil {
		logger.Error("registry_init_failed", map[string]any{"error": err.Error()})
		return err
	}
	logger.Info("models_initialized", map[string]any{"models": model.Names()})

	closeEngines, err := setupEngines(cfg, engine.Default)
	if err != nil {
		logger.Error("engines_init_failed", map[string]any{"error": err.Error()})
		return err
	}
	defer closeEngines()

	if err := router.InitRoutes(nil, cfg); err != nil {
		logger.Error("router_init_failed", map[string]any{"error": err.Error()})
		return err
	}

	logger.Info("server_start", map[string]any{"port": cfg.Port})
	if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
		logger.Error("server_error", map[string]any{"error": err.Error()})
		return err
	}
	return nil
}

// setupEngines registers the memory engine plus every configured backend on
// d, then applies the default engine and resource routes. The returned func
// closes the opened connections.
func setupEngines(cfg *config.Config, d *engine.Dispatcher) (func(), error) {
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	d.Register(memory.New())

	if cfg.SQL.Enabled() {
		var (
			e   *sqlstore.Engine
			err error
		)
		if cfg.SQL.PostgresDSN != "" {
			conn, openErr := db.OpenPostgres(cfg.SQL.PostgresDSN)
			if openErr == nil {
				closers = append(closers, conn.Close)
				e = sqlstore.New(SQLEngine, conn, sqlstore.Postgres)
				logger.Info("postgres_connected", nil)
			}
			err = openErr
		} else {
			conn, openErr := db.OpenSQLite(cfg.SQL.SQLitePath)
			if openErr == nil {
				closers = append(closers, conn.Close)
				e = sqlstore.New(SQLEngine, conn, sqlstore.SQLite)
				logger.Info("sqlite_opened", map[string]any{"path": cfg.SQL.SQLitePath})
			}
			err = openErr
		}
		if err != nil {
			closeAll()
			return nil, err
		}
		d.Register(e)
	}

	if cfg.Redis.Addr != "" {
		db.InitRedis(cfg.Redis.Addr)
		if err := db.PingRedis(); err != nil {
			closeAll()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		closers = append(closers, db.RDB.Close)
		d.Register(redisstore.New(redisstore.Name, db.RDB, cfg.Redis.Prefix))
		logger.Info("redis_connected", map[string]any{"addr": cfg.Redis.Addr})
	}

	registered := map[string]bool{}
	for _, name := range d.Engines() {
		registered[name] = true
	}
	if name := cfg.Engines.Default; name != "" {
		if !registered[name] {
			closeAll()
			return nil, fmt.Errorf("default engine %q is not configured", name)
		}
		d.SetDefault(name)
	}
	for resource, name := range cfg.Engines.Routes {
		if !registered[name] {
			closeAll()
			return nil, fmt.Errorf("route %s=%s: engine is not configured", resource, name)
		}
		d.Route(resource, name)
	}
	logger.Info("engines_ready", map[string]any{
		"engines": d.Engines(),
		"routes":  cfg.Engines.Routes,
	})
	return closeAll, nil
}
