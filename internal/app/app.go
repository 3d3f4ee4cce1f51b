package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"neovar/internal/api"
	"neovar/internal/config"
	"neovar/internal/db"
	"neovar/internal/logging"
	"neovar/internal/mailer"
	"neovar/internal/metrics"
	"neovar/internal/nas"
	"neovar/internal/project"
	"neovar/internal/store"
	"neovar/internal/transfer"
	"neovar/internal/ws"
)

func Run(ctx context.Context, cfg config.Config) error {
	if cfg.FTPHost == "" {
		return errors.New("FTP_HOST is required")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return err
	}

	dbBackend, err := db.ParseBackend(cfg.DBBackend)
	if err != nil {
		return err
	}

	var dbPath string
	dbCfg := db.Config{Backend: dbBackend, DatabaseURL: cfg.DatabaseURL}
	if dbBackend == db.BackendSQLite {
		dbPath = filepath.Join(cfg.DataDir, "neovar.db")
		dbCfg.SQLitePath = dbPath
	}
	conn, err := db.Open(dbCfg)
	if err != nil {
		return err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	if dbBackend == db.BackendSQLite {
		_ = os.Chmod(dbPath, 0o600)
	}

	st := store.New(conn)
	hub := ws.NewHub()
	mtr := metrics.New()

	dialer := transfer.FTPDialer{
		Host:     cfg.FTPHost,
		User:     cfg.FTPUser,
		Password: cfg.FTPPassword,
		Timeout:  cfg.FTPTimeout,
	}

	orch := project.New(project.Config{
		Store:      st,
		Dialer:     dialer,
		RemoteRoot: cfg.RemoteRoot,
		Hub:        hub,
	})

	ml := mailer.New(mailer.Config{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		AdminEmail: cfg.AdminEmail,
		Password:   cfg.AppPassword,
	})

	shares := nas.New(nas.Config{
		BaseURL:  cfg.SynoBaseURL,
		Account:  cfg.SynoAccount,
		Password: cfg.SynoPassword,
	})

	handler := api.New(api.Dependencies{
		Config:       cfg,
		Store:        st,
		Orchestrator: orch,
		Hub:          hub,
		Metrics:      mtr,
		Mailer:       ml,
		NAS:          shares,
	})

	// Chunk uploads and archive downloads run for hours; only the header
	// read gets a deadline.
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       24 * time.Hour,
		ReadTimeout:       0,
		WriteTimeout:      0,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Infof("listening on http://%s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
}
