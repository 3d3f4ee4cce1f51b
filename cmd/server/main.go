package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"neovar/internal/app"
	"neovar/internal/config"
	"neovar/internal/logging"
)

func main() {
	var cfg config.Config

	flag.StringVar(&cfg.Addr, "addr", getEnv("ADDR", "127.0.0.1:8080"), "listen address")
	flag.StringVar(&cfg.DataDir, "data-dir", getEnv("DATA_DIR", "./data"), "data directory (sqlite db)")
	flag.StringVar(&cfg.DBBackend, "db-backend", getEnv("DB_BACKEND", "sqlite"), "database backend (sqlite or postgres)")
	flag.StringVar(&cfg.DatabaseURL, "database-url", getEnv("DATABASE_URL", ""), "postgres connection string (required when db-backend=postgres)")
	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "log format (text or json)")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")

	flag.StringVar(&cfg.FTPHost, "ftp-host", getEnv("FTP_HOST", ""), "NAS FTPS host (host or host:port)")
	flag.StringVar(&cfg.FTPUser, "ftp-user", getEnv("FTP_USER", ""), "NAS FTPS user")
	flag.StringVar(&cfg.FTPPassword, "ftp-pass", getEnv("FTP_PASS", ""), "NAS FTPS password")
	flag.DurationVar(&cfg.FTPTimeout, "ftp-timeout", getEnvDuration("FTP_TIMEOUT", 100*time.Minute), "FTPS dial/transfer timeout")
	flag.StringVar(&cfg.RemoteRoot, "remote-root", getEnv("REMOTE_ROOT", "/neovar"), "root directory on the NAS")

	flag.StringVar(&cfg.SMTPHost, "smtp-host", getEnv("SMTP_HOST", "smtp.gmail.com"), "SMTP host for help-query mail")
	flag.IntVar(&cfg.SMTPPort, "smtp-port", getEnvInt("SMTP_PORT", 587), "SMTP port")
	flag.StringVar(&cfg.AdminEmail, "admin-email", getEnv("ADMIN_EMAIL", ""), "admin inbox for help queries (also the SMTP user)")
	flag.StringVar(&cfg.AppPassword, "app-password", getEnv("APP_PASSWORD", ""), "SMTP app password")

	flag.StringVar(&cfg.SynoBaseURL, "syno-base-url", getEnv("SYNO_BASE_URL", ""), "Synology FileStation base URL (e.g. https://nas:5001)")
	flag.StringVar(&cfg.SynoAccount, "syno-account", getEnv("SYNO_ACCOUNT", ""), "Synology account")
	flag.StringVar(&cfg.SynoPassword, "syno-password", getEnv("SYNO_PASSWORD", ""), "Synology password")
	flag.IntVar(&cfg.ShareExpireDays, "share-expire-days", getEnvInt("SHARE_EXPIRE_DAYS", 7), "share link validity in days (0=no expiry)")
	flag.Parse()

	logger, err := logging.Setup(cfg.LogFormat)
	if err != nil {
		log.Fatalf("invalid LOG_FORMAT %q: %v", cfg.LogFormat, err)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("invalid LOG_LEVEL %q: %v", cfg.LogLevel, err)
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		logging.Fatalf("server error: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}
