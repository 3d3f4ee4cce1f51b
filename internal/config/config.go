package config

import "time"

type Config struct {
	Addr        string
	DataDir     string
	DBBackend   string
	DatabaseURL string
	LogFormat   string
	LogLevel    string

	// Remote NAS storage. Credentials are loaded once at process start.
	FTPHost     string
	FTPUser     string
	FTPPassword string
	FTPTimeout  time.Duration
	RemoteRoot  string

	// Outbound help-query mail.
	SMTPHost    string
	SMTPPort    int
	AdminEmail  string
	AppPassword string

	// Synology FileStation share API.
	SynoBaseURL     string
	SynoAccount     string
	SynoPassword    string
	ShareExpireDays int
}
