package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read by the exporter.
const (
	EnvConfig      = "KPI_CONFIG"
	EnvTicketsFile = "KPI_TICKETS_FILE"
	EnvLoginsFile  = "KPI_LOGINS_FILE"
	EnvListenAddr  = "KPI_LISTEN_ADDR"
	EnvLogLevel    = "KPI_LOG_LEVEL"
	EnvLogFormat   = "KPI_LOG_FORMAT"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides file settings with the KPI_* variables that are set.
func (c *Config) ApplyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&c.TicketsFile, EnvTicketsFile)
	override(&c.LoginsFile, EnvLoginsFile)
	override(&c.ListenAddr, EnvListenAddr)
	override(&c.Log.Level, EnvLogLevel)
	override(&c.Log.Format, EnvLogFormat)
}
