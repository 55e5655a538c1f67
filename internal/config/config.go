// Package config loads process configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBPath string `env:"DB_PATH" envDefault:"readersync.db"`

	// External processor. Output must end with one JSON line.
	PythonBin      string        `env:"PROCESSOR_BIN"           envDefault:"/usr/bin/python3"`
	ProcessScript  string        `env:"PROCESS_JOBS_SCRIPT"     envDefault:"/var/www/server/webservices/controlid/processarJobsSync.py"`
	ResyncScript   string        `env:"RESYNC_READER_SCRIPT"    envDefault:"/var/www/server/webservices/controlid/sincronizarLeitor.py"`
	ProcessTimeout time.Duration `env:"PROCESSOR_TIMEOUT"       envDefault:"5m"`
	BusyMarker     string        `env:"PROCESSOR_BUSY_MARKER"   envDefault:"Outro processo já está executando"`
	BusyRetries    uint64        `env:"PROCESSOR_BUSY_RETRIES"  envDefault:"3"`
	BusyBackoff    time.Duration `env:"PROCESSOR_BUSY_BACKOFF"  envDefault:"2s"`
	BreakerTrips   uint32        `env:"PROCESSOR_BREAKER_TRIPS" envDefault:"5"`
	BreakerCooloff time.Duration `env:"PROCESSOR_BREAKER_COOLOFF" envDefault:"1m"`

	// Queue
	BackgroundLimit int           `env:"BACKGROUND_LIMIT" envDefault:"20"`
	CronLimit       int           `env:"CRON_LIMIT"       envDefault:"50"`
	CronTimezone    string        `env:"CRON_TIMEZONE"    envDefault:"America/Sao_Paulo"`
	StaleAfter      time.Duration `env:"STALE_AFTER"      envDefault:"15m"`
	Retention       time.Duration `env:"DONE_RETENTION"   envDefault:"720h"`
	PIDFile         string        `env:"PID_FILE"         envDefault:".readersync-pid"`
	StopFile        string        `env:"STOP_FILE"        envDefault:".readersync-stop"`

	// HTTP
	ListenAddr      string        `env:"LISTEN_ADDR"      envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Redis wake-up channel; empty address disables it.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"      envDefault:"0"`
	RedisChannel  string `env:"REDIS_CHANNEL" envDefault:"readersync:jobs"`

	// Logging
	AppEnv   string `env:"APP_ENV"   envDefault:"production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}
