package buildCFG

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"
)

// Getter is the part of the configuration loader the builders read from.
type Getter interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetDuration(key string) time.Duration
	GetStringSlice(key string) []string
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type RabbitConfig struct {
	Enabled  bool
	Url      string
	Exchange string
	Queue    string
}

type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type MigrationConfig struct {
	Path               string
	RollbackOnShutdown bool
}

func BuildServerConfig(cfg Getter, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msg("server.port is not set, using 8080")
	}
	timeout := cfg.GetDuration("server.shutdown_timeout")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return ServerConfig{Port: port, ShutdownTimeout: timeout}
}

func BuildDBConfig(cfg Getter, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	masterDSN := cfg.GetString("database.master_dsn")
	if masterDSN == "" {
		host := cfg.GetString("database.host")
		if host == "" {
			return "", nil, nil, errors.New("database.master_dsn or database.host is required")
		}
		port := cfg.GetInt("database.port")
		if port == 0 {
			port = 5432
		}
		sslmode := cfg.GetString("database.sslmode")
		if sslmode == "" {
			sslmode = "disable"
		}
		masterDSN = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			host, port,
			cfg.GetString("database.user"),
			cfg.GetString("database.password"),
			cfg.GetString("database.dbname"),
			sslmode,
		)
	}

	slaveDSNs := cfg.GetStringSlice("database.slave_dsns")

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("database.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: cfg.GetDuration("database.conn_max_lifetime"),
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = 5 * time.Minute
	}

	log.Info().
		Int("slaves", len(slaveDSNs)).
		Int("max_open_conns", opts.MaxOpenConns).
		Msg("database config built")
	return masterDSN, slaveDSNs, opts, nil
}

func BuildRabbitConfig(cfg Getter, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Enabled:  cfg.GetBool("rabbit.enabled"),
		Url:      cfg.GetString("rabbit.url"),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if !rc.Enabled {
		log.Info().Msg("RabbitMQ disabled, certificates complete inline")
		return rc, nil
	}
	if rc.Url == "" {
		return rc, errors.New("rabbit.url is required when rabbit.enabled is set")
	}
	if rc.Exchange == "" {
		rc.Exchange = "sgea.certificates"
	}
	if rc.Queue == "" {
		rc.Queue = "certificate_issue"
	}
	return rc, nil
}

func BuildAuthConfig(cfg Getter, log *zerolog.Logger) (AuthConfig, error) {
	ac := AuthConfig{
		Secret:   cfg.GetString("auth.secret"),
		TokenTTL: cfg.GetDuration("auth.token_ttl"),
	}
	if ac.Secret == "" {
		return ac, errors.New("auth.secret is required")
	}
	if len(ac.Secret) < 16 {
		log.Warn().Msg("auth.secret is shorter than 16 bytes")
	}
	return ac, nil
}

func BuildMigrationConfig(cfg Getter) MigrationConfig {
	mc := MigrationConfig{
		Path:               cfg.GetString("migrations.path"),
		RollbackOnShutdown: cfg.GetBool("migrations.rollback_on_shutdown"),
	}
	if mc.Path == "" {
		mc.Path = "migrations/postgres"
	}
	return mc
}
