// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Названия хранилищ, допустимые в поле primary.
const (
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env             string `yaml:"env" env:"ENV" env-default:"local"`
	StorePair       `yaml:"store_pair"`
	RedisConnection `yaml:"redis_connection"`
	HTTPServer      `yaml:"http_server"`
	JWTToken        `yaml:"jwttoken"`
	SeedAdmin       `yaml:"seed_admin"`
	RateLimit       `yaml:"rate_limit"`
	LoaderURL       string `yaml:"loader_url" env:"LOADER_URL" env-default:"/files/loader.exe"`
}

// SeedAdmin учётные данные стартового администратора. Создаётся при
// старте, только если в системе нет ни одного администратора.
type SeedAdmin struct {
	AdminUsername string `yaml:"username" env:"SEED_ADMIN_USERNAME" env-default:"admin"`
	AdminEmail    string `yaml:"email" env:"SEED_ADMIN_EMAIL" env-default:"admin@localhost"`
	AdminPassword string `yaml:"password" env:"SEED_ADMIN_PASSWORD"`
}

// RateLimit настройки общего токен-бакета на защищённые маршруты.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"50"`
	Burst int     `yaml:"burst" env-default:"100"`
}

// StorePair описывает пару хранилищ: какое из них основное
// и включено ли зеркалирование записей во второе.
// Читается один раз при старте процесса и дальше не меняется.
type StorePair struct {
	Primary       string `yaml:"primary" env:"PRIMARY_DB" env-default:"postgres"`
	MirrorEnabled bool   `yaml:"mirror_enabled" env:"MIRROR_ENABLED" env-default:"false"`
	PostgresDSN   string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	MySQLDSN      string `yaml:"mysql_dsn" env:"MYSQL_DSN"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:"0.0.0.0:8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и валидирует пару хранилищ.
// Процесс не должен молча стартовать без основного хранилища.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if err := cfg.StorePair.Validate(); err != nil {
		log.Fatalf("invalid store pair config: %s", err)
	}
	return &cfg
}

// Validate проверяет, что выбранное основное хранилище сконфигурировано,
// а зеркалирование не включено без второго хранилища.
func (sp StorePair) Validate() error {
	switch sp.Primary {
	case StorePostgres:
		if sp.PostgresDSN == "" {
			return fmt.Errorf("primary is %q but postgres_dsn is empty", sp.Primary)
		}
	case StoreMySQL:
		if sp.MySQLDSN == "" {
			return fmt.Errorf("primary is %q but mysql_dsn is empty", sp.Primary)
		}
	default:
		return fmt.Errorf("unknown primary store %q", sp.Primary)
	}
	if sp.MirrorEnabled && sp.SecondaryDSN() == "" {
		return fmt.Errorf("mirror_enabled is set but secondary store is not configured")
	}
	return nil
}

// SecondaryDSN возвращает строку подключения неосновного хранилища,
// пустую строку — если оно не сконфигурировано.
func (sp StorePair) SecondaryDSN() string {
	if sp.Primary == StorePostgres {
		return sp.MySQLDSN
	}
	return sp.PostgresDSN
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorePair:\n"+
			"  Primary: %s\n"+
			"  MirrorEnabled: %t\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n",
		c.Env,
		c.Primary,
		c.MirrorEnabled,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.TokenTTL,
	)
}
