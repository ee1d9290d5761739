// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env             string `yaml:"env" env:"ENV" env-default:"local"`
	API             `yaml:"api"`
	SessionStore    `yaml:"session_store"`
	RedisConnection `yaml:"redis_connection"`
	ProfileCache    `yaml:"profile_cache"`
	HTTPServer      `yaml:"http_server"`
	RateLimit       `yaml:"rate_limit"`
	RabbitMQ        `yaml:"rabbitmq"`
	Tabs            `yaml:"tabs"`
}

// API настройки клиента бэкенда портала
type API struct {
	BaseURL    string        `yaml:"base_url" env:"API_URL" env-default:"http://localhost:8000"`
	TimeoutAPI time.Duration `yaml:"timeoutapi" env-default:"10s"`
}

// SessionStore выбор хранилища токенов: memory или redis
type SessionStore struct {
	Driver     string        `yaml:"driver" env:"SESSION_DRIVER" env-default:"memory"`
	KeyPrefix  string        `yaml:"key_prefix" env-default:"portal:session:"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDR"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// ProfileCache настройки кеша профиля. Нулевой TTL означает отсутствие истечения.
type ProfileCache struct {
	TTL time.Duration `yaml:"ttl"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP  string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP  time.Duration `yaml:"timeouthttp" env-default:"15s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env-default:"60s"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

// RateLimit ограничение входящих запросов веб-фронта
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"20"`
	Burst int     `yaml:"burst" env-default:"40"`
}

// RabbitMQ настройки публикации событий сессии. Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env-default:"portal.events"`
	MaxRetries int           `yaml:"max_retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// Tabs настройки реестра клиентских сессий
type Tabs struct {
	IdleTTL       time.Duration `yaml:"idle_ttl" env-default:"30m"`
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"1m"`
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH
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
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"API:\n"+
			"  BaseURL: %s\n"+
			"  Timeout: %s\n"+
			"SessionStore:\n"+
			"  Driver: %s\n"+
			"  KeyPrefix: %s\n"+
			"  TTL: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"ProfileCache:\n"+
			"  TTL: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RateLimit:\n"+
			"  RPS: %.2f\n"+
			"  Burst: %d\n"+
			"RabbitMQ:\n"+
			"  Exchange: %s\n"+
			"Tabs:\n"+
			"  IdleTTL: %s\n",
		c.Env,
		c.BaseURL,
		c.TimeoutAPI,
		c.Driver,
		c.KeyPrefix,
		c.SessionTTL,
		c.AddressRedis,
		c.User,
		c.DB,
		c.ProfileCache.TTL,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.RPS,
		c.Burst,
		c.Exchange,
		c.IdleTTL,
	)
}
