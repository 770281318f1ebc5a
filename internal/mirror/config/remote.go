package config

import "time"

// Поддерживаемые реализации удаленного хранилища.
const (
	RemoteBackendSimplenote = "simplenote"
	RemoteBackendRedis      = "redis"
	RemoteBackendPostgres   = "postgres"
)

// RemoteConfig содержит настройки подключения к удаленному хранилищу заметок.
type RemoteConfig struct {
	// Backend выбирает реализацию: simplenote, redis или postgres.
	Backend string `yaml:"backend" env:"MIRROR_REMOTE_BACKEND" env-default:"simplenote"`
	// BaseURL - адрес HTTP API для simplenote backend.
	BaseURL  string `yaml:"base_url" env:"MIRROR_REMOTE_BASE_URL" env-default:"https://api.simplenote.example"`
	Email    string `yaml:"email" env:"MIRROR_REMOTE_EMAIL"`
	Password string `yaml:"password" env:"MIRROR_REMOTE_PASSWORD"`
	// RequestTimeout - таймаут одного HTTP запроса.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"MIRROR_REMOTE_REQUEST_TIMEOUT" env-default:"15s"`
}
