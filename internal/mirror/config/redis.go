package config

import "time"

// RedisConfig содержит настройки подключения к Redis backend.
type RedisConfig struct {
	Host     string        `yaml:"host" env:"MIRROR_REDIS_HOST" env-default:"localhost"`
	Port     int           `yaml:"port" env:"MIRROR_REDIS_PORT" env-default:"6379"`
	Password string        `yaml:"password" env:"MIRROR_REDIS_PASSWORD" env-default:""`
	DB       int           `yaml:"db" env:"MIRROR_REDIS_DB" env-default:"0"`
	PoolSize int           `yaml:"pool_size" env:"MIRROR_REDIS_POOL_SIZE" env-default:"10"`
	Timeout  time.Duration `yaml:"timeout" env:"MIRROR_REDIS_TIMEOUT" env-default:"5s"`
	// KeyPrefix - префикс ключей хранилища заметок.
	KeyPrefix string `yaml:"key_prefix" env:"MIRROR_REDIS_KEY_PREFIX" env-default:"notemirror"`
}
