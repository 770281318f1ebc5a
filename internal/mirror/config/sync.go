package config

import "time"

// SyncConfig содержит настройки фоновой синхронизации с удаленным хранилищем.
type SyncConfig struct {
	// Interval - период между тиками синхронизации.
	Interval time.Duration `yaml:"interval" env:"MIRROR_SYNC_INTERVAL" env-default:"2m"`
	// InitialLoadTimeout - таймаут начальной полной загрузки.
	InitialLoadTimeout time.Duration `yaml:"initial_load_timeout" env:"MIRROR_SYNC_INITIAL_LOAD_TIMEOUT" env-default:"60s"`
	// FetchTimeout - таймаут удаленного запроса одного тика.
	FetchTimeout time.Duration `yaml:"fetch_timeout" env:"MIRROR_SYNC_FETCH_TIMEOUT" env-default:"30s"`
	// MaxBackoff - верхняя граница экспоненциальной задержки после сбоев.
	MaxBackoff time.Duration `yaml:"max_backoff" env:"MIRROR_SYNC_MAX_BACKOFF" env-default:"5m"`
	// MaxConsecutiveFailures - порог подряд идущих сбоев до деградации.
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures" env:"MIRROR_SYNC_MAX_CONSECUTIVE_FAILURES" env-default:"5"`
}
