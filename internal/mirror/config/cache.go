package config

import "time"

// CacheConfig содержит настройки локального кэша заметок.
type CacheConfig struct {
	// TombstoneRetention - окно удержания tombstone-записей.
	TombstoneRetention time.Duration `yaml:"tombstone_retention" env:"MIRROR_CACHE_TOMBSTONE_RETENTION" env-default:"1h"`
	// DefaultPageSize - размер страницы по умолчанию.
	DefaultPageSize int `yaml:"default_page_size" env:"MIRROR_CACHE_DEFAULT_PAGE_SIZE" env-default:"20"`
	// MaxPageSize - максимальный размер страницы.
	MaxPageSize int `yaml:"max_page_size" env:"MIRROR_CACHE_MAX_PAGE_SIZE" env-default:"100"`
	// SnippetMaxLength - максимальная длина фрагмента в списках.
	SnippetMaxLength int `yaml:"snippet_max_length" env:"MIRROR_CACHE_SNIPPET_MAX_LENGTH" env-default:"100"`
}
