package config

// AuthConfig содержит настройки авторизации HTTP API.
// Пустой секрет отключает проверку токенов.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"MIRROR_AUTH_JWT_SECRET" env-default:""`
}

// Enabled сообщает, включена ли проверка токенов.
func (a *AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}
