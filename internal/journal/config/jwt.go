package config

import "time"

// JWTConfig содержит настройки токенов анонимной личности.
type JWTConfig struct {
	SecretKey string        `yaml:"secret_key" env:"MOODNOTE_JWT_SECRET_KEY" env-default:"change-me-in-production"`
	Issuer    string        `yaml:"issuer" env:"MOODNOTE_JWT_ISSUER" env-default:"moodnote"`
	TTL       time.Duration `yaml:"ttl" env:"MOODNOTE_JWT_TTL" env-default:"8760h"`
}
