package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	StorageConfig
	ProxyConfig
	AvatarConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type StorageConfig interface {
	GetDataFolder() string
	GetLocalStoreFile() string
	GetRemoteStoreURL() string
	GetRemoteStoreKey() string
	GetRemoteStorePath() string
}

type ProxyConfig interface {
	GetTMDBAPIKey() string
	GetOMDBAPIKey() string
	GetYouTubeAPIKey() string
	GetCacheTTL() time.Duration
	GetCacheMaxEntries() int
	GetUpstreamTimeout() time.Duration
}

type AvatarConfig interface {
	GetAvatarBucket() string
	GetAvatarRegion() string
	GetAvatarEndpoint() string
	GetAvatarAccessKey() string
	GetAvatarSecretKey() string
	GetAvatarPublicBaseURL() string
}

type mainConfig struct {
	EnvVars
	Cors
	Storage
	Proxy
	Avatar
}

// New reads the configuration from the environment.
func New() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, errors.Wrap(err, "[config.New] parse env")
	}
	return c, nil
}
