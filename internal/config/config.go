// Package config loads this client's configuration from a YAML file plus
// environment variable overrides, in the layering the teacher's own services
// use: file defaults, viper.SetDefault fallbacks, then BindEnv overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jsamuelsen/idaas-m2m-client/internal/credential"
	"github.com/jsamuelsen/idaas-m2m-client/internal/logger"
	"github.com/jsamuelsen/idaas-m2m-client/internal/validation"
)

// envPrefix namespaces every bound environment variable, e.g.
// IDAASCLIENT_CLIENT_TOKEN_ENDPOINT.
const envPrefix = "IDAASCLIENT"

const fatalConfigErr = "fatal error config file: %w"

// ServerConfig configures the ancillary HTTP server exposing /healthz and
// /metrics; it never serves the credential API itself (Non-goal: this is a
// client library, not a token-issuing service).
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Config is the full application configuration.
type Config struct {
	Environment string                  `mapstructure:"environment"`
	Client      credential.ClientConfig `mapstructure:"client"`
	Logging     logger.Config           `mapstructure:"logging"`
	Server      ServerConfig            `mapstructure:"server"`
}

const (
	defaultServerPort         = 9090
	defaultServerReadTimeout  = 5 * time.Second
	defaultServerWriteTimeout = 10 * time.Second
	defaultServerIdleTimeout  = 60 * time.Second
)

// Load reads ./config/client.yaml (if present), layers defaults and
// environment-variable overrides on top, unmarshals into a Config, and
// validates it. It panics on any unrecoverable error, matching the fail-fast
// startup behavior of the teacher's own config.Load.
func Load() *Config {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.AddConfigPath("./config")
	viper.SetConfigName("client")
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf(fatalConfigErr, err))
		}
	}

	bindDefaults()
	bindEnv()

	var cfg Config

	if err := viper.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("unmarshaling config: %w", err))
	}

	cfg.Client.ApplyDefaults()
	applyServerDefaults(&cfg.Server)

	if err := validation.New().Validate(&cfg.Client); err != nil {
		panic(fmt.Errorf("invalid client config: %w", err))
	}

	return &cfg
}

func applyServerDefaults(s *ServerConfig) {
	if s.Port == 0 {
		s.Port = defaultServerPort
	}

	if s.ReadTimeout == 0 {
		s.ReadTimeout = defaultServerReadTimeout
	}

	if s.WriteTimeout == 0 {
		s.WriteTimeout = defaultServerWriteTimeout
	}

	if s.IdleTimeout == 0 {
		s.IdleTimeout = defaultServerIdleTimeout
	}
}

func bindDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("client.scope", credential.DefaultScope)
	viper.SetDefault("client.prefetch_strategy", "one-caller-blocks")
	viper.SetDefault("client.stale_policy", "STRICT")
	viper.SetDefault("client.ssl_verify", true)
	viper.SetDefault("logging.console_enabled", true)
	viper.SetDefault("logging.console_level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("server.port", defaultServerPort)
}

// bindEnv mirrors every config key a deployer is likely to override at the
// environment rather than in the checked-in YAML: identity, secrets
// pointers, and endpoints. Nested struct fields still unmarshal from the
// merged file config even without an explicit BindEnv.
func bindEnv() {
	_ = viper.BindEnv("environment", "ENVIRONMENT")

	_ = viper.BindEnv("client.instance_id", "IDAASCLIENT_INSTANCE_ID")
	_ = viper.BindEnv("client.client_id", "IDAASCLIENT_CLIENT_ID")
	_ = viper.BindEnv("client.scope", "IDAASCLIENT_SCOPE")
	_ = viper.BindEnv("client.token_endpoint", "IDAASCLIENT_TOKEN_ENDPOINT")
	_ = viper.BindEnv("client.issuer_url", "IDAASCLIENT_ISSUER_URL")
	_ = viper.BindEnv("client.prefetch_strategy", "IDAASCLIENT_PREFETCH_STRATEGY")
	_ = viper.BindEnv("client.stale_policy", "IDAASCLIENT_STALE_POLICY")

	_ = viper.BindEnv("client.auth.method", "IDAASCLIENT_AUTH_METHOD")
	_ = viper.BindEnv("client.auth.client_secret_env_var_name", "IDAASCLIENT_AUTH_CLIENT_SECRET_ENV_VAR_NAME")
	_ = viper.BindEnv("client.auth.private_key_env_var_name", "IDAASCLIENT_AUTH_PRIVATE_KEY_ENV_VAR_NAME")
	_ = viper.BindEnv("client.auth.federated_credential_name", "IDAASCLIENT_AUTH_FEDERATED_CREDENTIAL_NAME")
	_ = viper.BindEnv("client.auth.oidc_token_file_path", "IDAASCLIENT_AUTH_OIDC_TOKEN_FILE_PATH")
	_ = viper.BindEnv("client.auth.pkcs7_cloud_vendor", "IDAASCLIENT_AUTH_PKCS7_CLOUD_VENDOR")

	_ = viper.BindEnv("logging.console_enabled", "IDAASCLIENT_LOGGING_CONSOLE_ENABLED")
	_ = viper.BindEnv("logging.file_enabled", "IDAASCLIENT_LOGGING_FILE_ENABLED")
	_ = viper.BindEnv("logging.file", "IDAASCLIENT_LOGGING_FILE")

	_ = viper.BindEnv("server.port", "IDAASCLIENT_SERVER_PORT")
}
