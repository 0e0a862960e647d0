package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
	defaultChallengeTTL       = 5 * time.Minute
	defaultVerifyWorkers      = 8
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Redis *RedisConfig `json:"redis" yaml:"redis"`

	// Auth configuration for challenge and session handling
	Auth *AuthConfig `json:"auth" yaml:"auth"`

	// Block configuration defaults for tenants without an override row
	Block *BlockConfig `json:"block" yaml:"block"`

	// Crypto configuration for the signing/verification worker pool
	Crypto *CryptoConfig `json:"crypto" yaml:"crypto"`

	// Tenants carries per-tenant signing keys, claim mappings and cookie policies
	Tenants []TenantConfig `json:"tenants" yaml:"tenants"`

	// Clients lists first-party clients and their allowed scopes
	Clients []ClientConfig `json:"clients" yaml:"clients"`

	// UserService configuration for the user store backend
	UserService *UserServiceConfig `json:"userService" yaml:"userService"`

	// PubSub configuration for security event publishing
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`

	// Firebase configuration for push notifications
	Firebase *FirebaseConfig `json:"firebase" yaml:"firebase"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// RedisConfig defines connection settings for the cache layer.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	PoolSize int    `json:"poolSize" yaml:"poolSize"`
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	BcryptCost        int           `json:"bcryptCost" yaml:"bcryptCost"`
	ChallengeTTL      time.Duration `json:"challengeTtl" yaml:"challengeTtl"`
	MaxActiveSessions int           `json:"maxActiveSessions" yaml:"maxActiveSessions"`
}

// BlockConfig defines fallback brute-force thresholds.
type BlockConfig struct {
	AttemptsAllowed int64         `json:"attemptsAllowed" yaml:"attemptsAllowed"`
	AttemptsWindow  time.Duration `json:"attemptsWindow" yaml:"attemptsWindow"`
	BlockInterval   time.Duration `json:"blockInterval" yaml:"blockInterval"`
}

// CryptoConfig defines the verification worker pool size.
type CryptoConfig struct {
	VerifyWorkers int `json:"verifyWorkers" yaml:"verifyWorkers"`
}

// ClaimMapping binds a claim name to a JSON path into the user profile.
type ClaimMapping struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// CookieConfig defines how tokens are written as cookies on biometric completion.
type CookieConfig struct {
	Domain           string `json:"domain" yaml:"domain"`
	Path             string `json:"path" yaml:"path"`
	Secure           bool   `json:"secure" yaml:"secure"`
	SameSite         string `json:"sameSite" yaml:"sameSite"`
	AccessTokenName  string `json:"accessTokenName" yaml:"accessTokenName"`
	RefreshTokenName string `json:"refreshTokenName" yaml:"refreshTokenName"`
}

// TenantConfig defines a tenant's token issuance settings.
type TenantConfig struct {
	TenantID string `json:"tenantId" yaml:"tenantId"`
	Issuer   string `json:"issuer" yaml:"issuer"`

	// Kid identifies the active signing key in issued token headers.
	Kid string `json:"kid" yaml:"kid"`
	// SigningKeyPath points to a PEM-encoded EC P-256 private key file.
	SigningKeyPath string `json:"signingKeyPath" yaml:"signingKeyPath"`
	// SigningKeyPEM inlines the key directly, taking precedence over the path.
	SigningKeyPEM string `json:"signingKeyPem" yaml:"signingKeyPem"`

	AccessTokenExpiry  time.Duration `json:"accessTokenExpiry" yaml:"accessTokenExpiry"`
	IDTokenExpiry      time.Duration `json:"idTokenExpiry" yaml:"idTokenExpiry"`
	RefreshTokenExpiry time.Duration `json:"refreshTokenExpiry" yaml:"refreshTokenExpiry"`

	AccessTokenClaims []ClaimMapping `json:"accessTokenClaims" yaml:"accessTokenClaims"`
	IDTokenClaims     []ClaimMapping `json:"idTokenClaims" yaml:"idTokenClaims"`

	Cookie *CookieConfig `json:"cookie" yaml:"cookie"`
}

// ClientConfig defines a first-party client and its scope allowlist.
type ClientConfig struct {
	ClientID      string   `json:"clientId" yaml:"clientId"`
	TenantID      string   `json:"tenantId" yaml:"tenantId"`
	AllowedScopes []string `json:"allowedScopes" yaml:"allowedScopes"`
}

// UserServiceConfig defines the user store backend.
type UserServiceConfig struct {
	// Provider type: "http" for a remote user service or "local" for the credential table
	Provider string        `json:"provider" yaml:"provider"`
	BaseURL  string        `json:"baseUrl" yaml:"baseUrl"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
	APIKey   string        `json:"apiKey" yaml:"apiKey"`
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "local" for local HTTP or "google" for Google Pub/Sub
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// FirebaseConfig defines Firebase configuration for push notifications
type FirebaseConfig struct {
	ProjectID       string `json:"projectId" yaml:"projectId"`
	CredentialsPath string `json:"credentialsPath" yaml:"credentialsPath"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: POSTGRES_SSLMODE -> postgres.sslMode (not postgres.sslmode)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{}
	}
	if cfg.Auth.ChallengeTTL <= 0 {
		cfg.Auth.ChallengeTTL = defaultChallengeTTL
	}
	if cfg.Crypto == nil {
		cfg.Crypto = &CryptoConfig{}
	}
	if cfg.Crypto.VerifyWorkers <= 0 {
		cfg.Crypto.VerifyWorkers = defaultVerifyWorkers
	}

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
