package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

// =============================================================================
// Originpoint Go Backend - Configuration with Environment Overrides
// =============================================================================

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Auth        AuthConfig        `yaml:"auth"`
	BlobStore   BlobStoreConfig   `yaml:"blob_store"`
	LLM         LLMConfig         `yaml:"llm"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Audit       AuditConfig       `yaml:"audit"`
	Documents   DocumentsConfig   `yaml:"documents"`
	Compliance  ComplianceConfig  `yaml:"compliance"`
}

type ServerConfig struct {
	Port             string   `yaml:"port"`
	Env              string   `yaml:"env"`
	ReadTimeoutSec   int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec  int      `yaml:"write_timeout_sec"`
	IdleTimeoutSec   int      `yaml:"idle_timeout_sec"`
	ShutdownTimeout  int      `yaml:"shutdown_timeout_sec"`
	CORSAllowOrigins []string `yaml:"cors_allow_origins"`
}

// DatabaseConfig holds the two role-scoped DSNs described in spec.md §4.1:
// lending_app owns the public schema, compliance_app owns hmda.
type DatabaseConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	Name              string `yaml:"name"`
	AdminUser         string `yaml:"admin_user"`     // used only by the migration runner: CREATE ROLE/SCHEMA
	AdminPassword     string `yaml:"admin_password"`
	LendingUser       string `yaml:"lending_user"`
	LendingPassword   string `yaml:"lending_password"`
	ComplianceUser    string `yaml:"compliance_user"`
	CompliancePassword string `yaml:"compliance_password"`
	SSLMode           string `yaml:"ssl_mode"`
	MaxOpenConns      int    `yaml:"max_open_conns"`
	MaxIdleConns      int    `yaml:"max_idle_conns"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig is the bearer-token contract of spec.md §6.4.
type AuthConfig struct {
	JWKSURL        string `yaml:"jwks_url"`
	JWKSCacheTTLSec int   `yaml:"jwks_cache_ttl_sec"`
	Issuer         string `yaml:"issuer"`
	Audience       string `yaml:"audience"`
	LeewaySec      int    `yaml:"leeway_sec"`
}

type BlobStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type LLMConfig struct {
	ChatEndpoint       string `yaml:"chat_endpoint"`
	EmbeddingsEndpoint string `yaml:"embeddings_endpoint"`
	SafetyEndpoint     string `yaml:"safety_endpoint"`
	APIKey             string `yaml:"api_key"`
	TimeoutSec         int    `yaml:"timeout_sec"`
}

type RateLimitConfig struct {
	MaxCallsPerMinute int `yaml:"max_calls_per_minute"`
	BurstSize         int `yaml:"burst_size"`
}

type AuditConfig struct {
	AdvisoryLockKey int64 `yaml:"advisory_lock_key"`
}

// DocumentsConfig carries the upload size cap. The completeness requirement
// matrix and the freshness threshold table are not configured here; they are
// immutable Go literals in internal/documents.
type DocumentsConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

type ComplianceConfig struct {
	ATRQMSafeHarborDTI      float64 `yaml:"atr_qm_safe_harbor_dti"`
	ATRQMRebuttableMaxDTI   float64 `yaml:"atr_qm_rebuttable_max_dti"`
	LEMaxBusinessDays       int     `yaml:"le_max_business_days"`
	CDMinBusinessDays       int     `yaml:"cd_min_business_days"`
}

// =============================================================================
// Singleton Pattern with Environment Overrides
// =============================================================================

var (
	instance *Config
	once     sync.Once
)

// Get returns the singleton config instance.
func Get() *Config {
	once.Do(func() {
		cfg, err := LoadConfig(getEnv("CONFIG_PATH", "config.yaml"))
		if err != nil {
			slog.Warn("config: failed to load config file, using defaults", "error", err)
		}
		if cfg == nil {
			cfg = &Config{}
		}
		cfg.applyEnvOverrides()
		instance = cfg
	})
	return instance
}

// LoadConfig loads config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Env = getEnv("ORIGINPOINT_ENV", c.Server.Env)
	if v := getEnvInt("SERVER_READ_TIMEOUT_SEC", 0); v > 0 {
		c.Server.ReadTimeoutSec = v
	}
	if v := getEnvInt("SERVER_WRITE_TIMEOUT_SEC", 0); v > 0 {
		c.Server.WriteTimeoutSec = v
	}
	if v := getEnvInt("SERVER_IDLE_TIMEOUT_SEC", 0); v > 0 {
		c.Server.IdleTimeoutSec = v
	}
	if v := getEnvInt("SERVER_SHUTDOWN_TIMEOUT_SEC", 0); v > 0 {
		c.Server.ShutdownTimeout = v
	}
	if origins := getEnv("CORS_ALLOW_ORIGINS", ""); origins != "" {
		c.Server.CORSAllowOrigins = splitCSV(origins)
	}

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	if v := getEnvInt("DB_PORT", 0); v > 0 {
		c.Database.Port = v
	}
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.AdminUser = getEnv("DB_ADMIN_USER", c.Database.AdminUser)
	c.Database.AdminPassword = getEnv("DB_ADMIN_PASSWORD", c.Database.AdminPassword)
	c.Database.LendingUser = getEnv("DB_LENDING_USER", c.Database.LendingUser)
	c.Database.LendingPassword = getEnv("DB_LENDING_PASSWORD", c.Database.LendingPassword)
	c.Database.ComplianceUser = getEnv("DB_COMPLIANCE_USER", c.Database.ComplianceUser)
	c.Database.CompliancePassword = getEnv("DB_COMPLIANCE_PASSWORD", c.Database.CompliancePassword)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)
	if v := getEnvInt("DB_MAX_OPEN_CONNS", 0); v > 0 {
		c.Database.MaxOpenConns = v
	}
	if v := getEnvInt("DB_MAX_IDLE_CONNS", 0); v > 0 {
		c.Database.MaxIdleConns = v
	}

	c.Redis.Enabled = getEnvBool("ORIGINPOINT_REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	if v := getEnvInt("REDIS_DB", 0); v > 0 {
		c.Redis.DB = v
	}

	c.Auth.JWKSURL = getEnv("AUTH_JWKS_URL", c.Auth.JWKSURL)
	c.Auth.Issuer = getEnv("AUTH_ISSUER", c.Auth.Issuer)
	c.Auth.Audience = getEnv("AUTH_AUDIENCE", c.Auth.Audience)
	if v := getEnvInt("AUTH_JWKS_CACHE_TTL_SEC", 0); v > 0 {
		c.Auth.JWKSCacheTTLSec = v
	}
	if v := getEnvInt("AUTH_LEEWAY_SEC", 0); v > 0 {
		c.Auth.LeewaySec = v
	}

	c.BlobStore.Endpoint = getEnv("BLOB_STORE_ENDPOINT", c.BlobStore.Endpoint)
	c.BlobStore.Bucket = getEnv("BLOB_STORE_BUCKET", c.BlobStore.Bucket)
	c.BlobStore.AccessKey = getEnv("BLOB_STORE_ACCESS_KEY", c.BlobStore.AccessKey)
	c.BlobStore.SecretKey = getEnv("BLOB_STORE_SECRET_KEY", c.BlobStore.SecretKey)
	c.BlobStore.UseSSL = getEnvBool("BLOB_STORE_USE_SSL", c.BlobStore.UseSSL)

	c.LLM.ChatEndpoint = getEnv("LLM_CHAT_ENDPOINT", c.LLM.ChatEndpoint)
	c.LLM.EmbeddingsEndpoint = getEnv("LLM_EMBEDDINGS_ENDPOINT", c.LLM.EmbeddingsEndpoint)
	c.LLM.SafetyEndpoint = getEnv("LLM_SAFETY_ENDPOINT", c.LLM.SafetyEndpoint)
	c.LLM.APIKey = getEnv("LLM_API_KEY", c.LLM.APIKey)
	if v := getEnvInt("LLM_TIMEOUT_SEC", 0); v > 0 {
		c.LLM.TimeoutSec = v
	}

	if v := getEnvInt("RATE_LIMIT_MAX_PER_MIN", 0); v > 0 {
		c.RateLimit.MaxCallsPerMinute = v
	}
	if v := getEnvInt("RATE_LIMIT_BURST", 0); v > 0 {
		c.RateLimit.BurstSize = v
	}

	if v := getEnvInt("DOCUMENTS_MAX_UPLOAD_BYTES", 0); v > 0 {
		c.Documents.MaxUploadBytes = int64(v)
	}

	c.applyDefaults()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = 15
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = 15
	}
	if c.Server.IdleTimeoutSec == 0 {
		c.Server.IdleTimeoutSec = 60
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30
	}
	if len(c.Server.CORSAllowOrigins) == 0 {
		c.Server.CORSAllowOrigins = []string{"*"}
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "require"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Auth.JWKSCacheTTLSec == 0 {
		c.Auth.JWKSCacheTTLSec = 3600
	}
	if c.Auth.LeewaySec == 0 {
		c.Auth.LeewaySec = 30
	}
	if c.RateLimit.MaxCallsPerMinute == 0 {
		c.RateLimit.MaxCallsPerMinute = 120
	}
	if c.RateLimit.BurstSize == 0 {
		c.RateLimit.BurstSize = c.RateLimit.MaxCallsPerMinute * 2
	}
	if c.Audit.AdvisoryLockKey == 0 {
		c.Audit.AdvisoryLockKey = 0x4F5250 // "ORP" — arbitrary well-known key
	}
	if c.Documents.MaxUploadBytes == 0 {
		c.Documents.MaxUploadBytes = 50 * 1024 * 1024 // 50 MiB, spec.md §4.7
	}
	if c.LLM.TimeoutSec == 0 {
		c.LLM.TimeoutSec = 30
	}
	if c.Compliance.ATRQMSafeHarborDTI == 0 {
		c.Compliance.ATRQMSafeHarborDTI = 0.43
	}
	if c.Compliance.ATRQMRebuttableMaxDTI == 0 {
		c.Compliance.ATRQMRebuttableMaxDTI = 0.50
	}
	if c.Compliance.LEMaxBusinessDays == 0 {
		c.Compliance.LEMaxBusinessDays = 3
	}
	if c.Compliance.CDMinBusinessDays == 0 {
		c.Compliance.CDMinBusinessDays = 3
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func splitCSV(s string) []string {
	parts := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// =============================================================================
// Convenience Methods
// =============================================================================

func (c *Config) IsProduction() bool  { return c.Server.Env == "production" }
func (c *Config) IsDevelopment() bool { return c.Server.Env == "development" }

func (c *Config) GetPort() string {
	if c.Server.Port == "" {
		return "8080"
	}
	return c.Server.Port
}
