package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Source    SourceConfig    `yaml:"source"`
	Supabase  SupabaseConfig  `yaml:"supabase"`
	Snowflake SnowflakeConfig `yaml:"snowflake"`
	Storage   StorageConfig   `yaml:"storage"`
	DataNorm  DataNormConfig  `yaml:"datanorm"`
	Companies CompanyConfig   `yaml:"companies"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Assistant AssistantConfig `yaml:"assistant"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port               int      `yaml:"port"`
	Host               string   `yaml:"host"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
	ReadTimeoutSeconds int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSecs   int      `yaml:"write_timeout_seconds"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for http.Server.
func (c ServerConfig) Addr() string {
	return c.GetHost() + ":" + strconv.Itoa(c.Port)
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// RedactPII masks visitor IPs in log output. Defaults to true.
	RedactPII *bool `yaml:"redact_pii"`
}

// Redact reports whether PII redaction is on.
func (c LoggingConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// DatabaseConfig holds the Postgres connection.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis connection used for caching and locks.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// SourceConfig selects where visitor rows are fetched from.
type SourceConfig struct {
	// Type is one of static, file, s3, postgres, snowflake, supabase.
	Type  string `yaml:"type"`
	Path  string `yaml:"path"`
	Key   string `yaml:"key"`
	Limit int    `yaml:"limit"`
	// Sessionize groups one-row-per-hit sources into visits before
	// classification.
	Sessionize bool `yaml:"sessionize"`
}

// SupabaseConfig holds the PostgREST endpoint of the visitors table.
type SupabaseConfig struct {
	URL            string `yaml:"url"`
	Key            string `yaml:"key"`
	Table          string `yaml:"table"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c SupabaseConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SnowflakeConfig holds Snowflake configuration for the visitor warehouse
type SnowflakeConfig struct {
	ConnectionString string `yaml:"connection_string"`
	Account          string `yaml:"account"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	Database         string `yaml:"database"`
	Schema           string `yaml:"schema"`
	Warehouse        string `yaml:"warehouse"`
	Table            string `yaml:"table"`
}

// StorageConfig holds snapshot archive and spreadsheet object storage.
type StorageConfig struct {
	Type       string `yaml:"type"`
	LocalPath  string `yaml:"local_path"`
	S3Bucket   string `yaml:"s3_bucket"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// DataNormConfig tunes the record adapter.
type DataNormConfig struct {
	Workers          int `yaml:"workers"`
	DefaultPageViews int `yaml:"default_page_views"`
}

// CompanyConfig controls IP to company resolution.
type CompanyConfig struct {
	// UsePostgres adds the companies table to the directory chain.
	UsePostgres     bool `yaml:"use_postgres"`
	CacheTTLMinutes int  `yaml:"cache_ttl_minutes"`
}

// CacheTTL returns the cache TTL as a duration
func (c CompanyConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// SnapshotConfig controls the background refresh of the classified batch.
type SnapshotConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds"`
	LockKey         string `yaml:"lock_key"`
	LockTTLSeconds  int    `yaml:"lock_ttl_seconds"`
	Archive         bool   `yaml:"archive"`
}

// Interval returns the refresh interval as a duration
func (c SnapshotConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// LockTTL returns the lock TTL as a duration
func (c SnapshotConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// AssistantConfig holds the conversational summarizer settings.
type AssistantConfig struct {
	// Provider is one of openai, anthropic, bedrock, mock.
	Provider    string          `yaml:"provider"`
	Model       string          `yaml:"model"`
	Temperature float64         `yaml:"temperature"`
	MaxTokens   int             `yaml:"max_tokens"`
	OpenAI      OpenAIConfig    `yaml:"openai"`
	Anthropic   AnthropicConfig `yaml:"anthropic"`
	Bedrock     BedrockConfig   `yaml:"bedrock"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// AnthropicConfig holds Anthropic API configuration
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
}

// BedrockConfig holds AWS Bedrock configuration
type BedrockConfig struct {
	Region  string `yaml:"region"`
	ModelID string `yaml:"model_id"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied, for running
// without a config file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = 60
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Source.Type == "" {
		cfg.Source.Type = "static"
	}
	if cfg.Supabase.Table == "" {
		cfg.Supabase.Table = "visitors"
	}
	if cfg.Supabase.TimeoutSeconds == 0 {
		cfg.Supabase.TimeoutSeconds = 30
	}
	if cfg.Snowflake.Table == "" {
		cfg.Snowflake.Table = "VISITORS"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-west-2"
	}
	if cfg.DataNorm.Workers == 0 {
		cfg.DataNorm.Workers = 4
	}
	if cfg.DataNorm.DefaultPageViews == 0 {
		cfg.DataNorm.DefaultPageViews = 1
	}
	if cfg.Companies.CacheTTLMinutes == 0 {
		cfg.Companies.CacheTTLMinutes = 24 * 60
	}
	if cfg.Snapshot.IntervalSeconds == 0 {
		cfg.Snapshot.IntervalSeconds = 300
	}
	if cfg.Snapshot.LockKey == "" {
		cfg.Snapshot.LockKey = "snapshot-refresh"
	}
	if cfg.Snapshot.LockTTLSeconds == 0 {
		cfg.Snapshot.LockTTLSeconds = 120
	}
	if cfg.Assistant.Provider == "" {
		cfg.Assistant.Provider = "openai"
	}
	if cfg.Assistant.Model == "" {
		cfg.Assistant.Model = "gpt-4o-mini"
	}
	if cfg.Assistant.Temperature == 0 {
		cfg.Assistant.Temperature = 0.7
	}
	if cfg.Assistant.MaxTokens == 0 {
		cfg.Assistant.MaxTokens = 500
	}
	if cfg.Assistant.Bedrock.Region == "" {
		cfg.Assistant.Bedrock.Region = "us-east-1"
	}
	if cfg.Assistant.Bedrock.ModelID == "" {
		cfg.Assistant.Bedrock.ModelID = "anthropic.claude-3-haiku-20240307-v1:0"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
// An empty path skips the YAML file and starts from Default.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		var err error
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	// Database override (critical for ECS deployment where config.yaml has local defaults)
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("VISITOR_SOURCE"); v != "" {
		cfg.Source.Type = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.Supabase.URL = v
	}
	if v := os.Getenv("SUPABASE_KEY"); v != "" {
		cfg.Supabase.Key = v
	}
	if v := os.Getenv("SNOWFLAKE_CONNECTION_STRING"); v != "" {
		cfg.Snowflake.ConnectionString = v
	}
	if v := os.Getenv("SNOWFLAKE_ACCOUNT"); v != "" {
		cfg.Snowflake.Account = v
	}
	if v := os.Getenv("SNOWFLAKE_USER"); v != "" {
		cfg.Snowflake.User = v
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Snowflake.Password = v
	}
	if v := os.Getenv("SNOWFLAKE_WAREHOUSE"); v != "" {
		cfg.Snowflake.Warehouse = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.AWSRegion = v
	}
	if v := os.Getenv("STORAGE_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Assistant.OpenAI.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Assistant.Anthropic.APIKey = v
	}
	if v := os.Getenv("ASSISTANT_PROVIDER"); v != "" {
		cfg.Assistant.Provider = v
	}

	return cfg, nil
}
