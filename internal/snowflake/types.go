package snowflake

import (
	"strings"

	"github.com/ignite/visitor-insights/internal/config"
)

// Config holds Snowflake warehouse configuration
type Config struct {
	Account   string
	User      string
	Password  string
	Database  string
	Schema    string
	Warehouse string
}

// FromConfig copies the connection fields of the application config.
func FromConfig(c config.SnowflakeConfig) Config {
	cfg := Config{
		Account:   c.Account,
		User:      c.User,
		Password:  c.Password,
		Database:  c.Database,
		Schema:    c.Schema,
		Warehouse: c.Warehouse,
	}
	if c.ConnectionString != "" {
		parsed := ParseConnectionString(c.ConnectionString)
		if cfg.Account == "" {
			cfg.Account = parsed.Account
		}
		if cfg.User == "" {
			cfg.User = parsed.User
		}
		if cfg.Password == "" {
			cfg.Password = parsed.Password
		}
		if cfg.Database == "" {
			cfg.Database = parsed.Database
		}
		if cfg.Schema == "" {
			cfg.Schema = parsed.Schema
		}
	}
	return cfg
}

// ParseConnectionString extracts components from the connection string
// Format: scheme=https;ACCOUNT=xxx;HOST=yyy;port=443;USER=zzz;PASSWORD=www;DB=aaa.bbb;
func ParseConnectionString(connStr string) Config {
	parts := make(map[string]string)
	for _, kv := range strings.Split(connStr, ";") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		parts[strings.ToUpper(strings.TrimSpace(key))] = value
	}

	// DB may carry database.schema
	database, schema, _ := strings.Cut(parts["DB"], ".")

	return Config{
		Account:   parts["ACCOUNT"],
		User:      parts["USER"],
		Password:  parts["PASSWORD"],
		Database:  database,
		Schema:    schema,
		Warehouse: parts["WAREHOUSE"],
	}
}
