package source

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/visitor-insights/internal/config"
	"github.com/ignite/visitor-insights/internal/pkg/httpretry"
	"github.com/ignite/visitor-insights/internal/storage"
)

// Deps carries the shared connections a configured source may need.
type Deps struct {
	Postgres  *sql.DB
	Snowflake *sql.DB
	Store     storage.Store
	HTTP      httpretry.HTTPDoer
}

// FromConfig builds the source named by cfg.Source.Type.
func FromConfig(cfg *config.Config, deps Deps) (Source, error) {
	sc := cfg.Source
	switch sc.Type {
	case "static", "demo", "":
		return Demo(), nil
	case "file":
		if sc.Path == "" {
			return nil, errors.New("source: file source needs a path")
		}
		return NewFile(sc.Path), nil
	case "s3", "object":
		if deps.Store == nil || sc.Key == "" {
			return nil, errors.New("source: object source needs storage and a key")
		}
		return NewObject(deps.Store, sc.Key), nil
	case "postgres":
		if deps.Postgres == nil {
			return nil, errors.New("source: postgres source needs DATABASE_URL")
		}
		return NewSQL(deps.Postgres, Postgres, "visitors", sc.Limit)
	case "snowflake":
		if deps.Snowflake == nil {
			return nil, errors.New("source: snowflake source needs a warehouse connection")
		}
		return NewSQL(deps.Snowflake, Snowflake, cfg.Snowflake.Table, sc.Limit)
	case "supabase":
		if cfg.Supabase.URL == "" {
			return nil, errors.New("source: supabase source needs SUPABASE_URL")
		}
		return NewSupabase(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Table, sc.Limit, deps.HTTP), nil
	default:
		return nil, fmt.Errorf("source: unknown type %q", sc.Type)
	}
}
