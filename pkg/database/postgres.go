package database

import (
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/geison-bit/horarios-api/pkg/config"
)

// NewPostgres returns a configured PostgreSQL client. SUPABASE_URL, when set,
// is used as the DSN directly; SUPABASE_KEY supplies the password when the
// URL carries none.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := buildDSN(cfg)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func buildDSN(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		if cfg.Key == "" {
			return cfg.URL
		}
		parsed, err := url.Parse(cfg.URL)
		if err != nil {
			return cfg.URL
		}
		if parsed.User == nil {
			parsed.User = url.UserPassword("postgres", cfg.Key)
		} else if _, has := parsed.User.Password(); !has {
			parsed.User = url.UserPassword(parsed.User.Username(), cfg.Key)
		}
		return parsed.String()
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}
