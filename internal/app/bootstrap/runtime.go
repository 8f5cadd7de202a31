// Package bootstrap wires runtime dependencies shared by the commands:
// database handles, the Redis client and the persistence stores.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/aqualeads/crm-platform/internal/chat"
	"github.com/aqualeads/crm-platform/internal/company"
	appconfig "github.com/aqualeads/crm-platform/internal/config"
	"github.com/aqualeads/crm-platform/internal/leads"
	"github.com/aqualeads/crm-platform/pkg/logging"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// Stores bundles the persistence layer behind the engine.
type Stores struct {
	Sessions chat.SessionStore
	Messages chat.MessageStore
	Company  company.Store
	Leads    leads.Repository

	sqlDB *sql.DB
	pool  *pgxpool.Pool
}

// Close releases the underlying database handles, if any.
func (s *Stores) Close() {
	if s.sqlDB != nil {
		_ = s.sqlDB.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// BuildStores selects Postgres-backed stores when a database is configured,
// in-memory stores otherwise. The in-memory company store is seeded from the
// environment so the chatbot can run without a database in dev.
func BuildStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Stores, error) {
	if logger == nil {
		logger = logging.Default()
	}

	if cfg.UseMemoryStores || strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Info("using in-memory stores")
		memory := chat.NewInMemoryStore()
		return &Stores{
			Sessions: memory,
			Messages: memory,
			Company:  seededCompanyStore(cfg),
			Leads:    leads.NewInMemoryRepository(),
		}, nil
	}

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	store := chat.NewPostgresStore(sqlDB)
	return &Stores{
		Sessions: store,
		Messages: store,
		Company:  company.NewPostgresStore(pool),
		Leads:    leads.NewPostgresRepository(pool),
		sqlDB:    sqlDB,
		pool:     pool,
	}, nil
}

func seededCompanyStore(cfg *appconfig.Config) company.Store {
	if strings.TrimSpace(cfg.CompanyName) == "" {
		return company.NewInMemoryStore(nil)
	}
	return company.NewInMemoryStore(&company.Config{
		CompanyName:     cfg.CompanyName,
		FallbackMessage: cfg.FallbackMessage,
		OwnerUserID:     cfg.CompanyOwnerID,
	})
}
