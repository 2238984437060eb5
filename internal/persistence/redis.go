package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// readinessTTL bounds the marker key written by Ping.
const readinessTTL = 30 * time.Second

// Redis holds the session revocation list. Every key lives below the
// deployment's prefix so several environments can share one server.
type Redis struct {
	Client *redis.Client
	prefix string
}

// NewRedis connects and verifies the server answers. Sign-out and every
// authenticated request depend on Redis, so an unreachable server is an
// error rather than a warning.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return &Redis{Client: client, prefix: strings.TrimSuffix(cfg.KeyPrefix, ":")}, nil
}

// Key joins parts below the key prefix: Key("session", "revoked") yields
// "helpdesk:session:revoked" for the default prefix.
func (r *Redis) Key(parts ...string) string {
	if r.prefix == "" {
		return strings.Join(parts, ":")
	}
	return r.prefix + ":" + strings.Join(parts, ":")
}

// RevocationNamespace is where signed-out session ids are kept.
func (r *Redis) RevocationNamespace() string {
	return r.Key("session", "revoked")
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping reports readiness. Sign-out writes to the revocation list, so a
// reachable but read-only server (a replica, or one refusing writes on a
// full disk) is not ready.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Set(ctx, r.Key("health", "ready"), time.Now().UTC().Format(time.RFC3339), readinessTTL).Err()
}
