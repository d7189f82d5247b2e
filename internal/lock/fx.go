package lock

import (
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/shaghafhq/shaghaf/internal/config"
	"go.uber.org/fx"
)

// Module provides the Locker. When REDIS_ADDR is unset the Locker is nil
// and callers fall back to the conditional SQL decrement alone.
var Module = fx.Module("lock",
	fx.Provide(newClient),
	fx.Provide(NewLocker),
)

func newClient(cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
