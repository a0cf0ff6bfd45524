package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

var _ inventory.Locker = (*RedisLocker)(nil)

// unlockScript borra la clave solo si sigue siendo nuestra (otro proceso pudo tomarla al vencer el lease).
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker bloqueo por clave compartido entre réplicas (LOCK_BACKEND=redis).
type RedisLocker struct {
	client *redis.Client
	prefix string
	lease  time.Duration
	retry  time.Duration
}

// NewRedisLocker construye el locker. lease es la vida máxima de un bloqueo si el proceso muere sin liberarlo.
func NewRedisLocker(client *redis.Client, prefix string, lease time.Duration) *RedisLocker {
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &RedisLocker{client: client, prefix: prefix, lease: lease, retry: 10 * time.Millisecond}
}

// NewRedisClient crea el cliente desde una URL redis:// y verifica la conexión.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Lock adquiere las claves en orden con SET NX y reintenta hasta timeout.
func (l *RedisLocker) Lock(ctx context.Context, keys []string, timeout time.Duration) (func(), error) {
	keys = normalizeKeys(keys)
	token := uuid.New().String()
	deadline := time.Now().Add(timeout)

	held := make([]string, 0, len(keys))
	release := func() {
		// Liberar aunque el ctx del caller ya esté cancelado
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = unlockScript.Run(rctx, l.client, []string{held[i]}, token).Err()
		}
	}

	for _, key := range keys {
		name := l.prefix + key
		for {
			ok, err := l.client.SetNX(ctx, name, token, l.lease).Result()
			if err != nil {
				release()
				return nil, fmt.Errorf("redis lock %s: %w", key, err)
			}
			if ok {
				held = append(held, name)
				break
			}
			if time.Now().After(deadline) {
				release()
				return nil, fmt.Errorf("clave %s: %w", key, domain.ErrLockTimeout)
			}
			select {
			case <-time.After(l.retry):
			case <-ctx.Done():
				release()
				return nil, ctx.Err()
			}
		}
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		release()
	}, nil
}
