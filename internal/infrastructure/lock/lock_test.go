package lock

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

func TestMemoryLocker_ExclusiveAndTimeout(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, []string{"stock:s1:A"}, 50*time.Millisecond)
	require.NoError(t, err)

	_, err = l.Lock(ctx, []string{"stock:s1:A"}, 20*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.True(t, IsTimeout(err))

	// Otra clave no espera
	unlockB, err := l.Lock(ctx, []string{"stock:s1:B"}, 20*time.Millisecond)
	require.NoError(t, err)
	unlockB()

	unlock()
	unlock() // liberar dos veces no bloquea
	unlock2, err := l.Lock(ctx, []string{"stock:s1:A"}, 20*time.Millisecond)
	require.NoError(t, err)
	unlock2()
}

func TestMemoryLocker_PartialAcquisitionIsReleased(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	unlockB, err := l.Lock(ctx, []string{"B"}, time.Second)
	require.NoError(t, err)

	// A se adquiere, B expira: A debe quedar libre
	_, err = l.Lock(ctx, []string{"B", "A"}, 20*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrLockTimeout)

	unlockA, err := l.Lock(ctx, []string{"A"}, 20*time.Millisecond)
	require.NoError(t, err)
	unlockA()
	unlockB()
}

func TestMemoryLocker_OverlappingSetsDoNotDeadlock(t *testing.T) {
	l := NewMemoryLocker()
	var inside atomic.Int32
	var g errgroup.Group
	for i := 0; i < 20; i++ {
		keys := []string{"A", "B", "C"}
		if i%2 == 0 {
			keys = []string{"C", "B", "A", "A"}
		}
		g.Go(func() error {
			unlock, err := l.Lock(context.Background(), keys, 2*time.Second)
			if err != nil {
				return err
			}
			defer unlock()
			if inside.Add(1) != 1 {
				t.Error("dos callers dentro de la sección crítica")
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestMemoryLocker_ContextCancelled(t *testing.T) {
	l := NewMemoryLocker()
	unlock, err := l.Lock(context.Background(), []string{"A"}, time.Second)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Lock(ctx, []string{"A"}, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisLocker(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL no definido")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	var l inventory.Locker = NewRedisLocker(client, "test:lock:"+time.Now().Format("150405.000")+":", 5*time.Second)
	unlock, err := l.Lock(ctx, []string{"stock:s1:A", "stock:s1:B"}, 100*time.Millisecond)
	require.NoError(t, err)

	_, err = l.Lock(ctx, []string{"stock:s1:B"}, 50*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)

	unlock()
	unlock2, err := l.Lock(ctx, []string{"stock:s1:B"}, 50*time.Millisecond)
	require.NoError(t, err)
	unlock2()
}

func TestUnlockScriptKeepsForeignToken(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL no definido")
	}
	ctx := context.Background()
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	key := "test:lock:foreign:" + time.Now().Format("150405.000")
	require.NoError(t, client.Set(ctx, key, "otro", time.Minute).Err())
	require.NoError(t, unlockScript.Run(ctx, client, []string{key}, "mio").Err())

	v, err := client.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "otro", v)
	_ = client.Del(ctx, key).Err()
}
