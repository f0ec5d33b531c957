package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/yoma-opportunity/internal/pkg/token"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another worker is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a distributed guard shared by every worker process. The key
// expires after ttl so a crashed holder cannot block the jobs forever.
type Lock struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

func NewLock(client redis.Cmdable, key string, ttl time.Duration) *Lock {
	return &Lock{client: client, key: key, ttl: ttl}
}

func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	tok, err := token.New()
	if err != nil {
		return false, err
	}
	ok, err := l.client.SetNX(ctx, l.key, tok, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if ok {
		l.mu.Lock()
		l.token = tok
		l.mu.Unlock()
	}
	return ok, nil
}

func (l *Lock) Release(ctx context.Context) error {
	l.mu.Lock()
	tok := l.token
	l.token = ""
	l.mu.Unlock()
	if tok == "" {
		return nil
	}
	err := releaseScript.Run(ctx, l.client, []string{l.key}, tok).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
