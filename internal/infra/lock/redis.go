package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Only the holder's token may release the key.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// Redis serializes across processes sharing one Redis. The holder extends
// the key every ttl/3 until it unlocks, so a holder that dies loses the lock
// after ttl while a slow one keeps it.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
	log    *zap.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{
		client: client,
		prefix: "billing:student",
		ttl:    ttl,
		retry:  50 * time.Millisecond,
		log:    log,
	}
}

func (r *Redis) Lock(ctx context.Context, studentID uint) (func(), error) {
	key := fmt.Sprintf("%s:%d", r.prefix, studentID)
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}

	stop, stopped := make(chan struct{}), make(chan struct{})
	go r.keepAlive(key, token, stop, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-stopped
			if err := releaseScript.Run(context.Background(), r.client, []string{key}, token).Err(); err != nil {
				r.log.Warn("redis unlock failed", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

func (r *Redis) keepAlive(key, token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		held, err := extendScript.Run(context.Background(), r.client, []string{key}, token, r.ttl.Milliseconds()).Int()
		if err != nil {
			r.log.Warn("redis lock renewal failed", zap.String("key", key), zap.Error(err))
			continue
		}
		if held == 0 {
			r.log.Error("redis lock lost", zap.String("key", key))
			return
		}
	}
}
