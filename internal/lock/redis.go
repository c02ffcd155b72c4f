package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const acquireRetryInterval = 50 * time.Millisecond

// releaseScript deletes the lease only when it is still ours.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis coordinates writers across processes with a leased SET NX key per
// date key. The lease TTL bounds how long a crashed holder can block others.
type Redis struct {
	client *redis.Client
	prefix string
	wait   time.Duration
	lease  time.Duration
}

func NewRedis(redisURL string, wait, lease time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{client: client, prefix: "ledgerlock:", wait: wait, lease: lease}, nil
}

// NewRedisWithClient creates a coordinator from an existing Redis client.
func NewRedisWithClient(client *redis.Client, wait, lease time.Duration) *Redis {
	return &Redis{client: client, prefix: "ledgerlock:", wait: wait, lease: lease}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	leaseKey := r.prefix + key
	token := randomToken()
	deadline := time.Now().Add(r.wait)

	for {
		ok, err := r.client.SetNX(ctx, leaseKey, token, r.lease).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_, _ = releaseScript.Run(releaseCtx, r.client, []string{leaseKey}, token).Result()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrBusy
		}
		select {
		case <-time.After(acquireRetryInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func randomToken() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
