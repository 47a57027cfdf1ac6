package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to redisURL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Redis pushes invocations onto a list drained by a Listener.
type Redis struct {
	client *redis.Client
	queue  string
}

// NewRedis creates a trigger writing to queue.
func NewRedis(client *redis.Client, queue string) *Redis {
	return &Redis{client: client, queue: queue}
}

// Fire appends inv to the signal list.
func (r *Redis) Fire(ctx context.Context, inv Invocation) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	if err := r.client.LPush(ctx, r.queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to push worker signal: %w", err)
	}
	return nil
}
