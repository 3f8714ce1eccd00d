package kv

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// redisOpTimeout bounds every synchronous substrate operation.
	redisOpTimeout = 2 * time.Second
	// redisChangeChannel carries changed-key notifications between processes.
	redisChangeChannel = "kv:changed"
)

var _ Store = (*Redis)(nil)

// Redis is a Store backed by a shared Redis instance. Writes publish the
// changed key on a pub/sub channel so other processes holding the same store
// see the change, which is what lets two API instances (or two sessions of
// one user) keep their carts in sync.
type Redis struct {
	client *redis.Client
	lg     *zap.Logger

	mu      sync.Mutex
	subs    map[int]func(key string)
	nextSub int

	cancel context.CancelFunc
}

// NewRedis creates a Redis store and starts the notification listener.
// Close must be called to release the listener.
func NewRedis(ctx context.Context, client *redis.Client, lg *zap.Logger) *Redis {
	listenCtx, cancel := context.WithCancel(ctx)
	r := &Redis{
		client: client,
		lg:     lg,
		subs:   make(map[int]func(key string)),
		cancel: cancel,
	}
	go r.listen(listenCtx)
	return r
}

// Close stops the pub/sub listener.
func (r *Redis) Close() {
	r.cancel()
}

func (r *Redis) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	v, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			r.lg.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return v, true
}

func (r *Redis) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return err
	}
	// Best effort: a lost notification only delays resync until the next
	// read, it cannot corrupt state.
	if err := r.client.Publish(ctx, redisChangeChannel, key).Err(); err != nil {
		r.lg.Warn("redis publish failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (r *Redis) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return err
	}
	if err := r.client.Publish(ctx, redisChangeChannel, key).Err(); err != nil {
		r.lg.Warn("redis publish failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (r *Redis) Subscribe(fn func(key string)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// listen receives changed-key messages and fans them out to subscribers.
func (r *Redis) listen(ctx context.Context) {
	pubsub := r.client.Subscribe(ctx, redisChangeChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.mu.Lock()
			subs := make([]func(string), 0, len(r.subs))
			for _, fn := range r.subs {
				subs = append(subs, fn)
			}
			r.mu.Unlock()
			for _, fn := range subs {
				fn(msg.Payload)
			}
		}
	}
}
