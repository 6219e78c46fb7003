package peer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix  = "flightcache"
	defaultLockTTL = 30 * time.Second
)

var ErrNilClient = errors.New("peer: nil redis client")

// unlockScript deletes the lock only if it still holds our token, so a lock that
// expired and was taken by another process is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisConfig struct {
	Client redis.UniversalClient
	// Prefix namespaces lock keys: lock:<prefix>:<key>. "" => "flightcache".
	Prefix string
	// Channel carries emitted entries. "" => "<prefix>:events".
	Channel string
	// LockTTL bounds how long a crashed holder blocks others. 0 => 30s.
	LockTTL time.Duration
}

// Redis coordinates through SET NX PX locks and PUBLISH/SUBSCRIBE.
type Redis struct {
	rdb     redis.UniversalClient
	prefix  string
	channel string
	lockTTL time.Duration

	tokens sync.Map // key -> token of a lock we hold
	fan    *fanout

	sub  *redis.PubSub
	wg   sync.WaitGroup
	once sync.Once
}

var _ Coordinator = (*Redis)(nil)

// NewRedis subscribes to the event channel before returning.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	r := &Redis{
		rdb:     cfg.Client,
		prefix:  cfg.Prefix,
		channel: cfg.Channel,
		lockTTL: cfg.LockTTL,
		fan:     newFanout(),
	}
	if r.prefix == "" {
		r.prefix = defaultPrefix
	}
	if r.channel == "" {
		r.channel = r.prefix + ":events"
	}
	if r.lockTTL <= 0 {
		r.lockTTL = defaultLockTTL
	}

	r.sub = r.rdb.Subscribe(ctx, r.channel)
	if _, err := r.sub.Receive(ctx); err != nil {
		_ = r.sub.Close()
		return nil, fmt.Errorf("peer: subscribe %q: %w", r.channel, err)
	}
	msgs := r.sub.Channel()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for m := range msgs {
			r.fan.dispatch([]byte(m.Payload))
		}
	}()
	return r, nil
}

func (r *Redis) lockKey(key string) string { return "lock:" + r.prefix + ":" + key }

func (r *Redis) Lock(ctx context.Context, key string) (bool, error) {
	tok := token()
	ok, err := r.rdb.SetNX(ctx, r.lockKey(key), tok, r.lockTTL).Result()
	if err != nil {
		return false, err
	}
	if ok {
		r.tokens.Store(key, tok)
	}
	return ok, nil
}

func (r *Redis) Unlock(ctx context.Context, key string) error {
	tok, ok := r.tokens.LoadAndDelete(key)
	if !ok {
		return nil
	}
	err := unlockScript.Run(ctx, r.rdb, []string{r.lockKey(key)}, tok).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (r *Redis) Emit(ctx context.Context, key string, value []byte) error {
	b, err := r.fan.encode(key, value)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, b).Err()
}

func (r *Redis) OnEvent(h Handler) { r.fan.add(h) }

// Close stops the subscriber. The client is left open.
func (r *Redis) Close(_ context.Context) error {
	var err error
	r.once.Do(func() {
		err = r.sub.Close()
		r.wg.Wait()
	})
	return err
}
