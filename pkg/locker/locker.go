package locker

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var ErrNotAcquired = errors.New("lock is held by another instance")

// unlockScript deletes the key only while it still carries our token.
const unlockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

type Config struct {
	Addr     string        `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string        `yaml:"password" json:"-" envconfig:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `yaml:"ttl" envconfig:"REDIS_LOCK_TTL" default:"30s"`
}

func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping")
	}
	return client, nil
}

// RedisLocker is a gocron.Locker that lets a single instance run a job per tick.
type RedisLocker struct {
	client redis.Cmdable
	ttl    time.Duration
	token  func() string
}

func NewRedisLocker(client redis.Cmdable, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		token:  uuid.NewString,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (gocron.Lock, error) {
	token := l.token()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "setnx")
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &redisLock{client: l.client, key: key, token: token}, nil
}

type redisLock struct {
	client redis.Cmdable
	key    string
	token  string
}

func (l *redisLock) Unlock(ctx context.Context) error {
	if err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.token).Err(); err != nil {
		return errors.Wrap(err, "unlock")
	}
	return nil
}
