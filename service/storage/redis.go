package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

var rdb *redis.Client

func InitRedis(c Config) error {
	rdb = redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return rdb.Ping(ctx).Err()
}

func Client() *redis.Client { return rdb }

var errNotInitialized = errors.New("redis not initialized")

// retry policy for writes against the shared store: bounded attempts with a
// short backoff, then the transient error is surfaced to the caller.
const (
	writeAttempts = 3
	retryBackoff  = 50 * time.Millisecond
)

func withRetry(ctx context.Context, op func() error) error {
	var err error
	for i := 0; i < writeAttempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
	return err
}
