package redis

import (
	"context"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/BloodyDerby/biosentiers-backend/internal/cache"
)

type Cache struct {
	c      *rdb.Client
	prefix string
}

func New(addr string, db int, prefix string) cache.Cache {
	return &Cache{c: rdb.NewClient(&rdb.Options{Addr: addr, DB: db}), prefix: prefix}
}

func (r *Cache) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *Cache) Get(ctx context.Context, k string) ([]byte, bool) {
	b, err := r.c.Get(ctx, r.key(k)).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *Cache) Set(ctx context.Context, k string, v []byte, ttl time.Duration) {
	_ = r.c.Set(ctx, r.key(k), v, ttl).Err()
}

func (r *Cache) Add(ctx context.Context, k string, v []byte, ttl time.Duration) bool {
	ok, err := r.c.SetNX(ctx, r.key(k), v, ttl).Result()
	return err == nil && ok
}

func (r *Cache) Delete(ctx context.Context, k string) {
	_ = r.c.Del(ctx, r.key(k)).Err()
}
