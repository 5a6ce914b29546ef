package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/BloodyDerby/biosentiers-backend/internal/cache"
)

type Mem struct{ c *gocache.Cache }

func New(defaultTTL time.Duration) cache.Cache {
	return &Mem{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *Mem) Get(_ context.Context, k string) ([]byte, bool) {
	v, ok := m.c.Get(k)
	if !ok {
		return nil, false
	}
	b, _ := v.([]byte)
	return b, true
}

func (m *Mem) Set(_ context.Context, k string, v []byte, ttl time.Duration) {
	m.c.Set(k, v, ttl)
}

func (m *Mem) Add(_ context.Context, k string, v []byte, ttl time.Duration) bool {
	return m.c.Add(k, v, ttl) == nil
}

func (m *Mem) Delete(_ context.Context, k string) { m.c.Delete(k) }
