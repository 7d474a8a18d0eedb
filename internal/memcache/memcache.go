// Package memcache builds the bigcache instances shared by the session
// store and the login ticket store.
package memcache

import (
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/cespare/xxhash/v2"
)

type (
	xxHasher struct{}
)

func (xxHasher) Sum64(key string) uint64 {
	return xxhash.Sum64String(key)
}

// New returns a cache whose entries expire after lifeWindow.
func New(lifeWindow time.Duration) (*bigcache.BigCache, error) {
	cfg := bigcache.DefaultConfig(lifeWindow)
	cfg.Hasher = xxHasher{}
	cfg.CleanWindow = lifeWindow / 2
	if cfg.CleanWindow < time.Second {
		cfg.CleanWindow = time.Second
	}
	return bigcache.NewBigCache(cfg)
}
