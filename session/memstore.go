package session

import (
	"context"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/andrebq/userauth/internal/memcache"
)

type (
	// MemoryStore keeps sessions in process memory, entries are evicted
	// once they are older than the configured life window.
	MemoryStore struct {
		cache *bigcache.BigCache
	}
)

func NewMemoryStore(lifeWindow time.Duration) (*MemoryStore, error) {
	cache, err := memcache.New(lifeWindow)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: cache}, nil
}

func (m *MemoryStore) Load(ctx context.Context, id string) (map[string]interface{}, error) {
	buf, err := m.cache.Get(id)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return decode(id, buf)
}

func (m *MemoryStore) Save(ctx context.Context, id string, data map[string]interface{}) error {
	buf, err := encode(data)
	if err != nil {
		return err
	}
	return m.cache.Set(id, buf)
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	err := m.cache.Delete(id)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (m *MemoryStore) Close() error {
	return m.cache.Close()
}
