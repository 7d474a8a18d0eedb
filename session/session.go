// Package session is a small cookie-backed session layer.
//
// Every request that goes through Middleware carries a *Values on its
// context. Values are loaded from a Store using the session cookie and
// written back only when something changed. A brand new session only
// produces a cookie once a value is written to it.
package session

import (
	"context"
	"net/http"
	"sort"
	"sync"
)

type (
	// Values holds the session fields of a single client.
	Values struct {
		mu    sync.RWMutex
		id    string
		data  map[string]interface{}
		dirty bool
		isNew bool
	}

	key byte
)

var (
	valuesKey = key(1)
)

func newValues(id string, data map[string]interface{}, isNew bool) *Values {
	if data == nil {
		data = make(map[string]interface{})
	}
	return &Values{id: id, data: data, isNew: isNew}
}

// ID returns the opaque session identifier.
func (v *Values) ID() string {
	return v.id
}

func (v *Values) Get(key string) interface{} {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.data[key]
}

// Set stores value under key. Setting a nil value removes the key.
func (v *Values) Set(key string, value interface{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if value == nil {
		if _, ok := v.data[key]; !ok {
			return
		}
		delete(v.data, key)
	} else {
		v.data[key] = value
	}
	v.dirty = true
}

func (v *Values) Delete(key string) {
	v.Set(key, nil)
}

func (v *Values) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, 0, len(v.data))
	for k := range v.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Dirty reports whether the values changed since they were loaded.
func (v *Values) Dirty() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dirty
}

// IsNew reports whether the session did not exist in the store.
func (v *Values) IsNew() bool {
	return v.isNew
}

func (v *Values) snapshot() map[string]interface{} {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]interface{}, len(v.data))
	for k, val := range v.data {
		out[k] = val
	}
	return out
}

func WithValues(ctx context.Context, v *Values) context.Context {
	return context.WithValue(ctx, valuesKey, v)
}

func FromContext(ctx context.Context) *Values {
	v, _ := ctx.Value(valuesKey).(*Values)
	return v
}

func FromRequest(r *http.Request) *Values {
	return FromContext(r.Context())
}
