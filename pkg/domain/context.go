package domain

import (
	"fmt"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Context is the ordered key/value store shared by every element of an experiment.
//
// Keys keep the position of their first insertion; setting an existing key updates the
// value in place. The store is safe for concurrent use at the memory level, but the
// order in which concurrent threads observe each other's writes is undefined: two
// threads writing the same key is a caller error.
type Context struct {
	mu     sync.RWMutex
	keys   []string
	values map[string]any
}

// NewContext creates an empty Context.
func NewContext() *Context {
	return &Context{
		values: make(map[string]any),
	}
}

// Set stores value under key.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.values[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

// Get returns the value stored under key, or nil.
func (c *Context) Get(key string) any {
	v, _ := c.Lookup(key)
	return v
}

// Lookup returns the value stored under key and whether it was present.
func (c *Context) Lookup(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.values[key]
	return v, ok
}

// Delete removes key. Deleting a missing key is a no-op.
func (c *Context) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.values[key]; !exists {
		return
	}
	delete(c.values, key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of stored keys.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// Snapshot returns a shallow copy of the stored values.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Decode maps the whole context onto out (a pointer to a struct or map)
// honoring "mapstructure" field tags.
func (c *Context) Decode(out any) error {
	if err := decode(c.Snapshot(), out); err != nil {
		return fmt.Errorf("failed to decode context: %w", err)
	}
	return nil
}

// DecodeKey maps the value stored under key onto out.
func (c *Context) DecodeKey(key string, out any) error {
	v, ok := c.Lookup(key)
	if !ok {
		return fmt.Errorf("context key %q not found", key)
	}
	if err := decode(v, out); err != nil {
		return fmt.Errorf("failed to decode context key %q: %w", key, err)
	}
	return nil
}

func decode(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
