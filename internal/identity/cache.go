package identity

import "sync"

// PropertyCache memoizes resolved properties. The first value stored for a
// name wins until Clear.
type PropertyCache struct {
	values sync.Map
}

// Get returns the cached value for name.
func (c *PropertyCache) Get(name string) (any, bool) {
	return c.values.Load(name)
}

// Remember stores v for name unless a value is already present, and returns
// whichever value is now cached. Nil values are not cached.
func (c *PropertyCache) Remember(name string, v any) any {
	if v == nil {
		return nil
	}
	actual, _ := c.values.LoadOrStore(name, v)
	return actual
}

// Clear drops every cached value.
func (c *PropertyCache) Clear() {
	c.values.Clear()
}

// Len counts cached values.
func (c *PropertyCache) Len() int {
	n := 0
	c.values.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
