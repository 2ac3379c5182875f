package robot

import (
	"fmt"
	"strconv"
	"strings"
)

// catalog indexes a fixed set of entries by id and by name.
type catalog[T any] struct {
	kind   string
	byID   map[int]T
	byName map[string]T
	all    []T
}

func newCatalog[T any](kind string, id func(T) int, name func(T) string, items ...T) *catalog[T] {
	c := &catalog[T]{
		kind:   kind,
		byID:   make(map[int]T, len(items)),
		byName: make(map[string]T, len(items)),
		all:    items,
	}
	for _, item := range items {
		c.byID[id(item)] = item
		c.byName[strings.ToLower(name(item))] = item
	}

	return c
}

func (c *catalog[T]) id(id int) (T, bool) {
	item, ok := c.byID[id]
	return item, ok
}

func (c *catalog[T]) name(name string) (T, bool) {
	item, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return item, ok
}

// lookup resolves a raw wire token that is either a decimal id or a name.
func (c *catalog[T]) lookup(raw string) (T, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		if item, ok := c.id(n); ok {
			return item, nil
		}
		var zero T
		return zero, fmt.Errorf("%w: %s id %d", ErrUnknown, c.kind, n)
	}
	if item, ok := c.name(raw); ok {
		return item, nil
	}
	var zero T
	return zero, fmt.Errorf("%w: %s %q", ErrUnknown, c.kind, raw)
}
