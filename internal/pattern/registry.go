package pattern

import (
	"fmt"
	"strings"
	"sync"
)

var (
	mu         sync.RWMutex
	ordered    []*Rule
	byCategory = make(map[Category]*Rule)
)

// Register adds a rule to the table. Registration order is the table order
// used by the classifier and by All. Registering the same category twice is
// a programming error and panics.
func Register(r *Rule) {
	mu.Lock()
	defer mu.Unlock()
	if r == nil || r.Category == "" {
		panic("pattern: Register called with empty rule")
	}
	if _, exists := byCategory[r.Category]; exists {
		panic(fmt.Sprintf("pattern: category %s already registered", r.Category))
	}
	ordered = append(ordered, r)
	byCategory[r.Category] = r
}

// All returns the rules in table order. The returned slice is a copy; the
// rules themselves are shared and must not be mutated.
func All() []*Rule {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]*Rule, len(ordered))
	copy(out, ordered)
	return out
}

// Lookup returns the rule for a category. A missing category is not an
// error; it yields (nil, false).
func Lookup(c Category) (*Rule, bool) {
	mu.RLock()
	defer mu.RUnlock()
	r, ok := byCategory[c]
	return r, ok
}

// Resolve selects rules by a comma-separated category list. An empty
// selector selects the whole table in table order.
func Resolve(selector string) ([]*Rule, error) {
	if strings.TrimSpace(selector) == "" {
		return All(), nil
	}

	mu.RLock()
	defer mu.RUnlock()

	var selected []*Rule
	for _, raw := range strings.Split(selector, ",") {
		name := Category(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		r, ok := byCategory[name]
		if !ok {
			return nil, fmt.Errorf("pattern not found: %s", name)
		}
		selected = append(selected, r)
	}
	return selected, nil
}
