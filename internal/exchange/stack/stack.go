// Package stack resolves the effective quantity a single slot's item
// represents. A stacking plugin owns the authoritative size; when it cannot
// answer, a fixed chain of label heuristics takes over, and the raw physical
// count is the final fallback.
package stack

import (
	"regexp"
	"strconv"

	"spawnerx.gg/internal/exchange/item"
)

// Oracle is the external stacking capability. StackSize returns the true
// stacked size of the item, or ok=false when the item is unknown to it.
type Oracle interface {
	StackSize(it item.Item) (int, bool)
}

// Registry is the oracle's discovery side-channel, queried once at startup to
// seed missing rate entries.
type Registry interface {
	SpawnerTypes() []string
}

// Display-name multiplier forms: "6 x Zombie Spawner" and "Zombie Spawner x6".
var (
	namePrefix = regexp.MustCompile(`^\s*(\d+)\s*[xX×]\s+`)
	nameSuffix = regexp.MustCompile(`[xX×]\s*(\d+)\s*$`)
	firstInt   = regexp.MustCompile(`\d+`)
)

// Counter resolves effective quantities. A nil oracle is valid; the chain
// simply starts at the label heuristics.
type Counter struct {
	oracle Oracle
}

func NewCounter(o Oracle) *Counter { return &Counter{oracle: o} }

// Effective never fails and never mutates the item. Resolution order: oracle,
// display-name multiplier, first positive integer in a lore line, raw count.
// The label heuristics only apply to spawner-kind items so unrelated labeled
// items keep their physical count.
func (c *Counter) Effective(it item.Item) int {
	if c.oracle != nil {
		if n, ok := c.oracle.StackSize(it); ok && n > 0 {
			return n
		}
	}
	if it.Kind == item.KindSpawner {
		if n := parseNameMultiplier(it.Name); n > 0 {
			return n
		}
		for _, line := range it.Lore {
			if m := firstInt.FindString(line); m != "" {
				if n, err := strconv.Atoi(m); err == nil && n > 0 {
					return n
				}
			}
		}
	}
	if it.Count < 0 {
		return 0
	}
	return it.Count
}

func parseNameMultiplier(name string) int {
	if m := namePrefix.FindStringSubmatch(name); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := nameSuffix.FindStringSubmatch(name); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 0
}
