package stack

import (
	"testing"

	"spawnerx.gg/internal/exchange/item"
)

type fixedOracle struct {
	size int
	ok   bool
}

func (o fixedOracle) StackSize(item.Item) (int, bool) { return o.size, o.ok }

func TestOracleWinsWhenPositive(t *testing.T) {
	c := NewCounter(fixedOracle{size: 48, ok: true})
	it := item.New(item.KindSpawner, "6 x Zombie Spawner", 1)
	if got := c.Effective(it); got != 48 {
		t.Fatalf("oracle answer ignored: got %d, want 48", got)
	}
}

func TestOracleNonPositiveFallsThrough(t *testing.T) {
	c := NewCounter(fixedOracle{size: 0, ok: true})
	it := item.New(item.KindSpawner, "6 x Zombie Spawner", 1)
	if got := c.Effective(it); got != 6 {
		t.Fatalf("got %d, want name-parsed 6", got)
	}
}

func TestNameMultiplierForms(t *testing.T) {
	c := NewCounter(nil)
	cases := []struct {
		name string
		want int
	}{
		{"6 x Zombie Spawner", 6},
		{"  12 X Blaze Spawner", 12},
		{"3 × Creeper Spawner", 3},
		{"Zombie Spawner x6", 6},
		{"Skeleton Spawner ×9", 9},
		{"Zombie Spawner", 1},
	}
	for _, tc := range cases {
		it := item.New(item.KindSpawner, tc.name, 1)
		if got := c.Effective(it); got != tc.want {
			t.Fatalf("%q: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestLoreFallback(t *testing.T) {
	c := NewCounter(nil)
	it := item.New(item.KindSpawner, "Zombie Spawner", 1)
	it.Lore = []string{"A humble spawner", "Stack Size: 24"}
	if got := c.Effective(it); got != 24 {
		t.Fatalf("got %d, want lore-parsed 24", got)
	}
}

func TestRawCountFallback(t *testing.T) {
	c := NewCounter(nil)
	it := item.New(item.KindSpawner, "Zombie Spawner", 5)
	if got := c.Effective(it); got != 5 {
		t.Fatalf("got %d, want raw count 5", got)
	}
}

func TestHeuristicsSkipNonSpawnerKinds(t *testing.T) {
	c := NewCounter(nil)
	it := item.New("PAPER", "6 x Zombie Spawner", 2)
	if got := c.Effective(it); got != 2 {
		t.Fatalf("label heuristics applied to non-spawner item: got %d, want 2", got)
	}
}

func TestStableAcrossCalls(t *testing.T) {
	c := NewCounter(fixedOracle{ok: false})
	it := item.New(item.KindSpawner, "Zombie Spawner x7", 1)
	it.Lore = []string{"count 3"}
	a := c.Effective(it)
	b := c.Effective(it)
	if a != b || a != 7 {
		t.Fatalf("unstable resolution: %d then %d", a, b)
	}
}
