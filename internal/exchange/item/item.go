package item

// Tag keys carried in an item's opaque tag container. Structural surface items
// are identified by tag, never by position.
const (
	TagLocked    = "xch_locked"
	TagMarker    = "xch_marker"
	TagMob       = "xch_mob"
	TagStackSize = "xch_stack_size"
	TagButton    = "xch_button"
	TagPage      = "xch_page"
)

// KindSpawner is the item kind used for spawner items; only items of this kind
// can match a mob during evaluation.
const KindSpawner = "SPAWNER"

// Item is one inventory slot's content. Count is the raw physical count; the
// quantity an item actually represents is resolved by the stack counter.
type Item struct {
	Kind  string
	Name  string
	Lore  []string
	Count int
	Tags  map[string]string
}

func New(kind, name string, count int) Item {
	return Item{Kind: kind, Name: name, Count: count}
}

// WithTag returns a copy of the item carrying the given tag.
func (it Item) WithTag(key, value string) Item {
	c := it.Clone()
	if c.Tags == nil {
		c.Tags = make(map[string]string, 1)
	}
	c.Tags[key] = value
	return c
}

func (it Item) Tag(key string) (string, bool) {
	v, ok := it.Tags[key]
	return v, ok
}

// Locked reports whether the item is a structural surface item immune to
// player removal or movement.
func (it Item) Locked() bool {
	_, ok := it.Tags[TagLocked]
	return ok
}

// IsMarker reports whether the item carries the live required/provided display.
func (it Item) IsMarker() bool {
	_, ok := it.Tags[TagMarker]
	return ok
}

func (it Item) Clone() Item {
	c := it
	if it.Lore != nil {
		c.Lore = make([]string, len(it.Lore))
		copy(c.Lore, it.Lore)
	}
	if it.Tags != nil {
		c.Tags = make(map[string]string, len(it.Tags))
		for k, v := range it.Tags {
			c.Tags[k] = v
		}
	}
	return c
}
