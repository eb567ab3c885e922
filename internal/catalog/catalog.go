package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

var (
	ErrEmptyName     = errors.New("item name is empty")
	ErrDuplicateName = errors.New("duplicate item name")
	ErrInvalidTier   = errors.New("item tier must be positive")
)

// Catalog is the read-only table of draftable items for one draft.
// It is safe for concurrent readers because it is never mutated after New.
type Catalog struct {
	items  []models.Item
	byName map[string]int
	byTier map[int][]models.Item
	tiers  []int
}

// New validates and indexes the given items
func New(items []models.Item) (*Catalog, error) {
	c := &Catalog{
		items:  make([]models.Item, 0, len(items)),
		byName: make(map[string]int, len(items)),
		byTier: make(map[int][]models.Item),
	}

	for _, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			return nil, ErrEmptyName
		}
		if it.Tier <= 0 {
			return nil, fmt.Errorf("%w: %s has tier %d", ErrInvalidTier, it.Name, it.Tier)
		}
		if _, dup := c.byName[it.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, it.Name)
		}
		c.byName[it.Name] = len(c.items)
		c.items = append(c.items, it)
		if _, seen := c.byTier[it.Tier]; !seen {
			c.tiers = append(c.tiers, it.Tier)
		}
		c.byTier[it.Tier] = append(c.byTier[it.Tier], it)
	}

	slices.SortFunc(c.tiers, func(a, b int) int { return b - a })
	return c, nil
}

// Len returns the number of items
func (c *Catalog) Len() int {
	return len(c.items)
}

// Tiers returns the tiers that have at least one item, highest first
func (c *Catalog) Tiers() []int {
	return slices.Clone(c.tiers)
}

// ByTier returns a copy of the items in the tier
func (c *Catalog) ByTier(tier int) []models.Item {
	return slices.Clone(c.byTier[tier])
}

// Lookup finds an item by name
func (c *Catalog) Lookup(name string) (models.Item, bool) {
	i, ok := c.byName[name]
	if !ok {
		return models.Item{}, false
	}
	return c.items[i], true
}

// Items returns a copy of every item in load order
func (c *Catalog) Items() []models.Item {
	return slices.Clone(c.items)
}
