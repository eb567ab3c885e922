package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

func TestNewIndexesByTier(t *testing.T) {
	c, err := New([]models.Item{
		{Name: "Mewtwo", Tier: 300},
		{Name: "Pikachu", Tier: 100},
		{Name: " Eevee ", Tier: 100},
		{Name: "Charizard", Tier: 240, IsMega: true},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, c.Len())
	assert.Equal(t, []int{300, 240, 100}, c.Tiers())
	assert.Len(t, c.ByTier(100), 2)
	assert.Empty(t, c.ByTier(20))

	it, ok := c.Lookup("Eevee")
	require.True(t, ok, "names are trimmed on load")
	assert.Equal(t, 100, it.Tier)

	zard, _ := c.Lookup("Charizard")
	assert.True(t, zard.IsMega)
}

func TestNewRejectsBadItems(t *testing.T) {
	cases := []struct {
		name  string
		items []models.Item
		want  error
	}{
		{"empty name", []models.Item{{Name: "  ", Tier: 20}}, ErrEmptyName},
		{"zero tier", []models.Item{{Name: "Magikarp", Tier: 0}}, ErrInvalidTier},
		{"duplicate", []models.Item{{Name: "Ditto", Tier: 60}, {Name: "Ditto", Tier: 80}}, ErrDuplicateName},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.items)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestByTierReturnsCopy(t *testing.T) {
	c, err := New([]models.Item{{Name: "Onix", Tier: 80}})
	require.NoError(t, err)

	items := c.ByTier(80)
	items[0].Name = "mutated"

	got, _ := c.Lookup("Onix")
	assert.Equal(t, "Onix", got.Name)
	assert.Equal(t, "Onix", c.ByTier(80)[0].Name)
}
