package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencybot/whatsapp-catalog-bot/internal/catalog"
	"github.com/agencybot/whatsapp-catalog-bot/internal/session"
)

func TestAdd_AccumulatesSameProduct(t *testing.T) {
	s := session.New("acme", "111", nil)
	p := catalog.Product{ID: 7, Name: "Chips", Price: 20}

	require.NoError(t, Add(s, p, 3))
	require.NoError(t, Add(s, p, 2))

	require.Len(t, s.Cart, 1, "one line per product, never duplicates")
	assert.Equal(t, 5, s.Cart[7].Quantity)
	assert.Equal(t, []int{7}, s.CartOrder)
}

func TestAdd_RejectsNonPositiveQuantity(t *testing.T) {
	s := session.New("acme", "111", nil)
	p := catalog.Product{ID: 7, Name: "Chips"}

	assert.ErrorIs(t, Add(s, p, 0), ErrBadQuantity)
	assert.ErrorIs(t, Add(s, p, -2), ErrBadQuantity)
	assert.Empty(t, s.Cart)
}

func TestRemove(t *testing.T) {
	s := session.New("acme", "111", nil)
	require.NoError(t, Add(s, catalog.Product{ID: 1, Name: "A", Price: 10}, 1))
	require.NoError(t, Add(s, catalog.Product{ID: 2, Name: "B", Price: 15}, 1))

	require.NoError(t, Remove(s, 1))
	assert.NotContains(t, s.Cart, 1)
	assert.Equal(t, []int{2}, s.CartOrder)

	assert.ErrorIs(t, Remove(s, 99), ErrNotInCart)
}

func TestRender_EmptyCart(t *testing.T) {
	s := session.New("acme", "111", nil)
	out := Render(s)
	assert.Contains(t, out, "empty")
	assert.NotContains(t, out, "Total")
}

func TestRender_InsertionOrder(t *testing.T) {
	s := session.New("acme", "111", nil)
	require.NoError(t, Add(s, catalog.Product{ID: 2, Name: "Biscuits", Price: 30}, 1))
	require.NoError(t, Add(s, catalog.Product{ID: 1, Name: "Chips", Price: 20}, 3))

	out := Render(s)
	assert.Contains(t, out, "1. Biscuits x1")
	assert.Contains(t, out, "2. Chips x3")
	assert.Contains(t, out, "Total: ₹90.00")

	// Deterministic across calls.
	assert.Equal(t, out, Render(s))
}
