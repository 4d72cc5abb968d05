// Package cart mutates and renders the cart embedded in a session.
package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agencybot/whatsapp-catalog-bot/internal/catalog"
	"github.com/agencybot/whatsapp-catalog-bot/internal/session"
)

var (
	ErrBadQuantity = errors.New("cart: quantity must be a positive integer")
	ErrNotInCart   = errors.New("cart: product not in cart")
)

// Add puts quantity units of p into the session's cart. Lines are
// keyed by catalog product id, so adding the same product twice
// accumulates onto one line instead of duplicating it.
func Add(s *session.Session, p catalog.Product, quantity int) error {
	if quantity < 1 {
		return ErrBadQuantity
	}
	if s.Cart == nil {
		s.Cart = map[int]*session.CartLine{}
	}
	if line, ok := s.Cart[p.ID]; ok {
		line.Quantity += quantity
		return nil
	}
	s.Cart[p.ID] = &session.CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
	}
	s.CartOrder = append(s.CartOrder, p.ID)
	return nil
}

// Remove drops a product's line entirely.
func Remove(s *session.Session, productID int) error {
	if _, ok := s.Cart[productID]; !ok {
		return ErrNotInCart
	}
	delete(s.Cart, productID)
	for i, id := range s.CartOrder {
		if id == productID {
			s.CartOrder = append(s.CartOrder[:i], s.CartOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Render produces the insertion-ordered cart listing with a total.
// An empty cart gets its own message, never an empty list.
func Render(s *session.Session) string {
	if len(s.Cart) == 0 {
		return "Your cart is empty.\nPick a product number to add something."
	}

	var b strings.Builder
	b.WriteString("🧺 *Your cart*\n\n")
	var total float64
	for i, id := range s.CartOrder {
		line := s.Cart[id]
		if line == nil {
			continue
		}
		fmt.Fprintf(&b, "%d. %s x%d – ₹%.2f\n", i+1, line.Name, line.Quantity, line.UnitPrice*float64(line.Quantity))
		total += line.UnitPrice * float64(line.Quantity)
	}
	fmt.Fprintf(&b, "\nTotal: ₹%.2f", total)
	return b.String()
}
