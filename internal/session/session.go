// Package session holds the per-user conversational state and its
// Redis-backed store. One session exists per (agency, mobile) pair and
// is rebuilt from Redis on every inbound message.
package session

import (
	"time"

	"github.com/agencybot/whatsapp-catalog-bot/internal/catalog"
)

// Step is the dialogue state. The set is closed: a session whose step
// decodes to anything else is treated as malformed.
type Step string

const (
	StepStart        Step = "start"
	StepCategory     Step = "category"
	StepSubcategory  Step = "subcategory"
	StepProduct      Step = "product"
	StepQty          Step = "qty"
	StepConfirmOrder Step = "confirm_order"
)

func (s Step) Valid() bool {
	switch s {
	case StepStart, StepCategory, StepSubcategory, StepProduct, StepQty, StepConfirmOrder:
		return true
	}
	return false
}

// Menu is the transient ordinal numbering shown to the user (1, 2, 3…).
// A nil Menu means the menu was never shown in the current step; an
// out-of-range ordinal on a non-nil Menu is an invalid selection. The
// two must stay distinguishable.
type Menu[T any] []T

// At resolves a 1-based ordinal.
func (m Menu[T]) At(ordinal int) (T, bool) {
	var zero T
	if m == nil || ordinal < 1 || ordinal > len(m) {
		return zero, false
	}
	return m[ordinal-1], true
}

// CartLine is one product in the cart. Quantity accumulates across
// repeated additions of the same product.
type CartLine struct {
	ProductID int     `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// Session is the serialized conversational state for one user.
//
// The ordinal menus are rebuilt in full every time their step is
// entered; the enter* transitions below clear every field that is not
// meaningful to the target step so stale ordinals can never resolve a
// later numeric input.
type Session struct {
	Agency         string `json:"agency"`
	Mobile         string `json:"mobile"`
	CustomerID     int    `json:"customer_id"`
	CustomerTierID *int   `json:"cust_tier_id,omitempty"`

	Step Step `json:"step"`

	// CurrentParentID is the catalog node whose children (or products)
	// are on screen; 0 at the root. It is all back-traversal needs.
	CurrentParentID int `json:"current_parent_id"`

	Categories     Menu[catalog.Node]    `json:"categories,omitempty"`
	Subcategories  Menu[catalog.Node]    `json:"subcategories,omitempty"`
	Products       Menu[catalog.Product] `json:"products,omitempty"`
	PendingProduct *catalog.Product      `json:"pending_product,omitempty"`

	// Cart is keyed by catalog product id, not menu ordinal. CartOrder
	// preserves insertion order for deterministic rendering.
	Cart      map[int]*CartLine `json:"cart"`
	CartOrder []int             `json:"cart_order,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// New creates a fresh session in StepStart. Greeting always goes
// through here: it is a hard reset, never a resume.
func New(agency, mobile string, customer *catalog.Customer) *Session {
	s := &Session{
		Agency:    agency,
		Mobile:    mobile,
		Step:      StepStart,
		Cart:      map[int]*CartLine{},
		CreatedAt: time.Now().UTC(),
	}
	if customer != nil {
		s.CustomerID = customer.ID
		s.CustomerTierID = customer.TierID
	}
	return s
}

// Key builds the store key for an (agency, mobile) pair.
func Key(agency, mobile string) string {
	return "session:" + agency + ":" + mobile
}

// TierID returns the tier to price with. Anonymous customers and
// customers without a tier always get the sentinel; a real tier id of
// 0 is never inherited by accident.
func (s *Session) TierID() int {
	if s.CustomerID > 0 && s.CustomerTierID != nil {
		return *s.CustomerTierID
	}
	return catalog.NoTier
}

// ShowCategories enters the category step with a freshly built root menu.
func (s *Session) ShowCategories(nodes []catalog.Node) {
	s.Step = StepCategory
	s.CurrentParentID = 0
	s.Categories = nodes
	s.Subcategories = nil
	s.Products = nil
	s.PendingProduct = nil
}

// ShowSubcategories enters the subcategory step under parentID.
func (s *Session) ShowSubcategories(parentID int, nodes []catalog.Node) {
	s.Step = StepSubcategory
	s.CurrentParentID = parentID
	s.Categories = nil
	s.Subcategories = nodes
	s.Products = nil
	s.PendingProduct = nil
}

// ShowProducts enters the product step for the leaf node nodeID.
func (s *Session) ShowProducts(nodeID int, products []catalog.Product) {
	s.Step = StepProduct
	s.CurrentParentID = nodeID
	s.Categories = nil
	s.Subcategories = nil
	s.Products = products
	s.PendingProduct = nil
}

// AwaitQuantity enters the qty step for a selected product.
func (s *Session) AwaitQuantity(p catalog.Product) {
	s.Step = StepQty
	s.Products = nil
	s.PendingProduct = &p
}

// AwaitConfirm enters the confirm_order step; only the cart matters here.
func (s *Session) AwaitConfirm() {
	s.Step = StepConfirmOrder
	s.Categories = nil
	s.Subcategories = nil
	s.Products = nil
	s.PendingProduct = nil
}
