package catalog

// NoTier is the sentinel tier id used for anonymous customers and
// customers without an assigned tier. It must never collide with a
// real tier id, including 0.
const NoTier = -1

// Node is a category or subcategory in the catalog tree.
// Root nodes have ParentID 0.
type Node struct {
	ID       int    `json:"id"`
	ParentID int    `json:"parent_id"`
	Name     string `json:"name"`
}

// Product is a sellable item listed under a leaf node. SchemeName is a
// display-only promotional annotation; Price is what cart math uses.
type Product struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	SchemeName string  `json:"scheme_name,omitempty"`
}

// Customer is the identity resolved from a contact number.
type Customer struct {
	ID     int
	TierID *int
}
