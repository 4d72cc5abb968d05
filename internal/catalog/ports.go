package catalog

import "context"

// Store — read-only catalog queries, all scoped to one agency where noted.
type Store interface {
	// RootCategories lists product-bearing root nodes whitelisted for the agency.
	RootCategories(ctx context.Context, agencyID int) ([]Node, error)
	// Children lists product-bearing child nodes of a category.
	Children(ctx context.Context, categoryID int) ([]Node, error)
	// NodeByID returns the node with the given id, or nil if it no longer exists.
	NodeByID(ctx context.Context, categoryID int) (*Node, error)
	// Products lists enabled products under a leaf node. tierID selects the
	// applicable pricing scheme; pass NoTier for anonymous customers.
	Products(ctx context.Context, agencyID, categoryID, tierID int) ([]Product, error)
	// CustomerByContact resolves a customer from a mobile number, or nil.
	CustomerByContact(ctx context.Context, mobile string) (*Customer, error)
}
