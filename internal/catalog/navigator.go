package catalog

import (
	"context"
	"errors"
)

// ErrNodeGone means the node the session was positioned on has been
// removed from the catalog since the menu was shown.
var ErrNodeGone = errors.New("catalog: current node no longer exists")

// Listing is the result of descending into a node: either its child
// nodes (non-leaf) or its products (leaf). Exactly one side is set.
type Listing struct {
	Node     Node
	Children []Node
	Products []Product
}

// Navigator computes menus from the catalog tree. It keeps no state of
// its own; back-navigation is recomputed from the tree on every call,
// so it stays correct when the catalog changes between turns.
type Navigator struct {
	store Store
}

func NewNavigator(store Store) *Navigator {
	return &Navigator{store: store}
}

// Root lists the agency's root category menu.
func (n *Navigator) Root(ctx context.Context, agencyID int) ([]Node, error) {
	return n.store.RootCategories(ctx, agencyID)
}

// Descend resolves a selected node one level down. The tree has
// unbounded depth: a node with product-bearing children yields a child
// menu, a leaf yields its product listing.
func (n *Navigator) Descend(ctx context.Context, agencyID int, node Node, tierID int) (*Listing, error) {
	children, err := n.store.Children(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	if len(children) > 0 {
		return &Listing{Node: node, Children: children}, nil
	}

	products, err := n.store.Products(ctx, agencyID, node.ID, tierID)
	if err != nil {
		return nil, err
	}
	return &Listing{Node: node, Products: products}, nil
}

// Ascend goes up exactly one tree level from the node whose children
// are currently on screen, returning the new parent node and its child
// menu. A nil parent means the result is the root category menu; at the
// root itself (currentParentID 0) Ascend redisplays the root menu.
func (n *Navigator) Ascend(ctx context.Context, agencyID, currentParentID int) (*Node, []Node, error) {
	if currentParentID == 0 {
		nodes, err := n.Root(ctx, agencyID)
		return nil, nodes, err
	}

	current, err := n.store.NodeByID(ctx, currentParentID)
	if err != nil {
		return nil, nil, err
	}
	if current == nil {
		return nil, nil, ErrNodeGone
	}

	if current.ParentID == 0 {
		nodes, err := n.Root(ctx, agencyID)
		return nil, nodes, err
	}

	parent, err := n.store.NodeByID(ctx, current.ParentID)
	if err != nil {
		return nil, nil, err
	}
	if parent == nil {
		return nil, nil, ErrNodeGone
	}
	nodes, err := n.store.Children(ctx, parent.ID)
	return parent, nodes, err
}
