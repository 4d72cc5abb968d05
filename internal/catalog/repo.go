package catalog

import (
	"context"
	"database/sql"
)

type repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) Store {
	return &repo{db: db}
}

func (r *repo) RootCategories(ctx context.Context, agencyID int) ([]Node, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, parent_id, category_name
		FROM category
		WHERE parent_id = 0
		  AND is_prod_present = 1
		  AND id IN (
			SELECT DISTINCT ct_id
			FROM agency_categories
			WHERE ag_id = $1
		  )
		ORDER BY id
	`, agencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

func (r *repo) Children(ctx context.Context, categoryID int) ([]Node, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, parent_id, category_name
		FROM category
		WHERE parent_id = $1
		  AND is_prod_present = 1
		ORDER BY id
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

func (r *repo) NodeByID(ctx context.Context, categoryID int) (*Node, error) {
	var n Node
	err := r.db.QueryRowContext(ctx, `
		SELECT id, parent_id, category_name
		FROM category
		WHERE id = $1
	`, categoryID).Scan(&n.ID, &n.ParentID, &n.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repo) Products(ctx context.Context, agencyID, categoryID, tierID int) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			p.id,
			p.productname,
			p.mrp,
			s.name
		FROM product p
		LEFT JOIN current_pricing_scheme_map cpsm
		       ON cpsm.prod_id = p.id
		      AND cpsm.tier_id = $1
		      AND (
		           (cpsm.start_date IS NULL AND cpsm.end_date IS NULL)
		        OR (CURRENT_DATE BETWEEN cpsm.start_date AND cpsm.end_date)
		      )
		LEFT JOIN scheme s
		       ON s.id = cpsm.scheme_id
		      AND s.is_enable = 1
		WHERE p.is_enabled = 1
		  AND p.agid = $2
		  AND p.sbid = $3
		ORDER BY p.id
	`, tierID, agencyID, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		var scheme sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &scheme); err != nil {
			return nil, err
		}
		if scheme.Valid {
			p.SchemeName = scheme.String
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repo) CustomerByContact(ctx context.Context, mobile string) (*Customer, error) {
	var c Customer
	var tier sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, cust_tier_id
		FROM customers
		WHERE contact_numbers LIKE $1
		LIMIT 1
	`, "%"+mobile+"%").Scan(&c.ID, &tier)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if tier.Valid {
		t := int(tier.Int64)
		c.TierID = &t
	}
	return &c, nil
}

func scanNodes(rows *sql.Rows) ([]Node, error) {
	var out []Node
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.ID, &n.ParentID, &n.Name); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
