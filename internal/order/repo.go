package order

import (
	"context"
	"database/sql"
	"fmt"
)

type pgStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) TxStore {
	return &pgStore{db: db}
}

func (s *pgStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) InsertHeader(ctx context.Context, h Header) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO orders (order_number, status, agency_id, customer_id, mobile, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		h.Number,
		h.Status,
		h.AgencyID,
		h.CustomerID,
		h.Mobile,
		h.CreatedAt,
	).Scan(&id)
	return id, err
}

func (t *pgTx) InsertLine(ctx context.Context, orderID int64, l Line) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO order_items (order_id, prod_id, quantity)
		VALUES ($1, $2, $3)
	`,
		orderID,
		l.ProductID,
		l.Quantity,
	)
	return err
}
