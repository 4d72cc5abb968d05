// Package order converts a confirmed cart into a persisted order
// inside one atomic transaction.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/agencybot/whatsapp-catalog-bot/internal/session"
)

var ErrEmptyCart = errors.New("order: cart is empty")

const (
	uniqueViolation   = "23505"
	maxNumberAttempts = 3
)

// Committer writes confirmed carts as orders.
type Committer struct {
	store    TxStore
	agencyID int
}

func NewCommitter(store TxStore, agencyID int) *Committer {
	return &Committer{store: store, agencyID: agencyID}
}

// Commit persists one header plus one line per cart entry, all or
// nothing. Uniqueness of the order number is enforced by the store's
// unique constraint; a collision regenerates the number and retries
// the whole transaction. On success the returned number is what the
// user sees; the caller is responsible for deleting the session.
func (c *Committer) Commit(ctx context.Context, s *session.Session) (string, error) {
	if len(s.Cart) == 0 {
		return "", ErrEmptyCart
	}

	var lastErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number := c.newNumber()

		err := c.store.WithTx(ctx, func(tx Tx) error {
			orderID, err := tx.InsertHeader(ctx, Header{
				Number:     number,
				Status:     StatusPending,
				AgencyID:   c.agencyID,
				CustomerID: s.CustomerID,
				Mobile:     s.Mobile,
				CreatedAt:  time.Now().UTC(),
			})
			if err != nil {
				return err
			}
			for _, productID := range s.CartOrder {
				line := s.Cart[productID]
				if line == nil {
					continue
				}
				if err := tx.InsertLine(ctx, orderID, Line{
					ProductID: line.ProductID,
					Quantity:  line.Quantity,
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			return number, nil
		}
		if !isUniqueViolation(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("order: could not allocate a unique order number: %w", lastErr)
}

func (c *Committer) newNumber() string {
	return fmt.Sprintf("%d-%s", c.agencyID, strings.ToUpper(uuid.NewString()[:8]))
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
