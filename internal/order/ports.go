package order

import (
	"context"
	"time"
)

// StatusPending is the status every freshly committed order starts in.
const StatusPending = "pending"

// Header is the order header row.
type Header struct {
	Number     string
	Status     string
	AgencyID   int
	CustomerID int // 0 when the customer is unknown
	Mobile     string
	CreatedAt  time.Time
}

// Line is one order line row.
type Line struct {
	ProductID int
	Quantity  int
}

// Tx is the set of writes available inside one transaction.
type Tx interface {
	InsertHeader(ctx context.Context, h Header) (int64, error)
	InsertLine(ctx context.Context, orderID int64, l Line) error
}

// TxStore runs fn inside a single transaction. fn returning an error
// rolls the whole unit back; no header-without-lines or
// lines-without-header is ever observable.
type TxStore interface {
	WithTx(ctx context.Context, fn func(Tx) error) error
}
