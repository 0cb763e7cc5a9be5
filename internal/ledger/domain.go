package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/krishilink/krishilink/internal/shared"
)

// PaymentStatus is the settlement state of a transaction.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "PENDING"
	StatusPaid    PaymentStatus = "PAID"
)

// Transaction is one recorded sale between two members. Monetary fields and
// the parties are immutable once written; only the payment status and the
// proof reference change afterwards.
type Transaction struct {
	ID            uuid.UUID
	SellerID      uuid.UUID
	BuyerID       uuid.UUID
	ProductID     uuid.UUID
	Quantity      int64
	UnitPrice     float64
	TotalAmount   float64
	Profit        float64
	PaymentStatus PaymentStatus
	PaymentProof  *string
	CreatedAt     time.Time
}

// InventoryItem is one product line of a member's stock.
type InventoryItem struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int64
}

// Receivables groups a seller's full transaction history with the total
// still awaiting payment.
type Receivables struct {
	Transactions []Transaction
	PendingTotal float64
}

// PurchaseInput describes an order.
type PurchaseInput struct {
	ProductID uuid.UUID
	Quantity  int64
}

var (
	// ErrInsufficientStock rejects an order exceeding the seller's stock.
	ErrInsufficientStock = shared.ErrInsufficientStock
	// ErrTransactionNotFound indicates an unknown transaction id.
	ErrTransactionNotFound = fmt.Errorf("%w: transaction", shared.ErrNotFound)
)

// minInitialQuantity is the smallest order a prospective reseller may place
// with the Admin while membership is still ungranted.
const minInitialQuantity = 10
