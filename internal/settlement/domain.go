package settlement

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/shared"
)

// CommissionStatus is the payout state of a commission.
type CommissionStatus string

const (
	CommissionPending CommissionStatus = "PENDING"
	CommissionPaid    CommissionStatus = "PAID"
)

// Commission is one upline member's share of a verified sale.
type Commission struct {
	ID            uuid.UUID
	MemberID      uuid.UUID
	TransactionID uuid.UUID
	Amount        float64
	Status        CommissionStatus
	CreatedAt     time.Time
}

// Payout is one append-only record of money handed to a member.
type Payout struct {
	ID        uuid.UUID
	MemberID  uuid.UUID
	Amount    float64
	CreatedAt time.Time
}

// CommissionSummary is one member's outstanding commission total, for the
// admin payout screen.
type CommissionSummary struct {
	MemberID uuid.UUID
	MemberNo string
	Name     string
	Role     members.Role
	Total    float64
}

// PendingPayout is one reseller's earned-minus-paid balance.
type PendingPayout struct {
	MemberID uuid.UUID
	MemberNo string
	Name     string
	Role     members.Role
	Amount   float64
}

var (
	// ErrAlreadySettled rejects lifecycle transitions on a PAID transaction.
	ErrAlreadySettled = fmt.Errorf("%w: transaction is already settled", shared.ErrInvalidState)
	// ErrProofAttached rejects a second proof upload.
	ErrProofAttached = fmt.Errorf("%w: payment proof already attached", shared.ErrInvalidState)
	// ErrNoPendingCommissions rejects a payout with nothing to pay.
	ErrNoPendingCommissions = fmt.Errorf("%w: no pending commissions", shared.ErrInvalidState)
)
