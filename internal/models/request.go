package models

import "time"

// LineStatus captures workflow states for request lines.
type LineStatus string

const (
	LineStatusPending     LineStatus = "PENDING"
	LineStatusApproved    LineStatus = "APPROVED"
	LineStatusNotApproved LineStatus = "NOT_APPROVED"
	// LineStatusReturned is reachable only from APPROVED and only for
	// borrow lines.
	LineStatusReturned LineStatus = "APPROVED_RETURNED"
)

// RequestBatch groups lines submitted together by one requester. Borrow
// batches carry delivery details and a due date; requisition batches carry a
// usage purpose.
type RequestBatch struct {
	ID             string     `db:"id" json:"id"`
	Kind           ItemKind   `db:"kind" json:"kind"`
	RequesterID    string     `db:"requester_id" json:"requester_id"`
	DeliveryMethod *string    `db:"delivery_method" json:"delivery_method,omitempty"`
	Address        *string    `db:"address" json:"address,omitempty"`
	Purpose        *string    `db:"purpose" json:"purpose,omitempty"`
	ReturnDueAt    *time.Time `db:"return_due_at" json:"return_due_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// RequestLine is one requested quantity of one item within a batch.
// RequestedQuantity is immutable after creation; only the approval and
// return fields change afterwards.
type RequestLine struct {
	ID                string     `db:"id" json:"id"`
	BatchID           string     `db:"batch_id" json:"batch_id"`
	RequesterID       string     `db:"requester_id" json:"requester_id,omitempty"`
	ItemID            string     `db:"item_id" json:"item_id"`
	ItemName          string     `db:"item_name" json:"item_name"`
	Kind              ItemKind   `db:"kind" json:"kind"`
	RequestedQuantity int        `db:"requested_quantity" json:"requested_quantity"`
	ApprovedQuantity  *int       `db:"approved_quantity" json:"approved_quantity,omitempty"`
	ReturnedQuantity  *int       `db:"returned_quantity" json:"returned_quantity,omitempty"`
	Status            LineStatus `db:"status" json:"status"`
	RequestedAt       time.Time  `db:"requested_at" json:"requested_at"`
	DecidedBy         *string    `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt         *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	ReturnDueAt       *time.Time `db:"return_due_at" json:"return_due_at,omitempty"`
	ActualReturnAt    *time.Time `db:"actual_return_at" json:"actual_return_at,omitempty"`
}

// RequestLineFilter constrains ledger listing queries.
type RequestLineFilter struct {
	RequesterID string
	BatchID     string
	Kind        ItemKind
	Status      []LineStatus
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// LedgerSummary is the cached reporting projection over the ledger.
type LedgerSummary struct {
	GeneratedAt      time.Time          `json:"generated_at"`
	CountsByStatus   map[LineStatus]int `json:"counts_by_status"`
	CountsByKind     map[ItemKind]int   `json:"counts_by_kind"`
	OutstandingLoans int                `json:"outstanding_loans"`
}
