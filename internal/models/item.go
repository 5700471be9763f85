package models

import "time"

// ItemKind separates loanable tools from consumable supplies.
type ItemKind string

const (
	ItemKindBorrow      ItemKind = "BORROW"
	ItemKindRequisition ItemKind = "REQUISITION"
)

// Item is a stock-tracked catalog entry. AvailableQuantity is mutated only
// through the stock ledger's conditional updates.
type Item struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Kind              ItemKind  `db:"kind" json:"kind"`
	AvailableQuantity int       `db:"available_quantity" json:"available_quantity"`
	Restricted        bool      `db:"restricted" json:"restricted"`
	Active            bool      `db:"active" json:"active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// ItemFilter constrains catalog listing queries.
type ItemFilter struct {
	Kind     ItemKind
	Active   *bool
	Search   string
	Page     int
	PageSize int
}
