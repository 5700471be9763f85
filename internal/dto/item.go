package dto

// CreateItemRequest adds a catalog entry.
type CreateItemRequest struct {
	Name              string `json:"name" binding:"required"`
	Kind              string `json:"kind" binding:"required"`
	AvailableQuantity int    `json:"available_quantity"`
	Restricted        bool   `json:"restricted"`
}

// UpdateItemRequest edits catalog metadata. Quantity changes flow through
// the stock ledger, not through this payload.
type UpdateItemRequest struct {
	Name       *string `json:"name,omitempty"`
	Restricted *bool   `json:"restricted,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}
