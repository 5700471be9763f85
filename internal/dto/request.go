package dto

// CartLine is one item/quantity pair in a submission.
type CartLine struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

// CreateBorrowRequest submits a borrow cart.
type CreateBorrowRequest struct {
	Items          []CartLine `json:"items" binding:"required,min=1"`
	DeliveryMethod string     `json:"delivery_method" binding:"required"`
	Address        string     `json:"address"`
	ReturnDueDate  string     `json:"return_due_date" binding:"required"`
}

// CreateRequisitionRequest submits a requisition cart.
type CreateRequisitionRequest struct {
	Items   []CartLine `json:"items" binding:"required,min=1"`
	Purpose string     `json:"purpose" binding:"required"`
}

// CreateBatchResponse returns the identity of a stored batch.
type CreateBatchResponse struct {
	BatchID string `json:"batch_id"`
}

// ApproveLine carries the admin's quantity decision for one line.
type ApproveLine struct {
	ID               string `json:"id" binding:"required"`
	ApprovedQuantity int    `json:"approved_quantity"`
}

// ApproveBatchRequest approves lines of a pending batch.
type ApproveBatchRequest struct {
	BatchID string        `json:"batch_id" binding:"required"`
	Lines   []ApproveLine `json:"lines" binding:"required,min=1"`
}

// FailedLine reports a line that could not be committed.
type FailedLine struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ApproveBatchResponse lists committed and failed lines so callers can
// retry or adjust the ones that ran out of stock.
type ApproveBatchResponse struct {
	BatchID  string       `json:"batch_id"`
	Approved []string     `json:"approved"`
	Failed   []FailedLine `json:"failed,omitempty"`
}

// RejectBatchRequest rejects every pending line of a batch.
type RejectBatchRequest struct {
	BatchID string `json:"batch_id" binding:"required"`
}

// ReturnLine records the quantity actually handed back for one loan line.
type ReturnLine struct {
	ID               string `json:"id" binding:"required"`
	ReturnedQuantity int    `json:"returned_quantity"`
}

// ReturnBatchRequest processes returns on approved borrow lines.
type ReturnBatchRequest struct {
	BatchID          string       `json:"batch_id" binding:"required"`
	ActualReturnDate string       `json:"actual_return_date" binding:"required"`
	Lines            []ReturnLine `json:"lines" binding:"required,min=1"`
}
