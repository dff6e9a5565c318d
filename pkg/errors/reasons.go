package errors

// Inventory reasons. Compare with errors.Is; create request-specific copies
// with Because.
var (
	ErrItemNotFound        = Reasoned(CodeNotFound, "ITEM_NOT_FOUND", "item not found")
	ErrLotNotFound         = Reasoned(CodeNotFound, "LOT_NOT_FOUND", "lot not found")
	ErrReservationNotFound = Reasoned(CodeNotFound, "RESERVATION_NOT_FOUND", "reservation not found")

	ErrDuplicateItemCode = Reasoned(CodeConflict, "DUPLICATE_ITEM_CODE", "item code already exists")
	ErrDuplicateLotCode  = Reasoned(CodeConflict, "DUPLICATE_LOT_CODE", "lot code already exists")

	ErrReservationAlreadyIssued = Reasoned(CodeStateConflict, "RESERVATION_ALREADY_ISSUED", "reservation already issued")
	ErrReservationCancelled     = Reasoned(CodeStateConflict, "RESERVATION_CANCELLED", "reservation cancelled")
	ErrLotQCFinal               = Reasoned(CodeStateConflict, "LOT_QC_FINAL", "lot qc decision is final")

	ErrInsufficientStock         = Reasoned(CodeInfeasible, "INSUFFICIENT_STOCK", "insufficient available stock")
	ErrInsufficientApprovedStock = Reasoned(CodeInfeasible, "INSUFFICIENT_APPROVED_STOCK", "insufficient qc-approved stock")
	ErrNoQCApprovedLot           = Reasoned(CodeInfeasible, "NO_QC_APPROVED_LOT", "no qc-approved lot available")

	ErrInvalidQty      = Reasoned(CodeValidation, "INVALID_QTY", "quantity must be greater than zero")
	ErrInvalidQCStatus = Reasoned(CodeValidation, "INVALID_QC_STATUS", "qc status must be APPROVED or REJECTED")

	ErrIdempotencyKeyReused = Reasoned(CodeIdempotency, "IDEMPOTENCY_KEY_REUSED", "idempotency key reused with different request")
)
