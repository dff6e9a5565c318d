package ledger

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
)

// Quantity columns are numeric(18,4).
const (
	QtyScale     = 4
	QtyPrecision = 18
)

var maxQty = decimal.New(1, QtyPrecision-QtyScale)

// ValidateQty rejects quantities the store cannot hold exactly: non-positive
// values, more than QtyScale fractional digits, or QtyPrecision-QtyScale or
// more integer digits. Trailing zeros are fine.
func ValidateQty(qty decimal.Decimal, what string) error {
	if !qty.IsPositive() {
		return pkgerrors.ErrInvalidQty.Because("%s qty must be greater than zero, got %s", what, qty)
	}
	if !qty.Equal(qty.Truncate(QtyScale)) {
		return pkgerrors.ErrInvalidQty.Because("%s qty %s has more than %d decimal places", what, qty, QtyScale)
	}
	if qty.GreaterThanOrEqual(maxQty) {
		return pkgerrors.ErrInvalidQty.Because("%s qty %s exceeds the maximum of %s", what, qty, maxQty.Sub(decimal.New(1, -QtyScale)))
	}
	return nil
}
