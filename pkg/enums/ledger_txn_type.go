package enums

import "fmt"

// LedgerTxnType maps to the txn_type column on inventory_ledger.
type LedgerTxnType string

const (
	LedgerTxnReceive   LedgerTxnType = "RECEIVE"
	LedgerTxnReserve   LedgerTxnType = "RESERVE"
	LedgerTxnUnreserve LedgerTxnType = "UNRESERVE"
	LedgerTxnIssue     LedgerTxnType = "ISSUE"
)

var validLedgerTxnTypes = []LedgerTxnType{
	LedgerTxnReceive,
	LedgerTxnReserve,
	LedgerTxnUnreserve,
	LedgerTxnIssue,
}

// String implements fmt.Stringer.
func (t LedgerTxnType) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical ledger transaction enum.
func (t LedgerTxnType) IsValid() bool {
	for _, candidate := range validLedgerTxnTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// LotScoped reports whether entries of this type must reference a lot.
func (t LedgerTxnType) LotScoped() bool {
	return t == LedgerTxnReceive || t == LedgerTxnIssue
}

// ParseLedgerTxnType converts raw input into LedgerTxnType.
func ParseLedgerTxnType(value string) (LedgerTxnType, error) {
	for _, candidate := range validLedgerTxnTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger txn type %q", value)
}
