package enums

import "fmt"

// QCStatus maps to the qc_status column on inventory_lots.
type QCStatus string

const (
	QCStatusQuarantine QCStatus = "QUARANTINE"
	QCStatusApproved   QCStatus = "APPROVED"
	QCStatusRejected   QCStatus = "REJECTED"
)

var validQCStatuses = []QCStatus{
	QCStatusQuarantine,
	QCStatusApproved,
	QCStatusRejected,
}

// String implements fmt.Stringer.
func (s QCStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known QCStatus.
func (s QCStatus) IsValid() bool {
	for _, candidate := range validQCStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsDecision reports whether the status is a QC verdict (APPROVED or REJECTED).
func (s QCStatus) IsDecision() bool {
	return s == QCStatusApproved || s == QCStatusRejected
}

// ParseQCStatus converts raw input into a QCStatus.
func ParseQCStatus(value string) (QCStatus, error) {
	for _, candidate := range validQCStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid qc status %q", value)
}
