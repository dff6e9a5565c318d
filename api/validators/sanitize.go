package validators

import "strings"

// maxEnumLen bounds enum-like input before it reaches a parser.
const maxEnumLen = 32

// SanitizeString trims input and clamps it to maxLen bytes when maxLen > 0.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}

// NormalizeEnum prepares a status or type value for the enums parsers, so
// "approved" and " APPROVED " are read the same way.
func NormalizeEnum(input string) string {
	return strings.ToUpper(SanitizeString(input, maxEnumLen))
}
