package enums

import "fmt"

// ExportType selects which cart population an export reads.
type ExportType string

const (
	ExportTypeActiveCarts ExportType = "active_carts"
	ExportTypeCartHistory ExportType = "cart_history"
)

var validExportTypes = []ExportType{
	ExportTypeActiveCarts,
	ExportTypeCartHistory,
}

// String implements fmt.Stringer.
func (e ExportType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known ExportType.
func (e ExportType) IsValid() bool {
	for _, candidate := range validExportTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseExportType converts raw input into an ExportType.
func ParseExportType(value string) (ExportType, error) {
	for _, candidate := range validExportTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid export type %q", value)
}
