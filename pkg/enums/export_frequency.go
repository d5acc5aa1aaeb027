package enums

import "fmt"

// ExportFrequency is the cadence of a scheduled export.
type ExportFrequency string

const (
	ExportFrequencyDaily   ExportFrequency = "daily"
	ExportFrequencyWeekly  ExportFrequency = "weekly"
	ExportFrequencyMonthly ExportFrequency = "monthly"
)

var validExportFrequencies = []ExportFrequency{
	ExportFrequencyDaily,
	ExportFrequencyWeekly,
	ExportFrequencyMonthly,
}

// String implements fmt.Stringer.
func (e ExportFrequency) String() string {
	return string(e)
}

// IsValid reports whether the value is a known ExportFrequency.
func (e ExportFrequency) IsValid() bool {
	for _, candidate := range validExportFrequencies {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseExportFrequency converts raw input into an ExportFrequency.
func ParseExportFrequency(value string) (ExportFrequency, error) {
	for _, candidate := range validExportFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid export frequency %q", value)
}
