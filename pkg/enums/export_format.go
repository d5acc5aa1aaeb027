package enums

import "fmt"

// ExportFormat is the serialization used for an export file.
type ExportFormat string

const (
	ExportFormatCSV          ExportFormat = "csv"
	ExportFormatExcel        ExportFormat = "excel"
	ExportFormatGoogleSheets ExportFormat = "google_sheets"
	ExportFormatXLSX         ExportFormat = "xlsx"
)

var validExportFormats = []ExportFormat{
	ExportFormatCSV,
	ExportFormatExcel,
	ExportFormatGoogleSheets,
	ExportFormatXLSX,
}

// String implements fmt.Stringer.
func (e ExportFormat) String() string {
	return string(e)
}

// IsValid reports whether the value is a known ExportFormat.
func (e ExportFormat) IsValid() bool {
	for _, candidate := range validExportFormats {
		if candidate == e {
			return true
		}
	}
	return false
}

// Extension returns the file extension (without dot) for the format.
func (e ExportFormat) Extension() string {
	switch e {
	case ExportFormatExcel:
		return "xls"
	case ExportFormatXLSX:
		return "xlsx"
	default:
		return "csv"
	}
}

// ContentType returns the MIME type used when serving the file.
func (e ExportFormat) ContentType() string {
	switch e {
	case ExportFormatExcel:
		return "application/vnd.ms-excel"
	case ExportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// ParseExportFormat converts raw input into an ExportFormat.
func ParseExportFormat(value string) (ExportFormat, error) {
	for _, candidate := range validExportFormats {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid export format %q", value)
}
