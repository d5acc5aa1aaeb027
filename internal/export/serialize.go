package export

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
	"github.com/tealeg/xlsx"
)

const (
	sheetName          = "Cart Export"
	googleSheetsSuffix = "_google_sheets"
	spreadsheetNS      = "urn:schemas-microsoft-com:office:spreadsheet"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Serialize renders the table in format.
func Serialize(table Table, format enums.ExportFormat) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch format {
	case enums.ExportFormatCSV, enums.ExportFormatGoogleSheets:
		out, err = serializeCSV(table.All())
	case enums.ExportFormatExcel:
		out, err = serializeSpreadsheetXML(table.All())
	case enums.ExportFormatXLSX:
		out, err = serializeXLSX(table.All())
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serialize export")
	}
	return out, nil
}

// FileName is the user-facing name of an export produced at the given time.
func FileName(exportType enums.ExportType, format enums.ExportFormat, at time.Time) string {
	suffix := ""
	if format == enums.ExportFormatGoogleSheets {
		suffix = googleSheetsSuffix
	}
	return fmt.Sprintf("cart-export-%s-%s%s.%s", exportType, at.UTC().Format("2006-01-02-150405"), suffix, format.Extension())
}

func serializeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func serializeSpreadsheetXML(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<?mso-application progid="Excel.Sheet"?>` + "\n")
	fmt.Fprintf(&buf, `<Workbook xmlns=%q xmlns:ss=%q>`+"\n", spreadsheetNS, spreadsheetNS)
	fmt.Fprintf(&buf, ` <Worksheet ss:Name=%q>`+"\n  <Table>\n", sheetName)
	for _, row := range rows {
		buf.WriteString("   <Row>")
		for _, value := range row {
			buf.WriteString(`<Cell><Data ss:Type="String">`)
			if err := xml.EscapeText(&buf, []byte(value)); err != nil {
				return nil, err
			}
			buf.WriteString("</Data></Cell>")
		}
		buf.WriteString("</Row>\n")
	}
	buf.WriteString("  </Table>\n </Worksheet>\n</Workbook>\n")
	return buf.Bytes(), nil
}

func serializeXLSX(rows [][]string) ([]byte, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return nil, err
	}
	for _, values := range rows {
		row := sheet.AddRow()
		for _, value := range values {
			row.AddCell().SetString(value)
		}
	}
	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
