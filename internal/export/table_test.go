package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/cartwatch-backend/internal/analytics"
	"github.com/angelmondragon/cartwatch-backend/internal/sanitize"
	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRoundTripKeepsRowsAndColumnOrder(t *testing.T) {
	records := []models.CartRecord{
		record("Ana", "10.00", enums.CartStatusActive, time.Hour),
		record("Ben, Jr.", "5.50", enums.CartStatusActive, 2*time.Hour),
		record("Cleo \"C\"", "7", enums.CartStatusActive, 3*time.Hour),
	}
	columns := []string{sanitize.FieldStatus, sanitize.FieldCustomerName, sanitize.FieldCartTotal, sanitize.FieldID}

	table, err := BuildTable(records, &analytics.Snapshot{WindowDays: 30}, columns, TableMeta{
		Type:        enums.ExportTypeActiveCarts,
		GeneratedAt: baseNow,
	})
	require.NoError(t, err)

	out, err := Serialize(table, enums.ExportFormatCSV)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}), "csv must start with a UTF-8 BOM")

	reader := csv.NewReader(bytes.NewReader(out[3:]))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	require.NoError(t, err)

	body := rows[len(table.Preamble):]
	assert.Equal(t, []string{"Status", "Customer Name", "Cart Total", "Cart ID"}, body[0])
	require.Len(t, body[1:], len(records))
	for i, row := range body[1:] {
		require.Len(t, row, len(columns))
		assert.Equal(t, records[i].ID.String(), row[3])
	}
	assert.Equal(t, "Ben, Jr.", body[2][1])
	assert.Equal(t, "Cleo \"C\"", body[3][1])
	assert.Equal(t, "7.00", body[3][2])
}

func TestBuildTableEscapesFormulaCells(t *testing.T) {
	rec := record("=1+2", "3", enums.CartStatusConverted, time.Hour)
	table, err := BuildTable([]models.CartRecord{rec}, nil, []string{sanitize.FieldCustomerName}, TableMeta{
		Type:        enums.ExportTypeCartHistory,
		GeneratedAt: baseNow,
	})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "'=1+2", table.Rows[0][0])

	for _, row := range table.All() {
		for _, value := range row {
			assert.Equal(t, sanitize.EscapeForSpreadsheet(value), value)
		}
	}
}

func TestBuildTableActiveSummarySections(t *testing.T) {
	snapshot := &analytics.Snapshot{
		WindowDays:          30,
		TotalCarts:          10,
		ConvertedCarts:      3,
		ConversionRate:      30,
		ActiveCartPotential: decimal.RequireFromString("120.5"),
	}
	table, err := BuildTable([]models.CartRecord{record("Ana", "1", enums.CartStatusActive, time.Hour)}, snapshot,
		DefaultColumns, TableMeta{Type: enums.ExportTypeActiveCarts, SiteName: "Shop", GeneratedAt: baseNow})
	require.NoError(t, err)

	var titles []string
	values := map[string]string{}
	for _, row := range table.Preamble {
		if len(row) == 1 {
			titles = append(titles, row[0])
			continue
		}
		values[row[0]] = row[1]
	}
	assert.Equal(t, []string{
		"ACTIVE CARTS REPORT", "OVERVIEW", "KEY METRICS", "AVERAGES",
		"REVENUE BREAKDOWN", "CUSTOMER TYPES", "SUMMARY", "CART RECORDS",
	}, titles)
	assert.Equal(t, "Last 30 days", values["Period"])
	assert.Equal(t, "30.00%", values["Conversion Rate"])
	assert.Equal(t, "120.50", values["Active Cart Potential"])
	assert.Equal(t, "1", values["Records Exported"])
	assert.Equal(t, "Shop", values["Site"])
}

func TestBuildTableHistoryMetadata(t *testing.T) {
	table, err := BuildTable([]models.CartRecord{record("Ana", "1", enums.CartStatusDeleted, time.Hour)}, nil,
		[]string{sanitize.FieldID}, TableMeta{
			Type:        enums.ExportTypeCartHistory,
			Filters:     Filters{Days: 14, Status: enums.HistoryFilterDeleted},
			GeneratedAt: baseNow,
		})
	require.NoError(t, err)

	joined := make([]string, 0, len(table.Preamble))
	for _, row := range table.Preamble {
		joined = append(joined, strings.Join(row, "="))
	}
	assert.Contains(t, joined, "Period=Last 14 days")
	assert.Contains(t, joined, "Filter=deleted")
	assert.Contains(t, joined, "Records Exported=1")
	assert.NotContains(t, joined, "KEY METRICS")
}

func TestBuildTableRejectsColumns(t *testing.T) {
	_, err := BuildTable(nil, nil, nil, TableMeta{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = BuildTable(nil, nil, []string{"id", "favorite_color"}, TableMeta{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestColumnRegistry(t *testing.T) {
	cols := Columns()
	require.Len(t, cols, 15)
	fields := sanitize.ProjectRecordForExport(record("Ana", "1", enums.CartStatusActive, time.Hour), baseNow)
	for _, col := range cols {
		_, ok := fields[col.Key]
		assert.True(t, ok, "column %s has no projected field", col.Key)
	}
	assert.NoError(t, ValidateColumns(DefaultColumns))
}

func TestSerializeSpreadsheetXML(t *testing.T) {
	table := Table{
		Header: []string{"Name", "Note"},
		Rows:   [][]string{{"a & b", "<tag>"}},
	}
	out, err := Serialize(table, enums.ExportFormatExcel)
	require.NoError(t, err)
	doc := string(out)

	assert.Contains(t, doc, `xmlns="urn:schemas-microsoft-com:office:spreadsheet"`)
	assert.Contains(t, doc, `<Worksheet ss:Name="Cart Export">`)
	assert.Contains(t, doc, `<Cell><Data ss:Type="String">a &amp; b</Data></Cell>`)
	assert.Contains(t, doc, `&lt;tag&gt;`)
	assert.Equal(t, 2, strings.Count(doc, "<Row>"))
}

func TestSerializeXLSXProducesWorkbook(t *testing.T) {
	table := Table{Header: []string{"Name"}, Rows: [][]string{{"Ana"}}}
	out, err := Serialize(table, enums.ExportFormatXLSX)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("PK")), "xlsx is a zip container")
}

func TestSerializeGoogleSheetsMatchesCSV(t *testing.T) {
	table := Table{Header: []string{"Name"}, Rows: [][]string{{"Ana"}}}
	csvOut, err := Serialize(table, enums.ExportFormatCSV)
	require.NoError(t, err)
	sheetsOut, err := Serialize(table, enums.ExportFormatGoogleSheets)
	require.NoError(t, err)
	assert.Equal(t, csvOut, sheetsOut)

	_, err = Serialize(table, enums.ExportFormat("pdf"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "cart-export-active_carts-2026-03-10-120000.csv",
		FileName(enums.ExportTypeActiveCarts, enums.ExportFormatCSV, baseNow))
	assert.Equal(t, "cart-export-cart_history-2026-03-10-120000_google_sheets.csv",
		FileName(enums.ExportTypeCartHistory, enums.ExportFormatGoogleSheets, baseNow))
	assert.Equal(t, "cart-export-cart_history-2026-03-10-120000.xls",
		FileName(enums.ExportTypeCartHistory, enums.ExportFormatExcel, baseNow))
}
