package export

import (
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/cartwatch-backend/internal/analytics"
	"github.com/angelmondragon/cartwatch-backend/internal/sanitize"
	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Table is an export ready for serialization: an optional summary block, one
// header row, then one row per record.
type Table struct {
	Preamble [][]string
	Header   []string
	Rows     [][]string
}

// All returns every row in output order.
func (t Table) All() [][]string {
	out := make([][]string, 0, len(t.Preamble)+1+len(t.Rows))
	out = append(out, t.Preamble...)
	out = append(out, t.Header)
	return append(out, t.Rows...)
}

// TableMeta describes the run a table is built for.
type TableMeta struct {
	Type        enums.ExportType
	Filters     Filters
	SiteName    string
	GeneratedAt time.Time
}

// BuildTable projects records onto columns. Active-cart exports carry the
// analytics summary block; history exports carry a metadata block.
func BuildTable(records []models.CartRecord, snapshot *analytics.Snapshot, columns []string, meta TableMeta) (Table, error) {
	if err := ValidateColumns(columns); err != nil {
		return Table{}, err
	}
	now := meta.GeneratedAt
	if now.IsZero() {
		now = time.Now()
	}

	table := Table{Header: make([]string, len(columns))}
	for i, key := range columns {
		col, _ := LookupColumn(key)
		table.Header[i] = cell(col.Label)
	}

	switch meta.Type {
	case enums.ExportTypeActiveCarts:
		table.Preamble = activeSummary(snapshot, len(records), meta, now)
	default:
		table.Preamble = historySummary(len(records), meta, now)
	}

	table.Rows = make([][]string, 0, len(records))
	for _, record := range records {
		fields := sanitize.ProjectRecordForExport(record, now)
		row := make([]string, len(columns))
		for i, key := range columns {
			row[i] = cell(fields[key])
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

type block struct {
	rows [][]string
}

func (b *block) title(label string) {
	b.rows = append(b.rows, []string{cell(label)})
}

func (b *block) pair(label, value string) {
	b.rows = append(b.rows, []string{cell(label), cell(sanitize.StripMarkup(value))})
}

func activeSummary(s *analytics.Snapshot, records int, meta TableMeta, now time.Time) [][]string {
	b := &block{}
	b.title("ACTIVE CARTS REPORT")
	b.pair("Site", meta.SiteName)
	b.pair("Generated", sanitize.FormatDate(now))

	if s != nil {
		b.title("OVERVIEW")
		b.pair("Period", periodLabel(s))
		b.pair("Total Carts", count(s.TotalCarts))
		b.pair("Active Carts", count(s.ActiveCarts))

		b.title("KEY METRICS")
		b.pair("Converted Carts", count(s.ConvertedCarts))
		b.pair("Abandoned Carts", count(s.AbandonedCarts))
		b.pair("Deleted Carts", count(s.DeletedCarts))
		b.pair("Conversion Rate", rate(s.ConversionRate))
		b.pair("Abandonment Rate", rate(s.AbandonmentRate))

		b.title("AVERAGES")
		b.pair("Average Active Cart Value", money(s.AverageActiveValue))
		b.pair("Average Converted Cart Value", money(s.AverageConvertedValue))

		b.title("REVENUE BREAKDOWN")
		b.pair("Recent Carts (last 24h)", count(s.RecentCarts))
		b.pair("Active Cart Potential", money(s.ActiveCartPotential))
		b.pair("At-Risk Carts (24h to 7d)", count(s.AtRiskCarts))
		b.pair("Abandoned Cart Potential", money(s.AbandonedCartPotential))
		b.pair("Overall Potential", money(s.OverallPotential))
		b.pair("Stale Carts (over 7d)", count(s.StaleCarts))
		b.pair("Stale Cart Value", money(s.StaleCartValue))

		b.title("CUSTOMER TYPES")
		b.pair("Registered Carts", count(s.RegisteredCarts))
		b.pair("Registered Conversions", count(s.RegisteredConverted))
		b.pair("Registered Conversion Rate", rate(s.RegisteredConversionRate))
		b.pair("Guest Carts", count(s.GuestCarts))
		b.pair("Guest Conversions", count(s.GuestConverted))
		b.pair("Guest Conversion Rate", rate(s.GuestConversionRate))
	}

	b.title("SUMMARY")
	b.pair("Records Exported", strconv.Itoa(records))
	b.title("CART RECORDS")
	return b.rows
}

func historySummary(records int, meta TableMeta, now time.Time) [][]string {
	b := &block{}
	b.title("CART HISTORY REPORT")
	b.pair("Site", meta.SiteName)
	b.pair("Generated", sanitize.FormatDate(now))
	b.pair("Period", fmt.Sprintf("Last %d days", meta.Filters.days()))
	b.pair("Filter", string(meta.Filters.status()))
	b.pair("Records Exported", strconv.Itoa(records))
	b.title("CART RECORDS")
	return b.rows
}

func periodLabel(s *analytics.Snapshot) string {
	if s.From != "" {
		return s.From + " to " + s.To
	}
	return fmt.Sprintf("Last %d days", s.WindowDays)
}

func cell(value string) string {
	return sanitize.EscapeForSpreadsheet(value)
}

func count(n int64) string {
	return strconv.FormatInt(n, 10)
}

func rate(pct float64) string {
	return strconv.FormatFloat(pct, 'f', 2, 64) + "%"
}

func money(d decimal.Decimal) string {
	return sanitize.NormalizeMoney(d)
}
