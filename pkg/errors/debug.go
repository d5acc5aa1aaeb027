package errors

import (
	"errors"
	"fmt"
	"net/textproto"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.uber.org/multierr"
)

// ErrorDump is the log-only view of an error: its chain, the Postgres
// diagnostics when the store failed, and the FTP reply code when an upload
// was refused.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`
	// Causes lists each error combined with multierr, such as a failed
	// delivery plus a failed temp-file cleanup.
	Causes []string `json:"causes,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`

	FTPCode int `json:"ftp_code,omitempty"`

	// Transient marks connection-class database failures.
	Transient bool `json:"transient,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if causes := multierr.Errors(innermostCombined(err)); len(causes) > 1 {
		for _, c := range causes {
			d.Causes = append(d.Causes, c.Error())
		}
	}

	var ftpErr *textproto.Error
	if errors.As(err, &ftpErr) {
		d.FTPCode = ftpErr.Code
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
		d.Transient = transientPGCode(d.PGCode)
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
		d.Transient = transientPGCode(d.PGCode)
		return d
	}

	return d
}

// Fields flattens the dump into structured log fields, omitting empty ones.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	add := func(key string, value any, present bool) {
		if present {
			fields[key] = value
		}
	}
	add("error_code", d.Code, d.Code != "")
	add("error_chain", d.Chain, len(d.Chain) > 0)
	add("error_causes", d.Causes, len(d.Causes) > 0)
	add("pg_code", d.PGCode, d.PGCode != "")
	add("pg_detail", d.PGDetail, d.PGDetail != "")
	add("pg_message", d.PGMessage, d.PGMessage != "")
	add("pg_table", d.PGTable, d.PGTable != "")
	add("pg_column", d.PGColumn, d.PGColumn != "")
	add("pg_constraint", d.PGConstraint, d.PGConstraint != "")
	add("ftp_code", d.FTPCode, d.FTPCode != 0)
	add("transient", true, d.Transient)
	return fields
}

// innermostCombined walks the chain to the first error multierr can split.
func innermostCombined(err error) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if len(multierr.Errors(e)) > 1 {
			return e
		}
	}
	return err
}

// transientPGCode reports connection exceptions (class 08) and admin
// shutdowns (57P01..57P03).
func transientPGCode(code string) bool {
	return strings.HasPrefix(code, "08") || code == "57P01" || code == "57P02" || code == "57P03"
}
