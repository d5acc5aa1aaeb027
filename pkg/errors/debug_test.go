package errors

import (
	stdErrors "errors"
	"fmt"
	"net/textproto"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/multierr"
)

func TestDumpPostgresConnectionFailureIsTransient(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "08006", Message: "connection failure", TableName: "cart_records"}
	err := Wrap(CodeStorage, fmt.Errorf("upsert cart: %w", pgErr), "save cart")

	d := Dump(err)
	if d.Code != CodeStorage {
		t.Fatalf("expected storage code, got %q", d.Code)
	}
	if d.PGCode != "08006" || d.PGTable != "cart_records" || !d.Transient {
		t.Fatalf("unexpected pg dump: %+v", d)
	}
	if len(d.Chain) < 3 {
		t.Fatalf("expected wrapped chain, got %v", d.Chain)
	}
	fields := d.Fields()
	if fields["transient"] != true || fields["pg_code"] != "08006" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestDumpConstraintViolationIsNotTransient(t *testing.T) {
	d := Dump(&pgconn.PgError{Code: "23514", ConstraintName: "cart_records_status_check"})
	if d.Transient || d.PGConstraint != "cart_records_status_check" {
		t.Fatalf("unexpected dump: %+v", d)
	}
}

func TestDumpDeliveryFailureWithCleanupError(t *testing.T) {
	upload := &textproto.Error{Code: 550, Msg: "permission denied"}
	combined := multierr.Append(fmt.Errorf("stor: %w", upload), stdErrors.New("remove temp file"))
	err := Wrap(CodeDelivery, combined, "ftp upload failed")

	d := Dump(err)
	if d.FTPCode != 550 {
		t.Fatalf("expected ftp code 550, got %d", d.FTPCode)
	}
	if len(d.Causes) != 2 {
		t.Fatalf("expected two causes, got %v", d.Causes)
	}
	fields := d.Fields()
	if fields["ftp_code"] != 550 {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatal("empty pg fields should be omitted")
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || d.Fields()["error"] != "" {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}
