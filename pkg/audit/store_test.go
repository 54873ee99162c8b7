package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *Logger {
	l := NewLogger()
	l.hostname = "sync-01"
	l.pid = 42
	l.now = func() time.Time { return fixedTime }
	return l
}

func TestStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)
	msg := testLogger().Message(ReconcileEvent{
		Model:   "user",
		Trigger: "scheduler",
		Found:   2,
		Created: 2,
		Success: true,
	})

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(
			FacilityUser,      // facility
			int(SeverityInfo), // severity
			fixedTime,         // timestamp
			"sync-01",         // hostname
			DefaultAppName,    // appname
			"42",              // procid
			"reconcile",       // msgid
			sqlmock.AnyArg(),  // sdata (JSON)
			msg.Text,          // message
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.Save(context.Background(), msg); err != nil {
		t.Errorf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveFailedRecordSync(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)
	msg := testLogger().Message(RecordSyncEvent{
		Model:        "group",
		ExternalID:   "g-1",
		Trigger:      "api",
		ErrorMessage: "directory connection failed",
	})

	mock.ExpectExec(`INSERT INTO messages`).
		WithArgs(
			FacilityUser,
			int(SeverityError),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			DefaultAppName,
			sqlmock.AnyArg(),
			"record-sync",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.Save(context.Background(), msg); err != nil {
		t.Errorf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)
	mock.ExpectExec(`INSERT INTO messages`).WillReturnError(errors.New("relation \"messages\" does not exist"))

	msg := testLogger().Message(ConnectEvent{URL: "ldap://dc", BindDN: "CN=svc", Success: true})
	err = store.Save(context.Background(), msg)
	if err == nil {
		t.Fatal("Save() expected error")
	}
	if !strings.Contains(err.Error(), "insert audit message") {
		t.Errorf("Save() error = %v, want wrapped insert error", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreNilDB(t *testing.T) {
	store := &Store{db: nil}

	msg := testLogger().Message(ReconcileEvent{Model: "user", Success: true})
	if err := store.Save(context.Background(), msg); err != nil {
		t.Errorf("Save() with nil db should not error, got: %v", err)
	}
}

func TestStoreClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	store := NewStoreWithDB(db)
	mock.ExpectClose()

	if err := store.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreCloseNilDB(t *testing.T) {
	store := &Store{db: nil}

	if err := store.Close(); err != nil {
		t.Errorf("Close() with nil db should not error, got: %v", err)
	}
}

func TestNewStoreWithoutURL(t *testing.T) {
	t.Setenv("ADSYNC_AUDIT_DATABASE_URL", "")
	store, err := NewStore()
	if err != nil || store != nil {
		t.Errorf("NewStore() = %v, %v; want nil, nil", store, err)
	}
}

func TestMessageString(t *testing.T) {
	msg := Message{
		Facility:  FacilityAuthPriv,
		Severity:  SeverityWarning,
		Timestamp: fixedTime,
		AppName:   DefaultAppName,
		MsgID:     "connect",
		Text:      "bind failed",
	}

	if got := msg.Priority(); got != 84 {
		t.Errorf("Priority() = %d, want 84", got)
	}
	want := "<84>1 2024-03-01T12:00:00.000Z - adsync - connect - bind failed"
	if got := msg.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
