package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	// postgres driver for sql.Open
	_ "github.com/lib/pq"
)

const insertMessage = `
	INSERT INTO messages (facility, severity, timestamp, hostname, appname, procid, msgid, sdata, message)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// Store persists audit messages to the messages table.
type Store struct {
	db *sql.DB
}

// NewStore opens the database named by ADSYNC_AUDIT_DATABASE_URL.
// It returns nil, nil when the variable is unset.
func NewStore() (*Store, error) {
	dbURL := os.Getenv("ADSYNC_AUDIT_DATABASE_URL")
	if dbURL == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB creates a store on an open connection.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save inserts msg. Structured data is stored as JSON.
func (s *Store) Save(ctx context.Context, msg Message) error {
	if s.db == nil {
		return nil
	}

	sdata, err := json.Marshal(msg.SData)
	if err != nil {
		return fmt.Errorf("encode structured data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertMessage,
		msg.Facility,
		int(msg.Severity),
		msg.Timestamp,
		msg.Hostname,
		msg.AppName,
		msg.ProcID,
		msg.MsgID,
		sdata,
		msg.Text,
	)
	if err != nil {
		return fmt.Errorf("insert audit message %s: %w", msg.MsgID, err)
	}
	return nil
}
