package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andrebq/backoffice/store"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

// AcquireStore opens a migrated sqlite store inside a temporary directory.
// The returned func closes the store and removes the directory.
func AcquireStore(ctx context.Context, t TestLog, name string) (*store.Store, func()) {
	st, _, cleanup := AcquireDB(ctx, t, name)
	return st, cleanup
}

// AcquireDB is like AcquireStore but also returns the connection pool
// behind the store, so tests can put rows in states the store API never
// produces.
func AcquireDB(ctx context.Context, t TestLog, name string) (*store.Store, *sql.DB, func()) {
	dir, err := os.MkdirTemp("", "backoffice-tests")
	if err != nil {
		t.Fatal(err)
	}
	dbfile := filepath.Join(dir, name, "backoffice.db")
	err = os.MkdirAll(filepath.Dir(dbfile), 0755)
	if err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%v?_journal=wal&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate&mode=rwc", dbfile))
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(4)
	st := store.New(db, store.SQLite, 10*time.Second)
	err = st.Migrate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return st, db, func() {
		err := st.Close()
		if err != nil {
			t.Log("unable to close store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}

// RegisterUser stores a user with an already hashed password and fails the
// test on error.
func RegisterUser(ctx context.Context, t TestLog, st *store.Store, username, passwordHash, role string) int64 {
	id, err := st.RegisterUserAtomic(ctx, username, passwordHash, role)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

// UnlinkRoles removes every role of the user, leaving an account that
// exists but cannot log in.
func UnlinkRoles(ctx context.Context, t TestLog, db *sql.DB, userID int64) {
	_, err := db.ExecContext(ctx, `delete from user_roles where user_id = ?`, userID)
	if err != nil {
		t.Fatal(err)
	}
}
