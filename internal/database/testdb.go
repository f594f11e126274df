package database

import (
	"fmt"
	"sync/atomic"
)

var testDBCounter int64

// NewTestDB opens a fresh in-memory sqlite database for tests. Each call
// gets its own named memory database so tests stay isolated while the
// connection pool still shares one store.
func NewTestDB() (*Database, error) {
	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", n)

	db, err := NewDatabase(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		return nil, err
	}
	return db, nil
}
