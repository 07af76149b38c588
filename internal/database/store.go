// Package database persists back-office records. Two backends implement Store:
// a JSON file database for single-node deployments and tests, and a
// PostgreSQL database driven through gorm.
package database

import (
	"context"
	"errors"
	"fmt"

	"aromasabor/internal/schema"
)

// ErrNotFound is returned when no row has the requested primary key.
var ErrNotFound = errors.New("record not found")

// UniqueViolation reports a write rejected by a unique index.
type UniqueViolation struct {
	Table  string
	Column string
}

func (e *UniqueViolation) Error() string {
	return fmt.Sprintf("duplicate value for %s.%s", e.Table, e.Column)
}

// ForeignKeyViolation reports a write rejected by a foreign key: either the
// referenced row is missing or the deleted row is still referenced by Table.
type ForeignKeyViolation struct {
	Table  string
	Column string
}

func (e *ForeignKeyViolation) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("foreign key violation on %s", e.Table)
	}
	return fmt.Sprintf("foreign key violation on %s.%s", e.Table, e.Column)
}

// IDColumn names the primary key column of every table.
const IDColumn = "id"

// Match filters rows by column equality, or inequality when Not is set.
type Match struct {
	Column string
	Value  any
	Not    bool
}

// Eq matches rows whose column equals v.
func Eq(column string, v any) Match { return Match{Column: column, Value: v} }

// Ne matches rows whose column differs from v.
func Ne(column string, v any) Match { return Match{Column: column, Value: v, Not: true} }

// Reader is the read side shared by a Store and an open transaction.
type Reader interface {
	// Get loads the row with primary key id into m.
	Get(ctx context.Context, m schema.Model, id int64) error
	// Count returns the number of rows of e matching every filter.
	Count(ctx context.Context, e *schema.Entity, match ...Match) (int64, error)
	// List returns the rows of e matching every filter, ordered by id.
	List(ctx context.Context, e *schema.Entity, match ...Match) ([]schema.Model, error)
}

// Tx is an open transaction. Writes become visible to other callers only
// when the transaction function returns nil.
type Tx interface {
	Reader
	// Insert assigns a fresh primary key to m and stores it.
	Insert(ctx context.Context, m schema.Model) error
	// Update overwrites the stored row with m's primary key.
	Update(ctx context.Context, m schema.Model) error
	// Delete removes the row of e with primary key id.
	Delete(ctx context.Context, e *schema.Entity, id int64) error
}

// Store is a transactional record store.
type Store interface {
	Reader
	// Transaction runs fn atomically. Any error returned by fn rolls back
	// every write fn made.
	Transaction(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
