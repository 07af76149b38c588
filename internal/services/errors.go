package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrConflict           = errors.New("value already in use")
	ErrForeignKeyMissing  = errors.New("referenced record does not exist")
	ErrDependencyExists   = errors.New("record is still referenced")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("authentication required")
)

// ConflictError names the unique field whose value is already taken.
type ConflictError struct {
	Entity string
	Field  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Entity, e.Field, ErrConflict)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ReferenceError names the foreign key field pointing at a missing row.
type ReferenceError struct {
	Entity string
	Field  string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Entity, e.Field, ErrForeignKeyMissing)
}

func (e *ReferenceError) Unwrap() error { return ErrForeignKeyMissing }

// DependencyError names the entity still holding a reference to the row.
type DependencyError struct {
	Entity    string
	Dependent string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s is referenced by %s: %v", e.Entity, e.Dependent, ErrDependencyExists)
}

func (e *DependencyError) Unwrap() error { return ErrDependencyExists }
