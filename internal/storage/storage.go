// Package storage holds the catalog of channel posts: one record per source
// message, written once by ingestion and read by search and delivery.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable marks failures of the backing store itself.
var ErrUnavailable = errors.New("store unavailable")

// Record is a cataloged channel post.
type Record struct {
	MessageID int
	FileName  string
	Caption   string
}

// Store is the metadata catalog. Results are returned in insertion order.
type Store interface {
	// InsertIfAbsent adds a record unless one with the same message id
	// exists. It reports whether a new record was created.
	InsertIfAbsent(ctx context.Context, rec Record) (bool, error)
	// FindBySubstring returns records whose file name or caption contains
	// token, ignoring case.
	FindBySubstring(ctx context.Context, token string) ([]Record, error)
	FindAll(ctx context.Context) ([]Record, error)
	// FindCaption returns the caption of messageID and whether the record
	// exists.
	FindCaption(ctx context.Context, messageID int) (string, bool, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// StoreError wraps a backend failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrUnavailable, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrUnavailable }

func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
