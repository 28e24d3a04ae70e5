// Package store is the record-store collaborator: named collections of
// JSON documents with create, filtered query, partial update, and
// change subscription. The engine and services depend only on the Store
// interface so tests can inject the in-memory implementation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an update against a missing document.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable reports a collaborator failure (network, driver,
	// permissions). It is always surfaced to the caller, never swallowed.
	ErrUnavailable = errors.New("record store unavailable")
)

// Unavailable tags an underlying driver failure so callers can classify
// it without depending on the driver's error types.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Predicate is a single field-equals filter. The zero value matches
// every document in the collection.
type Predicate struct {
	Field string
	Value any
}

// Where builds an equality predicate.
func Where(field string, value any) Predicate {
	return Predicate{Field: field, Value: value}
}

// All matches the whole collection.
func All() Predicate { return Predicate{} }

// Document is one stored record; Data is its JSON body.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// SnapshotFunc receives the full matching set on every change; each
// delivery replaces prior state, consumers must not diff.
type SnapshotFunc func(docs []Document)

// Subscription is a live watch handle. Cancel is idempotent and
// guaranteed to stop deliveries and free the server-side watch.
type Subscription interface {
	Cancel()
}

type Store interface {
	// Create persists v as a new document and returns its id.
	Create(ctx context.Context, collection string, v any) (string, error)
	// QueryWhere returns documents matching pred, unspecified order.
	QueryWhere(ctx context.Context, collection string, pred Predicate) ([]Document, error)
	// Update merges fields into an existing document. ErrNotFound if
	// the id does not exist.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Subscribe delivers an initial snapshot and then the full matching
	// set after every change to the collection.
	Subscribe(ctx context.Context, collection string, pred Predicate, fn SnapshotFunc) (Subscription, error)
}

// jsonEqual compares two values through their JSON encoding, which
// matches how predicates behave against stored documents.
func jsonEqual(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ab) == string(bb)
}
