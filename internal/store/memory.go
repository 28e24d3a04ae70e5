package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"skyview/api/internal/ids"
)

// Memory is a mutex-guarded in-process Store. Tests inject it in place
// of the Postgres store; snapshots are delivered synchronously from the
// mutating call.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]json.RawMessage
	subscribers map[string]map[int]*memorySub
	nextSub     int
}

type memorySub struct {
	store      *Memory
	collection string
	pred       Predicate
	fn         SnapshotFunc
	id         int
	once       sync.Once
}

func (s *memorySub) Cancel() {
	s.once.Do(func() {
		s.store.mu.Lock()
		defer s.store.mu.Unlock()
		delete(s.store.subscribers[s.collection], s.id)
	})
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]json.RawMessage),
		subscribers: make(map[string]map[int]*memorySub),
	}
}

func (m *Memory) Create(ctx context.Context, collection string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	m.mu.Lock()
	coll := m.collections[collection]
	if coll == nil {
		coll = make(map[string]json.RawMessage)
		m.collections[collection] = coll
	}
	id := ids.New()
	coll[id] = data
	deliveries := m.pendingDeliveries(collection)
	m.mu.Unlock()

	for _, d := range deliveries {
		d()
	}
	return id, nil
}

func (m *Memory) QueryWhere(ctx context.Context, collection string, pred Predicate) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(collection, pred), nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	coll := m.collections[collection]
	data, ok := coll[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("decode document %s: %w", id, err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("encode document %s: %w", id, err)
	}
	coll[id] = merged
	deliveries := m.pendingDeliveries(collection)
	m.mu.Unlock()

	for _, d := range deliveries {
		d()
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, collection string, pred Predicate, fn SnapshotFunc) (Subscription, error) {
	m.mu.Lock()
	subs := m.subscribers[collection]
	if subs == nil {
		subs = make(map[int]*memorySub)
		m.subscribers[collection] = subs
	}
	m.nextSub++
	sub := &memorySub{
		store:      m,
		collection: collection,
		pred:       pred,
		fn:         fn,
		id:         m.nextSub,
	}
	subs[sub.id] = sub
	initial := m.snapshotLocked(collection, pred)
	m.mu.Unlock()

	fn(initial)
	return sub, nil
}

// pendingDeliveries snapshots every subscriber of the collection while
// the lock is held; callbacks run after the lock is released so a
// consumer may call back into the store.
func (m *Memory) pendingDeliveries(collection string) []func() {
	var out []func()
	for _, sub := range m.subscribers[collection] {
		docs := m.snapshotLocked(collection, sub.pred)
		fn := sub.fn
		out = append(out, func() { fn(docs) })
	}
	return out
}

func (m *Memory) snapshotLocked(collection string, pred Predicate) []Document {
	docs := make([]Document, 0)
	for id, data := range m.collections[collection] {
		if !matches(data, pred) {
			continue
		}
		body := make(json.RawMessage, len(data))
		copy(body, data)
		docs = append(docs, Document{ID: id, Data: body})
	}
	return docs
}

func matches(data json.RawMessage, pred Predicate) bool {
	if pred.Field == "" {
		return true
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return false
	}
	got, ok := doc[pred.Field]
	if !ok {
		return false
	}
	return jsonEqual(got, pred.Value)
}
