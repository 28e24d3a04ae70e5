package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"skyview/api/internal/ids"
)

// Postgres keeps every collection in one records table with a JSONB
// body. Change signals fan out through Redis pub/sub, one channel per
// collection; subscribers re-query and deliver the full snapshot, so a
// lost or coalesced signal only delays an update, it cannot corrupt
// consumer state.
type Postgres struct {
	pool   *pgxpool.Pool
	pubsub *redis.Client
	log    zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, pubsub *redis.Client, log zerolog.Logger) *Postgres {
	return &Postgres{pool: pool, pubsub: pubsub, log: log}
}

func channelFor(collection string) string {
	return "records:" + collection
}

func (p *Postgres) Create(ctx context.Context, collection string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	const query = `
		INSERT INTO records (id, collection, doc, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`
	id := ids.New()
	if _, err := p.pool.Exec(ctx, query, id, collection, data); err != nil {
		return "", Unavailable(err)
	}

	p.notify(ctx, collection)
	return id, nil
}

func (p *Postgres) QueryWhere(ctx context.Context, collection string, pred Predicate) ([]Document, error) {
	query := `SELECT id, doc FROM records WHERE collection = $1 ORDER BY id`
	args := []any{collection}

	if pred.Field != "" {
		filter, err := json.Marshal(map[string]any{pred.Field: pred.Value})
		if err != nil {
			return nil, fmt.Errorf("encode predicate: %w", err)
		}
		query = `SELECT id, doc FROM records WHERE collection = $1 AND doc @> $2 ORDER BY id`
		args = append(args, filter)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, Unavailable(err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Data); err != nil {
			return nil, Unavailable(err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, Unavailable(err)
	}
	return docs, nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}

	const query = `
		UPDATE records SET doc = doc || $3, updated_at = NOW()
		WHERE collection = $1 AND id = $2
	`
	cmd, err := p.pool.Exec(ctx, query, collection, id, patch)
	if err != nil {
		return Unavailable(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	p.notify(ctx, collection)
	return nil
}

func (p *Postgres) Subscribe(ctx context.Context, collection string, pred Predicate, fn SnapshotFunc) (Subscription, error) {
	initial, err := p.QueryWhere(ctx, collection, pred)
	if err != nil {
		return nil, err
	}
	fn(initial)

	pubsub := p.pubsub.Subscribe(ctx, channelFor(collection))
	watchCtx, cancel := context.WithCancel(context.Background())
	sub := &postgresSub{pubsub: pubsub, cancel: cancel}

	go func() {
		for {
			select {
			case <-watchCtx.Done():
				return
			case _, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				docs, err := p.QueryWhere(watchCtx, collection, pred)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						p.log.Warn().Err(err).Str("collection", collection).Msg("watch requery failed")
					}
					continue
				}
				fn(docs)
			}
		}
	}()

	return sub, nil
}

type postgresSub struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
	once   sync.Once
}

func (s *postgresSub) Cancel() {
	s.once.Do(func() {
		s.cancel()
		_ = s.pubsub.Close()
	})
}

// notify is best effort: a missed signal is recovered by the next one,
// and the initial snapshot already covered the current state.
func (p *Postgres) notify(ctx context.Context, collection string) {
	if err := p.pubsub.Publish(ctx, channelFor(collection), "changed").Err(); err != nil {
		p.log.Warn().Err(err).Str("collection", collection).Msg("change notify failed")
	}
}
