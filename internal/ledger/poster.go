package ledger

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"hrm-server/internal/shared/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Poster appends ledger entries and recomputes the snapshot of every key it
// touched. Bind it to the caller's transaction with WithTx so the entries and
// the snapshots commit together with whatever triggered them.
type Poster interface {
	WithTx(tx *sql.Tx) Poster
	Post(ctx context.Context, entries ...Entry) ([]Snapshot, error)
	Balance(ctx context.Context, key Key) (Balance, error)
	Recompute(ctx context.Context, key Key) (Snapshot, error)
}

type poster struct {
	repo   Repository
	now    func() time.Time
	logger *zap.Logger
}

func NewPoster(repo Repository, logger ...*zap.Logger) Poster {
	l := zap.L().Named("ledger.poster")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ledger.poster")
	}
	return &poster{repo: repo, now: func() time.Time { return time.Now().UTC() }, logger: l}
}

func (p *poster) WithTx(tx *sql.Tx) Poster {
	return &poster{repo: p.repo.WithTx(tx), now: p.now, logger: p.logger}
}

func (p *poster) Post(ctx context.Context, entries ...Entry) ([]Snapshot, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	keys := distinctKeys(entries)
	for _, k := range keys {
		if err := p.repo.LockKey(ctx, k); err != nil {
			return nil, err
		}
	}

	now := p.now()
	for i := range entries {
		e := entries[i]
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.IdempotencyKey == "" {
			e.IdempotencyKey = e.ID.String()
		}
		if err := p.repo.Append(ctx, &e); err != nil {
			p.logger.Error("append ledger entry failed",
				zap.String("key", e.Key().String()),
				zap.String("type", string(e.Type)),
				zap.String("idempotency_key", e.IdempotencyKey),
				zap.Error(err),
			)
			return nil, err
		}
		entries[i] = e
	}

	snapshots := make([]Snapshot, 0, len(keys))
	for _, k := range keys {
		s, err := p.recompute(ctx, k)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}

func (p *poster) Balance(ctx context.Context, key Key) (Balance, error) {
	if err := p.repo.LockKey(ctx, key); err != nil {
		return Balance{}, err
	}
	entries, err := p.repo.ListByKey(ctx, key)
	if err != nil {
		return Balance{}, err
	}
	return Fold(entries), nil
}

func (p *poster) Recompute(ctx context.Context, key Key) (Snapshot, error) {
	if err := p.repo.LockKey(ctx, key); err != nil {
		return Snapshot{}, err
	}
	return p.recompute(ctx, key)
}

func (p *poster) recompute(ctx context.Context, key Key) (Snapshot, error) {
	entries, err := p.repo.ListByKey(ctx, key)
	if err != nil {
		return Snapshot{}, err
	}
	s := Fold(entries).Snapshot(key, p.now())
	if err := p.repo.UpsertSnapshot(ctx, s); err != nil {
		p.logger.Error("upsert balance snapshot failed", zap.String("key", key.String()), zap.Error(err))
		return Snapshot{}, err
	}
	return s, nil
}

// RecordPosted counts entries once the transaction that appended them has
// committed.
func RecordPosted(entries ...Entry) {
	for _, e := range entries {
		metrics.RecordLedgerPosting(string(e.Type))
	}
}

// distinctKeys returns the keys in a stable order so that two transactions
// locking the same pair of keys always lock them in the same sequence.
func distinctKeys(entries []Entry) []Key {
	seen := make(map[string]Key, len(entries))
	for _, e := range entries {
		k := e.Key()
		seen[k.String()] = k
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	keys := make([]Key, 0, len(names))
	for _, name := range names {
		keys = append(keys, seen[name])
	}
	return keys
}
