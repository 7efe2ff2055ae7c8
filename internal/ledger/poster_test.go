package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"hrm-server/internal/ledger"
	ledgererrors "hrm-server/internal/ledger/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	withTxFn            func(tx *sql.Tx) ledger.Repository
	lockKeyFn           func(ctx context.Context, key ledger.Key) error
	appendFn            func(ctx context.Context, e *ledger.Entry) error
	listByKeyFn         func(ctx context.Context, key ledger.Key) ([]ledger.Entry, error)
	listByApplicationFn func(ctx context.Context, applicationID uuid.UUID) ([]ledger.Entry, error)
	findByIDFn          func(ctx context.Context, id uuid.UUID) (*ledger.Entry, error)
	hasReversalFn       func(ctx context.Context, id uuid.UUID) (bool, error)
	upsertSnapshotFn    func(ctx context.Context, s ledger.Snapshot) error
	findSnapshotFn      func(ctx context.Context, key ledger.Key) (*ledger.Snapshot, error)
}

func (f *fakeRepository) WithTx(tx *sql.Tx) ledger.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeRepository) LockKey(ctx context.Context, key ledger.Key) error {
	if f.lockKeyFn != nil {
		return f.lockKeyFn(ctx, key)
	}
	return nil
}

func (f *fakeRepository) Append(ctx context.Context, e *ledger.Entry) error {
	if f.appendFn != nil {
		return f.appendFn(ctx, e)
	}
	return nil
}

func (f *fakeRepository) ListByKey(ctx context.Context, key ledger.Key) ([]ledger.Entry, error) {
	if f.listByKeyFn != nil {
		return f.listByKeyFn(ctx, key)
	}
	return nil, nil
}

func (f *fakeRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]ledger.Entry, error) {
	if f.listByApplicationFn != nil {
		return f.listByApplicationFn(ctx, applicationID)
	}
	return nil, nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, ledgererrors.ErrEntryNotFound
}

func (f *fakeRepository) HasReversal(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.hasReversalFn != nil {
		return f.hasReversalFn(ctx, id)
	}
	return false, nil
}

func (f *fakeRepository) UpsertSnapshot(ctx context.Context, s ledger.Snapshot) error {
	if f.upsertSnapshotFn != nil {
		return f.upsertSnapshotFn(ctx, s)
	}
	return nil
}

func (f *fakeRepository) FindSnapshot(ctx context.Context, key ledger.Key) (*ledger.Snapshot, error) {
	if f.findSnapshotFn != nil {
		return f.findSnapshotFn(ctx, key)
	}
	return nil, nil
}

// memRepository keeps appended entries so ListByKey sees them, which is what
// the poster relies on when recomputing.
func memRepository() (*fakeRepository, *[]ledger.Entry, *[]ledger.Snapshot, *[]string) {
	var (
		stored    []ledger.Entry
		snapshots []ledger.Snapshot
		locks     []string
	)
	repo := &fakeRepository{
		lockKeyFn: func(ctx context.Context, key ledger.Key) error {
			locks = append(locks, key.String())
			return nil
		},
		appendFn: func(ctx context.Context, e *ledger.Entry) error {
			for _, s := range stored {
				if s.IdempotencyKey == e.IdempotencyKey {
					return ledgererrors.ErrDuplicatePosting
				}
			}
			stored = append(stored, *e)
			return nil
		},
		listByKeyFn: func(ctx context.Context, key ledger.Key) ([]ledger.Entry, error) {
			var out []ledger.Entry
			for _, e := range stored {
				if e.Key() == key {
					out = append(out, e)
				}
			}
			return out, nil
		},
		upsertSnapshotFn: func(ctx context.Context, s ledger.Snapshot) error {
			snapshots = append(snapshots, s)
			return nil
		},
	}
	return repo, &stored, &snapshots, &locks
}

func TestPoster_Post(t *testing.T) {
	ctx := context.Background()
	employeeID := uuid.New()
	key := ledger.Key{EmployeeID: employeeID, LeaveType: "ANNUAL", Year: 2026}

	t.Run("success appends and recomputes snapshot", func(t *testing.T) {
		repo, stored, snapshots, locks := memRepository()
		p := ledger.NewPoster(repo)

		snaps, err := p.Post(ctx,
			ledger.Entry{EmployeeID: employeeID, LeaveType: "ANNUAL", Year: 2026, Type: ledger.TypeOpening, Days: d(12)},
			ledger.Entry{EmployeeID: employeeID, LeaveType: "ANNUAL", Year: 2026, Type: ledger.TypePendingAdd, Days: d(2)},
		)

		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, key, snaps[0].Key())
		assert.True(t, snaps[0].Available.Equal(d(10)))
		assert.True(t, snaps[0].Pending.Equal(d(2)))
		assert.Equal(t, 2, snaps[0].EntryCount)
		assert.Len(t, *stored, 2)
		assert.Len(t, *snapshots, 1)
		assert.Equal(t, []string{key.String()}, *locks)
		for _, e := range *stored {
			assert.NotEqual(t, uuid.Nil, e.ID)
			assert.NotEmpty(t, e.IdempotencyKey)
			assert.False(t, e.CreatedAt.IsZero())
		}
	})

	t.Run("locks distinct keys in a stable order", func(t *testing.T) {
		repo, _, _, locks := memRepository()
		p := ledger.NewPoster(repo)
		next := ledger.Key{EmployeeID: employeeID, LeaveType: "ANNUAL", Year: 2027}

		_, err := p.Post(ctx,
			ledger.Entry{EmployeeID: employeeID, LeaveType: "ANNUAL", Year: 2027, Type: ledger.TypeCarryForwardIn, Days: d(3)},
			ledger.Entry{EmployeeID: employeeID, LeaveType: "ANNUAL", Year: 2026, Type: ledger.TypeCarryForwardOut, Days: d(-3)},
		)

		require.NoError(t, err)
		assert.Equal(t, []string{key.String(), next.String()}, *locks)
	})

	t.Run("negative duplicate idempotency key", func(t *testing.T) {
		repo, _, snapshots, _ := memRepository()
		p := ledger.NewPoster(repo)
		e := ledger.Entry{EmployeeID: employeeID, LeaveType: "ANNUAL", Year: 2026, Type: ledger.TypeAccrual, Days: d(1), IdempotencyKey: "accrual:2026-01"}

		_, err := p.Post(ctx, e)
		require.NoError(t, err)

		_, err = p.Post(ctx, e)
		assert.ErrorIs(t, err, ledgererrors.ErrDuplicatePosting)
		assert.Len(t, *snapshots, 1)
	})

	t.Run("negative lock failure stops before append", func(t *testing.T) {
		repo, stored, _, _ := memRepository()
		repo.lockKeyFn = func(ctx context.Context, key ledger.Key) error {
			return errors.New("lock timeout")
		}
		p := ledger.NewPoster(repo)

		_, err := p.Post(ctx, ledger.Entry{EmployeeID: employeeID, LeaveType: "ANNUAL", Year: 2026, Type: ledger.TypeAccrual, Days: d(1)})

		assert.Error(t, err)
		assert.Empty(t, *stored)
	})

	t.Run("no entries is a no-op", func(t *testing.T) {
		repo, _, _, locks := memRepository()
		snaps, err := ledger.NewPoster(repo).Post(ctx)
		assert.NoError(t, err)
		assert.Nil(t, snaps)
		assert.Empty(t, *locks)
	})
}

func TestPoster_Recompute(t *testing.T) {
	ctx := context.Background()
	key := ledger.Key{EmployeeID: uuid.New(), LeaveType: "SICK", Year: 2026}

	repo, _, _, _ := memRepository()
	p := ledger.NewPoster(repo)
	_, err := p.Post(ctx,
		ledger.Entry{EmployeeID: key.EmployeeID, LeaveType: key.LeaveType, Year: key.Year, Type: ledger.TypeOpening, Days: d(6)},
		ledger.Entry{EmployeeID: key.EmployeeID, LeaveType: key.LeaveType, Year: key.Year, Type: ledger.TypeConsume, Days: d(1)},
	)
	require.NoError(t, err)

	first, err := p.Recompute(ctx, key)
	require.NoError(t, err)
	second, err := p.Recompute(ctx, key)
	require.NoError(t, err)

	assert.True(t, first.Available.Equal(second.Available))
	assert.True(t, first.Available.Equal(d(5)))

	bal, err := p.Balance(ctx, key)
	require.NoError(t, err)
	assert.True(t, bal.Available().Equal(d(5)))
}
