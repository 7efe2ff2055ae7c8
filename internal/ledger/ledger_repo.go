package ledger

import (
	"context"
	"database/sql"
	"errors"

	ledgererrors "hrm-server/internal/ledger/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	LockKey(ctx context.Context, key Key) error
	Append(ctx context.Context, e *Entry) error
	ListByKey(ctx context.Context, key Key) ([]Entry, error)
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]Entry, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	HasReversal(ctx context.Context, id uuid.UUID) (bool, error)
	UpsertSnapshot(ctx context.Context, s Snapshot) error
	FindSnapshot(ctx context.Context, key Key) (*Snapshot, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx binds the repository to an open database/sql transaction so ledger
// writes commit or roll back together with the caller's workflow write.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	if tx == nil {
		return r
	}
	db := r.db.Session(&gorm.Session{Context: context.Background(), NewDB: true})
	db.Statement.ConnPool = tx
	return &repository{db: db}
}

// LockKey takes a transaction-scoped advisory lock so that concurrent postings
// for one balance serialize their check-append-recompute sequence.
func (r *repository) LockKey(ctx context.Context, key Key) error {
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key.String()).Error
}

func (r *repository) Append(ctx context.Context, e *Entry) error {
	err := r.db.WithContext(ctx).Create(e).Error
	if isIdempotencyViolation(err) {
		return ledgererrors.ErrDuplicatePosting
	}
	return err
}

func (r *repository) ListByKey(ctx context.Context, key Key) ([]Entry, error) {
	var entries []Entry
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND leave_type = ? AND year = ?", key.EmployeeID, key.LeaveType, key.Year).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *repository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]Entry, error) {
	var entries []Entry
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	var e Entry
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ledgererrors.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) HasReversal(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Entry{}).
		Where("type = ? AND reverses_id = ?", TypeReverse, id).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) UpsertSnapshot(ctx context.Context, s Snapshot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "employee_id"}, {Name: "leave_type"}, {Name: "year"}},
			UpdateAll: true,
		}).
		Create(&s).Error
}

func (r *repository) FindSnapshot(ctx context.Context, key Key) (*Snapshot, error) {
	var s Snapshot
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND leave_type = ? AND year = ?", key.EmployeeID, key.LeaveType, key.Year).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func isIdempotencyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "uq_leave_ledger_idempotency"
	}
	return false
}
