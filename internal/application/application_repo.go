package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	applicationerrors "hrm-server/internal/application/errors"
	"hrm-server/internal/tenant"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListQuery is the parsed, validated form of ListFilter.
type ListQuery struct {
	OrgID         string
	Type          string
	Status        string
	Priority      string
	From          *time.Time
	To            *time.Time
	ApplicantID   string
	ApproverID    string
	DepartmentID  string
	DesignationID string
	Search        string
	Offset        int
	Limit         int
}

// StageUpdate is a conditional write of the routing cursor. It only applies
// when the row still has ExpectedVersion, the cursor still points at
// ExpectedIndex and that stage is still pending for ApproverID. An empty
// ApproverID drops the approver predicate, which is how applicant replies
// write.
type StageUpdate struct {
	ID                uuid.UUID
	ExpectedVersion   int
	ExpectedIndex     int
	ApproverID        string
	Approvers         Stages
	NextIndex         int
	Status            Status
	FinalDecisionDate *time.Time
}

type CancelUpdate struct {
	ID              uuid.UUID
	ExpectedVersion int
	CancelledBy     uuid.UUID
	Reason          string
}

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, app *Application) error
	FindByID(ctx context.Context, orgID string, id uuid.UUID) (*Application, error)
	List(ctx context.Context, q ListQuery) ([]Application, int64, error)
	FindActiveByApplicant(ctx context.Context, orgID string, applicantID uuid.UUID) ([]Application, error)
	FindPendingForApprover(ctx context.Context, orgID string, approverID uuid.UUID) ([]Application, error)
	UpdateStage(ctx context.Context, u StageUpdate) (bool, error)
	Cancel(ctx context.Context, u CancelUpdate) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, applicationID uuid.UUID) ([]Event, error)
}

type repository struct {
	db    *gorm.DB
	sqlDB *sql.DB
	tx    *sql.Tx
}

func NewRepository(db *gorm.DB, sqlDB *sql.DB) Repository {
	return &repository{db: db, sqlDB: sqlDB}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	if tx == nil {
		return r
	}
	db := r.db.Session(&gorm.Session{Context: context.Background(), NewDB: true})
	db.Statement.ConnPool = tx
	return &repository{db: db, sqlDB: r.sqlDB, tx: tx}
}

func (r *repository) Create(ctx context.Context, app *Application) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *repository) FindByID(ctx context.Context, orgID string, id uuid.UUID) (*Application, error) {
	var app Application
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(orgID)).
		First(&app, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, applicationerrors.ErrApplicationNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (r *repository) List(ctx context.Context, q ListQuery) ([]Application, int64, error) {
	db := r.db.WithContext(ctx).Model(&Application{}).Scopes(tenant.Scope(q.OrgID))

	if q.Type != "" {
		db = db.Where("application_type = ?", q.Type)
	}
	if q.Status != "" {
		db = db.Where("current_status = ?", q.Status)
	}
	if q.Priority != "" {
		db = db.Where("priority = ?", q.Priority)
	}
	if q.From != nil {
		db = db.Where("to_date >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("from_date <= ?", *q.To)
	}
	if q.ApplicantID != "" {
		db = db.Where("applicant_id = ?", q.ApplicantID)
	}
	if q.ApproverID != "" {
		db = db.Where("approvers @> ?::jsonb", containment(map[string]string{"approver_id": q.ApproverID}))
	}
	if q.DepartmentID != "" {
		db = db.Where("department_id = ?", q.DepartmentID)
	}
	if q.DesignationID != "" {
		db = db.Where("designation_id = ?", q.DesignationID)
	}
	if q.Search != "" {
		like := "%" + q.Search + "%"
		db = db.Where("(title ILIKE ? OR body ILIKE ? OR reason ILIKE ?)", like, like, like)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var apps []Application
	err := db.Order("created_at DESC").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&apps).Error
	return apps, total, err
}

func (r *repository) FindActiveByApplicant(ctx context.Context, orgID string, applicantID uuid.UUID) ([]Application, error) {
	var apps []Application
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(orgID)).
		Where("applicant_id = ?", applicantID).
		Where("is_cancelled = ?", false).
		Order("created_at DESC").
		Find(&apps).Error
	return apps, err
}

// FindPendingForApprover uses jsonb containment to find candidate rows and
// then keeps only those whose current stage belongs to the approver.
func (r *repository) FindPendingForApprover(ctx context.Context, orgID string, approverID uuid.UUID) ([]Application, error) {
	var apps []Application
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(orgID)).
		Where("current_status IN ?", []Status{StatusPending, StatusInReview}).
		Where("is_cancelled = ?", false).
		Where("approvers @> ?::jsonb", containment(map[string]string{
			"approver_id": approverID.String(),
			"status":      string(StagePending),
		})).
		Where("approvers -> current_approver_index ->> 'approver_id' = ?", approverID.String()).
		Order("(approvers -> current_approver_index ->> 'due_date') ASC NULLS LAST").
		Order("created_at DESC").
		Find(&apps).Error
	return apps, err
}

const updateStageQuery = `
UPDATE applications
SET
	approvers = $1::jsonb,
	current_approver_index = $2,
	current_status = $3,
	final_decision_date = $4,
	version = version + 1,
	updated_at = NOW()
WHERE id = $5
	AND version = $6
	AND current_approver_index = $7
	AND is_cancelled = false
	AND current_status NOT IN ('approved', 'rejected', 'cancelled')
	AND deleted_at IS NULL
	AND approvers -> $7::int ->> 'status' = 'pending'`

const approverPredicate = `
	AND approvers -> $7::int ->> 'approver_id' = $8`

// UpdateStage reports false when the predicate no longer matched, meaning
// another writer won the race.
func (r *repository) UpdateStage(ctx context.Context, u StageUpdate) (bool, error) {
	stages, err := json.Marshal(u.Approvers)
	if err != nil {
		return false, fmt.Errorf("marshal stages: %w", err)
	}

	query := updateStageQuery
	args := []any{
		string(stages), u.NextIndex, string(u.Status), u.FinalDecisionDate,
		u.ID, u.ExpectedVersion, u.ExpectedIndex,
	}
	if u.ApproverID != "" {
		query += approverPredicate
		args = append(args, u.ApproverID)
	}

	res, err := r.execer().ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

const cancelQuery = `
UPDATE applications
SET
	current_status = 'cancelled',
	is_cancelled = true,
	cancelled_by = $1,
	cancel_reason = $2,
	version = version + 1,
	updated_at = NOW()
WHERE id = $3
	AND version = $4
	AND is_cancelled = false
	AND current_status NOT IN ('approved', 'rejected', 'cancelled')
	AND deleted_at IS NULL`

func (r *repository) Cancel(ctx context.Context, u CancelUpdate) (bool, error) {
	res, err := r.execer().ExecContext(ctx, cancelQuery, u.CancelledBy, u.Reason, u.ID, u.ExpectedVersion)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// AppendEvent assigns the next sequence number for the application inside
// the insert.
func (r *repository) AppendEvent(ctx context.Context, e *Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Exec(`
INSERT INTO application_events (id, application_id, seq, action, status, actor_id, stage_index, message, created_at)
VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM application_events WHERE application_id = ?), ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ApplicationID, e.ApplicationID, e.Action, e.Status, e.ActorID, e.StageIndex, e.Message, e.CreatedAt,
	).Error
}

func (r *repository) ListEvents(ctx context.Context, applicationID uuid.UUID) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("seq ASC").
		Find(&events).Error
	return events, err
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.sqlDB
}

func containment(stage map[string]string) string {
	raw, _ := json.Marshal([]map[string]string{stage})
	return string(raw)
}
