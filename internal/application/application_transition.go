package application

import (
	"context"
	"database/sql"
	"strings"
	"time"

	applicationerrors "hrm-server/internal/application/errors"
	"hrm-server/internal/events"
	"hrm-server/internal/ledger"
	"hrm-server/internal/shared/contextutil"
	"hrm-server/internal/shared/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionComment = "comment"
)

// transition is the computed outcome of one stage action, applied with a
// single conditional update.
type transition struct {
	stages     Stages
	stageIndex int
	nextIndex  int
	status     Status
	decidedAt  *time.Time
	action     Action
	eventType  string
	message    string
	postings   []ledger.Entry
	// mustCover rechecks the balance before a spend is consumed.
	mustCover bool

	notifyEvent     string
	notifyRecipient string
}

// checkTurn resolves which stage the caller may act on right now.
func checkTurn(app *Application, actorID string) (int, error) {
	if app.Decided() {
		return 0, applicationerrors.ErrAlreadyDecided
	}
	idx := app.CurrentApproverIndex
	cur, ok := app.CurrentStage()
	if !ok {
		return 0, applicationerrors.ErrStageNotFound
	}
	if cur.ApproverID != actorID {
		if app.StageOf(actorID, idx+1) >= 0 {
			return 0, applicationerrors.ErrNotYourTurn
		}
		return 0, applicationerrors.ErrNotAuthorized
	}
	if cur.Status != StagePending {
		return 0, applicationerrors.ErrStageNotPending
	}
	return idx, nil
}

func (s *service) AdvanceStage(ctx context.Context, orgID, actorID, id string, req AdvanceStageRequest) (ApplicationResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return ApplicationResponse{}, applicationerrors.ErrInvalidActorID
	}
	appID, err := uuid.Parse(id)
	if err != nil {
		return ApplicationResponse{}, applicationerrors.ErrInvalidApplicationID
	}
	switch req.Action {
	case ActionApprove, ActionComment:
	case ActionReject:
		if strings.TrimSpace(req.Reason) == "" {
			return ApplicationResponse{}, applicationerrors.ErrReasonRequired
		}
	default:
		return ApplicationResponse{}, applicationerrors.ErrInvalidAction
	}
	if req.Action == ActionComment && strings.TrimSpace(req.Message) == "" {
		return ApplicationResponse{}, applicationerrors.ErrCommentRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("advance stage begin tx failed", zap.Error(err))
		return ApplicationResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	app, err := qtx.FindByID(ctx, orgID, appID)
	if err != nil {
		return ApplicationResponse{}, err
	}

	idx, err := checkTurn(app, actorID)
	if err != nil {
		metrics.RecordStageTransition(req.Action, "rejected")
		log.Warn("advance stage refused",
			zap.String("application_id", id),
			zap.String("actor_id", actorID),
			zap.String("action", req.Action),
			zap.Error(err),
		)
		return ApplicationResponse{}, err
	}

	var t transition
	switch req.Action {
	case ActionApprove:
		t = s.planApprove(app, idx, actorUUID, req.Message)
	case ActionReject:
		t = s.planReject(app, idx, actorUUID, req.Reason)
	case ActionComment:
		t = s.planComment(app, idx, actorID, CommentRoleApprover, AddCommentRequest{
			Message:     req.Message,
			Attachments: req.Attachments,
		})
	}

	if err := s.apply(ctx, tx, qtx, app, t, actorID, actorID); err != nil {
		if isConflict(err) {
			metrics.RecordStageTransition(req.Action, "conflict")
			log.Warn("advance stage lost race",
				zap.String("application_id", id),
				zap.Int("version", app.Version),
				zap.Int("stage_index", idx),
			)
		}
		return ApplicationResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("advance stage commit failed", zap.Error(err))
		return ApplicationResponse{}, err
	}

	s.afterTransition(ctx, app, t, req.Action, actorID)

	log.Info("advance stage success",
		zap.String("application_id", id),
		zap.String("action", req.Action),
		zap.Int("stage_index", idx),
		zap.String("status", string(app.CurrentStatus)),
	)
	return mapToResponse(*app, nil), nil
}

func (s *service) AddComment(ctx context.Context, orgID, actorID, id string, stageIndex int, req AddCommentRequest) (ApplicationResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	if _, err := uuid.Parse(actorID); err != nil {
		return ApplicationResponse{}, applicationerrors.ErrInvalidActorID
	}
	appID, err := uuid.Parse(id)
	if err != nil {
		return ApplicationResponse{}, applicationerrors.ErrInvalidApplicationID
	}
	if strings.TrimSpace(req.Message) == "" {
		return ApplicationResponse{}, applicationerrors.ErrCommentRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("add comment begin tx failed", zap.Error(err))
		return ApplicationResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	app, err := qtx.FindByID(ctx, orgID, appID)
	if err != nil {
		return ApplicationResponse{}, err
	}

	if stageIndex < 0 || stageIndex >= len(app.Approvers) {
		return ApplicationResponse{}, applicationerrors.ErrStageNotFound
	}
	if app.Decided() {
		return ApplicationResponse{}, applicationerrors.ErrAlreadyDecided
	}
	if stageIndex != app.CurrentApproverIndex {
		return ApplicationResponse{}, applicationerrors.ErrNotYourTurn
	}

	var (
		t          transition
		approverID string
	)
	if actorID == app.ApplicantID.String() {
		if app.Approvers[stageIndex].Status != StagePending {
			return ApplicationResponse{}, applicationerrors.ErrStageNotPending
		}
		t = s.planComment(app, stageIndex, actorID, CommentRoleApplicant, req)
	} else {
		idx, err := checkTurn(app, actorID)
		if err != nil {
			metrics.RecordStageTransition(ActionComment, "rejected")
			return ApplicationResponse{}, err
		}
		t = s.planComment(app, idx, actorID, CommentRoleApprover, req)
		approverID = actorID
	}

	if err := s.apply(ctx, tx, qtx, app, t, actorID, approverID); err != nil {
		if isConflict(err) {
			metrics.RecordStageTransition(ActionComment, "conflict")
		}
		return ApplicationResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		log.Error("add comment commit failed", zap.Error(err))
		return ApplicationResponse{}, err
	}

	s.afterTransition(ctx, app, t, ActionComment, actorID)

	log.Info("add comment success",
		zap.String("application_id", id),
		zap.Int("stage_index", stageIndex),
		zap.String("actor_id", actorID),
	)
	return mapToResponse(*app, nil), nil
}

func (s *service) Cancel(ctx context.Context, orgID, actorID, id string, req CancelRequest) (ApplicationResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return ApplicationResponse{}, applicationerrors.ErrInvalidActorID
	}
	appID, err := uuid.Parse(id)
	if err != nil {
		return ApplicationResponse{}, applicationerrors.ErrInvalidApplicationID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("cancel application begin tx failed", zap.Error(err))
		return ApplicationResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	app, err := qtx.FindByID(ctx, orgID, appID)
	if err != nil {
		return ApplicationResponse{}, err
	}
	if app.ApplicantID != actorUUID {
		return ApplicationResponse{}, applicationerrors.ErrNotApplicant
	}
	if app.Decided() {
		return ApplicationResponse{}, applicationerrors.ErrAlreadyDecided
	}

	ok, err := qtx.Cancel(ctx, CancelUpdate{
		ID:              app.ID,
		ExpectedVersion: app.Version,
		CancelledBy:     actorUUID,
		Reason:          req.Reason,
	})
	if err != nil {
		return ApplicationResponse{}, err
	}
	if !ok {
		metrics.RecordStageTransition("cancel", "conflict")
		return ApplicationResponse{}, applicationerrors.ErrStageConflict
	}

	app.CurrentStatus = StatusCancelled
	app.IsCancelled = true
	app.CancelledBy = &actorUUID
	app.CancelReason = req.Reason
	app.Version++
	app.UpdatedAt = s.now()

	if err := qtx.AppendEvent(ctx, &Event{
		ApplicationID: app.ID,
		Action:        ActionCancelled,
		Status:        StatusCancelled,
		ActorID:       actorUUID,
		Message:       req.Reason,
		CreatedAt:     s.now(),
	}); err != nil {
		return ApplicationResponse{}, err
	}
	if err := s.writeOutbox(ctx, tx, app, events.ApplicationCancelled, actorID, nil, req.Reason); err != nil {
		return ApplicationResponse{}, err
	}

	var posted []ledger.Entry
	if app.HoldsLeave() {
		posted = []ledger.Entry{app.posting(ledger.TypePendingRemove, app.NumberOfDays, actorUUID, "pending_remove")}
		if _, err := s.poster.WithTx(tx).Post(ctx, posted...); err != nil {
			return ApplicationResponse{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("cancel application commit failed", zap.Error(err))
		return ApplicationResponse{}, err
	}

	s.afterCommit(ctx, posted)
	metrics.RecordStageTransition("cancel", "success")
	s.notify(app, events.NotifyCancelled, app.ApplicantID.String(), actorID, req.Reason)

	log.Info("cancel application success", zap.String("application_id", id))
	return mapToResponse(*app, nil), nil
}

func (s *service) planApprove(app *Application, idx int, actor uuid.UUID, message string) transition {
	now := s.now()
	stages := app.Approvers.Clone()
	stages[idx].Status = StageApproved
	stages[idx].ApprovedAt = &now

	t := transition{
		stages:     stages,
		stageIndex: idx,
		action:     ActionApproved,
		message:    message,
	}
	if idx+1 < len(stages) {
		t.nextIndex = idx + 1
		t.status = StatusPending
		t.eventType = events.ApplicationStageApproved
		t.notifyEvent = events.NotifyStageAdvance
		t.notifyRecipient = stages[idx+1].ApproverID
		return t
	}

	t.nextIndex = idx
	t.status = StatusApproved
	t.decidedAt = &now
	t.eventType = events.ApplicationApproved
	t.notifyEvent = events.NotifyApproved
	t.notifyRecipient = app.ApplicantID.String()

	switch app.Type {
	case TypeLeave:
		if app.HoldsLeave() {
			t.postings = []ledger.Entry{
				app.posting(ledger.TypePendingRemove, app.NumberOfDays, actor, "pending_remove"),
				app.posting(ledger.TypeConsume, app.NumberOfDays, actor, "consume"),
			}
		}
	case TypeAdjustment:
		if app.NumberOfDays.IsPositive() {
			if adj := app.Details.Adjustment; adj != nil && adj.Mode == "earn" {
				t.postings = []ledger.Entry{app.posting(ledger.TypeAdjustment, app.NumberOfDays, actor, "adjustment")}
			} else {
				t.postings = []ledger.Entry{app.posting(ledger.TypeConsume, app.NumberOfDays, actor, "consume")}
				t.mustCover = true
			}
		}
	}
	return t
}

func (s *service) planReject(app *Application, idx int, actor uuid.UUID, reason string) transition {
	now := s.now()
	stages := app.Approvers.Clone()
	stages[idx].Status = StageRejected
	stages[idx].RejectedAt = &now
	stages[idx].RejectionReason = reason

	t := transition{
		stages:          stages,
		stageIndex:      idx,
		nextIndex:       idx,
		status:          StatusRejected,
		decidedAt:       &now,
		action:          ActionRejected,
		eventType:       events.ApplicationRejected,
		message:         reason,
		notifyEvent:     events.NotifyRejected,
		notifyRecipient: app.ApplicantID.String(),
	}
	if app.HoldsLeave() {
		t.postings = []ledger.Entry{app.posting(ledger.TypePendingRemove, app.NumberOfDays, actor, "pending_remove")}
	}
	return t
}

// planComment appends to the thread of stage idx. The stage stays pending.
// An approver comment moves the application to in_review; an applicant reply
// leaves the status alone and goes to the approver.
func (s *service) planComment(app *Application, idx int, actorID, role string, req AddCommentRequest) transition {
	stages := app.Approvers.Clone()
	stages[idx].Comments = append(stages[idx].Comments, Comment{
		ID:          uuid.NewString(),
		SenderID:    actorID,
		Role:        role,
		Message:     req.Message,
		Attachments: req.Attachments,
		ReplyTo:     req.ReplyTo,
		CreatedAt:   s.now(),
	})

	t := transition{
		stages:      stages,
		stageIndex:  idx,
		nextIndex:   idx,
		decidedAt:   app.FinalDecisionDate,
		action:      ActionCommented,
		eventType:   events.ApplicationCommented,
		message:     req.Message,
		notifyEvent: events.NotifyCommented,
	}
	if role == CommentRoleApplicant {
		t.status = app.CurrentStatus
		t.notifyRecipient = stages[idx].ApproverID
	} else {
		t.status = StatusInReview
		t.notifyRecipient = app.ApplicantID.String()
	}
	return t
}

// apply writes the transition with the conditional update and, only if it
// won, appends the event, the outbox row and the ledger postings in the same
// transaction. app is updated in place to the committed shape.
func (s *service) apply(ctx context.Context, tx *sql.Tx, qtx Repository, app *Application, t transition, actorID, approverID string) error {
	ok, err := qtx.UpdateStage(ctx, StageUpdate{
		ID:                app.ID,
		ExpectedVersion:   app.Version,
		ExpectedIndex:     t.stageIndex,
		ApproverID:        approverID,
		Approvers:         t.stages,
		NextIndex:         t.nextIndex,
		Status:            t.status,
		FinalDecisionDate: t.decidedAt,
	})
	if err != nil {
		return err
	}
	if !ok {
		return applicationerrors.ErrStageConflict
	}

	app.Approvers = t.stages
	app.CurrentApproverIndex = t.nextIndex
	app.CurrentStatus = t.status
	app.FinalDecisionDate = t.decidedAt
	app.Version++
	app.UpdatedAt = s.now()

	actorUUID, _ := uuid.Parse(actorID)
	stageIndex := t.stageIndex
	if err := qtx.AppendEvent(ctx, &Event{
		ApplicationID: app.ID,
		Action:        t.action,
		Status:        t.status,
		ActorID:       actorUUID,
		StageIndex:    &stageIndex,
		Message:       t.message,
		CreatedAt:     s.now(),
	}); err != nil {
		return err
	}
	if err := s.writeOutbox(ctx, tx, app, t.eventType, actorID, &stageIndex, t.message); err != nil {
		return err
	}
	if len(t.postings) > 0 {
		ptx := s.poster.WithTx(tx)
		if t.mustCover {
			if err := s.ensureCovered(ctx, ptx, app.ledgerKey(), app.NumberOfDays); err != nil {
				return err
			}
		}
		if _, err := ptx.Post(ctx, t.postings...); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) afterTransition(ctx context.Context, app *Application, t transition, action, actorID string) {
	s.afterCommit(ctx, t.postings)
	metrics.RecordStageTransition(action, "success")
	s.notify(app, t.notifyEvent, t.notifyRecipient, actorID, t.message)
}
