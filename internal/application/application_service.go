package application

import (
	"context"
	"database/sql"
	"errors"
	"time"

	applicationerrors "hrm-server/internal/application/errors"
	"hrm-server/internal/apptemplate"
	"hrm-server/internal/config"
	"hrm-server/internal/employee"
	"hrm-server/internal/events"
	"hrm-server/internal/leavetype"
	"hrm-server/internal/ledger"
	"hrm-server/internal/messaging/kafka"
	"hrm-server/internal/policy"
	"hrm-server/internal/shared/apperror"
	"hrm-server/internal/shared/contextutil"
	"hrm-server/internal/shared/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Notifier receives a notification once the transition that produced it has
// committed. It reports false when the notification was dropped.
type Notifier interface {
	Notify(n events.ApplicationNotification) bool
}

// BalanceCache drops cached balances for keys whose snapshot changed.
type BalanceCache interface {
	InvalidateBalances(ctx context.Context, keys ...ledger.Key)
}

type Service interface {
	Create(ctx context.Context, orgID, actorID string, req CreateApplicationRequest) (ApplicationResponse, error)
	GetByID(ctx context.Context, orgID, actorID, id string, canReadAll bool) (ApplicationResponse, error)
	List(ctx context.Context, orgID, actorID string, canReadAll bool, filter ListFilter) (ListResult, error)
	GetActiveForApplicant(ctx context.Context, orgID, applicantID string) ([]ApplicationSummary, error)
	GetPendingForApprover(ctx context.Context, orgID, approverID string) ([]ApplicationSummary, error)
	AdvanceStage(ctx context.Context, orgID, actorID, id string, req AdvanceStageRequest) (ApplicationResponse, error)
	AddComment(ctx context.Context, orgID, actorID, id string, stageIndex int, req AddCommentRequest) (ApplicationResponse, error)
	Cancel(ctx context.Context, orgID, actorID, id string, req CancelRequest) (ApplicationResponse, error)
}

type Dependencies struct {
	DB        *sql.DB
	Repo      Repository
	Poster    ledger.Poster
	Balances  BalanceCache
	Outbox    kafka.OutboxRepository
	Resolver  policy.Resolver
	Rules     leavetype.Rules
	Directory employee.Directory
	Renderer  apptemplate.Renderer
	Notifier  Notifier
	Query     config.QueryConfig
}

type service struct {
	db        *sql.DB
	repo      Repository
	poster    ledger.Poster
	balances  BalanceCache
	outbox    kafka.OutboxRepository
	resolver  policy.Resolver
	rules     leavetype.Rules
	directory employee.Directory
	renderer  apptemplate.Renderer
	notifier  Notifier
	query     config.QueryConfig
	now       func() time.Time
	logger    *zap.Logger
}

func NewService(deps Dependencies, logger ...*zap.Logger) Service {
	l := zap.L().Named("application.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("application.service")
	}
	query := deps.Query
	if query.DefaultPageSize <= 0 {
		query.DefaultPageSize = 20
	}
	if query.MaxPageSize <= 0 {
		query.MaxPageSize = 100
	}
	return &service{
		db:        deps.DB,
		repo:      deps.Repo,
		poster:    deps.Poster,
		balances:  deps.Balances,
		outbox:    deps.Outbox,
		resolver:  deps.Resolver,
		rules:     deps.Rules,
		directory: deps.Directory,
		renderer:  deps.Renderer,
		notifier:  deps.Notifier,
		query:     query,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    l,
	}
}

var half = decimal.NewFromFloat(0.5)

func (s *service) Create(ctx context.Context, orgID, actorID string, req CreateApplicationRequest) (ApplicationResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("create application requested",
		zap.String("org_id", orgID),
		zap.String("actor_id", actorID),
		zap.String("application_type", req.Type),
	)

	orgUUID, err := uuid.Parse(orgID)
	if err != nil {
		return ApplicationResponse{}, apperror.InvalidField("Org ID")
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return ApplicationResponse{}, applicationerrors.ErrInvalidActorID
	}
	appType := Type(req.Type)
	if !appType.Valid() {
		return ApplicationResponse{}, applicationerrors.ErrInvalidApplicationType
	}
	from, to, err := parseWindow(req.FromDate, req.ToDate)
	if err != nil {
		return ApplicationResponse{}, err
	}
	if err := req.Details.Validate(appType); err != nil {
		return ApplicationResponse{}, err
	}
	// Ledger balances are per calendar year.
	if (appType == TypeLeave || appType == TypeAdjustment) && from.Year() != to.Year() {
		return ApplicationResponse{}, applicationerrors.ErrWindowCrossesYear
	}
	days, err := resolveDays(req, from, to)
	if err != nil {
		return ApplicationResponse{}, err
	}
	if req.Body == "" && req.TemplateID == "" {
		return ApplicationResponse{}, applicationerrors.ErrBodyOrTemplateRequired
	}

	applicant, err := s.directory.Get(ctx, actorID)
	if err != nil {
		return ApplicationResponse{}, err
	}

	app := &Application{
		ID:            uuid.New(),
		OrgID:         orgUUID,
		Type:          appType,
		ApplicantID:   actorUUID,
		DepartmentID:  applicant.DepartmentID,
		DesignationID: applicant.DesignationID,
		Title:         req.Title,
		Body:          req.Body,
		Reason:        req.Reason,
		Priority:      PriorityNormal,
		Details:       req.Details,
		NumberOfDays:  days,
		FromDate:      from,
		ToDate:        to,
		CurrentStatus: StatusPending,
		Version:       1,
	}
	if req.Priority != "" {
		app.Priority = Priority(req.Priority)
	}

	var defaultApprovers []string
	if req.TemplateID != "" {
		rendered, err := s.renderer.Render(ctx, orgID, req.TemplateID, templateVars(req, applicant, days))
		if err != nil {
			return ApplicationResponse{}, err
		}
		templateID, _ := uuid.Parse(req.TemplateID)
		app.TemplateID = &templateID
		if app.Title == "" {
			app.Title = rendered.Title
		}
		if app.Body == "" {
			app.Body = rendered.Body
		}
		defaultApprovers = rendered.DefaultApprovers
	}
	if app.Title == "" {
		return ApplicationResponse{}, applicationerrors.ErrTitleRequired
	}

	mustCover, err := s.checkEligibility(ctx, app, applicant)
	if err != nil {
		return ApplicationResponse{}, err
	}

	stages, err := s.buildStages(ctx, app, req.Approvers, defaultApprovers)
	if err != nil {
		return ApplicationResponse{}, err
	}
	app.Approvers = stages

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("create application begin tx failed", zap.Error(err))
		return ApplicationResponse{}, err
	}
	defer tx.Rollback()

	ptx := s.poster.WithTx(tx)
	key := app.ledgerKey()

	if mustCover {
		if err := s.ensureCovered(ctx, ptx, key, days); err != nil {
			return ApplicationResponse{}, err
		}
	}

	qtx := s.repo.WithTx(tx)
	if err := qtx.Create(ctx, app); err != nil {
		log.Error("create application insert failed", zap.Error(err))
		return ApplicationResponse{}, err
	}
	if err := qtx.AppendEvent(ctx, &Event{
		ApplicationID: app.ID,
		Action:        ActionSubmitted,
		Status:        app.CurrentStatus,
		ActorID:       actorUUID,
		Message:       app.Reason,
		CreatedAt:     s.now(),
	}); err != nil {
		return ApplicationResponse{}, err
	}
	if err := s.writeOutbox(ctx, tx, app, events.ApplicationSubmitted, actorID, nil, app.Reason); err != nil {
		return ApplicationResponse{}, err
	}

	var posted []ledger.Entry
	if app.HoldsLeave() {
		posted = []ledger.Entry{app.posting(ledger.TypePendingAdd, days, actorUUID, "pending_add")}
		if _, err := ptx.Post(ctx, posted...); err != nil {
			return ApplicationResponse{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("create application commit failed", zap.Error(err))
		return ApplicationResponse{}, err
	}

	s.afterCommit(ctx, posted)
	metrics.RecordApplicationCreated(string(app.Type))
	s.notify(app, events.NotifySubmitted, app.Approvers[0].ApproverID, actorID, app.Reason)

	log.Info("create application success",
		zap.String("application_id", app.ID.String()),
		zap.String("application_type", string(app.Type)),
		zap.Int("stages", len(app.Approvers)),
	)
	return mapToResponse(*app, nil), nil
}

// checkEligibility runs the leave-type rules and reports whether the
// application must be covered by the available balance.
func (s *service) checkEligibility(ctx context.Context, app *Application, applicant *employee.Employee) (bool, error) {
	today := s.now()
	switch app.Type {
	case TypeLeave:
		leave := app.Details.Leave
		verdict, lt, err := s.rules.CanApply(ctx, app.OrgID.String(), leave.LeaveType, leavetype.ApplyInput{
			From:        app.FromDate,
			To:          app.ToDate,
			Units:       app.NumberOfDays,
			HasDocs:     leave.HasDocuments || len(leave.Attachments) > 0,
			IsProbation: applicant.OnProbation(today),
			TenureDays:  applicant.TenureDays(today),
			Today:       today,
		})
		if err != nil {
			return false, err
		}
		if !verdict.OK {
			return false, applicationerrors.ErrLeaveNotAllowed.
				WithMessage(verdict.Reason).
				WithDetails(map[string]any{
					"reason":        verdict.Reason,
					"requires_docs": verdict.RequiresDocs,
				})
		}
		return !lt.AllowNegative, nil
	case TypeAdjustment:
		adj := app.Details.Adjustment
		if _, err := s.rules.Get(ctx, app.OrgID.String(), adj.LeaveType); err != nil {
			return false, err
		}
		return adj.Mode == "spend", nil
	}
	return false, nil
}

// buildStages takes the explicit approver list first, then the template
// defaults, then the policy chain.
func (s *service) buildStages(ctx context.Context, app *Application, explicit, defaults []string) (Stages, error) {
	applicantID := app.ApplicantID.String()

	fromList := func(ids []string, role string) (Stages, error) {
		stages := make(Stages, 0, len(ids))
		for _, id := range ids {
			parsed, err := uuid.Parse(id)
			if err != nil || parsed.String() == applicantID {
				return nil, applicationerrors.ErrInvalidApprover.WithDetails(map[string]string{"approver_id": id})
			}
			if n := len(stages); n > 0 && stages[n-1].ApproverID == parsed.String() {
				continue
			}
			stages = append(stages, newStage(parsed.String(), role))
		}
		return stages, nil
	}

	switch {
	case len(explicit) > 0:
		return fromList(explicit, "approver")
	case len(defaults) > 0:
		return fromList(defaults, "template")
	}

	chain, err := s.resolver.Resolve(ctx, policy.ResolveInput{
		OrgID:           app.OrgID.String(),
		ApplicationType: string(app.Type),
		LeaveType:       app.LeaveType(),
		ApplicantID:     applicantID,
		SubmittedAt:     s.now(),
	})
	if err != nil {
		return nil, err
	}
	stages := make(Stages, 0, len(chain))
	for _, st := range chain {
		stages = append(stages, newStage(st.ApproverID, st.Role))
	}
	return stages, nil
}

func newStage(approverID, role string) Stage {
	return Stage{
		ApproverID: approverID,
		Role:       role,
		Status:     StagePending,
		Comments:   []Comment{},
	}
}

func (s *service) GetByID(ctx context.Context, orgID, actorID, id string, canReadAll bool) (ApplicationResponse, error) {
	appID, err := uuid.Parse(id)
	if err != nil {
		return ApplicationResponse{}, applicationerrors.ErrInvalidApplicationID
	}
	app, err := s.repo.FindByID(ctx, orgID, appID)
	if err != nil {
		return ApplicationResponse{}, err
	}
	if !canReadAll && app.ApplicantID.String() != actorID && app.StageOf(actorID, 0) < 0 {
		return ApplicationResponse{}, apperror.ErrForbidden
	}
	evts, err := s.repo.ListEvents(ctx, app.ID)
	if err != nil {
		return ApplicationResponse{}, err
	}
	return mapToResponse(*app, evts), nil
}

func (s *service) List(ctx context.Context, orgID, actorID string, canReadAll bool, filter ListFilter) (ListResult, error) {
	q := ListQuery{
		OrgID:         orgID,
		Type:          filter.Type,
		Status:        filter.Status,
		Priority:      filter.Priority,
		ApplicantID:   filter.ApplicantID,
		ApproverID:    filter.ApproverID,
		DepartmentID:  filter.DepartmentID,
		DesignationID: filter.DesignationID,
		Search:        filter.Search,
	}
	if filter.From != "" {
		from, err := parseDate(filter.From)
		if err != nil {
			return ListResult{}, apperror.InvalidField("From")
		}
		q.From = &from
	}
	if filter.To != "" {
		to, err := parseDate(filter.To)
		if err != nil {
			return ListResult{}, apperror.InvalidField("To")
		}
		q.To = &to
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return ListResult{}, applicationerrors.ErrInvalidDateRange
	}

	// Without a privileged role callers only see their own applications, or
	// the ones routed to them when they filter by themselves as approver.
	if !canReadAll && q.ApproverID != actorID {
		q.ApplicantID = actorID
	}

	page, limit := s.paging(filter.Page, filter.Limit)
	q.Offset = (page - 1) * limit
	q.Limit = limit

	apps, total, err := s.repo.List(ctx, q)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: mapToSummaries(apps), Total: total, Page: page, Limit: limit}, nil
}

// paging applies the default page size and caps it.
func (s *service) paging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.query.DefaultPageSize
	}
	if limit > s.query.MaxPageSize {
		limit = s.query.MaxPageSize
	}
	return page, limit
}

func (s *service) GetActiveForApplicant(ctx context.Context, orgID, applicantID string) ([]ApplicationSummary, error) {
	id, err := uuid.Parse(applicantID)
	if err != nil {
		return nil, applicationerrors.ErrInvalidActorID
	}
	apps, err := s.repo.FindActiveByApplicant(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return mapToSummaries(apps), nil
}

func (s *service) GetPendingForApprover(ctx context.Context, orgID, approverID string) ([]ApplicationSummary, error) {
	id, err := uuid.Parse(approverID)
	if err != nil {
		return nil, applicationerrors.ErrInvalidActorID
	}
	apps, err := s.repo.FindPendingForApprover(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return mapToSummaries(apps), nil
}

func (s *service) writeOutbox(ctx context.Context, tx *sql.Tx, app *Application, eventType, actorID string, stageIndex *int, message string) error {
	evt, err := kafka.NewOutboxEvent(
		contextutil.GetRequestID(ctx),
		"application",
		app.ID.String(),
		eventType,
		events.ApplicationLifecycleTopic,
		events.ApplicationLifecycleEvent{
			EventType:       eventType,
			ApplicationID:   app.ID.String(),
			OrgID:           app.OrgID.String(),
			ApplicationType: string(app.Type),
			ApplicantID:     app.ApplicantID.String(),
			ActorID:         actorID,
			Status:          string(app.CurrentStatus),
			StageIndex:      stageIndex,
			Message:         message,
			Version:         app.Version,
			OccurredAt:      s.now(),
		},
	)
	if err != nil {
		return err
	}
	return s.outbox.WithTx(tx).Create(ctx, evt)
}

// afterCommit counts postings and drops the cached balances they touched.
func (s *service) afterCommit(ctx context.Context, posted []ledger.Entry) {
	if len(posted) == 0 {
		return
	}
	ledger.RecordPosted(posted...)
	if s.balances == nil {
		return
	}
	keys := make([]ledger.Key, 0, len(posted))
	for _, e := range posted {
		keys = append(keys, e.Key())
	}
	s.balances.InvalidateBalances(ctx, keys...)
}

func (s *service) notify(app *Application, event, recipientID, actorID, message string) {
	if s.notifier == nil || recipientID == "" {
		return
	}
	if !s.notifier.Notify(events.ApplicationNotification{
		Event:           event,
		ApplicationID:   app.ID.String(),
		ApplicationType: string(app.Type),
		Title:           app.Title,
		Status:          string(app.CurrentStatus),
		RecipientID:     recipientID,
		ActorID:         actorID,
		Message:         message,
		OccurredAt:      s.now(),
	}) {
		s.logger.Warn("notification dropped",
			zap.String("application_id", app.ID.String()),
			zap.String("event", event),
		)
	}
}

// ensureCovered fails when the available balance under key is below days.
// Balance takes the key's advisory lock, so the check holds until commit.
func (s *service) ensureCovered(ctx context.Context, ptx ledger.Poster, key ledger.Key, days decimal.Decimal) error {
	bal, err := ptx.Balance(ctx, key)
	if err != nil {
		return err
	}
	if bal.Available().LessThan(days) {
		contextutil.GetLogger(ctx, s.logger).Warn("application exceeds available balance",
			zap.String("key", key.String()),
			zap.String("available", bal.Available().String()),
			zap.String("requested", days.String()),
		)
		return applicationerrors.ErrInsufficientBalance.WithDetails(map[string]string{
			"available": bal.Available().String(),
			"requested": days.String(),
		})
	}
	return nil
}

func (a *Application) ledgerKey() ledger.Key {
	return ledger.Key{EmployeeID: a.ApplicantID, LeaveType: a.LeaveType(), Year: a.FromDate.Year()}
}

// posting builds a workflow ledger entry. The idempotency key is derived from
// the application so a replayed transition cannot post twice.
func (a *Application) posting(t ledger.EntryType, days decimal.Decimal, actor uuid.UUID, suffix string) ledger.Entry {
	key := a.ledgerKey()
	appID := a.ID
	return ledger.Entry{
		ID:             uuid.New(),
		EmployeeID:     key.EmployeeID,
		LeaveType:      key.LeaveType,
		Year:           key.Year,
		Type:           t,
		Days:           ledger.SignedDays(t, days),
		ApplicationID:  &appID,
		Note:           string(a.Type) + " " + suffix,
		CreatedBy:      actor,
		IdempotencyKey: "application:" + a.ID.String() + ":" + suffix,
	}
}

func parseDate(v string) (time.Time, error) {
	return time.Parse("2006-01-02", v)
}

func parseWindow(fromRaw, toRaw string) (time.Time, time.Time, error) {
	from, err := parseDate(fromRaw)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.InvalidField("From Date")
	}
	to, err := parseDate(toRaw)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.InvalidField("To Date")
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, applicationerrors.ErrInvalidDateRange
	}
	return from, to, nil
}

// resolveDays defaults to the inclusive calendar span, or half a day for a
// single-day half-day leave.
func resolveDays(req CreateApplicationRequest, from, to time.Time) (decimal.Decimal, error) {
	if req.NumberOfDays != nil {
		days := *req.NumberOfDays
		if !days.IsPositive() || !days.Div(half).IsInteger() {
			return decimal.Zero, applicationerrors.ErrInvalidDays
		}
		return days, nil
	}
	if req.Details.Leave != nil && req.Details.Leave.HalfDay && from.Equal(to) {
		return half, nil
	}
	span := int64(to.Sub(from).Hours()/24) + 1
	return decimal.NewFromInt(span), nil
}

func templateVars(req CreateApplicationRequest, applicant *employee.Employee, days decimal.Decimal) map[string]any {
	vars := map[string]any{}
	for k, v := range req.Variables {
		vars[k] = v
	}
	vars["ApplicantName"] = applicant.FullName
	vars["ApplicationType"] = req.Type
	vars["FromDate"] = req.FromDate
	vars["ToDate"] = req.ToDate
	vars["Days"] = days.String()
	vars["Reason"] = req.Reason
	return vars
}

func mapToResponse(a Application, evts []Event) ApplicationResponse {
	resp := ApplicationResponse{
		ID:                   a.ID.String(),
		OrgID:                a.OrgID.String(),
		Type:                 string(a.Type),
		ApplicantID:          a.ApplicantID.String(),
		DepartmentID:         uuidPtrString(a.DepartmentID),
		DesignationID:        uuidPtrString(a.DesignationID),
		Title:                a.Title,
		Body:                 a.Body,
		TemplateID:           uuidPtrString(a.TemplateID),
		Reason:               a.Reason,
		Priority:             string(a.Priority),
		Details:              a.Details,
		NumberOfDays:         a.NumberOfDays,
		FromDate:             a.FromDate.Format("2006-01-02"),
		ToDate:               a.ToDate.Format("2006-01-02"),
		Approvers:            make([]StageResponse, 0, len(a.Approvers)),
		CurrentApproverIndex: a.CurrentApproverIndex,
		CurrentStatus:        string(a.CurrentStatus),
		IsCancelled:          a.IsCancelled,
		FinalDecisionDate:    a.FinalDecisionDate,
		CancelledBy:          uuidPtrString(a.CancelledBy),
		CancelReason:         a.CancelReason,
		Version:              a.Version,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
	for i, st := range a.Approvers {
		comments := st.Comments
		if comments == nil {
			comments = []Comment{}
		}
		resp.Approvers = append(resp.Approvers, StageResponse{
			Index:           i,
			ApproverID:      st.ApproverID,
			Role:            st.Role,
			Status:          string(st.Status),
			Comments:        comments,
			ApprovedAt:      st.ApprovedAt,
			RejectedAt:      st.RejectedAt,
			RejectionReason: st.RejectionReason,
			DueDate:         st.DueDate,
			DelegatedTo:     st.DelegatedTo,
			EscalatedTo:     st.EscalatedTo,
		})
	}
	if len(evts) > 0 {
		resp.History = History(evts)
		resp.StatusTimeline = StatusTimeline(evts)
	}
	return resp
}

func mapToSummaries(apps []Application) []ApplicationSummary {
	out := make([]ApplicationSummary, 0, len(apps))
	for _, a := range apps {
		sum := ApplicationSummary{
			ID:                   a.ID.String(),
			Type:                 string(a.Type),
			ApplicantID:          a.ApplicantID.String(),
			Title:                a.Title,
			Priority:             string(a.Priority),
			NumberOfDays:         a.NumberOfDays,
			FromDate:             a.FromDate.Format("2006-01-02"),
			ToDate:               a.ToDate.Format("2006-01-02"),
			CurrentApproverIndex: a.CurrentApproverIndex,
			StageCount:           len(a.Approvers),
			CurrentStatus:        string(a.CurrentStatus),
			CreatedAt:            a.CreatedAt,
		}
		if st, ok := a.CurrentStage(); ok && !a.Decided() {
			sum.CurrentApproverID = st.ApproverID
		}
		out = append(out, sum)
	}
	return out
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	v := id.String()
	return &v
}

func isConflict(err error) bool {
	return errors.Is(err, applicationerrors.ErrStageConflict)
}
