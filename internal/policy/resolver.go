package policy

import (
	"context"
	"time"

	"hrm-server/internal/config"
	"hrm-server/internal/employee"
	policyerrors "hrm-server/internal/policy/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RoleManager = "manager"
	RoleHR      = "hr"
	RoleFinance = "finance"
	RoleAdmin   = "admin"
)

// fallbackChains lists the roles that approve each application type when no
// leave policy applies.
var fallbackChains = map[string][]string{
	"leave":                {RoleManager, RoleHR},
	"adjustment":           {RoleManager, RoleHR},
	"business_trip":        {RoleManager, RoleAdmin},
	"business_trip_report": {RoleManager, RoleFinance},
	"refund":               {RoleManager, RoleFinance},
	"resignation":          {RoleManager, RoleHR, RoleAdmin},
	"home_office":          {RoleManager},
	"data_update":          {RoleHR},
}

type ResolveInput struct {
	OrgID           string
	ApplicationType string
	LeaveType       string
	ApplicantID     string
	SubmittedAt     time.Time
}

type Resolver interface {
	Resolve(ctx context.Context, in ResolveInput) ([]Stage, error)
}

type resolver struct {
	store     Store
	directory employee.Directory
	holders   config.ApproverConfig
	logger    *zap.Logger
}

func NewResolver(store Store, directory employee.Directory, holders config.ApproverConfig, logger ...*zap.Logger) Resolver {
	l := zap.L().Named("policy.resolver")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("policy.resolver")
	}
	return &resolver{store: store, directory: directory, holders: holders, logger: l}
}

func (r *resolver) Resolve(ctx context.Context, in ResolveInput) ([]Stage, error) {
	roles, ok := fallbackChains[in.ApplicationType]
	if !ok {
		return nil, policyerrors.ErrUnknownApplicationType
	}

	if in.LeaveType != "" && (in.ApplicationType == "leave" || in.ApplicationType == "adjustment") {
		p, err := r.store.GetActivePolicy(ctx, in.OrgID, in.LeaveType, in.SubmittedAt.Year())
		if err != nil {
			return nil, err
		}
		if p != nil && len(p.ApprovalTiers) > 0 {
			stages := make([]Stage, 0, len(p.ApprovalTiers))
			for _, tier := range p.ApprovalTiers {
				if err := r.checkApprover(in, tier.EmployeeID, tier.Role); err != nil {
					return nil, err
				}
				stages = appendStage(stages, in.ApplicantID, tier.EmployeeID, tier.Role)
			}
			if len(stages) > 0 {
				return stages, nil
			}
		}
	}

	stages := make([]Stage, 0, len(roles))
	for _, role := range roles {
		holder := r.holder(ctx, role, in.ApplicantID)
		if holder == "" {
			continue
		}
		if err := r.checkApprover(in, holder, role); err != nil {
			return nil, err
		}
		stages = appendStage(stages, in.ApplicantID, holder, role)
	}
	if len(stages) == 0 {
		r.logger.Error("no approver chain",
			zap.String("org_id", in.OrgID),
			zap.String("application_type", in.ApplicationType),
			zap.String("applicant_id", in.ApplicantID),
		)
		return nil, policyerrors.ErrNoApproverChain
	}
	return stages, nil
}

// checkApprover rejects approver ids that no principal can ever carry, which
// would leave the application stuck on that stage.
func (r *resolver) checkApprover(in ResolveInput, approverID, role string) error {
	if _, err := uuid.Parse(approverID); err == nil {
		return nil
	}
	r.logger.Error("invalid approver in chain",
		zap.String("org_id", in.OrgID),
		zap.String("application_type", in.ApplicationType),
		zap.String("role", role),
		zap.String("approver_id", approverID),
	)
	return policyerrors.ErrInvalidApprover.WithDetails(map[string]string{
		"role":        role,
		"approver_id": approverID,
	})
}

// holder returns the employee that fills role for the applicant, or "" when
// the role is unassigned.
func (r *resolver) holder(ctx context.Context, role, applicantID string) string {
	switch role {
	case RoleManager:
		if r.directory != nil {
			emp, err := r.directory.Get(ctx, applicantID)
			if err != nil {
				r.logger.Warn("manager lookup failed", zap.String("applicant_id", applicantID), zap.Error(err))
			} else if emp.ManagerID != nil {
				return emp.ManagerID.String()
			}
		}
		return r.holders.ManagerID
	case RoleHR:
		return r.holders.HRID
	case RoleFinance:
		return r.holders.FinanceID
	case RoleAdmin:
		return r.holders.AdminID
	}
	return ""
}

// appendStage skips unassigned roles, the applicant themself and an approver
// equal to the previous one.
func appendStage(stages []Stage, applicantID, approverID, role string) []Stage {
	if approverID == "" || approverID == applicantID {
		return stages
	}
	if n := len(stages); n > 0 && stages[n-1].ApproverID == approverID {
		return stages
	}
	return append(stages, Stage{ApproverID: approverID, Role: role})
}
