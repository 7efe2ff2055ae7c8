package applicationerrors

import (
	"net/http"

	"hrm-server/internal/shared/apperror"
)

var (
	ErrApplicationNotFound = apperror.New(
		apperror.CodeNotFound,
		"application not found",
		http.StatusNotFound,
	)
	ErrStageNotFound = apperror.New(
		apperror.CodeNotFound,
		"approval stage not found",
		http.StatusNotFound,
	)
	ErrInvalidApplicationID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid application id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidApplicationType = apperror.New(
		apperror.CodeValidation,
		"invalid application type",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeValidation,
		"from date must not be after to date",
		http.StatusBadRequest,
	)
	ErrWindowCrossesYear = apperror.New(
		apperror.CodeValidation,
		"leave window must fall within one calendar year; submit one application per year",
		http.StatusBadRequest,
	)
	ErrInvalidDays = apperror.New(
		apperror.CodeValidation,
		"number of days must be positive in half-day steps",
		http.StatusBadRequest,
	)
	ErrBodyOrTemplateRequired = apperror.New(
		apperror.CodeValidation,
		"either body or template_id is required",
		http.StatusBadRequest,
	)
	ErrTitleRequired = apperror.New(
		apperror.CodeValidation,
		"Title is required",
		http.StatusBadRequest,
	)
	ErrInvalidApprover = apperror.New(
		apperror.CodeValidation,
		"approver list is invalid",
		http.StatusBadRequest,
	)
	ErrDetailsMissing = apperror.New(
		apperror.CodeValidation,
		"details for the application type are required",
		http.StatusBadRequest,
	)
	ErrDetailsAmbiguous = apperror.New(
		apperror.CodeValidation,
		"exactly one details block may be provided",
		http.StatusBadRequest,
	)
	ErrDetailsMismatch = apperror.New(
		apperror.CodeValidation,
		"details do not match the application type",
		http.StatusBadRequest,
	)
	ErrReasonRequired = apperror.New(
		apperror.CodeValidation,
		"Reason is required",
		http.StatusBadRequest,
	)
	ErrCommentRequired = apperror.New(
		apperror.CodeValidation,
		"Message is required",
		http.StatusBadRequest,
	)
	ErrInvalidAction = apperror.New(
		apperror.CodeValidation,
		"action must be one of approve, reject, comment",
		http.StatusBadRequest,
	)

	ErrLeaveNotAllowed = apperror.New(
		apperror.CodeBusinessRule,
		"leave request violates leave type rules",
		http.StatusUnprocessableEntity,
	)
	ErrInsufficientBalance = apperror.New(
		apperror.CodeBusinessRule,
		"insufficient leave balance",
		http.StatusUnprocessableEntity,
	)

	ErrNotAuthorized = apperror.New(
		apperror.CodeConflict,
		"not authorized to act on this stage",
		http.StatusConflict,
	)
	ErrNotYourTurn = apperror.New(
		apperror.CodeConflict,
		"not your turn",
		http.StatusConflict,
	)
	ErrAlreadyDecided = apperror.New(
		apperror.CodeConflict,
		"application already decided",
		http.StatusConflict,
	)
	ErrStageNotPending = apperror.New(
		apperror.CodeConflict,
		"stage is not pending",
		http.StatusConflict,
	)
	ErrStageConflict = apperror.New(
		apperror.CodeConflict,
		"application was modified concurrently, reload and retry",
		http.StatusConflict,
	)
	ErrNotApplicant = apperror.New(
		apperror.CodeForbidden,
		"only the applicant can cancel this application",
		http.StatusForbidden,
	)
)
