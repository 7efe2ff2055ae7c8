package ledgererrors

import (
	"net/http"

	"hrm-server/internal/shared/apperror"
)

var (
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidEntryType = apperror.New(
		apperror.CodeInvalidInput,
		"invalid ledger entry type",
		http.StatusBadRequest,
	)
	ErrInvalidDays = apperror.New(
		apperror.CodeInvalidInput,
		"days must be a non-zero number in half-day steps",
		http.StatusBadRequest,
	)
	ErrInvalidYear = apperror.New(
		apperror.CodeInvalidInput,
		"invalid accounting year",
		http.StatusBadRequest,
	)
	ErrWorkflowEntryType = apperror.New(
		apperror.CodeInvalidInput,
		"pending and consume entries are posted by the application workflow only",
		http.StatusBadRequest,
	)
	ErrEntryNotFound = apperror.New(
		apperror.CodeNotFound,
		"ledger entry not found",
		http.StatusNotFound,
	)
	ErrAlreadyReversed = apperror.New(
		apperror.CodeConflict,
		"ledger entry already reversed",
		http.StatusConflict,
	)
	ErrDuplicatePosting = apperror.New(
		apperror.CodeConflict,
		"ledger entry with this idempotency key already exists",
		http.StatusConflict,
	)
	ErrInsufficientBalance = apperror.New(
		apperror.CodeBusinessRule,
		"insufficient leave balance",
		http.StatusUnprocessableEntity,
	)
	ErrNothingToCarry = apperror.New(
		apperror.CodeBusinessRule,
		"no balance available to carry forward",
		http.StatusUnprocessableEntity,
	)
)
