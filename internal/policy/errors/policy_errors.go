package policyerrors

import (
	"net/http"

	"hrm-server/internal/shared/apperror"
)

var (
	ErrNoApproverChain = apperror.New(
		apperror.CodeConfiguration,
		"No approver is configured for this application type",
		http.StatusInternalServerError,
	)
	ErrInvalidApprover = apperror.New(
		apperror.CodeConfiguration,
		"Approval chain references an invalid approver",
		http.StatusInternalServerError,
	)
	ErrUnknownApplicationType = apperror.New(
		apperror.CodeValidation,
		"Unknown application type",
		http.StatusBadRequest,
	)
)
