package leavetypeerrors

import (
	"net/http"

	"hrm-server/internal/shared/apperror"
)

var (
	ErrLeaveTypeNotFound = apperror.New(
		apperror.CodeValidation,
		"Unknown leave type",
		http.StatusBadRequest,
	)
	ErrInvalidOrgID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid organisation ID",
		http.StatusBadRequest,
	)
)
