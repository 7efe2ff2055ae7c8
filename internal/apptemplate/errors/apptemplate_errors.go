package apptemplateerrors

import (
	"net/http"

	"hrm-server/internal/shared/apperror"
)

var (
	ErrTemplateNotFound = apperror.New(
		apperror.CodeNotFound,
		"Application template not found",
		http.StatusNotFound,
	)
	ErrTemplateRender = apperror.New(
		apperror.CodeValidation,
		"Application template could not be rendered",
		http.StatusBadRequest,
	)
)
