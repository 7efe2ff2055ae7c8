package apptemplate

import (
	"bytes"
	"context"
	"text/template"

	apptemplateerrors "hrm-server/internal/apptemplate/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Renderer interface {
	Render(ctx context.Context, orgID, templateID string, vars map[string]any) (Rendered, error)
}

type renderer struct {
	repo   Repository
	logger *zap.Logger
}

func NewRenderer(repo Repository, logger ...*zap.Logger) Renderer {
	l := zap.L().Named("apptemplate.renderer")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("apptemplate.renderer")
	}
	return &renderer{repo: repo, logger: l}
}

func (r *renderer) Render(ctx context.Context, orgID, templateID string, vars map[string]any) (Rendered, error) {
	if _, err := uuid.Parse(templateID); err != nil {
		return Rendered{}, apptemplateerrors.ErrTemplateNotFound
	}
	t, err := r.repo.FindByID(ctx, orgID, templateID)
	if err != nil {
		return Rendered{}, err
	}

	title, err := execute("title", t.Title, vars)
	if err != nil {
		r.logger.Warn("render template title failed", zap.String("template_id", templateID), zap.Error(err))
		return Rendered{}, apptemplateerrors.ErrTemplateRender.WithDetails(err.Error())
	}
	body, err := execute("body", t.Body, vars)
	if err != nil {
		r.logger.Warn("render template body failed", zap.String("template_id", templateID), zap.Error(err))
		return Rendered{}, apptemplateerrors.ErrTemplateRender.WithDetails(err.Error())
	}

	return Rendered{
		Title:            title,
		Body:             body,
		DefaultApprovers: append([]string(nil), t.DefaultApprovers...),
	}, nil
}

func execute(name, text string, vars map[string]any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
