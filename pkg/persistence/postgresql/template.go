package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vantagecrm/automation/pkg/models"
	"github.com/vantagecrm/automation/pkg/persistence"
)

// TemplateRepository handles message template database operations.
type TemplateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTemplateRepository(db *sql.DB, logger *slog.Logger) *TemplateRepository {
	return &TemplateRepository{db: db, logger: logger}
}

func (r *TemplateRepository) List(ctx context.Context) ([]*models.Template, error) {
	query := `SELECT id, name, subject, body, variables FROM templates ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, persistence.NewTemplateError("List", "", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	templates := make([]*models.Template, 0)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, persistence.NewTemplateError("List", "", err)
		}

		templates = append(templates, template)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewTemplateError("List", "", err)
	}

	return templates, nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.Template, error) {
	query := `SELECT id, name, subject, body, variables FROM templates WHERE id = $1`

	template, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTemplateError("GetByID", id, persistence.ErrTemplateNotFound)
		}

		return nil, persistence.NewTemplateError("GetByID", id, err)
	}

	return template, nil
}

func (r *TemplateRepository) Save(ctx context.Context, template *models.Template) error {
	variablesJSON, err := json.Marshal(template.Variables)
	if err != nil {
		return persistence.NewTemplateError("Save", template.ID, fmt.Errorf("failed to marshal variables: %w", err))
	}

	query := `
		INSERT INTO templates (id, name, subject, body, variables)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			variables = EXCLUDED.variables
	`

	_, err = r.db.ExecContext(ctx, query, template.ID, template.Name, template.Subject, template.Body, variablesJSON)
	if err != nil {
		return persistence.NewTemplateError("Save", template.ID, err)
	}

	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM templates WHERE id = $1", id)
	if err != nil {
		return persistence.NewTemplateError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewTemplateError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewTemplateError("Delete", id, persistence.ErrTemplateNotFound)
	}

	return nil
}

func scanTemplate(row rowScanner) (*models.Template, error) {
	var (
		template      models.Template
		variablesJSON []byte
	)

	err := row.Scan(&template.ID, &template.Name, &template.Subject, &template.Body, &variablesJSON)
	if err != nil {
		return nil, err
	}

	if len(variablesJSON) > 0 {
		err = json.Unmarshal(variablesJSON, &template.Variables)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
		}
	}

	return &template, nil
}
