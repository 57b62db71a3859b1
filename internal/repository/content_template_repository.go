package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-admin-api/internal/models"
)

// ContentTemplateRepository reads the course content template catalog.
// Templates are authored elsewhere; the schedule builder only consumes them.
type ContentTemplateRepository struct {
	db *sqlx.DB
}

// NewContentTemplateRepository constructs the repository.
func NewContentTemplateRepository(db *sqlx.DB) *ContentTemplateRepository {
	return &ContentTemplateRepository{db: db}
}

const templateColumns = `id, course_id, week_number, content_type, title, content_data, is_active, created_at`

// FindByID returns a template by its ID.
func (r *ContentTemplateRepository) FindByID(ctx context.Context, id string) (*models.ContentTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_content_templates WHERE id = $1`, templateColumns)
	var template models.ContentTemplate
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		return nil, err
	}
	return &template, nil
}

// ListActiveByCourse returns the active templates for a course ordered by week.
func (r *ContentTemplateRepository) ListActiveByCourse(ctx context.Context, courseID string) ([]models.ContentTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_content_templates WHERE course_id = $1 AND is_active = TRUE ORDER BY week_number ASC, title ASC`, templateColumns)
	var templates []models.ContentTemplate
	if err := r.db.SelectContext(ctx, &templates, query, courseID); err != nil {
		return nil, fmt.Errorf("list course templates: %w", err)
	}
	return templates, nil
}
