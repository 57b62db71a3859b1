package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-admin-api/internal/models"
)

// ContentScheduleRepository persists per-class content schedule entries.
type ContentScheduleRepository struct {
	db *sqlx.DB
}

// NewContentScheduleRepository constructs the repository.
func NewContentScheduleRepository(db *sqlx.DB) *ContentScheduleRepository {
	return &ContentScheduleRepository{db: db}
}

// ListByClass returns schedule entries for a class joined with template info.
func (r *ContentScheduleRepository) ListByClass(ctx context.Context, classID string) ([]models.ContentScheduleDetail, error) {
	const query = `SELECT cs.id, cs.class_id, cs.template_id, cs.scheduled_publish_date, cs.status, cs.created_at, cs.updated_at,
        t.week_number, t.content_type, t.title
        FROM class_content_schedules cs
        JOIN course_content_templates t ON t.id = cs.template_id
        WHERE cs.class_id = $1
        ORDER BY cs.scheduled_publish_date ASC`
	var schedules []models.ContentScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, classID); err != nil {
		return nil, fmt.Errorf("list content schedules: %w", err)
	}
	return schedules, nil
}

// Save writes the provided entries in one transaction. With overwrite set,
// every existing row for the class is removed first, so the submitted set
// becomes the complete schedule. Entries upsert on (class_id, template_id),
// backed by the unique index on that pair.
func (r *ContentScheduleRepository) Save(ctx context.Context, classID string, entries []models.ContentSchedule, overwrite bool) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if overwrite {
		if _, err = tx.ExecContext(ctx, `DELETE FROM class_content_schedules WHERE class_id = $1`, classID); err != nil {
			return fmt.Errorf("clear content schedules: %w", err)
		}
	}

	now := time.Now().UTC()
	for i := range entries {
		entry := entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.ClassID = classID
		if entry.Status == "" {
			entry.Status = models.ScheduleStatusScheduled
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.UpdatedAt = now

		if _, err = tx.NamedExecContext(ctx, `INSERT INTO class_content_schedules (id, class_id, template_id, scheduled_publish_date, status, created_at, updated_at)
            VALUES (:id, :class_id, :template_id, :scheduled_publish_date, :status, :created_at, :updated_at)
            ON CONFLICT (class_id, template_id) DO UPDATE
            SET scheduled_publish_date = EXCLUDED.scheduled_publish_date, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`, &entry); err != nil {
			return fmt.Errorf("upsert content schedule: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule save: %w", err)
	}
	return nil
}

// Delete removes the single entry matching both the schedule and class IDs.
// It reports whether a row was actually deleted.
func (r *ContentScheduleRepository) Delete(ctx context.Context, scheduleID, classID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM class_content_schedules WHERE id = $1 AND class_id = $2`, scheduleID, classID)
	if err != nil {
		return false, fmt.Errorf("delete content schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete content schedule: %w", err)
	}
	return affected > 0, nil
}
