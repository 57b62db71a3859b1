package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-admin-api/internal/models"
)

// QueryObserver receives timings for the heavier composed queries.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// ClassBatchRepository manages persistence for class batches.
type ClassBatchRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewClassBatchRepository constructs the repository. The observer may be nil.
func NewClassBatchRepository(db *sqlx.DB, observer QueryObserver) *ClassBatchRepository {
	return &ClassBatchRepository{db: db, observer: observer}
}

func (r *ClassBatchRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}

const batchColumns = `cb.id, cb.batch_code, cb.name, cb.description, cb.course_id, cb.instructor_id,
        cb.max_students, cb.schedule, cb.meeting_link, cb.program_type, cb.academic_period_id,
        cb.start_date, cb.end_date, cb.term_number, cb.term_name, cb.block_number, cb.block_name,
        cb.academic_year, cb.status, cb.created_at, cb.updated_at`

// List returns joined batch views matching the filter.
func (r *ClassBatchRepository) List(ctx context.Context, filter models.ClassBatchFilter) ([]models.ClassBatchDetail, int, error) {
	defer r.observe("class_batch_list", time.Now())
	base := `FROM class_batches cb
JOIN courses co ON co.id = cb.course_id
JOIN programs p ON p.id = co.program_id
LEFT JOIN users u ON u.id = cb.instructor_id
JOIN academic_periods ap ON ap.id = cb.academic_period_id`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("cb.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("p.id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("cb.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(cb.batch_code) LIKE $%d OR LOWER(cb.name) LIKE $%d OR LOWER(co.name) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("cb.start_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("cb.start_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"batch_code": "cb.batch_code",
		"name":       "cb.name",
		"start_date": "cb.start_date",
		"status":     "cb.status",
		"created_at": "cb.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "cb.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s,
        co.name AS course_name, co.code AS course_code, p.name AS program_name,
        u.full_name AS instructor_name, ap.period_name AS period_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.class_id = cb.id AND e.status = 'ACTIVE') AS active_students,
        (SELECT COUNT(*) FROM class_content_schedules cs WHERE cs.class_id = cb.id) AS scheduled_items
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, batchColumns, base+clause, orderBy, order, size, offset)

	var batches []models.ClassBatchDetail
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list class batches: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count class batches: %w", err)
	}
	return batches, total, nil
}

// FindByID returns a class batch by its ID.
func (r *ClassBatchRepository) FindByID(ctx context.Context, id string) (*models.ClassBatch, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_batches cb WHERE cb.id = $1`, batchColumns)
	var batch models.ClassBatch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindDetailByID returns the full joined view of one batch.
func (r *ClassBatchRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassBatchDetail, error) {
	defer r.observe("class_batch_detail", time.Now())
	query := fmt.Sprintf(`SELECT %s,
        co.name AS course_name, co.code AS course_code, p.name AS program_name,
        u.full_name AS instructor_name, ap.period_name AS period_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.class_id = cb.id AND e.status = 'ACTIVE') AS active_students,
        (SELECT COUNT(*) FROM class_content_schedules cs WHERE cs.class_id = cb.id) AS scheduled_items
        FROM class_batches cb
        JOIN courses co ON co.id = cb.course_id
        JOIN programs p ON p.id = co.program_id
        LEFT JOIN users u ON u.id = cb.instructor_id
        JOIN academic_periods ap ON ap.id = cb.academic_period_id
        WHERE cb.id = $1`, batchColumns)
	var detail models.ClassBatchDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByCode checks batch code uniqueness, optionally excluding one row.
func (r *ClassBatchRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM class_batches WHERE LOWER(batch_code) = LOWER($1)"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check batch code: %w", err)
	}
	return true, nil
}

// CountActiveEnrollments returns the number of active enrollments for a class.
func (r *ClassBatchRepository) CountActiveEnrollments(ctx context.Context, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}

// Create persists a class batch. The batch_code column carries a unique
// index so concurrent creates with the same code fail at commit instead
// of racing past the uniqueness check.
func (r *ClassBatchRepository) Create(ctx context.Context, batch *models.ClassBatch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	const query = `INSERT INTO class_batches (id, batch_code, name, description, course_id, instructor_id,
        max_students, schedule, meeting_link, program_type, academic_period_id,
        start_date, end_date, term_number, term_name, block_number, block_name,
        academic_year, status, created_at, updated_at)
        VALUES (:id, :batch_code, :name, :description, :course_id, :instructor_id,
        :max_students, :schedule, :meeting_link, :program_type, :academic_period_id,
        :start_date, :end_date, :term_number, :term_name, :block_number, :block_name,
        :academic_year, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create class batch: %w", err)
	}
	return nil
}

// Update modifies a class batch.
func (r *ClassBatchRepository) Update(ctx context.Context, batch *models.ClassBatch) error {
	batch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_batches SET batch_code = :batch_code, name = :name, description = :description,
        course_id = :course_id, instructor_id = :instructor_id, max_students = :max_students,
        schedule = :schedule, meeting_link = :meeting_link, program_type = :program_type,
        academic_period_id = :academic_period_id, start_date = :start_date, end_date = :end_date,
        term_number = :term_number, term_name = :term_name, block_number = :block_number,
        block_name = :block_name, academic_year = :academic_year, status = :status,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("update class batch: %w", err)
	}
	return nil
}
