package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academy-admin-api/internal/models"
)

var (
	// ErrCapacityExceeded is returned when the locked class row no longer has
	// room for the requested enrollments.
	ErrCapacityExceeded = errors.New("class capacity exceeded")
	// ErrAlreadyEnrolled is returned when the partial unique index on
	// occupying (student_id, class_id) pairs rejects an insert.
	ErrAlreadyEnrolled = errors.New("student already enrolled in class")
)

// EnrollmentRepository handles persistence of enrollments and their paired
// financial status records.
type EnrollmentRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewEnrollmentRepository constructs the repository. The observer may be nil.
func NewEnrollmentRepository(db *sqlx.DB, observer QueryObserver) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, observer: observer}
}

func (r *EnrollmentRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	defer r.observe("enrollment_list", time.Now())
	base := `FROM enrollments e
LEFT JOIN users s ON s.id = e.student_id
LEFT JOIN class_batches cb ON cb.id = e.class_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("e.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrollment_date": "e.enrollment_date",
		"student_name":    "s.full_name",
		"batch_code":      "cb.batch_code",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.enrollment_date"
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

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.class_id, e.enrollment_date, e.status, e.program_type,
        e.attendance_mode, e.final_grade, e.completion_date,
        s.full_name AS student_name, s.email AS student_email,
        cb.batch_code AS batch_code, cb.name AS batch_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindStatusForClass returns the status of an existing enrollment for the
// (student, class) pair among roster-occupying rows, or nil when none exists.
func (r *EnrollmentRepository) FindStatusForClass(ctx context.Context, studentID, classID string) (*models.EnrollmentStatus, error) {
	const query = `SELECT status FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status IN ($3, $4) LIMIT 1`
	var status models.EnrollmentStatus
	if err := r.db.GetContext(ctx, &status, query, studentID, classID, models.EnrollmentStatusActive, models.EnrollmentStatusCompleted); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("check existing enrollment: %w", err)
	}
	return &status, nil
}

// CountActiveByClass returns how many active enrollments a class holds.
func (r *EnrollmentRepository) CountActiveByClass(ctx context.Context, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}

// EnrollmentWithFinancial pairs the two rows written per admitted student.
type EnrollmentWithFinancial struct {
	Enrollment models.Enrollment
	Financial  models.StudentFinancialStatus
}

// CreateBatch inserts all enrollment and financial status rows in a single
// transaction. The class row is locked and the active count re-checked inside
// the transaction, so two requests racing past the service-level count cannot
// overshoot max_students. Duplicate (student_id, class_id) pairs among
// occupying statuses are rejected by a partial unique index and surface as
// ErrAlreadyEnrolled. Any failure rolls back the whole batch.
func (r *EnrollmentRepository) CreateBatch(ctx context.Context, pairs []EnrollmentWithFinancial) error {
	if len(pairs) == 0 {
		return nil
	}
	classID := pairs[0].Enrollment.ClassID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var maxStudents int
	if err = tx.GetContext(ctx, &maxStudents, `SELECT max_students FROM class_batches WHERE id = $1 FOR UPDATE`, classID); err != nil {
		return fmt.Errorf("lock class batch: %w", err)
	}
	var active int
	if err = tx.GetContext(ctx, &active, `SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND status = $2`, classID, models.EnrollmentStatusActive); err != nil {
		return fmt.Errorf("recount active enrollments: %w", err)
	}
	if active+len(pairs) > maxStudents {
		err = fmt.Errorf("class %s holds %d of %d active enrollments: %w", classID, active, maxStudents, ErrCapacityExceeded)
		return err
	}

	now := time.Now().UTC()
	for i := range pairs {
		enrollment := &pairs[i].Enrollment
		financial := &pairs[i].Financial

		if enrollment.ID == "" {
			enrollment.ID = uuid.NewString()
		}
		if enrollment.EnrollmentDate.IsZero() {
			enrollment.EnrollmentDate = now
		}
		if enrollment.Status == "" {
			enrollment.Status = models.EnrollmentStatusActive
		}
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO enrollments (id, student_id, class_id, enrollment_date, status, program_type, attendance_mode, final_grade, completion_date)
            VALUES (:id, :student_id, :class_id, :enrollment_date, :status, :program_type, :attendance_mode, :final_grade, :completion_date)`, enrollment); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				err = fmt.Errorf("student %s: %w", enrollment.StudentID, ErrAlreadyEnrolled)
				return err
			}
			return fmt.Errorf("insert enrollment: %w", err)
		}

		if financial.ID == "" {
			financial.ID = uuid.NewString()
		}
		if financial.CreatedAt.IsZero() {
			financial.CreatedAt = now
		}
		financial.StudentID = enrollment.StudentID
		financial.ClassID = enrollment.ClassID
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO student_financial_status (id, student_id, class_id, total_fee, paid_amount, balance, current_block, is_cleared, is_suspended, created_at)
            VALUES (:id, :student_id, :class_id, :total_fee, :paid_amount, :balance, :current_block, :is_cleared, :is_suspended, :created_at)`, financial); err != nil {
			return fmt.Errorf("insert financial status: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment batch: %w", err)
	}
	return nil
}
