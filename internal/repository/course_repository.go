package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-admin-api/internal/models"
)

// CourseRepository reads courses and their owning programs.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, program_id, name, code, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindProgramByCourse returns the program owning the given course.
func (r *CourseRepository) FindProgramByCourse(ctx context.Context, courseID string) (*models.Program, error) {
	const query = `SELECT p.id, p.name, p.type, p.fee, p.created_at, p.updated_at
        FROM programs p JOIN courses c ON c.program_id = p.id WHERE c.id = $1`
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, courseID); err != nil {
		return nil, err
	}
	return &program, nil
}

// FindProgramFeeByClass resolves the fee charged for enrollments into the
// class, walking class -> course -> program.
func (r *CourseRepository) FindProgramFeeByClass(ctx context.Context, classID string) (float64, error) {
	const query = `SELECT p.fee FROM programs p
        JOIN courses c ON c.program_id = p.id
        JOIN class_batches cb ON cb.course_id = c.id
        WHERE cb.id = $1`
	var fee float64
	if err := r.db.GetContext(ctx, &fee, query, classID); err != nil {
		return 0, fmt.Errorf("find program fee: %w", err)
	}
	return fee, nil
}
