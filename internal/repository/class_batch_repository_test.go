package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-admin-api/internal/models"
)

func newBatchRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClassBatchRepositoryExistsByCode(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewClassBatchRepository(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM class_batches WHERE LOWER(batch_code) = LOWER($1) LIMIT 1")).
		WithArgs("GO-101-A").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByCode(context.Background(), "GO-101-A", "")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassBatchRepositoryExistsByCodeNoMatch(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewClassBatchRepository(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM class_batches WHERE LOWER(batch_code) = LOWER($1) LIMIT 1")).
		WithArgs("GO-999-Z").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsByCode(context.Background(), "GO-999-Z", "")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassBatchRepositoryExistsByCodeExcludesSelf(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewClassBatchRepository(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM class_batches WHERE LOWER(batch_code) = LOWER($1) AND id <> $2 LIMIT 1")).
		WithArgs("GO-101-A", "batch-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsByCode(context.Background(), "GO-101-A", "batch-1")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassBatchRepositoryCountActiveEnrollments(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewClassBatchRepository(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND status = $2")).
		WithArgs("class-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountActiveEnrollments(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassBatchRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewClassBatchRepository(db, nil)

	mock.ExpectExec("INSERT INTO class_batches").WillReturnResult(sqlmock.NewResult(1, 1))

	batch := &models.ClassBatch{
		BatchCode:        "GO-101-A",
		Name:             "Go Fundamentals Batch A",
		CourseID:         "course-1",
		MaxStudents:      30,
		ProgramType:      models.ProgramTypeOnsite,
		AcademicPeriodID: "period-1",
		StartDate:        time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC),
		AcademicYear:     "2026/2027",
		Status:           models.BatchStatusScheduled,
	}
	require.NoError(t, repo.Create(context.Background(), batch))
	assert.NotEmpty(t, batch.ID)
	assert.False(t, batch.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

type queryObserverRecorder struct {
	labels []string
}

func (o *queryObserverRecorder) ObserveDBQuery(label string, duration time.Duration) {
	o.labels = append(o.labels, label)
}

func TestClassBatchRepositoryFindDetailReportsQueryTiming(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	observer := &queryObserverRecorder{}
	repo := NewClassBatchRepository(db, observer)

	rows := sqlmock.NewRows([]string{"id", "batch_code", "name", "course_name", "active_students"}).
		AddRow("batch-1", "GO-101-A", "Go Fundamentals Batch A", "Go Fundamentals", 7)
	mock.ExpectQuery("SELECT (.+) FROM class_batches cb").
		WithArgs("batch-1").
		WillReturnRows(rows)

	detail, err := repo.FindDetailByID(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, "GO-101-A", detail.BatchCode)
	assert.Equal(t, []string{"class_batch_detail"}, observer.labels)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassBatchRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewClassBatchRepository(db, nil)

	mock.ExpectExec("UPDATE class_batches SET").WillReturnResult(sqlmock.NewResult(0, 1))

	batch := &models.ClassBatch{ID: "batch-1", BatchCode: "GO-101-A", Status: models.BatchStatusOngoing}
	require.NoError(t, repo.Update(context.Background(), batch))
	assert.False(t, batch.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
