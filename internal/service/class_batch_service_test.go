package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin-api/internal/models"
	"github.com/noah-isme/academy-admin-api/pkg/config"
	appErrors "github.com/noah-isme/academy-admin-api/pkg/errors"
)

type mockBatchRepo struct {
	batches     map[string]*models.ClassBatch
	codes       map[string]bool
	activeCount int
	created     *models.ClassBatch
	updated     *models.ClassBatch
}

func (m *mockBatchRepo) List(ctx context.Context, filter models.ClassBatchFilter) ([]models.ClassBatchDetail, int, error) {
	return nil, 0, nil
}

func (m *mockBatchRepo) FindByID(ctx context.Context, id string) (*models.ClassBatch, error) {
	if b, ok := m.batches[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBatchRepo) FindDetailByID(ctx context.Context, id string) (*models.ClassBatchDetail, error) {
	if b, ok := m.batches[id]; ok {
		return &models.ClassBatchDetail{ClassBatch: *b}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBatchRepo) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	return m.codes[code], nil
}

func (m *mockBatchRepo) CountActiveEnrollments(ctx context.Context, classID string) (int, error) {
	return m.activeCount, nil
}

func (m *mockBatchRepo) Create(ctx context.Context, batch *models.ClassBatch) error {
	batch.ID = "batch-new"
	m.created = batch
	return nil
}

func (m *mockBatchRepo) Update(ctx context.Context, batch *models.ClassBatch) error {
	m.updated = batch
	return nil
}

type stubResolver struct {
	resolved    *models.ResolvedPeriod
	err         error
	lastCurrent models.BatchStatus
}

func (s *stubResolver) Resolve(ctx context.Context, periodID string, current models.BatchStatus) (*models.ResolvedPeriod, error) {
	s.lastCurrent = current
	if s.err != nil {
		return nil, s.err
	}
	copied := *s.resolved
	if current.Terminal() {
		copied.Status = current
	}
	return &copied, nil
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockUserDirectory struct {
	users map[string]*models.User
}

func (m *mockUserDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type recordingAudit struct {
	logs []models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, *log)
	return nil
}

func (r *recordingAudit) actions() []string {
	var actions []string
	for _, l := range r.logs {
		actions = append(actions, l.Action)
	}
	return actions
}

func termResolved(status models.BatchStatus) *models.ResolvedPeriod {
	number := 1
	name := "Term 1"
	return &models.ResolvedPeriod{
		StartDate:     time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC),
		TermNumber:    &number,
		TermName:      &name,
		AcademicYear:  "2026/2027",
		DurationWeeks: 15,
		Status:        status,
	}
}

func validBatchRequest() ClassBatchRequest {
	return ClassBatchRequest{
		BatchCode:        "GO-101-A",
		Name:             "Go Fundamentals Batch A",
		CourseID:         "course-1",
		MaxStudents:      30,
		ProgramType:      models.ProgramTypeOnsite,
		AcademicPeriodID: "period-1",
	}
}

func newBatchService(repo *mockBatchRepo, resolver *stubResolver, audit *recordingAudit) *ClassBatchService {
	courses := &mockCourseReader{courses: map[string]*models.Course{"course-1": {ID: "course-1"}}}
	users := &mockUserDirectory{users: map[string]*models.User{
		"instr-1": {ID: "instr-1", Role: models.RoleInstructor, Active: true},
		"stud-1":  {ID: "stud-1", Role: models.RoleStudent, Active: true},
	}}
	return NewClassBatchService(repo, resolver, courses, users, audit, nil, config.CacheConfig{}, validator.New(), zap.NewNop())
}

func TestClassBatchServiceCreate(t *testing.T) {
	repo := &mockBatchRepo{}
	audit := &recordingAudit{}
	svc := newBatchService(repo, &stubResolver{resolved: termResolved(models.BatchStatusScheduled)}, audit)

	batch, err := svc.Create(context.Background(), validBatchRequest(), &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.BatchStatusScheduled, batch.Status)
	assert.Equal(t, "2026/2027", batch.AcademicYear)
	require.NotNil(t, batch.TermNumber)
	assert.Equal(t, 1, *batch.TermNumber)
	assert.Nil(t, batch.BlockNumber)
	assert.Contains(t, audit.actions(), models.AuditActionBatchCreate)
}

func TestClassBatchServiceCreateDuplicateCode(t *testing.T) {
	repo := &mockBatchRepo{codes: map[string]bool{"GO-101-A": true}}
	svc := newBatchService(repo, &stubResolver{resolved: termResolved(models.BatchStatusScheduled)}, &recordingAudit{})

	_, err := svc.Create(context.Background(), validBatchRequest(), nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Nil(t, repo.created)
}

func TestClassBatchServiceCreateRejectsBadCode(t *testing.T) {
	svc := newBatchService(&mockBatchRepo{}, &stubResolver{resolved: termResolved(models.BatchStatusScheduled)}, &recordingAudit{})

	req := validBatchRequest()
	req.BatchCode = "GO 101 A"
	_, err := svc.Create(context.Background(), req, nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestClassBatchServiceCreateRejectsNonInstructor(t *testing.T) {
	svc := newBatchService(&mockBatchRepo{}, &stubResolver{resolved: termResolved(models.BatchStatusScheduled)}, &recordingAudit{})

	req := validBatchRequest()
	studentID := "stud-1"
	req.InstructorID = &studentID
	_, err := svc.Create(context.Background(), req, nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestClassBatchServiceUpdateRefusesTerminal(t *testing.T) {
	repo := &mockBatchRepo{batches: map[string]*models.ClassBatch{
		"batch-1": {ID: "batch-1", Status: models.BatchStatusCompleted},
	}}
	svc := newBatchService(repo, &stubResolver{resolved: termResolved(models.BatchStatusScheduled)}, &recordingAudit{})

	_, err := svc.Update(context.Background(), "batch-1", validBatchRequest(), nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrFinalized.Code, appErr.Code)
	assert.Nil(t, repo.updated)
}

func TestClassBatchServiceUpdateRefusesCapacityBelowEnrolled(t *testing.T) {
	repo := &mockBatchRepo{
		batches: map[string]*models.ClassBatch{
			"batch-1": {ID: "batch-1", Status: models.BatchStatusOngoing, AcademicPeriodID: "period-1"},
		},
		activeCount: 25,
	}
	svc := newBatchService(repo, &stubResolver{resolved: termResolved(models.BatchStatusOngoing)}, &recordingAudit{})

	req := validBatchRequest()
	req.MaxStudents = 20
	_, err := svc.Update(context.Background(), "batch-1", req, nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "25")
}

func TestClassBatchServiceUpdateLocksPeriodWithEnrollments(t *testing.T) {
	repo := &mockBatchRepo{
		batches: map[string]*models.ClassBatch{
			"batch-1": {ID: "batch-1", Status: models.BatchStatusOngoing, AcademicPeriodID: "period-1"},
		},
		activeCount: 3,
	}
	svc := newBatchService(repo, &stubResolver{resolved: termResolved(models.BatchStatusOngoing)}, &recordingAudit{})

	req := validBatchRequest()
	req.AcademicPeriodID = "period-2"
	_, err := svc.Update(context.Background(), "batch-1", req, nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestClassBatchServiceUpdateExplicitCancel(t *testing.T) {
	repo := &mockBatchRepo{batches: map[string]*models.ClassBatch{
		"batch-1": {ID: "batch-1", Status: models.BatchStatusOngoing, AcademicPeriodID: "period-1"},
	}}
	audit := &recordingAudit{}
	svc := newBatchService(repo, &stubResolver{resolved: termResolved(models.BatchStatusOngoing)}, audit)

	req := validBatchRequest()
	cancelled := models.BatchStatusCancelled
	req.Status = &cancelled
	batch, err := svc.Update(context.Background(), "batch-1", req, &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusCancelled, batch.Status)
	assert.Contains(t, audit.actions(), models.AuditActionBatchStatusChange)
}
