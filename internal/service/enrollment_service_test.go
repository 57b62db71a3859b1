package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin-api/internal/models"
	"github.com/noah-isme/academy-admin-api/internal/repository"
	"github.com/noah-isme/academy-admin-api/pkg/config"
	appErrors "github.com/noah-isme/academy-admin-api/pkg/errors"
)

type mockEnrollRepo struct {
	existing    map[string]models.EnrollmentStatus
	activeCount int
	created     []repository.EnrollmentWithFinancial
	createErr   error
}

func (m *mockEnrollRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollRepo) FindStatusForClass(ctx context.Context, studentID, classID string) (*models.EnrollmentStatus, error) {
	if status, ok := m.existing[studentID]; ok {
		return &status, nil
	}
	return nil, nil
}

func (m *mockEnrollRepo) CountActiveByClass(ctx context.Context, classID string) (int, error) {
	return m.activeCount, nil
}

func (m *mockEnrollRepo) CreateBatch(ctx context.Context, pairs []repository.EnrollmentWithFinancial) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, pairs...)
	return nil
}

type mockFeeReader struct {
	fee float64
}

func (m *mockFeeReader) FindProgramFeeByClass(ctx context.Context, classID string) (float64, error) {
	return m.fee, nil
}

func enrollmentTestClass(programType models.ProgramType, status models.BatchStatus, maxStudents int) *models.ClassBatch {
	return &models.ClassBatch{
		ID:          "class-1",
		BatchCode:   "GO-101-A",
		ProgramType: programType,
		Status:      status,
		MaxStudents: maxStudents,
	}
}

func newEnrollService(repo *mockEnrollRepo, class *models.ClassBatch, audit *recordingAudit) *EnrollmentService {
	batches := &mockBatchRepo{batches: map[string]*models.ClassBatch{class.ID: class}}
	students := &mockUserDirectory{users: map[string]*models.User{
		"stud-1":   {ID: "stud-1", Role: models.RoleStudent, Active: true},
		"stud-2":   {ID: "stud-2", Role: models.RoleStudent, Active: true},
		"stud-3":   {ID: "stud-3", Role: models.RoleStudent, Active: true},
		"inactive": {ID: "inactive", Role: models.RoleStudent, Active: false},
		"instr-1":  {ID: "instr-1", Role: models.RoleInstructor, Active: true},
	}}
	return NewEnrollmentService(repo, batches, students, &mockFeeReader{fee: 1500}, audit, nil, config.CacheConfig{}, config.EnrollmentConfig{MaxBatchSize: 100}, validator.New(), zap.NewNop())
}

func TestEnrollmentServiceEnrollBatch(t *testing.T) {
	repo := &mockEnrollRepo{}
	audit := &recordingAudit{}
	svc := newEnrollService(repo, enrollmentTestClass(models.ProgramTypeOnsite, models.BatchStatusOngoing, 30), audit)

	result, err := svc.EnrollBatch(context.Background(), "class-1", EnrollStudentsRequest{StudentIDs: []string{"stud-1", "stud-2"}}, &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.EnrolledCount)
	assert.Empty(t, result.Errors)
	require.Len(t, repo.created, 2)

	first := repo.created[0]
	assert.Equal(t, models.EnrollmentStatusActive, first.Enrollment.Status)
	assert.Equal(t, models.AttendanceModePhysical, first.Enrollment.AttendanceMode)
	assert.Equal(t, 1500.0, first.Financial.TotalFee)
	assert.Equal(t, 0.0, first.Financial.PaidAmount)
	assert.Equal(t, 1500.0, first.Financial.Balance)
	assert.Equal(t, 1, first.Financial.CurrentBlock)
	assert.Contains(t, audit.actions(), models.AuditActionEnrollmentCreate)
}

func TestEnrollmentServiceVirtualModeForOnline(t *testing.T) {
	repo := &mockEnrollRepo{}
	svc := newEnrollService(repo, enrollmentTestClass(models.ProgramTypeOnline, models.BatchStatusOngoing, 30), &recordingAudit{})

	_, err := svc.EnrollBatch(context.Background(), "class-1", EnrollStudentsRequest{StudentIDs: []string{"stud-1"}}, nil)
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, models.AttendanceModeVirtual, repo.created[0].Enrollment.AttendanceMode)
}

func TestEnrollmentServicePartialSuccess(t *testing.T) {
	repo := &mockEnrollRepo{existing: map[string]models.EnrollmentStatus{"stud-2": models.EnrollmentStatusActive}}
	svc := newEnrollService(repo, enrollmentTestClass(models.ProgramTypeOnsite, models.BatchStatusOngoing, 30), &recordingAudit{})

	result, err := svc.EnrollBatch(context.Background(), "class-1", EnrollStudentsRequest{StudentIDs: []string{"stud-1", "stud-2", "stud-3"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.EnrolledCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "stud-2")
	assert.Contains(t, result.Errors[0], "already enrolled")
}

func TestEnrollmentServiceStopsAtCapacity(t *testing.T) {
	repo := &mockEnrollRepo{activeCount: 28}
	svc := newEnrollService(repo, enrollmentTestClass(models.ProgramTypeOnsite, models.BatchStatusOngoing, 30), &recordingAudit{})

	result, err := svc.EnrollBatch(context.Background(), "class-1", EnrollStudentsRequest{StudentIDs: []string{"stud-1", "stud-2", "stud-3"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.EnrolledCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "capacity reached")
	assert.Contains(t, result.Errors[0], "enrolled 2 of 3")
}

func TestEnrollmentServiceRefusesFullClass(t *testing.T) {
	repo := &mockEnrollRepo{activeCount: 30}
	svc := newEnrollService(repo, enrollmentTestClass(models.ProgramTypeOnsite, models.BatchStatusOngoing, 30), &recordingAudit{})

	_, err := svc.EnrollBatch(context.Background(), "class-1", EnrollStudentsRequest{StudentIDs: []string{"stud-1"}}, nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestEnrollmentServiceRefusesCancelledClass(t *testing.T) {
	repo := &mockEnrollRepo{}
	svc := newEnrollService(repo, enrollmentTestClass(models.ProgramTypeOnsite, models.BatchStatusCancelled, 30), &recordingAudit{})

	_, err := svc.EnrollBatch(context.Background(), "class-1", EnrollStudentsRequest{StudentIDs: []string{"stud-1"}}, nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestEnrollmentServiceSkipsDuplicatesAndInvalidStudents(t *testing.T) {
	repo := &mockEnrollRepo{}
	svc := newEnrollService(repo, enrollmentTestClass(models.ProgramTypeOnsite, models.BatchStatusOngoing, 30), &recordingAudit{})

	result, err := svc.EnrollBatch(context.Background(), "class-1", EnrollStudentsRequest{
		StudentIDs: []string{"stud-1", "stud-1", "missing", "inactive", "instr-1"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.EnrolledCount)
	assert.Len(t, result.Errors, 4)
}

func TestEnrollmentServiceCapacityLostToConcurrentRequest(t *testing.T) {
	repo := &mockEnrollRepo{createErr: repository.ErrCapacityExceeded}
	svc := newEnrollService(repo, enrollmentTestClass(models.ProgramTypeOnsite, models.BatchStatusOngoing, 30), &recordingAudit{})

	_, err := svc.EnrollBatch(context.Background(), "class-1", EnrollStudentsRequest{StudentIDs: []string{"stud-1"}}, nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestEnrollmentServiceDuplicateFromConcurrentRequest(t *testing.T) {
	repo := &mockEnrollRepo{createErr: repository.ErrAlreadyEnrolled}
	svc := newEnrollService(repo, enrollmentTestClass(models.ProgramTypeOnsite, models.BatchStatusOngoing, 30), &recordingAudit{})

	_, err := svc.EnrollBatch(context.Background(), "class-1", EnrollStudentsRequest{StudentIDs: []string{"stud-1"}}, nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestEnrollmentServiceAllOrNothingOnDBError(t *testing.T) {
	repo := &mockEnrollRepo{createErr: errors.New("connection reset")}
	svc := newEnrollService(repo, enrollmentTestClass(models.ProgramTypeOnsite, models.BatchStatusOngoing, 30), &recordingAudit{})

	_, err := svc.EnrollBatch(context.Background(), "class-1", EnrollStudentsRequest{StudentIDs: []string{"stud-1", "stud-2"}}, nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.Empty(t, repo.created)
}
