package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin-api/internal/middleware"
	"github.com/noah-isme/academy-admin-api/internal/models"
	"github.com/noah-isme/academy-admin-api/internal/repository"
	"github.com/noah-isme/academy-admin-api/internal/service"
	"github.com/noah-isme/academy-admin-api/pkg/config"
)

type enrollmentRepoFake struct {
	listed  []models.EnrollmentDetail
	created int
}

func (f *enrollmentRepoFake) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return f.listed, len(f.listed), nil
}

func (f *enrollmentRepoFake) FindStatusForClass(ctx context.Context, studentID, classID string) (*models.EnrollmentStatus, error) {
	return nil, nil
}

func (f *enrollmentRepoFake) CountActiveByClass(ctx context.Context, classID string) (int, error) {
	return 0, nil
}

func (f *enrollmentRepoFake) CreateBatch(ctx context.Context, pairs []repository.EnrollmentWithFinancial) error {
	f.created += len(pairs)
	return nil
}

type classReaderFake struct {
	class *models.ClassBatch
}

func (f *classReaderFake) FindByID(ctx context.Context, id string) (*models.ClassBatch, error) {
	if f.class != nil && f.class.ID == id {
		copied := *f.class
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

type studentReaderFake struct{}

func (f *studentReaderFake) FindByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Role: models.RoleStudent, Active: true}, nil
}

type feeReaderFake struct{}

func (f *feeReaderFake) FindProgramFeeByClass(ctx context.Context, classID string) (float64, error) {
	return 2000, nil
}

type auditFake struct{}

func (f *auditFake) CreateAuditLog(ctx context.Context, log *models.AuditLog) error { return nil }

func newEnrollmentHandler(repo *enrollmentRepoFake, class *models.ClassBatch) *EnrollmentHandler {
	svc := service.NewEnrollmentService(repo, &classReaderFake{class: class}, &studentReaderFake{}, &feeReaderFake{}, &auditFake{}, nil, config.CacheConfig{}, config.EnrollmentConfig{MaxBatchSize: 100}, validator.New(), zap.NewNop())
	return NewEnrollmentHandler(svc)
}

func ongoingClass() *models.ClassBatch {
	return &models.ClassBatch{
		ID:          "class-1",
		BatchCode:   "GO-101-A",
		ProgramType: models.ProgramTypeOnsite,
		Status:      models.BatchStatusOngoing,
		MaxStudents: 30,
	}
}

func TestEnrollmentHandlerEnroll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &enrollmentRepoFake{}
	handler := newEnrollmentHandler(repo, ongoingClass())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.EnrollStudentsRequest{StudentIDs: []string{"stud-1", "stud-2"}})
	req, _ := http.NewRequest(http.MethodPost, "/class-batches/class-1/enrollments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Enroll(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			EnrolledCount int      `json:"enrolled_count"`
			Errors        []string `json:"errors"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data.EnrolledCount)
	assert.Empty(t, envelope.Data.Errors)
	assert.Equal(t, 2, repo.created)
}

func TestEnrollmentHandlerEnrollInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandler(&enrollmentRepoFake{}, ongoingClass())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/class-batches/class-1/enrollments", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	handler.Enroll(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerEnrollUnknownClass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandler(&enrollmentRepoFake{}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.EnrollStudentsRequest{StudentIDs: []string{"stud-1"}})
	req, _ := http.NewRequest(http.MethodPost, "/class-batches/missing/enrollments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Enroll(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnrollmentHandlerListByClass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &enrollmentRepoFake{listed: []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{ID: "enr-1", StudentID: "stud-1", ClassID: "class-1"}, StudentName: "Student One"},
	}}
	handler := newEnrollmentHandler(repo, ongoingClass())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/class-batches/class-1/enrollments?status=ACTIVE", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "class-1"}}

	handler.ListByClass(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data       []models.EnrollmentDetail `json:"data"`
		Pagination *models.Pagination        `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "Student One", envelope.Data[0].StudentName)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}
