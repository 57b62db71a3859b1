package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin-api/internal/models"
	"github.com/noah-isme/academy-admin-api/internal/repository"
	"github.com/noah-isme/academy-admin-api/pkg/config"
	appErrors "github.com/noah-isme/academy-admin-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindStatusForClass(ctx context.Context, studentID, classID string) (*models.EnrollmentStatus, error)
	CountActiveByClass(ctx context.Context, classID string) (int, error)
	CreateBatch(ctx context.Context, pairs []repository.EnrollmentWithFinancial) error
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassBatch, error)
}

type programFeeReader interface {
	FindProgramFeeByClass(ctx context.Context, classID string) (float64, error)
}

// EnrollStudentsRequest carries the candidate student ids for a class.
type EnrollStudentsRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
}

// EnrollmentResult reports the outcome of a batch enrollment. Per-student
// validation failures are collected as messages; they do not undo students
// admitted in the same call.
type EnrollmentResult struct {
	EnrolledCount int      `json:"enrolled_count"`
	Errors        []string `json:"errors"`
}

// EnrollmentService orchestrates student enrollment into class batches.
type EnrollmentService struct {
	repo      enrollmentRepository
	classes   classReader
	students  userReader
	fees      programFeeReader
	audit     auditRecorder
	cache     batchCache
	cacheCfg  config.CacheConfig
	maxBatch  int
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, classes classReader, students userReader, fees programFeeReader, audit auditRecorder, cache batchCache, cacheCfg config.CacheConfig, enrollCfg config.EnrollmentConfig, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBatch := enrollCfg.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = 100
	}
	return &EnrollmentService{repo: repo, classes: classes, students: students, fees: fees, audit: audit, cache: cache, cacheCfg: cacheCfg, maxBatch: maxBatch, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// EnrollBatch admits the given students into a class. Capacity is checked
// up front and again as the running total grows; individual failures skip
// only the affected student. All accumulated rows are written in a single
// transaction, so an unexpected database error enrolls nobody.
func (s *EnrollmentService) EnrollBatch(ctx context.Context, classID string, req EnrollStudentsRequest, actor *models.JWTClaims) (*EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(validationDetails(err)...)
	}
	if len(req.StudentIDs) > s.maxBatch {
		return nil, appErrors.Validation(fmt.Sprintf("cannot enroll more than %d students per request", s.maxBatch))
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class batch")
	}
	if class.Status == models.BatchStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot enroll students into a cancelled class batch")
	}

	activeCount, err := s.repo.CountActiveByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if activeCount >= class.MaxStudents {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("class is already at its maximum capacity of %d students", class.MaxStudents))
	}

	fee, err := s.fees.FindProgramFeeByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve program fee")
	}

	mode := models.AttendanceModeVirtual
	if class.ProgramType == models.ProgramTypeOnsite || class.ProgramType == models.ProgramTypeSchool {
		mode = models.AttendanceModePhysical
	}

	result := &EnrollmentResult{}
	seen := make(map[string]struct{}, len(req.StudentIDs))
	var pairs []repository.EnrollmentWithFinancial

	for _, studentID := range req.StudentIDs {
		if activeCount+len(pairs) >= class.MaxStudents {
			result.Errors = append(result.Errors, fmt.Sprintf("class capacity reached; enrolled %d of %d requested students", len(pairs), len(req.StudentIDs)))
			break
		}
		if _, dup := seen[studentID]; dup {
			result.Errors = append(result.Errors, fmt.Sprintf("student %s listed more than once", studentID))
			continue
		}
		seen[studentID] = struct{}{}

		student, err := s.students.FindByID(ctx, studentID)
		if err != nil {
			if err == sql.ErrNoRows {
				result.Errors = append(result.Errors, fmt.Sprintf("student %s not found", studentID))
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		if student.Role != models.RoleStudent {
			result.Errors = append(result.Errors, fmt.Sprintf("user %s is not a student", studentID))
			continue
		}
		if !student.Active {
			result.Errors = append(result.Errors, fmt.Sprintf("student %s is inactive", studentID))
			continue
		}

		existing, err := s.repo.FindStatusForClass(ctx, studentID, classID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
		}
		if existing != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("student %s is already enrolled in this class (status %s)", studentID, *existing))
			continue
		}

		pairs = append(pairs, repository.EnrollmentWithFinancial{
			Enrollment: models.Enrollment{
				StudentID:      studentID,
				ClassID:        classID,
				Status:         models.EnrollmentStatusActive,
				ProgramType:    class.ProgramType,
				AttendanceMode: mode,
			},
			Financial: models.StudentFinancialStatus{
				StudentID:    studentID,
				ClassID:      classID,
				TotalFee:     fee,
				PaidAmount:   0,
				Balance:      fee,
				CurrentBlock: 1,
			},
		})
	}

	if len(pairs) > 0 {
		if err := s.repo.CreateBatch(ctx, pairs); err != nil {
			switch {
			case errors.Is(err, repository.ErrCapacityExceeded):
				return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "class reached its maximum capacity before the enrollment was committed")
			case errors.Is(err, repository.ErrAlreadyEnrolled):
				return nil, appErrors.Clone(appErrors.ErrConflict, "a student was enrolled into this class by a concurrent request")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll students")
		}
	}
	result.EnrolledCount = len(pairs)

	if result.EnrolledCount > 0 {
		s.recordAudit(ctx, actor, classID, result.EnrolledCount)
		s.invalidateCache(ctx, classID)
	}
	return result, nil
}

func (s *EnrollmentService) recordAudit(ctx context.Context, actor *models.JWTClaims, classID string, enrolled int) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{Action: models.AuditActionEnrollmentCreate, Resource: "enrollments", ResourceID: &classID}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	entry.NewValues, _ = json.Marshal(map[string]interface{}{"class_id": classID, "enrolled_count": enrolled})
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record enrollment audit log", zap.Error(err))
	}
}

func (s *EnrollmentService) invalidateCache(ctx context.Context, classID string) {
	if s.cache == nil || !s.cacheCfg.Enabled {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, batchDetailCacheKey(classID)); err != nil {
		s.logger.Warn("failed to invalidate batch cache", zap.Error(err))
	}
}
