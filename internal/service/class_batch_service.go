package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin-api/internal/models"
	"github.com/noah-isme/academy-admin-api/pkg/config"
	appErrors "github.com/noah-isme/academy-admin-api/pkg/errors"
)

type classBatchRepository interface {
	List(ctx context.Context, filter models.ClassBatchFilter) ([]models.ClassBatchDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ClassBatch, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassBatchDetail, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	CountActiveEnrollments(ctx context.Context, classID string) (int, error)
	Create(ctx context.Context, batch *models.ClassBatch) error
	Update(ctx context.Context, batch *models.ClassBatch) error
}

type periodResolver interface {
	Resolve(ctx context.Context, periodID string, current models.BatchStatus) (*models.ResolvedPeriod, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type batchCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

var batchCodePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ClassBatchRequest is the payload for creating or updating a class batch.
type ClassBatchRequest struct {
	BatchCode        string             `json:"batch_code" validate:"required"`
	Name             string             `json:"name" validate:"required"`
	Description      string             `json:"description"`
	CourseID         string             `json:"course_id" validate:"required"`
	InstructorID     *string            `json:"instructor_id"`
	MaxStudents      int                `json:"max_students" validate:"required,gte=1,lte=100"`
	Schedule         string             `json:"schedule"`
	MeetingLink      *string            `json:"meeting_link" validate:"omitempty,url"`
	ProgramType      models.ProgramType `json:"program_type" validate:"required,oneof=ONLINE ONSITE SCHOOL"`
	AcademicPeriodID string             `json:"academic_period_id" validate:"required"`
	// Status requests an explicit admin transition into a terminal state.
	// Automatic SCHEDULED/ONGOING movement comes from period resolution.
	Status *models.BatchStatus `json:"status" validate:"omitempty,oneof=COMPLETED CANCELLED"`
}

// ClassBatchService coordinates the class batch lifecycle.
type ClassBatchService struct {
	repo      classBatchRepository
	periods   periodResolver
	courses   courseReader
	users     userReader
	audit     auditRecorder
	cache     batchCache
	cacheCfg  config.CacheConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassBatchService constructs ClassBatchService.
func NewClassBatchService(repo classBatchRepository, periods periodResolver, courses courseReader, users userReader, audit auditRecorder, cache batchCache, cacheCfg config.CacheConfig, validate *validator.Validate, logger *zap.Logger) *ClassBatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassBatchService{repo: repo, periods: periods, courses: courses, users: users, audit: audit, cache: cache, cacheCfg: cacheCfg, validator: validate, logger: logger}
}

// List returns batch views with pagination metadata.
func (s *ClassBatchService) List(ctx context.Context, filter models.ClassBatchFilter) ([]models.ClassBatchDetail, *models.Pagination, error) {
	batches, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class batches")
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
	return batches, pagination, nil
}

// Get returns the full joined view of one batch, served from cache when warm.
func (s *ClassBatchService) Get(ctx context.Context, id string) (*models.ClassBatchDetail, error) {
	cacheKey := batchDetailCacheKey(id)
	if s.cache != nil && s.cacheCfg.Enabled {
		var cached models.ClassBatchDetail
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class batch")
	}

	if s.cache != nil && s.cacheCfg.Enabled {
		if err := s.cache.Set(ctx, cacheKey, detail, s.cacheCfg.BatchTTL); err != nil {
			s.logger.Warn("failed to cache class batch detail", zap.Error(err))
		}
	}
	return detail, nil
}

// Create validates and persists a new class batch.
func (s *ClassBatchService) Create(ctx context.Context, req ClassBatchRequest, actor *models.JWTClaims) (*models.ClassBatch, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByCode(ctx, req.BatchCode, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check batch code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("batch code %q already exists", req.BatchCode))
	}

	if err := s.checkReferences(ctx, req); err != nil {
		return nil, err
	}

	resolved, err := s.periods.Resolve(ctx, req.AcademicPeriodID, "")
	if err != nil {
		return nil, err
	}

	batch := &models.ClassBatch{
		BatchCode:        req.BatchCode,
		Name:             req.Name,
		Description:      req.Description,
		CourseID:         req.CourseID,
		InstructorID:     req.InstructorID,
		MaxStudents:      req.MaxStudents,
		Schedule:         req.Schedule,
		MeetingLink:      req.MeetingLink,
		ProgramType:      req.ProgramType,
		AcademicPeriodID: req.AcademicPeriodID,
	}
	resolved.Apply(batch)

	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class batch")
	}

	s.recordAudit(ctx, actor, models.AuditActionBatchCreate, batch.ID, nil, map[string]interface{}{
		"batch_code": batch.BatchCode,
		"status":     batch.Status,
	})
	s.invalidateCache(ctx, batch.ID)
	return batch, nil
}

// Update validates and applies changes to an existing batch. Batches in a
// terminal status refuse edits entirely.
func (s *ClassBatchService) Update(ctx context.Context, id string, req ClassBatchRequest, actor *models.JWTClaims) (*models.ClassBatch, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class batch")
	}
	if batch.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrFinalized, fmt.Sprintf("class batch is %s and can no longer be edited", batch.Status))
	}

	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByCode(ctx, req.BatchCode, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check batch code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("batch code %q already exists", req.BatchCode))
	}

	if err := s.checkReferences(ctx, req); err != nil {
		return nil, err
	}

	activeCount, err := s.repo.CountActiveEnrollments(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if req.MaxStudents < activeCount {
		return nil, appErrors.Validation(fmt.Sprintf("max_students cannot be below the current active enrollment count (%d)", activeCount))
	}
	if req.AcademicPeriodID != batch.AcademicPeriodID && activeCount > 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "academic period cannot be changed while students are enrolled")
	}

	resolved, err := s.periods.Resolve(ctx, req.AcademicPeriodID, batch.Status)
	if err != nil {
		return nil, err
	}

	oldPeriodID := batch.AcademicPeriodID
	oldStatus := batch.Status
	oldInstructor := batch.InstructorID

	batch.BatchCode = req.BatchCode
	batch.Name = req.Name
	batch.Description = req.Description
	batch.CourseID = req.CourseID
	batch.InstructorID = req.InstructorID
	batch.MaxStudents = req.MaxStudents
	batch.Schedule = req.Schedule
	batch.MeetingLink = req.MeetingLink
	batch.ProgramType = req.ProgramType
	batch.AcademicPeriodID = req.AcademicPeriodID
	resolved.Apply(batch)

	if req.Status != nil {
		batch.Status = *req.Status
	}

	if err := s.repo.Update(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class batch")
	}

	s.recordAudit(ctx, actor, models.AuditActionBatchUpdate, batch.ID, nil, map[string]interface{}{
		"batch_code": batch.BatchCode,
	})
	if oldPeriodID != batch.AcademicPeriodID {
		s.recordAudit(ctx, actor, models.AuditActionBatchPeriodChange, batch.ID,
			map[string]interface{}{"academic_period_id": oldPeriodID},
			map[string]interface{}{"academic_period_id": batch.AcademicPeriodID})
	}
	if oldStatus != batch.Status {
		s.recordAudit(ctx, actor, models.AuditActionBatchStatusChange, batch.ID,
			map[string]interface{}{"status": oldStatus},
			map[string]interface{}{"status": batch.Status})
	}
	if !equalStringPtr(oldInstructor, batch.InstructorID) {
		s.recordAudit(ctx, actor, models.AuditActionBatchInstructorChange, batch.ID,
			map[string]interface{}{"instructor_id": oldInstructor},
			map[string]interface{}{"instructor_id": batch.InstructorID})
	}

	s.invalidateCache(ctx, batch.ID)
	return batch, nil
}

func (s *ClassBatchService) validateRequest(req ClassBatchRequest) error {
	var details []string
	if err := s.validator.Struct(req); err != nil {
		details = validationDetails(err)
	}
	if req.BatchCode != "" && !batchCodePattern.MatchString(req.BatchCode) {
		details = append(details, "batch_code may only contain letters, digits and dashes")
	}
	if len(details) > 0 {
		return appErrors.Validation(details...)
	}
	return nil
}

func (s *ClassBatchService) checkReferences(ctx context.Context, req ClassBatchRequest) error {
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if req.InstructorID != nil && *req.InstructorID != "" {
		instructor, err := s.users.FindByID(ctx, *req.InstructorID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
		}
		if instructor.Role != models.RoleInstructor {
			return appErrors.Validation("instructor_id must reference a user with the instructor role")
		}
	}
	return nil
}

func (s *ClassBatchService) recordAudit(ctx context.Context, actor *models.JWTClaims, action, batchID string, oldValues, newValues map[string]interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: "class_batches", ResourceID: &batchID}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *ClassBatchService) invalidateCache(ctx context.Context, batchID string) {
	if s.cache == nil || !s.cacheCfg.Enabled {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, batchDetailCacheKey(batchID)); err != nil {
		s.logger.Warn("failed to invalidate batch cache", zap.Error(err))
	}
}

func batchDetailCacheKey(id string) string {
	return "class_batches:detail:" + id
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
