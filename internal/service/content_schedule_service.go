package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin-api/internal/models"
	"github.com/noah-isme/academy-admin-api/pkg/config"
	appErrors "github.com/noah-isme/academy-admin-api/pkg/errors"
)

type contentScheduleRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.ContentScheduleDetail, error)
	Save(ctx context.Context, classID string, entries []models.ContentSchedule, overwrite bool) error
	Delete(ctx context.Context, scheduleID, classID string) (bool, error)
}

type templateReader interface {
	FindByID(ctx context.Context, id string) (*models.ContentTemplate, error)
	ListActiveByCourse(ctx context.Context, courseID string) ([]models.ContentTemplate, error)
}

// ScheduleEntryInput is one template placement submitted by the builder UI.
// Disabled entries and entries without a date are ignored; they only clear
// existing rows when the whole submission is an overwrite.
type ScheduleEntryInput struct {
	TemplateID  string `json:"template_id" validate:"required"`
	Enabled     bool   `json:"enabled"`
	PublishDate string `json:"publish_date" validate:"omitempty,datetime=2006-01-02"`
	PublishTime string `json:"publish_time" validate:"omitempty,datetime=15:04:05"`
}

// SaveScheduleRequest carries the full builder submission for one class.
type SaveScheduleRequest struct {
	Entries   []ScheduleEntryInput `json:"entries" validate:"dive"`
	Overwrite bool                 `json:"overwrite"`
}

// SaveScheduleResult reports how many entries were persisted. Warnings list
// soft violations (week mismatches) that were persisted anyway.
type SaveScheduleResult struct {
	ScheduledCount int      `json:"scheduled_count"`
	Warnings       []string `json:"warnings,omitempty"`
}

// ScheduleBuilderView feeds the drag-and-drop calendar: the class week
// grid, the course's template catalog and the already-persisted entries.
type ScheduleBuilderView struct {
	ClassID   string                         `json:"class_id"`
	StartDate time.Time                      `json:"start_date"`
	EndDate   time.Time                      `json:"end_date"`
	Weeks     []models.WeekBucket            `json:"weeks"`
	Templates []models.ContentTemplate       `json:"templates"`
	Scheduled []models.ContentScheduleDetail `json:"scheduled"`
}

// ContentScheduleService maps course content templates onto class calendars.
type ContentScheduleService struct {
	repo        contentScheduleRepository
	templates   templateReader
	classes     classReader
	audit       auditRecorder
	defaultTime string
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewContentScheduleService constructs ContentScheduleService.
func NewContentScheduleService(repo contentScheduleRepository, templates templateReader, classes classReader, audit auditRecorder, cfg config.SchedulingConfig, validate *validator.Validate, logger *zap.Logger) *ContentScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultTime := cfg.DefaultPublishTime
	if defaultTime == "" {
		defaultTime = "08:00:00"
	}
	return &ContentScheduleService{repo: repo, templates: templates, classes: classes, audit: audit, defaultTime: defaultTime, validator: validate, logger: logger}
}

// WeekBuckets splits the inclusive [start, end] range into calendar weeks.
// Week 1 starts on the class start date; the final week is clipped to the
// end date.
func WeekBuckets(start, end time.Time) []models.WeekBucket {
	start = dateOnly(start)
	end = dateOnly(end)
	if end.Before(start) {
		return nil
	}

	days := int(end.Sub(start).Hours()/24) + 1
	total := (days + 6) / 7

	buckets := make([]models.WeekBucket, 0, total)
	for i := 0; i < total; i++ {
		weekStart := start.AddDate(0, 0, i*7)
		weekEnd := weekStart.AddDate(0, 0, 6)
		if weekEnd.After(end) {
			weekEnd = end
		}
		buckets = append(buckets, models.WeekBucket{Number: i + 1, Start: weekStart, End: weekEnd})
	}
	return buckets
}

// GetBuilder assembles the builder view for a class.
func (s *ContentScheduleService) GetBuilder(ctx context.Context, classID string) (*ScheduleBuilderView, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	templates, err := s.templates.ListActiveByCourse(ctx, class.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content templates")
	}
	scheduled, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content schedules")
	}

	return &ScheduleBuilderView{
		ClassID:   class.ID,
		StartDate: class.StartDate,
		EndDate:   class.EndDate,
		Weeks:     WeekBuckets(class.StartDate, class.EndDate),
		Templates: templates,
		Scheduled: scheduled,
	}, nil
}

// SaveSchedule persists the submitted placements in one transaction. With
// overwrite set, the submitted enabled entries become the complete schedule
// for the class. Placements on a week other than the template's authored
// week are allowed but reported back as warnings.
func (s *ContentScheduleService) SaveSchedule(ctx context.Context, classID string, req SaveScheduleRequest, actor *models.JWTClaims) (*SaveScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(validationDetails(err)...)
	}

	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	buckets := WeekBuckets(class.StartDate, class.EndDate)

	result := &SaveScheduleResult{}
	var entries []models.ContentSchedule
	var details []string

	for _, input := range req.Entries {
		if !input.Enabled || input.PublishDate == "" {
			continue
		}

		template, err := s.templates.FindByID(ctx, input.TemplateID)
		if err != nil {
			if err == sql.ErrNoRows {
				details = append(details, fmt.Sprintf("content template %s not found", input.TemplateID))
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content template")
		}
		if template.CourseID != class.CourseID {
			details = append(details, fmt.Sprintf("content template %s does not belong to this course", input.TemplateID))
			continue
		}

		publishAt, err := s.parsePublishDateTime(input.PublishDate, input.PublishTime)
		if err != nil {
			details = append(details, fmt.Sprintf("invalid publish date for template %s", input.TemplateID))
			continue
		}
		day := dateOnly(publishAt)
		if day.Before(dateOnly(class.StartDate)) || day.After(dateOnly(class.EndDate)) {
			details = append(details, fmt.Sprintf("publish date %s for template %s falls outside the class date range", input.PublishDate, input.TemplateID))
			continue
		}

		if week := bucketFor(buckets, day); week != nil && week.Number != template.WeekNumber {
			result.Warnings = append(result.Warnings, fmt.Sprintf("template %q is authored for week %d but scheduled in week %d", template.Title, template.WeekNumber, week.Number))
		}

		entries = append(entries, models.ContentSchedule{
			ClassID:              classID,
			TemplateID:           input.TemplateID,
			ScheduledPublishDate: publishAt,
			Status:               models.ScheduleStatusScheduled,
		})
	}

	if len(details) > 0 {
		return nil, appErrors.Validation(details...)
	}

	if len(entries) > 0 || req.Overwrite {
		if err := s.repo.Save(ctx, classID, entries, req.Overwrite); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save content schedule")
		}
	}
	result.ScheduledCount = len(entries)

	s.recordAudit(ctx, actor, models.AuditActionScheduleSave, classID, map[string]interface{}{
		"scheduled_count": result.ScheduledCount,
		"overwrite":       req.Overwrite,
	})
	return result, nil
}

// RemoveSchedule deletes a single schedule entry scoped to its class.
func (s *ContentScheduleService) RemoveSchedule(ctx context.Context, scheduleID, classID string, actor *models.JWTClaims) error {
	deleted, err := s.repo.Delete(ctx, scheduleID, classID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove content schedule")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found for this class")
	}

	s.recordAudit(ctx, actor, models.AuditActionScheduleRemove, classID, map[string]interface{}{
		"schedule_id": scheduleID,
	})
	return nil
}

func (s *ContentScheduleService) loadClass(ctx context.Context, classID string) (*models.ClassBatch, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class batch")
	}
	return class, nil
}

func (s *ContentScheduleService) parsePublishDateTime(date, clock string) (time.Time, error) {
	if clock == "" {
		clock = s.defaultTime
	}
	return time.ParseInLocation("2006-01-02 15:04:05", date+" "+clock, time.UTC)
}

func (s *ContentScheduleService) recordAudit(ctx context.Context, actor *models.JWTClaims, action, classID string, values map[string]interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: "class_content_schedules", ResourceID: &classID}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	entry.NewValues, _ = json.Marshal(values)
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record schedule audit log", zap.String("action", action), zap.Error(err))
	}
}

func bucketFor(buckets []models.WeekBucket, day time.Time) *models.WeekBucket {
	for i := range buckets {
		if buckets[i].Contains(day) {
			return &buckets[i]
		}
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
