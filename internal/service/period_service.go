package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin-api/internal/models"
	appErrors "github.com/noah-isme/academy-admin-api/pkg/errors"
)

type periodRepository interface {
	FindByID(ctx context.Context, id string) (*models.AcademicPeriod, error)
	List(ctx context.Context, filter models.AcademicPeriodFilter) ([]models.AcademicPeriod, int, error)
}

// PeriodService resolves academic periods into batch fields.
type PeriodService struct {
	repo   periodRepository
	logger *zap.Logger
}

// NewPeriodService constructs PeriodService.
func NewPeriodService(repo periodRepository, logger *zap.Logger) *PeriodService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{repo: repo, logger: logger}
}

// List returns academic periods for admin forms.
func (s *PeriodService) List(ctx context.Context, filter models.AcademicPeriodFilter) ([]models.AcademicPeriod, *models.Pagination, error) {
	periods, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic periods")
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
	return periods, pagination, nil
}

// Resolve fetches the period and derives the fields a batch copies from it.
// Only the pairings {ONSITE,TERM}, {SCHOOL,TERM} and {ONLINE,BLOCK} are
// recognized; anything else is rejected outright rather than producing a
// batch with neither term nor block populated. The derived status never
// downgrades a terminal batch status.
func (s *PeriodService) Resolve(ctx context.Context, periodID string, current models.BatchStatus) (*models.ResolvedPeriod, error) {
	period, err := s.repo.FindByID(ctx, periodID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic period")
	}

	resolved := &models.ResolvedPeriod{
		StartDate:     period.StartDate,
		EndDate:       period.EndDate,
		AcademicYear:  period.AcademicYear,
		DurationWeeks: period.DurationWeeks,
	}

	switch {
	case period.PeriodType == models.PeriodTypeTerm &&
		(period.ProgramType == models.ProgramTypeOnsite || period.ProgramType == models.ProgramTypeSchool):
		number := period.PeriodNumber
		name := period.PeriodName
		resolved.TermNumber = &number
		resolved.TermName = &name
	case period.PeriodType == models.PeriodTypeBlock && period.ProgramType == models.ProgramTypeOnline:
		number := period.PeriodNumber
		name := period.PeriodName
		resolved.BlockNumber = &number
		resolved.BlockName = &name
	default:
		s.logger.Warn("rejected period combination",
			zap.String("period_id", periodID),
			zap.String("program_type", string(period.ProgramType)),
			zap.String("period_type", string(period.PeriodType)))
		return nil, appErrors.Clone(appErrors.ErrUnsupportedPeriodCombination, "")
	}

	switch {
	case current.Terminal():
		resolved.Status = current
	case period.Status == models.PeriodStatusActive:
		resolved.Status = models.BatchStatusOngoing
	default:
		resolved.Status = models.BatchStatusScheduled
	}

	return resolved, nil
}
