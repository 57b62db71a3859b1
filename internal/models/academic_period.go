package models

import "time"

// PeriodType separates term-based and block-based calendars.
type PeriodType string

const (
	PeriodTypeTerm  PeriodType = "TERM"
	PeriodTypeBlock PeriodType = "BLOCK"
)

// PeriodStatus tracks the lifecycle of an academic period.
type PeriodStatus string

const (
	PeriodStatusUpcoming  PeriodStatus = "UPCOMING"
	PeriodStatusActive    PeriodStatus = "ACTIVE"
	PeriodStatusCompleted PeriodStatus = "COMPLETED"
)

// AcademicPeriod is an administrator-defined term or block with fixed dates.
// It is read-only from the batch's perspective; resolved fields are copied
// into the class batch row at create/edit time.
type AcademicPeriod struct {
	ID            string       `db:"id" json:"id"`
	ProgramType   ProgramType  `db:"program_type" json:"program_type"`
	PeriodType    PeriodType   `db:"period_type" json:"period_type"`
	PeriodNumber  int          `db:"period_number" json:"period_number"`
	PeriodName    string       `db:"period_name" json:"period_name"`
	AcademicYear  string       `db:"academic_year" json:"academic_year"`
	StartDate     time.Time    `db:"start_date" json:"start_date"`
	EndDate       time.Time    `db:"end_date" json:"end_date"`
	DurationWeeks int          `db:"duration_weeks" json:"duration_weeks"`
	Status        PeriodStatus `db:"status" json:"status"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// ResolvedPeriod holds the denormalized fields copied onto a class batch
// when its academic period is resolved at create/edit time. Exactly one of
// the term/block pairs is populated.
type ResolvedPeriod struct {
	StartDate     time.Time
	EndDate       time.Time
	TermNumber    *int
	TermName      *string
	BlockNumber   *int
	BlockName     *string
	AcademicYear  string
	DurationWeeks int
	Status        BatchStatus
}

// Apply copies the resolved fields onto the batch.
func (p *ResolvedPeriod) Apply(batch *ClassBatch) {
	batch.StartDate = p.StartDate
	batch.EndDate = p.EndDate
	batch.TermNumber = p.TermNumber
	batch.TermName = p.TermName
	batch.BlockNumber = p.BlockNumber
	batch.BlockName = p.BlockName
	batch.AcademicYear = p.AcademicYear
	batch.Status = p.Status
}

// AcademicPeriodFilter defines filters supported by period list endpoints.
type AcademicPeriodFilter struct {
	ProgramType  ProgramType
	Status       PeriodStatus
	AcademicYear string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
