package models

import "time"

// BatchStatus represents the lifecycle state of a class batch.
type BatchStatus string

const (
	BatchStatusScheduled BatchStatus = "SCHEDULED"
	BatchStatusOngoing   BatchStatus = "ONGOING"
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusCancelled BatchStatus = "CANCELLED"
)

// Terminal reports whether the status accepts no further transitions.
func (s BatchStatus) Terminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusCancelled
}

// ClassBatch is one offered run of a course with its own schedule,
// instructor and roster. Period fields (dates, term/block numbering,
// academic year) are denormalized from the linked academic period.
// Exactly one of the term/block pairs is populated depending on the
// program type. Batches are never deleted, only cancelled.
type ClassBatch struct {
	ID               string      `db:"id" json:"id"`
	BatchCode        string      `db:"batch_code" json:"batch_code"`
	Name             string      `db:"name" json:"name"`
	Description      string      `db:"description" json:"description"`
	CourseID         string      `db:"course_id" json:"course_id"`
	InstructorID     *string     `db:"instructor_id" json:"instructor_id,omitempty"`
	MaxStudents      int         `db:"max_students" json:"max_students"`
	Schedule         string      `db:"schedule" json:"schedule"`
	MeetingLink      *string     `db:"meeting_link" json:"meeting_link,omitempty"`
	ProgramType      ProgramType `db:"program_type" json:"program_type"`
	AcademicPeriodID string      `db:"academic_period_id" json:"academic_period_id"`
	StartDate        time.Time   `db:"start_date" json:"start_date"`
	EndDate          time.Time   `db:"end_date" json:"end_date"`
	TermNumber       *int        `db:"term_number" json:"term_number,omitempty"`
	TermName         *string     `db:"term_name" json:"term_name,omitempty"`
	BlockNumber      *int        `db:"block_number" json:"block_number,omitempty"`
	BlockName        *string     `db:"block_name" json:"block_name,omitempty"`
	AcademicYear     string      `db:"academic_year" json:"academic_year"`
	Status           BatchStatus `db:"status" json:"status"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// ClassBatchDetail enriches ClassBatch with joined view data for reads.
type ClassBatchDetail struct {
	ClassBatch
	CourseName      string  `db:"course_name" json:"course_name"`
	CourseCode      string  `db:"course_code" json:"course_code"`
	ProgramName     string  `db:"program_name" json:"program_name"`
	InstructorName  *string `db:"instructor_name" json:"instructor_name,omitempty"`
	PeriodName      string  `db:"period_name" json:"period_name"`
	ActiveStudents  int     `db:"active_students" json:"active_students"`
	ScheduledItems  int     `db:"scheduled_items" json:"scheduled_items"`
}

// ClassBatchFilter defines filter criteria for listing class batches.
type ClassBatchFilter struct {
	Status       BatchStatus
	ProgramID    string
	InstructorID string
	Search       string
	DateFrom     *time.Time
	DateTo       *time.Time
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
