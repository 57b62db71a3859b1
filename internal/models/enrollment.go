package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusDropped   EnrollmentStatus = "DROPPED"
)

// Occupying reports whether the status counts against the class roster.
// A student may not hold two ACTIVE/COMPLETED rows for the same class.
func (s EnrollmentStatus) Occupying() bool {
	return s == EnrollmentStatusActive || s == EnrollmentStatusCompleted
}

// AttendanceMode is derived from the class program type at enroll time.
type AttendanceMode string

const (
	AttendanceModeVirtual  AttendanceMode = "VIRTUAL"
	AttendanceModePhysical AttendanceMode = "PHYSICAL"
)

// Enrollment links one student to one class batch.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	ClassID        string           `db:"class_id" json:"class_id"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"enrollment_date"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	ProgramType    ProgramType      `db:"program_type" json:"program_type"`
	AttendanceMode AttendanceMode   `db:"attendance_mode" json:"attendance_mode"`
	FinalGrade     *float64         `db:"final_grade" json:"final_grade,omitempty"`
	CompletionDate *time.Time       `db:"completion_date" json:"completion_date,omitempty"`
}

// EnrollmentDetail enriches Enrollment with student and class info.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	BatchCode    string `db:"batch_code" json:"batch_code"`
	BatchName    string `db:"batch_name" json:"batch_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	ClassID   string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentFinancialStatus is the financial record created 1:1 with each
// enrollment, seeded from the owning program's fee.
type StudentFinancialStatus struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	TotalFee     float64   `db:"total_fee" json:"total_fee"`
	PaidAmount   float64   `db:"paid_amount" json:"paid_amount"`
	Balance      float64   `db:"balance" json:"balance"`
	CurrentBlock int       `db:"current_block" json:"current_block"`
	IsCleared    bool      `db:"is_cleared" json:"is_cleared"`
	IsSuspended  bool      `db:"is_suspended" json:"is_suspended"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
