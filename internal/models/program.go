package models

import "time"

// ProgramType distinguishes the delivery mode of a program.
type ProgramType string

const (
	ProgramTypeOnline ProgramType = "ONLINE"
	ProgramTypeOnsite ProgramType = "ONSITE"
	ProgramTypeSchool ProgramType = "SCHOOL"
)

// Program groups courses under one fee structure and delivery mode.
type Program struct {
	ID        string      `db:"id" json:"id"`
	Name      string      `db:"name" json:"name"`
	Type      ProgramType `db:"type" json:"type"`
	Fee       float64     `db:"fee" json:"fee"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// Course is a unit of study offered inside a program. Class batches are
// concrete runs of a course.
type Course struct {
	ID        string    `db:"id" json:"id"`
	ProgramID string    `db:"program_id" json:"program_id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
