package models

import (
	"encoding/json"
	"time"
)

// ContentType classifies course content templates.
type ContentType string

const (
	ContentTypeMaterial   ContentType = "MATERIAL"
	ContentTypeAssignment ContentType = "ASSIGNMENT"
	ContentTypeQuiz       ContentType = "QUIZ"
)

// ContentTemplate is an admin-authored, course-level, reusable unit of
// content not yet tied to any specific class calendar.
type ContentTemplate struct {
	ID          string          `db:"id" json:"id"`
	CourseID    string          `db:"course_id" json:"course_id"`
	WeekNumber  int             `db:"week_number" json:"week_number"`
	ContentType ContentType     `db:"content_type" json:"content_type"`
	Title       string          `db:"title" json:"title"`
	ContentData json.RawMessage `db:"content_data" json:"content_data,omitempty"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// ScheduleStatus tracks a scheduled content entry. Only SCHEDULED is
// written by this service; publishing is handled downstream.
type ScheduleStatus string

const ScheduleStatusScheduled ScheduleStatus = "SCHEDULED"

// ContentSchedule binds a content template to a concrete publish datetime
// for one class batch. At most one row exists per (class, template) pair.
type ContentSchedule struct {
	ID                   string         `db:"id" json:"id"`
	ClassID              string         `db:"class_id" json:"class_id"`
	TemplateID           string         `db:"template_id" json:"template_id"`
	ScheduledPublishDate time.Time      `db:"scheduled_publish_date" json:"scheduled_publish_date"`
	Status               ScheduleStatus `db:"status" json:"status"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// ContentScheduleDetail joins the schedule row with its template info.
type ContentScheduleDetail struct {
	ContentSchedule
	WeekNumber  int         `db:"week_number" json:"week_number"`
	ContentType ContentType `db:"content_type" json:"content_type"`
	Title       string      `db:"title" json:"title"`
}

// WeekBucket is one calendar week of a class, clipped to the class range.
type WeekBucket struct {
	Number int       `json:"number"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// Contains reports whether the date falls inside the bucket (inclusive).
func (w WeekBucket) Contains(t time.Time) bool {
	day := t.Truncate(24 * time.Hour)
	return !day.Before(w.Start) && !day.After(w.End)
}
