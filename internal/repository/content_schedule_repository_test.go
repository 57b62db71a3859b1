package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-admin-api/internal/models"
)

func scheduleEntry(templateID string) models.ContentSchedule {
	return models.ContentSchedule{
		TemplateID:           templateID,
		ScheduledPublishDate: time.Date(2026, 9, 8, 8, 0, 0, 0, time.UTC),
		Status:               models.ScheduleStatusScheduled,
	}
}

func TestContentScheduleRepositorySaveOverwrite(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewContentScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_content_schedules WHERE class_id = $1")).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO class_content_schedules").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO class_content_schedules").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entries := []models.ContentSchedule{scheduleEntry("tpl-1"), scheduleEntry("tpl-2")}
	require.NoError(t, repo.Save(context.Background(), "class-1", entries, true))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentScheduleRepositorySaveAppendsWithoutClearing(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewContentScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO class_content_schedules").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), "class-1", []models.ContentSchedule{scheduleEntry("tpl-1")}, false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentScheduleRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewContentScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_content_schedules WHERE id = $1 AND class_id = $2")).
		WithArgs("sched-1", "class-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.Delete(context.Background(), "sched-1", "class-1")
	require.NoError(t, err)
	assert.True(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentScheduleRepositoryDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewContentScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_content_schedules WHERE id = $1 AND class_id = $2")).
		WithArgs("sched-404", "class-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "sched-404", "class-1")
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentScheduleRepositoryListByClass(t *testing.T) {
	db, mock, cleanup := newBatchRepoMock(t)
	defer cleanup()
	repo := NewContentScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "class_id", "template_id", "scheduled_publish_date", "status", "week_number", "content_type", "title"}).
		AddRow("sched-1", "class-1", "tpl-1", time.Date(2026, 9, 8, 8, 0, 0, 0, time.UTC), "SCHEDULED", 1, "MATERIAL", "Intro")
	mock.ExpectQuery("SELECT (.+) FROM class_content_schedules cs").
		WithArgs("class-1").
		WillReturnRows(rows)

	schedules, err := repo.ListByClass(context.Background(), "class-1")
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "tpl-1", schedules[0].TemplateID)
	assert.Equal(t, 1, schedules[0].WeekNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}
