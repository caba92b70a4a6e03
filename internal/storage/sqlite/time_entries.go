package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timetracker/internal/models"
)

const msgActiveEntry = "Employee already has an active time entry"

const timeEntrySelect = `SELECT te.id, te.employee_id, te.project_id, te.task_id, te.start_time, te.end_time,
        e.name, p.name, t.name
    FROM time_entries te
    JOIN employees e ON e.id = te.employee_id
    JOIN projects p ON p.id = te.project_id
    JOIN tasks t ON t.id = te.task_id`

func scanTimeEntry(row interface{ Scan(...any) error }) (models.TimeEntry, error) {
	var te models.TimeEntry
	var end sql.NullTime
	if err := row.Scan(&te.ID, &te.EmployeeID, &te.ProjectID, &te.TaskID, &te.StartTime, &end,
		&te.EmployeeName, &te.ProjectName, &te.TaskName); err != nil {
		return models.TimeEntry{}, err
	}
	if end.Valid {
		endTime := end.Time
		te.EndTime = &endTime
		seconds := int64(endTime.Sub(te.StartTime).Seconds())
		te.DurationSeconds = &seconds
	}
	return te, nil
}

func (s *Store) queryTimeEntries(ctx context.Context, query string, args ...any) ([]models.TimeEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	defer rows.Close()

	entries := []models.TimeEntry{}
	for rows.Next() {
		te, err := scanTimeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		entries = append(entries, te)
	}
	return entries, rows.Err()
}

// ListTimeEntries returns entries newest first.
func (s *Store) ListTimeEntries(ctx context.Context, page Page) ([]models.TimeEntry, error) {
	limit, skip := page.args()
	return s.queryTimeEntries(ctx, timeEntrySelect+` ORDER BY te.start_time DESC, te.id DESC LIMIT ? OFFSET ?`, limit, skip)
}

// ListActiveTimeEntries returns entries that have not been stopped.
func (s *Store) ListActiveTimeEntries(ctx context.Context) ([]models.TimeEntry, error) {
	return s.queryTimeEntries(ctx, timeEntrySelect+` WHERE te.end_time IS NULL ORDER BY te.start_time DESC`)
}

// StartTimeEntry opens an entry for an employee on a task of a project the
// employee is assigned to.
func (s *Store) StartTimeEntry(ctx context.Context, employeeID, projectID, taskID int64, at time.Time) (models.TimeEntry, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return models.TimeEntry{}, err
	}
	if task.ProjectID != projectID {
		return models.TimeEntry{}, invalid("Task does not belong to project")
	}

	var assigned int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM project_employees WHERE project_id = ? AND employee_id = ?`, projectID, employeeID).Scan(&assigned)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TimeEntry{}, invalid("Employee is not assigned to this project")
	}
	if err != nil {
		return models.TimeEntry{}, fmt.Errorf("check assignment: %w", err)
	}

	var open int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM time_entries WHERE employee_id = ? AND end_time IS NULL`, employeeID).Scan(&open)
	if err == nil {
		return models.TimeEntry{}, conflict(msgActiveEntry)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.TimeEntry{}, fmt.Errorf("check active entry: %w", err)
	}

	id, err := s.insertOpenEntry(ctx, employeeID, projectID, taskID, at)
	if err != nil {
		return models.TimeEntry{}, err
	}
	return s.getTimeEntry(ctx, id)
}

// insertOpenEntry relies on idx_time_entries_open to reject a second open
// entry from a concurrent start that passed StartTimeEntry's check.
func (s *Store) insertOpenEntry(ctx context.Context, employeeID, projectID, taskID int64, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO time_entries(employee_id, project_id, task_id, start_time) VALUES(?, ?, ?, ?)`,
		employeeID, projectID, taskID, at.UTC())
	if isUniqueViolation(err) {
		return 0, conflict(msgActiveEntry)
	}
	if err != nil {
		return 0, fmt.Errorf("insert time entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("time entry id: %w", err)
	}
	return id, nil
}

// StopTimeEntry closes the employee's active entry.
func (s *Store) StopTimeEntry(ctx context.Context, employeeID int64, at time.Time) (models.TimeEntry, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM time_entries WHERE employee_id = ? AND end_time IS NULL`, employeeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TimeEntry{}, notFound("No active time entry")
	}
	if err != nil {
		return models.TimeEntry{}, fmt.Errorf("find active entry: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE time_entries SET end_time = ? WHERE id = ?`, at.UTC(), id); err != nil {
		return models.TimeEntry{}, fmt.Errorf("stop time entry: %w", err)
	}
	return s.getTimeEntry(ctx, id)
}

func (s *Store) getTimeEntry(ctx context.Context, id int64) (models.TimeEntry, error) {
	te, err := scanTimeEntry(s.db.QueryRowContext(ctx, timeEntrySelect+` WHERE te.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TimeEntry{}, notFound("Time entry not found")
	}
	if err != nil {
		return models.TimeEntry{}, fmt.Errorf("get time entry: %w", err)
	}
	return te, nil
}
