package models

import "time"

// Employee is a registered person who can be assigned to projects.
type Employee struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Project groups tasks and the employees working on them.
// Employees is only populated by endpoints that embed the roster.
type Project struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Employees   []Employee `json:"employees,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Task is a unit of trackable work inside a project.
type Task struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ProjectID   int64     `json:"project_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TimeEntry is a tracked work session reported by the desktop app.
type TimeEntry struct {
	ID              int64      `json:"id"`
	EmployeeID      int64      `json:"employee_id"`
	ProjectID       int64      `json:"project_id"`
	TaskID          int64      `json:"task_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds *int64     `json:"duration_seconds"`
	EmployeeName    string     `json:"employee_name"`
	ProjectName     string     `json:"project_name"`
	TaskName        string     `json:"task_name"`
}

// Active reports whether the entry is still being tracked.
func (e TimeEntry) Active() bool {
	return e.EndTime == nil
}

// EmployeeCreate is the self-registration payload.
type EmployeeCreate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EmployeeVerify carries the emailed verification token.
type EmployeeVerify struct {
	Token string `json:"token"`
}

// ProjectCreate is the payload for a new project.
type ProjectCreate struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	EmployeeIDs []int64 `json:"employee_ids,omitempty"`
}

// ProjectUpdate is a partial update. EmployeeIDs, when set, replaces the
// project's membership entirely.
type ProjectUpdate struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	EmployeeIDs *[]int64 `json:"employee_ids,omitempty"`
}

// TaskCreate is the payload for a new task.
type TaskCreate struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ProjectID   int64  `json:"project_id"`
}
