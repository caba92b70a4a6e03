package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"timetracker/internal/models"
)

// ListProjects retrieves projects ordered by creation, each with its
// assigned employees embedded in assignment order.
func (s *Store) ListProjects(ctx context.Context, page Page) ([]models.Project, error) {
	limit, skip := page.args()
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, created_at FROM projects ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	members, err := s.projectMembers(ctx, 0)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		projects[i].Employees = members[projects[i].ID]
		if projects[i].Employees == nil {
			projects[i].Employees = []models.Employee{}
		}
	}
	return projects, nil
}

// projectMembers groups assigned employees by project. projectID 0 loads
// every project.
func (s *Store) projectMembers(ctx context.Context, projectID int64) (map[int64][]models.Employee, error) {
	query := `SELECT pe.project_id, e.id, e.name, e.email, e.is_active, e.is_verified, e.created_at
        FROM project_employees pe JOIN employees e ON e.id = pe.employee_id`
	var args []any
	if projectID != 0 {
		query += ` WHERE pe.project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY pe.project_id, pe.position`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}
	defer rows.Close()

	out := map[int64][]models.Employee{}
	for rows.Next() {
		var pid int64
		var e models.Employee
		if err := rows.Scan(&pid, &e.ID, &e.Name, &e.Email, &e.IsActive, &e.IsVerified, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project member: %w", err)
		}
		out[pid] = append(out[pid], e)
	}
	return out, rows.Err()
}

// GetProject fetches a single project by id with its employees.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	var p models.Project
	err := s.db.QueryRowContext(ctx, `SELECT id, name, description, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, notFound("Project not found")
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}

	members, err := s.projectMembers(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	p.Employees = members[id]
	if p.Employees == nil {
		p.Employees = []models.Employee{}
	}
	return p, nil
}

// CreateProject persists a new project and its initial members.
func (s *Store) CreateProject(ctx context.Context, in models.ProjectCreate) (models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Project{}, invalid("Project name must not be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Project{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO projects(name, description) VALUES(?, ?)`, name, in.Description)
	if isUniqueViolation(err) {
		return models.Project{}, conflict("Project name already exists")
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Project{}, fmt.Errorf("project id: %w", err)
	}
	if err := replaceMembers(ctx, tx, id, in.EmployeeIDs); err != nil {
		return models.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Project{}, fmt.Errorf("commit project: %w", err)
	}
	return s.GetProject(ctx, id)
}

// UpdateProject applies a partial update. When EmployeeIDs is set the
// membership is replaced by exactly that list.
func (s *Store) UpdateProject(ctx context.Context, id int64, in models.ProjectUpdate) (models.Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Project{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, notFound("Project not found")
		}
		return models.Project{}, fmt.Errorf("find project: %w", err)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return models.Project{}, invalid("Project name must not be empty")
		}
		_, err := tx.ExecContext(ctx, `UPDATE projects SET name = ? WHERE id = ?`, name, id)
		if isUniqueViolation(err) {
			return models.Project{}, conflict("Project name already exists")
		}
		if err != nil {
			return models.Project{}, fmt.Errorf("rename project: %w", err)
		}
	}
	if in.Description != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE projects SET description = ? WHERE id = ?`, *in.Description, id); err != nil {
			return models.Project{}, fmt.Errorf("update description: %w", err)
		}
	}
	if in.EmployeeIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM project_employees WHERE project_id = ?`, id); err != nil {
			return models.Project{}, fmt.Errorf("clear members: %w", err)
		}
		if err := replaceMembers(ctx, tx, id, *in.EmployeeIDs); err != nil {
			return models.Project{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Project{}, fmt.Errorf("commit project: %w", err)
	}
	return s.GetProject(ctx, id)
}

// replaceMembers inserts ids in order, skipping repeats. Unknown employees
// are rejected.
func replaceMembers(ctx context.Context, tx *sql.Tx, projectID int64, ids []int64) error {
	seen := make(map[int64]struct{}, len(ids))
	position := 0
	for _, eid := range ids {
		if _, dup := seen[eid]; dup {
			continue
		}
		seen[eid] = struct{}{}

		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM employees WHERE id = ?`, eid).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return invalid("Employee %d not found", eid)
			}
			return fmt.Errorf("find employee: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO project_employees(project_id, employee_id, position) VALUES(?, ?, ?)`, projectID, eid, position); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
		position++
	}
	return nil
}
