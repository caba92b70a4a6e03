package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"timetracker/internal/models"
)

const employeeColumns = `id, name, email, is_active, is_verified, created_at`

func scanEmployee(row interface{ Scan(...any) error }) (models.Employee, error) {
	var e models.Employee
	err := row.Scan(&e.ID, &e.Name, &e.Email, &e.IsActive, &e.IsVerified, &e.CreatedAt)
	return e, err
}

// CreateEmployee registers an unverified employee and returns the token that
// must be presented to verify the email address.
func (s *Store) CreateEmployee(ctx context.Context, in models.EmployeeCreate) (models.Employee, string, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" {
		return models.Employee{}, "", invalid("Name and email are required")
	}
	if !strings.Contains(email, "@") {
		return models.Employee{}, "", invalid("Invalid email address")
	}

	token := uuid.NewString()
	res, err := s.db.ExecContext(ctx, `INSERT INTO employees(name, email, verification_token) VALUES(?, ?, ?)`, name, email, token)
	if isUniqueViolation(err) {
		return models.Employee{}, "", conflict("Email already registered")
	}
	if err != nil {
		return models.Employee{}, "", fmt.Errorf("insert employee: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Employee{}, "", fmt.Errorf("employee id: %w", err)
	}
	e, err := s.GetEmployee(ctx, id)
	return e, token, err
}

// GetEmployee fetches a single employee by id.
func (s *Store) GetEmployee(ctx context.Context, id int64) (models.Employee, error) {
	e, err := scanEmployee(s.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Employee{}, notFound("Employee not found")
	}
	if err != nil {
		return models.Employee{}, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

// ListEmployees returns employees ordered by id.
func (s *Store) ListEmployees(ctx context.Context, page Page) ([]models.Employee, error) {
	limit, skip := page.args()
	rows, err := s.db.QueryContext(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY id LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	employees := []models.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// VerifyEmployee marks the employee verified when token matches.
func (s *Store) VerifyEmployee(ctx context.Context, id int64, token string) (models.Employee, error) {
	var stored string
	var verified bool
	err := s.db.QueryRowContext(ctx, `SELECT verification_token, is_verified FROM employees WHERE id = ?`, id).Scan(&stored, &verified)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Employee{}, notFound("Employee not found")
	}
	if err != nil {
		return models.Employee{}, fmt.Errorf("load verification token: %w", err)
	}
	if verified {
		return models.Employee{}, conflict("Employee already verified")
	}
	if token == "" || token != stored {
		return models.Employee{}, invalid("Invalid or expired verification token")
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE employees SET is_verified = 1, is_active = 1, verification_token = '' WHERE id = ?`, id); err != nil {
		return models.Employee{}, fmt.Errorf("verify employee: %w", err)
	}
	return s.GetEmployee(ctx, id)
}
