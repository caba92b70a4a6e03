// Package register implements employee self-registration and the email
// verification page.
package register

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"timetracker/internal/models"
	"timetracker/internal/notify"
	"timetracker/internal/remote"
)

var (
	// ErrMissingFields is returned when name or email is blank.
	ErrMissingFields = errors.New("name and email are required")
	// ErrInvalidEmail is returned when the email has no @.
	ErrInvalidEmail = errors.New("invalid email address")
)

const (
	msgMissingFields      = "Please fill in all fields"
	msgInvalidEmail       = "Please enter a valid email address"
	msgRegistered         = "Registration successful! Check your email for verification instructions."
	msgRegisterFailed     = "Registration failed. Please try again."
	msgNoToken            = "No verification token provided"
	msgIncompleteLink     = "Invalid verification link. Token or employee ID missing."
	msgVerified           = "Email verified successfully! Welcome to Time Tracker."
	msgVerifyFailedDetail = "Verification failed. The link may be expired or invalid."
	msgVerifyFailed       = "Email verification failed"
)

// API is the part of the remote API used for registration.
type API interface {
	CreateEmployee(ctx context.Context, in models.EmployeeCreate) (models.Employee, error)
	VerifyEmployee(ctx context.Context, id int64, token string) (models.Employee, error)
}

// Service runs registrations and verifications, reporting outcomes to sink.
type Service struct {
	api    API
	sink   notify.Notifier
	logger *slog.Logger
}

// New builds a Service. A nil sink discards notifications.
func New(api API, sink notify.Notifier, logger *slog.Logger) *Service {
	if sink == nil {
		sink = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, sink: sink, logger: logger}
}

// Register validates the form and creates the employee. The API sends the
// verification email.
func (s *Service) Register(ctx context.Context, name, email string) (models.Employee, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		s.sink.Error(msgMissingFields)
		return models.Employee{}, ErrMissingFields
	}
	if !strings.Contains(email, "@") {
		s.sink.Error(msgInvalidEmail)
		return models.Employee{}, ErrInvalidEmail
	}

	employee, err := s.api.CreateEmployee(ctx, models.EmployeeCreate{Name: name, Email: email})
	if err != nil {
		s.logger.Warn("registration failed", slog.String("email", email), slog.String("error", err.Error()))
		s.sink.Error(remote.DetailOr(err, msgRegisterFailed))
		return models.Employee{}, fmt.Errorf("register employee: %w", err)
	}
	s.sink.Success(msgRegistered)
	return employee, nil
}

// Status is the state of the verification page.
type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Verification is what the verification page shows.
type Verification struct {
	Status     Status           `json:"status"`
	Message    string           `json:"message,omitempty"`
	EmployeeID int64            `json:"employee_id,omitempty"`
	Token      string           `json:"-"`
	Demo       bool             `json:"demo,omitempty"`
	Employee   *models.Employee `json:"employee,omitempty"`
}

// ParseLink reads a verification link's query. The result is in
// StatusLoading when the link is complete and StatusError otherwise.
// When id is absent the employee id is taken from the token's employee_id or
// sub claim if the token is a JWT.
func ParseLink(query url.Values) Verification {
	token := strings.TrimSpace(query.Get("token"))
	if token == "" {
		return Verification{Status: StatusError, Message: msgNoToken}
	}
	v := Verification{Status: StatusLoading, Token: token, Demo: query.Get("demo") == "true"}

	if raw := strings.TrimSpace(query.Get("id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Verification{Status: StatusError, Message: msgIncompleteLink}
		}
		v.EmployeeID = id
		return v
	}

	id, ok := employeeIDFromToken(token)
	if !ok {
		return Verification{Status: StatusError, Message: msgIncompleteLink}
	}
	v.EmployeeID = id
	return v
}

// employeeIDFromToken reads the employee id from an unverified JWT. The API
// checks the signature when the token is submitted.
func employeeIDFromToken(token string) (int64, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, false
	}
	switch id := claims["employee_id"].(type) {
	case float64:
		if id > 0 && id == float64(int64(id)) {
			return int64(id), true
		}
	case string:
		if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > 0 {
			return n, true
		}
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Verify parses the link and, if it is complete, submits the token. Demo
// links succeed without contacting the API.
func (s *Service) Verify(ctx context.Context, query url.Values) Verification {
	v := ParseLink(query)
	if v.Status == StatusError {
		return v
	}

	if v.Demo {
		v.Status = StatusSuccess
		v.Employee = &models.Employee{ID: v.EmployeeID, Name: "Demo User", Email: "demo@example.com"}
		return v
	}

	employee, err := s.api.VerifyEmployee(ctx, v.EmployeeID, v.Token)
	if err != nil {
		s.logger.Warn("verification failed", slog.Int64("employee_id", v.EmployeeID), slog.String("error", err.Error()))
		v.Status = StatusError
		v.Message = remote.DetailOr(err, msgVerifyFailedDetail)
		s.sink.Error(msgVerifyFailed)
		return v
	}

	v.Status = StatusSuccess
	v.Employee = &employee
	s.sink.Success(msgVerified)
	return v
}
