// Package dashboard loads the overview page: the employee roster, projects,
// recent and currently running time entries.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"timetracker/internal/models"
	"timetracker/internal/notify"
)

const msgLoadFailed = "Failed to load dashboard data"

// RecentLimit is how many recent time entries the dashboard shows.
const RecentLimit = 10

// recentEmployees caps the roster preview.
const recentEmployees = 5

// API is the part of the remote API the dashboard reads.
type API interface {
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	ListTimeEntries(ctx context.Context, limit int) ([]models.TimeEntry, error)
	ListActiveTimeEntries(ctx context.Context) ([]models.TimeEntry, error)
}

// Summary is the dashboard content.
type Summary struct {
	Stats         Stats              `json:"stats"`
	Employees     []models.Employee  `json:"employees"`
	Projects      []models.Project   `json:"projects"`
	RecentEntries []models.TimeEntry `json:"recent_entries"`
	ActiveEntries []models.TimeEntry `json:"active_entries"`
}

// Stats are the counters at the top of the dashboard.
type Stats struct {
	Employees         int `json:"employees"`
	VerifiedEmployees int `json:"verified_employees"`
	Projects          int `json:"projects"`
	ActiveSessions    int `json:"active_sessions"`
}

// Loader fetches dashboard data.
type Loader struct {
	api    API
	sink   notify.Notifier
	logger *slog.Logger
}

// NewLoader builds a Loader. A nil sink discards notifications.
func NewLoader(api API, sink notify.Notifier, logger *slog.Logger) *Loader {
	if sink == nil {
		sink = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{api: api, sink: sink, logger: logger}
}

// Load fetches the four lists concurrently. Any failure fails the whole load.
func (l *Loader) Load(ctx context.Context) (Summary, error) {
	var (
		employees []models.Employee
		projects  []models.Project
		recent    []models.TimeEntry
		active    []models.TimeEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		employees, err = l.api.ListEmployees(gctx)
		return err
	})
	g.Go(func() (err error) {
		projects, err = l.api.ListProjects(gctx)
		return err
	})
	g.Go(func() (err error) {
		recent, err = l.api.ListTimeEntries(gctx, RecentLimit)
		return err
	})
	g.Go(func() (err error) {
		active, err = l.api.ListActiveTimeEntries(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		l.logger.Warn("load dashboard failed", slog.String("error", err.Error()))
		l.sink.Error(msgLoadFailed)
		return Summary{}, fmt.Errorf("load dashboard: %w", err)
	}

	return Build(employees, projects, recent, active), nil
}

// Build assembles a Summary from already fetched lists.
func Build(employees []models.Employee, projects []models.Project, recent, active []models.TimeEntry) Summary {
	s := Summary{
		Stats: Stats{
			Employees:      len(employees),
			Projects:       len(projects),
			ActiveSessions: len(active),
		},
		Employees:     nonNil(employees),
		Projects:      nonNil(projects),
		RecentEntries: nonNil(recent),
		ActiveEntries: nonNil(active),
	}
	for _, e := range employees {
		if e.IsVerified {
			s.Stats.VerifiedEmployees++
		}
	}
	if len(s.Employees) > recentEmployees {
		s.Employees = s.Employees[:recentEmployees]
	}
	return s
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// FormatDuration renders a duration in seconds as "1h 5m". Missing and zero
// durations render as "N/A".
func FormatDuration(seconds *int64) string {
	if seconds == nil || *seconds == 0 {
		return "N/A"
	}
	s := *seconds
	return fmt.Sprintf("%dh %dm", s/3600, (s%3600)/60)
}
