package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetracker/internal/logging"
	"timetracker/internal/models"
	"timetracker/internal/notify"
)

type fakeAPI struct {
	employees   []models.Employee
	projects    []models.Project
	recent      []models.TimeEntry
	active      []models.TimeEntry
	recentLimit int
	activeErr   error
}

func (f *fakeAPI) ListEmployees(context.Context) ([]models.Employee, error) { return f.employees, nil }

func (f *fakeAPI) ListProjects(context.Context) ([]models.Project, error) { return f.projects, nil }

func (f *fakeAPI) ListTimeEntries(_ context.Context, limit int) ([]models.TimeEntry, error) {
	f.recentLimit = limit
	return f.recent, nil
}

func (f *fakeAPI) ListActiveTimeEntries(context.Context) ([]models.TimeEntry, error) {
	return f.active, f.activeErr
}

func TestLoad(t *testing.T) {
	api := &fakeAPI{
		employees: []models.Employee{
			{ID: 1, Name: "A", IsVerified: true},
			{ID: 2, Name: "B"},
			{ID: 3, Name: "C", IsVerified: true},
			{ID: 4, Name: "D"},
			{ID: 5, Name: "E"},
			{ID: 6, Name: "F"},
		},
		projects: []models.Project{{ID: 1, Name: "Website Redesign"}},
		active:   []models.TimeEntry{{ID: 9, TaskName: "Wireframes"}},
	}
	q := notify.NewQueue(0)

	s, err := NewLoader(api, q, logging.Discard()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Employees: 6, VerifiedEmployees: 2, Projects: 1, ActiveSessions: 1}, s.Stats)
	assert.Len(t, s.Employees, 5)
	assert.NotNil(t, s.RecentEntries)
	assert.Empty(t, s.RecentEntries)
	assert.Equal(t, RecentLimit, api.recentLimit)
	assert.Zero(t, q.Len())
}

func TestLoadFailureNotifies(t *testing.T) {
	api := &fakeAPI{activeErr: errors.New("boom")}
	q := notify.NewQueue(0)

	_, err := NewLoader(api, q, logging.Discard()).Load(context.Background())
	require.Error(t, err)
	got := q.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, notify.LevelError, got[0].Level)
	assert.Equal(t, "Failed to load dashboard data", got[0].Message)
}

func TestFormatDuration(t *testing.T) {
	seconds := func(n int64) *int64 { return &n }
	assert.Equal(t, "N/A", FormatDuration(nil))
	assert.Equal(t, "N/A", FormatDuration(seconds(0)))
	assert.Equal(t, "0h 0m", FormatDuration(seconds(59)))
	assert.Equal(t, "1h 30m", FormatDuration(seconds(5400)))
	assert.Equal(t, "26h 1m", FormatDuration(seconds(93660)))
}
