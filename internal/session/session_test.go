package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"timetracker/internal/logging"
	"timetracker/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubAPI struct {
	mu     sync.Mutex
	mounts int

	// rosterFailures makes the next n roster fetches fail.
	rosterFailures int
	rosterCalls    int
}

func (s *stubAPI) ListProjects(ctx context.Context) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounts++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []models.Project{{ID: 1, Name: "Website Redesign"}}, nil
}

func (s *stubAPI) ListTasks(context.Context, int64) ([]models.Task, error) { return nil, nil }

func (s *stubAPI) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rosterCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.rosterFailures > 0 {
		s.rosterFailures--
		return nil, errors.New("connection reset")
	}
	return []models.Employee{{ID: 7, Name: "Ada Lovelace"}}, nil
}

func (s *stubAPI) CreateProject(_ context.Context, in models.ProjectCreate) (models.Project, error) {
	return models.Project{ID: 2, Name: in.Name}, nil
}

func (s *stubAPI) CreateTask(_ context.Context, in models.TaskCreate) (models.Task, error) {
	return models.Task{ID: 3, Name: in.Name, ProjectID: in.ProjectID}, nil
}

func (s *stubAPI) UpdateProject(_ context.Context, id int64, _ models.ProjectUpdate) (models.Project, error) {
	return models.Project{ID: id}, nil
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newRegistry(api *stubAPI, ttl time.Duration) (*Registry, *clock) {
	c := &clock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	r := NewRegistry(api, ttl, logging.Discard())
	r.now = c.Now
	return r, c
}

func TestAcquireReusesLiveSession(t *testing.T) {
	r, _ := newRegistry(&stubAPI{}, time.Minute)
	defer r.CloseAll()

	first, created := r.Acquire("")
	require.True(t, created)
	require.NotEmpty(t, first.ID)

	again, created := r.Acquire(first.ID)
	assert.False(t, created)
	assert.Same(t, first, again)

	other, created := r.Acquire("unknown")
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, 2, r.Len())
}

func TestIdleSessionsExpire(t *testing.T) {
	r, c := newRegistry(&stubAPI{}, time.Minute)
	defer r.CloseAll()

	s, _ := r.Acquire("")
	c.now = c.now.Add(30 * time.Second)
	_, ok := r.Lookup(s.ID)
	require.True(t, ok)

	c.now = c.now.Add(61 * time.Second)
	_, ok = r.Lookup(s.ID)
	assert.False(t, ok)
	assert.True(t, s.View.Closed())
	assert.Zero(t, r.Len())
}

func TestEnsureMountedRunsOnce(t *testing.T) {
	api := &stubAPI{}
	r, _ := newRegistry(api, time.Minute)
	defer r.CloseAll()

	s, _ := r.Acquire("")
	require.NoError(t, s.EnsureMounted(context.Background()))
	require.NoError(t, s.EnsureMounted(context.Background()))
	assert.Equal(t, 1, api.mounts)
	assert.Len(t, s.View.Snapshot().Projects, 1)
}

func TestEnsureMountedRetriesAfterRosterFailure(t *testing.T) {
	api := &stubAPI{rosterFailures: 1}
	r, _ := newRegistry(api, time.Minute)
	defer r.CloseAll()

	s, _ := r.Acquire("")
	require.Error(t, s.EnsureMounted(context.Background()))
	assert.Empty(t, s.View.Snapshot().Employees)

	require.NoError(t, s.EnsureMounted(context.Background()))
	assert.Len(t, s.View.Snapshot().Employees, 1)

	require.NoError(t, s.EnsureMounted(context.Background()))
	assert.Equal(t, 2, api.rosterCalls)
}

func TestRefreshReloadsRoster(t *testing.T) {
	api := &stubAPI{}
	r, _ := newRegistry(api, time.Minute)
	defer r.CloseAll()

	s, _ := r.Acquire("")
	require.NoError(t, s.EnsureMounted(context.Background()))

	api.mu.Lock()
	api.rosterFailures = 1
	api.mu.Unlock()
	require.Error(t, s.Refresh(context.Background()))
	assert.Len(t, s.View.Snapshot().Employees, 1, "failed refresh keeps the old roster")

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, 3, api.rosterCalls)
	assert.Equal(t, 3, api.mounts)
}

func TestEnsureMountedAfterCancelledLoad(t *testing.T) {
	api := &stubAPI{}
	r, _ := newRegistry(api, time.Minute)
	defer r.CloseAll()

	s, _ := r.Acquire("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, s.EnsureMounted(ctx))

	require.NoError(t, s.EnsureMounted(context.Background()))
	assert.Len(t, s.View.Snapshot().Employees, 1)
}

func TestCloseTearsDownView(t *testing.T) {
	r, _ := newRegistry(&stubAPI{}, time.Minute)

	s, _ := r.Acquire("")
	assert.True(t, r.Close(s.ID))
	assert.False(t, r.Close(s.ID))
	assert.True(t, s.View.Closed())

	kept, _ := r.Acquire("")
	r.CloseAll()
	assert.True(t, kept.View.Closed())
	assert.Zero(t, r.Len())
}

func TestSessionInboxReceivesViewNotifications(t *testing.T) {
	r, _ := newRegistry(&stubAPI{}, time.Minute)
	defer r.CloseAll()

	s, _ := r.Acquire("")
	require.NoError(t, s.EnsureMounted(context.Background()))
	_, err := s.View.CreateProject(context.Background(), "Billing", "")
	require.NoError(t, err)

	got := s.Inbox.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, "Project created", got[0].Message)
}
