package devapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetracker/internal/admin"
	"timetracker/internal/logging"
	"timetracker/internal/models"
	"timetracker/internal/notify"
	"timetracker/internal/remote"
	"timetracker/internal/storage/sqlite"
)

func newTestAPI(t *testing.T) (*httptest.Server, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "devapi.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ts := httptest.NewServer(New(store, logging.Discard(), Options{}).Engine())
	t.Cleanup(ts.Close)
	return ts, store
}

func newClient(t *testing.T, ts *httptest.Server) *remote.Client {
	t.Helper()
	c, err := remote.New(remote.Options{BaseURL: ts.URL + "/api/v1", Timeout: 5 * time.Second, Logger: logging.Discard()})
	require.NoError(t, err)
	return c
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealth(t *testing.T) {
	ts, _ := newTestAPI(t)
	require.NoError(t, newClient(t, ts).Health(context.Background()))
}

func TestErrorsUseDetail(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/projects/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Project not found", body["detail"])

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/projects/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid id", body["detail"])

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", body["detail"])
}

func TestRegistrationAndVerification(t *testing.T) {
	ts, store := newTestAPI(t)
	ctx := context.Background()
	client := newClient(t, ts)

	created, err := client.CreateEmployee(ctx, models.EmployeeCreate{Name: "Ada Lovelace", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.False(t, created.IsVerified)

	_, err = client.CreateEmployee(ctx, models.EmployeeCreate{Name: "Ada Again", Email: "ada@example.com"})
	require.Error(t, err)
	assert.Equal(t, "Email already registered", remote.DetailOr(err, ""))
	assert.True(t, remote.IsStatus(err, http.StatusConflict))

	_, err = client.VerifyEmployee(ctx, created.ID, "not-the-token")
	assert.Equal(t, "Invalid or expired verification token", remote.DetailOr(err, ""))

	// The token is only ever logged, so read it back from the database.
	_, token, err := store.CreateEmployee(ctx, models.EmployeeCreate{Name: "Grace Hopper", Email: "grace@example.com"})
	require.NoError(t, err)
	employees, err := client.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, employees, 2)

	verified, err := client.VerifyEmployee(ctx, employees[1].ID, token)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
}

func TestUpdateProjectReplacesMembership(t *testing.T) {
	ts, store := newTestAPI(t)
	ctx := context.Background()
	client := newClient(t, ts)

	ada, _, err := store.CreateEmployee(ctx, models.EmployeeCreate{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	grace, _, err := store.CreateEmployee(ctx, models.EmployeeCreate{Name: "Grace", Email: "grace@example.com"})
	require.NoError(t, err)

	p, err := client.CreateProject(ctx, models.ProjectCreate{Name: "Website Redesign", EmployeeIDs: []int64{ada.ID}})
	require.NoError(t, err)

	ids := []int64{grace.ID}
	updated, err := client.UpdateProject(ctx, p.ID, models.ProjectUpdate{EmployeeIDs: &ids})
	require.NoError(t, err)
	require.Len(t, updated.Employees, 1)
	assert.Equal(t, grace.ID, updated.Employees[0].ID)

	empty := []int64{}
	cleared, err := client.UpdateProject(ctx, p.ID, models.ProjectUpdate{EmployeeIDs: &empty})
	require.NoError(t, err)
	assert.Empty(t, cleared.Employees)

	name := "Renamed"
	renamed, err := client.UpdateProject(ctx, p.ID, models.ProjectUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", renamed.Name)
}

func TestTimeEntriesOverHTTP(t *testing.T) {
	ts, store := newTestAPI(t)
	ctx := context.Background()
	client := newClient(t, ts)

	ada, _, err := store.CreateEmployee(ctx, models.EmployeeCreate{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	p, err := store.CreateProject(ctx, models.ProjectCreate{Name: "One", EmployeeIDs: []int64{ada.ID}})
	require.NoError(t, err)
	task, err := store.CreateTask(ctx, models.TaskCreate{Name: "Wireframes", ProjectID: p.ID})
	require.NoError(t, err)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/time-entries/start",
		startRequest{EmployeeID: ada.ID, ProjectID: p.ID, TaskID: task.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	active, err := client.ListActiveTimeEntries(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Wireframes", active[0].TaskName)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/time-entries/stop", stopRequest{EmployeeID: ada.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	recent, err := client.ListTimeEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.NotNil(t, recent[0].EndTime)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/time-entries/stop", stopRequest{EmployeeID: ada.ID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body["detail"])
}

// TestProjectsViewEndToEnd drives the console view-model against the dev API:
// create a project, add a task, assign an employee, and reload.
func TestProjectsViewEndToEnd(t *testing.T) {
	ts, store := newTestAPI(t)
	ctx := context.Background()

	ada, _, err := store.CreateEmployee(ctx, models.EmployeeCreate{Name: "Ada Lovelace", Email: "ada@example.com"})
	require.NoError(t, err)

	inbox := notify.NewQueue(0)
	view := admin.New(newClient(t, ts), inbox, logging.Discard())
	defer view.Close()
	require.NoError(t, view.Mount(ctx))
	assert.Empty(t, view.Snapshot().Projects)

	project, err := view.CreateProject(ctx, "Website Redesign", "Q3 revamp")
	require.NoError(t, err)

	_, err = view.CreateTask(ctx, project.ID, "Wireframes")
	require.NoError(t, err)

	require.NoError(t, view.SetAssignment(ctx, project.ID, ada.ID, true))
	require.NoError(t, view.Reload(ctx))

	page := view.Render()
	assert.Equal(t, admin.Stats{Projects: 1, Tasks: 1, Employees: 1}, page.Stats)
	require.Len(t, page.Projects, 1)
	card := page.Projects[0]
	assert.Equal(t, "Website Redesign", card.Name)
	assert.Equal(t, "Q3 revamp", card.Description)
	assert.Equal(t, []string{"Ada"}, card.Assigned)
	require.Len(t, card.Tasks, 1)
	assert.Equal(t, "Wireframes", card.Tasks[0].Name)

	var got []string
	for _, n := range inbox.Drain() {
		got = append(got, n.Message)
	}
	assert.Equal(t, []string{"Project created", "Task added", "Assignments updated"}, got)

	_, err = view.CreateProject(ctx, "Website Redesign", "")
	require.Error(t, err)
	last := inbox.Drain()
	require.Len(t, last, 1)
	assert.Equal(t, notify.LevelError, last[0].Level)
	assert.Equal(t, "Project name already exists", last[0].Message)
}
