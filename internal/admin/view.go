// Package admin holds the project administration view: projects, their
// tasks and their assigned employees joined from the remote API, plus the
// operations that change them.
//
// All published state lives in ProjectsView and changes only through its
// methods. Reloads are all-or-nothing; assignment changes are applied after
// the API confirms them and are serialized per project.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"timetracker/internal/models"
	"timetracker/internal/notify"
	"timetracker/internal/remote"
)

var (
	// ErrEmptyName is returned, without contacting the API or notifying the
	// user, when a project or task name is blank.
	ErrEmptyName = errors.New("name must not be empty")
	// ErrClosed is returned by operations on a view that has been torn down.
	ErrClosed = errors.New("projects view closed")
)

// Messages shown through the notification sink.
const (
	msgLoadProjectsFailed  = "Failed to load projects"
	msgLoadEmployeesFailed = "Failed to load employees"
	msgProjectCreated      = "Project created"
	msgCreateProjectFailed = "Create project failed"
	msgTaskAdded           = "Task added"
	msgCreateTaskFailed    = "Create task failed"
	msgAssignmentsUpdated  = "Assignments updated"
	msgUpdateFailed        = "Update failed"
)

// API is the slice of the remote API the view needs.
type API interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	ListTasks(ctx context.Context, projectID int64) ([]models.Task, error)
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	CreateProject(ctx context.Context, in models.ProjectCreate) (models.Project, error)
	CreateTask(ctx context.Context, in models.TaskCreate) (models.Task, error)
	UpdateProject(ctx context.Context, id int64, in models.ProjectUpdate) (models.Project, error)
}

// ProjectDraft holds the pending input of the new-project form.
type ProjectDraft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// State is a copy of everything the view publishes.
type State struct {
	Projects     []models.Project
	Tasks        map[int64][]models.Task
	Assignments  map[int64]Members
	Employees    []models.Employee
	ProjectDraft ProjectDraft
	TaskDrafts   map[int64]string
}

// ProjectsView is the project administration view-model. It is safe for
// concurrent use; Close ends its lifetime and cancels in-flight requests.
type ProjectsView struct {
	api    API
	sink   notify.Notifier
	logger *slog.Logger

	life context.Context
	stop context.CancelFunc

	mu    sync.RWMutex
	state State
	// reloadSeq counts started reloads; publishedSeq is the newest one that
	// published. confirmedAt records reloadSeq when an assignment for a
	// project was confirmed, so older reloads do not overwrite it.
	reloadSeq    uint64
	publishedSeq uint64
	confirmedAt  map[int64]uint64

	slotsMu sync.Mutex
	slots   map[int64]chan struct{}
}

// New creates an empty view. Call Mount to populate it.
func New(api API, sink notify.Notifier, logger *slog.Logger) *ProjectsView {
	if sink == nil {
		sink = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	life, stop := context.WithCancel(context.Background())
	return &ProjectsView{
		api:    api,
		sink:   sink,
		logger: logger,
		life:   life,
		stop:   stop,
		state: State{
			Tasks:       map[int64][]models.Task{},
			Assignments: map[int64]Members{},
			TaskDrafts:  map[int64]string{},
		},
		confirmedAt: map[int64]uint64{},
		slots:       map[int64]chan struct{}{},
	}
}

// Close tears the view down. Requests it issued are cancelled and their
// results discarded. Close is idempotent.
func (v *ProjectsView) Close() {
	v.stop()
}

// Closed reports whether Close has been called.
func (v *ProjectsView) Closed() bool {
	return v.life.Err() != nil
}

// scope derives a context that ends with either the caller's context or the
// view's lifetime.
func (v *ProjectsView) scope(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if v.Closed() {
		return nil, nil, ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	detach := context.AfterFunc(v.life, cancel)
	return ctx, func() {
		detach()
		cancel()
	}, nil
}

// Mount performs the initial load: the project reload and the employee
// roster load run concurrently and fail independently.
func (v *ProjectsView) Mount(ctx context.Context) error {
	var (
		wg                     sync.WaitGroup
		reloadErr, employeeErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		reloadErr = v.Reload(ctx)
	}()
	go func() {
		defer wg.Done()
		employeeErr = v.LoadEmployees(ctx)
	}()
	wg.Wait()
	return errors.Join(reloadErr, employeeErr)
}

// Reload re-fetches every project and, concurrently, each project's tasks,
// then publishes the merged result in one step. If any fetch fails nothing
// is published.
func (v *ProjectsView) Reload(ctx context.Context) error {
	ctx, done, err := v.scope(ctx)
	if err != nil {
		return err
	}
	defer done()

	v.mu.Lock()
	v.reloadSeq++
	seq := v.reloadSeq
	v.mu.Unlock()

	merged, err := v.fetchProjects(ctx)
	if err != nil {
		if v.Closed() {
			return ErrClosed
		}
		v.logger.Warn("reload projects failed", slog.String("error", err.Error()))
		v.mu.Lock()
		superseded := seq < v.publishedSeq
		v.mu.Unlock()
		if !superseded {
			v.sink.Error(msgLoadProjectsFailed)
		}
		return fmt.Errorf("reload projects: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.Closed() {
		return ErrClosed
	}
	if seq < v.publishedSeq {
		v.logger.Debug("discarding stale reload", slog.Uint64("seq", seq), slog.Uint64("published", v.publishedSeq))
		return nil
	}
	for pid, members := range v.state.Assignments {
		if _, ok := merged.assignments[pid]; ok && v.confirmedAt[pid] >= seq {
			merged.assignments[pid] = members
		}
	}
	v.state.Projects = merged.projects
	v.state.Tasks = merged.tasks
	v.state.Assignments = merged.assignments
	v.publishedSeq = seq
	for pid := range v.confirmedAt {
		if _, ok := merged.assignments[pid]; !ok {
			delete(v.confirmedAt, pid)
		}
	}
	return nil
}

type mergedProjects struct {
	projects    []models.Project
	tasks       map[int64][]models.Task
	assignments map[int64]Members
}

func (v *ProjectsView) fetchProjects(ctx context.Context) (mergedProjects, error) {
	list, err := v.api.ListProjects(ctx)
	if err != nil {
		return mergedProjects{}, fmt.Errorf("list projects: %w", err)
	}

	out := mergedProjects{
		projects:    make([]models.Project, 0, len(list)),
		tasks:       make(map[int64][]models.Task, len(list)),
		assignments: make(map[int64]Members, len(list)),
	}
	for _, p := range list {
		out.assignments[p.ID] = membersOf(p.Employees)
		p.Employees = nil
		out.projects = append(out.projects, p)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range out.projects {
		p := p
		g.Go(func() error {
			tasks, err := v.api.ListTasks(gctx, p.ID)
			if err != nil {
				return fmt.Errorf("list tasks for project %d: %w", p.ID, err)
			}
			kept := make([]models.Task, 0, len(tasks))
			for _, t := range tasks {
				if t.ProjectID != p.ID {
					v.logger.Debug("dropping task listed under another project",
						slog.Int64("task_id", t.ID), slog.Int64("project_id", p.ID))
					continue
				}
				kept = append(kept, t)
			}
			mu.Lock()
			out.tasks[p.ID] = kept
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return mergedProjects{}, err
	}
	return out, nil
}

// LoadEmployees refreshes the global roster. Failure keeps the old roster.
func (v *ProjectsView) LoadEmployees(ctx context.Context) error {
	ctx, done, err := v.scope(ctx)
	if err != nil {
		return err
	}
	defer done()

	employees, err := v.api.ListEmployees(ctx)
	if err != nil {
		if v.Closed() {
			return ErrClosed
		}
		v.logger.Warn("load employees failed", slog.String("error", err.Error()))
		v.sink.Error(msgLoadEmployeesFailed)
		return fmt.Errorf("load employees: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.Closed() {
		return ErrClosed
	}
	v.state.Employees = employees
	return nil
}

// CreateProject creates a project named name. A blank name is rejected with
// ErrEmptyName before any request is made. On success the draft is cleared
// and the view reloaded.
func (v *ProjectsView) CreateProject(ctx context.Context, name, description string) (models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return models.Project{}, ErrEmptyName
	}
	ctx, done, err := v.scope(ctx)
	if err != nil {
		return models.Project{}, err
	}
	defer done()

	created, err := v.api.CreateProject(ctx, models.ProjectCreate{Name: name, Description: description})
	if err != nil {
		if v.Closed() {
			return models.Project{}, ErrClosed
		}
		v.sink.Error(remote.DetailOr(err, msgCreateProjectFailed))
		return models.Project{}, fmt.Errorf("create project: %w", err)
	}

	v.sink.Success(msgProjectCreated)
	v.mu.Lock()
	v.state.ProjectDraft = ProjectDraft{}
	v.mu.Unlock()

	_ = v.Reload(ctx)
	return created, nil
}

// CreateTask adds a task named name to projectID. A blank name is rejected
// with ErrEmptyName before any request is made. On success only that
// project's task draft is cleared and the view reloaded.
func (v *ProjectsView) CreateTask(ctx context.Context, projectID int64, name string) (models.Task, error) {
	if strings.TrimSpace(name) == "" {
		return models.Task{}, ErrEmptyName
	}
	ctx, done, err := v.scope(ctx)
	if err != nil {
		return models.Task{}, err
	}
	defer done()

	created, err := v.api.CreateTask(ctx, models.TaskCreate{Name: name, ProjectID: projectID})
	if err != nil {
		if v.Closed() {
			return models.Task{}, ErrClosed
		}
		v.sink.Error(remote.DetailOr(err, msgCreateTaskFailed))
		return models.Task{}, fmt.Errorf("create task: %w", err)
	}

	v.sink.Success(msgTaskAdded)
	v.mu.Lock()
	delete(v.state.TaskDrafts, projectID)
	v.mu.Unlock()

	_ = v.Reload(ctx)
	return created, nil
}

// SetAssignment adds (member=true) or removes employeeID from projectID's
// assignment set. The whole resulting set is sent to the API and becomes the
// local set only after the API confirms it. Calls for the same project run
// one at a time, each starting from the previous call's confirmed result.
func (v *ProjectsView) SetAssignment(ctx context.Context, projectID, employeeID int64, member bool) error {
	ctx, done, err := v.scope(ctx)
	if err != nil {
		return err
	}
	defer done()

	release, err := v.acquire(ctx, projectID)
	if err != nil {
		if v.Closed() {
			return ErrClosed
		}
		return fmt.Errorf("wait for project %d: %w", projectID, err)
	}
	defer release()

	v.mu.RLock()
	current := v.state.Assignments[projectID]
	v.mu.RUnlock()

	desired := current.Without(employeeID)
	if member {
		desired = current.With(employeeID)
	}
	ids := desired.IDs()

	if _, err := v.api.UpdateProject(ctx, projectID, models.ProjectUpdate{EmployeeIDs: &ids}); err != nil {
		if v.Closed() {
			return ErrClosed
		}
		v.sink.Error(remote.DetailOr(err, msgUpdateFailed))
		return fmt.Errorf("update assignments of project %d: %w", projectID, err)
	}

	v.mu.Lock()
	if v.Closed() {
		v.mu.Unlock()
		return ErrClosed
	}
	if v.knownLocked(projectID) {
		v.state.Assignments[projectID] = desired
		v.confirmedAt[projectID] = v.reloadSeq
	}
	v.mu.Unlock()

	v.sink.Success(msgAssignmentsUpdated)
	return nil
}

// acquire takes the per-project assignment slot.
func (v *ProjectsView) acquire(ctx context.Context, projectID int64) (func(), error) {
	v.slotsMu.Lock()
	slot, ok := v.slots[projectID]
	if !ok {
		slot = make(chan struct{}, 1)
		v.slots[projectID] = slot
	}
	v.slotsMu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (v *ProjectsView) knownLocked(projectID int64) bool {
	for _, p := range v.state.Projects {
		if p.ID == projectID {
			return true
		}
	}
	return false
}

// SetProjectDraft stores the pending new-project input.
func (v *ProjectsView) SetProjectDraft(name, description string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.ProjectDraft = ProjectDraft{Name: name, Description: description}
}

// SetTaskDraft stores the pending new-task input of one project.
func (v *ProjectsView) SetTaskDraft(projectID int64, name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if name == "" {
		delete(v.state.TaskDrafts, projectID)
		return
	}
	v.state.TaskDrafts[projectID] = name
}

// Snapshot returns a deep copy of the published state.
func (v *ProjectsView) Snapshot() State {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s := State{
		Projects:     append([]models.Project(nil), v.state.Projects...),
		Tasks:        make(map[int64][]models.Task, len(v.state.Tasks)),
		Assignments:  make(map[int64]Members, len(v.state.Assignments)),
		Employees:    append([]models.Employee(nil), v.state.Employees...),
		ProjectDraft: v.state.ProjectDraft,
		TaskDrafts:   make(map[int64]string, len(v.state.TaskDrafts)),
	}
	for k, tasks := range v.state.Tasks {
		s.Tasks[k] = append([]models.Task(nil), tasks...)
	}
	for k, m := range v.state.Assignments {
		s.Assignments[k] = m.Clone()
	}
	for k, d := range v.state.TaskDrafts {
		s.TaskDrafts[k] = d
	}
	return s
}
