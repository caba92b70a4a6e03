package admin

import (
	"context"
	"fmt"
	"sync"

	"timetracker/internal/models"
)

// fakeAPI is an in-memory remote API that records every call.
type fakeAPI struct {
	mu        sync.Mutex
	nextID    int64
	projects  []models.Project
	tasks     map[int64][]models.Task
	employees []models.Employee

	calls   []string
	updates [][]int64

	listProjectsErr error
	listTasksErr    map[int64]error
	employeesErr    error
	createErr       error
	updateErr       error

	// When set, UpdateProject / ListTasks signal entry and then wait for a
	// release or for their context to end.
	updateEntered chan []int64
	updateRelease chan struct{}
	tasksEntered  chan int64
	tasksRelease  chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{nextID: 100, tasks: map[int64][]models.Task{}, listTasksErr: map[int64]error{}}
}

func (f *fakeAPI) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) Updates() [][]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]int64(nil), f.updates...)
}

func (f *fakeAPI) addProject(id int64, name string, employeeIDs ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects = append(f.projects, models.Project{ID: id, Name: name, Employees: f.employeesLocked(employeeIDs)})
}

func (f *fakeAPI) addTask(projectID, id int64, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[projectID] = append(f.tasks[projectID], models.Task{ID: id, Name: name, ProjectID: projectID})
}

func (f *fakeAPI) employeesLocked(ids []int64) []models.Employee {
	out := make([]models.Employee, 0, len(ids))
	for _, id := range ids {
		e := models.Employee{ID: id}
		for _, known := range f.employees {
			if known.ID == id {
				e = known
			}
		}
		out = append(out, e)
	}
	return out
}

func (f *fakeAPI) ListProjects(ctx context.Context) ([]models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListProjects")
	if f.listProjectsErr != nil {
		return nil, f.listProjectsErr
	}
	out := make([]models.Project, len(f.projects))
	for i, p := range f.projects {
		p.Employees = append([]models.Employee(nil), p.Employees...)
		out[i] = p
	}
	return out, nil
}

func (f *fakeAPI) ListTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	f.mu.Lock()
	f.record(fmt.Sprintf("ListTasks:%d", projectID))
	err := f.listTasksErr[projectID]
	tasks := append([]models.Task(nil), f.tasks[projectID]...)
	entered, release := f.tasksEntered, f.tasksRelease
	f.mu.Unlock()

	if entered != nil {
		entered <- projectID
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (f *fakeAPI) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListEmployees")
	if f.employeesErr != nil {
		return nil, f.employeesErr
	}
	return append([]models.Employee(nil), f.employees...), nil
}

func (f *fakeAPI) CreateProject(ctx context.Context, in models.ProjectCreate) (models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("CreateProject:%s|%s", in.Name, in.Description))
	if f.createErr != nil {
		return models.Project{}, f.createErr
	}
	f.nextID++
	p := models.Project{ID: f.nextID, Name: in.Name, Description: in.Description}
	f.projects = append(f.projects, p)
	return p, nil
}

func (f *fakeAPI) CreateTask(ctx context.Context, in models.TaskCreate) (models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("CreateTask:%d|%s", in.ProjectID, in.Name))
	if f.createErr != nil {
		return models.Task{}, f.createErr
	}
	f.nextID++
	t := models.Task{ID: f.nextID, Name: in.Name, ProjectID: in.ProjectID}
	f.tasks[in.ProjectID] = append(f.tasks[in.ProjectID], t)
	return t, nil
}

func (f *fakeAPI) UpdateProject(ctx context.Context, id int64, in models.ProjectUpdate) (models.Project, error) {
	var ids []int64
	if in.EmployeeIDs != nil {
		ids = append([]int64(nil), (*in.EmployeeIDs)...)
	}

	f.mu.Lock()
	f.record(fmt.Sprintf("UpdateProject:%d", id))
	f.updates = append(f.updates, ids)
	entered, release := f.updateEntered, f.updateRelease
	f.mu.Unlock()

	if entered != nil {
		entered <- ids
		select {
		case <-release:
		case <-ctx.Done():
			return models.Project{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return models.Project{}, f.updateErr
	}
	for i, p := range f.projects {
		if p.ID == id {
			f.projects[i].Employees = f.employeesLocked(ids)
			return f.projects[i], nil
		}
	}
	return models.Project{}, fmt.Errorf("project %d not found", id)
}
