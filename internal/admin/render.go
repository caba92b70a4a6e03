package admin

import (
	"strings"

	"timetracker/internal/models"
)

// Page is the render-ready projection of the view.
type Page struct {
	Stats        Stats         `json:"stats"`
	ProjectDraft ProjectDraft  `json:"project_draft"`
	Projects     []ProjectCard `json:"projects"`
}

// Stats are the overview counters shown above the project list.
type Stats struct {
	Projects  int `json:"projects"`
	Tasks     int `json:"tasks"`
	Employees int `json:"employees"`
}

// ProjectCard is one project with its tasks and assignment controls.
type ProjectCard struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Assigned holds the first names of assigned employees that are in the
	// roster, in assignment order.
	Assigned  []string       `json:"assigned"`
	Tasks     []models.Task  `json:"tasks"`
	NoTasks   bool           `json:"no_tasks"`
	Members   []MemberToggle `json:"members"`
	TaskDraft string         `json:"task_draft"`
}

// MemberToggle is the checkbox for one roster employee on one project.
type MemberToggle struct {
	EmployeeID int64  `json:"employee_id"`
	Name       string `json:"name"`
	Assigned   bool   `json:"assigned"`
}

// Render projects the current state for display.
func (v *ProjectsView) Render() Page {
	return RenderState(v.Snapshot())
}

// RenderState builds a Page from a state snapshot.
func RenderState(s State) Page {
	byID := make(map[int64]models.Employee, len(s.Employees))
	for _, e := range s.Employees {
		byID[e.ID] = e
	}

	page := Page{
		ProjectDraft: s.ProjectDraft,
		Projects:     make([]ProjectCard, 0, len(s.Projects)),
		Stats: Stats{
			Projects:  len(s.Projects),
			Employees: len(s.Employees),
		},
	}
	for _, tasks := range s.Tasks {
		page.Stats.Tasks += len(tasks)
	}

	for _, p := range s.Projects {
		members := s.Assignments[p.ID]
		tasks := s.Tasks[p.ID]
		if tasks == nil {
			tasks = []models.Task{}
		}

		card := ProjectCard{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Assigned:    []string{},
			Tasks:       tasks,
			NoTasks:     len(tasks) == 0,
			Members:     make([]MemberToggle, 0, len(s.Employees)),
			TaskDraft:   s.TaskDrafts[p.ID],
		}
		for _, id := range members {
			if e, ok := byID[id]; ok {
				card.Assigned = append(card.Assigned, FirstName(e.Name))
			}
		}
		for _, e := range s.Employees {
			card.Members = append(card.Members, MemberToggle{
				EmployeeID: e.ID,
				Name:       e.Name,
				Assigned:   members.Contains(e.ID),
			})
		}
		page.Projects = append(page.Projects, card)
	}
	return page
}

// FirstName returns the part of name before the first space.
func FirstName(name string) string {
	first, _, _ := strings.Cut(name, " ")
	return first
}
