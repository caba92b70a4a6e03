package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"timetracker/internal/admin"
	"timetracker/internal/dashboard"
	"timetracker/internal/register"
	"timetracker/internal/remote"
)

func (a *app) projectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects with their tasks and assigned employees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.mountedView(cmd.Context())
			if err != nil {
				return err
			}
			defer view.Close()
			printPage(a.out, view.Render())
			return nil
		},
	}
}

func (a *app) createProjectCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create-project NAME",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.mountedView(cmd.Context())
			if err != nil {
				return err
			}
			defer view.Close()

			project, err := view.CreateProject(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "created project %d %q\n", project.ID, project.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	return cmd
}

func (a *app) addTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-task PROJECT_ID NAME",
		Short: "Add a task to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			view, err := a.mountedView(cmd.Context())
			if err != nil {
				return err
			}
			defer view.Close()

			task, err := view.CreateTask(cmd.Context(), projectID, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "added task %d %q to project %d\n", task.ID, task.Name, projectID)
			return nil
		},
	}
}

func (a *app) assignCmd() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "assign PROJECT_ID EMPLOYEE_ID",
		Short: "Assign an employee to a project (or remove with --remove)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			employeeID, err := parseID("employee", args[1])
			if err != nil {
				return err
			}
			view, err := a.mountedView(cmd.Context())
			if err != nil {
				return err
			}
			defer view.Close()

			if err := view.SetAssignment(cmd.Context(), projectID, employeeID, !remove); err != nil {
				return err
			}
			for _, card := range view.Render().Projects {
				if card.ID == projectID {
					fmt.Fprintf(a.out, "%s: %s\n", card.Name, assignedList(card))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the employee instead of adding")
	return cmd
}

func (a *app) projectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "project ID",
		Short: "Show one project and its assigned employees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			project, err := a.client.GetProject(cmd.Context(), id)
			if remote.IsStatus(err, http.StatusNotFound) {
				return fmt.Errorf("project %d not found", id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d %s\n", project.ID, project.Name)
			if project.Description != "" {
				fmt.Fprintf(a.out, "  %s\n", project.Description)
			}
			for _, e := range project.Employees {
				fmt.Fprintf(a.out, "  - %s <%s>\n", e.Name, e.Email)
			}
			return nil
		},
	}
}

func (a *app) employeeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "employee ID",
		Short: "Show one employee and their verification state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("employee", args[0])
			if err != nil {
				return err
			}
			employee, err := a.client.GetEmployee(cmd.Context(), id)
			if remote.IsStatus(err, http.StatusNotFound) {
				return fmt.Errorf("employee %d not found", id)
			}
			if err != nil {
				return err
			}
			state := "unverified"
			if employee.IsVerified {
				state = "verified"
			}
			fmt.Fprintf(a.out, "%d %s <%s> %s\n", employee.ID, employee.Name, employee.Email, state)
			return nil
		},
	}
}

func (a *app) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show employee, project and time tracking totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := dashboard.NewLoader(a.client, a.sink, a.logger).Load(cmd.Context())
			if err != nil {
				return err
			}
			printDashboard(a.out, summary)
			return nil
		},
	}
}

func (a *app) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register NAME EMAIL",
		Short: "Register an employee; the API emails a verification link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			employee, err := register.New(a.client, a.sink, a.logger).Register(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "registered employee %d <%s>\n", employee.ID, employee.Email)
			return nil
		},
	}
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify LINK",
		Short: "Verify an employee from the emailed link or its query string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := linkQuery(args[0])
			if err != nil {
				return err
			}
			v := register.New(a.client, a.sink, a.logger).Verify(cmd.Context(), query)
			if v.Status != register.StatusSuccess {
				return fmt.Errorf("verification failed: %s", v.Message)
			}
			fmt.Fprintf(a.out, "verified %s\n", v.Employee.Name)
			return nil
		},
	}
}

// linkQuery accepts a full URL or a bare query string.
func linkQuery(link string) (url.Values, error) {
	if i := strings.IndexByte(link, '?'); i >= 0 {
		link = link[i+1:]
	}
	query, err := url.ParseQuery(link)
	if err != nil {
		return nil, fmt.Errorf("parse link: %w", err)
	}
	return query, nil
}

func parseID(what, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}

func assignedList(card admin.ProjectCard) string {
	if len(card.Assigned) == 0 {
		return "-"
	}
	return strings.Join(card.Assigned, ", ")
}

func printPage(w io.Writer, page admin.Page) {
	fmt.Fprintf(w, "%d projects, %d tasks, %d employees\n", page.Stats.Projects, page.Stats.Tasks, page.Stats.Employees)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROJECT\tTASKS\tASSIGNED")
	for _, card := range page.Projects {
		tasks := "No tasks yet"
		if !card.NoTasks {
			names := make([]string, 0, len(card.Tasks))
			for _, t := range card.Tasks {
				names = append(names, t.Name)
			}
			tasks = strings.Join(names, ", ")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", card.ID, card.Name, tasks, assignedList(card))
	}
	tw.Flush()
}

func printDashboard(w io.Writer, s dashboard.Summary) {
	fmt.Fprintf(w, "employees: %d (%d verified)\nprojects: %d\nactive sessions: %d\n",
		s.Stats.Employees, s.Stats.VerifiedEmployees, s.Stats.Projects, s.Stats.ActiveSessions)
	if len(s.RecentEntries) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMPLOYEE\tPROJECT\tTASK\tDURATION")
	for _, e := range s.RecentEntries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.EmployeeName, e.ProjectName, e.TaskName, dashboard.FormatDuration(e.DurationSeconds))
	}
	tw.Flush()
}
