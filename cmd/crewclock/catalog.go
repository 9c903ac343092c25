package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fentz26/crewclock/internal/models"
	"github.com/fentz26/crewclock/internal/timeclock"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE:  runProjectList,
}

var projectAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a project",
	RunE:  runProjectAdd,
}

var projectAssignCmd = &cobra.Command{
	Use:   "assign [project] [worker]",
	Short: "Assign a worker to a project",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectAssign,
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Manage workers",
}

var workerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workers",
	RunE:  runWorkerList,
}

var workerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a worker",
	RunE:  runWorkerAdd,
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Manage support queries",
}

var queryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List support queries",
	RunE:  runQueryList,
}

var queryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Raise a support query",
	RunE:  runQueryAdd,
}

var (
	projectName      string
	projectDesc      string
	projectStatus    string
	projectAddStatus string
	workerName       string
	workerRole       string
	workerProject    string
	queryTitle       string
	queryDesc        string
	queryWorker      string
	queryProject     string
	queryPriority    string
)

func init() {
	projectCmd.AddCommand(projectListCmd, projectAddCmd, projectAssignCmd)
	workerCmd.AddCommand(workerListCmd, workerAddCmd)
	queryCmd.AddCommand(queryListCmd, queryAddCmd)

	projectListCmd.Flags().StringVar(&projectStatus, "status", "", "Filter by status (Planned, In Progress, Completed)")

	projectAddCmd.Flags().StringVar(&projectName, "name", "", "Project name (required)")
	projectAddCmd.Flags().StringVar(&projectDesc, "desc", "", "Project description")
	projectAddCmd.Flags().StringVar(&projectAddStatus, "status", models.ProjectPlanned, "Project status")
	projectAddCmd.MarkFlagRequired("name")

	workerListCmd.Flags().StringVar(&workerProject, "project", "", "Only list workers assigned to this project (id or name)")

	workerAddCmd.Flags().StringVar(&workerName, "name", "", "Worker name (required)")
	workerAddCmd.Flags().StringVar(&workerRole, "role", "", "Worker role (required)")
	workerAddCmd.Flags().StringVar(&workerProject, "project", "", "Assign to this project (id or name)")
	workerAddCmd.MarkFlagRequired("name")
	workerAddCmd.MarkFlagRequired("role")

	queryAddCmd.Flags().StringVar(&queryTitle, "title", "", "Query title (required)")
	queryAddCmd.Flags().StringVar(&queryDesc, "desc", "", "Query description")
	queryAddCmd.Flags().StringVar(&queryWorker, "worker", "", "Worker raising the query")
	queryAddCmd.Flags().StringVar(&queryProject, "project", "", "Project the query is about")
	queryAddCmd.Flags().StringVar(&queryPriority, "priority", "Medium", "Priority (Low, Medium, High)")
	queryAddCmd.MarkFlagRequired("title")
}

func runProjectList(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := commandContext()
	defer cancel()

	projects, err := d.client.ListProjects(ctx, projectStatus)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tDESCRIPTION")
	for _, p := range projects {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Status, truncate(p.Description, 40))
	}
	w.Flush()
	return nil
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := commandContext()
	defer cancel()

	p, err := d.client.CreateProject(ctx, projectName, projectDesc, projectAddStatus)
	if err != nil {
		return err
	}
	fmt.Printf("Created project %d: %s\n", p.ID, p.Name)
	return nil
}

func runProjectAssign(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := commandContext()
	defer cancel()

	workerID, projectID, err := resolveRefs(ctx, d, args[1], args[0])
	if err != nil {
		return err
	}
	if err := d.client.AssignWorker(ctx, projectID, workerID); err != nil {
		return err
	}
	fmt.Printf("Assigned worker %d to project %d\n", workerID, projectID)
	return nil
}

func runWorkerList(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := commandContext()
	defer cancel()

	projects, err := d.client.ListProjects(ctx, "")
	if err != nil {
		return err
	}
	projectID := 0
	if workerProject != "" {
		p, err := timeclock.FindProject(projects, workerProject)
		if err != nil {
			return err
		}
		projectID = p.ID
	}

	workers, err := d.client.ListWorkers(ctx, projectID)
	if err != nil {
		return err
	}
	if len(workers) == 0 {
		fmt.Println("No workers found")
		return nil
	}

	names := make(map[int]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tPROJECT")
	for _, wk := range workers {
		project := ""
		if wk.AssignedProjectID != nil {
			project = names[*wk.AssignedProjectID]
			if project == "" {
				project = fmt.Sprintf("ID: %d", *wk.AssignedProjectID)
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", wk.ID, wk.Name, wk.Role, project)
	}
	w.Flush()
	return nil
}

func runWorkerAdd(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := commandContext()
	defer cancel()

	var projectID *int
	if workerProject != "" {
		projects, err := d.client.ListProjects(ctx, "")
		if err != nil {
			return err
		}
		p, err := timeclock.FindProject(projects, workerProject)
		if err != nil {
			return err
		}
		projectID = &p.ID
	}

	wk, err := d.client.CreateWorker(ctx, workerName, workerRole, projectID)
	if err != nil {
		return err
	}
	fmt.Printf("Created worker %d: %s\n", wk.ID, wk.Name)
	return nil
}

func runQueryList(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := commandContext()
	defer cancel()

	queries, err := d.client.ListQueries(ctx)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		fmt.Println("No queries found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tWORKER\tPROJECT\tPRIORITY\tSTATUS\tCREATED")
	for _, q := range queries {
		created := ""
		if !q.CreatedAt.IsZero() {
			created = q.CreatedAt.Local().Format(timeLayout)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", q.ID, truncate(q.Title, 40), q.WorkerName,
			q.ProjectName, q.Priority, q.Status, created)
	}
	w.Flush()
	return nil
}

func runQueryAdd(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := commandContext()
	defer cancel()

	q, err := d.client.CreateQuery(ctx, models.QueryTicket{
		Title:       queryTitle,
		Description: queryDesc,
		WorkerName:  queryWorker,
		ProjectName: queryProject,
		Priority:    queryPriority,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created query %d: %s\n", q.ID, q.Title)
	return nil
}
