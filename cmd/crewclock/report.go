package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fentz26/crewclock/internal/assistant"
	"github.com/fentz26/crewclock/internal/models"
	"github.com/fentz26/crewclock/internal/reports"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show project and hours summary",
	RunE:  runReport,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask about a worker or project",
	Long: `Answers questions about workers and projects from the loaded clock entries,
for example: crewclock ask "Alice on Atlas".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent queue decisions",
	RunE:  runAudit,
}

var (
	auditAction string
	auditLimit  int
)

func init() {
	auditCmd.Flags().StringVar(&auditAction, "action", "", "Filter by action (clock.record, queue.replay, queue.drop)")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "Maximum records to show")
}

func runReport(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := commandContext()
	defer cancel()

	var (
		projects []models.Project
		workers  []models.Worker
		entries  []models.ClockEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projects, err = d.client.ListProjects(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		workers, err = d.client.ListWorkers(gctx, 0)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = d.client.ListClockEntries(gctx, 0, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load data. Please check your connection.")
		return err
	}

	r := reports.Build(projects, workers, entries, time.Now())
	s := r.Summary
	fmt.Printf("Total Projects:  %d\n", s.TotalProjects)
	fmt.Printf("Active Projects: %d\n", s.ActiveProjects)
	fmt.Printf("Completed:       %d\n", s.CompletedProjects)
	fmt.Printf("Success Rate:    %s\n", s.SuccessText())
	fmt.Printf("Team Members:    %d\n", s.TeamMembers)

	printHours("PROJECT", r.ByProject)
	printHours("WORKER", r.ByWorker)
	return nil
}

func printHours(title string, rows []reports.HoursRow) {
	fmt.Println()
	if len(rows) == 0 {
		fmt.Printf("No %s hours recorded\n", strings.ToLower(title))
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tENTRIES\tOPEN\tHOURS\n", title)
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\n", row.Name, row.Entries, row.Open, row.Hours)
	}
	w.Flush()
}

func runAsk(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := commandContext()
	defer cancel()

	board, err := d.service.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load data. Please check your connection.")
		return err
	}

	answer := assistant.New(time.Local).Answer(strings.Join(args, " "), assistant.Data{
		Workers:  workersOf(board),
		Projects: board.Projects,
		Entries:  board.Entries,
	})
	fmt.Println(answer)
	return nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	entries, err := d.auditor.Recent(models.AuditAction(auditAction), auditLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No audit records found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOUTCOME\tINPUTS\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format(timeLayout), e.Action,
			e.Outcome, truncate(e.InputsHash, 12), truncate(e.Details, 60))
	}
	w.Flush()
	return nil
}
