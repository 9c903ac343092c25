package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fentz26/crewclock/internal/models"
	"github.com/fentz26/crewclock/internal/timeclock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var clockInCmd = &cobra.Command{
	Use:   "clockin [worker] [project]",
	Short: "Clock a worker in on a project",
	Long: `Clocks a worker in on a project. Workers and projects may be given by id or
by name. If the backend is unreachable the action is saved offline and
replayed by 'crewclock sync' or 'crewclock watch'.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClock(models.ActionClockIn, args[0], args[1])
	},
}

var clockOutCmd = &cobra.Command{
	Use:   "clockout [worker] [project]",
	Short: "Clock a worker out of a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClock(models.ActionClockOut, args[0], args[1])
	},
}

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "List clock entries, including ones waiting to sync",
	RunE:  runEntries,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay actions saved offline",
	RunE:  runSync,
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Inspect the offline queue",
}

var pendingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List actions waiting to sync",
	RunE:  runPendingList,
}

var pendingDropCmd = &cobra.Command{
	Use:   "drop [local-id]",
	Short: "Remove a queued action without replaying it",
	Args:  cobra.ExactArgs(1),
	RunE:  runPendingDrop,
}

var (
	entriesWorker  string
	entriesProject string
)

func init() {
	pendingCmd.AddCommand(pendingListCmd, pendingDropCmd)

	entriesCmd.Flags().StringVar(&entriesWorker, "worker", "", "Only show entries for this worker (id or name)")
	entriesCmd.Flags().StringVar(&entriesProject, "project", "", "Only show entries for this project (id or name)")
}

func runClock(kind models.ActionKind, workerRef, projectRef string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := commandContext()
	defer cancel()

	workerID, projectID, err := resolveRefs(ctx, d, workerRef, projectRef)
	if err != nil {
		return err
	}

	outcome, err := d.service.ClockAction(ctx, kind, workerID, projectID)
	fmt.Println(timeclock.ActionNotice(kind, outcome, err))
	if err != nil {
		return fmt.Errorf("%s failed: %w", kind, err)
	}
	return nil
}

// resolveRefs maps worker and project refs to ids. Numeric refs are used
// as-is so clock actions still work while the backend is down.
func resolveRefs(ctx context.Context, d *deps, workerRef, projectRef string) (int, int, error) {
	workerID, werr := strconv.Atoi(workerRef)
	projectID, perr := strconv.Atoi(projectRef)
	if werr == nil && perr == nil {
		return workerID, projectID, nil
	}

	if werr != nil {
		workers, err := d.client.ListWorkers(ctx, 0)
		if err != nil {
			return 0, 0, fmt.Errorf("resolve worker %q (use an id while offline): %w", workerRef, err)
		}
		w, err := timeclock.FindWorker(workers, workerRef)
		if err != nil {
			return 0, 0, err
		}
		workerID = w.ID
	}
	if perr != nil {
		projects, err := d.client.ListProjects(ctx, "")
		if err != nil {
			return 0, 0, fmt.Errorf("resolve project %q (use an id while offline): %w", projectRef, err)
		}
		p, err := timeclock.FindProject(projects, projectRef)
		if err != nil {
			return 0, 0, err
		}
		projectID = p.ID
	}
	return workerID, projectID, nil
}

func runEntries(cmd *cobra.Command, args []string) error {
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

	entries := board.Entries
	if entriesWorker != "" {
		w, err := timeclock.FindWorker(workersOf(board), entriesWorker)
		if err != nil {
			return err
		}
		entries = filterEntries(entries, func(e models.DisplayEntry) bool { return e.WorkerID == w.ID })
	}
	if entriesProject != "" {
		p, err := timeclock.FindProject(board.Projects, entriesProject)
		if err != nil {
			return err
		}
		entries = filterEntries(entries, func(e models.DisplayEntry) bool { return e.ProjectID == p.ID })
	}

	s := board.Stats
	fmt.Printf("Total Workers: %d   Total Check-ins: %d   Attendance Rate: %s\n\n",
		s.TotalWorkers, s.TotalCheckins, s.AttendanceText())

	if len(entries) == 0 {
		fmt.Println("No clock entries found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWORKER\tPROJECT\tCLOCK IN\tCLOCK OUT\tHOURS\tSTATUS")
	for _, e := range entries {
		clockOut := "Active"
		if e.ClockOutTime != nil {
			clockOut = e.ClockOutTime.Local().Format(timeLayout)
		}
		hours := ""
		if e.TotalHours != nil {
			hours = strconv.FormatFloat(*e.TotalHours, 'f', 2, 64)
		}
		status := "Synced"
		switch {
		case e.OrphanClockOut:
			status = "Waiting to Sync (no clock-in)"
		case e.Offline:
			status = "Waiting to Sync"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.WorkerName, e.ProjectName,
			e.ClockInTime.Local().Format(timeLayout), clockOut, hours, status)
	}
	w.Flush()
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := commandContext()
	defer cancel()

	report := d.service.Sync(ctx)
	fmt.Println(timeclock.SyncNotice(report))
	logger.Debug("sync finished",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("still_pending", report.StillPending),
		zap.Int("rejected", report.Rejected))
	return nil
}

func runPendingList(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := commandContext()
	defer cancel()

	// Names are a nicety; the queue is listed even when the backend is down.
	workers, err := d.client.ListWorkers(ctx, 0)
	if err != nil {
		logger.Debug("worker names unavailable", zap.Error(err))
	}
	projects, err := d.client.ListProjects(ctx, "")
	if err != nil {
		logger.Debug("project names unavailable", zap.Error(err))
	}

	items := d.service.Pending(ctx, workers, projects)
	if len(items) == 0 {
		fmt.Println("No offline entries to sync.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LOCAL ID\tACTION\tWORKER\tPROJECT\tTIME\tNOTE")
	for _, item := range items {
		note := ""
		if item.Duplicate {
			note = "duplicate"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", item.Action.LocalID, item.Action.Kind.Label(),
			item.WorkerName, item.ProjectName, item.Action.Timestamp.Local().Format(timeLayout), note)
	}
	w.Flush()
	return nil
}

func runPendingDrop(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := commandContext()
	defer cancel()

	a, err := d.service.Drop(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Dropped %s (%s, worker %d, project %d)\n", a.LocalID, a.Kind.Label(), a.WorkerID, a.ProjectID)
	return nil
}
