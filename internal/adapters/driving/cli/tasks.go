package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var tasksHistory int

var tasksCmd = &cobra.Command{
	Use:   "tasks [task-id]",
	Short: "Show background task state and recent runs",
	Long: `Without arguments, lists every background task with its next run and
last outcome. With a task ID, prints that task's most recent runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().IntVar(&tasksHistory, "limit", 10, "number of runs to show for a task")
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	if scheduler == nil {
		return notConfigured("scheduler")
	}
	ctx := cmd.Context()

	if len(args) == 1 {
		runs, err := scheduler.History(ctx, args[0], tasksHistory)
		if err != nil {
			return fmt.Errorf("task history: %w", err)
		}
		if len(runs) == 0 {
			cmd.Printf("No runs recorded for %s.\n", args[0])
			return nil
		}
		for _, r := range runs {
			outcome := "ok"
			if !r.Succeeded() {
				outcome = "failed: " + r.Error
			}
			cmd.Printf("%s  %8s  %s  %s\n", r.StartedAt.Local().Format("2006-01-02 15:04"),
				r.Duration().Round(time.Millisecond), r.Counts, outcome)
		}
		return nil
	}

	tasks, err := scheduler.Tasks(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		cmd.Println("No tasks scheduled. Run 'drivesync serve' to start the scheduler.")
		return nil
	}
	for _, t := range tasks {
		state := "enabled"
		if !t.Enabled {
			state = "disabled"
		}
		line := fmt.Sprintf("%-20s  %-8s  every %-6s  next %s", t.ID, state, t.Interval, t.NextRun.Local().Format("2006-01-02 15:04"))
		if t.Failures > 0 {
			line += fmt.Sprintf("  (%d failed run(s): %s)", t.Failures, t.LastError)
		}
		cmd.Println(line)
	}
	return nil
}
