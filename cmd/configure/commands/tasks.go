package commands

import (
	"fmt"

	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/database"
	"github.com/benvon/study-planner/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewTasksCmd creates the tasks command, which lists a user's tasks
func NewTasksCmd() *cobra.Command {
	var userID, date string
	var openOnly bool
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List a user's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("--user must be a UUID: %w", err)
			}
			var filter models.TaskFilter
			if date != "" {
				d, err := calendar.ParseDate(date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				filter.DueDate = &d
			}
			if openOnly {
				completed := false
				filter.Completed = &completed
			}

			db, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			tasks, err := database.NewTaskRepository(db).ListByUser(cmd.Context(), uid, filter)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks found")
				return nil
			}
			for _, t := range tasks {
				status := " "
				if t.Completed {
					status = "x"
				}
				fmt.Fprintf(out, "[%s] %s  %s  %-6s  %s\n", status, t.DueDate, formatDue(t.DueTime), t.Priority, t.Label())
				if p := t.PomodoroPlan; p != nil {
					fmt.Fprintf(out, "      %s plan: %d x (%d + %d min)\n", p.Mode, p.SessionCount, p.FocusMinutes, p.BreakMinutes)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID (required)")
	cmd.Flags().StringVar(&date, "date", "", "Only tasks due on this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&openOnly, "open", false, "Only incomplete tasks")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func formatDue(t *calendar.TimeOfDay) string {
	if t == nil {
		return "--:--"
	}
	return t.String()
}
