package commands

import (
	"fmt"

	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/conflict"
	"github.com/benvon/study-planner/internal/database"
	"github.com/benvon/study-planner/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewConflictsCmd creates the conflicts command, which runs a live conflict
// check for a hypothetical task against a user's stored tasks
func NewConflictsCmd() *cobra.Command {
	var userID, date, dueTime, priority, title string
	cmd := &cobra.Command{
		Use:     "conflicts",
		Short:   "Check a proposed task for scheduling conflicts",
		Example: "  study-planner-configure conflicts --user <uuid> --date 2025-12-05 --time 14:00 --priority High",
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("--user must be a UUID: %w", err)
			}
			dueDate, err := calendar.ParseDate(date)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			t, err := calendar.ParseOptionalTime(dueTime)
			if err != nil {
				return fmt.Errorf("--time: %w", err)
			}
			p, err := models.ParsePriority(priority)
			if err != nil {
				return fmt.Errorf("--priority: %w", err)
			}

			db, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			detector := conflict.NewDetector(database.NewTaskRepository(db))
			candidate := &models.Task{UserID: uid, Title: title, Priority: p, DueDate: dueDate, DueTime: t}
			report := detector.CheckConflicts(cmd.Context(), uid, candidate)

			out := cmd.OutOrStdout()
			if !report.HasConflict {
				fmt.Fprintln(out, "No conflicts.")
				return nil
			}
			fmt.Fprintf(out, "Conflict: %s\n", report.ConflictType)
			for _, task := range report.ConflictingTasks {
				due := "end of day"
				if task.DueTime != nil {
					due = task.DueTime.Display()
				}
				fmt.Fprintf(out, "  - %s [%s] due %s %s\n", task.Label(), task.Priority, task.DueDate, due)
			}
			fmt.Fprintf(out, "Recommendation: %s\n", report.Recommendation)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID (required)")
	cmd.Flags().StringVar(&date, "date", "", "Due date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&dueTime, "time", "", "Due time HH:mm")
	cmd.Flags().StringVar(&priority, "priority", string(models.PriorityMedium), "High, Medium or Low")
	cmd.Flags().StringVar(&title, "title", "Proposed task", "Title used in the recommendation")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
