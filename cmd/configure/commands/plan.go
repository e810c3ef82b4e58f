package commands

import (
	"fmt"

	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/planner"
	"github.com/spf13/cobra"
)

// NewPlanCmd creates the plan command, which prints the auto plan for a
// focus length and optional work window
func NewPlanCmd() *cobra.Command {
	var focus int
	var start, end string
	cmd := &cobra.Command{
		Use:     "plan",
		Short:   "Show the Pomodoro plan derived for a work window",
		Example: "  study-planner-configure plan --focus 25 --start 09:00 --end 12:00",
		RunE: func(cmd *cobra.Command, args []string) error {
			startTime, err := calendar.ParseOptionalTime(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			endTime, err := calendar.ParseOptionalTime(end)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}

			available := planner.WindowMinutes(startTime, endTime)
			plan := planner.DeriveAutoplan(focus, available)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Focus:    %d min\n", plan.FocusMinutes)
			fmt.Fprintf(out, "Break:    %d min\n", plan.BreakMinutes)
			fmt.Fprintf(out, "Sessions: %d\n", plan.SessionCount)
			if available != nil {
				fmt.Fprintf(out, "Window:   %d min (%s - %s)\n", *available, startTime.Display(), endTime.Display())
			} else {
				fmt.Fprintln(out, "Window:   none, using default session count")
			}
			fmt.Fprintf(out, "Total:    %d min\n", plan.TotalMinutes())
			return nil
		},
	}
	cmd.Flags().IntVar(&focus, "focus", planner.DefaultFocusMinutes, "Focus minutes per session")
	cmd.Flags().StringVar(&start, "start", "", "Window start (HH:mm)")
	cmd.Flags().StringVar(&end, "end", "", "Window end (HH:mm)")
	return cmd
}
