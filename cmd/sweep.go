package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/commonground-backend/internal/app"
)

func newSweepOrphansCmd() *cobra.Command {
	var grace time.Duration
	cmd := &cobra.Command{
		Use:   "sweep-orphans",
		Short: "Delete groups that never received an owner",
		Long: `Group creation writes the group row and the owner membership in separate
transactions. A crash between them leaves a memberless group. This command
removes memberless groups created more than --grace ago.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if grace < 0 {
				return fmt.Errorf("--grace must not be negative")
			}
			return withApp(cmd, func(a *app.App) error {
				n, err := a.Services.Groups.SweepOrphans(cmd.Context(), grace)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphan group(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", 15*time.Minute, "minimum age of a memberless group before it is removed")
	return cmd
}
