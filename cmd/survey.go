package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/commonground-backend/internal/app"
	"github.com/yungbote/commonground-backend/internal/survey"
)

func newSurveyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "survey",
		Short: "Inspect and publish survey definitions",
	}
	cmd.AddCommand(newSurveyValidateCmd(), newSurveyPublishCmd())
	return cmd
}

func newSurveyValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Parse and validate a YAML or JSON survey definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := survey.ParseFile(args[0])
			if err != nil {
				return err
			}
			sum, err := def.Checksum()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version:    %s\n", def.Version)
			fmt.Fprintf(out, "title:      %s\n", def.Title)
			fmt.Fprintf(out, "categories: %d\n", len(def.Categories))
			fmt.Fprintf(out, "questions:  %d\n", len(def.Questions))
			fmt.Fprintf(out, "checksum:   %s\n", sum)
			return nil
		},
	}
}

func newSurveyPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <file>",
		Short: "Publish a survey definition into the database",
		Long: `Published versions are immutable. Publishing identical content again is a
no-op; publishing different content under an existing version fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := survey.ParseFile(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				if a.Cfg.DBDriver == app.DriverMemory {
					return fmt.Errorf("survey publish: DB_DRIVER=memory does not persist")
				}
				created, err := a.Services.Surveys.Publish(cmd.Context(), def)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", def.Version)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s already published with identical content\n", def.Version)
				}
				return nil
			})
		},
	}
}
