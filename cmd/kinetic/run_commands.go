package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kinetic/internal/catalog"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect pipeline run history",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var pipelineID int64
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *services) error {
				filter := catalog.RunFilter{Limit: limit}
				if cmd.Flags().Changed("pipeline") {
					filter.PipelineID = &pipelineID
				}
				if status != "" {
					filter.Status = catalog.RunStatus(status)
				}
				runs, err := svc.Pipelines.ListRuns(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(runs))
				for _, r := range runs {
					rows = append(rows, []string{
						fmt.Sprintf("%d", r.ID),
						fmt.Sprintf("%d", r.PipelineID),
						formatStatus(out, r.Status),
						formatTimestamp(r.CompletedAt),
						shortHash(r.LogHash),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Pipeline", "Status", "Completed", "Log"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&pipelineID, "pipeline", 0, "Only runs of this pipeline")
	cmd.Flags().StringVar(&status, "status", "", "Only runs with this status (Successful or Failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var showLog bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run, optionally with its captured log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *services) error {
				run, err := svc.Pipelines.GetRun(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %d (pipeline %d)\n", run.ID, run.PipelineID)
				fmt.Fprintf(out, "Status:    %s\n", formatStatus(out, run.Status))
				fmt.Fprintf(out, "Completed: %s\n", formatTimestamp(run.CompletedAt))
				fmt.Fprintf(out, "Log hash:  %s\n", run.LogHash)
				if !showLog {
					return nil
				}
				logText, err := svc.Pipelines.RunLog(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				fmt.Fprint(out, logText)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showLog, "log", false, "Print the captured run log")
	return cmd
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
