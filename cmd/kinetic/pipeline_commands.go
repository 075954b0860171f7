package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"kinetic/internal/api"
	"kinetic/internal/pipeline"
)

func newPipelineCommand(ctx *commandContext) *cobra.Command {
	pipelineCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Manage and run pipelines",
	}

	pipelineCmd.AddCommand(newPipelineCreateCommand(ctx))
	pipelineCmd.AddCommand(newPipelineListCommand(ctx))
	pipelineCmd.AddCommand(newPipelineShowCommand(ctx))
	pipelineCmd.AddCommand(newPipelineAddStepCommand(ctx))
	pipelineCmd.AddCommand(newPipelineRunCommand(ctx))

	return pipelineCmd
}

func newPipelineCreateCommand(ctx *commandContext) *cobra.Command {
	var streamID int64

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *services) error {
				var stream *int64
				if cmd.Flags().Changed("stream") {
					stream = &streamID
				}
				created, err := svc.Pipelines.Create(cmd.Context(), args[0], stream)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created pipeline %d (%s)\n", created.ID, created.Name)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&streamID, "stream", 0, "Default stream id for runs")
	return cmd
}

func newPipelineListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pipelines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *services) error {
				pipelines, err := svc.Pipelines.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(pipelines) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No pipelines defined")
					return nil
				}
				rows := make([][]string, 0, len(pipelines))
				for _, p := range pipelines {
					rows = append(rows, []string{
						fmt.Sprintf("%d", p.ID),
						p.Name,
						formatOptionalID(p.StreamID),
						fmt.Sprintf("%d", len(p.Steps)),
						formatTimestamp(p.CreatedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Stream", "Steps", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newPipelineShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a pipeline and its step chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *services) error {
				p, err := svc.Pipelines.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Pipeline %d: %s\n", p.ID, p.Name)
				fmt.Fprintf(out, "Stream:  %s\n", formatOptionalID(p.StreamID))
				fmt.Fprintf(out, "Created: %s\n", formatTimestamp(p.CreatedAt))
				if len(p.Steps) == 0 {
					fmt.Fprintln(out, "No steps configured")
					return nil
				}
				fmt.Fprintln(out, "Steps:")
				for i, s := range p.Steps {
					fmt.Fprintf(out, "  %d. %s %s\n", i+1, stepLabel(s.Type), formatParams(s.Params))
				}
				return nil
			})
		},
	}
}

func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		encoded, err := json.Marshal(params[k])
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, encoded))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func newPipelineAddStepCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-step <pipeline-id> <descriptor-json>",
		Short: "Append a step to a pipeline",
		Long: `Append a step to a pipeline. The descriptor is JSON of the form
{"type": "filter", "params": {"expression": "metadata.is_video == true"}}
and is validated against the step registry before being stored.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *services) error {
				updated, err := svc.Pipelines.AppendStep(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pipeline %d now has %d step(s)\n", updated.ID, len(updated.Steps))
				return nil
			})
		},
	}
	return cmd
}

func newPipelineRunCommand(ctx *commandContext) *cobra.Command {
	var streamID int64
	var limit int

	cmd := &cobra.Command{
		Use:   "run <pipeline-id>",
		Short: "Run a pipeline against its stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *services) error {
				opts := api.RunOptions{Limit: limit}
				if cmd.Flags().Changed("stream") {
					opts.StreamID = &streamID
				}
				run, runErr := svc.Pipelines.Run(cmd.Context(), id, opts)
				out := cmd.OutOrStdout()
				if run.ID != 0 {
					fmt.Fprintf(out, "Run %d finished: %s\n", run.ID, formatStatus(out, run.Status))
				}
				if runErr != nil {
					if errors.Is(runErr, pipeline.ErrAllItemsFailed) {
						fmt.Fprintf(out, "Inspect the log with `kinetic runs show %d --log`\n", run.ID)
					}
					return runErr
				}
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&streamID, "stream", 0, "Override the pipeline's stream for this run")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after consuming this many stream items")
	return cmd
}
