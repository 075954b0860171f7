package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kinetic/internal/stream"
)

func newStreamCommand(ctx *commandContext) *cobra.Command {
	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "Manage media streams",
	}

	streamCmd.AddCommand(newStreamAddCommand(ctx))
	streamCmd.AddCommand(newStreamListCommand(ctx))
	streamCmd.AddCommand(newStreamRemoveCommand(ctx))
	streamCmd.AddCommand(newStreamTypesCommand())

	return streamCmd
}

func newStreamAddCommand(ctx *commandContext) *cobra.Command {
	var streamType string
	var params string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a stream definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *services) error {
				added, err := svc.Streams.Add(cmd.Context(), args[0], streamType, params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added stream %d (%s)\n", added.ID, added.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&streamType, "type", "", "Stream type (see `kinetic stream types`)")
	cmd.Flags().StringVar(&params, "params", "{}", "Stream parameters as JSON")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newStreamListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered streams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *services) error {
				streams, err := svc.Streams.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(streams) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No streams registered")
					return nil
				}
				rows := make([][]string, 0, len(streams))
				for _, s := range streams {
					rows = append(rows, []string{
						fmt.Sprintf("%d", s.ID),
						s.Name,
						s.Type,
						s.Params,
						formatTimestamp(s.CreatedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Type", "Params", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newStreamRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a stream definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withServices(func(svc *services) error {
				if err := svc.Streams.Remove(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed stream %d\n", id)
				return nil
			})
		},
	}
}

func newStreamTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "types",
		Short:       "List available stream types",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(stream.Types(), "\n"))
			return nil
		},
	}
}
