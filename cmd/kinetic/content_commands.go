package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kinetic/internal/catalog"
	"kinetic/internal/media"
)

func newContentCommand(ctx *commandContext) *cobra.Command {
	contentCmd := &cobra.Command{
		Use:   "content",
		Short: "Query the content catalog",
	}

	contentCmd.AddCommand(newContentListCommand(ctx))
	contentCmd.AddCommand(newContentExportCommand(ctx))

	return contentCmd
}

func newContentListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var pipelineID int64
	var streamID int64
	var sourceID string
	var orientation string
	var since string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List content, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *services) error {
				filter := catalog.ContentFilter{SourceID: sourceID}
				if cmd.Flags().Changed("pipeline") {
					filter.PipelineID = &pipelineID
				}
				if cmd.Flags().Changed("stream") {
					filter.StreamID = &streamID
				}
				if orientation != "" {
					parsed, ok := media.ParseOrientation(orientation)
					if !ok {
						return fmt.Errorf("unknown orientation %q", orientation)
					}
					filter.Orientation = parsed
				}
				if since != "" {
					parsed, err := time.Parse(time.RFC3339, since)
					if err != nil {
						return fmt.Errorf("invalid --since value %q (want RFC3339)", since)
					}
					filter.CreatedAfter = &parsed
				}

				matches, err := svc.Content.Query(cmd.Context(), limit, filter)
				if err != nil {
					return err
				}
				if len(matches) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No content matched")
					return nil
				}
				rows := make([][]string, 0, len(matches))
				for _, c := range matches {
					rows = append(rows, []string{
						shortHash(c.ID),
						formatOptionalID(c.PipelineID),
						formatOptionalID(c.StreamID),
						formatResolution(c.Width, c.Height),
						strings.Join(sortedVersions(c.Versions), ","),
						formatTimestamp(c.CreatedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Pipeline", "Stream", "Resolution", "Versions", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows to list")
	cmd.Flags().Int64Var(&pipelineID, "pipeline", 0, "Only content produced by this pipeline")
	cmd.Flags().Int64Var(&streamID, "stream", 0, "Only content from this stream")
	cmd.Flags().StringVar(&sourceID, "source", "", "Only content derived from this source id")
	cmd.Flags().StringVar(&orientation, "orientation", "", "Only content with this orientation (wide, tall, square)")
	cmd.Flags().StringVar(&since, "since", "", "Only content created after this RFC3339 timestamp")
	return cmd
}

func newContentExportCommand(ctx *commandContext) *cobra.Command {
	var version string
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <content-id>",
		Short: "Write one stored version of a content row to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(func(svc *services) error {
				data, err := svc.Content.VersionBytes(cmd.Context(), args[0], version)
				if err != nil {
					return err
				}
				if outPath == "" {
					outPath = fmt.Sprintf("%s-%s", shortHash(args[0]), version)
				}
				if err := os.WriteFile(outPath, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(data), outPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&version, "version", media.VersionOriginal, "Version to export")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path")
	return cmd
}

func formatResolution(width, height int) string {
	if width == 0 && height == 0 {
		return "-"
	}
	return fmt.Sprintf("%dx%d", width, height)
}

func sortedVersions(versions map[string]string) []string {
	names := make([]string, 0, len(versions))
	for name := range versions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
