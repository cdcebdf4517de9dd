package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"survdash/internal/exporter"
	"survdash/internal/files"
	"survdash/pkg/contracts/domain"
)

func newReportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report FILE",
		Short: "Print the summary report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadDataset(args[0])
			if err != nil {
				return err
			}
			report := newSummarizer().Report(ds)

			switch format {
			case "text":
				return exporter.WriteReport(cmd.OutOrStdout(), report)
			case "json":
				return writeJSON(cmd, report)
			default:
				return fmt.Errorf("unsupported report format %q (want text or json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		output string
		bom    bool
	)

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write the line-list rows as CSV",
		Long: `Writes every row and column of the line-list as read, header first.
Without --output the file is named disease_surveillance_<timestamp>.csv in
the current directory; "-" writes to standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadDataset(args[0])
			if err != nil {
				return err
			}

			writer := exporter.NewCSVWriter(nil)
			if output == "-" {
				return writer.WriteTable(cmd.OutOrStdout(), ds.Raw, bom)
			}
			if output == "" {
				output = exporter.ExportFilename(time.Now())
			}
			if err := fileValidator().ValidateOutputDirectory(filepath.Dir(output)); err != nil {
				return err
			}

			path, err := writer.WriteFile(output, ds.Raw, bom)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", ds.Raw.Len(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, or - for stdout")
	cmd.Flags().BoolVar(&bom, "bom", true, "prefix the file with a UTF-8 byte order mark")
	return cmd
}

func newViewCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:       "view FILE VIEW",
		Short:     "Print one dashboard view as JSON",
		Long:      "Prints one of the dashboard views: overview, clinical, districts, demographics, epidemiology or report.",
		Args:      cobra.ExactArgs(2),
		ValidArgs: viewNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := domain.ViewName(args[1])
			if !name.IsValid() {
				return fmt.Errorf("unknown view %q (want one of %v)", args[1], viewNames())
			}
			if top < 0 {
				return fmt.Errorf("--top must not be negative")
			}

			ds, err := loadDataset(args[0])
			if err != nil {
				return err
			}

			summarizer := newSummarizer()
			if top > 0 {
				summarizer = summarizer.WithOptions(domain.DashboardOptions{
					TopComplications: top,
					TopDistricts:     top,
					ReportDistricts:  top,
				})
			}

			view, err := summarizer.View(ds, name)
			if err != nil {
				return err
			}
			return writeJSON(cmd, view)
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "override the Top-N limits of the view")
	return cmd
}

func newChartCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "chart FILE CHART",
		Short: "Render one dashboard chart as PNG",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadDataset(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = args[1] + ".png"
			}

			width, height := 0, 0
			if cfg != nil {
				width, height = cfg.Export.ChartWidth, cfg.Export.ChartHeight
			}
			dashboard := newSummarizer().Dashboard(context.Background(), ds)

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := exporter.NewChartRenderer(width, height).Render(f, exporter.ChartName(args[1]), dashboard); err != nil {
				f.Close()
				os.Remove(output)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: CHART.png)")
	return cmd
}

func newListCmd() *cobra.Command {
	var (
		pattern string
		since   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "list DIR",
		Short: "List the line-lists in a directory, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			discovery := files.NewDiscovery("")

			var (
				found []files.FileInfo
				err   error
			)
			if pattern != "" {
				found, err = discovery.FindFilesByPattern(args[0], pattern)
			} else {
				found, err = discovery.FindLineLists(args[0])
			}
			if err != nil {
				return err
			}

			if since > 0 {
				now := time.Now()
				found = files.FilterFilesByDateRange(found, now.Add(-since), now)
			}
			if len(found) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No line-lists found")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tFORMAT\tSIZE\tMODIFIED")
			for _, f := range found {
				format := string(f.Format)
				if format == "" {
					format = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", f.Name, format, f.Size, f.ModTime.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "glob to match instead of the supported line-list types")
	cmd.Flags().DurationVar(&since, "since", 0, "only files modified within this duration")
	return cmd
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func viewNames() []string {
	names := make([]string, len(domain.Views))
	for i, v := range domain.Views {
		names[i] = string(v)
	}
	return names
}
