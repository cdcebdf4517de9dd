// Command survreport summarizes a surveillance line-list from the command
// line using the same parsing and aggregation as the dashboard service.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"survdash/internal/config"
	"survdash/internal/dataprocessing"
	"survdash/internal/files"
	"survdash/internal/validation"
	"survdash/pkg/contracts"
)

var (
	// Global flags
	verbose   bool
	headerRow int
	sheet     string
	program   string

	logger *slog.Logger
	cfg    *config.Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "survreport",
		Short: "Summarize a disease surveillance line-list",
		Long: `survreport reads an .xlsx or .csv line-list and prints the summary report,
a single dashboard view as JSON, a CSV export or a chart, or lists the
line-lists in a directory. FILE may be a
directory, in which case its most recently modified line-list is used.

Defaults come from the survdash configuration (SURV_* environment variables
and the optional config file).`,
		Version:       contracts.GetVersionInfo().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().IntVar(&headerRow, "header-row", 0, "1-based header row (default: 2 for workbooks, 1 for CSV)")
	root.PersistentFlags().StringVar(&sheet, "sheet", "", "worksheet name (default: first sheet)")
	root.PersistentFlags().StringVar(&program, "program", "", "program name printed in the report header")

	root.AddCommand(newReportCmd(), newExportCmd(), newViewCmd(), newChartCmd(), newListCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// resolveInput returns path itself, or the newest line-list in it when path
// is a directory
func resolveInput(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return path, nil
	}

	latest, err := files.NewDiscovery("").Latest(path)
	if err != nil {
		return "", err
	}
	logger.Info("Using newest line-list in directory",
		slog.String("dir", path),
		slog.String("file", latest.Name))
	return latest.Path, nil
}

// loadDataset parses the line-list at path and derives its cleaned data.
// A directory selects its most recently modified line-list.
func loadDataset(path string) (*dataprocessing.Dataset, error) {
	path, err := resolveInput(path)
	if err != nil {
		return nil, err
	}

	if err := fileValidator().ValidateFile(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	opts := parseOptions(path)

	table, err := dataprocessing.Parse(path, f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	ds := dataprocessing.NewDataset(table)
	logger.Debug("Line-list loaded",
		slog.String("file", path),
		slog.Int("raw_rows", len(ds.Records)),
		slog.Int("cleaned_rows", len(ds.CleanRecords)),
		slog.Int("unparsed_ages", ds.UnparsedAges),
		slog.Int("unparsed_dates", ds.UnparsedDates))
	return ds, nil
}

// parseOptions combines the --header-row and --sheet flags with the
// configured ingest defaults for the file's format
func parseOptions(path string) dataprocessing.ParseOptions {
	opts := dataprocessing.ParseOptions{HeaderRow: headerRow, Sheet: sheet}
	if cfg == nil {
		return opts
	}

	format, _ := dataprocessing.DetectFormat(path)
	if opts.HeaderRow <= 0 {
		if format == dataprocessing.FormatCSV {
			opts.HeaderRow = cfg.Ingest.CSVHeaderRow
		} else {
			opts.HeaderRow = cfg.Ingest.HeaderRow
		}
	}
	if opts.Sheet == "" && format == dataprocessing.FormatWorkbook {
		opts.Sheet = cfg.Ingest.Sheet
	}
	return opts
}

// fileValidator applies the service's ingest rules to local files
func fileValidator() *validation.FileValidator {
	ingest := config.Default().Ingest
	if cfg != nil {
		ingest = cfg.Ingest
	}
	return validation.NewFileValidator(logger, ingest)
}

// newSummarizer builds a summarizer from the loaded configuration and flags
func newSummarizer() *dataprocessing.Summarizer {
	sc := dataprocessing.DefaultSummarizerConfig()
	if cfg != nil {
		sc.Program = cfg.Report.Program
		sc.Options.TopComplications = cfg.Report.TopComplications
		sc.Options.TopDistricts = cfg.Report.CrossTabDistrict
		sc.Options.ReportDistricts = cfg.Report.TopDistricts
	}
	if program != "" {
		sc.Program = program
	}
	return dataprocessing.NewSummarizer(logger, sc)
}
