package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kirillkom/legal-rag-api/internal/evaluation"
	"github.com/kirillkom/legal-rag-api/internal/observability/logging"
)

const queryTimeout = 60 * time.Second

type options struct {
	url      string
	testSet  string
	limit    int
	out      string
	xlsxPath string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "evaluate",
		Short:         "Run a test set against a running legal RAG API in both modes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			slog.SetDefault(logging.NewStderrJSONLogger("evaluate", os.Getenv("LOG_LEVEL")))
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, afero.NewOsFs(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "http://localhost:8000", "base URL of the API")
	cmd.Flags().StringVar(&opts.testSet, "test-set", "test_set.json", "path to the test set JSON file")
	cmd.Flags().IntVar(&opts.limit, "limit", 5, "questions per system (0 runs all)")
	cmd.Flags().StringVar(&opts.out, "out", "", "JSON report path (default test_results_<unix>.json)")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "also write an XLSX report to this path")
	return cmd
}

func run(ctx context.Context, fs afero.Fs, opts options, cmd *cobra.Command) error {
	set, err := evaluation.LoadTestSet(fs, opts.testSet)
	if err != nil {
		return err
	}
	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "api: %s\ntest set: %s (%d questions)\n", opts.url, opts.testSet, len(set.Questions))

	runner := evaluation.NewRunner(evaluation.NewClient(opts.url, queryTimeout), stdout, opts.limit)
	report, err := runner.Run(ctx, set, opts.testSet)
	if err != nil {
		return err
	}
	runner.PrintSummary(report)

	out := opts.out
	if out == "" {
		out = fmt.Sprintf("test_results_%d.json", time.Now().Unix())
	}
	if err := writeFile(fs, out, func(f afero.File) error { return evaluation.WriteJSON(f, report) }); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "results saved to %s\n", out)

	if opts.xlsxPath != "" {
		if err := writeFile(fs, opts.xlsxPath, func(f afero.File) error { return evaluation.WriteXLSX(f, report) }); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "workbook saved to %s\n", opts.xlsxPath)
	}
	return nil
}

func writeFile(fs afero.Fs, path string, write func(afero.File) error) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
