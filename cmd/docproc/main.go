// docproc submits documents to the extraction pipeline from the command
// line: single runs with live stage output, wave-based batch runs with a
// progress bar, history statistics, and report export.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dev112317/stryker-assessment/constants"
	"github.com/dev112317/stryker-assessment/internal/batch"
	"github.com/dev112317/stryker-assessment/internal/common"
	"github.com/dev112317/stryker-assessment/internal/entity"
	"github.com/dev112317/stryker-assessment/internal/export"
	"github.com/dev112317/stryker-assessment/internal/pipeline"
	"github.com/dev112317/stryker-assessment/internal/remote"
	"github.com/dev112317/stryker-assessment/internal/store"
)

func main() {
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var verbose bool
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "docproc",
		Short: "Document extraction pipeline client",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				level.Set(slog.LevelDebug)
			} else {
				level.Set(slog.LevelWarn)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfg.Backend.BaseURL, "backend", cfg.Backend.BaseURL, "extraction service base URL")

	rootCmd.AddCommand(newProcessCmd(ctx, cfg, logger))
	rootCmd.AddCommand(newBatchCmd(ctx, cfg, logger))
	rootCmd.AddCommand(newStatsCmd(ctx, cfg, logger))
	rootCmd.AddCommand(newHealthCmd(ctx, cfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunner(cfg *common.Config, logger *slog.Logger) *pipeline.Runner {
	client := remote.NewClient(cfg.Backend.BaseURL,
		remote.WithHTTPClient(&http.Client{Timeout: cfg.Backend.HTTPTimeout}),
		remote.WithLogger(logger),
	)
	return pipeline.NewRunner(client, pipeline.WithLogger(logger))
}

// loadSource reads a document from disk into a caller-owned handle.
func loadSource(path string) (entity.SourceFile, error) {
	if !constants.IsSupportedFile(path) {
		return entity.SourceFile{}, common.NewAppError("UNSUPPORTED_FILE",
			fmt.Sprintf("unsupported file type: %s", filepath.Ext(path)), common.ErrInvalidInput)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return entity.SourceFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	return entity.SourceFile{
		Name:    filepath.Base(path),
		Size:    int64(len(content)),
		Content: content,
	}, nil
}

// resolveType maps the --type flag to a category; "auto" falls back to the
// filename heuristic.
func resolveType(flagValue, filename string) constants.DocType {
	if flagValue == "auto" || flagValue == "" {
		dt, _ := constants.DetectType(filename)
		return dt
	}
	dt, _ := constants.Canonicalize(flagValue)
	return dt
}

func newProcessCmd(ctx context.Context, cfg *common.Config, logger *slog.Logger) *cobra.Command {
	var docType string
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Run one document through the extraction pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := loadSource(args[0])
			if err != nil {
				return err
			}
			declared := resolveType(docType, src.Name)

			runner := newRunner(cfg, logger)
			res, err := runner.Run(ctx, src, declared, func(snap pipeline.Snapshot) {
				mode := ""
				if snap.DemoMode {
					mode = " (demo mode)"
				}
				fmt.Printf("[%3d%%] %-10s %s%s\n", snap.Progress, snap.Stage, snap.Message, mode)
			})
			if common.IsCancelled(err) {
				fmt.Println("Processing cancelled.")
				return nil
			}
			if err != nil {
				return err
			}

			out, _ := json.MarshalIndent(res, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&docType, "type", "t", "auto", "document category (invoice|receipt|contract|financial_statement|auto)")
	return cmd
}

func newBatchCmd(ctx context.Context, cfg *common.Config, logger *slog.Logger) *cobra.Command {
	var (
		docType     string
		concurrency int
		outJSON     string
		outXLSX     string
		noStore     bool
	)
	cmd := &cobra.Command{
		Use:   "batch <files...>",
		Short: "Process a set of documents in concurrency-bounded waves",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs := make([]*entity.ProcessingJob, 0, len(args))
			for _, path := range args {
				src, err := loadSource(path)
				if err != nil {
					fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
					continue
				}
				jobs = append(jobs, entity.NewJob(src, resolveType(docType, src.Name)))
			}
			if len(jobs) == 0 {
				return common.NewAppError("EMPTY_BATCH", "no processable files", common.ErrInvalidInput)
			}

			bar := progressbar.NewOptions(len(jobs),
				progressbar.OptionSetDescription("Processing"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "=",
					SaucerHead:    ">",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)

			scheduler := batch.NewScheduler(newRunner(cfg, logger),
				batch.WithConcurrency(concurrency),
				batch.WithLogger(logger),
				batch.WithWaveHook(func(state entity.BatchState) {
					_ = bar.Set(state.Settled())
				}),
			)

			state, err := scheduler.Run(ctx, jobs)
			fmt.Println()
			if err != nil {
				fmt.Printf("Batch interrupted: %d completed, %d failed, %d not started\n",
					state.Completed, state.Failed, state.Total-state.Settled())
				return err
			}
			fmt.Printf("Batch complete: %d successful, %d failed\n", state.Completed, state.Failed)
			for _, j := range jobs {
				if j.Status == constants.JobError {
					fmt.Printf("  %s: %s\n", j.Source.Name, j.Failure)
				}
			}

			if !noStore {
				if err := saveHistory(ctx, cfg, logger, jobs); err != nil {
					fmt.Fprintf(os.Stderr, "history not saved: %v\n", err)
				}
			}

			svc := export.NewService(logger)
			report := svc.BuildReport(jobs)
			if outJSON != "" {
				b, err := svc.WriteJSON(report)
				if err != nil {
					return err
				}
				if err := os.WriteFile(outJSON, b, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outJSON, err)
				}
				fmt.Printf("Report written to %s\n", outJSON)
			}
			if outXLSX != "" {
				b, err := svc.WriteXLSX(report)
				if err != nil {
					return err
				}
				if err := os.WriteFile(outXLSX, b, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outXLSX, err)
				}
				fmt.Printf("Workbook written to %s\n", outXLSX)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&docType, "type", "t", "auto", "document category applied to all files, or auto")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", cfg.Batch.Concurrency, "max simultaneous pipeline runs")
	cmd.Flags().StringVarP(&outJSON, "out", "o", "", "write JSON report to this path")
	cmd.Flags().StringVar(&outXLSX, "xlsx", "", "write XLSX workbook to this path")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "skip writing outcomes to the history store")
	return cmd
}

func saveHistory(ctx context.Context, cfg *common.Config, logger *slog.Logger, jobs []*entity.ProcessingJob) error {
	st, err := store.Open(ctx, cfg.Store.DSN, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.SaveJobs(ctx, jobs)
}

func newStatsCmd(ctx context.Context, cfg *common.Config, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show history store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(ctx, cfg.Store.DSN, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats(ctx)
			if err != nil {
				return err
			}
			for _, dt := range constants.AllDocTypes() {
				ts := stats.PerType[dt]
				fmt.Printf("%-22s completed=%d failed=%d\n", dt, ts.Completed, ts.Failed)
			}
			fmt.Printf("avg confidence:      %.1f%%\n", stats.AvgConfidence)
			fmt.Printf("avg processing time: %.0fms\n", stats.AvgProcessingTime)
			return nil
		},
	}
}

func newHealthCmd(ctx context.Context, cfg *common.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the extraction service",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := remote.NewClient(cfg.Backend.BaseURL,
				remote.WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))
			if client.Health(ctx) {
				fmt.Printf("%s is reachable: live processing enabled\n", cfg.Backend.BaseURL)
			} else {
				fmt.Printf("%s is unreachable: runs will use the simulated pipeline\n", cfg.Backend.BaseURL)
			}
			return nil
		},
	}
}
