package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"generational_accounting/pkg/core/config"
	"generational_accounting/pkg/core/pipeline"
	"generational_accounting/pkg/core/report"
	"generational_accounting/pkg/core/store"
	"generational_accounting/pkg/core/utils"
	"generational_accounting/pkg/models"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pipeline",
		Short:        "Generational accounting runs from request documents",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

type runOptions struct {
	input      string
	html       string
	configPath string
	save       bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario and print its generational accounts as Markdown",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.input, "input", "", "request document (JSON, lenient JSON or Hjson)")
	cmd.Flags().StringVar(&opts.html, "html", "", "also write the report as HTML to this file")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to the YAML config")
	cmd.Flags().BoolVar(&opts.save, "save", false, "store the run summary in postgres")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func run(ctx context.Context, opts runOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: "15:04:05"}))
	slog.SetDefault(logger)

	raw, err := os.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	var req models.SimulationRequest
	if _, err := utils.SmartParse(string(raw), &req); err != nil {
		return fmt.Errorf("decode %s: %w", opts.input, err)
	}
	if req.AgeStep == 0 {
		req.AgeStep = cfg.Report.AgeStep
	}

	var repo store.ResultRepository
	if opts.save {
		if err := store.InitDB(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		defer store.Close()
		repo = store.NewResultRepo(store.GetPool())
	}

	resp, err := pipeline.NewManager(repo, logger).Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(resp.Report)

	if opts.html != "" {
		html, err := report.HTML(resp.Report)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.html, []byte(html), 0o644); err != nil {
			return fmt.Errorf("write html: %w", err)
		}
		logger.Info("report written", "path", opts.html)
	}
	return nil
}
