package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/provisionoor/pkg/config"
	"github.com/ethpandaops/provisionoor/pkg/fsutil"
	"github.com/ethpandaops/provisionoor/pkg/publish"
	"github.com/ethpandaops/provisionoor/pkg/report"
	"github.com/ethpandaops/provisionoor/pkg/stats"
	"github.com/ethpandaops/provisionoor/pkg/trial"
)

var (
	jsonOutput  string
	reportTitle string
)

func init() {
	rootCmd.Flags().StringVar(&jsonOutput, "json-output", "",
		"Write the analysis as JSON to this path (overrides outputs.json)")
	rootCmd.Flags().StringVar(&reportTitle, "title", "",
		"Report heading (overrides report.title)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	// Argument errors print usage; anything past this point does not.
	cmd.SilenceUsage = true

	if cmd.Flags().Changed("json-output") {
		cfg.Outputs.JSON = jsonOutput
	}

	if cmd.Flags().Changed("title") {
		cfg.Report.Title = reportTitle
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return analyze(ctx, log, cfg, args[0], cmd.OutOrStdout())
}

// analyze runs the full pipeline for one CSV file. Only input errors are
// returned; failures writing optional outputs are logged as warnings.
func analyze(
	ctx context.Context,
	log logrus.FieldLogger,
	cfg *config.Config,
	csvPath string,
	stdout io.Writer,
) error {
	log.WithField("csv", csvPath).Info("Analyzing results")

	ds, err := trial.Load(csvPath)
	if err != nil {
		switch {
		case errors.Is(err, trial.ErrNoResults):
			log.Error("No results found in CSV file")
		case errors.Is(err, trial.ErrNotFound):
			log.Errorf("CSV file not found at %s", csvPath)
		default:
			log.WithError(err).Error("Error reading CSV file")
		}

		return fmt.Errorf("loading results: %w", err)
	}

	summary := stats.Compute(ds, stats.Options{
		OutlierStdDevs: cfg.Analysis.OutlierStdDevs,
	})

	log.WithFields(logrus.Fields{
		"total":      summary.TotalRuns,
		"successful": summary.SuccessfulRuns,
		"failed":     summary.FailedRuns,
		"outliers":   len(summary.Outliers),
		"combos":     len(summary.Combos),
	}).Debug("Computed statistics")

	md := report.Markdown(ds, summary, report.Options{
		Title:    cfg.Report.Title,
		MaxChars: cfg.Report.MaxChars,
	})
	outputs := report.FormatOutputs(report.Outputs(summary))

	writeStepSummary(log, cfg.Outputs.StepSummary, md)

	if _, err := fmt.Fprintf(stdout, "\n%s", md); err != nil {
		log.WithError(err).Warn("Failed to print summary")
	}

	writeGitHubOutput(log, cfg.Outputs.GitHubOutput, outputs)

	var jsonDoc []byte

	if cfg.Outputs.JSON != "" || cfg.Publish.S3.Enabled {
		jsonDoc, err = report.JSON(csvPath, ds, summary)
		if err != nil {
			log.WithError(err).Warn("Failed to render JSON analysis")
		}
	}

	if cfg.Outputs.JSON != "" && jsonDoc != nil {
		writeJSON(log, cfg.Outputs, jsonDoc)
	}

	if cfg.Publish.S3.Enabled {
		artifacts := []publish.Artifact{
			{Name: "report.md", Body: []byte(md), ContentType: "text/markdown; charset=utf-8"},
			{Name: "outputs.env", Body: []byte(outputs), ContentType: "text/plain; charset=utf-8"},
		}

		if jsonDoc != nil {
			artifacts = append(artifacts, publish.Artifact{
				Name: "analysis.json", Body: jsonDoc, ContentType: "application/json",
			})
		}

		publisher := publish.NewS3Publisher(log, &cfg.Publish.S3)
		publishArtifacts(ctx, log, publisher, runName(csvPath, time.Now()), artifacts)
	}

	log.Info("Analysis complete")

	return nil
}

func writeStepSummary(log logrus.FieldLogger, path, md string) {
	if path == "" {
		log.Warnf("%s not set, skipping step summary", config.StepSummaryEnv)

		return
	}

	if err := fsutil.AppendFile(path, []byte(md), 0o644); err != nil {
		log.WithError(err).Warn("Failed to write step summary")

		return
	}

	log.WithField("path", path).Info("Summary written to step summary")
}

func writeGitHubOutput(log logrus.FieldLogger, path, outputs string) {
	if path == "" {
		log.Warnf("%s not set, skipping output file", config.OutputEnv)

		return
	}

	if err := fsutil.AppendFile(path, []byte(outputs), 0o644); err != nil {
		log.WithError(err).Warn("Failed to write output file")

		return
	}

	log.WithField("path", path).Debug("Outputs written")
}

func writeJSON(log logrus.FieldLogger, outputs config.OutputsConfig, doc []byte) {
	owner, err := fsutil.ParseOwner(outputs.Owner)
	if err != nil {
		log.WithError(err).Warn("Ignoring invalid outputs.owner")

		owner = nil
	}

	if err := fsutil.WriteFile(outputs.JSON, doc, 0o644, owner); err != nil {
		log.WithError(err).Warn("Failed to write JSON analysis")

		return
	}

	log.WithField("path", outputs.JSON).Info("JSON analysis written")
}

func publishArtifacts(
	ctx context.Context,
	log logrus.FieldLogger,
	publisher publish.Publisher,
	name string,
	artifacts []publish.Artifact,
) {
	if err := publisher.Preflight(ctx); err != nil {
		log.WithError(err).Warn("Skipping publish, storage preflight failed")

		return
	}

	if err := publisher.Publish(ctx, name, artifacts); err != nil {
		log.WithError(err).Warn("Failed to publish report")
	}
}

// runName derives the remote folder name from the CSV file name and time.
func runName(csvPath string, now time.Time) string {
	base := filepath.Base(csvPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	return fmt.Sprintf("%s-%s", base, now.UTC().Format("20060102T150405Z"))
}
