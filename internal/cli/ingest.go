package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/javajoker/scentdb-backend/internal/models"
	"github.com/javajoker/scentdb-backend/internal/services"
	"github.com/javajoker/scentdb-backend/internal/sources"
)

type ingestOptions struct {
	sourceName string
	sourceURL  string
	workers    int
	timeout    time.Duration
}

func newIngestCommand(a *app) *cobra.Command {
	opts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Reconcile candidate files into the catalog",
		Long: `Reads candidate records from .jsonl, .ndjson, .json, .yaml or .yml files and
reconciles them. Records that fail are reported and skipped; a fatal store
error stops the run with a non-zero exit status.`,
		Example: `  perfumectl ingest crawl-2025-01-01.jsonl
  perfumectl ingest --source-name fragrantica --workers 4 feed.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, a, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.sourceName, "source-name", "", "source name (overrides the file and SOURCE_NAME)")
	cmd.Flags().StringVar(&opts.sourceURL, "source-url", "", "source base URL")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent reconciliations (default BATCH_WORKERS)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "per-record timeout (default BATCH_RECORD_TIMEOUT)")

	return cmd
}

// resolveSource picks the descriptor for a feed: flags, then the file, then config.
func (o *ingestOptions) resolveSource(a *app, feed *sources.Feed) models.SourceDescriptor {
	src := models.SourceDescriptor{Name: a.cfg.Source.Name, BaseURL: a.cfg.Source.BaseURL}
	if feed.Source != nil {
		src = *feed.Source
	}
	if o.sourceName != "" {
		src = models.SourceDescriptor{Name: o.sourceName, BaseURL: o.sourceURL}
	} else if o.sourceURL != "" {
		src.BaseURL = o.sourceURL
	}
	return src
}

func runIngest(cmd *cobra.Command, a *app, opts *ingestOptions, paths []string) error {
	// Parse everything up front so a bad file fails before any write.
	feeds := make([]*sources.Feed, 0, len(paths))
	for _, path := range paths {
		feed, err := sources.ReadFile(path)
		if err != nil {
			return err
		}
		feeds = append(feeds, feed)
	}

	db, err := a.openDB(a.autoMigrate)
	if err != nil {
		return err
	}
	defer a.closeDB()

	batchCfg := a.cfg.Batch
	if opts.workers > 0 {
		batchCfg.Workers = opts.workers
	}
	if opts.timeout > 0 {
		batchCfg.RecordTimeout = opts.timeout
	}
	batch := services.NewBatchService(services.NewReconcileService(db, a.cfg.Reconcile), batchCfg)

	out := cmd.OutOrStdout()
	failed := 0
	for _, feed := range feeds {
		source := opts.resolveSource(a, feed)
		logrus.WithFields(logrus.Fields{
			"file":       feed.Path,
			"source":     source.Name,
			"candidates": len(feed.Candidates),
		}).Info("Ingesting feed")

		report, err := batch.Run(cmd.Context(), source, feed.Candidates)
		if report != nil {
			printReport(out, feed.Path, report)
			failed += report.Failed
		}
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", feed.Path, err)
		}
	}

	if failed > 0 {
		logrus.WithField("failed", failed).Warn("Some candidates were skipped")
	}
	return nil
}

func printReport(w io.Writer, path string, report *services.BatchReport) {
	fmt.Fprintf(w, "%s: source=%s total=%d succeeded=%d failed=%d skipped=%d (%s)\n",
		path, report.Source, report.Total, report.Succeeded, report.Failed, report.Skipped,
		report.Duration.Round(time.Millisecond))
	for _, o := range report.Outcomes {
		if o.Error == nil {
			continue
		}
		fmt.Fprintf(w, "  #%d %s: %s\n", o.Index, o.URL, o.Error.Message)
	}
}
