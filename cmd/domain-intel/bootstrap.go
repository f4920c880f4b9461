package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loum/domain-intel/internal/catalog"
)

func newBootstrapCommand() *cobra.Command {
	var (
		qasWorkbook string
		qasDate     string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create broker streams and graph constraints, and optionally seed the analyst-QAS workbook",
		Long: `Bootstrap ensures every topic in the config's "topics" value has a
backing broker stream, creates the graph store's vertex/edge uniqueness
constraints, and (if --qas-workbook is given) parses an analyst-QAS
spreadsheet and publishes one message per domain row onto the analyst-qas
topic for the persist stage to pick up.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(cmd.Context(), qasWorkbook, qasDate, dryRun)
		},
	}

	cmd.Flags().StringVar(&qasWorkbook, "qas-workbook", "", "path to an analyst-QAS .xlsx workbook to ingest")
	cmd.Flags().StringVar(&qasDate, "qas-date", "", "analysis date stamped onto every ingested QAS row (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be created/published without doing it")

	return cmd
}

func runBootstrap(ctx context.Context, qasWorkbook, qasDate string, dryRun bool) error {
	cfg, log, met, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := dial(ctx, cfg, log, met)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	specs, err := topicSpecs(cfg.Topics)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if dryRun {
			log.Info("would ensure stream", "topic", spec.Name)
			continue
		}
		if err := a.nats.EnsureStream(ctx, spec); err != nil {
			return err
		}
		log.Info("stream ready", "topic", spec.Name)
	}

	if dryRun {
		log.Info("would build graph constraints")
	} else {
		created, err := a.store.BuildGraph(ctx)
		if err != nil {
			return fmt.Errorf("building graph constraints: %w", err)
		}
		log.Info("graph constraints ready", "count", len(created))
	}

	if qasWorkbook == "" {
		return nil
	}
	data, err := os.ReadFile(qasWorkbook)
	if err != nil {
		return fmt.Errorf("reading qas workbook: %w", err)
	}
	producer, err := a.nats.OpenProducer(ctx)
	if err != nil {
		return fmt.Errorf("opening producer: %w", err)
	}
	n, err := catalog.EmitAnalystQAS(ctx, producer, data, qasDate, dryRun)
	if err != nil {
		return fmt.Errorf("emitting analyst-qas rows: %w", err)
	}
	log.Info("analyst-qas rows emitted", "count", n, "dry_run", dryRun)
	return nil
}
