package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/spf13/cobra"

	"github.com/loum/domain-intel/internal/catalog"
	"github.com/loum/domain-intel/pkg/repo"
)

// domainRow is the minimal projection of a persisted Domain vertex pkg/repo
// needs: just the id, since that's all traverseWorker requires to re-derive
// the rest from the graph.
type domainRow struct{ ID string }

func domainRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[domainRow] {
	return repo.NewNeo4jRepo[domainRow](driver, "Domain", func(rec *neo4j.Record) (domainRow, error) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
		if err != nil {
			return domainRow{}, err
		}
		id, _ := node.Props["id"].(string)
		return domainRow{ID: id}, nil
	})
}

func newDumpCommand() *cobra.Command {
	var (
		pageSize int
		publish  bool
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "List every persisted domain, optionally re-publishing it for traverse/report",
		Long: `Dump pages through every Domain vertex already in the graph store using
the generic Neo4jRepo list pattern, printing one domain per line. With
--publish, each domain is instead re-published onto domain-labels so a
separate "run --only traverse,report" process can regenerate CSV output for
the whole graph without the operator re-enumerating domains by hand — the
backfill path for "re-run the report after a schema or trend-window change."`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd.Context(), pageSize, publish)
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 200, "domains fetched per graph query")
	cmd.Flags().BoolVar(&publish, "publish", false, "re-publish each domain onto domain-labels instead of printing it")

	return cmd
}

func runDump(ctx context.Context, pageSize int, publish bool) error {
	cfg, log, met, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := dial(ctx, cfg, log, met)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	var producer interface {
		SendRaw(ctx context.Context, topic string, data []byte) error
	}
	if publish {
		producer, err = a.nats.OpenProducer(ctx)
		if err != nil {
			return fmt.Errorf("opening producer: %w", err)
		}
	}

	domains := domainRepo(a.driver)
	n := 0
	for offset := 0; ; offset += pageSize {
		page, err := domains.List(ctx, repo.ListOpts{Offset: offset, Limit: pageSize})
		if err != nil {
			return fmt.Errorf("listing domains: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, d := range page {
			n++
			if !publish {
				fmt.Println(d.ID)
				continue
			}
			payload, err := json.Marshal(d.ID)
			if err != nil {
				return err
			}
			if err := producer.SendRaw(ctx, catalog.TopicDomainLabels, payload); err != nil {
				return fmt.Errorf("publishing %s: %w", d.ID, err)
			}
		}
		if len(page) < pageSize {
			break
		}
	}
	log.Info("dump complete", "domains", n, "published", publish)
	return nil
}
