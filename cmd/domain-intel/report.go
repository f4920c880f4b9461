package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/spf13/cobra"

	"github.com/loum/domain-intel/internal/catalog"
	"github.com/loum/domain-intel/internal/graphstore"
	"github.com/loum/domain-intel/internal/reporter"
)

func newReportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "report [domain ...]",
		Short: "Render the wide-column CSV report for one or more already-persisted domains",
		Long: `Report traverses each named domain's one-hop neighborhood in the graph
store and renders it through the same reporter.DumpWideColumnCSV path the
"report" pipeline stage uses, but synchronously and without the broker — an
ad-hoc query tool for an operator who already knows which domains they care
about, as opposed to "run", which processes every domain-labels message
published to the pipeline.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), args, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write CSV to this path instead of stdout")

	return cmd
}

func runReport(ctx context.Context, domains []string, output string) error {
	cfg, log, _, err := loadConfig()
	if err != nil {
		return err
	}

	target := fmt.Sprintf("neo4j://%s:%d", cfg.Graph.Host, cfg.Graph.Port)
	driver, err := neo4j.NewDriverWithContext(target, neo4j.BasicAuth(cfg.Graph.Username, cfg.Graph.Password, ""))
	if err != nil {
		return fmt.Errorf("creating neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	store := graphstore.New(driver, log)
	if err := store.Initialise(ctx); err != nil {
		return fmt.Errorf("verifying neo4j connectivity: %w", err)
	}

	var allRows [][]string
	now := catalog.Now()
	for _, domain := range domains {
		trav, err := store.Traverse(ctx, domain)
		if err != nil {
			log.Warn("skipping domain", "domain", domain, "error", err)
			continue
		}
		r := reporter.New(trav)
		allRows = append(allRows, r.DumpWideColumnCSV(now)...)
	}

	csv := reporter.RenderCSV(allRows)
	if output == "" {
		fmt.Println(csv)
		return nil
	}
	return os.WriteFile(output, []byte(strings.TrimRight(csv, "\n")+"\n"), 0o644)
}
