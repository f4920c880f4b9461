package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/loum/domain-intel/internal/catalog"
	"github.com/loum/domain-intel/internal/stage"
)

func newRunCommand() *cobra.Command {
	var (
		endpoints resolverEndpoints
		dryRun    bool
		dumpDir   string
		only      []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline's stages until interrupted",
		Long: `Run connects to the broker and graph store, wires every stage named in
the pipeline catalog, and drives each with its configured thread count until
the process receives an interrupt signal.

Use --only to run a subset of stages (e.g. just the persist fan-in, or just
traverse and report) in a separate process from the resolve/flatten stages,
matching how the original deployment splits awis/geodns/analyst workers
across independent long-running processes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), endpoints, dryRun, dumpDir, only)
		},
	}

	cmd.Flags().StringVar(&endpoints.Rank, "rank-endpoint", "", "upstream rank-intelligence resolver URL")
	cmd.Flags().StringVar(&endpoints.Sli, "sli-endpoint", "", "upstream sites-linking-in resolver URL")
	cmd.Flags().StringVar(&endpoints.Traffic, "traffic-endpoint", "", "upstream traffic-history resolver URL")
	cmd.Flags().StringVar(&endpoints.Dns, "dns-endpoint", "", "DNS-check resolver URL")
	cmd.Flags().StringVar(&endpoints.Geo, "geo-endpoint", "", "IP-geolocation resolver URL")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "decode and process messages without publishing or persisting")
	cmd.Flags().StringVar(&dumpDir, "dump", "", "directory to dump consume/publish payloads to, for replay/debugging")
	cmd.Flags().StringSliceVar(&only, "only", nil, "restrict to these stage names (default: all)")

	return cmd
}

func runPipeline(ctx context.Context, endpoints resolverEndpoints, dryRun bool, dumpDir string, only []string) error {
	cfg, log, met, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := dial(ctx, cfg, log, met)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	producer, err := a.nats.OpenProducer(ctx)
	if err != nil {
		return fmt.Errorf("opening producer: %w", err)
	}

	deps := resolvers(cfg, endpoints)
	deps.Metrics = a.met
	deps.Consumer = a.consumerFactory(timeoutFromConfig(cfg))
	deps.Producer = producer
	deps.Persist = persistWorker(a.store, catalog.PersistDecoders(), dryRun)
	deps.Traverser = a.store
	deps.Timeout = timeoutFromConfig(cfg)
	deps.MaxReadCount = 0
	deps.Dump = dumpDir
	deps.Dry = dryRun

	stages := catalog.Build(deps)
	selected := selectStages(stages, only)
	if len(selected) == 0 {
		return fmt.Errorf("run: --only matched no known stage names")
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = 1
	}

	var wg sync.WaitGroup
	for name, st := range selected {
		wg.Add(1)
		go func(name string, st *stage.Stage[[]byte, []byte]) {
			defer wg.Done()
			log.Info("stage starting", "stage", name, "threads", threads)
			metrics, err := stage.Threader(ctx, threads, st.Run)
			if err != nil && ctx.Err() == nil {
				log.Error("stage halted", "stage", name, "error", err)
			}
			log.Info("stage stopped", "stage", name, "metrics", metrics)
		}(name, st)
	}
	wg.Wait()
	return nil
}

func selectStages(stages map[string]*stage.Stage[[]byte, []byte], only []string) map[string]*stage.Stage[[]byte, []byte] {
	if len(only) == 0 {
		return stages
	}
	selected := make(map[string]*stage.Stage[[]byte, []byte], len(only))
	for _, name := range only {
		if st, ok := stages[name]; ok {
			selected[name] = st
		}
	}
	return selected
}
