// Command domain-intel runs the Domain Intel pipeline: resolving
// third-party domain intelligence, persisting it into a property graph,
// and reporting wide-column CSV summaries back out.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loum/domain-intel/internal/config"
	"github.com/loum/domain-intel/pkg/metrics"
	"github.com/loum/domain-intel/pkg/mid"
)

var (
	verbose    bool
	configPath string
	metricsPort int
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "domain-intel",
		Short: "Enrich domain names with third-party intelligence and persist the result into a property graph",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			if configPath != "" {
				os.Setenv("DOMAIN_INTEL_CONFIG", configPath)
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (overrides DOMAIN_INTEL_CONFIG)")
	root.PersistentFlags().IntVar(&metricsPort, "metrics-port", 9091, "port for the /metrics and /healthz HTTP endpoint")

	root.AddCommand(newRunCommand())
	root.AddCommand(newBootstrapCommand())
	root.AddCommand(newReportCommand())
	root.AddCommand(newDumpCommand())

	return root
}

// Execute runs the domain-intel CLI and returns an error if any command
// fails.
func Execute() error {
	ctx, stop := signalContext()
	defer stop()
	return newRootCommand().ExecuteContext(ctx)
}

func loadConfig() (*config.Config, *slog.Logger, *metrics.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log := slog.Default()
	met := metrics.New()
	serveMetrics(met, log, metricsPort)
	return cfg, log, met, nil
}

// serveMetrics starts the /metrics and /healthz HTTP endpoint the same way
// metrics.Registry.ServeAsync does, but wrapped with the request-logging,
// panic-recovery, and span-tracing middleware every other HTTP surface in
// the pack carries — ServeAsync itself takes no middleware, so the
// wrapping happens here instead.
func serveMetrics(met *metrics.Registry, log *slog.Logger, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", met.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	handler := mid.Chain(mux, mid.Recover(log), mid.Logger(log), mid.OTel("domain-intel-metrics"))
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), handler); err != nil {
			log.Error("metrics server stopped", "error", err)
		}
	}()
}

func timeoutFromConfig(cfg *config.Config) time.Duration {
	return time.Duration(cfg.TimeoutMS) * time.Millisecond
}
