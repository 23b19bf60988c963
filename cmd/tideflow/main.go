// Tideflow replicates records from paginated, rate-limited collection
// APIs into a local sink, resuming from durable per-stream bookmarks.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tideflow-io/tideflow/internal/pipeline"
	"github.com/tideflow-io/tideflow/pkg/config"
	"github.com/tideflow-io/tideflow/pkg/logger"
	"github.com/tideflow-io/tideflow/pkg/remote"
	"github.com/tideflow-io/tideflow/pkg/replicate"
	"github.com/tideflow-io/tideflow/pkg/sink"
	"github.com/tideflow-io/tideflow/pkg/state"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"

	cfgFile string
)

func main() {
	// .env is optional; real config comes from the file and TIDEFLOW_* env vars
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "tideflow",
		Short: "Incremental replication for paginated collection APIs",
		Long: `Tideflow incrementally replicates records from paginated, rate-limited
collection APIs into a local sink. Syncs are resumable: progress is
committed to a durable bookmark store at window boundaries.`,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "tideflow.yaml", "config file")

	rootCmd.AddCommand(versionCmd(), streamsCmd(), syncCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tideflow %s\n", Version)
		},
	}
}

func streamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streams",
		Short: "List the replicable streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			catalog, err := replicate.CatalogFromConfig(cfg.Streams)
			if err != nil {
				return err
			}
			for _, spec := range catalog.List() {
				mode := "windowed"
				if cfg.UseAsync && spec.Async {
					mode = "concurrent"
				}
				fmt.Printf("%-24s endpoint=%-20s result_key=%-20s strategy=%s\n",
					spec.Name, spec.Endpoint, spec.ResultKey, mode)
			}
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	var streams []string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replicate streams into the sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if err := logger.Init(logger.Config{
				Level:       cfg.Logging.Level,
				Encoding:    cfg.Logging.Encoding,
				Development: cfg.Logging.Development,
			}); err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			return runSync(cfg, streams)
		},
	}
	cmd.Flags().StringSliceVar(&streams, "streams", nil, "streams to sync (default: all)")
	return cmd
}

func runSync(cfg *config.Config, streams []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Get()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, log)
	}

	catalog, err := replicate.CatalogFromConfig(cfg.Streams)
	if err != nil {
		return err
	}

	store, err := state.NewSQLiteStore(cfg.State.Path)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	out, err := sink.NewJSONLSink(cfg.Sink.Directory)
	if err != nil {
		return err
	}
	defer out.Close() //nolint:errcheck

	client := remote.NewAPIClient(remote.APIClientConfig{
		BaseURL:         cfg.API.BaseURL,
		Token:           cfg.API.Token,
		RequestTimeout:  cfg.API.RequestTimeout,
		RateLimitPerSec: cfg.API.RateLimitPerSec,
		RateBurst:       cfg.API.RateBurst,
	}, log)

	p := pipeline.New(cfg, catalog, client, store, out, log)
	return p.Run(ctx, streams)
}

func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("metrics listener started", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics listener stopped", zap.Error(err))
	}
}
