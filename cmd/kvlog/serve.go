package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cuemby/kvlog/pkg/dict"
	"github.com/cuemby/kvlog/pkg/log"
	"github.com/cuemby/kvlog/pkg/metrics"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a long-lived dict instance with a /metrics and /health HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagTopic == "" {
				return cobra.ErrSubCommandRequired
			}

			reg := prometheus.NewRegistry()
			d, err := dict.Open(dict.Options{
				Brokers:          flagBrokers,
				Topic:            flagTopic,
				GUID:             flagGUID,
				DBDir:            flagDBDir,
				MemoryBudget:     flagMemoryBudget,
				CatchupDelay:     flagCatchupDelay,
				ReadOnly:         flagReadOnly,
				UniqueProducer:   flagUniqueProducer,
				UseEmbeddedStore: flagUseEmbedded,
				Registerer:       reg,
			})
			if err != nil {
				return err
			}
			defer d.Close()

			metrics.RegisterComponent("broker", true, "")
			metrics.RegisterComponent("store", true, "")

			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler(reg))
			mux.Handle("/health", metrics.HealthHandler())
			mux.Handle("/ready", metrics.ReadyHandler())
			mux.Handle("/live", metrics.LivenessHandler())

			log.Info("kvlog serve listening on " + addr)
			return http.ListenAndServe(addr, mux)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9090", "HTTP listen address")
	return cmd
}
