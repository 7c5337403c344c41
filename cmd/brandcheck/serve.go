package main

import (
	"context"
	"time"

	"github.com/FranksOps/brandcheck/internal/metrics"
	"github.com/FranksOps/brandcheck/internal/relay"
	"github.com/FranksOps/brandcheck/pkg/httpclient"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay used by the browser form",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStores(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			searcher, reg, prober, err := newSearcher(a.cfg, st, a.logger)
			if err != nil {
				return err
			}

			client, err := httpclient.New(httpclient.Config{Timeout: 10 * time.Second})
			if err != nil {
				return err
			}

			srv, err := relay.New(relay.Options{
				Domains:        reg,
				Social:         prober,
				Searcher:       searcher,
				Credentials:    credentialChain(a.cfg.Registrar, st.credentials),
				History:        st.history,
				IPLookupURL:    a.cfg.Server.IPLookupURL,
				AllowedOrigins: a.cfg.Server.AllowedOrigins,
				Client:         client,
				Logger:         a.logger,
			})
			if err != nil {
				return err
			}

			if addr := a.cfg.Server.MetricsAddr; addr != "" {
				ms := metrics.Start(addr, a.logger)
				defer func() {
					if err := ms.Stop(context.Background()); err != nil {
						a.logger.Warn("metrics server shutdown", "error", err)
					}
				}()
				a.logger.Info("metrics listening", "addr", addr)
			}
			return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("metrics-addr", "", "separate listen address for /metrics")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag("server.metrics_addr", cmd.Flags().Lookup("metrics-addr"))
	return cmd
}
