package main

import (
	"fmt"
	"time"

	"github.com/FranksOps/brandcheck/internal/relay"
	"github.com/FranksOps/brandcheck/pkg/httpclient"
	"github.com/spf13/cobra"
)

func newIPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ip",
		Short: "Print this host's public IP for the registrar API whitelist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := httpclient.New(httpclient.Config{Timeout: 10 * time.Second})
			if err != nil {
				return err
			}
			ip, err := relay.LookupIP(cmd.Context(), client, a.cfg.Server.IPLookupURL)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ip)
			fmt.Fprintln(out, "Add this IP to your ResellerClub API whitelist under Settings > API Settings > IP Whitelist.")
			return nil
		},
	}
}
