package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/FranksOps/brandcheck/internal/report"
	"github.com/FranksOps/brandcheck/internal/storage"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		filter storage.Filter
		since  time.Duration
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStores(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if st.history == nil {
				return fmt.Errorf("history is disabled: set storage.driver")
			}
			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}

			reports, err := st.history.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CHECKED\tBRAND\tDOMAINS FREE\tHANDLES FREE\tUNKNOWN\tID")
			for _, r := range reports {
				s := report.Summarize(r)
				fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d/%d\t%d\t%s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04"),
					r.Brand,
					s.Domains.Available, s.Domains.Total(),
					s.Social.Available, s.Social.Total(),
					s.Domains.Unknown+s.Social.Unknown,
					r.ID,
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&filter.Brand, "brand", "", "only show this brand")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum number of reports")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "skip this many reports")
	cmd.Flags().DurationVar(&since, "since", 0, "only show reports newer than this (e.g. 24h)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw reports as JSON")
	return cmd
}
