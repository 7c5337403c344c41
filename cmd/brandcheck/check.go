package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/FranksOps/brandcheck/internal/brand"
	"github.com/FranksOps/brandcheck/internal/report"
	"github.com/FranksOps/brandcheck/internal/search"
	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		tlds   []string
		format string
	)

	cmd := &cobra.Command{
		Use:   "check <brand name>",
		Short: "Check domain and social handle availability for a brand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			render, err := renderer(format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := openStores(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			searcher, _, _, err := newSearcher(a.cfg, st, a.logger)
			if err != nil {
				return err
			}

			r, err := searcher.Search(ctx, search.Request{
				BrandName: args[0],
				TLDs:      tlds,
			})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), r)
		},
	}

	cmd.Flags().StringSliceVar(&tlds, "tlds", nil, "tlds to check (default from search.tlds)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or html")
	return cmd
}

func renderer(format string) (func(io.Writer, *brand.Report) error, error) {
	switch strings.ToLower(format) {
	case "text", "":
		return func(w io.Writer, r *brand.Report) error { return report.WriteText(w, report.Summarize(r)) }, nil
	case "json":
		return func(w io.Writer, r *brand.Report) error { return report.WriteJSON(w, report.Summarize(r)) }, nil
	case "html":
		return func(w io.Writer, r *brand.Report) error { return report.WriteHTML(w, report.Summarize(r)) }, nil
	default:
		return nil, fmt.Errorf("unknown format %q: use text, json or html", format)
	}
}
