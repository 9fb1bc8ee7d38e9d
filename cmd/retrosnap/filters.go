package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fpang/retrosnap/internal/filter"
	"github.com/spf13/cobra"
)

func newFiltersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the available filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printFilters(cmd.OutOrStdout())
		},
	}
}

func printFilters(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILTER\tEXPORT CHAIN")
	for _, d := range filter.All() {
		name := string(d.ID)
		if d.ID == filter.Default {
			name += " (default)"
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, d.CSS())
	}
	return tw.Flush()
}
