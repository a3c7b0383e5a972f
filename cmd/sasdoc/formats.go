package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clindoc/sasdoc/render"
)

func formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported output formats",
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tEXTENSION\tMIME TYPE\tDESCRIPTION")
			for _, info := range render.Formats() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					info.Name, info.Extension, info.MIMEType, info.Description)
			}
			w.Flush()
		},
	}
}
