package main

import (
	"encoding/csv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/lpcsv/internal/competency"
)

func newHeadersCmd() *cobra.Command {
	var export, related bool

	cmd := &cobra.Command{
		Use:   "headers",
		Short: "Print the CSV header row",
		RunE: func(cmd *cobra.Command, args []string) error {
			headers := competency.RequiredHeaders()
			if export {
				headers = competency.ExportHeaders(related)
			}
			w := csv.NewWriter(cmd.OutOrStdout())
			if err := w.Write(headers); err != nil {
				return err
			}
			w.Flush()
			return w.Error()
		},
	}
	cmd.Flags().BoolVar(&export, "export", false, "Print the export header row instead of the import one")
	cmd.Flags().BoolVar(&related, "related", false, "With --export, include relatedidnumbers")
	return cmd
}
