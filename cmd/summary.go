package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/parcel-cli/internal/summary"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <table>",
	Short: "Summarize an exported parcel table per commune and village",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("summary"); err != nil {
			return err
		}

		parcels, err := summary.Load(cmd.Context(), newLoader(cfg), args[0])
		if err != nil {
			return err
		}
		s := summary.Compute(parcels)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		summary.Format(os.Stdout, s)
		return nil
	},
}

func init() {
	summaryCmd.Flags().Bool("json", false, "print the summary as JSON")
	rootCmd.AddCommand(summaryCmd)
}
