package commands

import (
	"fmt"
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"covid-protein-crawler/features"
	"covid-protein-crawler/utils"
)

var composeOut string

func init() {
	composeCmd.Flags().StringVarP(&composeOut, "out", "o", "genome_sequences.csv", "CSV file to write")
	rootCmd.AddCommand(composeCmd)
}

var composeCmd = &cobra.Command{
	Use:   "compose <dir|file>...",
	Short: "Builds an A-Z letter composition table from crawl output files.",
	Long: "Reads every *.txt file of the given directories, and any file named directly,\n" +
		"and writes one CSV row of A-Z letter counts per sequence, labelled with the file name.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs, err := features.Inputs(args)
		if err != nil {
			return err
		}

		summary := utils.NewTable(cmd.OutOrStdout())
		summary.AppendHeader(table.Row{"File", "Label", "Sequences", "Skipped"})

		var rows []features.Row
		for _, path := range inputs {
			fileRows, skipped, err := features.LoadFile(path)
			if err != nil {
				return err
			}
			rows = append(rows, fileRows...)
			summary.AppendRow(table.Row{path, features.Label(path), len(fileRows), skipped})
		}

		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No data was processed.")
			return nil
		}

		f, err := os.Create(composeOut)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := features.WriteCSV(f, rows); err != nil {
			return fmt.Errorf("write %s: %w", composeOut, err)
		}

		summary.AppendFooter(table.Row{"", "", len(rows), ""})
		summary.Render()
		log.Printf("✓ %d rows → %s", len(rows), composeOut)
		return nil
	},
}
