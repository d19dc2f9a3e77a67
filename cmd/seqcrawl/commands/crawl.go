package commands

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"covid-protein-crawler/config"
	"covid-protein-crawler/services"
	"covid-protein-crawler/utils"
)

type crawlFlags struct {
	start    int
	end      int
	retries  int
	out      string
	query    string
	report   string
	headless bool
	db       bool
	noPrompt bool
}

var crawl crawlFlags

func init() {
	f := crawlCmd.Flags()
	f.IntVar(&crawl.start, "start", 1, "first results page")
	f.IntVar(&crawl.end, "end", 5, "last results page")
	f.IntVar(&crawl.retries, "retries", 3, "attempts per item")
	f.StringVar(&crawl.out, "out", "", "output file (default from config)")
	f.StringVar(&crawl.query, "query", "", "search term (default from config)")
	f.StringVar(&crawl.report, "report", "", "write a JSON run report to this file")
	f.BoolVar(&crawl.headless, "headless", true, "run Chrome headless")
	f.BoolVar(&crawl.db, "db", false, "mirror records and failures into PostgreSQL")
	f.BoolVar(&crawl.noPrompt, "no-prompt", false, "take the page range from the config file without asking")
	rootCmd.AddCommand(crawlCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Walks the search results and appends every sequence to the output file.",
	Long: "Walks the search results page by page and appends every sequence to the output file.\n" +
		"Items already present in the output file are skipped, so an interrupted run can simply be restarted.\n" +
		"Without --start, --end or --retries the page range is asked for interactively.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := applyCrawlFlags(cmd, &cfg); err != nil {
			return err
		}

		log.Printf("╔═══════════════════════════════════════════════════╗")
		log.Printf("║          NCBI Protein Sequence Crawler            ║")
		log.Printf("╚═══════════════════════════════════════════════════╝")
		log.Printf("Query    : %s", cfg.Query)
		log.Printf("Pages    : %d-%d", cfg.StartPage, cfg.EndPage)
		log.Printf("Retries  : %d per item", cfg.MaxRetries)
		log.Printf("Output   : %s", cfg.OutFile)

		report, runErr := services.Run(cmd.Context(), cfg)

		stats := utils.BuildSummaryStats(report.Pages)
		log.Printf("═══════════════════════════════════════════════════")
		if report.Aborted {
			log.Printf("  ABORTED after %d page(s) → %s", stats.PagesWalked, cfg.OutFile)
		} else {
			log.Printf("  DONE — %d new records → %s", stats.Extracted, cfg.OutFile)
		}
		if stats.PagesWalked > 0 {
			utils.RenderSummary(cmd.OutOrStdout(), stats)
		}

		if cfg.ReportFile != "" {
			n, err := utils.WriteJSON(cfg.ReportFile, report)
			if err != nil {
				log.Printf("✗ failed to write report: %v", err)
			} else {
				log.Printf("  REPORT — %d records → %s", n, cfg.ReportFile)
			}
		}
		log.Printf("═══════════════════════════════════════════════════")

		if runErr != nil {
			return fmt.Errorf("crawl failed: %w", runErr)
		}
		return nil
	},
}

// applyCrawlFlags layers the flags over cfg. When no range flag is given
// and --no-prompt is not set, the range is asked for on stdin.
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	rangeGiven := flags.Changed("start") || flags.Changed("end") || flags.Changed("retries")

	switch {
	case rangeGiven:
		if flags.Changed("start") {
			cfg.StartPage = crawl.start
		}
		if flags.Changed("end") {
			cfg.EndPage = crawl.end
		}
		if flags.Changed("retries") {
			cfg.MaxRetries = crawl.retries
		}
		for _, notice := range cfg.Validate() {
			fmt.Fprintln(cmd.OutOrStdout(), notice)
		}
	case !crawl.noPrompt:
		cfg.Prompt(cmd.InOrStdin(), cmd.OutOrStdout())
	default:
		for _, notice := range cfg.Validate() {
			fmt.Fprintln(cmd.OutOrStdout(), notice)
		}
	}

	if flags.Changed("out") {
		cfg.OutFile = crawl.out
	}
	if flags.Changed("query") {
		cfg.Query = crawl.query
	}
	if flags.Changed("report") {
		cfg.ReportFile = crawl.report
	}
	if flags.Changed("headless") {
		cfg.Headless = crawl.headless
	}
	if flags.Changed("db") {
		cfg.DBEnabled = crawl.db
	}
	if cfg.OutFile == "" {
		return fmt.Errorf("no output file configured")
	}
	return nil
}
