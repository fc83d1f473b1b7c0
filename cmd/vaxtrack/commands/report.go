package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/vaxtrack/internal/report"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report [id...|all]",
	Short: "Build reports and write their artefacts",
	Long: `Builds one or more reports from the dataset and writes their artefacts
(png charts and maps, csv, xlsx, geojson) to the output directory.

Reports:
  top_vaccinated   - top countries by share vaccinated, with daily series
  vaccination_map  - share vaccinated choropleth
  gdp_correlation  - share vaccinated against GDP per capita
  gdp_map          - GDP per capita choropleth

The latest snapshot is persisted when DATABASE_URL is set.

Example:
  go run ./cmd/vaxtrack report all
  go run ./cmd/vaxtrack report top_vaccinated gdp_map --refresh`,
	RunE: runReport,
}

var (
	reportRefresh bool
	reportOffline bool
	reportOutDir  string
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().BoolVar(&reportRefresh, "refresh", false, "download the dataset even when cached")
	reportCmd.Flags().BoolVar(&reportOffline, "offline", false, "never download, use the cached dataset only")
	reportCmd.Flags().StringVarP(&reportOutDir, "out", "o", "", "artefact directory (default OUTPUT_DIR)")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if reportOffline && reportRefresh {
		return fmt.Errorf("--offline and --refresh are mutually exclusive")
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	builder, err := a.builder()
	if err != nil {
		return err
	}
	runner := a.runner(a.source(reportOffline), builder, reportOutDir)

	ids, err := runner.Resolve(args)
	if err != nil {
		return err
	}

	PrintRunHeader(RunMetadata{
		Title:   "Report Run",
		Tag:     "Report",
		Source:  a.cfg.Dataset.CachePath,
		Reports: ids,
	})

	summary, err := runner.Run(ctx, report.RunOptions{IDs: ids, Refresh: reportRefresh})
	if err != nil {
		PrintError(err.Error())
		return err
	}

	printRunSummary(summary)
	PrintCompletion("Report run", summary.Duration())
	return nil
}

func printRunSummary(summary *report.RunSummary) {
	fmt.Println()
	PrintKeyValue("Run ID", summary.RunID.String(), 10)
	PrintKeyValue("Rows", formatCount(float64(summary.Rows)), 10)
	PrintKeyValue("Config", summary.ConfigHash, 10)
	PrintKeyValue("Persisted", strconv.FormatBool(summary.Persisted), 10)

	for _, s := range summary.Reports {
		fmt.Println()
		fmt.Printf("📊 %s\n", s.ID)
		PrintKeyValue("Title", s.Title, 10)
		PrintKeyValue("Entities", strconv.Itoa(s.Stats.Entities), 10)

		reasons := make([]string, 0, len(s.Stats.Excluded))
		for reason := range s.Stats.Excluded {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			PrintKeyValue("Excluded", fmt.Sprintf("%d (%s)", s.Stats.Excluded[reason], reason), 10)
		}

		if len(s.Unmatched) > 0 {
			PrintWarning(fmt.Sprintf("%d entities without geometry: %v", len(s.Unmatched), s.Unmatched))
		}
		PrintList(s.Artefacts)
	}
}
