package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/vaxtrack/internal/aggregate"
	"github.com/wonny/vaxtrack/internal/contracts"
	"github.com/wonny/vaxtrack/internal/reportconfig"
)

// topCmd represents the top command
var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Print the most vaccinated countries",
	Long: `Prints the Top-N ranking of countries by share of population vaccinated.

People vaccinated falls back to total vaccinations where a country does not
report it; those rows are marked with *.

Example:
  go run ./cmd/vaxtrack top
  go run ./cmd/vaxtrack top -n 25 --min-population 5000000
  go run ./cmd/vaxtrack top --mode last_seen`,
	RunE: runTop,
}

var (
	topN       int
	topMinPop  float64
	topMode    string
	topOffline bool
	topRefresh bool
)

func init() {
	rootCmd.AddCommand(topCmd)

	topCmd.Flags().IntVarP(&topN, "n", "n", 10, "number of countries")
	topCmd.Flags().Float64Var(&topMinPop, "min-population", 1_000_000, "minimum population")
	topCmd.Flags().StringVar(&topMode, "mode", "", "aggregation mode (max_date|last_seen)")
	topCmd.Flags().BoolVar(&topOffline, "offline", false, "never download, use the cached dataset only")
	topCmd.Flags().BoolVar(&topRefresh, "refresh", false, "download the dataset even when cached")
}

func runTop(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := applyTopOverrides(a.defs, topMinPop, topMode); err != nil {
		return err
	}

	builder, err := a.builder()
	if err != nil {
		return err
	}

	table, err := a.source(topOffline).Load(ctx, topRefresh)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	ranked, err := builder.Ranking(table, topN)
	if err != nil {
		return err
	}

	if len(ranked) == 0 {
		PrintWarning("No countries matched")
		return nil
	}

	printRanking(ranked)
	return nil
}

// applyTopOverrides rewrites the top_vaccinated definition with the CLI flags
func applyTopOverrides(defs *reportconfig.Config, minPopulation float64, mode string) error {
	def, err := defs.Get(contracts.ReportTopVaccinated)
	if err != nil {
		return err
	}

	def = def.WithMinValue(contracts.FieldPopulation, minPopulation)

	if mode != "" {
		m, err := aggregate.ParseMode(mode)
		if err != nil {
			return err
		}
		def = def.WithMode(m)
	}

	return defs.Replace(def)
}

func printRanking(ranked []contracts.RankedEntity) {
	columns := []string{"#", "ISO", "Location", "Date", "Vaccinated", "Population", "Share"}
	widths := []int{3, 8, 24, 10, 15, 15, 9}

	fmt.Println()
	PrintTableHeader(columns, widths)

	for _, r := range ranked {
		vaccinated := formatCount(r.Primary)
		if r.Substituted {
			vaccinated += "*"
		}
		PrintTableRow([]string{
			strconv.Itoa(r.Rank),
			r.Entity,
			r.Location(),
			r.Date.Format(contracts.DateLayout),
			vaccinated,
			formatCount(r.Denominator),
			formatPercent(r.Ratio),
		}, widths)
	}
	fmt.Println()
}
