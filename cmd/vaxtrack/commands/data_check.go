package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/vaxtrack/internal/contracts"
	"github.com/wonny/vaxtrack/internal/geo"
	"github.com/wonny/vaxtrack/internal/owid"
	"github.com/wonny/vaxtrack/internal/storage"
)

// dataCheckCmd represents the data check command
var dataCheckCmd = &cobra.Command{
	Use:   "data-check",
	Short: "Check dataset and snapshot status",
	Long: `Checks the state of every data source.

Items checked:
- cached dataset (rows, entities, newest date)
- world geometry (countries)
- persisted snapshots (runs, records, latest run), when DATABASE_URL is set

Example:
  go run ./cmd/vaxtrack data-check`,
	RunE: runDataCheck,
}

func init() {
	rootCmd.AddCommand(dataCheckCmd)
}

func runDataCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fmt.Println("=== vaxtrack Data Check ===")
	fmt.Println()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	checkDataset(a.cfg.Dataset.CachePath)
	checkWorld(a.cfg.Dataset.WorldPath)

	if repo := a.repository(); repo != nil {
		checkSnapshots(ctx, a, repo)
	} else {
		PrintInfo("DATABASE_URL not set, snapshot checks skipped")
	}

	return nil
}

func checkDataset(path string) {
	fmt.Println("📋 Dataset")
	PrintSeparator()

	if _, err := os.Stat(path); err != nil {
		PrintError(fmt.Sprintf("%s not found, run `vaxtrack fetch`", path))
		fmt.Println()
		return
	}

	table, err := owid.LoadFile(path)
	if err != nil {
		PrintError(err.Error())
		fmt.Println()
		return
	}

	PrintKeyValue("Path", path, 9)
	PrintKeyValue("Rows", formatCount(float64(table.Len())), 9)
	PrintKeyValue("Entities", strconv.Itoa(len(table.Entities())), 9)
	if newest, ok := newestDate(table); ok {
		PrintKeyValue("Newest", newest, 9)
	}
	fmt.Println()
}

// newestDate returns the largest date string of the table
func newestDate(table *owid.Table) (string, bool) {
	newest := ""
	for _, row := range table.Rows {
		// ISO dates compare correctly as strings
		if d := row.TextOr(contracts.FieldDate, ""); d > newest {
			newest = d
		}
	}
	return newest, newest != ""
}

func checkWorld(path string) {
	fmt.Println("🗺️  World geometry")
	PrintSeparator()

	world, err := geo.LoadWorldFile(path)
	if err != nil {
		PrintError(err.Error())
		fmt.Println()
		return
	}

	PrintKeyValue("Path", path, 9)
	PrintKeyValue("Countries", strconv.Itoa(len(world.Codes())), 9)
	fmt.Println()
}

func checkSnapshots(ctx context.Context, a *app, repo *storage.SnapshotRepository) {
	fmt.Println("💾 Snapshots")
	PrintSeparator()

	health, err := a.db.HealthCheck(ctx)
	if err != nil {
		PrintError(fmt.Sprintf("database unhealthy: %v", err))
		fmt.Println()
		return
	}
	PrintKeyValue("Ping", health.ResponseTime.String(), 9)

	counts, err := repo.Counts(ctx)
	if err != nil {
		PrintError(err.Error())
		fmt.Println()
		return
	}
	PrintKeyValue("Runs", strconv.FormatInt(counts.Runs, 10), 9)
	PrintKeyValue("Records", strconv.FormatInt(counts.Records, 10), 9)

	run, err := repo.GetLatestRun(ctx)
	switch {
	case errors.Is(err, storage.ErrNoRuns):
		PrintWarning("No runs persisted yet, run `vaxtrack report`")
	case err != nil:
		PrintError(err.Error())
	default:
		PrintKeyValue("Latest", run.ID.String(), 9)
		PrintKeyValue("Finished", run.FinishedAt.Format("2006-01-02 15:04:05"), 9)
		PrintKeyValue("Entities", strconv.Itoa(run.EntityCount), 9)
		PrintKeyValue("Mode", run.Mode, 9)
	}
	fmt.Println()
}
