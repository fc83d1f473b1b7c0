package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the OWID dataset",
	Long: `Downloads the OWID COVID-19 CSV into the local cache path.

The file is written to a temporary name and renamed into place, so a failed
download never replaces a good copy.

Example:
  go run ./cmd/vaxtrack fetch
  go run ./cmd/vaxtrack fetch --url https://example.org/owid.csv`,
	RunE: runFetch,
}

var fetchURL string

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "dataset URL (default DATASET_URL)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if fetchURL != "" {
		a.cfg.Dataset.URL = fetchURL
	}

	PrintRunHeader(RunMetadata{
		Title:  "Dataset Download",
		Tag:    "Fetch",
		Source: a.cfg.Dataset.URL,
	})

	start := time.Now()
	n, err := a.owidClient().Download(ctx, a.cfg.Dataset.CachePath)
	if err != nil {
		PrintError(err.Error())
		return fmt.Errorf("download dataset: %w", err)
	}

	PrintKeyValue("Path", a.cfg.Dataset.CachePath, 6)
	PrintKeyValue("Bytes", formatCount(float64(n)), 6)
	PrintCompletion("Download", time.Since(start))
	return nil
}
