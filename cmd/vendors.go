package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-portal/internal/db"
	"github.com/sells-group/vendor-portal/internal/reconcile"
	"github.com/sells-group/vendor-portal/internal/sheet"
	"github.com/sells-group/vendor-portal/internal/store"
)

var (
	vendorsSearch    string
	vendorsImportCSV string
)

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "Inspect and maintain registered vendors",
}

var vendorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered vendors",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		vendors, err := st.ListVendors(cmd.Context(), store.VendorFilter{Query: vendorsSearch})
		if err != nil {
			return err
		}
		for _, v := range vendors {
			fmt.Printf("%s\t%s\t%s\t%s\n", v.ID, v.Name, v.TaxID, v.Email)
		}
		zap.L().Info("vendors listed", zap.Int("count", len(vendors)))
		return nil
	},
}

var vendorsStatusCmd = &cobra.Command{
	Use:   "status <vendor-name>",
	Short: "Show a vendor's spreadsheet-derived qualification status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		homPath, ok := sheet.Locate(cfg.Sheets.Homologation, cfg.Sheets.Dirs)
		if !ok {
			return eris.Errorf("homologation spreadsheet %q not found", cfg.Sheets.Homologation)
		}
		qcPath, ok := sheet.Locate(cfg.Sheets.Quality, cfg.Sheets.Dirs)
		if !ok {
			return eris.Errorf("quality control spreadsheet %q not found", cfg.Sheets.Quality)
		}

		homRows, err := sheet.LoadHomologation(homPath)
		if err != nil {
			return err
		}
		qcRows, err := sheet.LoadQualityControl(qcPath)
		if err != nil {
			return err
		}

		result, found := reconcile.Lookup(name, homRows, qcRows)
		if !found {
			return eris.Errorf("vendor %q not found in homologation roster", name)
		}

		fmt.Printf("Vendor:        %s\n", result.Agent)
		fmt.Printf("Status:        %s\n", result.Status.Label())
		if result.EffectiveScore != nil {
			fmt.Printf("IQF:           %.2f (%d samples)\n", *result.EffectiveScore, result.SampleCount)
		}
		if result.Homologation != nil {
			fmt.Printf("Homologation:  %.2f\n", *result.Homologation)
		}
		if result.Approved != "" {
			fmt.Printf("Approved flag: %s\n", result.Approved)
		}
		for _, obs := range result.Observations {
			fmt.Printf("Occurrence:    %s\n", obs)
		}
		return nil
	},
}

var vendorsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import vendors from a CSV export (postgres only)",
	Long:  "Reads a CSV with name, email, tax_id and optional category columns and upserts the rows on tax_id. Imported vendors have no password until they run password recovery.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		if cfg.Store.Driver == "sqlite" {
			return eris.New("bulk import requires the postgres driver")
		}

		st, err := store.NewPostgres(cmd.Context(), cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return err
		}
		defer st.Close()

		rows, err := readVendorCSV(vendorsImportCSV)
		if err != nil {
			return err
		}

		n, err := db.BulkUpsert(cmd.Context(), st.Pool(), db.UpsertConfig{
			Table:        "vendors",
			Columns:      []string{"id", "name", "email", "tax_id", "password_hash", "category"},
			ConflictKeys: []string{"tax_id"},
			UpdateCols:   []string{"name", "email", "category"},
		}, rows)
		if err != nil {
			return err
		}

		zap.L().Info("vendor import complete",
			zap.Int64("upserted", n),
			zap.String("csv", vendorsImportCSV),
		)
		return nil
	},
}

// readVendorCSV parses the import file into bulk-upsert rows. The header
// must contain name, email and tax_id; category is optional.
func readVendorCSV(path string) ([][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open csv %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read csv header")
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"name", "email", "tax_id"} {
		if _, ok := cols[required]; !ok {
			return nil, eris.Errorf("csv is missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	var rows [][]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read csv record")
		}
		name := field(record, "name")
		email := field(record, "email")
		taxID := field(record, "tax_id")
		if name == "" || email == "" || taxID == "" {
			continue
		}
		rows = append(rows, []any{
			uuid.New().String(), name, email, taxID, "", field(record, "category"),
		})
	}
	return rows, nil
}

func init() {
	vendorsListCmd.Flags().StringVar(&vendorsSearch, "search", "", "filter by name or tax id")
	vendorsImportCmd.Flags().StringVar(&vendorsImportCSV, "csv", "", "path to CSV file (required)")
	_ = vendorsImportCmd.MarkFlagRequired("csv")

	vendorsCmd.AddCommand(vendorsListCmd)
	vendorsCmd.AddCommand(vendorsStatusCmd)
	vendorsCmd.AddCommand(vendorsImportCmd)
	rootCmd.AddCommand(vendorsCmd)
}
