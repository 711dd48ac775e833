package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Cyvadra/stockwatch/internal/config"
	"github.com/spf13/cobra"
)

const cliOperator = "cli"

// --- fetch ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch stock for every tracked SKU once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeApp, err := bootstrap(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer closeApp()

		report, err := a.Pipeline.FetchNow(cmd.Context(), cliOperator)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run consumption analysis once",
	Long: `Run consumption analysis once over every tracked SKU, or one SKU.

Examples:
  stockwatch analyze
  stockwatch analyze --sku-id 12`,
	RunE: func(cmd *cobra.Command, args []string) error {
		skuID, _ := cmd.Flags().GetUint("sku-id")

		a, closeApp, err := bootstrap(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer closeApp()

		var target *uint
		if skuID != 0 {
			target = &skuID
		}
		result, err := a.Pipeline.RunAnalysisNow(cmd.Context(), target, cliOperator)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the history of a SKU to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		skuID, _ := cmd.Flags().GetUint("sku-id")
		out, _ := cmd.Flags().GetString("out")
		if skuID == 0 {
			return fmt.Errorf("--sku-id is required")
		}

		a, closeApp, err := bootstrap(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer closeApp()

		sku, err := a.Skus.Get(cmd.Context(), skuID)
		if err != nil {
			return err
		}
		if out == "" {
			out = sku.Sku + "-history.xlsx"
		}

		f, err := a.Exporter.Export(cmd.Context(), sku)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := f.SaveAs(out); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		fmt.Fprintf(os.Stdout, "wrote %s\n", out)
		return nil
	},
}

// --- init-config ---

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a configuration file with every default filled in",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(out); err == nil && !force {
			return fmt.Errorf("%s already exists, pass --force to overwrite it", out)
		}
		if err := config.SaveConfig(config.Default(), out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "wrote %s\n", out)
		return nil
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	analyzeCmd.Flags().Uint("sku-id", 0, "analyze only this tracked SKU")
	exportCmd.Flags().Uint("sku-id", 0, "tracked SKU to export")
	exportCmd.Flags().String("out", "", "output file (default: <sku>-history.xlsx)")
	initConfigCmd.Flags().String("out", "config.yaml", "output file")
	initConfigCmd.Flags().Bool("force", false, "overwrite an existing file")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(initConfigCmd)
}
