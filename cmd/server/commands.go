package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/plot"

	"popdash/internal/charts"
	"popdash/internal/config"
	"popdash/internal/engine"
	"popdash/internal/export"
	"popdash/internal/models"
)

var (
	province     string
	renderFormat string
	renderOut    string
	exportOut    string
	exportFormat string
	forceInit    bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write the trend and bar charts to a directory",
	Long: `Renders the two dashboard charts for an optional province.

Example:
  popdash render --province Cebu --format svg --out ./charts`,
	RunE: runRender,
}

var provincesCmd = &cobra.Command{
	Use:   "provinces",
	Short: "List the provinces in the dataset",
	RunE:  runProvinces,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the long-form population table (arrow or xlsx)",
	RunE:  runExport,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the popdash configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file to --config",
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)

	renderCmd.Flags().StringVarP(&province, "province", "p", "", "province to chart (default: all)")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "", "png or svg (default: from config)")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", ".", "output directory")

	exportCmd.Flags().StringVarP(&province, "province", "p", "", "province to export (default: all)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "xlsx", "arrow or xlsx")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: population.<format>)")
}

func loadDataset() (*engine.Dataset, error) {
	ds, err := engine.LoadDataset(cfg.DataPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("dataset loaded", zap.String("path", cfg.DataPath), zap.Int("rows", ds.Len()))
	return ds, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	format := renderFormat
	if format == "" {
		format = cfg.Charts.Format
	}
	if _, err := charts.ContentType(format); err != nil {
		return err
	}

	ds, err := loadDataset()
	if err != nil {
		return err
	}
	view, err := ds.BuildView(province)
	if err != nil {
		return err
	}
	if view.Info != "" {
		fmt.Fprintln(cmd.OutOrStdout(), view.Info)
	}

	trend, err := charts.Trend(view.Trend, charts.TrendTitle)
	if err != nil {
		return err
	}
	bars, err := charts.GroupedBars(view.Bars, charts.BarsTitle)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(renderOut, 0o755); err != nil {
		return err
	}
	for _, out := range []struct {
		name string
		plot *plot.Plot
	}{
		{"trend", trend},
		{"bars", bars},
	} {
		file := filepath.Join(renderOut, out.name+"."+format)
		if err := writeChart(file, format, out.plot); err != nil {
			return fmt.Errorf("%s chart: %w", out.name, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote", file)
	}
	return nil
}

func writeChart(file, format string, p *plot.Plot) error {
	var buf bytes.Buffer
	if err := charts.Render(&buf, p, format, cfg.Charts.Width, cfg.Charts.Height); err != nil {
		return err
	}
	return os.WriteFile(file, buf.Bytes(), 0o644)
}

func runProvinces(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset()
	if err != nil {
		return err
	}
	for _, p := range ds.Provinces() {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "arrow" && exportFormat != "xlsx" {
		return fmt.Errorf("unknown export format %q (want arrow or xlsx)", exportFormat)
	}

	ds, err := loadDataset()
	if err != nil {
		return err
	}
	rows, err := ds.Tidy(province)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if exportFormat == "arrow" {
		err = export.WriteArrow(&buf, rows)
	} else {
		var info *models.ProvinceInfo
		if province != engine.NoSelection {
			i, derr := ds.Describe(province)
			if derr != nil {
				return derr
			}
			info = &i
		}
		err = export.WriteXLSX(&buf, rows, province, info)
	}
	if err != nil {
		return err
	}

	file := exportOut
	if file == "" {
		file = "population." + exportFormat
	}
	if err := os.WriteFile(file, buf.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(rows), file)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}
	out := config.DefaultConfig()
	if dataPath != "" {
		out.DataPath = dataPath
	}
	if err := out.Save(configPath); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "wrote", configPath)
	return nil
}
