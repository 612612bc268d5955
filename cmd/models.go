package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/ecoburn/internal/cli"
	"github.com/verdantlabs/ecoburn/internal/config"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Model pricing catalog",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

type modelJSON struct {
	Model         string  `json:"model"`
	InputPerMTok  float64 `json:"input_per_mtok"`
	OutputPerMTok float64 `json:"output_per_mtok"`
	ContextWindow int64   `json:"context_window"`
}

func runModels(_ *cobra.Command, _ []string) error {
	cfg := loadConfigOrDefault()
	catalog := config.SortedCatalog(config.CatalogWith(cfg.Pricing))

	if flagJSON {
		out := make([]modelJSON, 0, len(catalog))
		for _, p := range catalog {
			out = append(out, modelJSON{
				Model:         p.Name,
				InputPerMTok:  p.InputPerMTok,
				OutputPerMTok: p.OutputPerMTok,
				ContextWindow: p.ContextWindow,
			})
		}
		return printJSON(out)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("MODEL PRICING  per million tokens"))
	fmt.Println()

	rows := make([][]string, 0, len(catalog))
	for _, p := range catalog {
		rows = append(rows, []string{
			p.Name,
			fmt.Sprintf("$%.2f", p.InputPerMTok),
			fmt.Sprintf("$%.2f", p.OutputPerMTok),
			cli.FormatTokens(p.ContextWindow),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Model", "Input", "Output", "Window"},
		Rows:    rows,
	}))

	if len(cfg.Pricing.Overrides) > 0 {
		fmt.Printf("  %s\n\n", cli.Muted(fmt.Sprintf(
			"%d price override(s) applied from config.", len(cfg.Pricing.Overrides))))
	}

	return nil
}
