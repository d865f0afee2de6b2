package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hdmed/adapters/csvdata"
	"hdmed/adapters/excel"
	"hdmed/adapters/report"
	"hdmed/app"
	"hdmed/domain/mediation"
	"hdmed/internal/testkit"
	"hdmed/models"
	"hdmed/ports"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hdmed",
		Short: "Cross-fitted mediation effect estimation for multi-category exposures",
	}

	rootCmd.AddCommand(
		newEstimateCmd(),
		newSimulateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type estimatorFlags struct {
	trim       float64
	normalized bool
	fewSplits  bool
	seed       int64
	singlePath bool
}

func (f *estimatorFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.trim, "trim", 0.01, "Propensity trimming threshold in [0,1)")
	cmd.Flags().BoolVar(&f.normalized, "normalized", false, "Normalize inverse-probability weights to mean one")
	cmd.Flags().BoolVar(&f.fewSplits, "few-splits", false, "Reuse the merged training block for both nuisance roles")
	cmd.Flags().Int64Var(&f.seed, "seed", 12345, "Random seed for the fold partition")
	cmd.Flags().BoolVar(&f.singlePath, "single-path", false, "Report only total, direct (treated) and indirect (control) effects")
}

func (f *estimatorFlags) config() mediation.Config {
	cfg := mediation.DefaultConfig()
	cfg.Trim = f.trim
	cfg.Normalized = f.normalized
	cfg.FewSplits = f.fewSplits
	cfg.Seed = f.seed
	if f.singlePath {
		cfg.Variant = mediation.VariantSinglePath
	}
	return cfg
}

func newEstimateCmd() *cobra.Command {
	var flags estimatorFlags
	var spec ports.CohortSpec
	var sheet, format, xlsxOut string

	cmd := &cobra.Command{
		Use:   "estimate [data-file]",
		Short: "Estimate direct and indirect mediation effects from a cohort file",
		Long: `Estimate natural direct and indirect effects of a multi-category
exposure from a CSV or Excel cohort file.

The exposure column must hold integer categories with 0 as the control
level; mediator and confounder columns are selected by name prefix.

Example: hdmed estimate cohort.csv --outcome-col y --exposure-col z --mediator-prefix m_ --confounder-prefix x_ --trim 0.02`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readCohort(cmd.Context(), args[0], sheet, spec)
			if err != nil {
				return err
			}

			service := app.NewDefaultMediationService(mediation.DefaultLearnerParams())
			rep, err := service.EstimateAll(cmd.Context(), ds, flags.config())
			if err != nil {
				return err
			}

			if xlsxOut != "" {
				if err := excel.NewReportWriter().Write(rep, xlsxOut); err != nil {
					return err
				}
				fmt.Printf("Wrote workbook %s\n", xlsxOut)
			}
			return printReport(rep, format)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&spec.OutcomeColumn, "outcome-col", "y", "Outcome column name")
	cmd.Flags().StringVar(&spec.ExposureColumn, "exposure-col", "z", "Exposure column name")
	cmd.Flags().StringVar(&spec.MediatorPrefix, "mediator-prefix", "m_", "Mediator column name prefix")
	cmd.Flags().StringVar(&spec.ConfounderPrefix, "confounder-prefix", "x_", "Confounder column name prefix")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Workbook sheet name (Excel input only; defaults to the first sheet)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, markdown or json")
	cmd.Flags().StringVar(&xlsxOut, "xlsx-out", "", "Also write the report to an Excel workbook")

	return cmd
}

func newSimulateCmd() *cobra.Command {
	var flags estimatorFlags
	var n, categories, mediators, confounders int
	var mediatorCoef float64
	var format string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the estimator on synthetic data with known effects",
		Long: `Generate a linear structural equation cohort with known direct and
indirect effects, run the full estimation pipeline on it, and print the
estimates next to the simulation truth.

Example: hdmed simulate --n 2000 --categories 3 --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			semCfg := testkit.DefaultSEMConfig()
			semCfg.N = n
			semCfg.Categories = categories
			semCfg.Mediators = mediators
			semCfg.Confounders = confounders
			semCfg.MediatorCoef = mediatorCoef
			semCfg.Seed = flags.seed

			ds, truth, err := testkit.GenerateSEM(semCfg)
			if err != nil {
				return err
			}

			service := app.NewDefaultMediationService(mediation.DefaultLearnerParams())
			rep, err := service.EstimateAll(cmd.Context(), ds, flags.config())
			if err != nil {
				return err
			}

			for j := 1; j < categories; j++ {
				fmt.Printf("Category %d truth: total=%.4f direct=%.4f indirect=%.4f\n",
					j, truth.Total(j), truth.Direct(j), truth.Indirect(j))
			}
			return printReport(rep, format)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&n, "n", 2000, "Number of observations")
	cmd.Flags().IntVar(&categories, "categories", 3, "Number of exposure categories including control")
	cmd.Flags().IntVar(&mediators, "mediators", 2, "Number of mediator columns")
	cmd.Flags().IntVar(&confounders, "confounders", 5, "Number of confounder columns")
	cmd.Flags().Float64Var(&mediatorCoef, "mediator-coef", 1.0, "Exposure-to-mediator coefficient (0 removes the indirect path)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, markdown or json")

	return cmd
}

func readCohort(ctx context.Context, path, sheet string, spec ports.CohortSpec) (*mediation.Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return csvdata.NewCohortReader(path).Read(ctx, spec)
	case ".xlsx", ".xlsm":
		return excel.NewCohortReader(path, sheet).Read(ctx, spec)
	default:
		return nil, fmt.Errorf("unsupported input format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

func printReport(rep *models.Report, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rep)
	case "markdown":
		fmt.Print(report.RenderMarkdown(rep))
		return nil
	case "table":
		printTable(rep)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want table, markdown or json)", format)
	}
}

func printTable(rep *models.Report) {
	fmt.Printf("Run %s  n=%d  outcome=%s\n", rep.RunID, rep.SampleSize, rep.OutcomeKind)
	for _, category := range rep.Categories {
		fmt.Printf("\nCategory %d vs 0 (retained %d, trimmed %d):\n",
			category.Category, category.Retained, category.Trimmed)
		fmt.Printf("  %-18s %10s %10s %10s %22s\n", "effect", "estimate", "std.err", "p-value", "95% CI")
		for _, e := range category.Effects {
			fmt.Printf("  %-18s %10.4f %10.4f %10.4g [%9.4f, %9.4f]\n",
				e.Contrast, e.Estimate, e.StdErr, e.PValue, e.CILower, e.CIUpper)
		}
	}
}
