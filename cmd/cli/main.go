package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"rankfair/adapters/excel"
	"rankfair/app"
	"rankfair/domain/classification"
	"rankfair/domain/ranking"
	"rankfair/domain/verdict"
	"rankfair/internal"
	"rankfair/internal/config"
	"rankfair/internal/container"
	"rankfair/internal/oracle"
	"rankfair/internal/render"
	"rankfair/internal/testkit"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var verbose bool
	rootCmd := &cobra.Command{
		Use:   "rankfair",
		Short: "Fairness diagnostics for ranked datasets",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				internal.DefaultLogger.SetLevel(internal.LogLevelDebug)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log simulation details")

	rootCmd.AddCommand(
		newAuditCmd(cfg),
		newStabilityCmd(cfg),
		newDiversityCmd(cfg),
		newMetricsCmd(cfg),
		newGenerateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// outputFlags are shared by every command that renders a result
type outputFlags struct {
	format string
	out    string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.format, "format", "markdown", "Output format: json|yaml|markdown|html")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "Write output to this file instead of stdout")
}

// write renders to stdout or the --out file
func (o *outputFlags) write(fn func(w io.Writer, f render.Format) error) error {
	format, err := render.ParseFormat(o.format)
	if err != nil {
		return err
	}
	if o.out == "" {
		return fn(os.Stdout, format)
	}
	f, err := os.Create(o.out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", o.out, err)
	}
	defer f.Close()
	if err := fn(f, format); err != nil {
		return err
	}
	return f.Close()
}

// rankingFlags locate a ranked dataset file and its score column
type rankingFlags struct {
	file     string
	idColumn string
	score    string
}

func (r *rankingFlags) register(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringVarP(&r.file, "file", "f", cfg.Data.ExcelFile, "Dataset file (.csv or .xlsx); defaults to EXCEL_FILE")
	cmd.Flags().StringVar(&r.idColumn, "id-column", "", "Record identifier column (detected when empty)")
	cmd.Flags().StringVar(&r.score, "score", "Score", "Numeric score column to rank by")
}

func (r *rankingFlags) read(categorical ...string) (*ranking.Dataset, error) {
	if r.file == "" {
		return nil, fmt.Errorf("no dataset file: pass --file or set EXCEL_FILE")
	}
	excelCfg := excel.DefaultExcelConfig(r.file)
	excelCfg.IDColumn = r.idColumn
	for _, c := range categorical {
		if c != "" {
			excelCfg.CategoricalColumns = append(excelCfg.CategoricalColumns, c)
		}
	}
	return excel.ReadRanking(excelCfg)
}

func newAuditCmd(cfg *config.Config) *cobra.Command {
	var data rankingFlags
	var output outputFlags
	var attribute, value, alternative, diversityAttribute string
	var diversityTopN int
	opts := cfg.OracleOptions()

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run the ranked group, pairwise and proportion tests on a ranking",
		Long: `Rank the file by its score column and test whether the protected group
is under-represented at the top.

Example: rankfair audit -f applicants.csv --score Score --attribute sex --value F --runs 200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := data.read(attribute, diversityAttribute)
			if err != nil {
				return err
			}
			opts.Alternative = verdict.Alternative(alternative)

			c, err := container.New(cfg)
			if err != nil {
				return err
			}
			report, err := c.AuditService.Run(cmd.Context(), ds, app.AuditRequest{
				DatasetName:        data.file,
				ScoreColumn:        data.score,
				Group:              ranking.ProtectedGroup{Attribute: attribute, Value: value},
				Options:            opts,
				DiversityAttribute: diversityAttribute,
				DiversityTopN:      diversityTopN,
			})
			if err != nil {
				return err
			}
			return output.write(func(w io.Writer, f render.Format) error {
				return render.Report(w, report, f)
			})
		},
	}

	data.register(cmd, cfg)
	output.register(cmd)
	cmd.Flags().StringVar(&attribute, "attribute", "", "Protected attribute column")
	cmd.Flags().StringVar(&value, "value", "", "Value of the attribute that marks the protected group")
	cmd.Flags().IntVar(&opts.TopK, "top-k", opts.TopK, "Prefix length for the ranked group and proportion tests")
	cmd.Flags().IntVar(&opts.Runs, "runs", opts.Runs, "Monte Carlo trials for the pairwise test")
	cmd.Flags().IntVar(&opts.Precision, "precision", opts.Precision, "Decimal places of reported p-values")
	cmd.Flags().IntVar(&opts.StabilityPrecision, "stability-precision", opts.StabilityPrecision, "Decimal places of the score slope")
	cmd.Flags().Int64Var(&opts.Seed, "seed", opts.Seed, "Random seed for the pairwise simulation")
	cmd.Flags().IntVar(&opts.Workers, "workers", opts.Workers, "Concurrent pairwise trials")
	cmd.Flags().StringVar(&alternative, "alternative", string(opts.Alternative), "Direction tested: disadvantaged|advantaged")
	cmd.Flags().StringVar(&diversityAttribute, "diversity-attribute", "", "Attribute profiled at the top (defaults to --attribute)")
	cmd.Flags().IntVar(&diversityTopN, "diversity-top-n", ranking.DefaultDiversityTopN, "Ranks included in the diversity profile")
	_ = cmd.MarkFlagRequired("attribute")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func newStabilityCmd(cfg *config.Config) *cobra.Command {
	var data rankingFlags
	var output outputFlags
	precision := cfg.Audit.StabilityPrecision

	cmd := &cobra.Command{
		Use:   "stability",
		Short: "Report the slope of the ranked scores",
		Long: `Sort the score column descending and fit a line through it. A slope above
the stability threshold means the top of the ranking is well separated.

Example: rankfair stability -f applicants.csv --score Score`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := data.read()
			if err != nil {
				return err
			}
			r, err := ranking.Prepare(ds, data.score)
			if err != nil {
				return err
			}
			res, err := oracle.RankingSlope(r, precision)
			if err != nil {
				return err
			}
			return output.write(func(w io.Writer, f render.Format) error {
				return render.Stability(w, res, cfg.ClassifierThresholds(), f)
			})
		},
	}

	data.register(cmd, cfg)
	output.register(cmd)
	cmd.Flags().IntVar(&precision, "precision", precision, "Decimal places of the slope")

	return cmd
}

func newDiversityCmd(cfg *config.Config) *cobra.Command {
	var data rankingFlags
	var output outputFlags
	var attribute string
	var topN int

	cmd := &cobra.Command{
		Use:   "diversity",
		Short: "Compare an attribute's distribution at the top with the whole ranking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := data.read(attribute)
			if err != nil {
				return err
			}
			r, err := ranking.Prepare(ds, data.score)
			if err != nil {
				return err
			}
			profile, err := r.Diversity(attribute, topN)
			if err != nil {
				return err
			}
			return output.write(func(w io.Writer, f render.Format) error {
				return render.Diversity(w, profile, f)
			})
		},
	}

	data.register(cmd, cfg)
	output.register(cmd)
	cmd.Flags().StringVar(&attribute, "attribute", "", "Categorical column to profile")
	cmd.Flags().IntVar(&topN, "top-n", ranking.DefaultDiversityTopN, "Ranks treated as the top")
	_ = cmd.MarkFlagRequired("attribute")

	return cmd
}

func newMetricsCmd(cfg *config.Config) *cobra.Command {
	var output outputFlags
	var file, labelColumn, predictionColumn string
	var favorable float64
	var protected []string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Build the classification fairness table for a labeled file",
		Long: `Compute statistical parity difference, equal opportunity difference, average
absolute odds difference, disparate impact and the Theil index for each protected
attribute, comparing the label column with the prediction column.

Protected attributes are given as name:privileged:unprivileged.

Example: rankfair metrics -f scored.csv --label hired --pred predicted --protected sex:1:0 --protected race:1:0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = cfg.Data.ExcelFile
			}
			attrs, err := parseProtected(protected)
			if err != nil {
				return err
			}
			ds, predicted, err := excel.ReadLabeled(excel.LabeledConfig{
				FilePath:         file,
				LabelColumn:      labelColumn,
				PredictionColumn: predictionColumn,
				FavorableLabel:   favorable,
				Attributes:       attrs,
			})
			if err != nil {
				return err
			}

			c, err := container.New(cfg)
			if err != nil {
				return err
			}
			report, err := c.MetricsService.Build(cmd.Context(), ds, predicted)
			if err != nil {
				return err
			}
			return output.write(func(w io.Writer, f render.Format) error {
				return render.Metrics(w, render.MetricsView{Table: report.Table, BiasCounts: report.BiasCounts}, f)
			})
		},
	}

	output.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "Labeled file (.csv or .xlsx); defaults to EXCEL_FILE")
	cmd.Flags().StringVar(&labelColumn, "label", "label", "Ground-truth label column")
	cmd.Flags().StringVar(&predictionColumn, "pred", "predicted", "Predicted label column")
	cmd.Flags().Float64Var(&favorable, "favorable", 1, "Label value counted as the favourable outcome")
	cmd.Flags().StringArrayVar(&protected, "protected", nil, "Protected attribute as name:privileged:unprivileged (repeatable)")
	_ = cmd.MarkFlagRequired("protected")

	return cmd
}

// parseProtected reads name:privileged:unprivileged attribute specs
func parseProtected(specs []string) ([]classification.ProtectedAttribute, error) {
	attrs := make([]classification.ProtectedAttribute, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 || parts[0] == "" {
			return nil, fmt.Errorf("protected attribute %q must look like name:privileged:unprivileged", spec)
		}
		priv, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("privileged value of %q: %w", spec, err)
		}
		unpriv, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("unprivileged value of %q: %w", spec, err)
		}
		attrs = append(attrs, classification.ProtectedAttribute{
			Name:         parts[0],
			Privileged:   []float64{priv},
			Unprivileged: []float64{unpriv},
		})
	}
	return attrs, nil
}

func newGenerateCmd() *cobra.Command {
	genCfg := testkit.DefaultRankingConfig()
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic ranked dataset as CSV",
		Long: `Generate scored records with a protected group, optionally penalising the
protected group's scores by --bias points. Useful for trying the other commands.

Example: rankfair generate --records 500 --bias 15 -o biased.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := testkit.NewRankingGenerator(genCfg).Generate()
			if err != nil {
				return err
			}
			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			return writeCSV(cmd.Context(), w, ds, genCfg.ScoreColumn, genCfg.Attribute)
		},
	}

	cmd.Flags().IntVar(&genCfg.Records, "records", genCfg.Records, "Number of records")
	cmd.Flags().Float64Var(&genCfg.ProtectedShare, "share", genCfg.ProtectedShare, "Fraction of records in the protected group")
	cmd.Flags().Float64Var(&genCfg.Bias, "bias", genCfg.Bias, "Points subtracted from protected scores")
	cmd.Flags().Int64Var(&genCfg.Seed, "seed", genCfg.Seed, "Random seed")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write CSV to this file instead of stdout")

	return cmd
}

func writeCSV(ctx context.Context, w io.Writer, ds *ranking.Dataset, scoreColumn, attribute string) error {
	scores, err := ds.Scores(scoreColumn)
	if err != nil {
		return err
	}
	groups, err := ds.Attribute(attribute)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", scoreColumn, attribute}); err != nil {
		return err
	}
	for i, id := range ds.IDs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []string{id, strconv.FormatFloat(scores[i], 'f', -1, 64), groups[i]}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
