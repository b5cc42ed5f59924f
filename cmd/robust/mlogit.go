package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/statkit/robust/mlogit"
	"github.com/statkit/robust/relstore"
)

var fitParams []string

var mlogitCmd = &cobra.Command{
	Use:   "mlogit",
	Short: "Robust variance for a fitted multinomial logistic regression model",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMLogit()
	},
}

func init() {
	mlogitCmd.Flags().StringVar(&modelTable, "model", "", "table holding the fitted model outputs")
	mlogitCmd.Flags().StringVar(&outputTable, "output", "", "output table to create")
	mlogitCmd.Flags().StringArrayVar(&fitParams, "param", nil,
		"optimizer parameter for the fitting procedure, as key=value")
	rootCmd.AddCommand(mlogitCmd)
}

func parseFitParams(kvs []string) (*mlogit.FitConfig, error) {

	params := make(map[string]string)
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("malformed parameter '%s', expected key=value", kv)
		}
		params[k] = v
	}

	return mlogit.ParseFitParams(params)
}

func runMLogit() error {

	defer quietScope()()

	if modelTable == "" || outputTable == "" {
		return fmt.Errorf("mlogit requires --model and --output")
	}

	// The fit parameters configure the external fitting collaborator;
	// validating them here keeps bad settings from surfacing as a
	// confusing failure later.
	fitcfg, err := parseFitParams(fitParams)
	if err != nil {
		return err
	}

	st, err := relstore.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if ok, err := st.TableExists(outputTable); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("output table '%s' already exists", outputTable)
	}

	model, nrows, err := st.ReadModel(modelTable)
	if err != nil {
		return err
	}
	if nrows > 1 {
		logger.Warn("model table has multiple rows; using the first by rowid",
			zap.String("table", modelTable), zap.Int("rows", nrows))
	}

	summary, err := st.ReadMLogitSummary(modelTable + "_summary")
	if err != nil {
		return err
	}

	cols := append([]string{summary.ResponseVar}, summary.IndepVars...)
	data, err := st.ReadDataset(summary.SourceTable, cols)
	if err != nil {
		return err
	}
	logger.Info("read observation table",
		zap.String("table", summary.SourceTable), zap.Int("rows", data.NumObs()),
		zap.String("optimizer", fitcfg.Optimizer))

	config := mlogit.DefaultConfig()
	config.RefCategory = &summary.RefCategory

	m, err := mlogit.New(data, summary.ResponseVar, summary.IndepVars, model, config)
	if err != nil {
		return err
	}

	rslt, err := m.Robust()
	if err != nil {
		return err
	}

	var rows []relstore.MLogitOutputRow
	for _, cr := range rslt.Reshape() {
		rows = append(rows, relstore.MLogitOutputRow{
			Category:    cr.Category,
			RefCategory: cr.RefCategory,
			Coef:        cr.Coef,
			StdErr:      cr.StdErr,
			ZStats:      cr.ZStats,
			PValues:     cr.PValues,
		})
	}
	if err := st.WriteMLogitOutput(outputTable, rows); err != nil {
		return err
	}

	logger.Info("wrote robust variance output",
		zap.String("table", outputTable), zap.Int("categories", len(rows)))
	fmt.Println(rslt.Summary())

	return nil
}
