package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/statkit/robust/coxph"
	"github.com/statkit/robust/relstore"
)

var coxphCmd = &cobra.Command{
	Use:   "coxph",
	Short: "Robust variance for a fitted Cox proportional hazards model",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCoxPH()
	},
}

func init() {
	coxphCmd.Flags().StringVar(&modelTable, "model", "", "table holding the fitted model outputs")
	coxphCmd.Flags().StringVar(&outputTable, "output", "", "output table to create")
	rootCmd.AddCommand(coxphCmd)
}

func runCoxPH() error {

	defer quietScope()()

	if modelTable == "" || outputTable == "" {
		return fmt.Errorf("coxph requires --model and --output")
	}

	st, err := relstore.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	// All precondition checks run before any numeric work.
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

	summary, err := st.ReadCoxSummary(modelTable + "_summary")
	if err != nil {
		return err
	}

	cols := []string{summary.TimeVar, summary.StatusVar}
	cols = append(cols, summary.StrataVars...)
	cols = append(cols, summary.IndepVars...)

	data, err := st.ReadDataset(summary.SourceTable, cols)
	if err != nil {
		return err
	}
	logger.Info("read observation table",
		zap.String("table", summary.SourceTable), zap.Int("rows", data.NumObs()))

	config := coxph.DefaultConfig()
	config.StatusVar = summary.StatusVar
	config.StrataVars = summary.StrataVars

	m, err := coxph.New(data, summary.TimeVar, summary.IndepVars, model, config)
	if err != nil {
		return err
	}

	rslt, err := m.Robust()
	if err != nil {
		return err
	}

	out := &relstore.CoxOutput{
		Coef:     rslt.Coef(),
		LogLike:  rslt.LogLike(),
		StdErr:   rslt.StdErr(),
		RobustSE: rslt.RobustSE(),
		RobustZ:  rslt.RobustZ(),
		RobustP:  rslt.RobustP(),
		Hessian:  model.Hessian,
	}
	if err := st.WriteCoxOutput(outputTable, out); err != nil {
		return err
	}

	logger.Info("wrote robust variance output", zap.String("table", outputTable))
	fmt.Println(rslt.Summary())

	return nil
}
