package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/zaqqye/defense_backend_v1/internal/database"
	"github.com/zaqqye/defense_backend_v1/internal/models"
	"github.com/zaqqye/defense_backend_v1/internal/outcomes"
)

var (
	outcomesSessionID  string
	outcomesRubricID   string
	outcomesReportType string
	outcomesSource     string
)

var outcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "Print the CLO outcome report of a session as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := database.OpenStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		report, err := outcomes.NewService(st, logger).Build(cmd.Context(), outcomesSessionID,
			models.EvaluationType(outcomesReportType), outcomes.Source(outcomesSource), outcomesRubricID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			outcomes.Report
			HasOutcomeData bool `json:"has_outcome_data"`
		}{report, report.HasOutcomeData()})
	},
}

func init() {
	f := outcomesCmd.Flags()
	f.StringVar(&outcomesSessionID, "session", "", "session id")
	f.StringVar(&outcomesRubricID, "rubric", "", "rubric id")
	f.StringVar(&outcomesReportType, "type", string(models.EvaluationTypeGraduation), "graduation or internship")
	f.StringVar(&outcomesSource, "source", string(models.EvaluatorCouncil), "council, supervisor or company")
	_ = outcomesCmd.MarkFlagRequired("session")
	_ = outcomesCmd.MarkFlagRequired("rubric")
}
