package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/matchkey/internal/engine"
	"github.com/sells-group/matchkey/internal/quality"
	"github.com/sells-group/matchkey/internal/similarity"
	"github.com/sells-group/matchkey/internal/standardize"
)

var (
	scoreCompany    string
	scoreAddress    string
	scorePhone      string
	scoreEmail      string
	scoreExtension  string
	scoreCandidates string
	scoreVsCompany  string
	scoreVsAddress  string
	scoreVsPhone    string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Quality-score a record and optionally rank it against a candidate file",
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := quality.Load(cmd.Context(), cfg.Quality.MetadataDB)
		if err != nil {
			return err
		}

		out := map[string]any{}
		if scoreEmail != "" {
			s := meta.ScoreEmail(scoreEmail)
			out["email_quality"] = map[string]any{"total": s.Total, "breakdown": s.Breakdown()}
		}
		if scorePhone != "" {
			s := meta.ScorePhone(scorePhone, scoreExtension)
			out["phone_quality"] = map[string]any{"total": s.Total, "breakdown": s.Breakdown()}
		}

		if scoreVsCompany != "" || scoreVsAddress != "" || scoreVsPhone != "" {
			out["blended_score"] = similarity.BlendedScore(
				scoreCompany, scoreAddress, scorePhone,
				scoreVsCompany, scoreVsAddress, scoreVsPhone,
			)
		}

		if scoreCandidates != "" {
			table, err := standardize.ReadFile(scoreCandidates)
			if err != nil {
				return err
			}
			record := map[string]string{
				"COMPANY_NAME":   scoreCompany,
				"ADDRESS_LINE_1": scoreAddress,
				"PHONE_NUMBER":   scorePhone,
			}
			best := engine.PickBestScored(record, table.Rows)
			if best != nil {
				out["best_match"] = map[string]any{
					"row":         best.Index,
					"score":       best.Score,
					"phone_exact": best.PhoneExact,
					"candidate":   table.Rows[best.Index],
				}
			} else {
				out["best_match"] = nil
			}
		}
		return printJSON(out)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreCompany, "company", "", "company name to rank")
	scoreCmd.Flags().StringVar(&scoreAddress, "address", "", "street address to rank")
	scoreCmd.Flags().StringVar(&scorePhone, "phone", "", "phone number to score and rank")
	scoreCmd.Flags().StringVar(&scoreExtension, "extension", "", "phone extension")
	scoreCmd.Flags().StringVar(&scoreEmail, "email", "", "email address to score")
	scoreCmd.Flags().StringVar(&scoreCandidates, "candidates", "", "candidate CSV or XLSX to rank against")
	scoreCmd.Flags().StringVar(&scoreVsCompany, "vs-company", "", "second record's company name for a pairwise blended score")
	scoreCmd.Flags().StringVar(&scoreVsAddress, "vs-address", "", "second record's street address")
	scoreCmd.Flags().StringVar(&scoreVsPhone, "vs-phone", "", "second record's phone number")
	rootCmd.AddCommand(scoreCmd)
}
