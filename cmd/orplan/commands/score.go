package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paiban/orplan/pkg/scheduler/scoring"
)

func newScoreCmd(global *globalOptions) *cobra.Command {
	var (
		planPath string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "计算现有分配的总分",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := loadPlan(cmd, planPath)
			if err != nil {
				return err
			}
			cfg, err := global.loadEngine()
			if err != nil {
				return err
			}

			scorer := scoring.NewScorer(cfg, plan.Pairings)
			rooms := scorer.Breakdown(plan.Assignments, plan.Rooms, plan.Staff)
			total := scorer.TotalScore(plan.Assignments, plan.Rooms, plan.Staff)

			if asJSON {
				return writeJSON(cmd, "", map[string]interface{}{"score": total, "rooms": rooms})
			}

			w := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "手术间\t主导专科\t人数\t得分")
			for _, b := range rooms {
				dominant := b.Dominant
				if dominant == "" {
					dominant = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\n", b.RoomID, dominant, b.Occupancy, b.Required, b.Score)
			}
			tw.Flush()
			heading(w, "总分: %d", total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "排班快照文件 (JSON)，- 表示标准输入")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}
