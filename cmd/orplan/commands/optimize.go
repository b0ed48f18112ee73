package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/optimizer"
	"github.com/paiban/orplan/pkg/scheduler/scoring"
)

type optimizeOptions struct {
	plan           string
	out            string
	asJSON         bool
	maxRounds      int
	failOnCritical bool
}

func newOptimizeCmd(global *globalOptions) *cobra.Command {
	opts := &optimizeOptions{}
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "优化单日排班",
		Long: `读取排班快照，执行补位/替换与跨间交换的局部搜索，输出优化后的分配与告警。

优化从不因无解失败：人员不足时仍输出当前最好方案，并给出 CRITICAL/WARNING 告警。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := loadPlan(cmd, opts.plan)
			if err != nil {
				return err
			}
			cfg, err := global.loadEngine()
			if err != nil {
				return err
			}
			if opts.maxRounds > 0 {
				cfg.MaxIterations = opts.maxRounds
			}
			if id := duplicateStaff(plan); id != "" {
				return apperrors.DuplicateStaff(id)
			}

			start := time.Now()
			result := optimizer.Optimize(plan, cfg)
			elapsed := time.Since(start)

			if opts.asJSON || opts.out != "" {
				if err := writeJSON(cmd, opts.out, result); err != nil {
					return err
				}
			}
			if !opts.asJSON {
				printResult(cmd.OutOrStdout(), plan, cfg, result, elapsed)
			}

			if opts.failOnCritical && hasCritical(result.Alerts) {
				return apperrors.New(apperrors.CodeValidationFail, "存在无人值守的手术间")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.plan, "plan", "p", "", "排班快照文件 (JSON)，- 表示标准输入")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "将优化结果写入文件 (JSON)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "以 JSON 输出优化结果")
	cmd.Flags().IntVar(&opts.maxRounds, "max-rounds", 0, "最大搜索轮数，覆盖配置文件")
	cmd.Flags().BoolVar(&opts.failOnCritical, "fail-on-critical", false, "存在 CRITICAL 告警时以非零状态退出")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func printResult(w io.Writer, plan *model.DayPlan, cfg *model.EngineConfig, result *optimizer.Result, elapsed time.Duration) {
	date := plan.Date
	if date == "" {
		date = "-"
	}
	heading(w, "排班日期 %s", date)
	fmt.Fprintf(w, "状态: %s  轮数: %d  调整: %d  耗时: %s\n", result.Status, result.Rounds, len(result.Moves), elapsed.Round(time.Microsecond))
	fmt.Fprintf(w, "得分: %d -> %d\n\n", result.InitialScore, result.Score)

	scorer := scoring.NewScorer(cfg, plan.Pairings)
	breakdown := scorer.Breakdown(result.Assignments, plan.Rooms, plan.Staff)
	staffOf := make(map[string][]string, len(result.Assignments))
	for _, a := range result.Assignments {
		staffOf[a.RoomID] = a.StaffIDs
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "手术间\t主导专科\t人数\t得分\t人员")
	for _, b := range breakdown {
		dominant := b.Dominant
		if dominant == "" {
			dominant = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\t%s\n", b.RoomID, dominant, b.Occupancy, b.Required, b.Score, formatStaff(staffOf[b.RoomID]))
	}
	tw.Flush()
	fmt.Fprintln(w)

	printAlerts(w, result.Alerts)
}

func hasCritical(alerts []string) bool {
	for _, a := range alerts {
		if optimizer.AlertLevel(a) == optimizer.AlertCritical {
			return true
		}
	}
	return false
}

func duplicateStaff(plan *model.DayPlan) string {
	seen := make(map[string]bool)
	for _, a := range plan.Assignments {
		for _, id := range a.StaffIDs {
			if seen[id] {
				return id
			}
			seen[id] = true
		}
	}
	return ""
}
