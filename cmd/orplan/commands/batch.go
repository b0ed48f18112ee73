package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/optimizer"
)

func newBatchCmd(global *globalOptions) *cobra.Command {
	var (
		workers int
		out     string
	)
	cmd := &cobra.Command{
		Use:   "batch <plan.json>...",
		Short: "并行优化多日排班",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadEngine()
			if err != nil {
				return err
			}
			plans := make([]*model.DayPlan, 0, len(args))
			for _, path := range args {
				plan, err := loadPlan(cmd, path)
				if err != nil {
					return err
				}
				plans = append(plans, plan)
			}

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			results := optimizer.NewBatchRunner(workers, cfg).Run(ctx, plans)
			if out != "" {
				if err := writeJSON(cmd, out, results); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "文件\t日期\t状态\t得分\t告警")
			for i, r := range results {
				date := r.Date
				if date == "" {
					date = "-"
				}
				if r.Err != nil {
					fmt.Fprintf(tw, "%s\t%s\t%s\t-\t-\n", args[i], date, "skipped")
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d -> %d\t%d\n", args[i], date, r.Result.Status, r.Result.InitialScore, r.Result.Score, len(r.Result.Alerts))
			}
			tw.Flush()

			summary := optimizer.Summary(results)
			fmt.Fprintf(w, "\n共 %d 天：人员充足 %d，存在告警 %d，未完成 %d\n",
				summary["total"], summary["fully_staffed"], summary["with_alerts"], summary["skipped"])
			for i, r := range results {
				if r.Err == nil && len(r.Result.Alerts) > 0 {
					heading(w, "%s", args[i])
					printAlerts(w, r.Result.Alerts)
				}
			}
			return ctx.Err()
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "并行优化的工作协程数")
	cmd.Flags().StringVarP(&out, "out", "o", "", "将全部结果写入文件 (JSON)")
	return cmd
}
