package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/scheduler/rules"
	"github.com/paiban/orplan/pkg/validator"
)

func newValidateCmd(global *globalOptions) *cobra.Command {
	var (
		planPath string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "检查现有分配的资质与人员问题",
		Long:  "检查未知手术间/人员、重复分配、资质不符、带台位置及人员不足。存在 error 级问题时以非零状态退出。",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := loadPlan(cmd, planPath)
			if err != nil {
				return err
			}
			cfg, err := global.loadEngine()
			if err != nil {
				return err
			}

			issues := validator.NewDetector(nil).DetectAll(plan, rules.NewEngine(cfg.Rules))
			if asJSON {
				if err := writeJSON(cmd, "", map[string]interface{}{
					"valid":   !validator.HasErrors(issues),
					"issues":  issues,
					"summary": validator.Summarize(issues),
				}); err != nil {
					return err
				}
			} else {
				w := cmd.OutOrStdout()
				if len(issues) == 0 {
					success(w, "未发现问题")
				}
				for _, issue := range issues {
					if issue.Severity == validator.SeverityError {
						red.Fprintf(w, "[%s] %s\n", issue.Type, issue.Message)
					} else {
						yellow.Fprintf(w, "[%s] %s\n", issue.Type, issue.Message)
					}
				}
				if len(issues) > 0 {
					summary := validator.Summarize(issues)
					fmt.Fprintf(w, "\n共 %d 个问题\n", len(issues))
					for _, t := range []validator.IssueType{validator.IssueUnqualified, validator.IssueUnderstaffed, validator.IssueUnstaffed} {
						if n := summary[string(t)]; n > 0 {
							fmt.Fprintf(w, "  %s: %d\n", t, n)
						}
					}
				}
			}

			if validator.HasErrors(issues) {
				return apperrors.New(apperrors.CodeValidationFail, "排班存在错误").WithField("issues", len(issues))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "排班快照文件 (JSON)，- 表示标准输入")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}
