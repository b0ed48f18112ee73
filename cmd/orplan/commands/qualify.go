package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/scheduler/rules"
)

func newQualifyCmd(global *globalOptions) *cobra.Command {
	var planPath, staffID, roomID string
	cmd := &cobra.Command{
		Use:   "qualify",
		Short: "判断人员能否进入指定手术间",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := loadPlan(cmd, planPath)
			if err != nil {
				return err
			}
			cfg, err := global.loadEngine()
			if err != nil {
				return err
			}
			room, ok := plan.RoomByID()[roomID]
			if !ok {
				return apperrors.UnknownRoom(roomID)
			}
			staff, ok := plan.StaffByID()[staffID]
			if !ok {
				return apperrors.UnknownStaff(staffID)
			}

			v := rules.NewEngine(cfg.Rules).Check(staff, room)
			w := cmd.OutOrStdout()
			if v.Qualified {
				success(w, "%s 可进入 %s", staffID, roomID)
			} else {
				red.Fprintf(w, "✗ %s 不可进入 %s\n", staffID, roomID)
			}
			fmt.Fprintf(w, "活动专科: %v\n", v.ActiveDepartments)
			if len(v.MatchedRules) > 0 {
				fmt.Fprintf(w, "命中规则: %v\n", v.MatchedRules)
			}
			fmt.Fprintf(w, "原因: %s (%s)\n", v.Reason, v.Message)
			return nil
		},
	}
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "排班快照文件 (JSON)")
	cmd.Flags().StringVar(&staffID, "staff", "", "人员ID")
	cmd.Flags().StringVar(&roomID, "room", "", "手术间ID")
	_ = cmd.MarkFlagRequired("plan")
	_ = cmd.MarkFlagRequired("staff")
	_ = cmd.MarkFlagRequired("room")
	return cmd
}
