// Package swap 提供单个岗位的人员替换评估与推荐
package swap

import (
	"fmt"

	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/rules"
	"github.com/paiban/orplan/pkg/scheduler/scoring"
)

// SwapEvaluator 替换评估器
type SwapEvaluator struct {
	config *model.EngineConfig
	engine *rules.Engine
}

// NewSwapEvaluator 创建替换评估器
func NewSwapEvaluator(config *model.EngineConfig) *SwapEvaluator {
	if config == nil {
		config = model.DefaultEngineConfig()
	}
	return &SwapEvaluator{
		config: config,
		engine: rules.NewEngine(config.Rules),
	}
}

// SwapRequest 替换请求：将 StaffIn 放到 RoomID 的第 Slot 个位置
// Slot 等于当前人数时表示补位
type SwapRequest struct {
	RoomID  string `json:"room_id" validate:"required"`
	Slot    int    `json:"slot" validate:"gte=0"`
	StaffIn string `json:"staff_in" validate:"required"`
}

// SwapEvaluation 替换评估结果
type SwapEvaluation struct {
	Feasible    bool               `json:"feasible"`
	Kind        string             `json:"kind"` // fill/replace/exchange
	StaffOut    string             `json:"staff_out,omitempty"`
	FromRoom    string             `json:"from_room,omitempty"` // 交换时 StaffIn 原所在手术间
	ScoreBefore int                `json:"score_before"`
	ScoreAfter  int                `json:"score_after"`
	Delta       int                `json:"delta"`
	Verdict     rules.Verdict      `json:"verdict"`
	Assignments []model.Assignment `json:"assignments"`
	Issues      []string           `json:"issues,omitempty"`
}

// EvaluateSwap 评估替换对全日总分的影响
// StaffIn 已在其他手术间时按交换处理，被替换者回到 StaffIn 原来的位置
func (e *SwapEvaluator) EvaluateSwap(plan *model.DayPlan, req *SwapRequest) (*SwapEvaluation, error) {
	rooms := plan.RoomByID()
	staff := plan.StaffByID()

	room, ok := rooms[req.RoomID]
	if !ok {
		return nil, apperrors.UnknownRoom(req.RoomID)
	}
	in, ok := staff[req.StaffIn]
	if !ok {
		return nil, apperrors.UnknownStaff(req.StaffIn)
	}

	assignments := make([]model.Assignment, len(plan.Assignments))
	target := -1
	for i, a := range plan.Assignments {
		assignments[i] = a.Clone()
		if target < 0 && a.RoomID == req.RoomID {
			target = i
		}
	}
	if target < 0 {
		assignments = append(assignments, model.Assignment{RoomID: req.RoomID, StaffIDs: []string{}})
		target = len(assignments) - 1
	}

	row := assignments[target].StaffIDs
	if req.Slot < 0 || req.Slot > len(row) {
		return nil, apperrors.InvalidInput("slot", fmt.Sprintf("位置 %d 超出范围 [0, %d]", req.Slot, len(row)))
	}
	if req.Slot < len(row) && row[req.Slot] == req.StaffIn {
		return nil, apperrors.InvalidInput("staff_in", "人员已在该位置")
	}

	scorer := scoring.NewScorerWithEngine(e.config, e.engine, plan.Pairings)
	result := &SwapEvaluation{
		Kind:        "fill",
		ScoreBefore: scorer.TotalScore(plan.Assignments, plan.Rooms, plan.Staff),
		Verdict:     e.engine.Check(in, room),
	}

	fromRow, fromSlot := locate(assignments, req.StaffIn)
	if req.Slot < len(row) {
		result.Kind = "replace"
		result.StaffOut = row[req.Slot]
	}

	switch {
	case fromRow == target:
		// 同一手术间内调整位置
		if req.Slot == len(row) {
			return nil, apperrors.InvalidInput("slot", "同一手术间内不能补位")
		}
		row[fromSlot], row[req.Slot] = row[req.Slot], row[fromSlot]
		result.Kind = "exchange"
		result.FromRoom = req.RoomID
	case fromRow >= 0:
		result.FromRoom = assignments[fromRow].RoomID
		if result.StaffOut != "" {
			result.Kind = "exchange"
			assignments[fromRow].StaffIDs[fromSlot] = result.StaffOut
			out, fromRoom := staff[result.StaffOut], rooms[result.FromRoom]
			if out != nil && fromRoom != nil {
				if v := e.engine.Check(out, fromRoom); !v.Qualified {
					result.Issues = append(result.Issues, fmt.Sprintf("%s 调入 %s 不合格：%s", result.StaffOut, result.FromRoom, v.Message))
				}
			}
		} else {
			from := assignments[fromRow].StaffIDs
			assignments[fromRow].StaffIDs = append(from[:fromSlot:fromSlot], from[fromSlot+1:]...)
		}
		assignments[target].StaffIDs = place(assignments[target].StaffIDs, req.Slot, req.StaffIn)
	default:
		assignments[target].StaffIDs = place(row, req.Slot, req.StaffIn)
	}

	if !result.Verdict.Qualified {
		result.Issues = append(result.Issues, result.Verdict.Message)
	}
	result.Feasible = len(result.Issues) == 0
	result.Assignments = assignments
	result.ScoreAfter = scorer.TotalScore(assignments, plan.Rooms, plan.Staff)
	result.Delta = result.ScoreAfter - result.ScoreBefore
	return result, nil
}

func place(row []string, slot int, staffID string) []string {
	if slot < len(row) {
		row[slot] = staffID
		return row
	}
	return append(row, staffID)
}

// locate 返回人员所在的分配下标与位置，未分配返回 -1
func locate(assignments []model.Assignment, staffID string) (int, int) {
	for i, a := range assignments {
		for j, id := range a.StaffIDs {
			if id == staffID {
				return i, j
			}
		}
	}
	return -1, -1
}
