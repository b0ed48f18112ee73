package scoring

import (
	"github.com/paiban/orplan/pkg/model"
)

// DominantDepartment 计算手术间当日主导专科
// 专用设备间按覆盖表强制指定；否则取手术中占多数的专科，票数相同取先出现者；
// 无手术时取第一个主专科
func DominantDepartment(room *model.Room, overrides []model.SpecialtyOverride) string {
	for _, o := range overrides {
		if room.HasTag(o.Tag) {
			return o.Department
		}
	}

	if len(room.Operations) > 0 {
		counts := make(map[string]int)
		var order []string
		for _, op := range room.Operations {
			if op.Department == "" {
				continue
			}
			if counts[op.Department] == 0 {
				order = append(order, op.Department)
			}
			counts[op.Department]++
		}

		best, bestCount := "", 0
		for _, d := range order {
			if counts[d] > bestCount {
				best, bestCount = d, counts[d]
			}
		}
		if best != "" {
			return best
		}
	}

	if len(room.PrimaryDepartments) > 0 {
		return room.PrimaryDepartments[0]
	}
	return ""
}

// Dominant 使用评分器配置的覆盖表计算主导专科
func (s *Scorer) Dominant(room *model.Room) string {
	return DominantDepartment(room, s.overrides)
}

// ScoreRoom 计算单个手术间的得分贡献
// occupants 按位置排列，每个位置的团队为除自身外的其他人员
func (s *Scorer) ScoreRoom(room *model.Room, dominant string, occupants []*model.Staff) int {
	total := 0
	team := make([]*model.Staff, 0, len(occupants))
	for i, staff := range occupants {
		if staff == nil {
			continue
		}
		team = team[:0]
		for j, other := range occupants {
			if j != i && other != nil {
				team = append(team, other)
			}
		}
		total += s.Score(staff, room, i, dominant, team)
	}

	if len(occupants) >= room.RequiredStaffCount {
		total += s.weights.FullyStaffedBonus
	}
	return total
}

// RoomScore 计算分配对应手术间的得分
// 未知人员不计分，但仍占据其位置
func (s *Scorer) RoomScore(a model.Assignment, room *model.Room, staffByID map[string]*model.Staff) int {
	occupants := make([]*model.Staff, len(a.StaffIDs))
	for i, id := range a.StaffIDs {
		occupants[i] = staffByID[id]
	}
	return s.ScoreRoom(room, s.Dominant(room), occupants)
}

// RoomBreakdown 单个手术间得分明细
type RoomBreakdown struct {
	RoomID    string `json:"room_id"`
	Dominant  string `json:"dominant_department"`
	Occupancy int    `json:"occupancy"`
	Required  int    `json:"required"`
	Score     int    `json:"score"`
}

// TotalScore 计算全日排班总分（优化目标）
func (s *Scorer) TotalScore(assignments []model.Assignment, rooms []*model.Room, staff []*model.Staff) int {
	total := 0
	for _, b := range s.Breakdown(assignments, rooms, staff) {
		total += b.Score
	}
	return total
}

// Breakdown 按分配顺序返回各手术间得分明细，未知手术间跳过
func (s *Scorer) Breakdown(assignments []model.Assignment, rooms []*model.Room, staff []*model.Staff) []RoomBreakdown {
	roomByID := make(map[string]*model.Room, len(rooms))
	for _, r := range rooms {
		roomByID[r.ID] = r
	}
	staffByID := make(map[string]*model.Staff, len(staff))
	for _, st := range staff {
		staffByID[st.ID] = st
	}

	result := make([]RoomBreakdown, 0, len(assignments))
	for _, a := range assignments {
		room, ok := roomByID[a.RoomID]
		if !ok {
			continue
		}
		result = append(result, RoomBreakdown{
			RoomID:    room.ID,
			Dominant:  s.Dominant(room),
			Occupancy: len(a.StaffIDs),
			Required:  room.RequiredStaffCount,
			Score:     s.RoomScore(a, room, staffByID),
		})
	}
	return result
}

// TotalScore 全日排班总分的便捷入口
func TotalScore(assignments []model.Assignment, rooms []*model.Room, staff []*model.Staff, cfg *model.EngineConfig, pairings []model.StaffPairing) int {
	return NewScorer(cfg, pairings).TotalScore(assignments, rooms, staff)
}
