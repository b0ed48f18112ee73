package stats

import (
	"math"
	"sort"

	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/scoring"
)

// FairnessMetrics 人员侧满意度与分配均衡性指标
type FairnessMetrics struct {
	PlacedStaff int `json:"placed_staff"` // 已上台人数
	BenchStaff  int `json:"bench_staff"`  // 待命人数

	// 偏好满足
	TopPriorityHits   int     `json:"top_priority_hits"`   // 进入首选专科的人数
	TopPriorityRate   float64 `json:"top_priority_rate"`   // 首选专科满足率 (%)，分母为有偏好的已上台人员
	PreferredRoomHits int     `json:"preferred_room_hits"` // 进入偏好手术间的人数

	// 带台人员使用
	LeadsInLeadSlot    int `json:"leads_in_lead_slot"`    // 在带台位的带台人员
	LeadsInSupportSlot int `json:"leads_in_support_slot"` // 在辅助位的带台人员
	LowPriorityPlaced  int `json:"low_priority_placed"`   // 已上台的机动人员

	// 各手术间满员比例的基尼系数 (0=完全均衡)
	FillGini float64 `json:"fill_gini"`

	StaffStats []StaffStat `json:"staff_stats"`
}

// StaffStat 单个人员的分配情况
type StaffStat struct {
	StaffID      string `json:"staff_id"`
	StaffName    string `json:"staff_name"`
	RoomID       string `json:"room_id,omitempty"`
	Slot         int    `json:"slot"`          // 未上台为 -1
	Department   string `json:"department"`    // 所在手术间的主导专科
	PriorityRank int    `json:"priority_rank"` // 主导专科在偏好中的位置，-1 表示不在偏好中
}

// FairnessAnalyzer 分配均衡性分析器
type FairnessAnalyzer struct {
	overrides []model.SpecialtyOverride
}

// NewFairnessAnalyzer 创建分析器
func NewFairnessAnalyzer(overrides []model.SpecialtyOverride) *FairnessAnalyzer {
	return &FairnessAnalyzer{overrides: overrides}
}

// Analyze 分析人员偏好满足情况，结果按花名册顺序输出
func (f *FairnessAnalyzer) Analyze(rooms []*model.Room, assignments []model.Assignment, staff []*model.Staff) *FairnessMetrics {
	metrics := &FairnessMetrics{StaffStats: make([]StaffStat, 0, len(staff))}

	roomByID := make(map[string]*model.Room, len(rooms))
	for _, r := range rooms {
		roomByID[r.ID] = r
	}

	type placement struct {
		room *model.Room
		slot int
	}
	placed := make(map[string]placement)
	seen := make(map[string]bool)
	ratios := make([]float64, 0, len(rooms))
	for _, a := range assignments {
		room := roomByID[a.RoomID]
		if room == nil || seen[a.RoomID] {
			continue
		}
		seen[a.RoomID] = true
		for slot, id := range a.StaffIDs {
			if _, ok := placed[id]; !ok {
				placed[id] = placement{room: room, slot: slot}
			}
		}
	}
	for _, r := range rooms {
		if r.RequiredStaffCount <= 0 {
			continue
		}
		n := 0
		for _, a := range assignments {
			if a.RoomID == r.ID {
				n = len(a.StaffIDs)
				break
			}
		}
		ratios = append(ratios, math.Min(1, float64(n)/float64(r.RequiredStaffCount)))
	}

	withPreference := 0
	for _, s := range staff {
		stat := StaffStat{StaffID: s.ID, StaffName: s.Name, Slot: -1, PriorityRank: -1}
		p, ok := placed[s.ID]
		if !ok {
			metrics.BenchStaff++
			metrics.StaffStats = append(metrics.StaffStats, stat)
			continue
		}

		metrics.PlacedStaff++
		stat.RoomID = p.room.ID
		stat.Slot = p.slot
		stat.Department = scoring.DominantDepartment(p.room, f.overrides)
		stat.PriorityRank = s.PriorityRank(stat.Department)

		if len(s.DepartmentPriority) > 0 {
			withPreference++
			if stat.PriorityRank == 0 {
				metrics.TopPriorityHits++
			}
		}
		if s.PrefersRoom(p.room.Name) {
			metrics.PreferredRoomHits++
		}
		if s.IsLead {
			if p.slot == 0 {
				metrics.LeadsInLeadSlot++
			} else {
				metrics.LeadsInSupportSlot++
			}
		}
		if s.IsLowPriority {
			metrics.LowPriorityPlaced++
		}
		metrics.StaffStats = append(metrics.StaffStats, stat)
	}

	metrics.TopPriorityRate = percent(metrics.TopPriorityHits, withPreference)
	metrics.FillGini = math.Round(calculateGini(ratios)*1000) / 1000
	return metrics
}

// calculateGini 计算基尼系数
func calculateGini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}

	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}
