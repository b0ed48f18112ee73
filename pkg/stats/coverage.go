// Package stats 提供排班统计分析功能
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/scoring"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	// 手术间维度
	TotalRooms   int `json:"total_rooms"`   // 需要人员的手术间数
	FullyStaffed int `json:"fully_staffed"` // 满员
	Understaffed int `json:"understaffed"`  // 人员不足
	Unstaffed    int `json:"unstaffed"`     // 无人值守

	// 岗位维度
	RequiredSlots int     `json:"required_slots"` // 需求人次
	FilledSlots   int     `json:"filled_slots"`   // 已满足人次（超员不计）
	FillRate      float64 `json:"fill_rate"`      // 满足率 (%)

	// 有人值守的手术间中带台位为带台人员的比例 (%)
	LeadCoverage float64 `json:"lead_coverage"`

	// 按主导专科统计
	ByDepartment map[string]DepartmentCoverage `json:"by_department"`

	// 问题识别
	UncoveredRooms []UncoveredRoom `json:"uncovered_rooms"`
}

// DepartmentCoverage 专科覆盖情况
type DepartmentCoverage struct {
	Department    string  `json:"department"`
	Rooms         int     `json:"rooms"`
	RequiredSlots int     `json:"required_slots"`
	FilledSlots   int     `json:"filled_slots"`
	FillRate      float64 `json:"fill_rate"`
}

// UncoveredRoom 人员不足的手术间
type UncoveredRoom struct {
	RoomID     string `json:"room_id"`
	RoomName   string `json:"room_name"`
	Department string `json:"department"`
	Required   int    `json:"required"`
	Assigned   int    `json:"assigned"`
	Shortage   int    `json:"shortage"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct {
	overrides []model.SpecialtyOverride
}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer(overrides []model.SpecialtyOverride) *CoverageAnalyzer {
	return &CoverageAnalyzer{overrides: overrides}
}

// AnalyzeCoverage 使用默认配置分析覆盖率
func AnalyzeCoverage(rooms []*model.Room, assignments []model.Assignment, staff []*model.Staff) *CoverageMetrics {
	return NewCoverageAnalyzer(nil).Analyze(rooms, assignments, staff)
}

// Analyze 分析覆盖率
// 每个手术间只取第一条分配；不需要人员的手术间不计入
func (c *CoverageAnalyzer) Analyze(rooms []*model.Room, assignments []model.Assignment, staff []*model.Staff) *CoverageMetrics {
	metrics := &CoverageMetrics{
		ByDepartment:   make(map[string]DepartmentCoverage),
		UncoveredRooms: make([]UncoveredRoom, 0),
	}

	byRoom := make(map[string]model.Assignment, len(assignments))
	for _, a := range assignments {
		if _, ok := byRoom[a.RoomID]; !ok {
			byRoom[a.RoomID] = a
		}
	}
	staffByID := make(map[string]*model.Staff, len(staff))
	for _, s := range staff {
		staffByID[s.ID] = s
	}

	staffedRooms, ledRooms := 0, 0
	for _, room := range rooms {
		required := room.RequiredStaffCount
		if required <= 0 {
			continue
		}
		a := byRoom[room.ID]
		assigned := len(a.StaffIDs)
		filled := min(assigned, required)
		dept := scoring.DominantDepartment(room, c.overrides)

		metrics.TotalRooms++
		metrics.RequiredSlots += required
		metrics.FilledSlots += filled

		switch {
		case assigned == 0:
			metrics.Unstaffed++
		case assigned < required:
			metrics.Understaffed++
		default:
			metrics.FullyStaffed++
		}

		if assigned > 0 {
			staffedRooms++
			if lead := staffByID[a.LeadID()]; lead != nil && lead.IsLead {
				ledRooms++
			}
		}

		dc := metrics.ByDepartment[dept]
		dc.Department = dept
		dc.Rooms++
		dc.RequiredSlots += required
		dc.FilledSlots += filled
		dc.FillRate = percent(dc.FilledSlots, dc.RequiredSlots)
		metrics.ByDepartment[dept] = dc

		if assigned < required {
			metrics.UncoveredRooms = append(metrics.UncoveredRooms, UncoveredRoom{
				RoomID:     room.ID,
				RoomName:   room.Name,
				Department: dept,
				Required:   required,
				Assigned:   assigned,
				Shortage:   required - assigned,
			})
		}
	}

	metrics.FillRate = 100
	if metrics.RequiredSlots > 0 {
		metrics.FillRate = percent(metrics.FilledSlots, metrics.RequiredSlots)
	}
	metrics.LeadCoverage = percent(ledRooms, staffedRooms)

	return metrics
}

// GenerateCoverageReport 生成覆盖率报告
func (c *CoverageAnalyzer) GenerateCoverageReport(metrics *CoverageMetrics) string {
	var b strings.Builder
	b.WriteString("=== 覆盖率分析报告 ===\n\n")

	b.WriteString("【整体覆盖情况】\n")
	fmt.Fprintf(&b, "  手术间: %d (满员 %d / 不足 %d / 无人 %d)\n",
		metrics.TotalRooms, metrics.FullyStaffed, metrics.Understaffed, metrics.Unstaffed)
	fmt.Fprintf(&b, "  人次: %d/%d\n", metrics.FilledSlots, metrics.RequiredSlots)
	fmt.Fprintf(&b, "  满足率: %.1f%%\n", metrics.FillRate)
	fmt.Fprintf(&b, "  带台覆盖: %.1f%%\n\n", metrics.LeadCoverage)

	if len(metrics.ByDepartment) > 0 {
		b.WriteString("【按专科】\n")
		depts := make([]string, 0, len(metrics.ByDepartment))
		for d := range metrics.ByDepartment {
			depts = append(depts, d)
		}
		sort.Strings(depts)
		for _, d := range depts {
			dc := metrics.ByDepartment[d]
			fmt.Fprintf(&b, "  - %s: %d 间, %d/%d (%.1f%%)\n", d, dc.Rooms, dc.FilledSlots, dc.RequiredSlots, dc.FillRate)
		}
		b.WriteString("\n")
	}

	if len(metrics.UncoveredRooms) > 0 {
		b.WriteString("【人员不足手术间】\n")
		for _, r := range metrics.UncoveredRooms {
			fmt.Fprintf(&b, "  - %s (需要%d人，仅有%d人，缺%d人)\n", labelOf(r), r.Required, r.Assigned, r.Shortage)
		}
	}

	return b.String()
}

func labelOf(r UncoveredRoom) string {
	if r.RoomName != "" {
		return r.RoomName
	}
	return r.RoomID
}

// percent 百分比，保留一位小数
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
