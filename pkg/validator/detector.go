// Package validator 提供排班验证功能
package validator

import (
	"fmt"

	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/rules"
)

// IssueType 问题类型
type IssueType string

const (
	IssueUnknownRoom  IssueType = "unknown_room"  // 手术间不存在
	IssueUnknownStaff IssueType = "unknown_staff" // 人员不在花名册中
	IssueDuplicate    IssueType = "duplicate"     // 同一人员多处分配
	IssueUnqualified  IssueType = "unqualified"   // 资质不符
	IssueDoubleLead   IssueType = "double_lead"   // 同一手术间多名带台
	IssueNoLead       IssueType = "no_lead"       // 首位非带台人员
	IssueUnderstaffed IssueType = "understaffed"  // 人员不足
	IssueUnstaffed    IssueType = "unstaffed"     // 无人值守
)

// 严重程度
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue 排班问题
type Issue struct {
	Type     IssueType `json:"type"`
	Severity string    `json:"severity"` // error/warning
	RoomID   string    `json:"room_id,omitempty"`
	StaffID  string    `json:"staff_id,omitempty"`
	Message  string    `json:"message"`
}

// Detector 排班问题检测器
type Detector struct {
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	CheckQualification bool // 是否检查资质
	CheckLeads         bool // 是否检查带台配置
	CheckStaffing      bool // 是否检查人员数量
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		CheckQualification: true,
		CheckLeads:         true,
		CheckStaffing:      true,
	}
}

// NewDetector 创建检测器
func NewDetector(config *DetectorConfig) *Detector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &Detector{config: config}
}

// DetectAll 检测排班中的所有问题
// 先按分配顺序检查引用与资质，再按手术间顺序检查人员数量
func (d *Detector) DetectAll(plan *model.DayPlan, engine *rules.Engine) []Issue {
	issues := make([]Issue, 0)
	if plan == nil {
		return issues
	}
	if engine == nil {
		engine = rules.NewEngine(nil)
	}

	rooms := plan.RoomByID()
	staff := plan.StaffByID()
	seenStaff := make(map[string]string) // 人员 -> 首次出现的手术间
	occupancy := make(map[string]int)
	seenRoom := make(map[string]bool)

	for _, a := range plan.Assignments {
		room, ok := rooms[a.RoomID]
		if !ok {
			issues = append(issues, Issue{
				Type:     IssueUnknownRoom,
				Severity: SeverityWarning,
				RoomID:   a.RoomID,
				Message:  fmt.Sprintf("手术间 %s 不存在", a.RoomID),
			})
		}
		if !seenRoom[a.RoomID] {
			seenRoom[a.RoomID] = true
			occupancy[a.RoomID] = len(a.StaffIDs)
		}

		leads := 0
		for slot, id := range a.StaffIDs {
			if first, dup := seenStaff[id]; dup {
				issues = append(issues, Issue{
					Type:     IssueDuplicate,
					Severity: SeverityError,
					RoomID:   a.RoomID,
					StaffID:  id,
					Message:  fmt.Sprintf("人员 %s 已分配到手术间 %s", id, first),
				})
			} else {
				seenStaff[id] = a.RoomID
			}

			s, known := staff[id]
			if !known {
				issues = append(issues, Issue{
					Type:     IssueUnknownStaff,
					Severity: SeverityWarning,
					RoomID:   a.RoomID,
					StaffID:  id,
					Message:  fmt.Sprintf("人员 %s 不在花名册中", id),
				})
				continue
			}
			if room == nil {
				continue
			}

			if d.config.CheckQualification {
				if v := engine.Check(s, room); !v.Qualified {
					issues = append(issues, Issue{
						Type:     IssueUnqualified,
						Severity: SeverityError,
						RoomID:   a.RoomID,
						StaffID:  id,
						Message:  fmt.Sprintf("%s 不能进入手术间 %s：%s", displayName(s), roomLabel(room), v.Message),
					})
				}
			}

			if s.IsLead {
				leads++
			}
			if d.config.CheckLeads && slot == 0 && !s.IsLead && len(room.Operations) > 0 {
				issues = append(issues, Issue{
					Type:     IssueNoLead,
					Severity: SeverityWarning,
					RoomID:   a.RoomID,
					StaffID:  id,
					Message:  fmt.Sprintf("手术间 %s 首位 %s 不具备带台资质", roomLabel(room), displayName(s)),
				})
			}
		}

		if d.config.CheckLeads && room != nil && leads > 1 {
			issues = append(issues, Issue{
				Type:     IssueDoubleLead,
				Severity: SeverityWarning,
				RoomID:   a.RoomID,
				Message:  fmt.Sprintf("手术间 %s 有 %d 名带台人员", roomLabel(room), leads),
			})
		}
	}

	if d.config.CheckStaffing {
		issues = append(issues, d.detectStaffing(plan.Rooms, occupancy)...)
	}
	return issues
}

// detectStaffing 按手术间顺序检查人员数量
func (d *Detector) detectStaffing(rooms []*model.Room, occupancy map[string]int) []Issue {
	var issues []Issue
	for _, room := range rooms {
		n, required := occupancy[room.ID], room.RequiredStaffCount
		switch {
		case required > 0 && n == 0:
			issues = append(issues, Issue{
				Type:     IssueUnstaffed,
				Severity: SeverityError,
				RoomID:   room.ID,
				Message:  fmt.Sprintf("手术间 %s 无人值守 (0/%d)", roomLabel(room), required),
			})
		case n > 0 && n < required:
			issues = append(issues, Issue{
				Type:     IssueUnderstaffed,
				Severity: SeverityWarning,
				RoomID:   room.ID,
				Message:  fmt.Sprintf("手术间 %s 人员不足 (%d/%d)", roomLabel(room), n, required),
			})
		}
	}
	return issues
}

// Summarize 按严重程度与类型统计问题数量
func Summarize(issues []Issue) map[string]int {
	summary := map[string]int{
		SeverityError:   0,
		SeverityWarning: 0,
	}
	for _, issue := range issues {
		summary[issue.Severity]++
		summary[string(issue.Type)]++
	}
	return summary
}

// HasErrors 是否存在错误级别的问题
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

func displayName(s *model.Staff) string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

func roomLabel(room *model.Room) string {
	if room.Name != "" {
		return room.Name
	}
	return room.ID
}
