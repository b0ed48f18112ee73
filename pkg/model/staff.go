package model

// Staff 手术室人员
// 由花名册导入，优化过程中只读
type Staff struct {
	ID   string `json:"id" db:"id" validate:"required"`
	Name string `json:"name" db:"name"`

	// 专科代码 -> 资质等级
	Skills map[string]Level `json:"skills" db:"-"`

	// 带台（Saalleitung）资质
	IsLead          bool     `json:"is_lead" db:"is_lead"`
	LeadDepartments []string `json:"lead_departments,omitempty" db:"-"`

	// 专科偏好，越靠前越优先
	DepartmentPriority []string `json:"department_priority,omitempty" db:"-"`
	// 偏好手术间（按名称）
	PreferredRooms []string `json:"preferred_rooms,omitempty" db:"-"`

	IsLowPriority     bool   `json:"is_low_priority,omitempty" db:"is_low_priority"` // 机动/实习人员
	RequiredPartnerID string `json:"required_partner_id,omitempty" db:"required_partner_id"`
}

// SkillLevel 返回指定专科的资质等级
func (s *Staff) SkillLevel(dept string) Level {
	if s == nil || s.Skills == nil {
		return LevelNone
	}
	return ParseLevel(string(s.Skills[dept]))
}

// HasSkillIn 判断在指定专科是否至少具备初级资质
func (s *Staff) HasSkillIn(dept string) bool {
	return s.SkillLevel(dept).Rank() >= 1
}

// CanLead 判断是否声明可带台该专科
func (s *Staff) CanLead(dept string) bool {
	return containsString(s.LeadDepartments, dept)
}

// PriorityRank 返回专科在偏好列表中的位置，不在列表中返回 -1
func (s *Staff) PriorityRank(dept string) int {
	for i, d := range s.DepartmentPriority {
		if d == dept {
			return i
		}
	}
	return -1
}

// PrefersRoom 判断是否偏好该手术间
func (s *Staff) PrefersRoom(roomName string) bool {
	return containsString(s.PreferredRooms, roomName)
}
