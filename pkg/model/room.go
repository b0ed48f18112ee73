package model

// DefaultRequiredStaffCount 手术间常规配置人数
const DefaultRequiredStaffCount = 2

// Operation 当日排程的手术
type Operation struct {
	ID              string  `json:"id" db:"id"`
	Department      string  `json:"department" db:"department" validate:"required"`
	DurationMinutes int     `json:"duration_minutes" db:"duration_minutes"`
	Priority        string  `json:"priority,omitempty" db:"priority"`
	EstimatedValue  float64 `json:"estimated_value,omitempty" db:"estimated_value"`
}

// Room 手术间
type Room struct {
	ID                 string      `json:"id" db:"id" validate:"required"`
	Name               string      `json:"name" db:"name"`
	PrimaryDepartments []string    `json:"primary_departments" db:"-"`
	Operations         []Operation `json:"operations,omitempty" db:"-"`
	RequiredStaffCount int         `json:"required_staff_count" db:"required_staff_count" validate:"gte=0"`
	Tags               []string    `json:"tags,omitempty" db:"-"`
}

// HasTag 判断手术间是否带有标记
func (r *Room) HasTag(tag string) bool {
	return containsString(r.Tags, tag)
}

// IsPrimary 判断专科是否为该手术间的主专科
func (r *Room) IsPrimary(dept string) bool {
	return containsString(r.PrimaryDepartments, dept)
}

// OperationDepartments 按手术顺序返回去重后的专科列表
func (r *Room) OperationDepartments() []string {
	var depts []string
	for _, op := range r.Operations {
		if op.Department == "" || containsString(depts, op.Department) {
			continue
		}
		depts = append(depts, op.Department)
	}
	return depts
}

// ActiveDepartments 手术间当日的活动专科集合：主专科 ∪ 手术专科
// 主专科在前，手术专科按出现顺序追加
func (r *Room) ActiveDepartments() []string {
	depts := make([]string, 0, len(r.PrimaryDepartments)+len(r.Operations))
	for _, d := range r.PrimaryDepartments {
		if d != "" && !containsString(depts, d) {
			depts = append(depts, d)
		}
	}
	for _, d := range r.OperationDepartments() {
		if !containsString(depts, d) {
			depts = append(depts, d)
		}
	}
	return depts
}

// Normalize 导入时补全默认值：有手术但未配置人数的手术间按常规人数处理
func (r *Room) Normalize() {
	if r.RequiredStaffCount == 0 && len(r.Operations) > 0 {
		r.RequiredStaffCount = DefaultRequiredStaffCount
	}
}

// Assignment 手术间人员分配，StaffIDs[0] 为带台位
type Assignment struct {
	RoomID   string   `json:"room_id" db:"room_id" validate:"required"`
	StaffIDs []string `json:"staff_ids" db:"-"`
}

// Clone 深拷贝
func (a Assignment) Clone() Assignment {
	ids := make([]string, len(a.StaffIDs))
	copy(ids, a.StaffIDs)
	return Assignment{RoomID: a.RoomID, StaffIDs: ids}
}

// LeadID 返回带台位人员，空缺时返回空串
func (a Assignment) LeadID() string {
	if len(a.StaffIDs) == 0 {
		return ""
	}
	return a.StaffIDs[0]
}

// PairingType 搭档类型
type PairingType string

const (
	PairingMentor PairingType = "mentor" // 带教
	PairingTandem PairingType = "tandem" // 固定搭档
)

// StaffPairing 人员搭档关系（无序）
type StaffPairing struct {
	StaffA string      `json:"staff_a" db:"staff_a" validate:"required"`
	StaffB string      `json:"staff_b" db:"staff_b" validate:"required"`
	Type   PairingType `json:"type" db:"type"`
	Active bool        `json:"active" db:"active"`
}

// Involves 判断搭档关系是否包含该人员
func (p StaffPairing) Involves(staffID string) bool {
	return p.StaffA == staffID || p.StaffB == staffID
}

// Partner 返回搭档的另一方
func (p StaffPairing) Partner(staffID string) string {
	switch staffID {
	case p.StaffA:
		return p.StaffB
	case p.StaffB:
		return p.StaffA
	}
	return ""
}
