package model

import "time"

// DayPlan 单日排班输入快照
type DayPlan struct {
	Date        string         `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Rooms       []*Room        `json:"rooms" validate:"dive"`
	Staff       []*Staff       `json:"staff" validate:"dive"`
	Assignments []Assignment   `json:"assignments" validate:"dive"`
	Bench       []string       `json:"bench"`
	Pairings    []StaffPairing `json:"pairings,omitempty" validate:"dive"`
}

// DeriveBench 按花名册顺序返回未被分配的人员
func (p *DayPlan) DeriveBench() []string {
	assigned := p.AssignedSet()
	bench := make([]string, 0, len(p.Staff))
	for _, s := range p.Staff {
		if !assigned[s.ID] {
			bench = append(bench, s.ID)
		}
	}
	return bench
}

// AssignedSet 返回已分配人员集合
func (p *DayPlan) AssignedSet() map[string]bool {
	assigned := make(map[string]bool)
	for _, a := range p.Assignments {
		for _, id := range a.StaffIDs {
			assigned[id] = true
		}
	}
	return assigned
}

// StaffByID 构建人员索引
func (p *DayPlan) StaffByID() map[string]*Staff {
	m := make(map[string]*Staff, len(p.Staff))
	for _, s := range p.Staff {
		m[s.ID] = s
	}
	return m
}

// RoomByID 构建手术间索引
func (p *DayPlan) RoomByID() map[string]*Room {
	m := make(map[string]*Room, len(p.Rooms))
	for _, r := range p.Rooms {
		m[r.ID] = r
	}
	return m
}

// Normalize 补全导入默认值，bench 缺省时由花名册推导
func (p *DayPlan) Normalize() {
	for _, r := range p.Rooms {
		r.Normalize()
	}
	if p.Bench == nil {
		p.Bench = p.DeriveBench()
	}
}

// RunStatus 优化结束状态
type RunStatus string

const (
	StatusConverged           RunStatus = "converged"
	StatusIterationCapReached RunStatus = "iteration_cap_reached"
)

// OptimizationRun 优化运行记录
type OptimizationRun struct {
	BaseModel
	Day          string        `json:"day" db:"day"`
	Status       RunStatus     `json:"status" db:"status"`
	Rounds       int           `json:"rounds" db:"rounds"`
	InitialScore int           `json:"initial_score" db:"initial_score"`
	FinalScore   int           `json:"final_score" db:"final_score"`
	Alerts       []string      `json:"alerts" db:"-"`
	Duration     time.Duration `json:"duration" db:"duration_ms"`
}
