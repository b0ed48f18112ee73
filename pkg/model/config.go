package model

// DefaultMaxIterations 局部搜索默认最大轮数
const DefaultMaxIterations = 50

// SpecialRule 特殊资质规则（硬约束）
// Trigger 可匹配活动专科、主专科或手术间标记
type SpecialRule struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Trigger       string `json:"trigger" yaml:"trigger" validate:"required"`
	RequiredSkill string `json:"required_skill" yaml:"required_skill" validate:"required"`
	MinLevel      Level  `json:"min_level" yaml:"min_level"`
	Enabled       bool   `json:"enabled" yaml:"enabled"`
}

// SpecialtyOverride 专用设备手术间的主导专科覆盖，如达芬奇机器人间固定为泌尿外科
type SpecialtyOverride struct {
	Tag        string `json:"tag" yaml:"tag" validate:"required"`
	Department string `json:"department" yaml:"department" validate:"required"`
}

// WeightConfig 评分权重，所有加分/扣分项均由配置提供
type WeightConfig struct {
	PairingBonus        int `json:"pairing_bonus" yaml:"pairing_bonus"`
	UnqualifiedPenalty  int `json:"unqualified_penalty" yaml:"unqualified_penalty"`
	DeptPriorityBase    int `json:"dept_priority_base" yaml:"dept_priority_base"`
	DeptPriorityStep    int `json:"dept_priority_step" yaml:"dept_priority_step"`
	DeptMismatchPenalty int `json:"dept_mismatch_penalty" yaml:"dept_mismatch_penalty"`
	DoubleLeadPenalty   int `json:"double_lead_penalty" yaml:"double_lead_penalty"`

	// 带台位
	LeadRoleBonus      int `json:"lead_role_bonus" yaml:"lead_role_bonus"`
	LeadOpMatchBonus   int `json:"lead_op_match_bonus" yaml:"lead_op_match_bonus"`
	LeadRoomOwnerBonus int `json:"lead_room_owner_bonus" yaml:"lead_room_owner_bonus"`
	WrongLeadPenalty   int `json:"wrong_lead_penalty" yaml:"wrong_lead_penalty"`
	LeadExpertBonus    int `json:"lead_expert_bonus" yaml:"lead_expert_bonus"`
	LeadJuniorBonus    int `json:"lead_junior_bonus" yaml:"lead_junior_bonus"`
	LeadNoSkillPenalty int `json:"lead_no_skill_penalty" yaml:"lead_no_skill_penalty"`

	// 辅助位
	SupportExpertBonus int `json:"support_expert_bonus" yaml:"support_expert_bonus"`
	SupportJuniorBonus int `json:"support_junior_bonus" yaml:"support_junior_bonus"`
	WastedLeadPenalty  int `json:"wasted_lead_penalty" yaml:"wasted_lead_penalty"`

	PreferredRoomBonus  int `json:"preferred_room_bonus" yaml:"preferred_room_bonus"`
	SecondarySkillBonus int `json:"secondary_skill_bonus" yaml:"secondary_skill_bonus"`
	LowPriorityPenalty  int `json:"low_priority_penalty" yaml:"low_priority_penalty"`
	FullyStaffedBonus   int `json:"fully_staffed_bonus" yaml:"fully_staffed_bonus"`
}

// DefaultWeights 返回默认权重
func DefaultWeights() WeightConfig {
	return WeightConfig{
		PairingBonus:        20000,
		UnqualifiedPenalty:  100000,
		DeptPriorityBase:    1000,
		DeptPriorityStep:    200,
		DeptMismatchPenalty: 500,
		DoubleLeadPenalty:   3000,
		LeadRoleBonus:       1500,
		LeadOpMatchBonus:    2000,
		LeadRoomOwnerBonus:  1000,
		WrongLeadPenalty:    8000,
		LeadExpertBonus:     1200,
		LeadJuniorBonus:     600,
		LeadNoSkillPenalty:  1000,
		SupportExpertBonus:  800,
		SupportJuniorBonus:  400,
		WastedLeadPenalty:   700,
		PreferredRoomBonus:  300,
		SecondarySkillBonus: 150,
		LowPriorityPenalty:  400,
		FullyStaffedBonus:   2500,
	}
}

// Named 以名称列出全部权重，用于配置校验和展示
func (w WeightConfig) Named() map[string]int {
	return map[string]int{
		"pairing_bonus":         w.PairingBonus,
		"unqualified_penalty":   w.UnqualifiedPenalty,
		"dept_priority_base":    w.DeptPriorityBase,
		"dept_priority_step":    w.DeptPriorityStep,
		"dept_mismatch_penalty": w.DeptMismatchPenalty,
		"double_lead_penalty":   w.DoubleLeadPenalty,
		"lead_role_bonus":       w.LeadRoleBonus,
		"lead_op_match_bonus":   w.LeadOpMatchBonus,
		"lead_room_owner_bonus": w.LeadRoomOwnerBonus,
		"wrong_lead_penalty":    w.WrongLeadPenalty,
		"lead_expert_bonus":     w.LeadExpertBonus,
		"lead_junior_bonus":     w.LeadJuniorBonus,
		"lead_no_skill_penalty": w.LeadNoSkillPenalty,
		"support_expert_bonus":  w.SupportExpertBonus,
		"support_junior_bonus":  w.SupportJuniorBonus,
		"wasted_lead_penalty":   w.WastedLeadPenalty,
		"preferred_room_bonus":  w.PreferredRoomBonus,
		"secondary_skill_bonus": w.SecondarySkillBonus,
		"low_priority_penalty":  w.LowPriorityPenalty,
		"fully_staffed_bonus":   w.FullyStaffedBonus,
	}
}

// EngineConfig 引擎配置：权重、特殊规则、专用设备覆盖与迭代上限
type EngineConfig struct {
	Weights            WeightConfig        `json:"weights" yaml:"weights"`
	Rules              []SpecialRule       `json:"special_rules" yaml:"special_rules" validate:"dive"`
	SpecialtyOverrides []SpecialtyOverride `json:"specialty_overrides" yaml:"specialty_overrides" validate:"dive"`
	MaxIterations      int                 `json:"max_iterations" yaml:"max_iterations"`
}

// DefaultEngineConfig 返回默认引擎配置（无特殊规则）
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Weights:       DefaultWeights(),
		MaxIterations: DefaultMaxIterations,
	}
}
