// Package scoring 提供候选人员评分与全日排班评分
package scoring

import (
	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/rules"
)

// Scorer 评分器
// 构建后只读，评分结果只依赖输入
type Scorer struct {
	weights   model.WeightConfig
	engine    *rules.Engine
	overrides []model.SpecialtyOverride
	partners  map[string][]string // 生效搭档关系的邻接表
}

// NewScorer 创建评分器
func NewScorer(cfg *model.EngineConfig, pairings []model.StaffPairing) *Scorer {
	if cfg == nil {
		cfg = model.DefaultEngineConfig()
	}
	return NewScorerWithEngine(cfg, rules.NewEngine(cfg.Rules), pairings)
}

// NewScorerWithEngine 使用已有规则引擎创建评分器
func NewScorerWithEngine(cfg *model.EngineConfig, engine *rules.Engine, pairings []model.StaffPairing) *Scorer {
	partners := make(map[string][]string)
	for _, p := range pairings {
		if !p.Active || p.StaffA == "" || p.StaffB == "" {
			continue
		}
		partners[p.StaffA] = append(partners[p.StaffA], p.StaffB)
		partners[p.StaffB] = append(partners[p.StaffB], p.StaffA)
	}

	overrides := make([]model.SpecialtyOverride, len(cfg.SpecialtyOverrides))
	copy(overrides, cfg.SpecialtyOverrides)

	return &Scorer{
		weights:   cfg.Weights,
		engine:    engine,
		overrides: overrides,
		partners:  partners,
	}
}

// Engine 返回规则引擎
func (s *Scorer) Engine() *rules.Engine {
	return s.engine
}

// Weights 返回评分权重
func (s *Scorer) Weights() model.WeightConfig {
	return s.weights
}

// Paired 判断人员与当前团队中的某人是否存在生效的搭档关系
// 任一方声明的 RequiredPartnerID 视为双方之间的固定搭档
func (s *Scorer) Paired(staff *model.Staff, team []*model.Staff) bool {
	partners := s.partners[staff.ID]
	for _, member := range team {
		if member == nil {
			continue
		}
		if staff.RequiredPartnerID != "" && member.ID == staff.RequiredPartnerID {
			return true
		}
		if member.RequiredPartnerID != "" && member.RequiredPartnerID == staff.ID {
			return true
		}
		for _, p := range partners {
			if p == member.ID {
				return true
			}
		}
	}
	return false
}

// Score 计算人员在手术间指定位置的得分，分数越高越好
func (s *Scorer) Score(staff *model.Staff, room *model.Room, slot int, dominant string, team []*model.Staff) int {
	w := &s.weights

	// 搭档优先，直接返回
	if s.Paired(staff, team) {
		return w.PairingBonus
	}

	if !s.engine.IsQualified(staff, room) {
		return -w.UnqualifiedPenalty
	}

	score := 0

	// 专科偏好
	if rank := staff.PriorityRank(dominant); rank >= 0 {
		score += max(0, w.DeptPriorityBase-rank*w.DeptPriorityStep)
	} else {
		score -= w.DeptMismatchPenalty
	}

	// 双带台
	if staff.IsLead && teamHasLead(team) {
		score -= w.DoubleLeadPenalty
	}

	level := staff.SkillLevel(dominant)
	if slot == 0 {
		score += s.leadSlotScore(staff, room, dominant, level)
	} else {
		switch level {
		case model.LevelExpert:
			score += w.SupportExpertBonus
		case model.LevelJunior:
			score += w.SupportJuniorBonus
		}
		if staff.IsLead {
			score -= w.WastedLeadPenalty
		}
	}

	if staff.PrefersRoom(room.Name) {
		score += w.PreferredRoomBonus
	}
	for _, dept := range room.OperationDepartments() {
		if dept != dominant && staff.SkillLevel(dept) == model.LevelExpert {
			score += w.SecondarySkillBonus
		}
	}
	if staff.IsLowPriority {
		score -= w.LowPriorityPenalty
	}

	return score
}

// leadSlotScore 带台位得分
func (s *Scorer) leadSlotScore(staff *model.Staff, room *model.Room, dominant string, level model.Level) int {
	w := &s.weights
	score := 0

	if staff.IsLead {
		score += w.LeadRoleBonus
	}

	if len(staff.LeadDepartments) > 0 {
		opMatch := staff.CanLead(dominant)
		ownerMatch := false
		for _, d := range room.PrimaryDepartments {
			if staff.CanLead(d) {
				ownerMatch = true
				break
			}
		}
		if opMatch {
			score += w.LeadOpMatchBonus
		}
		if ownerMatch {
			score += w.LeadRoomOwnerBonus
		}
		if !opMatch && !ownerMatch {
			score -= w.WrongLeadPenalty
		}
		return score
	}

	switch level {
	case model.LevelExpert:
		score += w.LeadExpertBonus
	case model.LevelJunior:
		score += w.LeadJuniorBonus
	default:
		if staff.IsLead {
			score -= w.LeadNoSkillPenalty
		}
	}
	return score
}

func teamHasLead(team []*model.Staff) bool {
	for _, m := range team {
		if m != nil && m.IsLead {
			return true
		}
	}
	return false
}
