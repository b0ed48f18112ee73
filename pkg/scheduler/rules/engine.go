package rules

import (
	"fmt"

	"github.com/paiban/orplan/pkg/model"
)

// Reason 资质判定原因
type Reason string

const (
	ReasonQualified  Reason = "qualified"   // 合格
	ReasonRuleFailed Reason = "rule_failed" // 未满足特殊规则
	ReasonNoSkill    Reason = "no_skill"    // 活动专科中无任何资质
)

// Verdict 资质判定结果
type Verdict struct {
	Qualified         bool               `json:"qualified"`
	Reason            Reason             `json:"reason"`
	FailedRule        *model.SpecialRule `json:"failed_rule,omitempty"`
	ActiveDepartments []string           `json:"active_departments"`
	MatchedRules      []string           `json:"matched_rules,omitempty"`
	Message           string             `json:"message"`
}

// Engine 资质规则引擎
// 无状态，可被多个优化任务并发调用
type Engine struct {
	rules []model.SpecialRule
}

// NewEngine 创建规则引擎，仅保留已启用的规则
func NewEngine(rules []model.SpecialRule) *Engine {
	return NewEngineFromTable(NewRuleTable(rules...))
}

// NewEngineFromTable 基于规则表快照创建规则引擎
func NewEngineFromTable(t *RuleTable) *Engine {
	return &Engine{rules: t.Enabled()}
}

// Rules 返回生效的规则
func (e *Engine) Rules() []model.SpecialRule {
	result := make([]model.SpecialRule, len(e.rules))
	copy(result, e.rules)
	return result
}

// IsQualified 判断人员是否可进入该手术间
func (e *Engine) IsQualified(staff *model.Staff, room *model.Room) bool {
	if staff == nil || room == nil {
		return false
	}
	active := room.ActiveDepartments()
	for i := range e.rules {
		if matches(&e.rules[i], room, active) && !meets(staff, &e.rules[i]) {
			return false
		}
	}
	return hasActiveSkill(staff, active)
}

// Check 判断资质并给出原因，结论与 IsQualified 一致
func (e *Engine) Check(staff *model.Staff, room *model.Room) Verdict {
	if staff == nil || room == nil {
		return Verdict{Reason: ReasonNoSkill, Message: "人员或手术间为空"}
	}

	active := room.ActiveDepartments()
	v := Verdict{ActiveDepartments: active}

	for i := range e.rules {
		rule := &e.rules[i]
		if !matches(rule, room, active) {
			continue
		}
		v.MatchedRules = append(v.MatchedRules, rule.ID)
		if v.FailedRule == nil && !meets(staff, rule) {
			failed := *rule
			v.FailedRule = &failed
		}
	}

	switch {
	case v.FailedRule != nil:
		v.Reason = ReasonRuleFailed
		v.Message = fmt.Sprintf("规则 %s 要求 %s 达到 %s", ruleLabel(v.FailedRule), v.FailedRule.RequiredSkill, model.ParseLevel(string(v.FailedRule.MinLevel)))
	case !hasActiveSkill(staff, active):
		v.Reason = ReasonNoSkill
		v.Message = fmt.Sprintf("在活动专科 %v 中无资质", active)
	default:
		v.Qualified = true
		v.Reason = ReasonQualified
		v.Message = "合格"
	}
	return v
}

// matches 规则触发条件：活动专科、主专科或手术间标记
func matches(rule *model.SpecialRule, room *model.Room, active []string) bool {
	for _, d := range active {
		if d == rule.Trigger {
			return true
		}
	}
	return room.IsPrimary(rule.Trigger) || room.HasTag(rule.Trigger)
}

func meets(staff *model.Staff, rule *model.SpecialRule) bool {
	return staff.SkillLevel(rule.RequiredSkill).Meets(rule.MinLevel)
}

func hasActiveSkill(staff *model.Staff, active []string) bool {
	for _, d := range active {
		if staff.HasSkillIn(d) {
			return true
		}
	}
	return false
}

func ruleLabel(r *model.SpecialRule) string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}
