// Package rules 提供手术间资质规则引擎
package rules

import (
	"fmt"
	"sync"

	"github.com/paiban/orplan/pkg/model"
)

// RuleTable 特殊规则表
// 规则按注册顺序解释执行，新增院内规则只需增加一行配置
type RuleTable struct {
	rules []model.SpecialRule
	mu    sync.RWMutex
}

// NewRuleTable 创建规则表
func NewRuleTable(rules ...model.SpecialRule) *RuleTable {
	t := &RuleTable{rules: make([]model.SpecialRule, 0, len(rules))}
	for _, r := range rules {
		t.Register(r)
	}
	return t
}

// Register 注册规则，ID 相同的规则原位替换
func (t *RuleTable) Register(r model.SpecialRule) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r.ID == "" {
		r.ID = fmt.Sprintf("%s:%s:%s", r.Trigger, r.RequiredSkill, model.ParseLevel(string(r.MinLevel)))
	}
	for i, existing := range t.rules {
		if existing.ID == r.ID {
			t.rules[i] = r
			return
		}
	}
	t.rules = append(t.rules, r)
}

// Unregister 注销规则
func (t *RuleTable) Unregister(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, r := range t.rules {
		if r.ID == id {
			t.rules = append(t.rules[:i], t.rules[i+1:]...)
			return
		}
	}
}

// Get 获取规则
func (t *RuleTable) Get(id string) (model.SpecialRule, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, r := range t.rules {
		if r.ID == id {
			return r, true
		}
	}
	return model.SpecialRule{}, false
}

// All 获取全部规则
func (t *RuleTable) All() []model.SpecialRule {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]model.SpecialRule, len(t.rules))
	copy(result, t.rules)
	return result
}

// Enabled 获取已启用的规则快照
func (t *RuleTable) Enabled() []model.SpecialRule {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]model.SpecialRule, 0, len(t.rules))
	for _, r := range t.rules {
		if r.Enabled {
			result = append(result, r)
		}
	}
	return result
}

// Count 返回规则数量
func (t *RuleTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rules)
}

// Summary 返回规则摘要
func (t *RuleTable) Summary() map[string]interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()

	enabled := 0
	for _, r := range t.rules {
		if r.Enabled {
			enabled++
		}
	}

	return map[string]interface{}{
		"total":    len(t.rules),
		"enabled":  enabled,
		"disabled": len(t.rules) - enabled,
	}
}
