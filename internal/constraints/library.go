// Package constraints 描述排班引擎的硬约束与评分项
package constraints

import (
	"strconv"

	"github.com/paiban/orplan/pkg/model"
)

// ConstraintParam 约束参数定义
type ConstraintParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, string, level
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Current     string `json:"current,omitempty"`
	Min         string `json:"min,omitempty"`
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Type        string            `json:"type"`     // hard 硬约束, soft 评分项
	Category    string            `json:"category"` // 分类
	Description string            `json:"description"`
	Sign        int               `json:"sign,omitempty"` // 1 加分, -1 扣分
	Params      []ConstraintParam `json:"params"`
}

// LibraryResponse 约束库响应
type LibraryResponse struct {
	Library     []ConstraintDefinition `json:"library"`
	Rules       []model.SpecialRule    `json:"special_rules"`
	RuleSummary map[string]interface{} `json:"rule_summary"`
}

type weightTerm struct {
	name, display, category, desc string
	sign                          int
}

var weightTerms = []weightTerm{
	{"pairing_bonus", "固定搭档", "团队", "与当前团队中的搭档同间时直接取该分值，不再计算其他项", 1},
	{"unqualified_penalty", "资质不符", "资质", "不满足资质规则时直接取该扣分", -1},
	{"dept_priority_base", "专科优先基数", "专科偏好", "主导专科在人员专科优先列表中的基础加分", 1},
	{"dept_priority_step", "专科优先递减", "专科偏好", "优先列表每后移一位减少的加分", 1},
	{"dept_mismatch_penalty", "专科不匹配", "专科偏好", "有专科优先列表但不含主导专科时扣分", -1},
	{"double_lead_penalty", "双带台", "带台", "带台人员进入已有带台人员的手术间时扣分", -1},
	{"lead_role_bonus", "带台位带台人员", "带台", "带台位由带台人员担任时加分", 1},
	{"lead_op_match_bonus", "带台专科匹配", "带台", "人员的带台专科覆盖主导专科时加分", 1},
	{"lead_room_owner_bonus", "带台负责手术间", "带台", "人员的带台专科覆盖手术间主专科时加分", 1},
	{"wrong_lead_penalty", "带台专科不符", "带台", "带台专科与主导专科、手术间主专科均不匹配时扣分", -1},
	{"lead_expert_bonus", "带台专家", "带台", "未设带台专科时，带台位人员在主导专科为专家的加分", 1},
	{"lead_junior_bonus", "带台初级", "带台", "未设带台专科时，带台位人员在主导专科为初级的加分", 1},
	{"lead_no_skill_penalty", "带台无资质", "带台", "无专用带台专科的带台人员在主导专科无资质时扣分", -1},
	{"support_expert_bonus", "辅助专家", "辅助", "辅助位人员在主导专科为专家时加分", 1},
	{"support_junior_bonus", "辅助初级", "辅助", "辅助位人员在主导专科为初级时加分", 1},
	{"wasted_lead_penalty", "带台人员做辅助", "辅助", "带台人员被安排在辅助位时扣分", -1},
	{"preferred_room_bonus", "偏好手术间", "意愿", "人员偏好该手术间时加分", 1},
	{"secondary_skill_bonus", "次要专科资质", "资质", "在手术间其他活动专科也有资质时加分", 1},
	{"low_priority_penalty", "低优先级人员", "意愿", "低优先级人员被安排上岗时扣分", -1},
	{"fully_staffed_bonus", "人员充足", "全日", "手术间达到配置人数时的全日评分加分", 1},
}

// GetLibrary 返回全部约束，Current 取自给定配置
func GetLibrary(cfg *model.EngineConfig) []ConstraintDefinition {
	if cfg == nil {
		cfg = model.DefaultEngineConfig()
	}
	defaults := model.DefaultWeights().Named()
	current := cfg.Weights.Named()

	library := []ConstraintDefinition{
		{
			Name:        "qualification",
			DisplayName: "专科资质",
			Type:        "hard",
			Category:    "资质",
			Description: "人员须在手术间至少一个活动专科具备资质，且满足所有命中的特殊规则。",
			Params: []ConstraintParam{
				{Name: "special_rules", Type: "array", Description: "特殊规则：trigger 命中专科或标记时要求 required_skill 达到 min_level"},
			},
		},
		{
			Name:        "single_placement",
			DisplayName: "单一岗位",
			Type:        "hard",
			Category:    "分配",
			Description: "同一人员当日只能出现在一个手术间的一个岗位。",
		},
		{
			Name:        "specialty_override",
			DisplayName: "专用设备主导专科",
			Type:        "hard",
			Category:    "专科偏好",
			Description: "带有指定标记的手术间固定主导专科，不再按手术时长计算。",
			Params: []ConstraintParam{
				{Name: "specialty_overrides", Type: "array", Description: "tag 与 department 的对应关系"},
			},
		},
		{
			Name:        "max_iterations",
			DisplayName: "搜索轮数上限",
			Type:        "hard",
			Category:    "优化",
			Description: "局部搜索最多执行的轮数，每轮至多接受一次调整。",
			Params: []ConstraintParam{
				{
					Name:    "max_iterations",
					Type:    "int",
					Default: strconv.Itoa(model.DefaultMaxIterations),
					Current: strconv.Itoa(cfg.MaxIterations),
					Min:     "1",
				},
			},
		},
	}

	for _, t := range weightTerms {
		library = append(library, ConstraintDefinition{
			Name:        t.name,
			DisplayName: t.display,
			Type:        "soft",
			Category:    t.category,
			Description: t.desc,
			Sign:        t.sign,
			Params: []ConstraintParam{{
				Name:        "weights." + t.name,
				Type:        "int",
				Description: "权重，扣分项以正数配置",
				Default:     strconv.Itoa(defaults[t.name]),
				Current:     strconv.Itoa(current[t.name]),
				Min:         "0",
			}},
		})
	}
	return library
}

// GetByCategory 按分类分组
func GetByCategory(cfg *model.EngineConfig) map[string][]ConstraintDefinition {
	grouped := make(map[string][]ConstraintDefinition)
	for _, c := range GetLibrary(cfg) {
		grouped[c.Category] = append(grouped[c.Category], c)
	}
	return grouped
}
