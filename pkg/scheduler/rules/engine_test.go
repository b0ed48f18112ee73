package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/orplan/pkg/model"
)

func robotRule() model.SpecialRule {
	return model.SpecialRule{
		ID:            "robotic",
		Name:          "达芬奇机器人",
		Trigger:       "robotic",
		RequiredSkill: "ROB",
		MinLevel:      model.LevelExpert,
		Enabled:       true,
	}
}

func TestEngine_IsQualified(t *testing.T) {
	engine := NewEngine([]model.SpecialRule{
		robotRule(),
		{ID: "nch", Trigger: "NCH", RequiredSkill: "NCH", MinLevel: model.LevelJunior, Enabled: true},
		{ID: "off", Trigger: "UCH", RequiredSkill: "XXX", MinLevel: model.LevelExpert, Enabled: false},
	})

	uchRoom := &model.Room{ID: "OP1", PrimaryDepartments: []string{"UCH"}}
	robotRoom := &model.Room{
		ID:                 "OP5",
		PrimaryDepartments: []string{"URO"},
		Tags:               []string{"robotic"},
	}
	mixedRoom := &model.Room{
		ID:                 "OP2",
		PrimaryDepartments: []string{"GCH"},
		Operations:         []model.Operation{{Department: "NCH"}},
	}

	tests := []struct {
		name     string
		staff    *model.Staff
		room     *model.Room
		expected bool
	}{
		{
			name:     "仅有GCH专家不能进入UCH间",
			staff:    &model.Staff{ID: "s1", Skills: map[string]model.Level{"GCH": model.LevelExpert}},
			room:     uchRoom,
			expected: false,
		},
		{
			name:     "UCH初级可进入UCH间",
			staff:    &model.Staff{ID: "s2", Skills: map[string]model.Level{"UCH": model.LevelJunior}},
			room:     uchRoom,
			expected: true,
		},
		{
			name:     "停用规则不生效",
			staff:    &model.Staff{ID: "s3", Skills: map[string]model.Level{"UCH": model.LevelExpert}},
			room:     uchRoom,
			expected: true,
		},
		{
			name: "机器人间要求ROB专家",
			staff: &model.Staff{ID: "s4", Skills: map[string]model.Level{
				"URO": model.LevelExpert, "ROB": model.LevelJunior,
			}},
			room:     robotRoom,
			expected: false,
		},
		{
			name: "机器人间ROB专家合格",
			staff: &model.Staff{ID: "s5", Skills: map[string]model.Level{
				"URO": model.LevelJunior, "ROB": model.Level("expert+"),
			}},
			room:     robotRoom,
			expected: true,
		},
		{
			name:     "规则满足但活动专科无资质",
			staff:    &model.Staff{ID: "s6", Skills: map[string]model.Level{"ROB": model.LevelExpert}},
			room:     robotRoom,
			expected: false,
		},
		{
			name:     "手术专科触发规则",
			staff:    &model.Staff{ID: "s7", Skills: map[string]model.Level{"GCH": model.LevelExpert}},
			room:     mixedRoom,
			expected: false,
		},
		{
			name:     "手术专科资质计入活动专科",
			staff:    &model.Staff{ID: "s8", Skills: map[string]model.Level{"NCH": model.LevelJunior}},
			room:     mixedRoom,
			expected: true,
		},
		{
			name:     "无资质数据视为不合格",
			staff:    &model.Staff{ID: "s9"},
			room:     uchRoom,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, engine.IsQualified(tt.staff, tt.room))
			assert.Equal(t, tt.expected, engine.Check(tt.staff, tt.room).Qualified)
		})
	}
}

// 穷举小规模组合：不合格当且仅当某条匹配规则未满足或活动专科中无资质
func TestEngine_QualificationGateExhaustive(t *testing.T) {
	rule := model.SpecialRule{ID: "r", Trigger: "UCH", RequiredSkill: "TRAUMA", MinLevel: model.LevelJunior, Enabled: true}
	engine := NewEngine([]model.SpecialRule{rule})

	levels := []model.Level{model.LevelNone, model.LevelJunior, model.LevelExpert}
	rooms := []*model.Room{
		{ID: "uch", PrimaryDepartments: []string{"UCH"}},
		{ID: "gch", PrimaryDepartments: []string{"GCH"}},
		{ID: "mix", PrimaryDepartments: []string{"GCH"}, Operations: []model.Operation{{Department: "UCH"}}},
		{ID: "tag", PrimaryDepartments: []string{"GCH"}, Tags: []string{"UCH"}},
	}

	for _, uch := range levels {
		for _, gch := range levels {
			for _, trauma := range levels {
				staff := &model.Staff{ID: "x", Skills: map[string]model.Level{
					"UCH": uch, "GCH": gch, "TRAUMA": trauma,
				}}
				for _, room := range rooms {
					active := room.ActiveDepartments()
					ruleMatches := room.HasTag("UCH") || room.IsPrimary("UCH")
					for _, d := range active {
						if d == "UCH" {
							ruleMatches = true
						}
					}
					failsRule := ruleMatches && trauma == model.LevelNone
					hasSkill := false
					for _, d := range active {
						if staff.SkillLevel(d) != model.LevelNone {
							hasSkill = true
						}
					}

					expected := !failsRule && hasSkill
					require.Equal(t, expected, engine.IsQualified(staff, room),
						"uch=%s gch=%s trauma=%s room=%s", uch, gch, trauma, room.ID)
				}
			}
		}
	}
}

func TestEngine_CheckReasons(t *testing.T) {
	engine := NewEngine([]model.SpecialRule{robotRule()})
	room := &model.Room{ID: "OP5", PrimaryDepartments: []string{"URO"}, Tags: []string{"robotic"}}

	v := engine.Check(&model.Staff{ID: "a", Skills: map[string]model.Level{"URO": model.LevelExpert}}, room)
	assert.False(t, v.Qualified)
	assert.Equal(t, ReasonRuleFailed, v.Reason)
	require.NotNil(t, v.FailedRule)
	assert.Equal(t, "robotic", v.FailedRule.ID)
	assert.Equal(t, []string{"robotic"}, v.MatchedRules)

	v = engine.Check(&model.Staff{ID: "b", Skills: map[string]model.Level{"ROB": model.LevelExpert}}, room)
	assert.Equal(t, ReasonNoSkill, v.Reason)
	assert.Nil(t, v.FailedRule)

	v = engine.Check(&model.Staff{ID: "c", Skills: map[string]model.Level{"ROB": model.LevelExpert, "URO": model.LevelJunior}}, room)
	assert.True(t, v.Qualified)
	assert.Equal(t, ReasonQualified, v.Reason)
	assert.Equal(t, []string{"URO"}, v.ActiveDepartments)
}

func TestEngine_NilInputs(t *testing.T) {
	engine := NewEngine(nil)
	assert.False(t, engine.IsQualified(nil, &model.Room{}))
	assert.False(t, engine.IsQualified(&model.Staff{}, nil))
	assert.False(t, engine.Check(nil, nil).Qualified)
}
