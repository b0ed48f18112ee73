package model

import (
	"testing"
)

func TestStaff_SkillLevel(t *testing.T) {
	s := &Staff{
		Skills: map[string]Level{
			"UCH": LevelExpert,
			"GCH": LevelJunior,
			"URO": Level("expert+"),
			"HNO": LevelNone,
		},
	}

	tests := []struct {
		dept     string
		expected Level
	}{
		{"UCH", LevelExpert},
		{"GCH", LevelJunior},
		{"URO", LevelExpert},
		{"HNO", LevelNone},
		{"GYN", LevelNone},
	}

	for _, tt := range tests {
		t.Run(tt.dept, func(t *testing.T) {
			if result := s.SkillLevel(tt.dept); result != tt.expected {
				t.Errorf("SkillLevel(%s) = %v, expected %v", tt.dept, result, tt.expected)
			}
		})
	}
}

func TestStaff_SkillLevel_NilSkills(t *testing.T) {
	var s *Staff
	if s.SkillLevel("UCH") != LevelNone {
		t.Error("nil staff should have no skill")
	}
	if (&Staff{}).HasSkillIn("UCH") {
		t.Error("staff without skills should not have UCH")
	}
}

func TestStaff_PriorityRank(t *testing.T) {
	s := &Staff{DepartmentPriority: []string{"UCH", "GCH", "URO"}}

	tests := []struct {
		dept     string
		expected int
	}{
		{"UCH", 0},
		{"GCH", 1},
		{"URO", 2},
		{"HNO", -1},
	}

	for _, tt := range tests {
		t.Run(tt.dept, func(t *testing.T) {
			if result := s.PriorityRank(tt.dept); result != tt.expected {
				t.Errorf("PriorityRank(%s) = %d, expected %d", tt.dept, result, tt.expected)
			}
		})
	}
}

func TestStaff_CanLeadAndPrefersRoom(t *testing.T) {
	s := &Staff{
		LeadDepartments: []string{"UCH"},
		PreferredRooms:  []string{"OP 3"},
	}

	if !s.CanLead("UCH") {
		t.Error("CanLead(UCH) should be true")
	}
	if s.CanLead("GCH") {
		t.Error("CanLead(GCH) should be false")
	}
	if !s.PrefersRoom("OP 3") {
		t.Error("PrefersRoom(OP 3) should be true")
	}
	if s.PrefersRoom("op3") {
		t.Error("PrefersRoom should match room names exactly")
	}
}
