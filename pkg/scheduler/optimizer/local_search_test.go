package optimizer

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/scoring"
)

var departments = []string{"UCH", "GCH", "URO", "GYN"}

func allRounder(id string) *model.Staff {
	skills := make(map[string]model.Level, len(departments))
	for _, d := range departments {
		skills[d] = model.LevelExpert
	}
	return &model.Staff{ID: id, Name: id, Skills: skills}
}

func room(id, dept string, required int) *model.Room {
	return &model.Room{
		ID:                 id,
		Name:               id,
		PrimaryDepartments: []string{dept},
		Operations:         []model.Operation{{ID: id + "-op", Department: dept, DurationMinutes: 90}},
		RequiredStaffCount: required,
	}
}

// 4 个手术间各需 2 人，8 名全能人员，无搭档
func convergencePlan() *model.DayPlan {
	plan := &model.DayPlan{Date: "2026-03-02"}
	for i, d := range departments {
		plan.Rooms = append(plan.Rooms, room(fmt.Sprintf("OP%d", i+1), d, 2))
	}
	for i := 0; i < 8; i++ {
		plan.Staff = append(plan.Staff, allRounder(fmt.Sprintf("s%d", i+1)))
	}
	plan.Normalize()
	return plan
}

// randomPlan 用固定种子生成混合场景
func randomPlan(seed int64) *model.DayPlan {
	rng := rand.New(rand.NewSource(seed))
	levels := []model.Level{model.LevelNone, model.LevelJunior, model.LevelExpert}

	plan := &model.DayPlan{Date: "2026-03-02"}
	nRooms := 2 + rng.Intn(4)
	for r := 0; r < nRooms; r++ {
		rm := room(fmt.Sprintf("OP%d", r+1), departments[rng.Intn(len(departments))], 1+rng.Intn(3))
		if rng.Intn(2) == 0 {
			rm.Operations = append(rm.Operations, model.Operation{Department: departments[rng.Intn(len(departments))]})
		}
		plan.Rooms = append(plan.Rooms, rm)
	}

	nStaff := 3 + rng.Intn(10)
	for s := 0; s < nStaff; s++ {
		st := &model.Staff{ID: fmt.Sprintf("s%d", s+1), Skills: map[string]model.Level{}}
		for _, d := range departments {
			st.Skills[d] = levels[rng.Intn(len(levels))]
		}
		st.IsLead = rng.Intn(3) == 0
		if st.IsLead && rng.Intn(2) == 0 {
			st.LeadDepartments = []string{departments[rng.Intn(len(departments))]}
		}
		st.DepartmentPriority = []string{departments[rng.Intn(len(departments))]}
		st.IsLowPriority = rng.Intn(5) == 0
		plan.Staff = append(plan.Staff, st)
	}

	// 部分人员预先分配
	used := map[string]bool{}
	for _, rm := range plan.Rooms {
		a := model.Assignment{RoomID: rm.ID}
		for _, st := range plan.Staff {
			if !used[st.ID] && rng.Intn(4) == 0 && len(a.StaffIDs) < rm.RequiredStaffCount {
				a.StaffIDs = append(a.StaffIDs, st.ID)
				used[st.ID] = true
			}
		}
		plan.Assignments = append(plan.Assignments, a)
	}

	if nStaff > 3 {
		plan.Pairings = []model.StaffPairing{{StaffA: "s1", StaffB: "s3", Type: model.PairingMentor, Active: true}}
	}
	plan.Normalize()
	return plan
}

func assertNoDuplicates(t *testing.T, assignments []model.Assignment) {
	t.Helper()
	seen := map[string]string{}
	for _, a := range assignments {
		for _, id := range a.StaffIDs {
			if prev, ok := seen[id]; ok {
				t.Fatalf("staff %s assigned to both %s and %s", id, prev, a.RoomID)
			}
			seen[id] = a.RoomID
		}
	}
}

func TestOptimize_Convergence(t *testing.T) {
	plan := convergencePlan()
	result := Optimize(plan, model.DefaultEngineConfig())

	assert.Equal(t, model.StatusConverged, result.Status)
	assert.Empty(t, result.Alerts)
	assert.LessOrEqual(t, result.Rounds, model.DefaultMaxIterations)
	require.Len(t, result.Assignments, 4)
	for _, a := range result.Assignments {
		assert.Len(t, a.StaffIDs, 2, a.RoomID)
	}
	assertNoDuplicates(t, result.Assignments)
	assert.Greater(t, result.Score, result.InitialScore)
}

func TestOptimize_Deterministic(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		first := Optimize(randomPlan(seed), model.DefaultEngineConfig())
		second := Optimize(randomPlan(seed), model.DefaultEngineConfig())

		b1, err := json.Marshal(first)
		require.NoError(t, err)
		b2, err := json.Marshal(second)
		require.NoError(t, err)

		assert.Equal(t, string(b1), string(b2), "seed %d", seed)
		assert.Equal(t, first.Fingerprint(), second.Fingerprint())
	}
}

func TestOptimize_Invariants(t *testing.T) {
	cfg := model.DefaultEngineConfig()
	for seed := int64(1); seed <= 40; seed++ {
		plan := randomPlan(seed)
		scorer := scoring.NewScorer(cfg, plan.Pairings)
		before := scorer.TotalScore(plan.Assignments, plan.Rooms, plan.Staff)

		result := Optimize(plan, cfg)

		assertNoDuplicates(t, result.Assignments)
		assert.Equal(t, before, result.InitialScore, "seed %d", seed)
		assert.GreaterOrEqual(t, result.Score, result.InitialScore, "seed %d", seed)
		assert.Equal(t, scorer.TotalScore(result.Assignments, plan.Rooms, plan.Staff), result.Score, "seed %d", seed)

		last := result.InitialScore
		for _, mv := range result.Moves {
			assert.Greater(t, mv.Score, last, "seed %d move %+v", seed, mv)
			last = mv.Score
		}

		// 不会放入不合格人员
		engine := scorer.Engine()
		staffByID := plan.StaffByID()
		roomByID := plan.RoomByID()
		initial := map[string]bool{}
		for _, a := range plan.Assignments {
			for _, id := range a.StaffIDs {
				initial[a.RoomID+"/"+id] = true
			}
		}
		for _, a := range result.Assignments {
			for _, id := range a.StaffIDs {
				if initial[a.RoomID+"/"+id] {
					continue
				}
				assert.True(t, engine.IsQualified(staffByID[id], roomByID[a.RoomID]), "seed %d: %s in %s", seed, id, a.RoomID)
			}
		}
	}
}

func TestOptimize_ReplaceThenFill(t *testing.T) {
	weak := &model.Staff{ID: "weak", Skills: map[string]model.Level{"UCH": model.LevelJunior}}
	strong := &model.Staff{
		ID:                 "strong",
		Skills:             map[string]model.Level{"UCH": model.LevelExpert},
		DepartmentPriority: []string{"UCH"},
	}
	plan := &model.DayPlan{
		Rooms:       []*model.Room{room("OP1", "UCH", 2)},
		Staff:       []*model.Staff{weak, strong},
		Assignments: []model.Assignment{{RoomID: "OP1", StaffIDs: []string{"weak"}}},
		Bench:       []string{"strong"},
	}

	result := Optimize(plan, model.DefaultEngineConfig())

	require.Len(t, result.Moves, 2)
	assert.Equal(t, MoveReplace, result.Moves[0].Kind)
	assert.Equal(t, "strong", result.Moves[0].StaffIn)
	assert.Equal(t, "weak", result.Moves[0].StaffOut)
	assert.Equal(t, MoveFill, result.Moves[1].Kind)
	assert.Equal(t, "weak", result.Moves[1].StaffIn)
	assert.Equal(t, []string{"strong", "weak"}, result.Assignments[0].StaffIDs)
	assert.Empty(t, result.Alerts)
}

func TestOptimize_DoubleLeadAvoided(t *testing.T) {
	lead := allRounder("lead")
	lead.IsLead = true
	lead2 := allRounder("lead2")
	lead2.IsLead = true
	support := allRounder("support")

	plan := &model.DayPlan{
		Rooms:       []*model.Room{room("OP1", "UCH", 2)},
		Staff:       []*model.Staff{lead, lead2, support},
		Assignments: []model.Assignment{{RoomID: "OP1", StaffIDs: []string{"lead"}}},
		Bench:       []string{"lead2", "support"},
	}

	result := Optimize(plan, model.DefaultEngineConfig())
	assert.Equal(t, []string{"lead", "support"}, result.Assignments[0].StaffIDs)
}

func TestOptimize_PairingKeptTogether(t *testing.T) {
	mentor := allRounder("mentor")
	x := allRounder("x")
	y := allRounder("y")
	trainee := &model.Staff{ID: "trainee", Skills: map[string]model.Level{"UCH": model.LevelJunior, "GCH": model.LevelJunior}}

	plan := &model.DayPlan{
		Rooms:    []*model.Room{room("OP1", "UCH", 2), room("OP2", "GCH", 2)},
		Staff:    []*model.Staff{mentor, x, y, trainee},
		Pairings: []model.StaffPairing{{StaffA: "mentor", StaffB: "trainee", Type: model.PairingMentor, Active: true}},
	}
	plan.Normalize()

	result := Optimize(plan, model.DefaultEngineConfig())

	roomOf := map[string]string{}
	for _, a := range result.Assignments {
		for _, id := range a.StaffIDs {
			roomOf[id] = a.RoomID
		}
	}
	require.NotEmpty(t, roomOf["mentor"])
	assert.Equal(t, roomOf["mentor"], roomOf["trainee"])
	assert.Empty(t, result.Alerts)

	// 首次改进：x 先补入 OP1，随后被搭档替换
	assert.Equal(t, []string{"mentor", "trainee"}, result.Assignments[0].StaffIDs)
	assert.Equal(t, []string{"x", "y"}, result.Assignments[1].StaffIDs)
	require.GreaterOrEqual(t, len(result.Moves), 3)
	assert.Equal(t, Move{Round: 3, Kind: MoveReplace, RoomID: "OP1", Slot: 1, StaffIn: "trainee", StaffOut: "x", Score: result.Moves[2].Score}, result.Moves[2])
}

func TestOptimize_UnqualifiedNeverPlaced(t *testing.T) {
	gch := &model.Staff{ID: "gch", Skills: map[string]model.Level{"GCH": model.LevelExpert}}
	plan := &model.DayPlan{
		Rooms: []*model.Room{room("OP1", "UCH", 2)},
		Staff: []*model.Staff{gch},
		Bench: []string{"gch"},
	}

	result := Optimize(plan, model.DefaultEngineConfig())
	assert.Empty(t, result.Assignments[0].StaffIDs)
	assert.Equal(t, model.StatusConverged, result.Status)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, AlertCritical, AlertLevel(result.Alerts[0]))
}

func TestOptimize_TieBreakRosterOrder(t *testing.T) {
	plan := &model.DayPlan{
		Rooms: []*model.Room{room("OP1", "UCH", 1)},
		Staff: []*model.Staff{allRounder("b"), allRounder("a")},
		Bench: []string{"a", "b"},
	}

	result := Optimize(plan, model.DefaultEngineConfig())
	assert.Equal(t, []string{"b"}, result.Assignments[0].StaffIDs)
}

func TestOptimize_IterationCap(t *testing.T) {
	cfg := model.DefaultEngineConfig()
	cfg.MaxIterations = 3

	result := Optimize(convergencePlan(), cfg)
	assert.Equal(t, model.StatusIterationCapReached, result.Status)
	assert.Equal(t, 3, result.Rounds)
	assert.Len(t, result.Moves, 3)
	assert.NotEmpty(t, result.Alerts)
	assertNoDuplicates(t, result.Assignments)
}

func TestOptimize_EmptyInputs(t *testing.T) {
	cfg := model.DefaultEngineConfig()

	empty := Optimize(&model.DayPlan{Staff: []*model.Staff{allRounder("a")}, Bench: []string{"a"}}, cfg)
	assert.Equal(t, model.StatusConverged, empty.Status)
	assert.Empty(t, empty.Assignments)
	assert.Equal(t, 0, empty.Score)
	assert.Equal(t, empty.InitialScore, empty.Score)

	settled := &model.DayPlan{
		Rooms:       []*model.Room{room("OP1", "UCH", 2)},
		Staff:       []*model.Staff{allRounder("a"), allRounder("b")},
		Assignments: []model.Assignment{{RoomID: "OP1", StaffIDs: []string{"a", "b"}}},
		Bench:       []string{},
	}
	result := Optimize(settled, cfg)
	assert.Equal(t, result.InitialScore, result.Score)
	assert.Empty(t, result.Moves)
	assert.Equal(t, []string{"a", "b"}, result.Assignments[0].StaffIDs)
}

func TestOptimize_EmptyBenchStillSwaps(t *testing.T) {
	uch := &model.Staff{
		ID:                 "uch",
		Skills:             map[string]model.Level{"UCH": model.LevelExpert, "GCH": model.LevelJunior},
		DepartmentPriority: []string{"UCH"},
	}
	gch := &model.Staff{
		ID:                 "gch",
		Skills:             map[string]model.Level{"GCH": model.LevelExpert, "UCH": model.LevelJunior},
		DepartmentPriority: []string{"GCH"},
	}
	plan := &model.DayPlan{
		Rooms: []*model.Room{room("OP1", "UCH", 1), room("OP2", "GCH", 1)},
		Staff: []*model.Staff{uch, gch},
		Assignments: []model.Assignment{
			{RoomID: "OP1", StaffIDs: []string{"gch"}},
			{RoomID: "OP2", StaffIDs: []string{"uch"}},
		},
		Bench: []string{},
	}

	result := Optimize(plan, model.DefaultEngineConfig())

	// 无替补时只会发生横向互换
	require.NotEmpty(t, result.Moves)
	for _, mv := range result.Moves {
		assert.Equal(t, MoveSwap, mv.Kind)
	}
	assert.Equal(t, []string{"uch"}, result.Assignments[0].StaffIDs)
	assert.Equal(t, []string{"gch"}, result.Assignments[1].StaffIDs)
	assert.Greater(t, result.Score, result.InitialScore)
	assert.Equal(t, model.StatusConverged, result.Status)
}

func TestOptimize_MissingRoomEntryScoredAsEmpty(t *testing.T) {
	cfg := model.DefaultEngineConfig()
	idle := &model.Room{ID: "IDLE", Name: "IDLE"}
	plan := &model.DayPlan{
		Rooms:       []*model.Room{room("OP1", "UCH", 1), idle},
		Staff:       []*model.Staff{allRounder("a")},
		Assignments: []model.Assignment{{RoomID: "OP1", StaffIDs: []string{"a"}}},
	}

	result := Optimize(plan, cfg)
	scorer := scoring.NewScorer(cfg, nil)

	withEmpty := append(append([]model.Assignment(nil), plan.Assignments...), model.Assignment{RoomID: "IDLE"})
	assert.Equal(t, scorer.TotalScore(withEmpty, plan.Rooms, plan.Staff), result.InitialScore)
	assert.Equal(t, scorer.TotalScore(plan.Assignments, plan.Rooms, plan.Staff)+cfg.Weights.FullyStaffedBonus, result.InitialScore)
	assert.Equal(t, scorer.TotalScore(result.Assignments, plan.Rooms, plan.Staff), result.Score)
	require.Len(t, result.Assignments, 2)
	assert.Equal(t, "IDLE", result.Assignments[1].RoomID)
	assert.Empty(t, result.Assignments[1].StaffIDs)
}

func TestOptimize_BenchSanitized(t *testing.T) {
	plan := &model.DayPlan{
		Rooms:       []*model.Room{room("OP1", "UCH", 2), room("OP2", "GCH", 1)},
		Staff:       []*model.Staff{allRounder("a"), allRounder("b")},
		Assignments: []model.Assignment{{RoomID: "OP1", StaffIDs: []string{"a"}}},
		// a 已分配，ghost 不在花名册，b 重复
		Bench: []string{"a", "ghost", "b", "b"},
	}

	result := Optimize(plan, model.DefaultEngineConfig())
	assertNoDuplicates(t, result.Assignments)

	var placed []string
	for _, a := range result.Assignments {
		placed = append(placed, a.StaffIDs...)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, placed)
}

func TestOptimize_KeepsUnknownRoomsAndStaff(t *testing.T) {
	plan := &model.DayPlan{
		Rooms: []*model.Room{room("OP1", "UCH", 2)},
		Staff: []*model.Staff{allRounder("a")},
		Assignments: []model.Assignment{
			{RoomID: "OP1", StaffIDs: []string{"external"}},
			{RoomID: "OP9", StaffIDs: []string{"a"}},
		},
		Bench: []string{},
	}

	result := Optimize(plan, model.DefaultEngineConfig())
	require.Len(t, result.Assignments, 2)
	assert.Equal(t, []string{"external"}, result.Assignments[0].StaffIDs)
	assert.Equal(t, model.Assignment{RoomID: "OP9", StaffIDs: []string{"a"}}, result.Assignments[1])
}

func TestOptimize_DoesNotMutateInput(t *testing.T) {
	plan := randomPlan(7)
	snapshot, err := json.Marshal(plan)
	require.NoError(t, err)

	Optimize(plan, model.DefaultEngineConfig())

	after, err := json.Marshal(plan)
	require.NoError(t, err)
	assert.JSONEq(t, string(snapshot), string(after))
}
