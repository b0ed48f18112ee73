// Package optimizer 提供手术间排班的局部搜索优化
package optimizer

import (
	"encoding/binary"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/orplan/pkg/logger"
	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/scoring"
)

// Result 优化结果
type Result struct {
	Assignments  []model.Assignment `json:"assignments"`
	Alerts       []string           `json:"alerts"`
	Score        int                `json:"score"`
	InitialScore int                `json:"initial_score"`
	Status       model.RunStatus    `json:"status"`
	Rounds       int                `json:"rounds"`
	Moves        []Move             `json:"moves"`
}

// Fingerprint 计算分配结果的哈希 (FNV-1a)
func (r *Result) Fingerprint() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, a := range r.Assignments {
		h.Write([]byte(a.RoomID))
		h.Write([]byte{0})
		for _, id := range a.StaffIDs {
			h.Write([]byte(id))
			h.Write([]byte{1})
		}
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(r.Score)))
	h.Write(buf[:])
	return h.Sum64()
}

// LocalSearchOptimizer 首次改进爬山优化器
// 单线程、无随机性：相同输入（含人员顺序）必然得到相同输出
type LocalSearchOptimizer struct {
	config *model.EngineConfig
	logger *logger.OptimizerLogger
}

// NewLocalSearchOptimizer 创建局部搜索优化器
func NewLocalSearchOptimizer(config *model.EngineConfig) *LocalSearchOptimizer {
	if config == nil {
		config = model.DefaultEngineConfig()
	}
	return &LocalSearchOptimizer{
		config: config,
		logger: logger.NewOptimizerLogger(),
	}
}

// Config 返回引擎配置
func (o *LocalSearchOptimizer) Config() *model.EngineConfig {
	return o.config
}

// Optimize 优化单日排班
// 不会因无解失败：始终返回一个（可能仍缺人的）分配方案与告警
func (o *LocalSearchOptimizer) Optimize(plan *model.DayPlan) *Result {
	start := time.Now()
	runID := uuid.New().String()

	scorer := scoring.NewScorer(o.config, plan.Pairings)
	a := newArena(plan, scorer)
	cur, extras := o.initialState(plan, a)

	maxIter := o.config.MaxIterations
	if maxIter <= 0 {
		maxIter = model.DefaultMaxIterations
	}

	benchSize := 0
	for _, b := range cur.onBench {
		if b {
			benchSize++
		}
	}
	o.logger.StartRun(runID, len(a.rooms), a.known, benchSize, cur.total)

	result := &Result{
		InitialScore: cur.total,
		Status:       model.StatusIterationCapReached,
		Moves:        make([]Move, 0),
	}

	for round := 1; round <= maxIter; round++ {
		result.Rounds = round
		p := o.fillPass(a, cur)
		if p == nil {
			p = o.swapPass(a, cur)
		}
		if p == nil {
			result.Status = model.StatusConverged
			break
		}

		cur = cur.commit(p)
		p.move.Round = round
		p.move.Score = cur.total
		result.Moves = append(result.Moves, p.move)

		o.logger.MoveAccepted(runID, round, string(p.move.Kind), p.move.RoomID, p.move.Slot, p.move.StaffIn, p.move.StaffOut, cur.total)
	}

	result.Assignments = o.buildAssignments(a, cur, extras)
	result.Score = cur.total
	result.Alerts = BuildAlerts(plan.Rooms, result.Assignments)

	o.logger.RunComplete(runID, string(result.Status), result.Rounds, result.InitialScore, result.Score, len(result.Alerts), time.Since(start))
	return result
}

// initialState 构建初始状态
// 每个手术间取第一条分配记录；未知手术间及重复记录原样保留
func (o *LocalSearchOptimizer) initialState(plan *model.DayPlan, a *arena) (*state, []model.Assignment) {
	lookup := make(map[string]int, a.known)
	for i := 0; i < a.known; i++ {
		lookup[a.ids[i]] = i
	}
	roomIdx := make(map[string]int, len(a.rooms))
	for r, room := range a.rooms {
		if _, dup := roomIdx[room.ID]; !dup {
			roomIdx[room.ID] = r
		}
	}

	cur := &state{
		slots:      make([][]int, len(a.rooms)),
		roomScores: make([]int, len(a.rooms)),
	}
	filled := make([]bool, len(a.rooms))
	var extras []model.Assignment
	assigned := make(map[string]bool)

	for _, asg := range plan.Assignments {
		for _, id := range asg.StaffIDs {
			assigned[id] = true
		}
		r, ok := roomIdx[asg.RoomID]
		if !ok || filled[r] {
			extras = append(extras, asg.Clone())
			continue
		}
		filled[r] = true
		row := make([]int, 0, len(asg.StaffIDs))
		for _, id := range asg.StaffIDs {
			row = append(row, a.index(id, lookup))
		}
		cur.slots[r] = row
	}

	cur.onBench = make([]bool, len(a.ids))
	for _, id := range plan.Bench {
		if i, ok := lookup[id]; ok && a.isKnown(i) && !assigned[id] {
			cur.onBench[i] = true
		}
	}

	for r := range a.rooms {
		cur.roomScores[r] = a.roomScore(r, cur.slots[r])
		cur.total += cur.roomScores[r]
	}
	return cur, extras
}

// fillPass 补位/替换：手术间 → 位置 → 替补人员（花名册顺序），接受第一个严格改进
func (o *LocalSearchOptimizer) fillPass(a *arena, cur *state) *proposal {
	for r, room := range a.rooms {
		row := cur.slots[r]
		for slot := 0; slot < room.RequiredStaffCount; slot++ {
			if slot < len(row) {
				out := row[slot]
				if !a.isKnown(out) {
					continue
				}
				for c := 0; c < a.known; c++ {
					if !cur.onBench[c] || !a.canTake(c, r) {
						continue
					}
					mv := Move{Kind: MoveReplace, RoomID: room.ID, Slot: slot, StaffIn: a.ids[c], StaffOut: a.ids[out]}
					p := a.propose(cur, mv, []int{r}, [][]int{withSlot(row, slot, c)}, out, c)
					if p.total > cur.total {
						return p
					}
				}
				continue
			}

			// 空位：追加到末尾，之后的空位与此等价
			for c := 0; c < a.known; c++ {
				if !cur.onBench[c] || !a.canTake(c, r) {
					continue
				}
				mv := Move{Kind: MoveFill, RoomID: room.ID, Slot: len(row), StaffIn: a.ids[c]}
				p := a.propose(cur, mv, []int{r}, [][]int{withAppend(row, c)}, -1, c)
				if p.total > cur.total {
					return p
				}
			}
			break
		}
	}
	return nil
}

// swapPass 横向互换：两个不同手术间的在岗人员交换位置，双方都须具备新手术间资质
func (o *LocalSearchOptimizer) swapPass(a *arena, cur *state) *proposal {
	for i := 0; i < len(a.rooms); i++ {
		for j := i + 1; j < len(a.rooms); j++ {
			for si, x := range cur.slots[i] {
				for sj, y := range cur.slots[j] {
					if !a.canTake(x, j) || !a.canTake(y, i) {
						continue
					}
					mv := Move{
						Kind:      MoveSwap,
						RoomID:    a.rooms[i].ID,
						Slot:      si,
						StaffIn:   a.ids[y],
						StaffOut:  a.ids[x],
						OtherRoom: a.rooms[j].ID,
						OtherSlot: sj,
					}
					rows := [][]int{withSlot(cur.slots[i], si, y), withSlot(cur.slots[j], sj, x)}
					p := a.propose(cur, mv, []int{i, j}, rows, -1, -1)
					if p.total > cur.total {
						return p
					}
				}
			}
		}
	}
	return nil
}

// buildAssignments 按手术间顺序输出分配，未匹配的原始记录附在末尾
func (o *LocalSearchOptimizer) buildAssignments(a *arena, cur *state, extras []model.Assignment) []model.Assignment {
	result := make([]model.Assignment, 0, len(a.rooms)+len(extras))
	for r, room := range a.rooms {
		ids := make([]string, len(cur.slots[r]))
		for i, s := range cur.slots[r] {
			ids[i] = a.ids[s]
		}
		result = append(result, model.Assignment{RoomID: room.ID, StaffIDs: ids})
	}
	return append(result, extras...)
}

// Optimize 使用指定配置优化单日排班的便捷入口
func Optimize(plan *model.DayPlan, config *model.EngineConfig) *Result {
	return NewLocalSearchOptimizer(config).Optimize(plan)
}
