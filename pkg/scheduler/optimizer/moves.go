package optimizer

import (
	"github.com/paiban/orplan/pkg/model"
	"github.com/paiban/orplan/pkg/scheduler/scoring"
)

// MoveKind 邻域移动类型
type MoveKind string

const (
	MoveFill    MoveKind = "fill"    // 空位补人
	MoveReplace MoveKind = "replace" // 替补人员换下在岗人员
	MoveSwap    MoveKind = "swap"    // 两个手术间之间互换
)

// Move 已接受的改进移动
type Move struct {
	Round     int      `json:"round"`
	Kind      MoveKind `json:"kind"`
	RoomID    string   `json:"room_id"`
	Slot      int      `json:"slot"`
	StaffIn   string   `json:"staff_in"`
	StaffOut  string   `json:"staff_out,omitempty"`
	OtherRoom string   `json:"other_room_id,omitempty"`
	OtherSlot int      `json:"other_slot,omitempty"`
	Score     int      `json:"score"`
}

// arena 以整数下标表示的只读问题数据
// 下标 [0, known) 为花名册人员，其后为分配中出现但不在花名册中的人员
type arena struct {
	ids       []string
	staff     []*model.Staff // 未知人员为 nil
	known     int
	rooms     []*model.Room
	dominant  []string
	qualified [][]bool // [staff][room]
	scorer    *scoring.Scorer
}

func newArena(plan *model.DayPlan, scorer *scoring.Scorer) *arena {
	a := &arena{
		rooms:    plan.Rooms,
		dominant: make([]string, len(plan.Rooms)),
		scorer:   scorer,
	}
	for r, room := range plan.Rooms {
		a.dominant[r] = scorer.Dominant(room)
	}

	seen := make(map[string]bool, len(plan.Staff))
	for _, st := range plan.Staff {
		if st == nil || seen[st.ID] {
			continue
		}
		seen[st.ID] = true
		a.ids = append(a.ids, st.ID)
		a.staff = append(a.staff, st)
	}
	a.known = len(a.ids)

	a.qualified = make([][]bool, a.known)
	engine := scorer.Engine()
	for s := 0; s < a.known; s++ {
		a.qualified[s] = make([]bool, len(a.rooms))
		for r, room := range a.rooms {
			a.qualified[s][r] = engine.IsQualified(a.staff[s], room)
		}
	}
	return a
}

// index 返回人员下标，未知人员追加到尾部
func (a *arena) index(id string, lookup map[string]int) int {
	if i, ok := lookup[id]; ok {
		return i
	}
	a.ids = append(a.ids, id)
	a.staff = append(a.staff, nil)
	lookup[id] = len(a.ids) - 1
	return lookup[id]
}

func (a *arena) isKnown(s int) bool {
	return s < a.known
}

func (a *arena) canTake(s, r int) bool {
	return a.isKnown(s) && a.qualified[s][r]
}

// roomScore 计算候选位置排列下的手术间得分
func (a *arena) roomScore(r int, slots []int) int {
	occupants := make([]*model.Staff, len(slots))
	for i, s := range slots {
		occupants[i] = a.staff[s]
	}
	return a.scorer.ScoreRoom(a.rooms[r], a.dominant[r], occupants)
}

// state 搜索状态，提交后不再修改
type state struct {
	slots      [][]int
	onBench    []bool
	roomScores []int
	total      int
}

// proposal 候选下一状态：只记录变化的手术间
type proposal struct {
	move     Move
	rooms    []int
	rows     [][]int
	scores   []int
	benchIn  int // 回到替补的人员，-1 表示无
	benchOut int // 离开替补的人员，-1 表示无
	total    int
}

// propose 对一个或两个手术间的新排列打分
func (a *arena) propose(cur *state, mv Move, rooms []int, rows [][]int, benchIn, benchOut int) *proposal {
	p := &proposal{
		move:     mv,
		rooms:    rooms,
		rows:     rows,
		scores:   make([]int, len(rooms)),
		benchIn:  benchIn,
		benchOut: benchOut,
		total:    cur.total,
	}
	for i, r := range rooms {
		p.scores[i] = a.roomScore(r, rows[i])
		p.total += p.scores[i] - cur.roomScores[r]
	}
	return p
}

// commit 基于当前状态和候选生成新状态
func (cur *state) commit(p *proposal) *state {
	next := &state{
		slots:      make([][]int, len(cur.slots)),
		onBench:    make([]bool, len(cur.onBench)),
		roomScores: make([]int, len(cur.roomScores)),
		total:      p.total,
	}
	copy(next.slots, cur.slots)
	copy(next.onBench, cur.onBench)
	copy(next.roomScores, cur.roomScores)

	for i, r := range p.rooms {
		next.slots[r] = p.rows[i]
		next.roomScores[r] = p.scores[i]
	}
	if p.benchOut >= 0 {
		next.onBench[p.benchOut] = false
	}
	if p.benchIn >= 0 {
		next.onBench[p.benchIn] = true
	}
	return next
}

func withSlot(row []int, slot, s int) []int {
	next := make([]int, len(row))
	copy(next, row)
	next[slot] = s
	return next
}

func withAppend(row []int, s int) []int {
	next := make([]int, len(row), len(row)+1)
	copy(next, row)
	return append(next, s)
}
