package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/model"
)

// staffRow or_staff 表记录
type staffRow struct {
	ID                 string         `db:"id"`
	Name               string         `db:"name"`
	Skills             types.JSONText `db:"skills"`
	IsLead             bool           `db:"is_lead"`
	LeadDepartments    pq.StringArray `db:"lead_departments"`
	DepartmentPriority pq.StringArray `db:"department_priority"`
	PreferredRooms     pq.StringArray `db:"preferred_rooms"`
	IsLowPriority      bool           `db:"is_low_priority"`
	RequiredPartnerID  string         `db:"required_partner_id"`
}

func (r *staffRow) toModel() (*model.Staff, error) {
	raw := make(map[string]string)
	if err := r.Skills.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("解析人员 %s 资质失败: %w", r.ID, err)
	}
	skills := make(map[string]model.Level, len(raw))
	for dept, level := range raw {
		skills[dept] = model.ParseLevel(level)
	}
	return &model.Staff{
		ID:                 r.ID,
		Name:               r.Name,
		Skills:             skills,
		IsLead:             r.IsLead,
		LeadDepartments:    []string(r.LeadDepartments),
		DepartmentPriority: []string(r.DepartmentPriority),
		PreferredRooms:     []string(r.PreferredRooms),
		IsLowPriority:      r.IsLowPriority,
		RequiredPartnerID:  r.RequiredPartnerID,
	}, nil
}

// roomRow or_rooms 表记录
type roomRow struct {
	ID                 string         `db:"id"`
	Name               string         `db:"name"`
	PrimaryDepartments pq.StringArray `db:"primary_departments"`
	Tags               pq.StringArray `db:"tags"`
	RequiredStaffCount int            `db:"required_staff_count"`
}

// operationRow or_operations 表记录
type operationRow struct {
	ID              string  `db:"id"`
	RoomID          string  `db:"room_id"`
	Department      string  `db:"department"`
	DurationMinutes int     `db:"duration_minutes"`
	Priority        string  `db:"priority"`
	EstimatedValue  float64 `db:"estimated_value"`
}

// slotRow or_day_assignments 表记录
type slotRow struct {
	RoomID  string `db:"room_id"`
	Slot    int    `db:"slot"`
	StaffID string `db:"staff_id"`
}

// runRow or_optimization_runs 表记录
type runRow struct {
	ID           uuid.UUID      `db:"id"`
	Day          string         `db:"day"`
	Status       string         `db:"status"`
	Rounds       int            `db:"rounds"`
	InitialScore int            `db:"initial_score"`
	FinalScore   int            `db:"final_score"`
	Alerts       pq.StringArray `db:"alerts"`
	DurationMS   int64          `db:"duration_ms"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// PlanRepository 单日排班仓储实现
type PlanRepository struct {
	db DB
}

// NewPlanRepository 创建排班仓储
func NewPlanRepository(db DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// ListStaff 按花名册顺序列出在岗人员
func (r *PlanRepository) ListStaff(ctx context.Context) ([]*model.Staff, error) {
	query := `
		SELECT id, name, skills, is_lead, lead_departments, department_priority,
			preferred_rooms, is_low_priority, COALESCE(required_partner_id, '') AS required_partner_id
		FROM or_staff
		WHERE active = TRUE
		ORDER BY roster_order, id
	`

	var rows []staffRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询人员失败")
	}

	staff := make([]*model.Staff, 0, len(rows))
	for i := range rows {
		s, err := rows[i].toModel()
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "人员数据格式错误")
		}
		staff = append(staff, s)
	}
	return staff, nil
}

// ListRooms 列出手术间并挂载当日手术，手术按排程顺序排列
func (r *PlanRepository) ListRooms(ctx context.Context, day string) ([]*model.Room, error) {
	var rows []roomRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, name, primary_departments, tags, required_staff_count
		FROM or_rooms
		WHERE active = TRUE
		ORDER BY sort_order, id
	`)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询手术间失败")
	}

	var ops []operationRow
	err = r.db.SelectContext(ctx, &ops, `
		SELECT id, room_id, department, duration_minutes, COALESCE(priority, '') AS priority,
			COALESCE(estimated_value, 0) AS estimated_value
		FROM or_operations
		WHERE day = $1
		ORDER BY room_id, seq
	`, day)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询手术排程失败")
	}

	byRoom := make(map[string][]model.Operation)
	for _, op := range ops {
		byRoom[op.RoomID] = append(byRoom[op.RoomID], model.Operation{
			ID:              op.ID,
			Department:      op.Department,
			DurationMinutes: op.DurationMinutes,
			Priority:        op.Priority,
			EstimatedValue:  op.EstimatedValue,
		})
	}

	rooms := make([]*model.Room, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, &model.Room{
			ID:                 row.ID,
			Name:               row.Name,
			PrimaryDepartments: []string(row.PrimaryDepartments),
			Tags:               []string(row.Tags),
			RequiredStaffCount: row.RequiredStaffCount,
			Operations:         byRoom[row.ID],
		})
	}
	return rooms, nil
}

// ListPairings 列出搭档关系
func (r *PlanRepository) ListPairings(ctx context.Context) ([]model.StaffPairing, error) {
	var pairings []model.StaffPairing
	err := r.db.SelectContext(ctx, &pairings, `
		SELECT staff_a, staff_b, type, active
		FROM or_staff_pairings
		ORDER BY staff_a, staff_b
	`)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询搭档关系失败")
	}
	return pairings, nil
}

// GetAssignments 获取当日分配，按手术间顺序与位置排列
func (r *PlanRepository) GetAssignments(ctx context.Context, day string) ([]model.Assignment, error) {
	var rows []slotRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT a.room_id, a.slot, a.staff_id
		FROM or_day_assignments a
		LEFT JOIN or_rooms r ON r.id = a.room_id
		WHERE a.day = $1
		ORDER BY r.sort_order NULLS LAST, a.room_id, a.slot
	`, day)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询排班分配失败")
	}

	assignments := make([]model.Assignment, 0)
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.RoomID]
		if !ok {
			i = len(assignments)
			index[row.RoomID] = i
			assignments = append(assignments, model.Assignment{RoomID: row.RoomID, StaffIDs: []string{}})
		}
		assignments[i].StaffIDs = append(assignments[i].StaffIDs, row.StaffID)
	}
	return assignments, nil
}

// LoadDayPlan 加载单日排班快照，待命人员由花名册推导
func (r *PlanRepository) LoadDayPlan(ctx context.Context, day string) (*model.DayPlan, error) {
	staff, err := r.ListStaff(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := r.ListRooms(ctx, day)
	if err != nil {
		return nil, err
	}
	pairings, err := r.ListPairings(ctx)
	if err != nil {
		return nil, err
	}
	assignments, err := r.GetAssignments(ctx, day)
	if err != nil {
		return nil, err
	}

	plan := &model.DayPlan{
		Date:        day,
		Rooms:       rooms,
		Staff:       staff,
		Assignments: assignments,
		Pairings:    pairings,
	}
	plan.Normalize()
	return plan, nil
}

// SaveAssignments 在事务中覆盖当日分配
func (r *PlanRepository) SaveAssignments(ctx context.Context, day string, assignments []model.Assignment) error {
	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM or_day_assignments WHERE day = $1", day); err != nil {
			return fmt.Errorf("清除排班分配失败: %w", err)
		}

		var values []string
		var args []interface{}
		args = append(args, day)
		for _, a := range assignments {
			for slot, staffID := range a.StaffIDs {
				n := len(args)
				values = append(values, fmt.Sprintf("($1, $%d, $%d, $%d)", n+1, n+2, n+3))
				args = append(args, a.RoomID, slot, staffID)
			}
		}
		if len(values) == 0 {
			return nil
		}

		query := "INSERT INTO or_day_assignments (day, room_id, slot, staff_id) VALUES " + strings.Join(values, ", ")
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("写入排班分配失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "保存排班分配失败")
	}
	return nil
}

// SaveRun 保存优化运行记录
func (r *PlanRepository) SaveRun(ctx context.Context, run *model.OptimizationRun) error {
	if run.ID == uuid.Nil {
		run.BaseModel = model.NewBaseModel()
	}
	run.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO or_optimization_runs (
			id, day, status, rounds, initial_score, final_score,
			alerts, duration_ms, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		run.ID, run.Day, string(run.Status), run.Rounds, run.InitialScore, run.FinalScore,
		pq.Array(run.Alerts), run.Duration.Milliseconds(), run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "保存优化记录失败")
	}
	return nil
}

// ListRuns 按时间倒序列出优化运行记录
func (r *PlanRepository) ListRuns(ctx context.Context, filter ListFilter) ([]*model.OptimizationRun, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("day = $%d", argNum))
		args = append(args, filter.Day)
		argNum++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, filter.Status)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultListFilter().Limit
	}

	query := fmt.Sprintf(`
		SELECT id, to_char(day, 'YYYY-MM-DD') AS day, status, rounds, initial_score, final_score,
			alerts, duration_ms, created_at, updated_at
		FROM or_optimization_runs %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询优化记录失败")
	}

	runs := make([]*model.OptimizationRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, &model.OptimizationRun{
			BaseModel:    model.BaseModel{ID: row.ID, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt},
			Day:          row.Day,
			Status:       model.RunStatus(row.Status),
			Rounds:       row.Rounds,
			InitialScore: row.InitialScore,
			FinalScore:   row.FinalScore,
			Alerts:       []string(row.Alerts),
			Duration:     time.Duration(row.DurationMS) * time.Millisecond,
		})
	}
	return runs, nil
}
