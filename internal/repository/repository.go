// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/paiban/orplan/pkg/model"
)

// PlanStore 单日排班数据仓储接口
type PlanStore interface {
	ListStaff(ctx context.Context) ([]*model.Staff, error)
	ListRooms(ctx context.Context, day string) ([]*model.Room, error)
	ListPairings(ctx context.Context) ([]model.StaffPairing, error)
	GetAssignments(ctx context.Context, day string) ([]model.Assignment, error)
	LoadDayPlan(ctx context.Context, day string) (*model.DayPlan, error)
	SaveAssignments(ctx context.Context, day string, assignments []model.Assignment) error
	SaveRun(ctx context.Context, run *model.OptimizationRun) error
	ListRuns(ctx context.Context, filter ListFilter) ([]*model.OptimizationRun, error)
}

// ListFilter 列表查询过滤器
type ListFilter struct {
	Day    string `json:"day,omitempty"`
	Status string `json:"status,omitempty"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Offset: 0,
		Limit:  20,
	}
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithOffset 设置偏移
func (f ListFilter) WithOffset(offset int) ListFilter {
	f.Offset = offset
	return f
}

// WithDay 设置日期过滤
func (f ListFilter) WithDay(day string) ListFilter {
	f.Day = day
	return f
}

// WithStatus 设置状态过滤
func (f ListFilter) WithStatus(status string) ListFilter {
	f.Status = status
	return f
}

// DB 数据库接口，由 database.DB 实现
type DB interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Transaction(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}
