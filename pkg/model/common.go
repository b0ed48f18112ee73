// Package model 定义手术室排班引擎的核心数据模型
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Level 专科资质等级
type Level string

const (
	LevelNone   Level = "none"   // 无资质
	LevelJunior Level = "junior" // 初级
	LevelExpert Level = "expert" // 专家
)

// ParseLevel 解析资质等级，历史数据中的 "expert+" 视为专家，无法识别的值视为无资质
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expert", "expert+":
		return LevelExpert
	case "junior":
		return LevelJunior
	default:
		return LevelNone
	}
}

// Rank 返回等级序号，便于比较
func (l Level) Rank() int {
	switch ParseLevel(string(l)) {
	case LevelExpert:
		return 2
	case LevelJunior:
		return 1
	default:
		return 0
	}
}

// Meets 判断当前等级是否满足最低要求
// expert 要求必须是专家；较低的要求只需不是 none
func (l Level) Meets(min Level) bool {
	switch ParseLevel(string(min)) {
	case LevelExpert:
		return l.Rank() == 2
	case LevelJunior:
		return l.Rank() >= 1
	default:
		return true
	}
}

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// containsString 判断切片是否包含指定字符串
func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
