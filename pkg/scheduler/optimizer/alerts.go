package optimizer

import (
	"fmt"
	"strings"

	"github.com/paiban/orplan/pkg/model"
)

// 告警级别前缀
const (
	AlertCritical = "CRITICAL"
	AlertWarning  = "WARNING"
)

// BuildAlerts 按手术间顺序生成人员不足告警，每个手术间至多一条
func BuildAlerts(rooms []*model.Room, assignments []model.Assignment) []string {
	occupancy := make(map[string]int, len(assignments))
	seen := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		if seen[a.RoomID] {
			continue
		}
		seen[a.RoomID] = true
		occupancy[a.RoomID] = len(a.StaffIDs)
	}

	alerts := make([]string, 0)
	for _, room := range rooms {
		required := room.RequiredStaffCount
		n := occupancy[room.ID]
		switch {
		case required > 0 && n == 0:
			alerts = append(alerts, fmt.Sprintf("%s: 手术间 %s 无人值守 (0/%d)", AlertCritical, roomLabel(room), required))
		case n > 0 && n < required:
			alerts = append(alerts, fmt.Sprintf("%s: 手术间 %s 人员不足 (%d/%d)", AlertWarning, roomLabel(room), n, required))
		}
	}
	return alerts
}

// AlertLevel 返回告警级别
func AlertLevel(alert string) string {
	if i := strings.Index(alert, ":"); i > 0 {
		return alert[:i]
	}
	return ""
}

func roomLabel(room *model.Room) string {
	if room.Name != "" {
		return room.Name
	}
	return room.ID
}
