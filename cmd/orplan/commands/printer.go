package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	apperrors "github.com/paiban/orplan/pkg/errors"
	"github.com/paiban/orplan/pkg/scheduler/optimizer"
)

func init() {
	// 非终端输出时也保留颜色，NO_COLOR 可关闭
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

func success(w io.Writer, format string, a ...any) {
	green.Fprintf(w, "✓ "+format+"\n", a...)
}

func heading(w io.Writer, format string, a ...any) {
	cyan.Fprintf(w, format+"\n", a...)
}

// printAlerts CRITICAL 红色，WARNING 黄色
func printAlerts(w io.Writer, alerts []string) {
	if len(alerts) == 0 {
		success(w, "所有手术间人员充足")
		return
	}
	for _, alert := range alerts {
		switch optimizer.AlertLevel(alert) {
		case optimizer.AlertCritical:
			red.Fprintln(w, alert)
		case optimizer.AlertWarning:
			yellow.Fprintln(w, alert)
		default:
			fmt.Fprintln(w, alert)
		}
	}
}

// printError 输出错误码与字段信息
func printError(w io.Writer, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		red.Fprintf(w, "错误: %v\n", err)
		return
	}
	red.Fprintf(w, "%s: %s\n", appErr.Code, appErr.Message)
	if appErr.Cause != nil {
		fmt.Fprintf(w, "  原因: %v\n", appErr.Cause)
	}
	for k, v := range appErr.Fields {
		fmt.Fprintf(w, "  %s: %v\n", k, v)
	}
}

func formatStaff(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}
