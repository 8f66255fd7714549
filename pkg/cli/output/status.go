package output

import (
	"fmt"
	"time"

	"github.com/fatih/color"
)

// FormatStatus 格式化运行/节点状态显示
func FormatStatus(status string) string {
	switch status {
	case "SUCCESS":
		return color.GreenString("✅ SUCCESS")
	case "FAILED":
		return color.RedString("❌ FAILED")
	case "RUNNING":
		return color.CyanString("🔄 RUNNING")
	case "PENDING":
		return "⏳ PENDING"
	case "SKIPPED":
		return color.YellowString("⏭️  SKIPPED")
	case "CANCELLED":
		return color.YellowString("🛑 CANCELLED")
	default:
		return status
	}
}

// FormatDuration 保留毫秒精度
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return d.Round(time.Millisecond).String()
	}
}

// FormatTime 零值显示为 -
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
