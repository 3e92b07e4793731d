package grouping

import (
	"strings"
	"time"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
)

// DisplayZone is the fixed zone every label and timestamp is rendered in.
// China has not observed daylight saving since 1991, so a fixed offset matches
// Asia/Shanghai without depending on the host's tz database.
var DisplayZone = time.FixedZone("CST", 8*60*60)

const (
	monthLayout = "2006年1月"
	shortLayout = "01月02日 15:04"
	cardLayout  = "01.02 15:04"
	fullLayout  = "2006/01/02 15:04"

	pendingText   = "..."
	untitledDiary = "无题"
)

// MonthLabel is the bucket key, e.g. "2025年3月".
func MonthLabel(ct model.CreationTime) string {
	return ct.Time().In(DisplayZone).Format(monthLayout)
}

func format(ct model.CreationTime, layout string) string {
	if !ct.IsKnown() {
		return pendingText
	}
	return ct.Time().In(DisplayZone).Format(layout)
}

// FormatShort renders the dashboard card time. Pending times render as "...".
func FormatShort(ct model.CreationTime) string { return format(ct, shortLayout) }

// FormatCard renders the diary card header time.
func FormatCard(ct model.CreationTime) string { return format(ct, cardLayout) }

func FormatFull(ct model.CreationTime) string { return format(ct, fullLayout) }

func FormatDay(ct model.CreationTime) string { return format(ct, "02") }

func FormatClock(ct model.CreationTime) string { return format(ct, "15:04") }

// DiaryTitle is the first line of a diary, or a placeholder when it is empty.
func DiaryTitle(content string) string {
	first, _, _ := strings.Cut(content, "\n")
	if first == "" {
		return untitledDiary
	}
	return first
}
