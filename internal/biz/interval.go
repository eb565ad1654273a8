package biz

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Interval 日历时长，按年月与天数分开保存
//
// 月份相加时若目标月没有对应日期，则落在该月最后一天，与 PostgreSQL 的 interval 行为一致。
type Interval struct {
	Months int
	Days   int
}

// 套餐时长上限：一百年
const (
	maxIntervalMonths = 100 * 12
	maxIntervalDays   = 100 * 366
)

var (
	isoIntervalPattern  = regexp.MustCompile(`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)W)?(?:(\d+)D)?$`)
	wordIntervalPattern = regexp.MustCompile(`(\d+)\s*([a-z]+)`)
)

// ParseInterval 解析套餐时长
//
// 支持 "1 month"、"3 months"、"1 year 2 months"、"2 weeks"、"30 days" 以及 ISO-8601 的 "P1Y2M3D"、"P2W"。
func ParseInterval(s string) (Interval, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Interval{}, fmt.Errorf("%w: empty", ErrInvalidInterval)
	}

	if strings.HasPrefix(strings.ToUpper(raw), "P") {
		return parseISOInterval(strings.ToUpper(raw))
	}

	lower := strings.ToLower(raw)
	matches := wordIntervalPattern.FindAllStringSubmatchIndex(lower, -1)
	if len(matches) == 0 {
		return Interval{}, fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}

	var iv Interval
	consumed := 0
	for _, m := range matches {
		// 两个片段之间只允许出现空白或逗号
		if gap := strings.Trim(lower[consumed:m[0]], " ,"); gap != "" {
			return Interval{}, fmt.Errorf("%w: %q", ErrInvalidInterval, s)
		}
		consumed = m[1]

		n, err := intervalComponent(lower[m[2]:m[3]])
		if err != nil {
			return Interval{}, fmt.Errorf("%w: %q", err, s)
		}
		switch lower[m[4]:m[5]] {
		case "year", "years", "yr", "yrs", "y":
			iv.Months += n * 12
		case "mon", "mons", "month", "months":
			iv.Months += n
		case "week", "weeks", "w":
			iv.Days += n * 7
		case "day", "days", "d":
			iv.Days += n
		default:
			return Interval{}, fmt.Errorf("%w: unknown unit in %q", ErrInvalidInterval, s)
		}
	}
	if rest := strings.TrimSpace(lower[consumed:]); rest != "" {
		return Interval{}, fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	return checkInterval(iv, s)
}

func parseISOInterval(s string) (Interval, error) {
	m := isoIntervalPattern.FindStringSubmatch(s)
	if m == nil || s == "P" {
		return Interval{}, fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	var parts [4]int
	for i := range parts {
		if m[i+1] == "" {
			continue
		}
		n, err := intervalComponent(m[i+1])
		if err != nil {
			return Interval{}, fmt.Errorf("%w: %q", err, s)
		}
		parts[i] = n
	}
	iv := Interval{
		Months: parts[0]*12 + parts[1],
		Days:   parts[2]*7 + parts[3],
	}
	return checkInterval(iv, s)
}

// intervalComponent 解析单个数量，超出上限的数字视为非法
func intervalComponent(digits string) (int, error) {
	n, err := strconv.Atoi(digits)
	if err != nil || n > maxIntervalDays {
		return 0, ErrInvalidInterval
	}
	return n, nil
}

func checkInterval(iv Interval, s string) (Interval, error) {
	if iv.IsZero() {
		return Interval{}, fmt.Errorf("%w: zero length %q", ErrInvalidInterval, s)
	}
	if iv.Months > maxIntervalMonths || iv.Days > maxIntervalDays {
		return Interval{}, fmt.Errorf("%w: too long %q", ErrInvalidInterval, s)
	}
	return iv, nil
}

// IsZero 是否为零时长
func (iv Interval) IsZero() bool {
	return iv.Months == 0 && iv.Days == 0
}

// AddTo 返回 t 加上该时长后的时间，保留 t 的时分秒与时区
func (iv Interval) AddTo(t time.Time) time.Time {
	if iv.Months != 0 {
		year, month, day := t.Date()
		total := int(month) - 1 + iv.Months
		targetYear := year + total/12
		targetMonth := time.Month(total%12 + 1)
		if last := daysIn(targetYear, targetMonth); day > last {
			day = last
		}
		hour, minute, sec := t.Clock()
		t = time.Date(targetYear, targetMonth, day, hour, minute, sec, t.Nanosecond(), t.Location())
	}
	if iv.Days != 0 {
		t = t.AddDate(0, 0, iv.Days)
	}
	return t
}

// String 输出规范化的文字形式
func (iv Interval) String() string {
	var parts []string
	if y := iv.Months / 12; y > 0 {
		parts = append(parts, plural(y, "year"))
	}
	if m := iv.Months % 12; m > 0 {
		parts = append(parts, plural(m, "month"))
	}
	if iv.Days > 0 {
		parts = append(parts, plural(iv.Days, "day"))
	}
	if len(parts) == 0 {
		return "0 days"
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
