package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	sizeRe       = regexp.MustCompile(`(?i)([\d.,]+)\s*(KB|MB|GB)\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeSizeText re-renders a raw "<number><unit>" token in a canonical
// form: two decimal places for fractional values >= 1 ("31.50 MB"), integer
// render otherwise ("7 GB"). Unparseable input is returned with whitespace
// collapsed, unit untouched.
func NormalizeSizeText(raw string) string {
	clean := strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
	if clean == "" {
		return ""
	}

	m := sizeRe.FindStringSubmatch(clean)
	if m == nil {
		return clean
	}

	num := strings.ReplaceAll(m[1], ",", "")
	unit := strings.ToUpper(m[2])

	if strings.Contains(num, ".") {
		value, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return fmt.Sprintf("%s %s", num, unit)
		}
		if value >= 1 {
			return fmt.Sprintf("%.2f %s", value, unit)
		}
		return fmt.Sprintf("%s %s", strconv.FormatFloat(value, 'f', -1, 64), unit)
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return fmt.Sprintf("%s %s", num, unit)
	}
	return fmt.Sprintf("%d %s", int64(value), unit)
}

// ParseSizeBytes converts a size string such as "31.00 MB" into bytes.
// Returns 0 when the text carries no recognizable size token.
func ParseSizeBytes(size string) int64 {
	m := sizeRe.FindStringSubmatch(size)
	if m == nil {
		return 0
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}

	switch strings.ToUpper(m[2]) {
	case "KB":
		return int64(value * 1024)
	case "MB":
		return int64(value * 1024 * 1024)
	case "GB":
		return int64(value * 1024 * 1024 * 1024)
	}
	return 0
}

// FormatBytes renders a byte count as a human-readable size with one
// decimal where it adds meaning.
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return ""
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	value := float64(bytes)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}
	rounded := math.Round(value*10) / 10
	if value >= 100 {
		rounded = math.Round(value)
	}
	if rounded == math.Trunc(rounded) {
		return fmt.Sprintf("%d %s", int64(rounded), units[i])
	}
	return fmt.Sprintf("%.1f %s", rounded, units[i])
}

// FormatCompact renders large counts in rounded compact form: values under
// 10,000 keep their digits, larger ones collapse to 12.3K / 4.5M / 7.8B.
func FormatCompact(n int64) string {
	if n < 10000 {
		return groupDigits(n)
	}
	units := []struct {
		value  int64
		suffix string
	}{
		{1e9, "B"},
		{1e6, "M"},
		{1e3, "K"},
	}
	for _, u := range units {
		if n >= u.value*10 {
			value := float64(n) / float64(u.value)
			rounded := math.Round(value*10) / 10
			if value >= 100 {
				rounded = math.Round(value)
			}
			if rounded == math.Trunc(rounded) {
				return fmt.Sprintf("%d%s", int64(rounded), u.suffix)
			}
			return fmt.Sprintf("%.1f%s", rounded, u.suffix)
		}
	}
	return groupDigits(n)
}

func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
