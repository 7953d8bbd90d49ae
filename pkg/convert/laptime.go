package convert

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidLapTime = errors.New("invalid lap time")
	ErrInvalidDate    = errors.New("invalid date")
)

var sixty = decimal.NewFromInt(60)

// ParseLapTime converts "MM:SS.mmm" (or plain "SS.mmm") into seconds.
func ParseLapTime(s string) (float64, error) {
	work := strings.TrimSpace(s)
	if work == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidLapTime)
	}
	parts := strings.Split(work, ":")
	if len(parts) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLapTime, s)
	}
	secPart := parts[len(parts)-1]
	if !isPlainNumber(secPart) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLapTime, s)
	}
	secs, err := decimal.NewFromString(secPart)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLapTime, s)
	}
	total := secs
	if len(parts) == 2 {
		minutes, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || minutes < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidLapTime, s)
		}
		if secs.GreaterThanOrEqual(sixty) {
			return 0, fmt.Errorf("%w: seconds out of range in %q", ErrInvalidLapTime, s)
		}
		total = decimal.NewFromInt(int64(minutes)).Mul(sixty).Add(secs)
	}
	return total.InexactFloat64(), nil
}

// FormatLapTime renders seconds as "MM:SS.mmm".
func FormatLapTime(seconds float64) string {
	d := decimal.NewFromFloat(seconds).Round(3)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	minutes := d.Div(sixty).Floor()
	rest := d.Sub(minutes.Mul(sixty))
	restStr := rest.StringFixed(3)
	if rest.LessThan(decimal.NewFromInt(10)) {
		restStr = "0" + restStr
	}
	return fmt.Sprintf("%s%02d:%s", sign, minutes.IntPart(), restStr)
}

func isPlainNumber(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	dot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return s != "."
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
	"02/01/2006 15:04",
	"02/01/2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate accepts the date formats found in the lap exports and returns
// the instant in UTC.
func ParseDate(s string) (time.Time, error) {
	work := strings.TrimSpace(s)
	if work == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, work); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a stable, url-safe identifier from a display name.
func Slug(name string) string {
	work := nonAlnum.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(work, "-")
}
