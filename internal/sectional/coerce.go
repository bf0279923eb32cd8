package sectional

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/verte-zerg/sectionals/internal/model"
)

const (
	dateTimeLayout = "2006-01-02T15:04:05"
	dateLayout     = "2006-01-02"
	decorations    = "[] \t\r\n"
)

// ParseClock parses a time-of-day value, tolerating bracketed annotations
// such as "[00:35:12.450 ]" or "00:35:12.450 [provisional]".
func ParseClock(text string) (model.Clock, error) {
	return model.ParseClock(undecorate(text))
}

// undecorate keeps the first whitespace-delimited token with brackets removed.
func undecorate(text string) string {
	text = strings.Trim(text, decorations)
	if fields := strings.Fields(text); len(fields) > 0 {
		text = fields[0]
	}
	return strings.Trim(text, decorations)
}

func parseInt32(text string) (int32, error) {
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}

func parseUint8(text string) (uint8, error) {
	n, err := strconv.ParseUint(text, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}

func parseDecimal(text string) (decimal.Decimal, error) {
	return decimal.NewFromString(text)
}

// parseEventDate accepts a full timestamp or a bare date and keeps the date.
func parseEventDate(text string) (time.Time, error) {
	for _, layout := range []string{dateTimeLayout, dateLayout} {
		if t, err := time.Parse(layout, text); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q: expected %s or %s", text, dateTimeLayout, dateLayout)
}

func formatEventDate(t time.Time) string {
	return t.Format(dateLayout)
}
