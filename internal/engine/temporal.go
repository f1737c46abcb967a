package engine

import (
	"strconv"
	"strings"
	"time"
)

// Textual representations of the temporal kinds: RFC 3339 for datetimes
// (trailing zeros optional on parse, trimmed on output), `2006-01-02` for
// dates, `15:04:05[.frac]` for wall-clock times, Go duration syntax for
// durations.

func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

func formatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func formatDate(t time.Time) string { return t.Format(dateLayout) }

var clockLayouts = []string{"15:04:05.999999999", "15:04:05", "15:04"}

func parseClock(s string) (time.Time, error) {
	var err error
	for _, layout := range clockLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func formatClock(t time.Time) string {
	s := t.Format("15:04:05.999999999")
	return s
}

// parseDuration accepts Go duration syntax ("1h2m3.5s") and bare numeric
// seconds for the config formats.
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)), nil
}

func formatDuration(d time.Duration) string { return d.String() }

// formatFloatWire renders a float so it always reads back as a float: a
// fractional point or exponent is kept even for integral values.
func formatFloatWire(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !strings.Contains(s, "Inf") && s != "NaN" {
		s += ".0"
	}
	return s
}
